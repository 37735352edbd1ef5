package types

// Program is the root of a parsed compilation unit. Identification and
// Procedure are always present on a successfully parsed program.
type Program struct {
	ProgramID      string             `json:"program_id"`
	Identification IdentificationInfo `json:"identification"`
	Environment    *EnvironmentInfo   `json:"environment,omitempty"`
	Data           *DataDivision      `json:"data,omitempty"`
	Procedure      *ProcedureDivision `json:"procedure,omitempty"`

	// Divisions lists division headers in source order.
	Divisions []DivisionHeader `json:"divisions"`
	Copybooks []CopyDirective  `json:"copybooks,omitempty"`
}

// Division names as they appear in headers
const (
	DivisionIdentification = "IDENTIFICATION"
	DivisionEnvironment    = "ENVIRONMENT"
	DivisionData           = "DATA"
	DivisionProcedure      = "PROCEDURE"
)

// DivisionHeader records where a division header was found
type DivisionHeader struct {
	Name   string `json:"name"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// HasDivision reports whether a header with the given name was parsed
func (p *Program) HasDivision(name string) bool {
	for _, d := range p.Divisions {
		if d.Name == name {
			return true
		}
	}
	return false
}

// CopyDirective is a COPY statement found in the source. Copybooks are
// recorded, not expanded.
type CopyDirective struct {
	Name    string `json:"name"`
	Library string `json:"library,omitempty"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// IdentificationInfo holds the IDENTIFICATION DIVISION paragraphs.
// Comment entries are kept as written, minus the closing period.
type IdentificationInfo struct {
	ProgramAttributes []string `json:"program_attributes,omitempty"`
	Author            string   `json:"author,omitempty"`
	Installation      string   `json:"installation,omitempty"`
	DateWritten       string   `json:"date_written,omitempty"`
	DateCompiled      string   `json:"date_compiled,omitempty"`
	Security          string   `json:"security,omitempty"`
	Remarks           []string `json:"remarks,omitempty"`
	Line              int      `json:"line"`
	Column            int      `json:"column"`
}

// EnvironmentInfo holds the CONFIGURATION and INPUT-OUTPUT sections
type EnvironmentInfo struct {
	SourceComputer *SourceComputer    `json:"source_computer,omitempty"`
	ObjectComputer *ObjectComputer    `json:"object_computer,omitempty"`
	SpecialNames   *SpecialNames      `json:"special_names,omitempty"`
	FileControl    []FileControlEntry `json:"file_control,omitempty"`
	IOControl      *IOControl         `json:"io_control,omitempty"`
}

type SourceComputer struct {
	Name          string `json:"name"`
	DebuggingMode bool   `json:"debugging_mode,omitempty"`
}

type ObjectComputer struct {
	Name              string `json:"name"`
	MemorySize        string `json:"memory_size,omitempty"`
	CollatingSequence string `json:"collating_sequence,omitempty"`
	SegmentLimit      *int   `json:"segment_limit,omitempty"`
}

// SpecialNames holds the SPECIAL-NAMES paragraph
type SpecialNames struct {
	CurrencySign       string              `json:"currency_sign,omitempty"`
	DecimalPointComma  bool                `json:"decimal_point_comma,omitempty"`
	Classes            []ClassDefinition   `json:"classes,omitempty"`
	SymbolicCharacters []SymbolicCharacter `json:"symbolic_characters,omitempty"`
	Mnemonics          []Mnemonic          `json:"mnemonics,omitempty"`
}

type ClassDefinition struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type SymbolicCharacter struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

// Mnemonic binds an implementor name such as C01 or CONSOLE to a user name
type Mnemonic struct {
	Implementor string `json:"implementor"`
	Name        string `json:"name"`
}

// File organizations and access modes
const (
	OrganizationSequential     = "SEQUENTIAL"
	OrganizationLineSequential = "LINE SEQUENTIAL"
	OrganizationIndexed        = "INDEXED"
	OrganizationRelative       = "RELATIVE"

	AccessSequential = "SEQUENTIAL"
	AccessRandom     = "RANDOM"
	AccessDynamic    = "DYNAMIC"
)

// FileControlEntry is one SELECT clause of FILE-CONTROL
type FileControlEntry struct {
	FileName      string         `json:"file_name"`
	Optional      bool           `json:"optional,omitempty"`
	AssignTo      string         `json:"assign_to,omitempty"`
	Organization  string         `json:"organization"`
	AccessMode    string         `json:"access_mode"`
	RecordKey     string         `json:"record_key,omitempty"`
	AlternateKeys []AlternateKey `json:"alternate_keys,omitempty"`
	RelativeKey   string         `json:"relative_key,omitempty"`
	FileStatus    string         `json:"file_status,omitempty"`
	Line          int            `json:"line"`
	Column        int            `json:"column"`
}

type AlternateKey struct {
	Name       string `json:"name"`
	Duplicates bool   `json:"duplicates,omitempty"`
}

// IOControl holds the I-O-CONTROL paragraph
type IOControl struct {
	SameAreas         [][]string `json:"same_areas,omitempty"`
	MultipleFileTapes []string   `json:"multiple_file_tapes,omitempty"`
	ApplyWriteOnly    []string   `json:"apply_write_only,omitempty"`
}

// FileControlFor returns the SELECT entry for the named file, or nil
func (e *EnvironmentInfo) FileControlFor(name string) *FileControlEntry {
	if e == nil {
		return nil
	}
	for i := range e.FileControl {
		if e.FileControl[i].FileName == name {
			return &e.FileControl[i]
		}
	}
	return nil
}
