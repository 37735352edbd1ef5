package types

// DataSectionKind names a DATA DIVISION section
type DataSectionKind string

const (
	SectionFile           DataSectionKind = "FILE"
	SectionWorkingStorage DataSectionKind = "WORKING-STORAGE"
	SectionLocalStorage   DataSectionKind = "LOCAL-STORAGE"
	SectionLinkage        DataSectionKind = "LINKAGE"
	SectionScreen         DataSectionKind = "SCREEN"
)

// DataDivision holds the DATA DIVISION sections in source order
type DataDivision struct {
	Sections []DataSection `json:"sections"`
}

// DataSection is one section of the DATA DIVISION. Files is only populated
// for the FILE section; record descriptions hang off each FileDescription.
type DataSection struct {
	Kind   DataSectionKind   `json:"kind"`
	Files  []FileDescription `json:"files,omitempty"`
	Items  []*DataItem       `json:"items,omitempty"`
	Line   int               `json:"line"`
	Column int               `json:"column"`
}

// FileDescription is an FD or SD entry with its record layouts
type FileDescription struct {
	Kind           string      `json:"kind"`
	Name           string      `json:"name"`
	BlockContains  string      `json:"block_contains,omitempty"`
	RecordContains string      `json:"record_contains,omitempty"`
	LabelRecords   string      `json:"label_records,omitempty"`
	ValueOf        []string    `json:"value_of,omitempty"`
	DataRecords    []string    `json:"data_records,omitempty"`
	Linage         string      `json:"linage,omitempty"`
	RecordingMode  string      `json:"recording_mode,omitempty"`
	External       bool        `json:"external,omitempty"`
	Global         bool        `json:"global,omitempty"`
	Records        []*DataItem `json:"records,omitempty"`
	Line           int         `json:"line"`
	Column         int         `json:"column"`
}

// Section returns the first section of the given kind, or nil
func (d *DataDivision) Section(kind DataSectionKind) *DataSection {
	if d == nil {
		return nil
	}
	for i := range d.Sections {
		if d.Sections[i].Kind == kind {
			return &d.Sections[i]
		}
	}
	return nil
}

// Roots returns every top-level item in declaration order, FD records
// included.
func (d *DataDivision) Roots() []*DataItem {
	if d == nil {
		return nil
	}
	var roots []*DataItem
	for _, s := range d.Sections {
		for _, fd := range s.Files {
			roots = append(roots, fd.Records...)
		}
		roots = append(roots, s.Items...)
	}
	return roots
}

// Special level numbers
const (
	LevelRenames   = 66
	LevelStandard  = 77
	LevelCondition = 88
)

// FillerName is the name given to FILLER and unnamed entries
const FillerName = "FILLER"

// Usage is the normalized USAGE clause
type Usage string

const (
	UsageDisplay       Usage = "DISPLAY"
	UsageBinary        Usage = "BINARY"
	UsageComp          Usage = "COMP"
	UsageComp1         Usage = "COMP-1"
	UsageComp2         Usage = "COMP-2"
	UsageComp3         Usage = "COMP-3"
	UsageComp4         Usage = "COMP-4"
	UsageComp5         Usage = "COMP-5"
	UsagePackedDecimal Usage = "PACKED-DECIMAL"
	UsageIndex         Usage = "INDEX"
	UsagePointer       Usage = "POINTER"
	UsageNational      Usage = "NATIONAL"
)

// DataItem is one data description entry. Children are owned; Parent and
// Redefines are name references resolved by the validator.
type DataItem struct {
	Level         int            `json:"level"`
	Name          string         `json:"name"`
	Filler        bool           `json:"filler,omitempty"`
	Picture       *PictureClause `json:"picture,omitempty"`
	Usage         Usage          `json:"usage,omitempty"`
	Value         string         `json:"value,omitempty"`
	Redefines     string         `json:"redefines,omitempty"`
	Renames       string         `json:"renames,omitempty"`
	RenamesThru   string         `json:"renames_thru,omitempty"`
	Occurs        *OccursClause  `json:"occurs,omitempty"`
	Synchronized  bool           `json:"synchronized,omitempty"`
	Justified     bool           `json:"justified,omitempty"`
	BlankWhenZero bool           `json:"blank_when_zero,omitempty"`
	Sign          string         `json:"sign,omitempty"`
	External      bool           `json:"external,omitempty"`
	Global        bool           `json:"global,omitempty"`
	Parent        string         `json:"parent,omitempty"`
	Children      []*DataItem    `json:"children,omitempty"`
	Line          int            `json:"line"`
	Column        int            `json:"column"`
}

// OccursClause describes a table
type OccursClause struct {
	Min         int         `json:"min"`
	Max         int         `json:"max"`
	DependingOn string      `json:"depending_on,omitempty"`
	Keys        []OccursKey `json:"keys,omitempty"`
	IndexedBy   []string    `json:"indexed_by,omitempty"`
}

// OccursKey is one ASCENDING or DESCENDING KEY of a table
type OccursKey struct {
	Name      string `json:"name"`
	Ascending bool   `json:"ascending"`
}

// IsGroup reports whether the item has subordinate entries other than
// condition names.
func (d *DataItem) IsGroup() bool {
	for _, c := range d.Children {
		if c.Level != LevelCondition && c.Level != LevelRenames {
			return true
		}
	}
	return false
}

// Class returns the character class of the item. Group items report
// ClassGroup regardless of any PICTURE.
func (d *DataItem) Class() CharClass {
	if d.IsGroup() {
		return ClassGroup
	}
	if d.Picture != nil {
		return d.Picture.Class
	}
	switch d.Usage {
	case UsageComp1, UsageComp2, UsageIndex, UsagePointer:
		return ClassNumeric
	}
	return ""
}

// Location returns the position of the entry's level number
func (d *DataItem) Location() *Location {
	return &Location{Line: d.Line, Column: d.Column}
}

// CharClass is the category implied by a PICTURE string
type CharClass string

const (
	ClassNumeric      CharClass = "numeric"
	ClassAlphanumeric CharClass = "alphanumeric"
	ClassAlphabetic   CharClass = "alphabetic"
	ClassGroup        CharClass = "group"
)

// PictureClause is the analyzed PICTURE string
type PictureClause struct {
	String   string    `json:"string"`
	Class    CharClass `json:"class"`
	Length   int       `json:"length"`
	Decimals int       `json:"decimals"`
	Signed   bool      `json:"signed,omitempty"`
	Edited   bool      `json:"edited,omitempty"`
}
