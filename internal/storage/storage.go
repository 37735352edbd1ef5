package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// Storage defines the interface for AST persistence
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, rootPath string) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	// Source operations
	UpsertSource(ctx context.Context, source *Source) error
	GetSource(ctx context.Context, projectID int64, path string) (*Source, error)
	GetSourceByID(ctx context.Context, sourceID int64) (*Source, error)
	ListSources(ctx context.Context, projectID int64) ([]*Source, error)
	DeleteSource(ctx context.Context, sourceID int64) error

	// Program operations
	StoreProgram(ctx context.Context, sourceID int64, prog *types.Program, diags []types.Diagnostic) (string, error)
	FetchProgram(ctx context.Context, sourceID int64) (*StoredProgram, error)
	DeleteProgram(ctx context.Context, sourceID int64) error

	// Analysis operations
	StoreAnalysis(ctx context.Context, sourceID int64, engine string, result json.RawMessage) error
	FetchAnalysis(ctx context.Context, sourceID int64) ([]*AnalysisRecord, error)
	DeleteAnalysis(ctx context.Context, sourceID int64) error

	// Status operations
	GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error)

	// Transaction support
	BeginTx(ctx context.Context) (Tx, error)

	// Cleanup
	Close() error
}

// Tx represents a database transaction
type Tx interface {
	Storage
	Commit() error
	Rollback() error
}

// Project represents an indexed source tree
type Project struct {
	ID            int64
	RootPath      string
	TotalSources  int
	TotalPrograms int
	IndexVersion  string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Source represents one COBOL source file within a project
type Source struct {
	ID          int64
	ProjectID   int64
	Path        string // relative to the project root
	ContentHash [32]byte
	ModTime     time.Time
	SizeBytes   int64
	ParseError  *string // fatal parse error, nil when a program was stored
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StoredProgram is a persisted parse artifact
type StoredProgram struct {
	ArtifactID  string
	SourceID    int64
	ProgramID   string
	Program     *types.Program
	Diagnostics []types.Diagnostic
	CreatedAt   time.Time
}

// AnalysisRecord is the stored output of one analysis engine
type AnalysisRecord struct {
	SourceID  int64
	Engine    string
	Result    json.RawMessage
	CreatedAt time.Time
}

// ProjectStatus represents the current state of a project's index
type ProjectStatus struct {
	Project          *Project
	SourcesCount     int
	ProgramsCount    int
	FailedCount      int
	AnalysesCount    int
	DiagnosticsCount int
	LastIndexedAt    time.Time
	IndexSizeMB      float64
	SchemaVersion    string
	BuildMode        string
}
