package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
// Both drivers surface the SQLite message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Project operations

func (s *SQLiteStorage) createProjectWithQuerier(ctx context.Context, q querier, project *Project) error {
	query := `
		INSERT INTO projects (root_path, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query, project.RootPath, project.IndexVersion, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("project %s: %w", project.RootPath, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProject(ctx context.Context, project *Project) error {
	return s.createProjectWithQuerier(ctx, s.querier(), project)
}

const projectColumns = `id, root_path, total_sources, total_programs, index_version,
	last_indexed_at, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*Project, error) {
	var project Project
	var lastIndexedAt sql.NullTime
	err := row.Scan(
		&project.ID, &project.RootPath, &project.TotalSources, &project.TotalPrograms,
		&project.IndexVersion, &lastIndexedAt, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		project.LastIndexedAt = lastIndexedAt.Time
	}
	return &project, nil
}

func (s *SQLiteStorage) getProjectWithQuerier(ctx context.Context, q querier, rootPath string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE root_path = ?`
	return scanProject(q.QueryRowContext(ctx, query, rootPath))
}

func (s *SQLiteStorage) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	return s.getProjectWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) getProjectByIDWithQuerier(ctx context.Context, q querier, projectID int64) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	return scanProject(q.QueryRowContext(ctx, query, projectID))
}

func (s *SQLiteStorage) updateProjectWithQuerier(ctx context.Context, q querier, project *Project) error {
	query := `
		UPDATE projects
		SET total_sources = ?, total_programs = ?, index_version = ?,
		    last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		project.TotalSources, project.TotalPrograms, project.IndexVersion,
		project.LastIndexedAt, now, project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProject(ctx context.Context, project *Project) error {
	return s.updateProjectWithQuerier(ctx, s.querier(), project)
}

// Source operations

func (s *SQLiteStorage) upsertSourceWithQuerier(ctx context.Context, q querier, source *Source) error {
	query := `
		INSERT INTO sources (project_id, path, content_hash, mod_time, size_bytes, parse_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, path) DO UPDATE SET
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			parse_error = excluded.parse_error,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		source.ProjectID, source.Path, source.ContentHash[:],
		source.ModTime, source.SizeBytes, source.ParseError, now, now,
	).Scan(&source.ID, &source.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	source.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertSource(ctx context.Context, source *Source) error {
	return s.upsertSourceWithQuerier(ctx, s.querier(), source)
}

const sourceColumns = `id, project_id, path, content_hash, mod_time, size_bytes,
	parse_error, created_at, updated_at`

func scanSource(row interface{ Scan(...interface{}) error }) (*Source, error) {
	var source Source
	var hash []byte
	var parseError sql.NullString
	err := row.Scan(
		&source.ID, &source.ProjectID, &source.Path, &hash, &source.ModTime,
		&source.SizeBytes, &parseError, &source.CreatedAt, &source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(source.ContentHash[:], hash)
	if parseError.Valid {
		source.ParseError = &parseError.String
	}
	return &source, nil
}

func (s *SQLiteStorage) getSourceWithQuerier(ctx context.Context, q querier, projectID int64, path string) (*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE project_id = ? AND path = ?`
	return scanSource(q.QueryRowContext(ctx, query, projectID, path))
}

func (s *SQLiteStorage) GetSource(ctx context.Context, projectID int64, path string) (*Source, error) {
	return s.getSourceWithQuerier(ctx, s.querier(), projectID, path)
}

func (s *SQLiteStorage) getSourceByIDWithQuerier(ctx context.Context, q querier, sourceID int64) (*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = ?`
	return scanSource(q.QueryRowContext(ctx, query, sourceID))
}

func (s *SQLiteStorage) GetSourceByID(ctx context.Context, sourceID int64) (*Source, error) {
	return s.getSourceByIDWithQuerier(ctx, s.querier(), sourceID)
}

func (s *SQLiteStorage) listSourcesWithQuerier(ctx context.Context, q querier, projectID int64) ([]*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE project_id = ? ORDER BY path`
	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (s *SQLiteStorage) ListSources(ctx context.Context, projectID int64) ([]*Source, error) {
	return s.listSourcesWithQuerier(ctx, s.querier(), projectID)
}

func (s *SQLiteStorage) deleteSourceWithQuerier(ctx context.Context, q querier, sourceID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, sourceID)
	return err
}

func (s *SQLiteStorage) DeleteSource(ctx context.Context, sourceID int64) error {
	return s.deleteSourceWithQuerier(ctx, s.querier(), sourceID)
}

// Program operations

// storeProgramWithQuerier replaces the stored artifact for a source. Every
// store gets a fresh artifact id.
func (s *SQLiteStorage) storeProgramWithQuerier(ctx context.Context, q querier, sourceID int64, prog *types.Program, diags []types.Diagnostic) (string, error) {
	if prog == nil {
		return "", fmt.Errorf("failed to store program: %w", types.ErrInvalidSource)
	}
	astJSON, err := json.Marshal(prog)
	if err != nil {
		return "", fmt.Errorf("failed to encode program: %w", err)
	}
	if diags == nil {
		diags = []types.Diagnostic{}
	}
	diagJSON, err := json.Marshal(diags)
	if err != nil {
		return "", fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	artifactID := uuid.NewString()
	query := `
		INSERT INTO programs (source_id, artifact_id, program_id, ast_json, diagnostics_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			artifact_id = excluded.artifact_id,
			program_id = excluded.program_id,
			ast_json = excluded.ast_json,
			diagnostics_json = excluded.diagnostics_json,
			created_at = excluded.created_at
	`
	_, err = q.ExecContext(ctx, query, sourceID, artifactID, prog.ProgramID, string(astJSON), string(diagJSON), time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to store program: %w", err)
	}
	return artifactID, nil
}

func (s *SQLiteStorage) StoreProgram(ctx context.Context, sourceID int64, prog *types.Program, diags []types.Diagnostic) (string, error) {
	return s.storeProgramWithQuerier(ctx, s.querier(), sourceID, prog, diags)
}

func (s *SQLiteStorage) fetchProgramWithQuerier(ctx context.Context, q querier, sourceID int64) (*StoredProgram, error) {
	query := `
		SELECT artifact_id, source_id, program_id, ast_json, diagnostics_json, created_at
		FROM programs
		WHERE source_id = ?
	`
	var stored StoredProgram
	var astJSON, diagJSON []byte
	err := q.QueryRowContext(ctx, query, sourceID).Scan(
		&stored.ArtifactID, &stored.SourceID, &stored.ProgramID,
		&astJSON, &diagJSON, &stored.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	stored.Program = &types.Program{}
	if err := json.Unmarshal(astJSON, stored.Program); err != nil {
		return nil, fmt.Errorf("failed to decode program %s: %w", stored.ArtifactID, err)
	}
	if err := json.Unmarshal(diagJSON, &stored.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to decode diagnostics %s: %w", stored.ArtifactID, err)
	}
	return &stored, nil
}

func (s *SQLiteStorage) FetchProgram(ctx context.Context, sourceID int64) (*StoredProgram, error) {
	return s.fetchProgramWithQuerier(ctx, s.querier(), sourceID)
}

func (s *SQLiteStorage) deleteProgramWithQuerier(ctx context.Context, q querier, sourceID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM programs WHERE source_id = ?`, sourceID)
	return err
}

func (s *SQLiteStorage) DeleteProgram(ctx context.Context, sourceID int64) error {
	return s.deleteProgramWithQuerier(ctx, s.querier(), sourceID)
}

// Analysis operations

func (s *SQLiteStorage) storeAnalysisWithQuerier(ctx context.Context, q querier, sourceID int64, engine string, result json.RawMessage) error {
	query := `
		INSERT INTO analysis_results (source_id, engine, result_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id, engine) DO UPDATE SET
			result_json = excluded.result_json,
			created_at = excluded.created_at
	`
	_, err := q.ExecContext(ctx, query, sourceID, engine, string(result), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store %s analysis: %w", engine, err)
	}
	return nil
}

func (s *SQLiteStorage) StoreAnalysis(ctx context.Context, sourceID int64, engine string, result json.RawMessage) error {
	return s.storeAnalysisWithQuerier(ctx, s.querier(), sourceID, engine, result)
}

func (s *SQLiteStorage) fetchAnalysisWithQuerier(ctx context.Context, q querier, sourceID int64) ([]*AnalysisRecord, error) {
	query := `
		SELECT source_id, engine, result_json, created_at
		FROM analysis_results
		WHERE source_id = ?
		ORDER BY engine
	`
	rows, err := q.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*AnalysisRecord, 0)
	for rows.Next() {
		var rec AnalysisRecord
		var raw []byte
		if err := rows.Scan(&rec.SourceID, &rec.Engine, &raw, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Result = json.RawMessage(raw)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) FetchAnalysis(ctx context.Context, sourceID int64) ([]*AnalysisRecord, error) {
	return s.fetchAnalysisWithQuerier(ctx, s.querier(), sourceID)
}

func (s *SQLiteStorage) deleteAnalysisWithQuerier(ctx context.Context, q querier, sourceID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM analysis_results WHERE source_id = ?`, sourceID)
	return err
}

func (s *SQLiteStorage) DeleteAnalysis(ctx context.Context, sourceID int64) error {
	return s.deleteAnalysisWithQuerier(ctx, s.querier(), sourceID)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, projectID int64) (*ProjectStatus, error) {
	project, err := s.getProjectByIDWithQuerier(ctx, q, projectID)
	if err != nil {
		return nil, err
	}

	status := &ProjectStatus{
		Project:       project,
		LastIndexedAt: project.LastIndexedAt,
		BuildMode:     BuildMode,
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(parse_error)
		FROM sources
		WHERE project_id = ?
	`, projectID).Scan(&status.SourcesCount, &status.FailedCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(json_array_length(p.diagnostics_json)), 0)
		FROM programs p
		JOIN sources s ON p.source_id = s.id
		WHERE s.project_id = ?
	`, projectID).Scan(&status.ProgramsCount, &status.DiagnosticsCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM analysis_results a
		JOIN sources s ON a.source_id = s.id
		WHERE s.project_id = ?
	`, projectID).Scan(&status.AnalysesCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC, rowid DESC LIMIT 1").Scan(&status.SchemaVersion)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), projectID)
}

// Transaction implementations delegate to the storage helpers with the
// transaction as querier.

func (t *sqliteTx) CreateProject(ctx context.Context, project *Project) error {
	return t.storage.createProjectWithQuerier(ctx, t.querier(), project)
}

func (t *sqliteTx) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	return t.storage.getProjectWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) UpdateProject(ctx context.Context, project *Project) error {
	return t.storage.updateProjectWithQuerier(ctx, t.querier(), project)
}

func (t *sqliteTx) UpsertSource(ctx context.Context, source *Source) error {
	return t.storage.upsertSourceWithQuerier(ctx, t.querier(), source)
}

func (t *sqliteTx) GetSource(ctx context.Context, projectID int64, path string) (*Source, error) {
	return t.storage.getSourceWithQuerier(ctx, t.querier(), projectID, path)
}

func (t *sqliteTx) GetSourceByID(ctx context.Context, sourceID int64) (*Source, error) {
	return t.storage.getSourceByIDWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) ListSources(ctx context.Context, projectID int64) ([]*Source, error) {
	return t.storage.listSourcesWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) DeleteSource(ctx context.Context, sourceID int64) error {
	return t.storage.deleteSourceWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) StoreProgram(ctx context.Context, sourceID int64, prog *types.Program, diags []types.Diagnostic) (string, error) {
	return t.storage.storeProgramWithQuerier(ctx, t.querier(), sourceID, prog, diags)
}

func (t *sqliteTx) FetchProgram(ctx context.Context, sourceID int64) (*StoredProgram, error) {
	return t.storage.fetchProgramWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) DeleteProgram(ctx context.Context, sourceID int64) error {
	return t.storage.deleteProgramWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) StoreAnalysis(ctx context.Context, sourceID int64, engine string, result json.RawMessage) error {
	return t.storage.storeAnalysisWithQuerier(ctx, t.querier(), sourceID, engine, result)
}

func (t *sqliteTx) FetchAnalysis(ctx context.Context, sourceID int64) ([]*AnalysisRecord, error) {
	return t.storage.fetchAnalysisWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) DeleteAnalysis(ctx context.Context, sourceID int64) error {
	return t.storage.deleteAnalysisWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
