package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cobolcontext-mcp/internal/parser"
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

// seedSource creates a project with one source and returns both
func seedSource(t *testing.T, s *SQLiteStorage, path string) (*Project, *Source) {
	t.Helper()
	ctx := context.Background()
	project, err := s.GetProject(ctx, "/test/cobol")
	if err == ErrNotFound {
		project = &Project{RootPath: "/test/cobol", IndexVersion: "1.0.0"}
		require.NoError(t, s.CreateProject(ctx, project))
	} else {
		require.NoError(t, err)
	}
	source := &Source{
		ProjectID:   project.ID,
		Path:        path,
		ContentHash: sha256.Sum256([]byte(path)),
		ModTime:     time.Now(),
		SizeBytes:   120,
	}
	require.NoError(t, s.UpsertSource(ctx, source))
	return project, source
}

func parsedProgram(t *testing.T) *types.ParseResult {
	t.Helper()
	lines := []string{
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. STORED.",
		"DATA DIVISION.",
		"WORKING-STORAGE SECTION.",
		"01 WS-COUNT PIC 9(3) VALUE 0.",
		"PROCEDURE DIVISION.",
		"MAIN.",
		"    IF WS-COUNT > 0 OR WS-COUNT = 1",
		`        DISPLAY "POSITIVE"`,
		"    END-IF",
		"    STOP RUN.",
	}
	for i, l := range lines {
		lines[i] = "       " + l
	}
	result, err := parser.New(parser.DefaultConfig()).Parse(strings.Join(lines, "\n"))
	require.NoError(t, err)
	return result
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
}

func TestNewSQLiteStorage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	storage, err := NewSQLiteStorage(path)
	require.NoError(t, err)

	ctx := context.Background()
	project := &Project{RootPath: "/persisted", IndexVersion: "1.0.0"}
	require.NoError(t, storage.CreateProject(ctx, project))
	require.NoError(t, storage.Close())

	// Reopening must not re-run migrations or lose data
	storage, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer storage.Close()

	got, err := storage.GetProject(ctx, "/persisted")
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)
}

func TestCreateProject(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	project := &Project{RootPath: "/test/path", IndexVersion: "1.0.0"}
	require.NoError(t, storage.CreateProject(ctx, project))
	assert.Greater(t, project.ID, int64(0))

	err := storage.CreateProject(ctx, &Project{RootPath: "/test/path", IndexVersion: "1.0.0"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetProject_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	_, err := storage.GetProject(context.Background(), "/nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProject(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	project := &Project{RootPath: "/test/path", IndexVersion: "1.0.0"}
	require.NoError(t, storage.CreateProject(ctx, project))

	project.TotalSources = 4
	project.TotalPrograms = 3
	project.LastIndexedAt = time.Now()
	require.NoError(t, storage.UpdateProject(ctx, project))

	got, err := storage.GetProject(ctx, "/test/path")
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalSources)
	assert.Equal(t, 3, got.TotalPrograms)
	assert.False(t, got.LastIndexedAt.IsZero())
}

func TestUpsertSource(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project, source := seedSource(t, storage, "src/A.cbl")
	firstID := source.ID

	// Same (project, path) updates in place
	msg := "1:8: unexpected token"
	again := &Source{
		ProjectID:   project.ID,
		Path:        "src/A.cbl",
		ContentHash: sha256.Sum256([]byte("changed")),
		ModTime:     time.Now(),
		SizeBytes:   99,
		ParseError:  &msg,
	}
	require.NoError(t, storage.UpsertSource(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err := storage.GetSource(ctx, project.ID, "src/A.cbl")
	require.NoError(t, err)
	assert.Equal(t, again.ContentHash, got.ContentHash)
	assert.Equal(t, int64(99), got.SizeBytes)
	require.NotNil(t, got.ParseError)
	assert.Equal(t, msg, *got.ParseError)

	byID, err := storage.GetSourceByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "src/A.cbl", byID.Path)
}

func TestListAndDeleteSources(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project, b := seedSource(t, storage, "B.cbl")
	_, _ = seedSource(t, storage, "A.cbl")

	sources, err := storage.ListSources(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "A.cbl", sources[0].Path)
	assert.Equal(t, "B.cbl", sources[1].Path)

	require.NoError(t, storage.DeleteSource(ctx, b.ID))
	_, err = storage.GetSourceByID(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreProgram(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	_, source := seedSource(t, storage, "STORED.cbl")
	result := parsedProgram(t)

	diags := append(result.Diagnostics, types.Diagnostic{
		Severity: types.SeverityWarning,
		Code:     types.CodeComplexity,
		Message:  "paragraph MAIN has complexity 12",
		Location: &types.Location{Line: 7, Column: 8},
	})

	artifactID, err := storage.StoreProgram(ctx, source.ID, result.Program, diags)
	require.NoError(t, err)
	_, err = uuid.Parse(artifactID)
	require.NoError(t, err)

	stored, err := storage.FetchProgram(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, artifactID, stored.ArtifactID)
	assert.Equal(t, "STORED", stored.ProgramID)
	assert.Equal(t, source.ID, stored.SourceID)

	prog := stored.Program
	assert.Equal(t, "STORED", prog.ProgramID)
	require.NotNil(t, prog.Procedure)
	require.Len(t, prog.Procedure.Sections, 1)
	para := prog.Procedure.Sections[0].Paragraphs[0]
	assert.Equal(t, "MAIN", para.Name)
	require.Len(t, para.Statements, 2)
	assert.Equal(t, types.StmtIf, para.Statements[0].Kind)
	assert.Equal(t, 2, para.Statements[0].Condition.Count())
	assert.Equal(t, []string{`"POSITIVE"`}, para.Statements[0].Nested[0].Operands)

	require.NotNil(t, prog.Data)
	assert.Equal(t, "WS-COUNT", prog.Data.Sections[0].Items[0].Name)

	require.Len(t, stored.Diagnostics, len(diags))
	last := stored.Diagnostics[len(diags)-1]
	assert.Equal(t, types.CodeComplexity, last.Code)
	assert.Equal(t, 7, last.Location.Line)
}

func TestStoreProgram_Replaces(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	_, source := seedSource(t, storage, "STORED.cbl")
	result := parsedProgram(t)

	first, err := storage.StoreProgram(ctx, source.ID, result.Program, nil)
	require.NoError(t, err)
	second, err := storage.StoreProgram(ctx, source.ID, result.Program, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	stored, err := storage.FetchProgram(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, second, stored.ArtifactID)
	assert.Empty(t, stored.Diagnostics)
}

func TestStoreProgram_Errors(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	_, source := seedSource(t, storage, "X.cbl")

	_, err := storage.StoreProgram(ctx, source.ID, nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidSource)

	// Foreign key on source_id
	_, err = storage.StoreProgram(ctx, source.ID+100, parsedProgram(t).Program, nil)
	assert.Error(t, err)
}

func TestFetchProgram_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	_, source := seedSource(t, storage, "EMPTY.cbl")

	_, err := storage.FetchProgram(context.Background(), source.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSource_Cascades(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	_, source := seedSource(t, storage, "STORED.cbl")

	_, err := storage.StoreProgram(ctx, source.ID, parsedProgram(t).Program, nil)
	require.NoError(t, err)
	require.NoError(t, storage.StoreAnalysis(ctx, source.ID, "metrics", json.RawMessage(`{"statements":2}`)))

	require.NoError(t, storage.DeleteSource(ctx, source.ID))

	_, err = storage.FetchProgram(ctx, source.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	records, err := storage.FetchAnalysis(ctx, source.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAnalysis(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	_, source := seedSource(t, storage, "A.cbl")

	require.NoError(t, storage.StoreAnalysis(ctx, source.ID, "metrics", json.RawMessage(`{"v":1}`)))
	require.NoError(t, storage.StoreAnalysis(ctx, source.ID, "complexity", json.RawMessage(`{"v":2}`)))
	// Same engine replaces
	require.NoError(t, storage.StoreAnalysis(ctx, source.ID, "metrics", json.RawMessage(`{"v":3}`)))

	records, err := storage.FetchAnalysis(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "complexity", records[0].Engine)
	assert.Equal(t, "metrics", records[1].Engine)
	assert.JSONEq(t, `{"v":3}`, string(records[1].Result))

	require.NoError(t, storage.DeleteAnalysis(ctx, source.ID))
	records, err = storage.FetchAnalysis(ctx, source.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project, good := seedSource(t, storage, "GOOD.cbl")

	msg := "missing IDENTIFICATION DIVISION"
	bad := &Source{ProjectID: project.ID, Path: "BAD.cbl", ParseError: &msg}
	require.NoError(t, storage.UpsertSource(ctx, bad))

	diags := []types.Diagnostic{
		{Severity: types.SeverityInfo, Code: types.CodeErrorHandling, Message: "a"},
		{Severity: types.SeverityWarning, Code: types.CodeComplexity, Message: "b"},
	}
	_, err := storage.StoreProgram(ctx, good.ID, parsedProgram(t).Program, diags)
	require.NoError(t, err)
	require.NoError(t, storage.StoreAnalysis(ctx, good.ID, "metrics", json.RawMessage(`{}`)))

	status, err := storage.GetStatus(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.SourcesCount)
	assert.Equal(t, 1, status.FailedCount)
	assert.Equal(t, 1, status.ProgramsCount)
	assert.Equal(t, 2, status.DiagnosticsCount)
	assert.Equal(t, 1, status.AnalysesCount)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, BuildMode, status.BuildMode)

	_, err = storage.GetStatus(ctx, project.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBeginTx_CommitRollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project, _ := seedSource(t, storage, "SEED.cbl")

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	committed := &Source{ProjectID: project.ID, Path: "COMMIT.cbl"}
	require.NoError(t, tx.UpsertSource(ctx, committed))
	_, err = tx.StoreProgram(ctx, committed.ID, parsedProgram(t).Program, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	_, err = storage.FetchProgram(ctx, committed.ID)
	assert.NoError(t, err)

	tx2, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	rolledBack := &Source{ProjectID: project.ID, Path: "ROLLBACK.cbl"}
	require.NoError(t, tx2.UpsertSource(ctx, rolledBack))
	require.NoError(t, tx2.Rollback())

	_, err = storage.GetSource(ctx, project.ID, "ROLLBACK.cbl")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tx2.BeginTx(ctx)
	assert.Error(t, err)
}

func TestMigrations(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	current, err := currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())

	// Applying again is a no-op
	require.NoError(t, ApplyMigrations(ctx, storage.db))

	require.NoError(t, RollbackMigration(ctx, storage.db))
	current, err = currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", current.String())

	require.NoError(t, RollbackMigration(ctx, storage.db))
	current, err = currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", current.String())

	assert.Error(t, RollbackMigration(ctx, storage.db))

	// Re-apply from scratch
	require.NoError(t, ApplyMigrations(ctx, storage.db))
	project := &Project{RootPath: "/again", IndexVersion: "1.0.0"}
	assert.NoError(t, storage.CreateProject(ctx, project))
}
