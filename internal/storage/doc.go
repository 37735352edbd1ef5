// Package storage provides SQLite-based persistence for parsed COBOL programs.
//
// The storage layer manages:
//   - Project metadata
//   - Source files and their content hashes
//   - Parsed program trees with their diagnostics
//   - Analysis engine results
//
// # Database Schema
//
// Tables:
//   - projects: Indexed source trees (root path, counts)
//   - sources: Source paths and SHA-256 hashes, keyed by (project, path)
//   - programs: One JSON-encoded program tree per source, with a UUID artifact id
//   - analysis_results: Engine output keyed by (source, engine)
//   - schema_version: Applied migrations, ordered by semantic version
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.cobolcontext/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	source := &storage.Source{
//	    ProjectID:   project.ID,
//	    Path:        "src/PAYROLL.cbl",
//	    ContentHash: sha256.Sum256(content),
//	}
//	if err := db.UpsertSource(ctx, source); err != nil {
//	    return err
//	}
//
//	artifactID, err := db.StoreProgram(ctx, source.ID, result.Program, result.Diagnostics)
//
// # Transactions
//
// Every Storage method is also available on Tx:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertSource(ctx, source)
//	_, _ = tx.StoreProgram(ctx, source.ID, prog, diags)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Incremental Updates
//
// Compare content hashes to detect changes:
//
//	stored, err := db.GetSource(ctx, projectID, relPath)
//	if err == nil && stored.ContentHash == sha256.Sum256(content) {
//	    // Source unchanged, skip re-parsing
//	    return nil
//	}
//
// # Caching
//
// ProgramCache keeps decoded trees in memory, keyed by source id and content
// hash. Fetch reads through to the database on a miss:
//
//	cache := storage.NewProgramCache(256)
//	stored, err := cache.Fetch(ctx, db, source)
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (purego tag, the default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
