// Package indexer coordinates the indexing pipeline for COBOL source trees.
//
// The indexer walks a directory, parses every changed source, runs the
// configured analysis engines and stores the results.
//
// # Basic Usage
//
//	engines := analysis.Engines(analysis.Config{})
//	idx := indexer.New(store, parser.New(parser.DefaultConfig()), engines, logger)
//
//	stats, err := idx.IndexProject(ctx, "/path/to/cobol", &indexer.Config{
//	    Workers: 4,
//	})
//
//	fmt.Printf("Indexed %d sources in %v\n", stats.SourcesIndexed, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: find .cbl, .cob and .cobol files, skipping hidden directories
//  2. Incremental decision: compare SHA-256 content hashes, skip unchanged sources
//  3. Parse and analyze: one goroutine per source, bounded by Workers
//  4. Store: persist sources, programs and analysis results in batched transactions
//  5. Cleanup: drop stored sources whose files are gone
//
// A source with a fatal parse error is still stored, with the error message
// and without a program, so a later edit that fixes it is picked up.
//
// Force re-parses every source regardless of its hash:
//
//	stats, err := idx.IndexProject(ctx, root, &indexer.Config{Force: true})
//
// # Concurrency
//
// IndexLock guards against overlapping runs from concurrent tool calls:
//
//	if !lock.TryAcquire() {
//	    return errors.New("indexing already in progress")
//	}
//	defer lock.Release()
package indexer
