// Package mcp implements the Model Context Protocol (MCP) server for
// COBOL source trees.
//
// The server exposes five tools over stdio:
//   - index_sources: parse and store every source under a directory
//   - parse_source: parse inline text or one file and report diagnostics
//   - get_program: fetch the stored program tree of an indexed source
//   - analyze_program: run metrics, complexity and dependency engines
//   - get_status: report index statistics for a directory
//
// # Tool: parse_source
//
//	Request:
//	{
//	  "name": "parse_source",
//	  "arguments": {
//	    "source": "       IDENTIFICATION DIVISION.\n       PROGRAM-ID. FOO.\n ...",
//	    "include_ast": true
//	  }
//	}
//
//	Response:
//	{
//	  "program_id": "FOO",
//	  "has_errors": false,
//	  "diagnostics": [],
//	  "program": { ... }
//	}
//
// A source that cannot be parsed at all is reported as error -32004 with
// the failing stage, line and column in the error data.
//
// # Tool: get_status
//
//	Response:
//	{
//	  "indexed": true,
//	  "statistics": {
//	    "sources_count": 12,
//	    "programs_count": 11,
//	    "failed_count": 1,
//	    "analyses_count": 33
//	  },
//	  "health": {
//	    "schema_version": "1.1.0",
//	    "build_mode": "purego"
//	  }
//	}
//
// # Error codes
//
//   - -32602: invalid params
//   - -32603: internal error
//   - -32001: directory holds no COBOL sources
//   - -32002: indexing already in progress
//   - -32003: project or source not indexed
//   - -32004: source failed to parse
//
// Logs go to stderr; stdout is reserved for the protocol.
package mcp
