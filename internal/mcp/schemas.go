package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexSourcesTool returns the tool definition for index_sources
func indexSourcesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_sources",
		Description: "Parse and store every COBOL source under a directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a directory containing .cbl/.cob sources",
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-parse all sources ignoring content hashes",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// parseSourceTool returns the tool definition for parse_source
func parseSourceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "parse_source",
		Description: "Parse one fixed-format COBOL compilation unit and report diagnostics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "COBOL source text; code starts in column 8",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a source file, used when source is omitted",
				},
				"include_ast": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include the full program tree in the response",
					"default":     false,
				},
			},
		},
	}
}

// getProgramTool returns the tool definition for get_program
func getProgramTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_program",
		Description: "Fetch the stored program tree and diagnostics of an indexed source",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the indexed directory",
				},
				"file": map[string]interface{}{
					"type":        "string",
					"description": "Source path, relative to the project or absolute",
				},
				"include_ast": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, return only the artifact id and diagnostics",
					"default":     true,
				},
			},
			Required: []string{"project", "file"},
		},
	}
}

// analyzeProgramTool returns the tool definition for analyze_program
func analyzeProgramTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_program",
		Description: "Run analysis engines (metrics, complexity, dependencies) over a program",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "COBOL source text to parse and analyze",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a source file to parse and analyze",
				},
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of an indexed directory, with file",
				},
				"file": map[string]interface{}{
					"type":        "string",
					"description": "Indexed source path, relative to project",
				},
				"engines": map[string]interface{}{
					"type":        "array",
					"description": "Engines to run (default: all configured)",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"complexity", "dependencies", "metrics"},
					},
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics for a COBOL source tree",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the indexed directory",
				},
			},
			Required: []string{"path"},
		},
	}
}
