package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dshills/cobolcontext-mcp/internal/analysis"
	"github.com/dshills/cobolcontext-mcp/internal/lexer"
	"github.com/dshills/cobolcontext-mcp/internal/parser"
	"github.com/dshills/cobolcontext-mcp/internal/storage"
	"github.com/dshills/cobolcontext-mcp/internal/validator"
)

// Environment variables read by ApplyEnv
const (
	EnvDBPath      = "COBOLCONTEXT_DB_PATH"
	EnvCodeAreaEnd = "COBOLCONTEXT_CODE_AREA_END"
	EnvWorkers     = "COBOLCONTEXT_WORKERS"
	EnvLogLevel    = "COBOLCONTEXT_LOG_LEVEL"
)

// DefaultDBPath is the default location for the database
const DefaultDBPath = "~/.cobolcontext/index.db"

// Config is the complete application configuration
type Config struct {
	DBPath    string          `yaml:"db_path" toml:"db_path"`
	LogLevel  string          `yaml:"log_level" toml:"log_level"`
	CacheSize int             `yaml:"cache_size" toml:"cache_size"`
	Parser    ParserConfig    `yaml:"parser" toml:"parser"`
	Validator ValidatorConfig `yaml:"validator" toml:"validator"`
	Indexer   IndexerConfig   `yaml:"indexer" toml:"indexer"`
	Analysis  AnalysisConfig  `yaml:"analysis" toml:"analysis"`
}

// ParserConfig controls source scanning and parsing
type ParserConfig struct {
	CodeAreaEnd     int  `yaml:"code_area_end" toml:"code_area_end"`
	DebugLines      bool `yaml:"debug_lines" toml:"debug_lines"`
	MaxNestingDepth int  `yaml:"max_nesting_depth" toml:"max_nesting_depth"`
}

// ValidatorConfig holds procedure size thresholds
type ValidatorConfig struct {
	MaxParagraphStatements int `yaml:"max_paragraph_statements" toml:"max_paragraph_statements"`
	MaxSectionParagraphs   int `yaml:"max_section_paragraphs" toml:"max_section_paragraphs"`
}

// IndexerConfig controls directory indexing
type IndexerConfig struct {
	Workers    int      `yaml:"workers" toml:"workers"`
	BatchSize  int      `yaml:"batch_size" toml:"batch_size"`
	Extensions []string `yaml:"extensions" toml:"extensions"`
}

// AnalysisConfig selects and tunes analysis engines
type AnalysisConfig struct {
	Engines             []string `yaml:"engines" toml:"engines"`
	ComplexityThreshold int      `yaml:"complexity_threshold" toml:"complexity_threshold"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DBPath:    DefaultDBPath,
		LogLevel:  "info",
		CacheSize: storage.DefaultCacheSize,
		Parser: ParserConfig{
			CodeAreaEnd:     lexer.DefaultCodeAreaEnd,
			MaxNestingDepth: parser.DefaultMaxNestingDepth,
		},
		Validator: ValidatorConfig{
			MaxParagraphStatements: validator.DefaultMaxParagraphStatements,
			MaxSectionParagraphs:   validator.DefaultMaxSectionParagraphs,
		},
		Indexer: IndexerConfig{
			BatchSize:  20,
			Extensions: []string{".cbl", ".cob", ".cobol"},
		},
		Analysis: AnalysisConfig{
			Engines:             analysis.EngineNames(),
			ComplexityThreshold: analysis.DefaultComplexityThreshold,
		},
	}
}

// Load reads a configuration file over the defaults. The format follows
// the extension: .yaml/.yml or .toml. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", ext)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from COBOLCONTEXT_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvCodeAreaEnd); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCodeAreaEnd, v, err)
		}
		c.Parser.CodeAreaEnd = n
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		c.Indexer.Workers = n
	}
	return nil
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Parser.CodeAreaEnd != 0 && c.Parser.CodeAreaEnd < 8 {
		return fmt.Errorf("code_area_end must be 0 or at least 8, got %d", c.Parser.CodeAreaEnd)
	}
	if c.Indexer.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Indexer.Workers)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	for _, ext := range c.Indexer.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if _, err := analysis.Select(c.AnalysisConfig(), c.Analysis.Engines...); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// ResolvedDBPath expands a leading ~ in DBPath
func (c *Config) ResolvedDBPath() (string, error) {
	if c.DBPath == ":memory:" || !strings.HasPrefix(c.DBPath, "~") {
		return c.DBPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(c.DBPath, "~")), nil
}

// ParserConfig builds the parser configuration, validator included
func (c *Config) ParserConfig() parser.Config {
	return parser.Config{
		Lexer: lexer.Config{
			CodeAreaEnd: c.Parser.CodeAreaEnd,
			DebugLines:  c.Parser.DebugLines,
		},
		Validator: validator.Config{
			MaxParagraphStatements: c.Validator.MaxParagraphStatements,
			MaxSectionParagraphs:   c.Validator.MaxSectionParagraphs,
		},
		MaxNestingDepth: c.Parser.MaxNestingDepth,
	}
}

// AnalysisConfig builds the analysis engine configuration
func (c *Config) AnalysisConfig() analysis.Config {
	return analysis.Config{ComplexityThreshold: c.Analysis.ComplexityThreshold}
}
