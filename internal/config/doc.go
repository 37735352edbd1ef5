// Package config loads application settings.
//
// Settings are layered: Default, then an optional YAML (.yaml/.yml) or TOML
// (.toml) file, then COBOLCONTEXT_* environment variables:
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	p := parser.New(cfg.ParserConfig())
package config
