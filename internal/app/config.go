package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectPath string // template directory to customize
	ConfigPath  string // parameter file (.yaml, .json or .hcl)
	OutputPath  string // destination directory; empty means in place

	Includes []string
	Excludes []string

	DryRun        bool
	Yes           bool
	NoResolveRefs bool
	MaxRefDepth   int
	Backups       bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectPath == "" {
		return nil, errors.New("ProjectPath is a required configuration field and cannot be empty")
	}
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
