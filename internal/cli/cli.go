package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/customizer/internal/app"
	"github.com/vk/customizer/internal/resolver"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("customizer", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
customizer - customize project templates through comment markers and
self-referencing configuration.

Usage:
  customizer [options] [PROJECT_PATH]

Arguments:
  PROJECT_PATH
    Path to the project template directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	projectFlag := flagSet.String("project", "", "Path to the project template directory.")
	pFlag := flagSet.String("p", "", "Path to the project template directory (shorthand).")
	configFlag := flagSet.String("config", "", "Path to the parameter file (.yaml, .json or .hcl).")
	cFlag := flagSet.String("c", "", "Path to the parameter file (shorthand).")
	outputFlag := flagSet.String("output", "", "Output directory. Default: modify the project in place.")
	oFlag := flagSet.String("o", "", "Output directory (shorthand).")
	includeFlag := flagSet.String("include", "", "Comma-separated file patterns to include (e.g. '*.py,*.js').")
	excludeFlag := flagSet.String("exclude", "", "Comma-separated file patterns to exclude, on top of the defaults.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Preview changes without modifying files.")
	dFlag := flagSet.Bool("d", false, "Preview changes without modifying files (shorthand).")
	yesFlag := flagSet.Bool("yes", false, "Apply changes without the confirmation prompt.")
	yFlag := flagSet.Bool("y", false, "Apply changes without the confirmation prompt (shorthand).")
	noResolveFlag := flagSet.Bool("no-resolve-refs", false, "Disable resolution of self-references in the parameter file.")
	maxDepthFlag := flagSet.Int("max-ref-depth", resolver.DefaultMaxDepth, "Maximum reference chain depth in the parameter file.")
	noBackupFlag := flagSet.Bool("no-backup", false, "Skip file backups before applying changes.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	project := ""
	if *projectFlag != "" {
		project = *projectFlag
	} else if *pFlag != "" {
		project = *pFlag
	} else if flagSet.NArg() > 0 {
		project = flagSet.Arg(0)
	}
	if project == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	config := *configFlag
	if config == "" {
		config = *cFlag
	}
	outputDir := *outputFlag
	if outputDir == "" {
		outputDir = *oFlag
	}
	if config == "" {
		return nil, false, &ExitError{Code: 2, Message: "a parameter file is required: pass -config"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *maxDepthFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invalid max-ref-depth: must be at least 1"}
	}

	cfg, err := app.NewConfig(app.Config{
		ProjectPath:   project,
		ConfigPath:    config,
		OutputPath:    outputDir,
		Includes:      splitPatterns(*includeFlag),
		Excludes:      splitPatterns(*excludeFlag),
		DryRun:        *dryRunFlag || *dFlag,
		Yes:           *yesFlag || *yFlag,
		NoResolveRefs: *noResolveFlag,
		MaxRefDepth:   *maxDepthFlag,
		Backups:       !*noBackupFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, false, nil
}

func splitPatterns(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
