package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/vk/customizer/internal/ctxlog"
	"github.com/vk/customizer/internal/extrepl"
	"github.com/vk/customizer/internal/marker"
	"github.com/vk/customizer/internal/params"
	"github.com/vk/customizer/internal/resolver"
	"github.com/vk/customizer/internal/scanner"
	"github.com/vk/customizer/internal/writer"
)

// App encapsulates the customization pipeline and its dependencies.
type App struct {
	outW   io.Writer
	inR    io.Reader
	fsys   afero.Fs
	logger *slog.Logger
	config *Config
}

// NewApp is the constructor for the main application.
func NewApp(outW io.Writer, inR io.Reader, fsys afero.Fs, cfg *Config) *App {
	return &App{
		outW:   outW,
		inR:    inR,
		fsys:   fsys,
		logger: ctxlog.New(outW, cfg.LogFormat, cfg.LogLevel),
		config: cfg,
	}
}

// Run executes the whole pipeline: load parameters, resolve self-references,
// scan the project, render markers, plan changes, then apply them (or print
// the plan on a dry run), finishing with external replacements.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger

	tree, err := params.Load(ctx, a.fsys, a.config.ConfigPath)
	if err != nil {
		return err
	}

	res := resolver.New(resolver.Options{
		MaxDepth: a.config.MaxRefDepth,
		Disabled: a.config.NoResolveRefs,
	})
	resolved, trace, err := res.Resolve(ctx, tree)
	if err != nil {
		return fmt.Errorf("resolving configuration references: %w", err)
	}
	logger.Debug("configuration resolved",
		"nodes", len(trace.Edges), "passes", trace.Passes, "order", trace.Order)

	root := a.config.ProjectPath
	if a.config.OutputPath != "" {
		if err := copyTree(a.fsys, a.config.ProjectPath, a.config.OutputPath); err != nil {
			return fmt.Errorf("copying project to output directory: %w", err)
		}
		root = a.config.OutputPath
		logger.Info("project copied", "from", a.config.ProjectPath, "to", root)
	}

	files, err := scanner.New(a.fsys, root, a.config.Includes, a.config.Excludes).Scan(ctx)
	if err != nil {
		return err
	}

	parser := marker.NewParser(a.fsys)
	w := writer.New(a.fsys, a.config.Backups)

	var changes []writer.Change
	markerCount := 0
	failedMarkers := 0
	for _, rel := range files {
		path := filepath.Join(root, rel)
		markers, err := parser.ParseFile(ctx, path)
		if err != nil {
			return err
		}
		if len(markers) == 0 {
			continue
		}
		markerCount += len(markers)

		var rendered []writer.Rendered
		for _, m := range markers {
			value, err := res.EvalExpression(m.Expr, resolved)
			if err != nil {
				// A broken marker shouldn't sink the rest of the project;
				// report it and move on.
				logger.Warn("marker failed to render",
					"file", rel, "line", m.Line+1, "expr", m.Expr, "error", err)
				failedMarkers++
				continue
			}
			rendered = append(rendered, writer.Rendered{Marker: m, Value: value})
		}

		fileChanges, err := w.Plan(path, rendered)
		if err != nil {
			return err
		}
		changes = append(changes, fileChanges...)
	}

	logger.Info("processing summary",
		"files", len(files), "markers", markerCount,
		"failed_markers", failedMarkers, "changes", len(changes))

	replacements, err := extrepl.FromTree(resolved)
	if err != nil {
		return err
	}

	if a.config.DryRun {
		a.printPlan(changes)
		if !replacements.Empty() {
			// Validate the rules render cleanly even though nothing is written.
			if err := extrepl.NewApplier(a.fsys, res).Apply(ctx, replacements, resolved, root, true); err != nil {
				return err
			}
		}
		return nil
	}

	if len(changes) > 0 {
		if !a.config.Yes {
			ok, err := a.confirm(len(changes))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.outW, "Aborted; no files were modified.")
				return nil
			}
		}
		if err := w.Apply(ctx, changes); err != nil {
			return err
		}
		logger.Info("changes applied", "count", len(changes))
	}

	if !replacements.Empty() {
		if err := extrepl.NewApplier(a.fsys, res).Apply(ctx, replacements, resolved, root, false); err != nil {
			return err
		}
		logger.Info("external replacements applied",
			"json_files", len(replacements.JSON), "markdown_files", len(replacements.Markdown))
	}
	return nil
}

func (a *App) printPlan(changes []writer.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(a.outW, "No changes to apply.")
		return
	}
	fmt.Fprintf(a.outW, "Planned changes (%d):\n", len(changes))
	for _, c := range changes {
		fmt.Fprintf(a.outW, "  %s:%d\n", c.File, c.Line+1)
		fmt.Fprintf(a.outW, "    - %s\n", strings.TrimSpace(c.Old))
		fmt.Fprintf(a.outW, "    + %s\n", strings.TrimSpace(c.New))
	}
}

func (a *App) confirm(n int) (bool, error) {
	fmt.Fprintf(a.outW, "Apply %d change(s)? [y/N] ", n)
	reader := bufio.NewReader(a.inR)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// copyTree mirrors the src directory under dst.
func copyTree(fsys afero.Fs, src, dst string) error {
	return afero.Walk(fsys, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fsys.MkdirAll(target, info.Mode().Perm()|0o200)
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		if err := fsys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return afero.WriteFile(fsys, target, data, info.Mode().Perm())
	})
}
