// Package writer turns rendered markers into concrete line edits and applies
// them safely: changes are planned first, files are backed up before being
// touched, and a dry run never writes at all.
package writer

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/vk/customizer/internal/ctxlog"
	"github.com/vk/customizer/internal/marker"
)

// Rendered pairs a marker with its rendered value.
type Rendered struct {
	Marker marker.Marker
	Value  string
}

// Change is one planned line rewrite.
type Change struct {
	File   string
	Line   int // zero-based target line
	Old    string
	New    string
	Marker marker.Marker
}

// backup records where a file's pre-modification copy lives and the mode to
// restore it with.
type backup struct {
	path string
	mode fs.FileMode
}

// Writer plans and applies file changes.
type Writer struct {
	fsys      afero.Fs
	backupsOn bool
	backupDir string
	backups   map[string]backup
}

// New returns a writer over fsys. When backups is true, every file is copied
// aside before its first modification.
func New(fsys afero.Fs, backups bool) *Writer {
	return &Writer{fsys: fsys, backupsOn: backups, backups: make(map[string]backup)}
}

// Plan computes the changes implied by the rendered markers of one file.
// Markers whose target line is past the end of the file are skipped.
func (w *Writer) Plan(path string, rendered []Rendered) ([]Change, error) {
	src, err := afero.ReadFile(w.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	lines := strings.Split(string(src), "\n")

	var changes []Change
	for _, r := range rendered {
		idx := r.Marker.TargetLine
		if idx >= len(lines) {
			continue
		}
		old := strings.TrimRight(lines[idx], "\r")
		updated := substituteLine(old, r.Marker.Name, r.Value)
		if updated == old {
			continue
		}
		changes = append(changes, Change{
			File:   path,
			Line:   idx,
			Old:    old,
			New:    updated,
			Marker: r.Marker,
		})
	}
	return changes, nil
}

// Apply writes all changes, grouped per file, editing lines in reverse order
// so indices stay valid. Each file is backed up before its first write.
func (w *Writer) Apply(ctx context.Context, changes []Change) error {
	logger := ctxlog.FromContext(ctx)

	byFile := make(map[string][]Change)
	var files []string
	for _, c := range changes {
		if _, ok := byFile[c.File]; !ok {
			files = append(files, c.File)
		}
		byFile[c.File] = append(byFile[c.File], c)
	}

	for _, path := range files {
		if w.backupsOn {
			if _, err := w.Backup(path); err != nil {
				return err
			}
		}
		if err := w.applyFile(path, byFile[path]); err != nil {
			return fmt.Errorf("applying changes to %s: %w", path, err)
		}
		logger.Debug("file updated", "file", path, "changes", len(byFile[path]))
	}
	return nil
}

func (w *Writer) applyFile(path string, changes []Change) error {
	src, err := afero.ReadFile(w.fsys, path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(src), "\n")

	sort.Slice(changes, func(i, j int) bool { return changes[i].Line > changes[j].Line })
	for _, c := range changes {
		if c.Line < len(lines) {
			lines[c.Line] = c.New
		}
	}

	info, err := w.fsys.Stat(path)
	if err != nil {
		return err
	}
	return afero.WriteFile(w.fsys, path, []byte(strings.Join(lines, "\n")), info.Mode())
}

// Backup copies path into the writer's backup directory and returns the
// backup location. Repeated calls for the same path reuse the first copy.
func (w *Writer) Backup(path string) (string, error) {
	if existing, ok := w.backups[path]; ok {
		return existing.path, nil
	}
	if w.backupDir == "" {
		dir, err := afero.TempDir(w.fsys, "", "customizer-backup-")
		if err != nil {
			return "", fmt.Errorf("creating backup dir: %w", err)
		}
		w.backupDir = dir
	}

	info, err := w.fsys.Stat(path)
	if err != nil {
		return "", err
	}
	src, err := afero.ReadFile(w.fsys, path)
	if err != nil {
		return "", err
	}
	backupPath := w.backupDir + "/" + fmt.Sprintf("%d-%s.backup", len(w.backups), sanitize(path))
	if err := afero.WriteFile(w.fsys, backupPath, src, 0o600); err != nil {
		return "", err
	}
	w.backups[path] = backup{path: backupPath, mode: info.Mode()}
	return backupPath, nil
}

// Restore puts the backed-up content of path back in place, with the mode
// the file had when it was backed up.
func (w *Writer) Restore(path string) error {
	b, ok := w.backups[path]
	if !ok {
		return fmt.Errorf("no backup recorded for %s", path)
	}
	src, err := afero.ReadFile(w.fsys, b.path)
	if err != nil {
		return err
	}
	return afero.WriteFile(w.fsys, path, src, b.mode)
}

// Cleanup removes the backup directory and forgets all backups.
func (w *Writer) Cleanup() error {
	if w.backupDir == "" {
		return nil
	}
	err := w.fsys.RemoveAll(w.backupDir)
	w.backupDir = ""
	w.backups = make(map[string]backup)
	return err
}

// substituteLine rewrites the value of a "name = ..." or "name: ..."
// assignment, preserving everything up to and including the separator and
// any trailing hash comment.
func substituteLine(line, name, value string) string {
	pattern := regexp.MustCompile(`(` + regexp.QuoteMeta(name) + `\s*[:=]\s*)[^#]*`)
	if loc := pattern.FindStringSubmatchIndex(line); loc != nil {
		prefix := line[:loc[3]]
		rest := line[loc[1]:]
		out := prefix + value
		if rest != "" {
			out += " " + rest
		}
		return out
	}

	// No recognizable assignment: fall back to replacing everything after
	// the first separator, or synthesize the assignment.
	if i := strings.IndexAny(line, "=:"); i != -1 {
		return strings.TrimRight(line[:i+1], " ") + " " + value
	}
	return name + " = " + value
}

func sanitize(path string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(path)
}
