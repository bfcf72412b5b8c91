// Package scanner discovers project files to customize, filtering them
// against include and exclude glob patterns.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/vk/customizer/internal/ctxlog"
)

// DefaultExcludes are glob patterns never worth processing: VCS metadata,
// dependency caches, and build output.
var DefaultExcludes = []string{
	"**/.git/**",
	".git/**",
	"**/node_modules/**",
	"**/__pycache__/**",
	"**/*.pyc",
	"**/dist/**",
	"**/build/**",
	"**/venv/**",
	"**/.venv/**",
	"**/target/**",
	"**/vendor/**",
	"**/.idea/**",
	"**/*.egg-info/**",
}

// Scanner walks a project root and yields the relative paths of files that
// match the include patterns and none of the exclude patterns.
type Scanner struct {
	fsys     afero.Fs
	root     string
	includes []string
	excludes []string
}

// New builds a scanner rooted at root. Empty includes means every file.
// DefaultExcludes always apply in addition to the given excludes.
func New(fsys afero.Fs, root string, includes, excludes []string) *Scanner {
	if len(includes) == 0 {
		includes = []string{"**"}
	}
	return &Scanner{
		fsys:     fsys,
		root:     root,
		includes: includes,
		excludes: append(append([]string(nil), DefaultExcludes...), excludes...),
	}
}

// Scan walks the tree and returns matching file paths relative to the root,
// in walk order. Directories matching an exclude pattern are skipped whole.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := s.fsys.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("project path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory", s.root)
	}

	var files []string
	err = afero.Walk(s.fsys, s.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if s.matchesAny(rel, s.excludes) || s.matchesAny(rel+"/", s.excludes) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.matchesAny(rel, s.excludes) {
			return nil
		}
		if s.matchesAny(rel, s.includes) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("project scan complete", "root", s.root, "files", len(files))
	return files, nil
}

// matchesAny matches rel against each pattern, both as a full relative path
// and as a bare file name so patterns like "*.py" behave as users expect.
func (s *Scanner) matchesAny(rel string, patterns []string) bool {
	base := rel[strings.LastIndex(rel, "/")+1:]
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := doublestar.Match(pattern, base); err == nil && ok {
				return true
			}
		}
	}
	return false
}
