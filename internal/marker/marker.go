// Package marker extracts customization markers from source file comments.
// A marker is a comment of the form
//
//	# name = {{ values.project.name | quote }}
//
// announcing that the next line carries an assignment to name whose value
// should be rewritten with the rendered expression. Comment syntax is
// detected per file from the extension.
package marker

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/vk/customizer/internal/ctxlog"
)

// Style identifies a comment syntax family.
type Style string

const (
	StyleHash    Style = "hash"         // Python, shell, YAML, TOML
	StyleSlash   Style = "double-slash" // Go, JS, Java, C-likes
	StyleDash    Style = "double-dash"  // SQL, Lua
	StyleBlock   Style = "block"        // CSS, C block comments on one line
	StyleHTML    Style = "html"         // HTML, XML, Markdown
	StyleUnknown Style = ""
)

var commentPatterns = map[Style]*regexp.Regexp{
	StyleHash:  regexp.MustCompile(`^\s*#\s*(.+)$`),
	StyleSlash: regexp.MustCompile(`^\s*//\s*(.+)$`),
	StyleDash:  regexp.MustCompile(`^\s*--\s*(.+)$`),
	StyleBlock: regexp.MustCompile(`^\s*/\*\s*(.+?)\s*\*/\s*$`),
	StyleHTML:  regexp.MustCompile(`^\s*<!--\s*(.+?)\s*-->\s*$`),
}

// markerPattern matches "name = {{ expr }}" and the YAML-style
// "name: {{ expr }}" inside a comment's content.
var markerPattern = regexp.MustCompile(`^(\w+)\s*[:=]\s*\{\{\s*(.+?)\s*\}\}$`)

var extensionStyles = map[string]Style{
	".py":   StyleHash,
	".sh":   StyleHash,
	".bash": StyleHash,
	".yaml": StyleHash,
	".yml":  StyleHash,
	".toml": StyleHash,
	".rb":   StyleHash,
	".tf":   StyleHash,
	".go":   StyleSlash,
	".js":   StyleSlash,
	".jsx":  StyleSlash,
	".ts":   StyleSlash,
	".tsx":  StyleSlash,
	".java": StyleSlash,
	".c":    StyleSlash,
	".h":    StyleSlash,
	".cpp":  StyleSlash,
	".rs":   StyleSlash,
	".kt":   StyleSlash,
	".sql":  StyleDash,
	".lua":  StyleDash,
	".css":  StyleBlock,
	".scss": StyleBlock,
	".less": StyleBlock,
	".html": StyleHTML,
	".htm":  StyleHTML,
	".xml":  StyleHTML,
	".md":   StyleHTML,
}

// DetectStyle maps a file name to its comment style. Extensionless files
// named Dockerfile or Makefile count as hash-commented.
func DetectStyle(path string) Style {
	if style, ok := extensionStyles[strings.ToLower(filepath.Ext(path))]; ok {
		return style
	}
	switch filepath.Base(path) {
	case "Dockerfile", "Makefile":
		return StyleHash
	}
	return StyleUnknown
}

// Marker is one customization point found in a file.
type Marker struct {
	// File is the path the marker was found in.
	File string
	// Line is the zero-based line index of the comment itself.
	Line int
	// TargetLine is the zero-based index of the line to rewrite, always the
	// line following the comment.
	TargetLine int
	// Name is the variable being assigned on the target line.
	Name string
	// Expr is the expression text between the marker's braces.
	Expr string
	// CommentLine is the full comment line, for diagnostics.
	CommentLine string
	// Style is the comment syntax the marker was written in.
	Style Style
}

// Parser finds markers in project files.
type Parser struct {
	fsys afero.Fs
}

// NewParser returns a parser reading through fsys.
func NewParser(fsys afero.Fs) *Parser {
	return &Parser{fsys: fsys}
}

// ParseFile scans one file for markers. Binary files yield no markers and
// no error.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]Marker, error) {
	src, err := afero.ReadFile(p.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if bytes.IndexByte(src, 0) != -1 {
		return nil, nil
	}

	style := DetectStyle(path)
	lines := strings.Split(string(src), "\n")

	var markers []Marker
	for i, line := range lines {
		content, ok := commentContent(line, style)
		if !ok {
			continue
		}
		name, expr, ok := extractMarker(content)
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			File:        path,
			Line:        i,
			TargetLine:  i + 1,
			Name:        name,
			Expr:        expr,
			CommentLine: strings.TrimRight(line, "\r\n"),
			Style:       style,
		})
	}

	if len(markers) > 0 {
		ctxlog.FromContext(ctx).Debug("markers found", "file", path, "count", len(markers))
	}
	return markers, nil
}

// commentContent extracts the comment body from a line. The detected style
// is tried first; the remaining styles act as a fallback for files whose
// extension lied about their syntax.
func commentContent(line string, style Style) (string, bool) {
	if pattern, ok := commentPatterns[style]; ok {
		if m := pattern.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	for s, pattern := range commentPatterns {
		if s == style {
			continue
		}
		if m := pattern.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func extractMarker(content string) (name, expr string, ok bool) {
	m := markerPattern.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil {
		return "", "", false
	}
	name, expr = m[1], strings.TrimSpace(m[2])
	if expr == "" || strings.Contains(expr, "{{") || strings.Contains(expr, "}}") {
		return "", "", false
	}
	return name, expr, true
}
