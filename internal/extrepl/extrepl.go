// Package extrepl applies replacement rules to formats that cannot carry
// comment markers. The parameter document may declare a replacements section:
//
//	replacements:
//	  json:
//	    package.json:
//	      name: "{{ values.project.name }}"
//	  markdown:
//	    README.md:
//	      "^# .*$": "# {{ values.project.name }}"
//
// JSON rules address a value by dotted path; Markdown rules replace regex
// matches. Replacement templates render against the resolved tree.
package extrepl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/customizer/internal/ctxlog"
	"github.com/vk/customizer/internal/resolver"
	"github.com/vk/customizer/internal/values"
)

// Config holds the replacement rules, keyed file → rule → template. JSON
// templates stay cty values: a template that was a pure reference to a
// number or boolean has already been resolved to that typed value by the
// time the rules are read, and the typed value is what lands in the file.
type Config struct {
	JSON     map[string]map[string]cty.Value
	Markdown map[string]map[string]string
}

// Empty reports whether no rules are configured.
func (c *Config) Empty() bool {
	return len(c.JSON) == 0 && len(c.Markdown) == 0
}

// FromTree extracts the replacements section from a resolved parameter tree.
// An absent section yields an empty config.
func FromTree(tree cty.Value) (*Config, error) {
	cfg := &Config{
		JSON:     make(map[string]map[string]cty.Value),
		Markdown: make(map[string]map[string]string),
	}

	section, ok := values.Lookup(tree, values.Path{"replacements"})
	if !ok || section.IsNull() {
		return cfg, nil
	}

	if err := decodeRules(section, "json", cfg.JSON); err != nil {
		return nil, err
	}

	md := make(map[string]map[string]cty.Value)
	if err := decodeRules(section, "markdown", md); err != nil {
		return nil, err
	}
	// Markdown replacement is textual, so typed templates render to their
	// canonical text form up front.
	for file, rules := range md {
		entry := make(map[string]string, len(rules))
		for rule, tpl := range rules {
			s, err := values.Stringify(tpl)
			if err != nil {
				return nil, fmt.Errorf("replacements.markdown.%s.%s: %w", file, rule, err)
			}
			entry[rule] = s
		}
		cfg.Markdown[file] = entry
	}
	return cfg, nil
}

func decodeRules(section cty.Value, kind string, out map[string]map[string]cty.Value) error {
	group, ok := values.Lookup(section, values.Path{kind})
	if !ok || group.IsNull() {
		return nil
	}
	if !values.IsContainer(group) {
		return fmt.Errorf("replacements.%s must be a mapping", kind)
	}
	for file, rules := range group.AsValueMap() {
		if !values.IsContainer(rules) {
			return fmt.Errorf("replacements.%s.%s must be a mapping", kind, file)
		}
		entry := make(map[string]cty.Value)
		for rule, tpl := range rules.AsValueMap() {
			if tpl.IsNull() || values.IsContainer(tpl) {
				return fmt.Errorf("replacements.%s.%s.%s: template must be a scalar", kind, file, rule)
			}
			entry[rule] = tpl
		}
		out[file] = entry
	}
	return nil
}

// Applier executes replacement rules against project files.
type Applier struct {
	fsys afero.Fs
	res  *resolver.Resolver
}

// NewApplier returns an applier rendering templates with res.
func NewApplier(fsys afero.Fs, res *resolver.Resolver) *Applier {
	return &Applier{fsys: fsys, res: res}
}

// Apply runs every rule, rendering templates against scope. File paths are
// relative to root. With dryRun set, files are read and templates rendered
// but nothing is written.
func (a *Applier) Apply(ctx context.Context, cfg *Config, scope cty.Value, root string, dryRun bool) error {
	logger := ctxlog.FromContext(ctx)

	for _, file := range sortedKeys(cfg.JSON) {
		if err := a.applyJSON(root+"/"+file, cfg.JSON[file], scope, dryRun); err != nil {
			return fmt.Errorf("json replacements in %s: %w", file, err)
		}
		logger.Debug("json replacements applied", "file", file, "dry_run", dryRun)
	}
	for _, file := range sortedKeys(cfg.Markdown) {
		if err := a.applyMarkdown(root+"/"+file, cfg.Markdown[file], scope, dryRun); err != nil {
			return fmt.Errorf("markdown replacements in %s: %w", file, err)
		}
		logger.Debug("markdown replacements applied", "file", file, "dry_run", dryRun)
	}
	return nil
}

func (a *Applier) applyJSON(path string, rules map[string]cty.Value, scope cty.Value, dryRun bool) error {
	src, err := afero.ReadFile(a.fsys, path)
	if err != nil {
		return err
	}
	ty, err := ctyjson.ImpliedType(src)
	if err != nil {
		return err
	}
	doc, err := ctyjson.Unmarshal(src, ty)
	if err != nil {
		return err
	}

	for _, rule := range sortedKeys(rules) {
		target, err := values.ParsePath(rule)
		if err != nil {
			return err
		}
		tpl := rules[rule]
		nv := tpl
		if tpl.Type() == cty.String {
			rendered, err := a.res.RenderString(tpl.AsString(), scope)
			if err != nil {
				return err
			}
			nv = cty.StringVal(rendered)
		}
		doc, err = values.Set(doc, target, nv)
		if err != nil {
			return fmt.Errorf("path %q: %w", rule, err)
		}
	}
	if dryRun {
		return nil
	}

	out, err := ctyjson.Marshal(doc, doc.Type())
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		return err
	}
	pretty.WriteByte('\n')
	return afero.WriteFile(a.fsys, path, pretty.Bytes(), 0o644)
}

func (a *Applier) applyMarkdown(path string, rules map[string]string, scope cty.Value, dryRun bool) error {
	src, err := afero.ReadFile(a.fsys, path)
	if err != nil {
		return err
	}
	content := string(src)

	for _, rule := range sortedKeys(rules) {
		pattern, err := regexp.Compile("(?m)" + rule)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", rule, err)
		}
		rendered, err := a.res.RenderString(rules[rule], scope)
		if err != nil {
			return err
		}
		content = pattern.ReplaceAllString(content, rendered)
	}
	if dryRun {
		return nil
	}
	return afero.WriteFile(a.fsys, path, []byte(content), 0o644)
}

func sortedKeys[M map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
