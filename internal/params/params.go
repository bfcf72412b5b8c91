// Package params loads a parameter document from YAML, JSON or HCL into a
// cty.Value tree, dispatching on the file extension. Parsing problems are
// loader errors; reference resolution inside the loaded tree is the
// resolver's concern.
package params

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	ctyyaml "github.com/zclconf/go-cty-yaml"

	"github.com/vk/customizer/internal/ctxlog"
)

// Load reads the parameter document at path and decodes it to a cty value.
// Extensions .yaml/.yml, .json and .hcl select the codec; any other
// extension is tried as YAML first, then JSON.
func Load(ctx context.Context, fsys afero.Fs, path string) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	src, err := afero.ReadFile(fsys, path)
	if err != nil {
		return cty.NilVal, fmt.Errorf("reading parameter file: %w", err)
	}

	var v cty.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		v, err = decodeYAML(src)
	case ".json":
		v, err = decodeJSON(src)
	case ".hcl":
		v, err = decodeHCL(src, path)
	default:
		v, err = decodeYAML(src)
		if err != nil {
			v, err = decodeJSON(src)
		}
	}
	if err != nil {
		return cty.NilVal, fmt.Errorf("parsing parameter file %s: %w", path, err)
	}

	logger.Debug("parameter document loaded", "path", path)
	return v, nil
}

func decodeYAML(src []byte) (cty.Value, error) {
	if len(strings.TrimSpace(string(src))) == 0 {
		return cty.EmptyObjectVal, nil
	}
	ty, err := ctyyaml.Standard.ImpliedType(src)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyyaml.Standard.Unmarshal(src, ty)
}

func decodeJSON(src []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(src)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(src, ty)
}

// decodeHCL evaluates the file's top-level attributes into an object value.
// Attributes are constant expressions; no variables or functions are in
// scope.
func decodeHCL(src []byte, filename string) (cty.Value, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return cty.NilVal, diags
	}

	elems := make(map[string]cty.Value, len(attrs))
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, diags := attrs[name].Expr.Value(nil)
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		elems[name] = v
	}
	if len(elems) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(elems), nil
}
