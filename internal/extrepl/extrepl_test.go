package extrepl

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/customizer/internal/resolver"
)

func testScope() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"project": cty.ObjectVal(map[string]cty.Value{
			"name":    cty.StringVal("myapp"),
			"version": cty.StringVal("1.2.0"),
		}),
	})
}

func TestFromTree(t *testing.T) {
	t.Parallel()

	t.Run("full section", func(t *testing.T) {
		tree := cty.ObjectVal(map[string]cty.Value{
			"replacements": cty.ObjectVal(map[string]cty.Value{
				"json": cty.ObjectVal(map[string]cty.Value{
					"package.json": cty.ObjectVal(map[string]cty.Value{
						"name": cty.StringVal("{{ values.project.name }}"),
					}),
				}),
				"markdown": cty.ObjectVal(map[string]cty.Value{
					"README.md": cty.ObjectVal(map[string]cty.Value{
						"^# .*$": cty.StringVal("# {{ values.project.name }}"),
					}),
				}),
			}),
		})

		cfg, err := FromTree(tree)
		require.NoError(t, err)
		assert.False(t, cfg.Empty())
		assert.True(t, cfg.JSON["package.json"]["name"].RawEquals(cty.StringVal("{{ values.project.name }}")))
		assert.Equal(t, "# {{ values.project.name }}", cfg.Markdown["README.md"]["^# .*$"])
	})

	t.Run("absent section", func(t *testing.T) {
		cfg, err := FromTree(testScope())
		require.NoError(t, err)
		assert.True(t, cfg.Empty())
	})

	t.Run("typed templates pass through", func(t *testing.T) {
		// A template that was a pure reference to a number or boolean is
		// already typed once resolution has run over the whole document.
		tree := cty.ObjectVal(map[string]cty.Value{
			"replacements": cty.ObjectVal(map[string]cty.Value{
				"json": cty.ObjectVal(map[string]cty.Value{
					"package.json": cty.ObjectVal(map[string]cty.Value{
						"port":    cty.NumberIntVal(8080),
						"private": cty.True,
					}),
				}),
				"markdown": cty.ObjectVal(map[string]cty.Value{
					"README.md": cty.ObjectVal(map[string]cty.Value{
						"PORT": cty.NumberIntVal(8080),
					}),
				}),
			}),
		})

		cfg, err := FromTree(tree)
		require.NoError(t, err)
		assert.True(t, cfg.JSON["package.json"]["port"].RawEquals(cty.NumberIntVal(8080)))
		assert.True(t, cfg.JSON["package.json"]["private"].RawEquals(cty.True))
		assert.Equal(t, "8080", cfg.Markdown["README.md"]["PORT"])
	})

	t.Run("container template", func(t *testing.T) {
		tree := cty.ObjectVal(map[string]cty.Value{
			"replacements": cty.ObjectVal(map[string]cty.Value{
				"json": cty.ObjectVal(map[string]cty.Value{
					"package.json": cty.ObjectVal(map[string]cty.Value{
						"name": cty.TupleVal([]cty.Value{cty.StringVal("a")}),
					}),
				}),
			}),
		})
		_, err := FromTree(tree)
		assert.ErrorContains(t, err, "must be a scalar")
	})
}

func TestApply_JSON(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "proj/package.json",
		[]byte(`{"name": "old", "version": "0.0.0", "private": true}`), 0o644))

	cfg := &Config{
		JSON: map[string]map[string]cty.Value{
			"package.json": {
				"name":    cty.StringVal("{{ values.project.name }}"),
				"version": cty.StringVal("{{ values.project.version }}"),
			},
		},
	}

	a := NewApplier(fsys, resolver.New(resolver.Options{}))
	require.NoError(t, a.Apply(context.Background(), cfg, testScope(), "proj", false))

	src, err := afero.ReadFile(fsys, "proj/package.json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(src, &doc))
	assert.Equal(t, "myapp", doc["name"])
	assert.Equal(t, "1.2.0", doc["version"])
	assert.Equal(t, true, doc["private"])
}

func TestApply_JSONTypedValue(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "proj/package.json",
		[]byte(`{"name": "old", "port": 0}`), 0o644))

	cfg := &Config{
		JSON: map[string]map[string]cty.Value{
			"package.json": {
				"name": cty.StringVal("{{ values.project.name }}"),
				"port": cty.NumberIntVal(8080),
			},
		},
	}

	a := NewApplier(fsys, resolver.New(resolver.Options{}))
	require.NoError(t, a.Apply(context.Background(), cfg, testScope(), "proj", false))

	src, err := afero.ReadFile(fsys, "proj/package.json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(src, &doc))
	assert.Equal(t, "myapp", doc["name"])
	// Written as a JSON number, not as "8080".
	assert.Equal(t, float64(8080), doc["port"])
}

func TestApply_Markdown(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "proj/README.md",
		[]byte("# Old Title\n\nSome body text.\n"), 0o644))

	cfg := &Config{
		Markdown: map[string]map[string]string{
			"README.md": {
				"^# .*$": "# {{ values.project.name }} v{{ values.project.version }}",
			},
		},
	}

	a := NewApplier(fsys, resolver.New(resolver.Options{}))
	require.NoError(t, a.Apply(context.Background(), cfg, testScope(), "proj", false))

	src, err := afero.ReadFile(fsys, "proj/README.md")
	require.NoError(t, err)
	assert.Equal(t, "# myapp v1.2.0\n\nSome body text.\n", string(src))
}

func TestApply_DryRun(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	original := "# Old Title\n"
	require.NoError(t, afero.WriteFile(fsys, "proj/README.md", []byte(original), 0o644))

	cfg := &Config{
		Markdown: map[string]map[string]string{
			"README.md": {"^# .*$": "# {{ values.project.name }}"},
		},
	}

	a := NewApplier(fsys, resolver.New(resolver.Options{}))
	require.NoError(t, a.Apply(context.Background(), cfg, testScope(), "proj", true))

	src, err := afero.ReadFile(fsys, "proj/README.md")
	require.NoError(t, err)
	assert.Equal(t, original, string(src))
}

func TestApply_MissingFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		JSON: map[string]map[string]cty.Value{
			"package.json": {"name": cty.StringVal("{{ values.project.name }}")},
		},
	}
	a := NewApplier(afero.NewMemMapFs(), resolver.New(resolver.Options{}))
	err := a.Apply(context.Background(), cfg, testScope(), "proj", false)
	assert.ErrorContains(t, err, "package.json")
}
