package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParsePath(t *testing.T) {
	t.Parallel()

	t.Run("simple", func(t *testing.T) {
		p, err := ParsePath("services.api.name")
		require.NoError(t, err)
		assert.Equal(t, Path{"services", "api", "name"}, p)
		assert.Equal(t, "services.api.name", p.String())
	})

	t.Run("single segment", func(t *testing.T) {
		p, err := ParsePath("name")
		require.NoError(t, err)
		assert.Equal(t, Path{"name"}, p)
	})

	t.Run("list index segment", func(t *testing.T) {
		p, err := ParsePath("hosts.0.port")
		require.NoError(t, err)
		assert.Equal(t, Path{"hosts", "0", "port"}, p)
	})

	t.Run("errors", func(t *testing.T) {
		for _, bad := range []string{"", ".", "a..b", ".a", "a."} {
			_, err := ParsePath(bad)
			assert.Error(t, err, "input %q", bad)
		}
	})
}

func TestPathChild(t *testing.T) {
	t.Parallel()

	base := Path{"a", "b"}
	child := base.Child("c")
	assert.Equal(t, Path{"a", "b", "c"}, child)

	// The parent must not be affected by deriving further children.
	other := base.Child("d")
	assert.Equal(t, Path{"a", "b", "d"}, other)
	assert.Equal(t, Path{"a", "b", "c"}, child)
}

func testTree() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"project": cty.ObjectVal(map[string]cty.Value{
			"name":    cty.StringVal("my-app"),
			"version": cty.StringVal("1.0.0"),
		}),
		"port":  cty.NumberIntVal(8080),
		"debug": cty.True,
		"tags":  cty.TupleVal([]cty.Value{cty.StringVal("web"), cty.StringVal("api")}),
		"owner": cty.NullVal(cty.String),
	})
}

func TestWalk(t *testing.T) {
	t.Parallel()

	var visited []string
	err := Walk(testTree(), func(p Path, v cty.Value) error {
		visited = append(visited, p.String())
		return nil
	})
	require.NoError(t, err)

	// Sorted keys, list elements by index, containers themselves skipped.
	assert.Equal(t, []string{
		"debug",
		"owner",
		"port",
		"project.name",
		"project.version",
		"tags.0",
		"tags.1",
	}, visited)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tree := testTree()

	t.Run("nested attribute", func(t *testing.T) {
		v, ok := Lookup(tree, Path{"project", "name"})
		require.True(t, ok)
		assert.True(t, v.RawEquals(cty.StringVal("my-app")))
	})

	t.Run("list index", func(t *testing.T) {
		v, ok := Lookup(tree, Path{"tags", "1"})
		require.True(t, ok)
		assert.True(t, v.RawEquals(cty.StringVal("api")))
	})

	t.Run("container value", func(t *testing.T) {
		v, ok := Lookup(tree, Path{"project"})
		require.True(t, ok)
		assert.True(t, IsContainer(v))
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok := Lookup(tree, Path{"project", "missing"})
		assert.False(t, ok)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, ok := Lookup(tree, Path{"tags", "7"})
		assert.False(t, ok)
	})

	t.Run("descending into scalar", func(t *testing.T) {
		_, ok := Lookup(tree, Path{"port", "x"})
		assert.False(t, ok)
	})

	t.Run("descending into null", func(t *testing.T) {
		_, ok := Lookup(tree, Path{"owner", "x"})
		assert.False(t, ok)
	})
}

func TestSet(t *testing.T) {
	t.Parallel()

	t.Run("replaces nested leaf and keeps siblings", func(t *testing.T) {
		tree := testTree()
		out, err := Set(tree, Path{"project", "name"}, cty.StringVal("renamed"))
		require.NoError(t, err)

		v, ok := Lookup(out, Path{"project", "name"})
		require.True(t, ok)
		assert.True(t, v.RawEquals(cty.StringVal("renamed")))

		v, ok = Lookup(out, Path{"project", "version"})
		require.True(t, ok)
		assert.True(t, v.RawEquals(cty.StringVal("1.0.0")))

		// Original tree untouched.
		v, ok = Lookup(tree, Path{"project", "name"})
		require.True(t, ok)
		assert.True(t, v.RawEquals(cty.StringVal("my-app")))
	})

	t.Run("replacement may change the leaf type", func(t *testing.T) {
		out, err := Set(testTree(), Path{"project", "name"}, cty.NumberIntVal(42))
		require.NoError(t, err)
		v, ok := Lookup(out, Path{"project", "name"})
		require.True(t, ok)
		assert.True(t, v.RawEquals(cty.NumberIntVal(42)))
	})

	t.Run("list element", func(t *testing.T) {
		out, err := Set(testTree(), Path{"tags", "0"}, cty.StringVal("edge"))
		require.NoError(t, err)
		v, ok := Lookup(out, Path{"tags", "0"})
		require.True(t, ok)
		assert.True(t, v.RawEquals(cty.StringVal("edge")))
	})

	t.Run("empty path replaces the root", func(t *testing.T) {
		out, err := Set(testTree(), nil, cty.True)
		require.NoError(t, err)
		assert.True(t, out.RawEquals(cty.True))
	})

	t.Run("missing key errors", func(t *testing.T) {
		_, err := Set(testTree(), Path{"nope"}, cty.True)
		assert.Error(t, err)
	})
}

func TestStringify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   cty.Value
		want string
	}{
		{"string", cty.StringVal("hi"), "hi"},
		{"integer", cty.NumberIntVal(5), "5"},
		{"float", cty.NumberFloatVal(1.5), "1.5"},
		{"bool true", cty.True, "true"},
		{"bool false", cty.False, "false"},
		{"null", cty.NullVal(cty.String), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Stringify(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("containers are rejected", func(t *testing.T) {
		_, err := Stringify(cty.TupleVal([]cty.Value{cty.NumberIntVal(1)}))
		assert.ErrorIs(t, err, ErrNotStringifiable)

		_, err = Stringify(cty.ObjectVal(map[string]cty.Value{"a": cty.True}))
		assert.ErrorIs(t, err, ErrNotStringifiable)
	})
}
