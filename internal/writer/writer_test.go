package writer

import (
	"context"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/customizer/internal/marker"
)

func rendered(name string, target int, value string) Rendered {
	return Rendered{
		Marker: marker.Marker{File: "config.py", TargetLine: target, Name: name},
		Value:  value,
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "config.py", []byte(""+
		"# app_name = {{ values.project.name | quote }}\n"+
		"app_name = \"placeholder\"\n"+
		"# port = {{ values.server.port }}\n"+
		"port = 3000  # keep in sync with compose\n"), 0o644))

	w := New(fsys, false)
	changes, err := w.Plan("config.py", []Rendered{
		rendered("app_name", 1, `"myapp"`),
		rendered("port", 3, "8080"),
	})
	require.NoError(t, err)

	require.Len(t, changes, 2)
	assert.Equal(t, 1, changes[0].Line)
	assert.Equal(t, `app_name = "placeholder"`, changes[0].Old)
	assert.Equal(t, `app_name = "myapp"`, changes[0].New)
	assert.Equal(t, "port = 8080 # keep in sync with compose", changes[1].New)
}

func TestPlan_SkipsNoopAndOutOfRange(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "config.py", []byte(""+
		"port = 8080\n"), 0o644))

	w := New(fsys, false)
	changes, err := w.Plan("config.py", []Rendered{
		rendered("port", 0, "8080"), // already the rendered value
		rendered("port", 99, "8080"),
	})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestApply(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "config.py", []byte(""+
		"app_name = \"placeholder\"\n"+
		"debug = true\n"+
		"port = 3000\n"), 0o644))

	w := New(fsys, false)
	changes, err := w.Plan("config.py", []Rendered{
		rendered("app_name", 0, `"myapp"`),
		rendered("port", 2, "8080"),
	})
	require.NoError(t, err)
	require.NoError(t, w.Apply(context.Background(), changes))

	got, err := afero.ReadFile(fsys, "config.py")
	require.NoError(t, err)
	assert.Equal(t, "app_name = \"myapp\"\ndebug = true\nport = 8080\n", string(got))
}

func TestApply_BackupAndRestore(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	original := "port = 3000\n"
	require.NoError(t, afero.WriteFile(fsys, "config.py", []byte(original), 0o644))

	w := New(fsys, true)
	changes, err := w.Plan("config.py", []Rendered{rendered("port", 0, "8080")})
	require.NoError(t, err)
	require.NoError(t, w.Apply(context.Background(), changes))

	got, err := afero.ReadFile(fsys, "config.py")
	require.NoError(t, err)
	assert.Equal(t, "port = 8080\n", string(got))

	require.NoError(t, w.Restore("config.py"))
	got, err = afero.ReadFile(fsys, "config.py")
	require.NoError(t, err)
	assert.Equal(t, original, string(got))

	require.NoError(t, w.Cleanup())
	assert.Error(t, w.Restore("config.py"))
}

func TestRestore_KeepsFileMode(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "run.sh", []byte("PORT=3000\n"), 0o755))

	w := New(fsys, true)
	changes, err := w.Plan("run.sh", []Rendered{{
		Marker: marker.Marker{File: "run.sh", TargetLine: 0, Name: "PORT"},
		Value:  "8080",
	}})
	require.NoError(t, err)
	require.NoError(t, w.Apply(context.Background(), changes))
	require.NoError(t, w.Restore("run.sh"))

	got, err := afero.ReadFile(fsys, "run.sh")
	require.NoError(t, err)
	assert.Equal(t, "PORT=3000\n", string(got))

	info, err := fsys.Stat("run.sh")
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o755), info.Mode().Perm())
}

func TestBackup_ReusesFirstCopy(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "a.py", []byte("x = 1\n"), 0o644))

	w := New(fsys, true)
	first, err := w.Backup("a.py")
	require.NoError(t, err)
	second, err := w.Backup("a.py")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSubstituteLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		key   string
		value string
		want  string
	}{
		{"equals assignment", `app = "old"`, "app", `"new"`, `app = "new"`},
		{"colon assignment", "replicas: 1", "replicas", "3", "replicas: 3"},
		{"trailing comment kept", "port = 3000 # note", "port", "8080", "port = 8080 # note"},
		{"separator fallback", "something: old", "other", "new", "something: new"},
		{"synthesized assignment", "just text", "key", "v", "key = v"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteLine(tt.line, tt.key, tt.value))
		})
	}
}
