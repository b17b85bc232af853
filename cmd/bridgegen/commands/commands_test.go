package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/bridgegen/config"
	"github.com/teranos/bridgegen/errors"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

const pointSource = `package geom

// Point is a location on the plane.
type Point struct {
	X int ` + "`json:\"x\"`" + `
}

// Origin returns the zero point.
func Origin() Point { return Point{} }
`

const projectConfig = `workers = 2

[output]
dir = "web/generated"

[[units]]
package = "./geom"
`

const planeSource = `package plane

type Plane struct {
	Name string
}
`

// project lays out a backend module with a bridgegen.toml and returns the
// config path.
func project(t *testing.T) string {
	return projectWith(t, projectConfig, nil)
}

func projectWith(t *testing.T, cfg string, extra map[string]string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	files := map[string]string{
		"go.mod":         "module example.com/app\n\ngo 1.24\n",
		"geom/point.go":  pointSource,
		config.FileName: cfg,
	}
	for name, content := range extra {
		files[name] = content
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return filepath.Join(dir, config.FileName)
}

func execute(args ...string) (string, error) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	drift := &ExitError{Code: ExitDrift, Err: errors.New("drift")}
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitDrift, ExitCode(drift))
	assert.Equal(t, ExitDrift, ExitCode(errors.Wrap(drift, "check")))
	assert.Equal(t, ExitGenError, ExitCode(errors.New("extraction failure")))
}

func TestDescribeIncludesHints(t *testing.T) {
	err := errors.WithHint(errors.New("unknown unit \"x\""), "configured units: geom")
	assert.Equal(t, "unknown unit \"x\"\n  hint: configured units: geom", Describe(err))
	assert.Equal(t, "plain", Describe(errors.New("plain")))
}

func TestGenerateThenCheck(t *testing.T) {
	cfgPath := project(t)
	dir := filepath.Dir(cfgPath)

	out, err := execute("generate", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "geom.ts")
	assert.Contains(t, out, "written")
	assert.FileExists(t, filepath.Join(dir, "web", "generated", "geom.ts"))
	assert.FileExists(t, filepath.Join(dir, "web", "generated", "runtime.ts"))

	out, err = execute("check", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 stale, 0 conflict")

	changed := pointSource + "\n// Unit is the point (1, 0).\nfunc Unit() Point { return Point{X: 1} }\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geom", "point.go"), []byte(changed), 0o644))

	out, err = execute("check", "--diff", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitDrift, ExitCode(err))
	assert.True(t, errors.Is(err, errors.ErrDrift))
	assert.Contains(t, out, "Drift detected")
	assert.Contains(t, out, "+export function unit(): Point {")

	out, err = execute("generate", "--check", "--config", cfgPath)
	assert.Equal(t, ExitDrift, ExitCode(err), out)

	out, err = execute("generate", "--config", cfgPath)
	require.NoError(t, err, out)
	out, err = execute("check", "--config", cfgPath)
	require.NoError(t, err, out)
}

func TestGenerateUnitSubset(t *testing.T) {
	cfgPath := projectWith(t, projectConfig+"\n[[units]]\npackage = \"./plane\"\n",
		map[string]string{"plane/plane.go": planeSource})
	dir := filepath.Dir(cfgPath)

	out, err := execute("generate", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(dir, "web", "generated", "plane.ts"))

	changed := pointSource + "\n// Unit is the point (1, 0).\nfunc Unit() Point { return Point{X: 1} }\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geom", "point.go"), []byte(changed), 0o644))

	// A subset run rewrites the unit but leaves the index to full runs
	out, err = execute("generate", "--unit", "geom", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "geom.ts")
	assert.NotContains(t, out, "index.ts")

	out, err = execute("check", "--config", cfgPath)
	assert.Equal(t, ExitDrift, ExitCode(err), out)
	assert.Contains(t, out, "index.ts")
	assert.NotContains(t, out, "geom.ts")

	out, err = execute("generate", "--config", cfgPath)
	require.NoError(t, err, out)
	out, err = execute("check", "--config", cfgPath)
	require.NoError(t, err, out)
}

func TestGenerateRefusesEditedFile(t *testing.T) {
	cfgPath := project(t)
	_, err := execute("generate", "--config", cfgPath)
	require.NoError(t, err)

	target := filepath.Join(filepath.Dir(cfgPath), "web", "generated", "geom.ts")
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	edited := bytes.Replace(b, []byte("state=generated"), []byte("state=edited"), 1)
	edited = append(edited, []byte("// mine\n")...)
	require.NoError(t, os.WriteFile(target, edited, 0o644))

	out, err := execute("generate", "--force", "--config", cfgPath)
	assert.Equal(t, ExitDrift, ExitCode(err))
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Contains(t, out, "refused")

	after, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, edited, after)
}

func TestGenerateUnknownUnit(t *testing.T) {
	cfgPath := project(t)
	_, err := execute("generate", "--unit", "nope", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitGenError, ExitCode(err))
	assert.Contains(t, Describe(err), "configured units: geom")
}

func TestIR(t *testing.T) {
	cfgPath := project(t)

	out, err := execute("ir", "geom", "--config", cfgPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "geom", decoded["unit"])
	assert.Equal(t, "example.com/app/geom", decoded["package"])

	out, err = execute("ir", "geom", "--format", "yaml", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "unit: geom\n")

	_, err = execute("ir", "geom", "--format", "xml", "--config", cfgPath)
	assert.Error(t, err)

	_, err = execute("ir", "nope", "--config", cfgPath)
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), config.FileName)

	out, err := execute("init", "./api", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "unit api")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.Len(t, cfg.Units, 1)
	assert.Equal(t, "api", cfg.Units[0].Name)
	assert.Equal(t, "./api", cfg.Units[0].Package)
	assert.Equal(t, config.DefaultOutputDir, cfg.Output.Dir)

	_, err = execute("init", "./api", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, Describe(err), "already exists")
}

func TestMapping(t *testing.T) {
	out, err := execute("mapping")
	require.NoError(t, err)
	assert.Contains(t, out, "Partial<Record<E, V>>")
	assert.Contains(t, out, "boolean")
	assert.Contains(t, out, "MarshalJSON")
}

func TestVersion(t *testing.T) {
	out, err := execute("version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])

	out, err = execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, "Marker: 0.0.0-dev")
}
