package commands

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/patternstore"
)

const mlpGraph = `{
  "name": "mlp",
  "inputs": ["x"],
  "outputs": ["y"],
  "nodes": [
    {"op_type": "MatMul", "inputs": ["x", "W0"], "outputs": ["t0"],
     "weights": [{"index": 0, "name": "W0", "shape": [4, 4]}]},
    {"op_type": "Add", "inputs": ["t0", "b0"], "outputs": ["t1"],
     "weights": [{"index": 0, "name": "b0", "location": 1, "shape": [4]}]},
    {"op_type": "Relu", "inputs": ["t1"], "outputs": ["t2"]},
    {"op_type": "MatMul", "inputs": ["t2", "W1"], "outputs": ["t3"],
     "weights": [{"index": 0, "name": "W1", "shape": [4, 4]}]},
    {"op_type": "Add", "inputs": ["t3", "b1"], "outputs": ["t4"],
     "weights": [{"index": 0, "name": "b1", "location": 1, "shape": [4]}]},
    {"op_type": "Relu", "inputs": ["t4"], "outputs": ["y"]}
  ]
}`

const gemmGraph = `{
  "name": "gemm",
  "inputs": ["x"],
  "outputs": ["y"],
  "nodes": [
    {"name": "Gemm_0", "op_type": "Gemm", "inputs": ["x"], "outputs": ["t0"]},
    {"op_type": "Relu", "inputs": ["t0"], "outputs": ["y"]}
  ]
}`

// setupProject switches to a temp directory holding model.json
func setupProject(t *testing.T, graphJSON string) string {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })
	t.Setenv("OPCONVERT_LOG_LEVEL", "error")

	require.NoError(t, os.WriteFile("model.json", []byte(graphJSON), 0644))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "opconvert", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.True(t, cmd.SilenceUsage)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"convert", "patterns", "ops", "version"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"

	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "opconvert version: 1.0.0-test")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "Go version")
}

func TestConvertCommand(t *testing.T) {
	dir := setupProject(t, mlpGraph)

	out, _, err := run(t, "", "convert", "model.json", "-o", "gen", "--class-name", "Net")
	require.NoError(t, err)
	assert.Contains(t, out, "Converted 6 of 6 nodes")
	assert.Contains(t, out, "repeated patterns:")

	data, err := os.ReadFile(filepath.Join(dir, "gen", "net.py"))
	require.NoError(t, err)
	src := string(data)
	assert.Contains(t, src, "class Net(nn.Cell):")
	assert.Contains(t, src, "self.matmul_0 = nn.MatMul()")
	assert.Contains(t, src, "opt_add_0 = self.add_0(opt_matmul_0, self.add_0_bias)")
	assert.Contains(t, src, "return opt_relu_1")
}

func TestConvertCommand_Stdin(t *testing.T) {
	setupProject(t, "")

	out, _, err := run(t, mlpGraph, "convert", "-", "--stdout")
	require.NoError(t, err)
	assert.Contains(t, out, "class Model(nn.Cell):")
	assert.NoFileExists(t, filepath.Join("output", "model.py"))
}

func TestConvertCommand_AbortOnUnsupported(t *testing.T) {
	setupProject(t, gemmGraph)

	_, errOut, err := run(t, "", "convert", "model.json", "--stdout")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, converrors.ErrUnsupportedOperator))
	assert.Contains(t, errOut, "UNSUPPORTED OPERATOR: Gemm_0 (Gemm)")
	assert.Contains(t, errOut, "opconvert ops")
}

func TestConvertCommand_Skip(t *testing.T) {
	setupProject(t, gemmGraph)

	out, errOut, err := run(t, "", "convert", "model.json", "--stdout", "--on-unsupported", "skip")
	require.NoError(t, err)
	assert.Contains(t, out, "opt_relu_0 = self.relu_0(t0)")
	assert.Contains(t, out, "# Gemm_0: error:")
	assert.Contains(t, errOut, "1 error(s), 0 warning(s)")
}

func TestConvertCommand_JSONDiagnostics(t *testing.T) {
	setupProject(t, gemmGraph)

	_, errOut, err := run(t, "", "convert", "model.json", "--stdout", "--on-unsupported", "skip", "--json")
	require.NoError(t, err)
	assert.Contains(t, errOut, "CNV100")
	assert.Contains(t, errOut, "Gemm_0")
}

func TestConvertCommand_Prompt(t *testing.T) {
	setupProject(t, gemmGraph)

	var asked []string
	askOne = func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
		asked = append(asked, p.(*survey.Confirm).Message)
		*(response.(*bool)) = true
		return nil
	}
	t.Cleanup(func() { askOne = survey.AskOne })

	out, _, err := run(t, "", "convert", "model.json", "--stdout", "--on-unsupported", "prompt")
	require.NoError(t, err)
	assert.Equal(t, []string{"Skip node Gemm_0 (Gemm) and continue?"}, asked)
	assert.Contains(t, out, "class Model(nn.Cell):")

	askOne = func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
		*(response.(*bool)) = false
		return nil
	}
	_, _, err = run(t, "", "convert", "model.json", "--stdout", "--on-unsupported", "prompt")
	assert.True(t, stderrors.Is(err, converrors.ErrUnsupportedOperator))
}

func TestConvertCommand_InvalidPolicy(t *testing.T) {
	setupProject(t, mlpGraph)

	_, _, err := run(t, "", "convert", "model.json", "--on-unsupported", "retry")
	assert.ErrorContains(t, err, "unknown unsupported-node policy")
}

func TestConvertCommand_InvalidConfig(t *testing.T) {
	setupProject(t, mlpGraph)
	require.NoError(t, os.WriteFile("opconvert.yaml", []byte("pattern:\n  reuse_threshold: 1\n"), 0644))

	_, errOut, err := run(t, "", "convert", "model.json")
	require.Error(t, err)
	assert.Contains(t, errOut, "CONFIGURATION ERROR")
}

func TestConvertCommand_MissingGraph(t *testing.T) {
	setupProject(t, mlpGraph)

	_, _, err := run(t, "", "convert", "missing.json")
	assert.ErrorContains(t, err, "failed to open graph")
}

func TestPatternsCommand(t *testing.T) {
	setupProject(t, mlpGraph)

	out, _, err := run(t, "", "patterns", "model.json")
	require.NoError(t, err)
	assert.Contains(t, out, "MODULE")
	assert.Contains(t, out, "Module0")
	assert.Contains(t, out, "MatMul->Add->Relu")
	assert.Contains(t, out, "0-3 3-6")

	out, _, err = run(t, "", "patterns", "model.json", "--threshold", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "No operator sequence repeats 5 or more times")

	out, _, err = run(t, "", "patterns", "model.json", "--threshold", "5", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "MatMul->Add->Relu->MatMul->Add->Relu")
}

func TestOpsCommand(t *testing.T) {
	out, _, err := run(t, "", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "ONNX OPERATOR")
	assert.Contains(t, out, "nn.MatMul")
	assert.Contains(t, out, "P.Cast")
	assert.NotContains(t, out, "Gemm")
}

func TestConvertCommand_WatchNeedsFile(t *testing.T) {
	setupProject(t, "")

	_, _, err := run(t, mlpGraph, "convert", "-", "--watch")
	assert.ErrorContains(t, err, "--watch needs a graph file")
}

func TestPatternsCommand_Library(t *testing.T) {
	setupProject(t, mlpGraph)

	out, _, err := run(t, "", "patterns", "--library", "--store", "patterns.db")
	require.NoError(t, err)
	assert.Contains(t, out, "is empty")

	_, _, err = run(t, "", "patterns", "model.json", "--store", "patterns.db")
	require.NoError(t, err)

	// convert records into the configured library too
	t.Setenv("OPCONVERT_PATTERN_STORE", "patterns.db")
	_, _, err = run(t, "", "convert", "model.json", "--stdout")
	require.NoError(t, err)

	out, _, err = run(t, "", "patterns", "--library")
	require.NoError(t, err)
	assert.Contains(t, out, "OCCURRENCES")
	assert.Contains(t, out, "MatMul->Add->Relu")
}

func TestPatternsCommand_LibraryNotConfigured(t *testing.T) {
	setupProject(t, mlpGraph)

	_, _, err := run(t, "", "patterns", "--library")
	assert.ErrorContains(t, err, "no pattern library configured")

	_, _, err = run(t, "", "patterns", "--library", "model.json")
	assert.Error(t, err)
}

func TestConvertCommand_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := setupProject(t, mlpGraph)
	t.Setenv("OPCONVERT_CACHE_BACKEND", "redis")
	t.Setenv("OPCONVERT_CACHE_REDIS_ADDR", mr.Addr())

	out, _, err := run(t, "", "convert", "model.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Converted 6 of 6 nodes")
	require.Len(t, mr.Keys(), 1)
	assert.True(t, strings.HasPrefix(mr.Keys()[0], "opconvert:"))

	require.NoError(t, os.Remove(filepath.Join(dir, "output", "model.py")))

	out, _, err = run(t, "", "convert", "model.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored")
	assert.Contains(t, out, "from cache")
	assert.FileExists(t, filepath.Join(dir, "output", "model.py"))

	// A different class name is a different key
	_, _, err = run(t, "", "convert", "model.json", "--class-name", "Net")
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 2)
}

func TestConvertCommand_CacheSkipsDiagnostics(t *testing.T) {
	mr := miniredis.RunT(t)
	setupProject(t, gemmGraph)
	t.Setenv("OPCONVERT_CACHE_BACKEND", "redis")
	t.Setenv("OPCONVERT_CACHE_REDIS_ADDR", mr.Addr())

	_, _, err := run(t, "", "convert", "model.json", "--stdout", "--on-unsupported", "skip")
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestConvertCommand_CacheUnreachable(t *testing.T) {
	setupProject(t, mlpGraph)
	t.Setenv("OPCONVERT_CACHE_BACKEND", "redis")
	t.Setenv("OPCONVERT_CACHE_REDIS_ADDR", "localhost:99999")

	_, _, err := run(t, "", "convert", "model.json", "--stdout")
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestConvertCommand_PatternStoreBypassesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	setupProject(t, mlpGraph)
	t.Setenv("OPCONVERT_CACHE_BACKEND", "redis")
	t.Setenv("OPCONVERT_CACHE_REDIS_ADDR", mr.Addr())
	t.Setenv("OPCONVERT_PATTERN_STORE", "patterns.db")

	for i := 0; i < 2; i++ {
		out, _, err := run(t, "", "convert", "model.json")
		require.NoError(t, err)
		assert.Contains(t, out, "Converted 6 of 6 nodes")
	}
	assert.Empty(t, mr.Keys())

	store, err := patternstore.Open(context.Background(), "patterns.db")
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Top(context.Background(), 10)
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.Key.Pattern == "MatMul->Add->Relu" {
			found = true
			assert.Equal(t, 4, e.Occurrences)
		}
	}
	assert.True(t, found)
}
