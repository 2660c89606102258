package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/extstore/internal/config"
	exterrors "github.com/vango-dev/extstore/internal/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestDemoSteps(t *testing.T) {
	out, err := execute(t, "demo", "first=Ada", "count=+1")
	require.NoError(t, err)

	assert.Contains(t, out, "mounted 11 components\n")
	assert.Contains(t, out, "> first=Ada\n  rendered: TextInput:first c6, Display:first c8, FullName c10\n")
	assert.Contains(t, out, "> count=+1\n  rendered: Counter c11\n")
	assert.Contains(t, out, `"count":1`)
	assert.Contains(t, out, "2 steps applied")
}

func TestDemoScriptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steps.txt")
	require.NoError(t, os.WriteFile(path, []byte("# two steps\nlast=Hopper\n\nage=85\n"), 0o644))

	out, err := execute(t, "demo", "--script", path, "first=Grace")
	require.NoError(t, err)
	assert.Contains(t, out, `"first":"Grace","last":"Hopper","age":85`)
	assert.Contains(t, out, "3 steps applied")
}

func TestDemoInvalidStep(t *testing.T) {
	_, err := execute(t, "demo", "middle=x")
	assert.Equal(t, "E140", exterrors.Code(err))
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initial:\n  first: Ada\n  count: 5\n"), 0o644))

	out, err := execute(t, "--config", path, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, `"first":"Ada","last":"","age":0,"count":5`)
}

func TestConfigFromWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extstore.json"),
		[]byte(`{"initial":{"last":"Lovelace"}}`), 0o644))

	var out bytes.Buffer
	t.Chdir(dir)
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"demo"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"last":"Lovelace"`)
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "demo")
	assert.Equal(t, "E123", exterrors.Code(err))

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o644))
	_, err = execute(t, "--config", path, "demo")
	assert.Equal(t, "E120", exterrors.Code(err))

	_, err = execute(t, "--config", filepath.Join(dir, "missing.yaml"), "demo")
	assert.Equal(t, "E121", exterrors.Code(err))
}

func TestServeRejectsInvalidPort(t *testing.T) {
	_, err := execute(t, "serve", "--port", "70000")
	assert.Equal(t, "E122", exterrors.Code(err))
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger, err = newLogger(&buf, config.LogConfig{Level: "warn", Format: "text"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
