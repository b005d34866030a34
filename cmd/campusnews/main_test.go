package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	registry := filepath.Join(dir, "lpms.csv")
	require.NoError(t, os.WriteFile(registry, []byte(
		"LPM Name,LINK,Note,Univ\nLPM Kavling,https://kavling10.com,,UB\nLPM Mercusuar,https://mercusuar.blogspot.com,Blogspot,Undip\n"), 0o644))
	path := filepath.Join(dir, "config.yaml")
	cfg := "app:\n  registry_path: " + registry + "\ncache:\n  path: " + filepath.Join(dir, "cache.json") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOutletsCommand(t *testing.T) {
	out, err := execute(t, "outlets", "--config", writeConfig(t))

	require.NoError(t, err)
	assert.Contains(t, out, "LPM Kavling")
	assert.Contains(t, out, "blogspot")
}

func TestCacheClearCommand(t *testing.T) {
	out, err := execute(t, "cache", "clear", "-c", writeConfig(t))

	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, "outlets", "--config", filepath.Join(t.TempDir(), "absent.json"))

	assert.ErrorContains(t, err, "could not load config")
}
