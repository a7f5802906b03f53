// Package main provides tests for the DuckBoard CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/duckboard/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command in a fresh project directory.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{
		"--cache-file", filepath.Join(dir, "tables.json"),
		"--query-cache", filepath.Join(dir, "queries.json"),
		"--history", filepath.Join(dir, "history.db"),
		"--scripts-dir", filepath.Join(dir, "scripts"),
		"-o", "csv",
	}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "DuckBoard")
}

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	for _, sub := range []string{"upload", "pending", "sources", "query", "saved", "scripts", "history"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestRegisterAndQuery(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	csv := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csv, []byte("name,age\nada,36\ngrace,45\n"), 0o600))

	out, err := run(t, dir, "sources", "add-file", csv, "--alias", "people")
	require.NoError(t, err, out)

	out, err = run(t, dir, "query", "SELECT name FROM {{people}} ORDER BY age DESC LIMIT 1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "name\ngrace")

	out, err = run(t, dir, "history")
	require.NoError(t, err, out)
	assert.Contains(t, out, "{{people}}")
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "duckboard.yaml"), []byte("output: json\n"), 0o600))
	t.Setenv("DUCKBOARD_OUTPUT", "csv")

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"query", "SELECT 7 AS seven"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "seven\n7")
}

func TestInvalidOutputFormat(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := run(t, dir, "-o", "xml", "sources", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			cmd := cli.NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{"completion", shell})

			require.NoError(t, cmd.Execute())
			assert.NotEmpty(t, buf.String())
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"unknown-command"})

	assert.Error(t, cmd.Execute())
}
