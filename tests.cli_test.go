package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	GitTag, GitCommit, BuildTime = "v0.1.0", "deadbeef", "2024-01-01"
	t.Cleanup(func() { GitTag, GitCommit, BuildTime = "", "", "" })

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "tag: v0.1.0\ncommit: deadbeef\nbuilt: 2024-01-01\n", out.String())
}

func TestMigrateCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "books.db")
	configFile := writeTestFile(t, "config.yml", fmt.Sprintf("server:\n  host: 127.0.0.1\n  port: \"0\"\ndatabase:\n  driver: sqlite3\n  dsn: %s\n", dsn))

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"migrate", "--config", configFile, "--env", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "books schema ready on sqlite3 database\n", out.String())

	_, err := os.Stat(dsn)
	assert.NoError(t, err)
}

func TestMigrateCommand_BadConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "none.yml")})
	assert.Error(t, cmd.Execute())
}
