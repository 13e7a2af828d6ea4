package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunRejectsBadCommands(t *testing.T) {
	env := filepath.Join(t.TempDir(), "missing.env")
	require.EqualError(t, run([]string{"-env", env}), "missing command")
	require.EqualError(t, run([]string{"-env", env, "pray"}), `unknown command "pray"`)
}

func TestStatusWithoutSession(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("STORE_PATH", filepath.Join(dir, "congregate.db"))
	require.NoError(t, run([]string{"-env", filepath.Join(dir, "missing.env"), "status"}))
}
