package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunner_ExecuteCapturesStdout(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), "/bin/echo hello")
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(out))
}

func TestRunner_ExecuteCollapsesRepeatedSpaces(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), "/bin/echo   hello    world")
	require.NoError(t, err)
	require.Equal(t, "hello world\n", string(out))
}

func TestRunner_ExecuteNonexistentProgramReturnsEmptyOutputAndError(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), "/no/such/program arg")
	require.Error(t, err)
	require.Empty(t, out)
}

func TestRunner_ExecuteCleansUpTempFile(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir)
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "/bin/echo hi")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunner_RemoveTempDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")
	r, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, r.RemoveTempDir())
	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}
