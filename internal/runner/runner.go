// Package runner executes one job command line as a child process and
// captures its stdout (spec §4.6).
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner runs job commands, writing their captured stdout to a scratch
// directory it owns.
type Runner struct {
	tempDir string
}

// New creates a Runner that stages captured output under tempDir. The
// directory is not created here; Execute creates it on first use if it does
// not already exist.
func New(tempDir string) (*Runner, error) {
	return &Runner{tempDir: tempDir}, nil
}

// Execute tokenises command on whitespace, runs the first token as a
// program with the rest as its argument vector, and returns whatever it
// wrote to stdout. A child that fails to start or exits non-zero still has
// its (possibly empty) captured output returned — the caller does not
// receive the exec error as a hard failure, only as a best-effort wrapped
// error for logging.
func (r *Runner) Execute(ctx context.Context, command string) ([]byte, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("runner: empty command")
	}

	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("runner: create temp dir: %w", err)
	}

	out, err := os.CreateTemp(r.tempDir, "job-*.output")
	if err != nil {
		return nil, fmt.Errorf("runner: create output file: %w", err)
	}
	outputPath := out.Name()
	defer os.Remove(outputPath)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = out

	runErr := cmd.Run()
	if closeErr := out.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}

	captured, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return nil, fmt.Errorf("runner: read captured output: %w", readErr)
	}

	if runErr != nil {
		return captured, fmt.Errorf("runner: run %q: %w", command, runErr)
	}
	return captured, nil
}

// RemoveTempDir deletes the scratch directory and everything in it. Called
// once, on clean shutdown (spec §4.7).
func (r *Runner) RemoveTempDir() error {
	return os.RemoveAll(r.tempDir)
}
