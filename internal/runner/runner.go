// Package runner executes generated Python scripts.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds one script execution.
const DefaultTimeout = 30 * time.Second

// Runner executes scripts with a Python interpreter.
type Runner struct {
	// Python is the interpreter binary, "python3" when empty.
	Python string
	// Timeout bounds one execution, DefaultTimeout when zero.
	Timeout time.Duration
	// Dir is the working directory for the script, inherited when empty.
	Dir string
}

// ExecResult captures the outcome of one script run.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Run executes the script at path and returns its captured output. A
// non-zero exit or a timeout is reported as an error alongside the result,
// so callers can still show the script's output.
func (r *Runner) Run(ctx context.Context, path string) (*ExecResult, error) {
	python := r.Python
	if python == "" {
		python = "python3"
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, python, path)
	cmd.Dir = r.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("execution timed out after %s", timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, fmt.Errorf("script exited with code %d", res.ExitCode)
		}
		return res, fmt.Errorf("run script: %w", err)
	}
	return res, nil
}
