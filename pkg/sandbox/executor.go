// Package sandbox provides isolated execution of untrusted generated code
// against its test harness, with wall-clock timeouts and resource ceilings.
// Local and Docker-based executors are provided; every invocation runs in a
// fresh working directory that is torn down before the call returns.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"context"
)

// ExecutorType represents the type of executor.
type ExecutorType string

// Executor type constants.
const (
	ExecutorTypeLocal  ExecutorType = "local"
	ExecutorTypeDocker ExecutorType = "docker"
)

// Sentinel errors for infrastructure-level failures. Callers treat both as
// failed attempts, not run-level crashes.
var (
	// ErrTimeoutExceeded indicates the harness exceeded its wall-clock ceiling.
	ErrTimeoutExceeded = errors.New("sandbox timeout exceeded")

	// ErrResourceExceeded indicates the harness was killed for exceeding a
	// memory or process ceiling.
	ErrResourceExceeded = errors.New("sandbox resource ceiling exceeded")
)

// Payload is the candidate handed to the sandbox: one generated tool plus its
// generated test suite.
type Payload struct {
	// ToolName is the snake_case module name; files are written as
	// <ToolName>.py and test_<ToolName>.py.
	ToolName string

	// Source is the generated tool implementation.
	Source string

	// Test is the generated test suite.
	Test string

	// Requirements lists third-party packages the candidate declares.
	Requirements []string
}

// ResourceLimits defines resource constraints for harness execution.
type ResourceLimits struct {
	// CPUs is the number of CPU cores to allocate (e.g. "2" or "1.5").
	CPUs string

	// Memory is the memory limit (e.g. "1g", "512m").
	Memory string

	// PIDs is the maximum number of processes/threads.
	PIDs int64
}

// Opts contains options for harness execution.
type Opts struct {
	// Timeout is the wall-clock ceiling for one harness run.
	Timeout time.Duration

	// WorkRoot is the base directory under which per-invocation workdirs are
	// created. Empty means the system temp directory.
	WorkRoot string

	// ResourceLimits contains resource constraints (Docker only).
	ResourceLimits *ResourceLimits

	// NetworkDisabled disables network access (Docker only). Generated tests
	// are required to mock network calls, so this defaults on in the pipeline.
	NetworkDisabled bool
}

// DefaultOpts returns default execution options.
func DefaultOpts() Opts {
	return Opts{
		Timeout:         60 * time.Second,
		NetworkDisabled: true,
		ResourceLimits: &ResourceLimits{
			CPUs:   "2",
			Memory: "1g",
			PIDs:   256,
		},
	}
}

// Result contains the structured result of one harness run. Acceptance
// criteria are checked against this result alone.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string

	// Stderr contains the captured standard error.
	Stderr string

	// ExecutorUsed indicates which executor produced the result.
	ExecutorUsed string

	// Duration is the harness wall-clock time.
	Duration time.Duration

	// ExitCode is the harness exit code. Zero means all tests passed.
	ExitCode int

	// TestsPassed is the number of passing tests parsed from the harness
	// summary, or -1 when no summary could be parsed.
	TestsPassed int
}

// Combined returns stdout and stderr concatenated, for diagnostic feedback.
func (r *Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Executor defines the interface for running a candidate's harness in an
// isolated environment.
type Executor interface {
	// Execute writes the payload into a fresh working directory, runs its
	// test harness under opts, and returns the structured result. The
	// working directory is removed before Execute returns, even on timeout.
	Execute(ctx context.Context, payload Payload, opts Opts) (Result, error)

	// Name returns the executor type name for logging.
	Name() ExecutorType

	// Available returns true if this executor can be used in the current
	// environment.
	Available() bool
}

// writePayload materializes a payload into dir.
func writePayload(dir string, payload Payload) error {
	if payload.ToolName == "" {
		return fmt.Errorf("payload tool name cannot be empty")
	}
	files := map[string]string{
		payload.ToolName + ".py":           payload.Source,
		"test_" + payload.ToolName + ".py": payload.Test,
	}
	if len(payload.Requirements) > 0 {
		files["requirements.txt"] = strings.Join(payload.Requirements, "\n") + "\n"
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// makeWorkDir creates a unique per-invocation working directory.
func makeWorkDir(root string) (string, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return "", fmt.Errorf("failed to create work root %s: %w", root, err)
		}
	}
	dir, err := os.MkdirTemp(root, "sandbox-")
	if err != nil {
		return "", fmt.Errorf("failed to create sandbox workdir: %w", err)
	}
	return dir, nil
}
