package sandbox

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// LocalExecutor runs the harness as a subprocess on the host. It provides
// timeout enforcement and per-invocation workdir isolation but no resource
// ceilings; it is intended for CI environments that already provide
// process-level isolation, and for tests.
type LocalExecutor struct {
	python string
}

// NewLocalExecutor creates a new local executor.
func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{python: "python3"}
}

// Name returns the executor type name.
func (e *LocalExecutor) Name() ExecutorType {
	return ExecutorTypeLocal
}

// Available returns true if a python interpreter is on the path.
func (e *LocalExecutor) Available() bool {
	_, err := exec.LookPath(e.python)
	return err == nil
}

// Execute implements the Executor interface.
func (e *LocalExecutor) Execute(ctx context.Context, payload Payload, opts Opts) (Result, error) {
	workDir, err := makeWorkDir(opts.WorkRoot)
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(workDir)

	if err := writePayload(workDir, payload); err != nil {
		return Result{}, err
	}

	execCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// Stage declared requirements before the harness runs. The install shares
	// the run's timeout window; a failed install is a failed run whose output
	// feeds the next attempt.
	if len(payload.Requirements) > 0 {
		if result, ok, err := e.installRequirements(ctx, execCtx, workDir); !ok {
			return result, err
		}
	}

	start := time.Now()
	cmd := exec.CommandContext(execCtx, e.python, harnessArgs(payload.ToolName)...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"PYTHONPATH="+workDir+string(os.PathListSeparator)+filepath.Join(workDir, depsDir))

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	duration := time.Since(start)

	result := Result{
		Stdout:       stdoutBuf.String(),
		Stderr:       stderrBuf.String(),
		ExecutorUsed: string(e.Name()),
		Duration:     duration,
		TestsPassed:  -1,
	}
	result.TestsPassed = parseTestsPassed(result.Combined())

	if execCtx.Err() != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.ExitCode = 124
		return result, ErrTimeoutExceeded
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// Non-zero exit is a normal failed harness run, not an error.
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// Command failed to start (missing interpreter etc.).
		result.ExitCode = -1
		return result, runErr
	}

	return result, nil
}

// installRequirements runs pip against the workdir's requirements.txt,
// targeting the workdir-local deps directory. Returns ok=false when the
// install ends the run, with the result to report.
func (e *LocalExecutor) installRequirements(parent, execCtx context.Context, workDir string) (Result, bool, error) {
	start := time.Now()
	cmd := exec.CommandContext(execCtx, e.python, pipInstallArgs()...)
	cmd.Dir = workDir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	result := Result{
		Stdout:       stdoutBuf.String(),
		Stderr:       stderrBuf.String(),
		ExecutorUsed: string(e.Name()),
		Duration:     time.Since(start),
		TestsPassed:  -1,
	}

	if execCtx.Err() != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		result.ExitCode = 124
		return result, false, ErrTimeoutExceeded
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, false, nil
		}
		result.ExitCode = -1
		return result, false, runErr
	}

	return Result{}, true, nil
}
