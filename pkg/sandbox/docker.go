package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"toolforge/pkg/logx"
)

// Exit code Docker reports when the container was killed by the OOM killer.
const oomExitCode = 137

// DockerExecutor runs the harness in a throwaway container: no network,
// read-only root filesystem, CPU/memory/PID ceilings, workdir bind-mounted
// from a per-invocation temp directory.
type DockerExecutor struct {
	logger    *logx.Logger
	image     string
	dockerCmd string
}

// NewDockerExecutor creates a new Docker executor for the given image.
func NewDockerExecutor(image string) *DockerExecutor {
	// Prefer docker; fall back to podman when only podman is installed.
	dockerCmd := "docker"
	if _, err := exec.LookPath("docker"); err != nil {
		if _, err := exec.LookPath("podman"); err == nil {
			dockerCmd = "podman"
		}
	}
	return &DockerExecutor{
		logger:    logx.NewLogger("sandbox-docker"),
		image:     image,
		dockerCmd: dockerCmd,
	}
}

// Name returns the executor type name.
func (d *DockerExecutor) Name() ExecutorType {
	return ExecutorTypeDocker
}

// Available checks if the container runtime is installed and the daemon responds.
func (d *DockerExecutor) Available() bool {
	if _, err := exec.LookPath(d.dockerCmd); err != nil {
		d.logger.Debug("container runtime not found: %v", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, d.dockerCmd, "ps", "-q").Run(); err != nil {
		d.logger.Debug("container daemon not available: %v", err)
		return false
	}
	return true
}

// Execute implements the Executor interface.
func (d *DockerExecutor) Execute(ctx context.Context, payload Payload, opts Opts) (Result, error) {
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

	// Requirements are staged in a separate container that has network access
	// to reach the package index; the test container still runs isolated. A
	// failed install ends the run with pip's output as the result.
	if len(payload.Requirements) > 0 {
		installName := "toolforge-install-" + uuid.NewString()[:8]
		if result, ok, err := d.runContainer(ctx, execCtx, installName,
			d.buildInstallArgs(installName, workDir, opts)); !ok {
			return result, err
		}
	}

	containerName := "toolforge-sandbox-" + uuid.NewString()[:8]
	result, _, err := d.runContainer(ctx, execCtx, containerName,
		d.buildRunArgs(containerName, workDir, payload, opts))
	return result, err
}

// runContainer runs one container invocation and interprets its outcome.
// ok is false when the invocation did not complete cleanly and the returned
// result (and error) should end the Execute call.
func (d *DockerExecutor) runContainer(parent, execCtx context.Context, containerName string, args []string) (Result, bool, error) {
	start := time.Now()
	cmd := exec.CommandContext(execCtx, d.dockerCmd, args...)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	duration := time.Since(start)

	result := Result{
		Stdout:       stdoutBuf.String(),
		Stderr:       stderrBuf.String(),
		ExecutorUsed: string(d.Name()),
		Duration:     duration,
		TestsPassed:  -1,
	}
	result.TestsPassed = parseTestsPassed(result.Combined())

	if execCtx.Err() != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		d.kill(containerName)
		result.ExitCode = 124
		return result, false, ErrTimeoutExceeded
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			if result.ExitCode == oomExitCode {
				return result, false, ErrResourceExceeded
			}
			return result, false, nil
		}
		result.ExitCode = -1
		return result, false, fmt.Errorf("failed to run container: %w", runErr)
	}

	return result, true, nil
}

// buildRunArgs assembles the docker run invocation for the test container.
func (d *DockerExecutor) buildRunArgs(containerName, workDir string, payload Payload, opts Opts) []string {
	args := []string{
		"run", "--rm",
		"--name", containerName,
		"-v", workDir + ":/work",
		"-w", "/work",
		"--read-only",
		"--tmpfs", "/tmp",
	}

	if opts.NetworkDisabled {
		args = append(args, "--network", "none")
	}
	args = appendResourceLimits(args, opts.ResourceLimits)

	if len(payload.Requirements) > 0 {
		args = append(args, "-e", "PYTHONPATH=/work/"+depsDir)
	}

	args = append(args, d.image, "python")
	args = append(args, harnessArgs(payload.ToolName)...)
	return args
}

// buildInstallArgs assembles the docker run invocation for the dependency
// install container. It keeps network access so pip can reach the index, but
// carries the same resource ceilings as the test container.
func (d *DockerExecutor) buildInstallArgs(containerName, workDir string, opts Opts) []string {
	args := []string{
		"run", "--rm",
		"--name", containerName,
		"-v", workDir + ":/work",
		"-w", "/work",
		"--tmpfs", "/tmp",
	}
	args = appendResourceLimits(args, opts.ResourceLimits)

	args = append(args, d.image, "python")
	args = append(args, pipInstallArgs()...)
	return args
}

func appendResourceLimits(args []string, limits *ResourceLimits) []string {
	if limits == nil {
		return args
	}
	if limits.CPUs != "" {
		args = append(args, "--cpus", limits.CPUs)
	}
	if limits.Memory != "" {
		args = append(args, "--memory", limits.Memory)
	}
	if limits.PIDs > 0 {
		args = append(args, "--pids-limit", strconv.FormatInt(limits.PIDs, 10))
	}
	return args
}

// kill force-removes a container that outlived its timeout. Best effort; the
// --rm flag handles cleanup once the process dies.
func (d *DockerExecutor) kill(containerName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, d.dockerCmd, "rm", "-f", containerName).Run(); err != nil {
		d.logger.Warn("failed to remove container %s: %v", containerName, err)
	}
}
