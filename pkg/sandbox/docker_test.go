package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRunArgsAppliesIsolation(t *testing.T) {
	d := NewDockerExecutor("python:3.12-slim")
	args := d.buildRunArgs("c1", "/tmp/work", testPayload(), DefaultOpts())
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "--network none")
	assert.Contains(t, joined, "--read-only")
	assert.Contains(t, joined, "--cpus 2")
	assert.Contains(t, joined, "--memory 1g")
	assert.Contains(t, joined, "--pids-limit 256")
	assert.Contains(t, joined, "pytest test_sample_tool.py")
	assert.NotContains(t, joined, "pip")
}

func TestBuildRunArgsPutsRequirementsOnPythonPath(t *testing.T) {
	d := NewDockerExecutor("python:3.12-slim")
	payload := testPayload()
	payload.Requirements = []string{"requests==2.32.0"}

	args := d.buildRunArgs("c1", "/tmp/work", payload, DefaultOpts())
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "PYTHONPATH=/work/"+depsDir)
	assert.Contains(t, joined, "--network none", "installed deps do not reopen the network")
	assert.NotContains(t, joined, "pip install")
}

func TestBuildInstallArgsKeepsNetworkAndLimits(t *testing.T) {
	d := NewDockerExecutor("python:3.12-slim")
	args := d.buildInstallArgs("c2", "/tmp/work", DefaultOpts())
	joined := strings.Join(args, " ")

	assert.NotContains(t, joined, "--network none", "pip needs to reach the package index")
	assert.Contains(t, joined, "pip install")
	assert.Contains(t, joined, "--target "+depsDir)
	assert.Contains(t, joined, "--memory 1g")
}
