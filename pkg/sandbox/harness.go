package sandbox

import (
	"regexp"
	"strconv"
)

// harnessArgs is the pytest invocation run inside the sandbox. The -p no:cacheprovider
// flag keeps pytest from writing cache state into the workdir.
func harnessArgs(toolName string) []string {
	return []string{
		"-m", "pytest",
		"test_" + toolName + ".py",
		"-v", "--tb=short", "--no-header",
		"-p", "no:cacheprovider",
	}
}

// depsDir is the workdir-relative directory a candidate's declared
// requirements are staged into; the harness runs with it on PYTHONPATH.
const depsDir = ".deps"

// pipInstallArgs is the pip invocation that stages requirements.txt into
// depsDir. Relative paths resolve against the workdir.
func pipInstallArgs() []string {
	return []string{
		"-m", "pip", "install",
		"--quiet", "--no-input",
		"--target", depsDir,
		"-r", "requirements.txt",
	}
}

var passedRe = regexp.MustCompile(`(\d+) passed`)

// parseTestsPassed extracts the passing-test count from a pytest summary line
// such as "=== 3 passed in 0.21s ===". Returns -1 when no summary is present
// (harness failed to run at all).
func parseTestsPassed(output string) int {
	m := passedRe.FindStringSubmatch(output)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}
