package engine

import "strings"

// Keywords that mark a diagnostic line worth carrying into the next attempt.
var diagnosticKeywords = []string{
	"FAILED", "ERROR", "Error", "Exception", "assert",
	"ImportError", "ModuleNotFoundError", "SyntaxError",
	"TypeError", "AttributeError", "NameError",
}

const (
	maxDiagnosticLines = 40
	maxFallbackLines   = 30
)

// summarizeFailure extracts a compact diagnostic digest from captured harness
// output. The digest is what the next attempt's generation request carries,
// so it favors the lines that name the actual failure over raw output volume.
func summarizeFailure(combined string) string {
	lines := strings.Split(combined, "\n")

	var important []string
	for _, line := range lines {
		for _, kw := range diagnosticKeywords {
			if strings.Contains(line, kw) {
				important = append(important, line)
				break
			}
		}
		if len(important) == maxDiagnosticLines {
			break
		}
	}
	if len(important) > 0 {
		return strings.Join(important, "\n")
	}

	// No recognizable diagnostics: fall back to the tail of the output.
	if len(lines) > maxFallbackLines {
		lines = lines[len(lines)-maxFallbackLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
