package llm

import (
	"strings"

	"toolforge/pkg/llm/llmerrors"
)

// ExtractJSON pulls the JSON document out of a model response. Models wrap
// JSON in markdown fences or prose often enough that callers should never
// unmarshal the raw content directly. Returns a Malformed error when no JSON
// object or array can be located.
func ExtractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(content)

	// Strip a markdown fence if the whole payload is fenced.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if end := strings.LastIndex(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.IndexAny(trimmed, "[{")
	if start < 0 {
		return "", llmerrors.NewError(llmerrors.ErrorTypeMalformed, "no JSON found in response")
	}

	var end int
	if trimmed[start] == '{' {
		end = strings.LastIndex(trimmed, "}")
	} else {
		end = strings.LastIndex(trimmed, "]")
	}
	if end <= start {
		return "", llmerrors.NewError(llmerrors.ErrorTypeMalformed, "unterminated JSON in response")
	}

	return trimmed[start : end+1], nil
}
