// Package ideation turns ranked topics into bounded sets of tool
// specifications via the generative service.
package ideation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"toolforge/internal/engine"
	"toolforge/internal/topics"
	"toolforge/pkg/llm"
	"toolforge/pkg/llm/llmerrors"
	"toolforge/pkg/logx"
)

const ideaSystemPrompt = `You are a senior open-source Python developer specialising in developer tooling. You design practical, creative, self-contained Python CLI tools and utility scripts. Focus on genuinely useful tools that can be built in 50-300 lines of Python.`

const ideaPromptTemplate = `Topic: %s
Supporting headlines:
%s

Generate exactly %d distinct, buildable Python tool ideas related to this topic.
Each tool must be:
  - Self-contained Python script (50-300 lines)
  - Runnable from CLI or as a module
  - Testable with pytest unit tests
  - Using only freely available pip packages

Return ONLY a JSON array where each object has:
{
  "tool_name":    "snake_case_name",
  "display_name": "Human Readable Name",
  "description":  "One-paragraph description of what this tool does and why it's useful",
  "key_features": ["feature 1", "feature 2", "feature 3"]
}

Do NOT suggest tools that are overly simple wrappers or already well-known tools.
Return ONLY the JSON array.`

const (
	maxNameLen        = 50
	maxDescriptionLen = 500
	maxFeatures       = 5
	ideaMaxTokens     = 3000
)

// Generator produces tool specifications per topic. It tracks names already
// produced in the run so duplicates are filtered out across topics. Not safe
// for concurrent use; ideation is a linear phase upstream of the engine.
type Generator struct {
	logger *logx.Logger
	client llm.Client
	seen   map[string]struct{}
}

// New creates an idea generator over the given client.
func New(client llm.Client) *Generator {
	return &Generator{
		logger: logx.NewLogger("ideation"),
		client: client,
		seen:   make(map[string]struct{}),
	}
}

// Generate produces at most limit specifications for a topic. The limit is
// enforced by truncation: a short or over-eager model response is never
// re-requested. Specifications with empty descriptions or names already used
// in this run are dropped.
func (g *Generator) Generate(ctx context.Context, topic topics.Topic, limit int) ([]engine.ToolSpecification, error) {
	if limit <= 0 {
		return nil, nil
	}

	headlines := make([]string, 0, len(topic.Items))
	for _, it := range topic.Items {
		headlines = append(headlines, "  - "+it.Title)
	}

	resp, err := g.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(ideaSystemPrompt),
			llm.NewUserMessage(fmt.Sprintf(ideaPromptTemplate, topic.Label, strings.Join(headlines, "\n"), limit)),
		},
		MaxTokens:   ideaMaxTokens,
		Temperature: llm.TemperatureIdeation,
	})
	if err != nil {
		return nil, fmt.Errorf("ideation for topic %q failed: %w", topic.Label, err)
	}

	ideas, err := parseIdeas(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("ideation for topic %q failed: %w", topic.Label, err)
	}

	specs := make([]engine.ToolSpecification, 0, limit)
	for _, idea := range ideas {
		name := NormalizeName(idea.ToolName)
		if name == "" || strings.TrimSpace(idea.Description) == "" {
			continue
		}
		if _, dup := g.seen[name]; dup {
			g.logger.Debug("dropping duplicate idea %q", name)
			continue
		}
		g.seen[name] = struct{}{}

		features := idea.KeyFeatures
		if len(features) > maxFeatures {
			features = features[:maxFeatures]
		}
		specs = append(specs, engine.ToolSpecification{
			Name:        name,
			DisplayName: firstNonEmpty(idea.DisplayName, name),
			Description: truncate(idea.Description, maxDescriptionLen),
			Topic:       topic.Label,
			Features:    features,
			Criteria:    engine.AcceptanceCriteria{MinTestsPassed: 1},
		})
		if len(specs) == limit {
			break
		}
	}

	g.logger.Info("topic %q: %d specifications from %d ideas", topic.Label, len(specs), len(ideas))
	return specs, nil
}

type idea struct {
	ToolName    string   `json:"tool_name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	KeyFeatures []string `json:"key_features"`
}

func parseIdeas(content string) ([]idea, error) {
	payload, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var ideas []idea
	if err := json.Unmarshal([]byte(payload), &ideas); err == nil {
		return ideas, nil
	}

	// Some models wrap the array in an envelope object.
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &envelope); err == nil {
		for _, key := range []string{"ideas", "tools", "results"} {
			if raw, ok := envelope[key]; ok && json.Unmarshal(raw, &ideas) == nil {
				return ideas, nil
			}
		}
	}
	return nil, llmerrors.NewError(llmerrors.ErrorTypeMalformed, "response is not an idea array")
}

// NormalizeName reduces a proposed tool name to a valid snake_case python
// identifier, used both for filenames and run-wide deduplication.
func NormalizeName(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if len(name) > maxNameLen {
		name = strings.Trim(name[:maxNameLen], "_")
	}
	return name
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
