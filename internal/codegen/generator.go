// Package codegen implements the generative code service over an LLM client:
// given a tool specification and optional failure feedback, it returns a
// candidate implementation plus its test suite.
package codegen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"toolforge/internal/engine"
	"toolforge/pkg/llm"
	"toolforge/pkg/llm/llmerrors"
	"toolforge/pkg/logx"
)

const buildSystemPrompt = `You are an expert Python developer. You write clean, working, well-documented Python tools. Your code MUST:
- Run correctly with no unhandled exceptions
- Include proper CLI argument parsing (use argparse, not sys.argv directly)
- Handle edge cases (empty input, network errors, missing files, etc.)
- Use only stdlib plus freely available pip packages
- Have a working __main__ guard
- Be self-contained in a single .py file

The test code MUST:
- Use pytest
- Test the main functions directly (not just CLI)
- Include at least 3 meaningful test cases
- Mock external network calls (use unittest.mock)
- All tests must pass without network access`

const buildPromptTemplate = `Build a complete Python tool based on this specification:

TOOL NAME: %s
DISPLAY NAME: %s
DESCRIPTION: %s
KEY FEATURES: %s

Return ONLY a JSON object with exactly these keys:
{
  "code": "complete Python source code for the tool (string, newlines as \n)",
  "test_code": "complete pytest test file (string, newlines as \n)",
  "requirements": ["package1==version", "package2"]
}

Requirements:
- The tool file will be named %s.py
- The test file will be named test_%s.py and must import from %s
- Test code must have 3+ passing tests (mock all external calls)`

const fixPromptTemplate = `Your previous implementation of this Python tool failed validation.

TOOL NAME: %s
SPECIFICATION: %s

VALIDATION ERRORS:
` + "```" + `
%s
` + "```" + `

Generate a corrected, complete implementation from scratch that fixes every
error above. Return ONLY a JSON object with the same structure as before:
{
  "code": "fixed Python source code",
  "test_code": "fixed pytest test file",
  "requirements": ["package1", "package2"]
}

Ensure mocks are correct and tests do not depend on network access.`

// MaxTokens bounds a single code-generation response.
const MaxTokens = 8192

// Generator produces candidates through an LLM client. It is stateless:
// every request is built solely from the specification and the feedback
// passed in, so concurrent loops can share one Generator.
type Generator struct {
	logger *logx.Logger
	client llm.Client
}

// New creates a code generator over the given client.
func New(client llm.Client) *Generator {
	return &Generator{
		logger: logx.NewLogger("codegen"),
		client: client,
	}
}

// Generate implements engine.Generator.
func (g *Generator) Generate(ctx context.Context, spec engine.ToolSpecification, feedback string) (engine.Candidate, error) {
	var prompt string
	if feedback == "" {
		prompt = fmt.Sprintf(buildPromptTemplate,
			spec.Name, spec.DisplayName, spec.Description, strings.Join(spec.Features, ", "),
			spec.Name, spec.Name, spec.Name)
	} else {
		prompt = fmt.Sprintf(fixPromptTemplate, spec.Name, spec.Description, feedback)
	}

	resp, err := g.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(buildSystemPrompt),
			llm.NewUserMessage(prompt),
		},
		MaxTokens:   MaxTokens,
		Temperature: llm.TemperatureCodegen,
	})
	if err != nil {
		return engine.Candidate{}, err
	}

	return parseCandidate(resp.Content)
}

// parseCandidate decodes a model response into a candidate. Every failure
// mode here is Malformed: the service responded, the payload is unusable.
func parseCandidate(content string) (engine.Candidate, error) {
	payload, err := llm.ExtractJSON(content)
	if err != nil {
		return engine.Candidate{}, err
	}

	var out struct {
		Code         string   `json:"code"`
		TestCode     string   `json:"test_code"`
		Requirements []string `json:"requirements"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return engine.Candidate{}, llmerrors.NewErrorWithCause(
			llmerrors.ErrorTypeMalformed, err, "response JSON did not decode")
	}
	if strings.TrimSpace(out.Code) == "" || strings.TrimSpace(out.TestCode) == "" {
		return engine.Candidate{}, llmerrors.NewError(
			llmerrors.ErrorTypeMalformed, "response missing code or test_code")
	}

	return engine.Candidate{
		Source:       out.Code,
		Test:         out.TestCode,
		Requirements: out.Requirements,
	}, nil
}
