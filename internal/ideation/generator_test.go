package ideation

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolforge/internal/topics"
	"toolforge/pkg/corpus"
	"toolforge/pkg/llm"
	"toolforge/pkg/llm/llmerrors"
)

const ideaResponse = `[
  {"tool_name": "Prompt-Diff!", "display_name": "Prompt Diff", "description": "diffs two prompt files", "key_features": ["color output"]},
  {"tool_name": "token_meter", "display_name": "Token Meter", "description": "counts tokens in files", "key_features": ["csv export"]},
  {"tool_name": "empty_desc", "display_name": "Nope", "description": "   ", "key_features": []}
]`

func testTopic() topics.Topic {
	return topics.Topic{
		Label: "prompt tooling",
		Items: []corpus.Item{{Title: "prompt tools trending"}},
	}
}

func TestGenerateParsesAndNormalizes(t *testing.T) {
	gen := New(llm.NewMockClient(llm.MockText(ideaResponse)))

	specs, err := gen.Generate(context.Background(), testTopic(), 5)
	require.NoError(t, err)
	require.Len(t, specs, 2, "empty-description idea is rejected")

	assert.Equal(t, "prompt_diff", specs[0].Name)
	assert.Equal(t, "Prompt Diff", specs[0].DisplayName)
	assert.Equal(t, "prompt tooling", specs[0].Topic)
	assert.Equal(t, "token_meter", specs[1].Name)
}

func TestGenerateTruncatesToLimit(t *testing.T) {
	gen := New(llm.NewMockClient(llm.MockText(ideaResponse)))

	specs, err := gen.Generate(context.Background(), testTopic(), 1)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	// Limit is enforced by truncation; one request only.
	assert.Equal(t, 1, gen.client.(*llm.MockClient).CallCount())
}

func TestGenerateDeduplicatesAcrossRun(t *testing.T) {
	gen := New(llm.NewMockClient(llm.MockText(ideaResponse)))

	first, err := gen.Generate(context.Background(), testTopic(), 5)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := gen.Generate(context.Background(), testTopic(), 5)
	require.NoError(t, err)
	assert.Empty(t, second, "names already produced in the run are filtered")
}

func TestGenerateEnvelopeResponse(t *testing.T) {
	envelope := `{"ideas": [{"tool_name": "wrapped", "description": "a tool", "key_features": []}]}`
	gen := New(llm.NewMockClient(llm.MockText(envelope)))

	specs, err := gen.Generate(context.Background(), testTopic(), 5)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "wrapped", specs[0].Name)
}

func TestGenerateMalformed(t *testing.T) {
	gen := New(llm.NewMockClient(llm.MockText("no ideas today")))

	_, err := gen.Generate(context.Background(), testTopic(), 5)
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeMalformed))
}

func TestGenerateZeroLimit(t *testing.T) {
	client := llm.NewMockClient(llm.MockText(ideaResponse))
	specs, err := New(client).Generate(context.Background(), testTopic(), 0)
	require.NoError(t, err)
	assert.Empty(t, specs)
	assert.Equal(t, 0, client.CallCount(), "no request for a zero limit")
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// Two-byte runes guarantee a boundary falls mid-rune at an odd cutoff.
	s := strings.Repeat("é", 300)

	got := truncate(s, maxDescriptionLen)
	assert.LessOrEqual(t, len(got), maxDescriptionLen)
	assert.True(t, utf8.ValidString(got), "no split rune at the cut point")
	assert.Equal(t, maxDescriptionLen, len(got), "even boundary cuts cleanly")

	got = truncate(s, 499)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 498, len(got), "odd boundary backs off to the rune start")

	assert.Equal(t, "short", truncate("short", maxDescriptionLen))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Prompt-Diff!", "prompt_diff"},
		{"already_fine", "already_fine"},
		{"__trimmed__", "trimmed"},
		{"CamelCase Tool", "camelcase_tool"},
		{"***", ""},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}
