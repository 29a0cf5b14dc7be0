package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePrometheus answers instant queries with canned vector samples keyed on
// substrings of the PromQL expression.
func fakePrometheus(t *testing.T, answer func(query string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, answer(r.FormValue("query")))
	}))
}

func vectorSample(value string) string {
	return fmt.Sprintf(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1693000000,%q]}]}}`, value)
}

func TestGetUsageAggregatesTokenCounters(t *testing.T) {
	srv := fakePrometheus(t, func(query string) string {
		switch {
		case strings.Contains(query, `type="prompt"`):
			return vectorSample("1200")
		case strings.Contains(query, `type="completion"`):
			return vectorSample("300")
		case strings.Contains(query, "llm_requests_total"):
			return vectorSample("7")
		default:
			return `{"status":"success","data":{"resultType":"vector","result":[]}}`
		}
	})
	defer srv.Close()

	qs, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	usage, err := qs.GetUsage(context.Background(), "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", usage.Provider)
	assert.Equal(t, int64(1200), usage.PromptTokens)
	assert.Equal(t, int64(300), usage.CompletionTokens)
	assert.Equal(t, int64(1500), usage.TotalTokens)
	assert.Equal(t, int64(7), usage.Requests)
}

func TestGetUsageByModelBreaksDownPerModel(t *testing.T) {
	srv := fakePrometheus(t, func(query string) string {
		switch {
		case strings.Contains(query, "group by (model)"):
			return `{"status":"success","data":{"resultType":"vector","result":[` +
				`{"metric":{"model":"sonnet"},"value":[1693000000,"1"]}]}}`
		case strings.Contains(query, `type="prompt"`):
			return vectorSample("800")
		case strings.Contains(query, `type="completion"`):
			return vectorSample("200")
		default:
			return `{"status":"success","data":{"resultType":"vector","result":[]}}`
		}
	})
	defer srv.Close()

	qs, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	byModel, err := qs.GetUsageByModel(context.Background(), "anthropic")
	require.NoError(t, err)
	require.Contains(t, byModel, "sonnet")
	assert.Equal(t, int64(800), byModel["sonnet"].PromptTokens)
	assert.Equal(t, int64(200), byModel["sonnet"].CompletionTokens)
	assert.Equal(t, int64(1000), byModel["sonnet"].TotalTokens)
}

func TestGetUsageWithNoRecordedSamples(t *testing.T) {
	srv := fakePrometheus(t, func(string) string {
		return `{"status":"success","data":{"resultType":"vector","result":[]}}`
	})
	defer srv.Close()

	qs, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	usage, err := qs.GetUsage(context.Background(), "ollama")
	require.NoError(t, err)
	assert.Zero(t, usage.TotalTokens)
	assert.Zero(t, usage.Requests)
}
