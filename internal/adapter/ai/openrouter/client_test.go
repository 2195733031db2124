package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerwingubat/RoadMapGenerator/internal/config"
	"github.com/jerwingubat/RoadMapGenerator/internal/domain"
)

type call struct {
	model string
}

// recorder is a fake provider that scripts responses per call.
type recorder struct {
	mu        sync.Mutex
	calls     []call
	responses []func(w http.ResponseWriter)
}

func (rec *recorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		rec.mu.Lock()
		rec.calls = append(rec.calls, call{model: body.Model})
		n := len(rec.calls) - 1
		rec.mu.Unlock()
		if n < len(rec.responses) {
			rec.responses[n](w)
			return
		}
		respondOK(w, `{"ok":true}`)
	}
}

func (rec *recorder) models() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]string, len(rec.calls))
	for i, c := range rec.calls {
		out[i] = c.model
	}
	return out
}

func respondOK(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":   "whatever",
		"choices": []map[string]any{{"message": map[string]any{"content": content}}},
	})
}

func respondStatus(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		OpenRouterAPIKey:  "test-key",
		OpenRouterBaseURL: baseURL,
		ModelCandidates:   []string{"model-a", "model-b"},
		MaxRetries:        2,
		RetryDelays:       []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		ChatTimeout:       5 * time.Second,
	}
}

// newTestClient swaps the sleeper for one that records requested delays
// without actually waiting.
func newTestClient(cfg config.Config) (*Client, *[]time.Duration) {
	c := New(cfg)
	var slept []time.Duration
	c.sleep = func(_ domain.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestChatJSON_FirstModelSucceeds(t *testing.T) {
	rec := &recorder{}
	ts := httptest.NewServer(rec.handler(t))
	defer ts.Close()

	c, slept := newTestClient(testConfig(ts.URL))
	content, model, err := c.ChatJSON(context.Background(), "", "sys", "user", 64)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, content)
	assert.Equal(t, "model-a", model)
	assert.Equal(t, []string{"model-a"}, rec.models())
	assert.Empty(t, *slept)
}

func TestChatJSON_RequestedModelGoesFirstAndDedupes(t *testing.T) {
	rec := &recorder{}
	ts := httptest.NewServer(rec.handler(t))
	defer ts.Close()

	c, _ := newTestClient(testConfig(ts.URL))
	_, model, err := c.ChatJSON(context.Background(), "model-b", "sys", "user", 64)
	require.NoError(t, err)
	assert.Equal(t, "model-b", model)
	assert.Equal(t, []string{"model-b"}, rec.models())

	// Dedup: candidate order is requested, then remaining preference list.
	got := c.candidates("model-b")
	assert.Equal(t, []string{"model-b", "model-a"}, got)
}

func TestChatJSON_RetriesServerErrorWithFixedDelays(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		respondStatus(http.StatusInternalServerError, "boom"),
	}}
	ts := httptest.NewServer(rec.handler(t))
	defer ts.Close()

	c, slept := newTestClient(testConfig(ts.URL))
	content, model, err := c.ChatJSON(context.Background(), "", "sys", "user", 64)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, content)
	assert.Equal(t, "model-a", model)
	// Same model retried after the first scheduled delay; no delay before
	// the first attempt.
	assert.Equal(t, []string{"model-a", "model-a"}, rec.models())
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, *slept)
}

func TestChatJSON_RateLimitSkipsToNextModel(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		respondStatus(http.StatusTooManyRequests, "rate limited"),
	}}
	ts := httptest.NewServer(rec.handler(t))
	defer ts.Close()

	c, slept := newTestClient(testConfig(ts.URL))
	_, model, err := c.ChatJSON(context.Background(), "", "sys", "user", 64)
	require.NoError(t, err)
	assert.Equal(t, "model-b", model)
	// 429 aborts model-a immediately, no retry and no sleep.
	assert.Equal(t, []string{"model-a", "model-b"}, rec.models())
	assert.Empty(t, *slept)
}

func TestChatJSON_UnknownModelSkipsToNextModel(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		respondStatus(http.StatusNotFound, "no such model"),
	}}
	ts := httptest.NewServer(rec.handler(t))
	defer ts.Close()

	c, _ := newTestClient(testConfig(ts.URL))
	_, model, err := c.ChatJSON(context.Background(), "bad/model", "sys", "user", 64)
	require.NoError(t, err)
	assert.Equal(t, "model-a", model)
	assert.Equal(t, []string{"bad/model", "model-a"}, rec.models())
}

func TestChatJSON_AllModelsExhausted(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		respondStatus(http.StatusInternalServerError, "err one"),
		respondStatus(http.StatusInternalServerError, "err two"),
		respondStatus(http.StatusInternalServerError, "err three"),
		respondStatus(http.StatusBadGateway, "last error body"),
	}}
	ts := httptest.NewServer(rec.handler(t))
	defer ts.Close()

	c, slept := newTestClient(testConfig(ts.URL))
	_, _, err := c.ChatJSON(context.Background(), "", "sys", "user", 64)
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrUpstreamExhausted)

	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadGateway, ue.Status)
	assert.Equal(t, "last error body", ue.Body)

	// Two attempts per model (min(MaxRetries=2, len(delays)=2)), one
	// scheduled delay inside each model.
	assert.Equal(t, []string{"model-a", "model-a", "model-b", "model-b"}, rec.models())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, *slept)
}

func TestChatJSON_MissingAPIKey(t *testing.T) {
	c, _ := newTestClient(config.Config{ModelCandidates: []string{"m"}})
	_, _, err := c.ChatJSON(context.Background(), "", "sys", "user", 64)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestChatJSON_NoCandidates(t *testing.T) {
	c, _ := newTestClient(config.Config{OpenRouterAPIKey: "k"})
	_, _, err := c.ChatJSON(context.Background(), "", "sys", "user", 64)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestChatJSON_ContextCancelledDuringSleep(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		respondStatus(http.StatusInternalServerError, "boom"),
	}}
	ts := httptest.NewServer(rec.handler(t))
	defer ts.Close()

	c := New(testConfig(ts.URL))
	c.sleep = func(ctx domain.Context, _ time.Duration) error { return context.Canceled }
	_, _, err := c.ChatJSON(context.Background(), "", "sys", "user", 64)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCandidates_EmptyEntriesDropped(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.ModelCandidates = []string{"", "model-a", "model-a", "model-c"}
	c := New(cfg)
	assert.Equal(t, []string{"model-a", "model-c"}, c.candidates(""))
}
