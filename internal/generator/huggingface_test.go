package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wikirag/internal/domain"
)

func newTestGenerator(t *testing.T, handler http.Handler) *HuggingFace {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_HF_KEY", "secret")
	g, err := NewHuggingFace(Config{
		BaseURL:   srv.URL,
		APIKeyEnv: "TEST_HF_KEY",
		Model:     "test/model",
		Timeout:   2 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return g
}

func TestGenerateParsesReplies(t *testing.T) {
	g := newTestGenerator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test/model", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Inputs     string `json:"inputs"`
			Parameters struct {
				MaxNewTokens int     `json:"max_new_tokens"`
				Temperature  float64 `json:"temperature"`
				DoSample     bool    `json:"do_sample"`
			} `json:"parameters"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "why?", body.Inputs)
		assert.Equal(t, 512, body.Parameters.MaxNewTokens)
		assert.InDelta(t, 0.7, body.Parameters.Temperature, 1e-9)
		assert.True(t, body.Parameters.DoSample)

		_, _ = w.Write([]byte(`[{"generated_text":"because"},{"generated_text":"therefore"}]`))
	}))

	replies, err := g.Generate(context.Background(), "why?")
	require.NoError(t, err)
	assert.Equal(t, []string{"because", "therefore"}, replies)
}

func TestGenerateEmptyRepliesIsNotAnError(t *testing.T) {
	g := newTestGenerator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))

	replies, err := g.Generate(context.Background(), "why?")
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestGenerateRetriesColdStart(t *testing.T) {
	calls := 0
	g := newTestGenerator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"generated_text":"warm now"}]`))
	}))

	replies, err := g.Generate(context.Background(), "why?")
	require.NoError(t, err)
	assert.Equal(t, []string{"warm now"}, replies)
	assert.Equal(t, 2, calls)
}

func TestGenerateWrapsProviderFailure(t *testing.T) {
	g := newTestGenerator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))

	_, err := g.Generate(context.Background(), "why?")
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestNewHuggingFaceRequiresAPIKey(t *testing.T) {
	t.Setenv("TEST_HF_KEY", "")
	_, err := NewHuggingFace(Config{APIKeyEnv: "TEST_HF_KEY"}, zap.NewNop())
	assert.Error(t, err)
}
