// Package generator provides the answer generator collaborator. The core
// treats generation as opaque: prompt in, candidate replies out.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"wikirag/internal/domain"
)

var _ domain.Generator = (*HuggingFace)(nil)

// Config configures the HuggingFace serverless inference client.
// The model must be available on the serverless inference API.
type Config struct {
	BaseURL      string
	APIKeyEnv    string
	Model        string
	Timeout      time.Duration
	MaxNewTokens int
	Temperature  float64
}

// HuggingFace generates text through the HuggingFace serverless
// inference API.
type HuggingFace struct {
	baseURL      string
	apiKey       string
	model        string
	client       *http.Client
	maxRetries   int
	maxNewTokens int
	temperature  float64
	logger       *zap.Logger
}

// NewHuggingFace creates a generator client. The API key is read from the
// environment variable named by APIKeyEnv.
func NewHuggingFace(cfg Config, logger *zap.Logger) (*HuggingFace, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.Model == "" {
		cfg.Model = "HuggingFaceH4/zephyr-7b-beta"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxNewTokens == 0 {
		cfg.MaxNewTokens = 512
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFace{
		baseURL:      cfg.BaseURL,
		apiKey:       key,
		model:        cfg.Model,
		client:       &http.Client{Timeout: cfg.Timeout},
		maxRetries:   3,
		maxNewTokens: cfg.MaxNewTokens,
		temperature:  cfg.Temperature,
		logger:       logger,
	}, nil
}

// Generate returns the candidate replies for the prompt. The slice may be
// empty; deciding what that means is the caller's business.
func (g *HuggingFace) Generate(ctx context.Context, prompt string) ([]string, error) {
	replies, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", domain.ErrProvider, err)
	}
	return replies, nil
}

func (g *HuggingFace) generate(ctx context.Context, prompt string) ([]string, error) {
	type parameters struct {
		MaxNewTokens   int     `json:"max_new_tokens"`
		Temperature    float64 `json:"temperature"`
		DoSample       bool    `json:"do_sample"`
		ReturnFullText bool    `json:"return_full_text"`
	}
	type reqBody struct {
		Inputs     string     `json:"inputs"`
		Parameters parameters `json:"parameters"`
	}

	url := fmt.Sprintf("%s/models/%s", g.baseURL, g.model)
	body := reqBody{
		Inputs: prompt,
		Parameters: parameters{
			MaxNewTokens: g.maxNewTokens,
			Temperature:  g.temperature,
			DoSample:     true,
		},
	}
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		data, _ := json.Marshal(body)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.apiKey)

		resp, err := g.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < g.maxRetries {
				if err := sleep(ctx, retryDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		// 503 while the model loads is the API's normal cold-start answer.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("inference request failed: %s", resp.Status)
			if attempt < g.maxRetries {
				g.logger.Debug("retrying inference request",
					zap.Int("attempt", attempt), zap.String("status", resp.Status))
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("inference request failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}

		var out []struct {
			GeneratedText string `json:"generated_text"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("decode inference response: %v", err)
		}
		replies := make([]string, 0, len(out))
		for _, o := range out {
			if o.GeneratedText != "" {
				replies = append(replies, o.GeneratedText)
			}
		}
		return replies, nil
	}
	return nil, lastErr
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 500 * time.Millisecond
	d := base << attempt
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
