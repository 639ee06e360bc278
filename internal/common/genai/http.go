package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type HTTPConfig struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	MaxRetries     int
}

// HTTPClient talks to the GenAI gateway (/api/ai/generate, /api/ai/embed).
type HTTPClient struct {
	config HTTPConfig
	client *http.Client
}

func NewHTTPClient(config HTTPConfig) *HTTPClient {
	return &HTTPClient{
		config: config,
		// deadlines come from the caller's context
		client: &http.Client{},
	}
}

func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, _ := json.Marshal(map[string]interface{}{
		"prompt":      prompt,
		"model":       c.config.Model,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	})

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/api/ai/generate", body, &apiResponse); err != nil {
		if errors.Is(err, ErrLLMTimeout) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}
	return apiResponse.Text, nil
}

func (c *HTTPClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, _ := json.Marshal(map[string]interface{}{
		"texts": texts,
		"model": c.config.EmbeddingModel,
	})

	var apiResponse struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := c.post(ctx, "/api/ai/embed", body, &apiResponse); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(apiResponse.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(apiResponse.Embeddings), len(texts))
	}
	return apiResponse.Embeddings, nil
}

// post retries non-200 replies and transport errors with exponential
// backoff, and maps an expired context to ErrLLMTimeout.
func (c *HTTPClient) post(ctx context.Context, path string, body []byte, out interface{}) error {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ErrLLMTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, lastErr = c.client.Do(req)
		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			if resp != nil {
				resp.Body.Close()
			}
			return ErrLLMTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		return lastErr
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode error: %v", err)
	}
	return nil
}
