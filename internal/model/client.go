package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/ticket-intake/internal/config"
)

// Generator produces free-form text for a prompt. Failures are plain errors;
// callers treat any error as a failed invocation.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// HTTPClient calls a text-generation-inference style endpoint.
type HTTPClient struct {
	endpoint string
	token    string
	http     *http.Client
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

// maxResponseBytes caps how much of a model response is read.
const maxResponseBytes = 1 << 20

// NewHTTPClient builds a client from configuration. Deadlines come from the
// caller's context, not from the http.Client.
func NewHTTPClient(cfg config.ModelConfig) *HTTPClient {
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		token:    cfg.APIToken,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Generate posts the prompt and returns the generated text.
func (c *HTTPClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(generateRequest{
		Inputs: prompt,
		Parameters: generateParameters{
			MaxNewTokens:   maxTokens,
			Temperature:    temperature,
			DoSample:       temperature > 0,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return decodeGeneration(raw)
}

// decodeGeneration accepts both the list and the single-object response shapes.
func decodeGeneration(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", errors.New("generate: empty response")
	}

	if trimmed[0] == '[' {
		var list []generation
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("decode generate response: %w", err)
		}
		if len(list) == 0 {
			return "", errors.New("generate: no generations returned")
		}
		return list[0].GeneratedText, nil
	}

	var single generation
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return single.GeneratedText, nil
}
