package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/energyinsight/energyinsight/internal/config"
)

// ErrNotConfigured is returned when no provider credentials are available
var ErrNotConfigured = errors.New("language model provider is not configured")

// Message is one turn sent to the model
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion call
type Options struct {
	Temperature float32
	JSONOnly    bool // ask the provider to return a strict JSON object
}

// Client is the injectable language model boundary. Production wires it to an
// OpenAI-compatible endpoint; tests wire a deterministic stub.
type Client interface {
	Chat(ctx context.Context, messages []Message, opts *Options) (string, error)
}

type openAIClient struct {
	httpClient *http.Client
	log        *zap.Logger
	apiKey     string
	baseURL    string
	model      string
}

// NewOpenAI creates a client for an OpenAI-compatible chat completions API
func NewOpenAI(cfg config.OpenAIConfig, log *zap.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return &openAIClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log.With(zap.String("component", "llm")),
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
	}, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float32         `json:"temperature"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *openAIClient) Chat(ctx context.Context, messages []Message, opts *Options) (string, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
	}
	if opts != nil {
		reqBody.Temperature = opts.Temperature
		if opts.JSONOnly {
			reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("provider returned non-200",
			zap.Int("status", resp.StatusCode), zap.Int("body_len", len(body)))
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
