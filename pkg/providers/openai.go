package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// OpenAIClient implements Generator against OpenAI-compatible
// chat-completion APIs.
type OpenAIClient struct {
	APIKey  string
	APIBase string
	Model   string

	client *http.Client
}

// NewOpenAIClient creates a new OpenAIClient.
func NewOpenAIClient(apiKey, apiBase, model string) *OpenAIClient {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		APIKey:  apiKey,
		APIBase: apiBase,
		Model:   model,
		client:  &http.Client{},
	}
}

// GetDefaultModel returns the configured model.
func (c *OpenAIClient) GetDefaultModel() string {
	return c.Model
}

// Generate sends the payload as a single user message and returns the
// completion content.
func (c *OpenAIClient) Generate(ctx context.Context, payload string) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(c.APIBase, "/"))

	reqBody := map[string]interface{}{
		"model": c.Model,
		"messages": []map[string]string{
			{"role": "user", "content": payload},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrInvalidInput, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", statusError(resp.StatusCode, string(bodyBytes))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrService, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrService)
	}

	return response.Choices[0].Message.Content, nil
}

// statusError maps HTTP status classes onto the failure kinds.
func statusError(status int, body string) error {
	switch {
	case status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d", ErrTimeout, status)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d: %s", ErrInvalidInput, status, body)
	case status >= 500 || status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrService, status, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrService, status, body)
	}
}
