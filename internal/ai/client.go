// Package ai talks to an OpenAI-compatible chat completion gateway.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"schoolhub/internal/common"

	openai "github.com/sashabaranov/go-openai"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer sends a conversation and returns the assistant reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

type Client struct {
	api   *openai.Client
	model string
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Model() string {
	return c.model
}

// Complete makes a single call; failures are not retried.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", gatewayError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai gateway: empty choices: %w", common.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

// gatewayError maps the gateway's HTTP status onto the API's sentinels.
func gatewayError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("ai gateway: %w", common.ErrRateLimited)
	case http.StatusPaymentRequired:
		return fmt.Errorf("ai gateway: %w", common.ErrCreditsExhausted)
	}
	if status != 0 {
		return fmt.Errorf("ai gateway returned %d: %v: %w", status, err, common.ErrUpstream)
	}
	return fmt.Errorf("ai gateway: %v: %w", err, common.ErrUpstream)
}
