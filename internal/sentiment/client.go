package sentiment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/errors"
)

// Classifier produces a raw model answer for one review.
type Classifier interface {
	Classify(ctx context.Context, title, body string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
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

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client   *resty.Client
	endpoint string
	model    string
}

// NewOpenAIClient builds a classifier from the configured endpoint, model and
// API key.
func NewOpenAIClient(settings *conf.Settings) *OpenAIClient {
	timeout := settings.Classifier.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if settings.Classifier.APIKey != "" {
		client.SetAuthToken(settings.Classifier.APIKey)
	}
	return &OpenAIClient{
		client:   client,
		endpoint: settings.Classifier.Endpoint,
		model:    settings.Classifier.Model,
	}
}

// Classify sends the review to the model and returns the raw answer text.
func (c *OpenAIClient) Classify(ctx context.Context, title, body string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: BuildPrompt(title, body)},
		},
	}

	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(c.endpoint)
	if err != nil {
		return "", errors.New(err).
			Component("sentiment").
			Category(errors.CategoryNetwork).
			Context("endpoint", c.endpoint).
			Build()
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", errors.New(fmt.Errorf("classifier request failed: %s", msg)).
			Component("sentiment").
			Category(errors.CategoryClassifier).
			Context("status_code", resp.StatusCode()).
			Build()
	}
	if len(out.Choices) == 0 {
		return "", errors.New(fmt.Errorf("classifier returned no choices")).
			Component("sentiment").
			Category(errors.CategoryClassifier).
			Build()
	}
	return out.Choices[0].Message.Content, nil
}
