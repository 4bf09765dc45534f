package engine

import (
	"context"
	"errors"
	"time"

	"github.com/kalambet/qalobby/internal/openai"
)

// OpenAIEngine adapts the internal/openai.Client to the Engine interface.
type OpenAIEngine struct {
	client *openai.Client
}

// NewOpenAIEngine creates an engine for the Responses API at baseURL.
func NewOpenAIEngine(apiKey, baseURL string, timeout time.Duration) *OpenAIEngine {
	return &OpenAIEngine{client: openai.NewClient(apiKey, baseURL, timeout)}
}

func (e *OpenAIEngine) BaseURL() string { return e.client.BaseURL() }

func (e *OpenAIEngine) HasAPIKey() bool { return e.client.HasAPIKey() }

func (e *OpenAIEngine) Generate(ctx context.Context, model, prompt string) (string, error) {
	text, err := e.client.CreateResponse(ctx, model, prompt)
	if err == nil {
		return text, nil
	}

	var se *openai.StatusError
	switch {
	case errors.As(err, &se):
		return "", upstream(ProviderOpenAI, se.StatusCode, err)
	case errors.Is(err, openai.ErrMissingAPIKey), errors.Is(err, openai.ErrEmptyResponse):
		return "", upstream(ProviderOpenAI, 0, err)
	default:
		return "", transportError(ProviderOpenAI, "OpenAI", err)
	}
}

// ListModels returns the model ids visible to the configured key.
func (e *OpenAIEngine) ListModels(ctx context.Context) ([]string, error) {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids, nil
}
