package engine

import (
	"context"
	"errors"
	"time"

	"github.com/kalambet/qalobby/internal/ollama"
)

// OllamaEngine adapts the internal/ollama.Client to the Engine interface.
type OllamaEngine struct {
	client *ollama.Client
}

// NewOllamaEngine creates an OllamaEngine backed by an Ollama server at baseURL.
func NewOllamaEngine(baseURL string, timeout time.Duration) *OllamaEngine {
	return &OllamaEngine{client: ollama.New(baseURL, timeout)}
}

// BaseURL is the Ollama server this engine talks to.
func (e *OllamaEngine) BaseURL() string { return e.client.BaseURL() }

func (e *OllamaEngine) Generate(ctx context.Context, model, prompt string) (string, error) {
	text, err := e.client.Generate(ctx, model, prompt)
	if err == nil {
		return text, nil
	}

	var se *ollama.StatusError
	switch {
	case errors.As(err, &se):
		return "", upstream(ProviderOllama, se.StatusCode, err)
	case errors.Is(err, ollama.ErrEmptyResponse):
		return "", upstream(ProviderOllama, 0, err)
	default:
		return "", transportError(ProviderOllama, "Ollama", err)
	}
}

func (e *OllamaEngine) IsRunning(ctx context.Context) bool {
	return e.client.IsRunning(ctx)
}

func (e *OllamaEngine) ListModels(ctx context.Context) ([]string, error) {
	return e.client.ListModels(ctx)
}

func (e *OllamaEngine) HasModel(ctx context.Context, name string) bool {
	return e.client.HasModel(ctx, name)
}

func (e *OllamaEngine) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	var cb func(ollama.PullProgress)
	if onProgress != nil {
		cb = func(p ollama.PullProgress) {
			onProgress(PullProgress{
				Status:    p.Status,
				Total:     p.Total,
				Completed: p.Completed,
			})
		}
	}
	return e.client.PullModel(ctx, name, cb)
}
