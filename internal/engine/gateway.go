package engine

import (
	"context"
	"fmt"
	"time"
)

// Options configures the engines behind a Gateway.
type Options struct {
	DefaultProvider string
	OllamaBaseURL   string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Timeout         time.Duration
}

// Gateway routes generation requests to the engine of the chosen provider.
type Gateway struct {
	engines         map[Provider]Engine
	defaultProvider Provider
}

// NewGateway builds the Ollama and OpenAI engines from opts.
func NewGateway(opts Options) *Gateway {
	return NewGatewayWithEngines(NormalizeProvider(opts.DefaultProvider), map[Provider]Engine{
		ProviderOllama: NewOllamaEngine(opts.OllamaBaseURL, opts.Timeout),
		ProviderOpenAI: NewOpenAIEngine(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.Timeout),
	})
}

// NewGatewayWithEngines wires arbitrary engines; tests use it with fakes.
func NewGatewayWithEngines(defaultProvider Provider, engines map[Provider]Engine) *Gateway {
	return &Gateway{engines: engines, defaultProvider: defaultProvider}
}

// DefaultProvider is used when a request names none.
func (g *Gateway) DefaultProvider() Provider { return g.defaultProvider }

// Generate resolves the provider and forwards the prompt unchanged.
func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	p := req.Provider
	if p == "" {
		p = g.defaultProvider
	}
	e, ok := g.engines[p]
	if !ok {
		return "", fmt.Errorf("no engine registered for provider %q", p)
	}
	return e.Generate(ctx, req.Model, req.Prompt)
}
