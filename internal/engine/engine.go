package engine

import (
	"context"
	"strings"
)

// Engine abstracts an LLM backend that turns a prompt into markdown text.
type Engine interface {
	// Generate sends prompt to model and returns the raw response text.
	// Failures are reported as *UpstreamError.
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// LocalBackend is implemented by engines that run models on this machine
// and can report or fetch them.
type LocalBackend interface {
	IsRunning(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

// Provider names an LLM backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// ParseProvider accepts exactly "ollama" or "openai".
func ParseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderOllama, ProviderOpenAI:
		return Provider(s), true
	}
	return "", false
}

// NormalizeProvider maps a configured value to a provider. Anything other
// than "openai" (case-insensitive) selects Ollama.
func NormalizeProvider(s string) Provider {
	if strings.EqualFold(strings.TrimSpace(s), string(ProviderOpenAI)) {
		return ProviderOpenAI
	}
	return ProviderOllama
}
