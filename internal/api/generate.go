package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kalambet/qalobby/internal/composer"
	"github.com/kalambet/qalobby/internal/engine"
	"github.com/kalambet/qalobby/internal/history"
	"github.com/kalambet/qalobby/internal/settings"
)

type generateRequest struct {
	Provider any `json:"provider"`
	Model    any `json:"model"`
	Prompt   any `json:"prompt"`
	TaskID   any `json:"taskId"`
}

// generation is a validated generate call.
type generation struct {
	Provider engine.Provider // empty means the gateway default
	Model    string
	Prompt   string
	TaskID   string
}

func handleGenerate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if !decodeBody(w, r, &req) {
			return
		}

		var g generation
		if s, ok := stringField(req.Provider); ok {
			if p, valid := engine.ParseProvider(s); valid {
				g.Provider = p
			}
		}
		model, _ := stringField(req.Model)
		prompt, _ := stringField(req.Prompt)
		taskID, _ := stringField(req.TaskID)
		g.Model = strings.TrimSpace(model)
		g.Prompt = strings.TrimSpace(prompt)
		g.TaskID = strings.TrimSpace(taskID)

		if g.Model == "" {
			httpError(w, http.StatusBadRequest, "model is required")
			return
		}
		if g.Prompt == "" {
			httpError(w, http.StatusBadRequest, "prompt is required")
			return
		}

		markdown, err := runGeneration(r.Context(), deps, g)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "%s", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"markdown": markdown})
	}
}

// runGeneration prefixes the task template, calls the provider, unwraps a
// single markdown fence and records the call in the journal.
func runGeneration(ctx context.Context, deps Deps, g generation) (string, error) {
	finalPrompt := g.Prompt
	if g.TaskID != "" {
		finalPrompt = composer.Compose(deps.Prompts.GetPromptContent(g.TaskID).Content, g.Prompt)
	}

	provider := g.Provider
	if provider == "" {
		provider = deps.Generator.DefaultProvider()
	}

	start := time.Now()
	raw, err := deps.Generator.Generate(ctx, engine.GenerateRequest{
		Provider: provider,
		Model:    g.Model,
		Prompt:   finalPrompt,
	})
	elapsed := time.Since(start)

	rec := history.Generation{
		ID:          uuid.New().String(),
		CreatedAt:   start.UTC(),
		Provider:    string(provider),
		Model:       g.Model,
		TaskID:      g.TaskID,
		PromptChars: utf8.RuneCountInString(finalPrompt),
		Status:      history.StatusCompleted,
		DurationMs:  elapsed.Milliseconds(),
	}
	if err != nil {
		rec.Status = history.StatusFailed
		rec.Error = err.Error()
		journal(deps, rec)
		slog.Warn("generation failed", "provider", provider, "model", g.Model, "error", err)
		return "", err
	}

	markdown := engine.UnwrapMarkdownFence(raw)
	rec.ResponseChars = utf8.RuneCountInString(markdown)
	journal(deps, rec)
	slog.Info("generation completed",
		"provider", provider,
		"model", g.Model,
		"task", g.TaskID,
		"duration_ms", rec.DurationMs,
	)
	return markdown, nil
}

func journal(deps Deps, rec history.Generation) {
	if deps.Journal == nil {
		return
	}
	if err := deps.Journal.SaveGeneration(rec); err != nil {
		slog.Warn("recording generation", "id", rec.ID, "error", err)
	}
}

func handleListGenerations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Journal == nil {
			httpError(w, http.StatusServiceUnavailable, "generation history is not available")
			return
		}
		limit := parseIntParam(r, "limit", 50, 500)
		offset := parseIntParam(r, "offset", 0, 0)

		gens, err := deps.Journal.ListGenerations(limit, offset)
		if err != nil {
			slog.Error("listing generations", "error", err)
			httpError(w, http.StatusInternalServerError, "failed to list generations: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"generations": gens})
	}
}

func handleGetSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Settings == nil {
			httpError(w, http.StatusServiceUnavailable, "settings are not available")
			return
		}
		s, err := deps.Settings.Get()
		if err != nil {
			storeError(w, err, "failed to load settings")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func handleUpdateSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Settings == nil {
			httpError(w, http.StatusServiceUnavailable, "settings are not available")
			return
		}
		var patch settings.Patch
		if !decodeBody(w, r, &patch) {
			return
		}
		s, err := deps.Settings.Update(patch)
		if err != nil {
			storeError(w, err, "failed to save settings")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
