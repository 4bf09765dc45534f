package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/qalobby/internal/engine"
	"github.com/kalambet/qalobby/internal/history"
	"github.com/kalambet/qalobby/internal/prompts"
	"github.com/kalambet/qalobby/internal/settings"
	"github.com/kalambet/qalobby/internal/storage"
)

const maxRequestBodySize = 25 << 20 // 25MB

// Generator produces markdown from a prompt. *engine.Gateway satisfies it.
type Generator interface {
	Generate(ctx context.Context, req engine.GenerateRequest) (string, error)
	DefaultProvider() engine.Provider
}

// Journal records generation calls.
type Journal interface {
	SaveGeneration(g history.Generation) error
	ListGenerations(limit, offset int) ([]history.Generation, error)
}

// SettingsStore reads and updates the remembered LLM choice.
type SettingsStore interface {
	Get() (settings.LLM, error)
	Update(p settings.Patch) (settings.LLM, error)
}

// Deps holds everything the HTTP handlers need. Journal and Settings are
// optional; their routes answer 503 when they are nil.
type Deps struct {
	Store     *storage.Store
	Prompts   *prompts.Store
	Generator Generator
	Journal   Journal
	Settings  SettingsStore
}

// NewHandler returns the qalobby REST API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", handleHealth)

	r.Get("/projects", handleListProjects(deps))
	r.Post("/projects", handleCreateProject(deps))
	r.Delete("/projects/{projectId}", handleDeleteProject(deps))
	r.Get("/projects/{projectId}/outputs", handleListOutputs(deps))
	r.Post("/projects/{projectId}/outputs", handleCreateOutput(deps))
	r.Get("/projects/{projectId}/outputs/{outputId}", handleGetOutput(deps))
	r.Delete("/projects/{projectId}/outputs/{outputId}", handleDeleteOutput(deps))

	r.Get("/tasks", handleListTasks)
	r.Get("/prompts", handleListPrompts(deps))
	r.Get("/prompts/{taskId}", handleGetPrompt(deps))
	r.Put("/prompts/{taskId}", handleSavePrompt(deps))

	r.Post("/llm/generate", handleGenerate(deps))
	r.Get("/generations", handleListGenerations(deps))

	r.Get("/settings", handleGetSettings(deps))
	r.Put("/settings", handleUpdateSettings(deps))

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// storeError maps validation failures to 400 and anything else to 500.
func storeError(w http.ResponseWriter, err error, what string) {
	var verr *storage.ValidationError
	if errors.As(err, &verr) {
		httpError(w, http.StatusBadRequest, "%s", verr.Message)
		return
	}
	slog.Error(what, "error", err)
	httpError(w, http.StatusInternalServerError, "%s: %v", what, err)
}

// decodeBody reads a JSON object into dst. It writes the 400 itself and
// reports false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

// stringField returns v when it is a JSON string, else "".
func stringField(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
