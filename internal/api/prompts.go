package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/qalobby/internal/prompts"
)

type savePromptRequest struct {
	Content any `json:"content"`
}

func handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": prompts.Tasks()})
}

func handleListPrompts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"prompts": deps.Prompts.ListPrompts()})
	}
}

func handleGetPrompt(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "taskId")
		p := deps.Prompts.GetPromptContent(taskID)
		writeJSON(w, http.StatusOK, map[string]any{
			"taskId":  taskID,
			"content": p.Content,
			"source":  p.Source,
		})
	}
}

func handleSavePrompt(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req savePromptRequest
		if !decodeBody(w, r, &req) {
			return
		}
		content, ok := stringField(req.Content)
		if !ok {
			httpError(w, http.StatusBadRequest, "content is required")
			return
		}

		if err := deps.Prompts.SavePrompt(chi.URLParam(r, "taskId"), content); err != nil {
			storeError(w, err, "failed to save prompt")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
