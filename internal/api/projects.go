package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/qalobby/internal/storage"
)

type createProjectRequest struct {
	Name any `json:"name"`
}

type createOutputRequest struct {
	TaskID   any             `json:"taskId"`
	Title    any             `json:"title"`
	Input    json.RawMessage `json:"input"`
	Markdown any             `json:"markdown"`
}

func handleListProjects(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"projects": deps.Store.ListProjects()})
	}
}

func handleCreateProject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProjectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		name, _ := stringField(req.Name)

		p, err := deps.Store.CreateProject(name)
		if err != nil {
			storeError(w, err, "failed to create project")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"project": p})
	}
}

func handleDeleteProject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeleteProject(chi.URLParam(r, "projectId")); err != nil {
			storeError(w, err, "failed to delete project")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func handleListOutputs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outputs := deps.Store.ListProjectOutputs(chi.URLParam(r, "projectId"))
		writeJSON(w, http.StatusOK, map[string]any{"outputs": outputs})
	}
}

func handleCreateOutput(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOutputRequest
		if !decodeBody(w, r, &req) {
			return
		}
		taskID, _ := stringField(req.TaskID)
		title, _ := stringField(req.Title)
		markdown, _ := stringField(req.Markdown)

		out, err := deps.Store.CreateProjectOutput(storage.NewOutput{
			ProjectID: chi.URLParam(r, "projectId"),
			TaskID:    taskID,
			Title:     title,
			Input:     req.Input,
			Markdown:  markdown,
		})
		if err != nil {
			storeError(w, err, "failed to save output")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"output": out})
	}
}

func handleGetOutput(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, ok := deps.Store.GetProjectOutput(chi.URLParam(r, "projectId"), chi.URLParam(r, "outputId"))
		if !ok {
			httpError(w, http.StatusNotFound, "output not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"output": out})
	}
}

func handleDeleteOutput(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteProjectOutput(chi.URLParam(r, "projectId"), chi.URLParam(r, "outputId"))
		if err != nil {
			storeError(w, err, "failed to delete output")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
