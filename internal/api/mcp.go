package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/qalobby/internal/composer"
	"github.com/kalambet/qalobby/internal/engine"
	"github.com/kalambet/qalobby/internal/prompts"
	"github.com/kalambet/qalobby/internal/storage"
)

// NewMCPServer exposes projects, prompts and generation as MCP tools.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"qalobby",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("qalobby generates QA documents (bug tickets, test plans, test cases, coverage analyses) and stores them per project."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_projects",
			mcp.WithDescription("List all projects, newest first."),
		),
		mcpListProjects(deps),
	)

	s.AddTool(
		mcp.NewTool("create_project",
			mcp.WithDescription("Create a new project."),
			mcp.WithString("name", mcp.Description("Project name"), mcp.Required()),
		),
		mcpCreateProject(deps),
	)

	s.AddTool(
		mcp.NewTool("list_outputs",
			mcp.WithDescription("List the stored documents of a project, newest first."),
			mcp.WithString("project_id", mcp.Description("Project id"), mcp.Required()),
		),
		mcpListOutputs(deps),
	)

	s.AddTool(
		mcp.NewTool("get_prompt",
			mcp.WithDescription("Return the prompt template used for a task."),
			mcp.WithString("task_id", mcp.Description("Task id, e.g. create-bug-ticket"), mcp.Required()),
		),
		mcpGetPrompt(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_document",
			mcp.WithDescription("Generate a QA document for a task and optionally store it in a project."),
			mcp.WithString("task_id", mcp.Description("Task id, e.g. create-test-plan"), mcp.Required()),
			mcp.WithString("prompt", mcp.Description("Task input: context, requirements or bug details"), mcp.Required()),
			mcp.WithString("provider", mcp.Description("ollama or openai; defaults to the remembered provider")),
			mcp.WithString("model", mcp.Description("Model name; defaults to the remembered model")),
			mcp.WithString("project_id", mcp.Description("Store the result in this project")),
			mcp.WithString("title", mcp.Description("Title of the stored document")),
		),
		mcpGenerateDocument(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"qalobby://tasks",
			"Tasks",
			mcp.WithResourceDescription("Supported document tasks as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTasks,
	)

	return s
}

func mcpListProjects(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpJSON(deps.Store.ListProjects()), nil
	}
}

func mcpCreateProject(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		p, err := deps.Store.CreateProject(name)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(p), nil
	}
}

func mcpListOutputs(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := req.RequireString("project_id")
		if err != nil {
			return mcpError("project_id is required"), nil
		}
		if _, ok := deps.Store.GetProject(projectID); !ok {
			return mcpError(fmt.Sprintf("project %s not found", projectID)), nil
		}
		return mcpJSON(deps.Store.ListProjectOutputs(projectID)), nil
	}
}

func mcpGetPrompt(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := req.RequireString("task_id")
		if err != nil {
			return mcpError("task_id is required"), nil
		}
		return mcpText(deps.Prompts.GetPromptContent(taskID).Content), nil
	}
}

func mcpGenerateDocument(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := req.RequireString("task_id")
		if err != nil || strings.TrimSpace(taskID) == "" {
			return mcpError("task_id is required"), nil
		}
		prompt, err := req.RequireString("prompt")
		if err != nil || strings.TrimSpace(prompt) == "" {
			return mcpError("prompt is required"), nil
		}

		task := composer.TextTask{
			TaskID:  strings.TrimSpace(taskID),
			Title:   req.GetString("title", ""),
			Context: prompt,
		}
		g := generation{
			Model:  strings.TrimSpace(req.GetString("model", "")),
			Prompt: task.Prompt(),
			TaskID: task.TaskID,
		}
		if p, ok := engine.ParseProvider(req.GetString("provider", "")); ok {
			g.Provider = p
		}
		if (g.Model == "" || g.Provider == "") && deps.Settings != nil {
			remembered, err := deps.Settings.Get()
			if err != nil {
				return mcpError(fmt.Sprintf("loading settings: %v", err)), nil
			}
			if g.Model == "" {
				g.Model = remembered.Model
			}
			if g.Provider == "" {
				g.Provider = engine.NormalizeProvider(remembered.Provider)
			}
		}
		if g.Model == "" {
			return mcpError("model is required"), nil
		}

		markdown, err := runGeneration(ctx, deps, g)
		if err != nil {
			return mcpError(fmt.Sprintf("generation failed: %v", err)), nil
		}

		projectID := strings.TrimSpace(req.GetString("project_id", ""))
		if projectID == "" {
			return mcpText(markdown), nil
		}

		provider := g.Provider
		if provider == "" {
			provider = deps.Generator.DefaultProvider()
		}
		input, err := json.Marshal(task.Input(string(provider), g.Model))
		if err != nil {
			return mcpError(fmt.Sprintf("encoding input: %v", err)), nil
		}
		out, err := deps.Store.CreateProjectOutput(storage.NewOutput{
			ProjectID: projectID,
			TaskID:    g.TaskID,
			Title:     task.DerivedTitle(),
			Input:     input,
			Markdown:  markdown,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("document generated but not saved: %v", err)), nil
		}
		return mcpJSON(out), nil
	}
}

func mcpResourceTasks(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(prompts.Tasks())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcpText(string(b))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
