package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/qalobby/internal/config"
	"github.com/kalambet/qalobby/internal/engine"
	"github.com/kalambet/qalobby/internal/history"
	"github.com/kalambet/qalobby/internal/prompts"
	"github.com/kalambet/qalobby/internal/settings"
	"github.com/kalambet/qalobby/internal/storage"
)

// --- projects ---

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		projects, err := listProjects(cmd.Context(), client)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects yet. Create one with: qalobby projects create <name>")
			return nil
		}
		fmt.Println(projectsTable(projects))
		return nil
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var resp struct {
			Project storage.Project `json:"project"`
		}
		body := map[string]string{"name": strings.Join(args, " ")}
		if err := client.call(cmd.Context(), http.MethodPost, "/projects", body, &resp); err != nil {
			return err
		}
		printSuccess("Created project %q", resp.Project.Name)
		fmt.Println(resp.Project.ID)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <projectId>",
	Short: "Delete a project and all of its outputs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This deletes the project and every stored output. Use --confirm to proceed.")
			return nil
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.call(cmd.Context(), http.MethodDelete, "/projects/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		printSuccess("Deleted project %s", args[0])
		return nil
	},
}

func init() {
	projectsDeleteCmd.Flags().Bool("confirm", false, "confirm deletion")
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
}

func listProjects(ctx context.Context, client *apiClient) ([]storage.Project, error) {
	var resp struct {
		Projects []storage.Project `json:"projects"`
	}
	if err := client.call(ctx, http.MethodGet, "/projects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

func projectsTable(projects []storage.Project) string {
	rows := make([][]string, len(projects))
	for i, p := range projects {
		rows[i] = []string{p.ID, p.Name, p.CreatedAt}
	}
	return renderTable([]string{"ID", "Name", "Created"}, rows, nil)
}

// --- outputs ---

var outputsCmd = &cobra.Command{
	Use:     "outputs",
	Aliases: []string{"output"},
	Short:   "Browse generated documents",
}

var outputsListCmd = &cobra.Command{
	Use:   "list <projectId>",
	Short: "List the documents of a project, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var resp struct {
			Outputs []storage.OutputDocument `json:"outputs"`
		}
		path := "/projects/" + url.PathEscape(args[0]) + "/outputs"
		if err := client.call(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		if len(resp.Outputs) == 0 {
			fmt.Println("No outputs found.")
			return nil
		}
		fmt.Println(outputsTable(resp.Outputs))
		return nil
	},
}

var outputsShowCmd = &cobra.Command{
	Use:   "show <projectId> <outputId>",
	Short: "Show a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		showInput, _ := cmd.Flags().GetBool("input")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var resp struct {
			Output storage.OutputDocument `json:"output"`
		}
		path := "/projects/" + url.PathEscape(args[0]) + "/outputs/" + url.PathEscape(args[1])
		if err := client.call(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		out := resp.Output

		if showInput {
			fmt.Println(string(out.Input))
			return nil
		}
		if raw {
			fmt.Print(out.Markdown)
			if !strings.HasSuffix(out.Markdown, "\n") {
				fmt.Println()
			}
			return nil
		}

		printStatus("Task", "%s", out.TaskID)
		if out.Title != "" {
			printStatus("Title", "%s", out.Title)
		}
		printStatus("Created", "%s", out.CreatedAt)
		fmt.Print(renderMarkdown(out.Markdown))
		return nil
	},
}

var outputsDeleteCmd = &cobra.Command{
	Use:   "delete <projectId> <outputId>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/projects/" + url.PathEscape(args[0]) + "/outputs/" + url.PathEscape(args[1])
		if err := client.call(cmd.Context(), http.MethodDelete, path, nil, nil); err != nil {
			return err
		}
		printSuccess("Deleted output %s", args[1])
		return nil
	},
}

func init() {
	outputsShowCmd.Flags().Bool("raw", false, "print the markdown without rendering")
	outputsShowCmd.Flags().Bool("input", false, "print the stored input JSON instead of the document")
	outputsCmd.AddCommand(outputsListCmd)
	outputsCmd.AddCommand(outputsShowCmd)
	outputsCmd.AddCommand(outputsDeleteCmd)
}

func outputsTable(outputs []storage.OutputDocument) string {
	rows := make([][]string, len(outputs))
	for i, o := range outputs {
		rows[i] = []string{o.ID, o.TaskID, truncate(o.Title, 48), o.CreatedAt}
	}
	return renderTable([]string{"ID", "Task", "Title", "Created"}, rows, nil)
}

// --- prompts ---

var promptsCmd = &cobra.Command{
	Use:     "prompts",
	Aliases: []string{"prompt"},
	Short:   "View and edit task prompt templates",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the template of every task",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var resp struct {
			Prompts []prompts.Record `json:"prompts"`
		}
		if err := client.call(cmd.Context(), http.MethodGet, "/prompts", nil, &resp); err != nil {
			return err
		}
		fmt.Println(promptsTable(resp.Prompts))
		return nil
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <taskId>",
	Short: "Print the template used for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		p, err := getPrompt(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		printStatus("Source", "%s", p.Source)
		fmt.Print(p.Content)
		if p.Content != "" && !strings.HasSuffix(p.Content, "\n") {
			fmt.Println()
		}
		return nil
	},
}

var promptsSetCmd = &cobra.Command{
	Use:   "set <taskId>",
	Short: "Save a template from --file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID := args[0]
		if _, ok := prompts.LookupTask(taskID); !ok {
			return unknownTaskError(taskID)
		}
		file, _ := cmd.Flags().GetString("file")

		var data []byte
		var err error
		if file != "" {
			data, err = os.ReadFile(file)
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("reading template: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := savePrompt(cmd.Context(), client, taskID, string(data)); err != nil {
			return err
		}
		printSuccess("Saved template for %s", taskID)
		return nil
	},
}

var promptsEditCmd = &cobra.Command{
	Use:   "edit <taskId>",
	Short: "Open a task template in $EDITOR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID := args[0]
		if _, ok := prompts.LookupTask(taskID); !ok {
			return unknownTaskError(taskID)
		}
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		p, err := getPrompt(cmd.Context(), client, taskID)
		if err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp("", "qalobby-"+taskID+"-*.md")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := tmpFile.WriteString(p.Content); err != nil {
			tmpFile.Close()
			return err
		}
		tmpFile.Close()

		editorCmd := exec.Command(editor, tmpPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor exited with error: %w", err)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		if string(edited) == p.Content {
			printStep("No changes")
			return nil
		}
		if err := savePrompt(cmd.Context(), client, taskID, string(edited)); err != nil {
			return err
		}
		printSuccess("Saved template for %s", taskID)
		return nil
	},
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset <taskId>",
	Short: "Remove the saved template so the shipped default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID := args[0]
		if _, ok := prompts.LookupTask(taskID); !ok {
			return unknownTaskError(taskID)
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store := prompts.NewStore(storage.New(cfg.Storage.DataDir).Paths().PromptsDir(), cfg.Storage.PromptsDir)

		removed, err := store.DeleteSavedPrompt(taskID)
		if err != nil {
			return err
		}
		if !removed {
			printStep("No saved template for %s", taskID)
			return nil
		}
		if store.HasDefaultPrompt(taskID) {
			printSuccess("Reset %s to the default template", taskID)
		} else {
			printSuccess("Removed saved template for %s (no default template is shipped)", taskID)
		}
		return nil
	},
}

func init() {
	promptsSetCmd.Flags().String("file", "", "read the template from this file instead of stdin")
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsSetCmd)
	promptsCmd.AddCommand(promptsEditCmd)
	promptsCmd.AddCommand(promptsResetCmd)
}

type promptResponse struct {
	TaskID  string         `json:"taskId"`
	Content string         `json:"content"`
	Source  prompts.Source `json:"source"`
}

func getPrompt(ctx context.Context, client *apiClient, taskID string) (promptResponse, error) {
	var p promptResponse
	err := client.call(ctx, http.MethodGet, "/prompts/"+url.PathEscape(taskID), nil, &p)
	return p, err
}

func savePrompt(ctx context.Context, client *apiClient, taskID, content string) error {
	body := map[string]string{"content": content}
	return client.call(ctx, http.MethodPut, "/prompts/"+url.PathEscape(taskID), body, nil)
}

func unknownTaskError(taskID string) error {
	ids := make([]string, 0, len(prompts.Tasks()))
	for _, t := range prompts.Tasks() {
		ids = append(ids, t.ID)
	}
	return fmt.Errorf("unknown task %q (one of: %s)", taskID, strings.Join(ids, ", "))
}

func promptsTable(records []prompts.Record) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		saved := r.SavedUpdatedAt
		if saved == "" {
			saved = "-"
		}
		def := "-"
		if r.HasDefault {
			def = r.DefaultUpdatedAt
		}
		rows[i] = []string{r.TaskID, r.TaskName, string(r.Source), saved, def}
	}
	return renderTable([]string{"Task", "Name", "Source", "Saved", "Default"}, rows, nil)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent generation requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var resp struct {
			Generations []history.Generation `json:"generations"`
		}
		path := fmt.Sprintf("/generations?limit=%d&offset=%d", limit, offset)
		if err := client.call(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		if len(resp.Generations) == 0 {
			fmt.Println("No generations recorded.")
			return nil
		}
		fmt.Println(generationsTable(resp.Generations))
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries")
	historyCmd.Flags().Int("offset", 0, "number of entries to skip")
}

func generationsTable(gens []history.Generation) string {
	rows := make([][]string, len(gens))
	for i, g := range gens {
		status := g.Status
		if g.Status == history.StatusFailed {
			status = colorize(colorRed, status)
		}
		rows[i] = []string{
			g.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			g.Provider,
			g.Model,
			g.TaskID,
			status,
			fmt.Sprintf("%d", g.PromptChars),
			fmt.Sprintf("%d", g.ResponseChars),
			(time.Duration(g.DurationMs) * time.Millisecond).String(),
		}
	}
	return renderTable(
		[]string{"When", "Provider", "Model", "Task", "Status", "Prompt", "Response", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the remembered provider and model",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the remembered provider and model",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var s settings.LLM
		if err := client.call(cmd.Context(), http.MethodGet, "/settings", nil, &s); err != nil {
			return err
		}
		printStatus("Provider", "%s", s.Provider)
		printStatus("Model", "%s", s.Model)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Remember a provider and/or model",
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch settings.Patch
		if cmd.Flags().Changed("provider") {
			v, _ := cmd.Flags().GetString("provider")
			patch.Provider = &v
		}
		if cmd.Flags().Changed("model") {
			v, _ := cmd.Flags().GetString("model")
			patch.Model = &v
		}
		if patch.Provider == nil && patch.Model == nil {
			return errors.New("one of --provider or --model is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var s settings.LLM
		if err := client.call(cmd.Context(), http.MethodPut, "/settings", patch, &s); err != nil {
			return err
		}
		printSuccess("Using %s / %s", s.Provider, s.Model)
		return nil
	},
}

func init() {
	settingsSetCmd.Flags().String("provider", "", "ollama or openai")
	settingsSetCmd.Flags().String("model", "", "model name")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List or pull provider models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models available from a provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		providerFlag, _ := cmd.Flags().GetString("provider")
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		provider := engine.NormalizeProvider(cfg.LLM.Provider)
		if providerFlag != "" {
			p, ok := engine.ParseProvider(strings.ToLower(strings.TrimSpace(providerFlag)))
			if !ok {
				return fmt.Errorf("unknown provider %q (ollama or openai)", providerFlag)
			}
			provider = p
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		var names []string
		switch provider {
		case engine.ProviderOpenAI:
			if cfg.OpenAI.APIKey == "" {
				return errors.New(config.MissingKeyHint())
			}
			names, err = engine.NewOpenAIEngine(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, 0).ListModels(ctx)
		default:
			names, err = engine.NewOllamaEngine(cfg.Ollama.BaseURL, 0).ListModels(ctx)
		}
		if err != nil {
			return fmt.Errorf("listing %s models: %w", provider, err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull <model>",
	Short: "Download a model into the local Ollama server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		local := engine.NewOllamaEngine(cfg.Ollama.BaseURL, 0)
		return engine.EnsureReady(cmd.Context(), local, args[0], true, os.Stderr)
	},
}

func init() {
	modelsListCmd.Flags().String("provider", "", "ollama or openai (default: llm.provider)")
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsPullCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{k.Key, k.Value, k.EnvVar}
		}
		fmt.Println(renderTable([]string{"Key", "Value", "Env"}, rows, nil))
		printStatus("Config file", "%s", config.ConfigFilePath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key>",
	Short: "Store a secret (read from stdin) in the platform secret store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading secret: %w", err)
		}
		value := strings.TrimSpace(string(data))
		if value == "" {
			return errors.New("secret value is empty")
		}
		if err := config.SetSecret(args[0], value); err != nil {
			return err
		}
		printSuccess("Stored %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
