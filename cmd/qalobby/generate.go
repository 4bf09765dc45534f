package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/qalobby/internal/composer"
	"github.com/kalambet/qalobby/internal/engine"
	"github.com/kalambet/qalobby/internal/ingest"
	"github.com/kalambet/qalobby/internal/prompts"
	"github.com/kalambet/qalobby/internal/settings"
	"github.com/kalambet/qalobby/internal/storage"
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Generate a QA document and store it in a project",
	Long: `Generate a QA document and store it in a project.

Examples:
  qalobby generate bug --project <id> --description "Checkout fails with expired card"
  qalobby generate plan --project <id> --file ./feature.md
  qalobby generate coverage --project <id> --requirements-file reqs.pdf --test-cases-file cases.md`,
}

func init() {
	generateCmd.PersistentFlags().String("project", "", "project id to store the document in (required)")
	generateCmd.PersistentFlags().String("provider", "", "ollama or openai (default: remembered setting)")
	generateCmd.PersistentFlags().String("model", "", "model name (default: remembered setting)")
	generateCmd.PersistentFlags().Bool("raw", false, "print the markdown without rendering")
	generateCmd.MarkPersistentFlagRequired("project")

	bugCmd.Flags().String("title", "", "ticket title (default: derived from the description)")
	bugCmd.Flags().String("description", "", "what is wrong (required)")
	bugCmd.Flags().String("steps", "", "steps to reproduce")
	bugCmd.Flags().String("expected", "", "expected behavior")
	bugCmd.Flags().String("actual", "", "actual behavior")
	generateCmd.AddCommand(bugCmd)

	for _, t := range []struct {
		use    string
		taskID string
	}{
		{"ticket", prompts.TaskTaskTicket},
		{"approach", prompts.TaskTestApproach},
		{"plan", prompts.TaskTestPlan},
		{"cases", prompts.TaskTestCase},
	} {
		generateCmd.AddCommand(newTextTaskCmd(t.use, t.taskID))
	}

	coverageCmd.Flags().String("requirements", "", "pasted requirements text")
	coverageCmd.Flags().StringSlice("requirements-file", nil, "requirements documents (.md, .txt, .pdf)")
	coverageCmd.Flags().String("test-cases", "", "pasted test cases text")
	coverageCmd.Flags().StringSlice("test-cases-file", nil, "test case documents (.md, .txt, .pdf)")
	coverageCmd.Flags().String("notes", "", "extra instructions for the analysis")
	generateCmd.AddCommand(coverageCmd)
}

// taskJob is one generation request and the output it should produce.
type taskJob struct {
	TaskID string
	Title  string
	Prompt string
	Input  func(provider, model string) any
}

var bugCmd = &cobra.Command{
	Use:   "bug",
	Short: "Create a bug ticket",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		steps, _ := cmd.Flags().GetString("steps")
		expected, _ := cmd.Flags().GetString("expected")
		actual, _ := cmd.Flags().GetString("actual")

		if strings.TrimSpace(description) == "" {
			return errors.New("--description is required")
		}
		b := composer.BugTicket{
			Title:            title,
			Description:      description,
			StepsToReproduce: steps,
			ExpectedBehavior: expected,
			ActualBehavior:   actual,
		}
		return runTask(cmd, taskJob{
			TaskID: prompts.TaskBugTicket,
			Title:  b.DerivedTitle(),
			Prompt: b.Prompt(),
			Input:  func(p, m string) any { return b.Input(p, m) },
		})
	},
}

func newTextTaskCmd(use, taskID string) *cobra.Command {
	task, _ := prompts.LookupTask(taskID)
	cmd := &cobra.Command{
		Use:   use,
		Short: task.Name,
		Long:  task.Description + "\n\nContext comes from --context, --file, or stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			text, _ := cmd.Flags().GetString("context")
			file, _ := cmd.Flags().GetString("file")

			body, err := readContext(cmd, text, file)
			if err != nil {
				return err
			}
			t := composer.TextTask{TaskID: taskID, Title: title, Context: body}
			return runTask(cmd, taskJob{
				TaskID: taskID,
				Title:  t.DerivedTitle(),
				Prompt: t.Prompt(),
				Input:  func(p, m string) any { return t.Input(p, m) },
			})
		},
	}
	cmd.Flags().String("title", "", "document title (default: derived from the context)")
	cmd.Flags().String("context", "", "feature or ticket context")
	cmd.Flags().String("file", "", "read the context from a file (.md, .txt, .pdf)")
	return cmd
}

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Analyze requirements against test cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		requirements, _ := cmd.Flags().GetString("requirements")
		reqFiles, _ := cmd.Flags().GetStringSlice("requirements-file")
		testCases, _ := cmd.Flags().GetString("test-cases")
		caseFiles, _ := cmd.Flags().GetStringSlice("test-cases-file")
		notes, _ := cmd.Flags().GetString("notes")

		reqDocs, err := ingest.ReadFiles(cmd.Context(), reqFiles)
		if err != nil {
			return err
		}
		caseDocs, err := ingest.ReadFiles(cmd.Context(), caseFiles)
		if err != nil {
			return err
		}

		c := composer.Coverage{
			Requirements:      requirements,
			RequirementsFiles: sourceFiles(reqDocs),
			TestCases:         testCases,
			TestCaseFiles:     sourceFiles(caseDocs),
			Notes:             notes,
		}
		if err := c.Ready(); err != nil {
			return err
		}
		return runTask(cmd, taskJob{
			TaskID: prompts.TaskCoverageAnalysis,
			Title:  c.DerivedTitle(),
			Prompt: c.Prompt(),
			Input:  func(p, m string) any { return c.Input(p, m) },
		})
	},
}

func sourceFiles(files []ingest.File) []composer.SourceFile {
	out := make([]composer.SourceFile, len(files))
	for i, f := range files {
		out[i] = composer.SourceFile{Name: f.Name, Text: f.Text}
	}
	return out
}

// readContext prefers the flag, then the file, then piped stdin.
func readContext(cmd *cobra.Command, text, file string) (string, error) {
	switch {
	case strings.TrimSpace(text) != "":
		return text, nil
	case file != "":
		f, err := ingest.ReadFile(file)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(f.Text) == "" {
			return "", fmt.Errorf("%s contains no text", f.Name)
		}
		return f.Text, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		return "", errors.New("context is required (pass --context, --file, or pipe it on stdin)")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("context is required (pass --context, --file, or pipe it on stdin)")
	}
	return string(data), nil
}

func runTask(cmd *cobra.Command, job taskJob) error {
	projectID, _ := cmd.Flags().GetString("project")
	raw, _ := cmd.Flags().GetBool("raw")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	llm, err := resolveLLM(ctx, cmd, client)
	if err != nil {
		return err
	}

	printStep("Generating %s with %s / %s", job.TaskID, llm.Provider, llm.Model)
	out, err := generateAndSave(ctx, client, projectID, llm, job)
	if err != nil {
		return err
	}

	printSuccess("Saved output %s", out.ID)
	if raw {
		fmt.Println(out.Markdown)
	} else {
		fmt.Print(renderMarkdown(out.Markdown))
	}
	return nil
}

// resolveLLM fills provider and model from flags, falling back to the
// remembered settings. Explicit flags are remembered for next time.
func resolveLLM(ctx context.Context, cmd *cobra.Command, client *apiClient) (settings.LLM, error) {
	providerFlag, _ := cmd.Flags().GetString("provider")
	modelFlag, _ := cmd.Flags().GetString("model")

	var patch settings.Patch
	var llm settings.LLM
	if providerFlag != "" {
		p, ok := engine.ParseProvider(strings.ToLower(strings.TrimSpace(providerFlag)))
		if !ok {
			return llm, fmt.Errorf("unknown provider %q (ollama or openai)", providerFlag)
		}
		v := string(p)
		patch.Provider = &v
	}
	if m := strings.TrimSpace(modelFlag); m != "" {
		patch.Model = &m
	}

	if patch.Provider != nil || patch.Model != nil {
		if err := client.call(ctx, http.MethodPut, "/settings", patch, &llm); err != nil {
			return llm, fmt.Errorf("remembering settings: %w", err)
		}
		return llm, nil
	}
	if err := client.call(ctx, http.MethodGet, "/settings", nil, &llm); err != nil {
		return llm, fmt.Errorf("loading settings: %w", err)
	}
	return llm, nil
}

func generateAndSave(ctx context.Context, client *apiClient, projectID string, llm settings.LLM, job taskJob) (storage.OutputDocument, error) {
	var gen struct {
		Markdown string `json:"markdown"`
	}
	err := client.call(ctx, http.MethodPost, "/llm/generate", map[string]string{
		"provider": llm.Provider,
		"model":    llm.Model,
		"taskId":   job.TaskID,
		"prompt":   job.Prompt,
	}, &gen)
	if err != nil {
		return storage.OutputDocument{}, err
	}
	if strings.TrimSpace(gen.Markdown) == "" {
		return storage.OutputDocument{}, errors.New("LLM returned empty markdown")
	}

	body := map[string]any{
		"taskId":   job.TaskID,
		"input":    job.Input(llm.Provider, llm.Model),
		"markdown": gen.Markdown,
	}
	if job.Title != "" {
		body["title"] = job.Title
	}
	var saved struct {
		Output storage.OutputDocument `json:"output"`
	}
	path := "/projects/" + url.PathEscape(projectID) + "/outputs"
	if err := client.call(ctx, http.MethodPost, path, body, &saved); err != nil {
		return storage.OutputDocument{}, fmt.Errorf("saving output: %w", err)
	}
	return saved.Output, nil
}
