package composer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// BugTicket is the form behind create-bug-ticket.
type BugTicket struct {
	Title            string
	Description      string
	StepsToReproduce string
	ExpectedBehavior string
	ActualBehavior   string
}

// BugTicketInput is persisted as the output's input.
type BugTicketInput struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Title            string `json:"title,omitempty"`
	Description      string `json:"description"`
	StepsToReproduce string `json:"stepsToReproduce,omitempty"`
	ExpectedBehavior string `json:"expectedBehavior,omitempty"`
	ActualBehavior   string `json:"actualBehavior,omitempty"`
}

// Prompt renders the bug report request.
func (b BugTicket) Prompt() string {
	title := strings.TrimSpace(b.Title)
	if title == "" {
		title = "(Infer a concise title)"
	}

	lines := []string{
		"You are a QA assistant. Produce a high-quality bug ticket in Markdown.",
		"Use clear headings and bullet lists.",
		"Do not include any non-Markdown wrappers.",
		"",
		"## Title",
		title,
		"",
		"## Description",
		strings.TrimSpace(b.Description),
	}
	for _, s := range []struct{ heading, body string }{
		{"## Steps to Reproduce", b.StepsToReproduce},
		{"## Expected Behavior", b.ExpectedBehavior},
		{"## Actual Behavior", b.ActualBehavior},
	} {
		if body := strings.TrimSpace(s.body); body != "" {
			lines = append(lines, "", s.heading, body)
		}
	}
	lines = append(lines,
		"",
		"## Environment",
		"- App/version: (unknown)",
		"- Browser: (unknown)",
		"- OS: (unknown)",
		"",
		"## Notes / Attachments",
		"- (Optional)",
	)
	return strings.Join(lines, "\n")
}

// DerivedTitle derives the output title from the explicit title or the description.
func (b BugTicket) DerivedTitle() string {
	t, _ := DeriveTitle(b.Title, b.Description)
	return t
}

// Input builds the persisted payload.
func (b BugTicket) Input(provider, model string) BugTicketInput {
	return BugTicketInput{
		Provider:         provider,
		Model:            model,
		Title:            b.DerivedTitle(),
		Description:      b.Description,
		StepsToReproduce: b.StepsToReproduce,
		ExpectedBehavior: b.ExpectedBehavior,
		ActualBehavior:   b.ActualBehavior,
	}
}

// TextTask is the free-form context form shared by ticket, approach, plan and
// test case tasks.
type TextTask struct {
	TaskID  string
	Title   string
	Context string
}

// TextTaskInput is persisted as the output's input.
type TextTaskInput struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Title    string `json:"title,omitempty"`
	Context  string `json:"context"`
}

func (t TextTask) DerivedTitle() string {
	title, _ := DeriveTitle(t.Title, t.Context)
	return title
}

// Prompt renders "Task:", an optional "Title:", and the context. Empty lines
// are dropped.
func (t TextTask) Prompt() string {
	candidates := []string{"Task: " + t.TaskID}
	if title := t.DerivedTitle(); title != "" {
		candidates = append(candidates, "Title: "+title)
	}
	candidates = append(candidates, "Context:", strings.TrimSpace(t.Context))

	lines := candidates[:0]
	for _, l := range candidates {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func (t TextTask) Input(provider, model string) TextTaskInput {
	return TextTaskInput{Provider: provider, Model: model, Title: t.DerivedTitle(), Context: t.Context}
}

// SourceFile is extracted text from one uploaded document.
type SourceFile struct {
	Name string
	Text string
}

// Coverage is the requirements vs test cases form.
type Coverage struct {
	Requirements      string
	RequirementsFiles []SourceFile
	TestCases         string
	TestCaseFiles     []SourceFile
	Notes             string
}

// FileStat records a file without its contents.
type FileStat struct {
	Name  string `json:"name"`
	Chars int    `json:"chars"`
}

// SourceStats summarizes one side of the comparison.
type SourceStats struct {
	PastedChars int        `json:"pastedChars"`
	Files       []FileStat `json:"files"`
}

// CoverageInput is persisted as the output's input. File contents are never
// stored, only names and sizes.
type CoverageInput struct {
	Provider     string      `json:"provider"`
	Model        string      `json:"model"`
	Notes        string      `json:"notes,omitempty"`
	Requirements SourceStats `json:"requirements"`
	TestCases    SourceStats `json:"testCases"`
}

// Ready reports whether both sides have something to compare.
func (c Coverage) Ready() error {
	if strings.TrimSpace(c.Requirements) == "" && len(c.RequirementsFiles) == 0 {
		return fmt.Errorf("requirements are required (pass text or files)")
	}
	if strings.TrimSpace(c.TestCases) == "" && len(c.TestCaseFiles) == 0 {
		return fmt.Errorf("test cases are required (pass text or files)")
	}
	return nil
}

// Prompt renders pasted text and file sections for both sides plus notes.
func (c Coverage) Prompt() string {
	var parts []string
	if s := strings.TrimSpace(c.Requirements); s != "" {
		parts = append(parts, "Requirements (pasted):", s)
	}
	if s := fileSection("Requirements (files):", c.RequirementsFiles); s != "" {
		parts = append(parts, "", s)
	}

	parts = append(parts, "")
	if s := strings.TrimSpace(c.TestCases); s != "" {
		parts = append(parts, "Test Cases (pasted):", s)
	}
	if s := fileSection("Test Cases (files):", c.TestCaseFiles); s != "" {
		parts = append(parts, "", s)
	}

	if s := strings.TrimSpace(c.Notes); s != "" {
		parts = append(parts, "", "Notes:", s)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func (c Coverage) DerivedTitle() string {
	if t, ok := DeriveTitle("", c.Prompt()); ok {
		return t
	}
	return "Coverage Analysis"
}

func (c Coverage) Input(provider, model string) CoverageInput {
	return CoverageInput{
		Provider: provider,
		Model:    model,
		Notes:    strings.TrimSpace(c.Notes),
		Requirements: SourceStats{
			PastedChars: utf8.RuneCountInString(c.Requirements),
			Files:       fileStats(c.RequirementsFiles),
		},
		TestCases: SourceStats{
			PastedChars: utf8.RuneCountInString(c.TestCases),
			Files:       fileStats(c.TestCaseFiles),
		},
	}
}

func fileSection(title string, files []SourceFile) string {
	if len(files) == 0 {
		return ""
	}
	parts := []string{title}
	for _, f := range files {
		parts = append(parts, "", "--- "+f.Name+" ---", strings.TrimSpace(f.Text))
	}
	return strings.Join(parts, "\n")
}

func fileStats(files []SourceFile) []FileStat {
	stats := make([]FileStat, len(files))
	for i, f := range files {
		stats[i] = FileStat{Name: f.Name, Chars: utf8.RuneCountInString(f.Text)}
	}
	return stats
}
