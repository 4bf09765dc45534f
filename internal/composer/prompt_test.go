package composer

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name     string
		template string
		prompt   string
		want     string
	}{
		{"blank template", "  \n ", "do it", "do it"},
		{"empty template", "", "do it", "do it"},
		{"trimmed template", "\n  You are QA.  \n", "do it", "You are QA.\n\n---\n\ndo it"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compose(tt.template, tt.prompt); got != tt.want {
				t.Errorf("Compose = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	if got, ok := DeriveTitle("  Explicit ", "ignored"); !ok || got != "Explicit" {
		t.Errorf("explicit: %q, %v", got, ok)
	}
	if got, ok := DeriveTitle("", "  Login\n\n  fails\ton Safari "); !ok || got != "Login fails on Safari" {
		t.Errorf("collapsed: %q, %v", got, ok)
	}
	if _, ok := DeriveTitle(" ", " \n "); ok {
		t.Error("blank inputs produced a title")
	}

	long := strings.Repeat("a", 79) + " bcd"
	got, _ := DeriveTitle("", long)
	if got != strings.Repeat("a", 79) {
		t.Errorf("truncated title = %q", got)
	}
}

func TestBugTicketPrompt_Minimal(t *testing.T) {
	got := BugTicket{Description: "  Button does nothing  "}.Prompt()
	want := strings.Join([]string{
		"You are a QA assistant. Produce a high-quality bug ticket in Markdown.",
		"Use clear headings and bullet lists.",
		"Do not include any non-Markdown wrappers.",
		"",
		"## Title",
		"(Infer a concise title)",
		"",
		"## Description",
		"Button does nothing",
		"",
		"## Environment",
		"- App/version: (unknown)",
		"- Browser: (unknown)",
		"- OS: (unknown)",
		"",
		"## Notes / Attachments",
		"- (Optional)",
	}, "\n")
	if got != want {
		t.Errorf("prompt mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestBugTicketPrompt_OptionalSections(t *testing.T) {
	b := BugTicket{
		Title:            "Crash",
		Description:      "App crashes",
		StepsToReproduce: "1. open",
		ActualBehavior:   "crash",
	}
	got := b.Prompt()
	if !strings.Contains(got, "## Title\nCrash\n") {
		t.Errorf("missing title: %q", got)
	}
	if !strings.Contains(got, "\n\n## Steps to Reproduce\n1. open\n\n## Actual Behavior\ncrash\n\n## Environment") {
		t.Errorf("optional sections wrong: %q", got)
	}
	if strings.Contains(got, "Expected Behavior") {
		t.Error("blank expected behavior rendered")
	}
}

func TestBugTicketInput(t *testing.T) {
	in := BugTicket{Description: "Checkout total wrong"}.Input("ollama", "llama3.1")
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"provider":"ollama","model":"llama3.1","title":"Checkout total wrong","description":"Checkout total wrong"}`
	if string(raw) != want {
		t.Errorf("input = %s, want %s", raw, want)
	}
}

func TestTextTaskPrompt(t *testing.T) {
	got := TextTask{TaskID: "create-test-plan", Context: "  Plan the search feature  "}.Prompt()
	want := "Task: create-test-plan\nTitle: Plan the search feature\nContext:\nPlan the search feature"
	if got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}

	got = TextTask{TaskID: "create-test-case", Title: "Search", Context: "ctx"}.Prompt()
	if got != "Task: create-test-case\nTitle: Search\nContext:\nctx" {
		t.Errorf("prompt = %q", got)
	}
}

func TestCoveragePrompt(t *testing.T) {
	c := Coverage{
		Requirements:  " R1 must work ",
		TestCaseFiles: []SourceFile{{Name: "cases.md", Text: "\nTC-1\n"}},
		Notes:         "focus on R1",
	}
	want := strings.Join([]string{
		"Requirements (pasted):",
		"R1 must work",
		"",
		"",
		"Test Cases (files):",
		"",
		"--- cases.md ---",
		"TC-1",
		"",
		"Notes:",
		"focus on R1",
	}, "\n")
	if got := c.Prompt(); got != want {
		t.Errorf("prompt mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := c.DerivedTitle(); got != "Requirements (pasted): R1 must work Test Cases (files): --- cases.md --- TC-1 No" {
		t.Errorf("DerivedTitle = %q", got)
	}
}

func TestCoverageInputOmitsContents(t *testing.T) {
	c := Coverage{
		Requirements:      "abc",
		RequirementsFiles: []SourceFile{{Name: "req.pdf", Text: "secret requirement text"}},
		TestCases:         "xy",
	}
	raw, err := json.Marshal(c.Input("openai", "gpt-4.1"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "secret") {
		t.Errorf("file contents leaked into input: %s", raw)
	}
	want := `{"provider":"openai","model":"gpt-4.1","requirements":{"pastedChars":3,"files":[{"name":"req.pdf","chars":23}]},"testCases":{"pastedChars":2,"files":[]}}`
	if string(raw) != want {
		t.Errorf("input = %s, want %s", raw, want)
	}
}

func TestCoverageReady(t *testing.T) {
	if err := (Coverage{TestCases: "x"}).Ready(); err == nil {
		t.Error("missing requirements accepted")
	}
	if err := (Coverage{Requirements: "x"}).Ready(); err == nil {
		t.Error("missing test cases accepted")
	}
	if err := (Coverage{RequirementsFiles: []SourceFile{{Name: "a"}}, TestCases: "x"}).Ready(); err != nil {
		t.Errorf("Ready: %v", err)
	}
}
