package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	clock := &stepClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewWithClock(t.TempDir(), clock)
}

func TestListProjectsEmptyRoot(t *testing.T) {
	s := newTestStore(t)

	got := s.ListProjects()
	if got == nil || len(got) != 0 {
		t.Errorf("ListProjects() = %v, want empty non-nil slice", got)
	}
}

func TestCreateProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("  Checkout  ")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.Name != "Checkout" {
		t.Errorf("Name = %q, want %q", p.Name, "Checkout")
	}
	if p.CreatedAt != "2025-01-01T12:00:01.000Z" {
		t.Errorf("CreatedAt = %q", p.CreatedAt)
	}

	got, ok := s.GetProject(p.ID)
	if !ok {
		t.Fatal("GetProject: not found")
	}
	if got != p {
		t.Errorf("GetProject = %+v, want %+v", got, p)
	}

	var onDisk Project
	if !ReadJSONFile(s.paths.ProjectMeta(p.ID), &onDisk) || onDisk != p {
		t.Errorf("project.json = %+v, want %+v", onDisk, p)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateProject("   ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Message != "Project name is required" {
		t.Errorf("err = %v", err)
	}
	if FileExists(s.paths.ProjectsIndex()) {
		t.Error("index should not be written on validation failure")
	}
}

func TestListProjectsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := s.CreateProject(fmt.Sprintf("p%d", i))
		if err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
		ids = append(ids, p.ID)
	}

	got := s.ListProjects()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, p := range got {
		if p.ID != ids[2-i] {
			t.Errorf("position %d = %s, want %s", i, p.ID, ids[2-i])
		}
	}
}

func TestCorruptIndexTreatedAsEmpty(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.paths.ProjectsIndex(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := s.ListProjects(); len(got) != 0 {
		t.Errorf("ListProjects() = %v, want empty", got)
	}
	if _, err := s.CreateProject("fresh"); err != nil {
		t.Fatalf("CreateProject over corrupt index: %v", err)
	}
	if got := s.ListProjects(); len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestDeleteProjectIdempotent(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("gone")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := s.DeleteProject(""); err != nil {
		t.Fatalf("blank delete: %v", err)
	}

	if _, ok := s.GetProject(p.ID); ok {
		t.Error("project still indexed")
	}
	if FileExists(s.paths.ProjectDir(p.ID)) {
		t.Error("project directory still on disk")
	}
}

func TestDeleteProjectUnknownLeavesIndexUntouched(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateProject("keep"); err != nil {
		t.Fatal(err)
	}
	before, _ := os.Stat(s.paths.ProjectsIndex())

	if err := s.DeleteProject("no-such-id"); err != nil {
		t.Fatal(err)
	}

	after, _ := os.Stat(s.paths.ProjectsIndex())
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("index rewritten for unknown id")
	}
}

func TestPathTraversalIDs(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"..", ".", "../x", `a\b`, "a\x00b"} {
		if _, ok := s.GetProject(id); ok {
			t.Errorf("GetProject(%q) found something", id)
		}
		if err := s.DeleteProject(id); err != nil {
			t.Errorf("DeleteProject(%q) = %v", id, err)
		}
		if got := s.ListProjectOutputs(id); len(got) != 0 {
			t.Errorf("ListProjectOutputs(%q) = %v", id, got)
		}
		_, err := s.CreateProjectOutput(NewOutput{ProjectID: id, TaskID: "t", Markdown: "x"})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("CreateProjectOutput(%q) err = %v, want ErrValidation", id, err)
		}
	}
}

func TestConcurrentCreatesKeepEveryProject(t *testing.T) {
	s := newTestStore(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.CreateProject(fmt.Sprintf("p%d", i)); err != nil {
				t.Errorf("CreateProject: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.ListProjects()); got != n {
		t.Errorf("indexed projects = %d, want %d", got, n)
	}
}

func TestOutputRoundTrip(t *testing.T) {
	s := newTestStore(t)
	input := json.RawMessage(`{"provider":"ollama","model":"llama3.1"}`)

	out, err := s.CreateProjectOutput(NewOutput{
		ProjectID: " p1 ",
		TaskID:    "create-bug-ticket",
		Title:     "  Login fails  ",
		Input:     input,
		Markdown:  "# Bug\n",
	})
	if err != nil {
		t.Fatalf("CreateProjectOutput: %v", err)
	}
	if out.ProjectID != "p1" || out.Title != "Login fails" || out.SchemaVersion != 1 {
		t.Errorf("unexpected output %+v", out)
	}

	list := s.ListProjectOutputs("p1")
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	got := list[0]
	if got.ID != out.ID || got.Markdown != "# Bug\n" || got.TaskID != "create-bug-ticket" {
		t.Errorf("listed %+v", got)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, got.Input); err != nil {
		t.Fatalf("compacting input: %v", err)
	}
	if compact.String() != string(input) {
		t.Errorf("Input = %s, want %s", compact.String(), input)
	}

	single, ok := s.GetProjectOutput("p1", out.ID)
	if !ok || single.Markdown != "# Bug\n" {
		t.Errorf("GetProjectOutput = %+v, %v", single, ok)
	}
}

func TestOutputOmitsBlankTitle(t *testing.T) {
	s := newTestStore(t)

	out, err := s.CreateProjectOutput(NewOutput{ProjectID: "p", TaskID: "t", Title: "   ", Markdown: "body"})
	if err != nil {
		t.Fatal(err)
	}
	raw, ok := ReadTextFile(s.paths.OutputMeta("p", out.ID))
	if !ok {
		t.Fatal("metadata missing")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	if _, present := m["title"]; present {
		t.Errorf("title present in %s", raw)
	}
	if m["schemaVersion"] != float64(1) {
		t.Errorf("schemaVersion = %v", m["schemaVersion"])
	}
}

func TestCreateProjectOutputValidation(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		in   NewOutput
		msg  string
	}{
		{"blank project", NewOutput{ProjectID: " ", TaskID: "t", Markdown: "x"}, "projectId is required"},
		{"blank task", NewOutput{ProjectID: "p", TaskID: "", Markdown: "x"}, "taskId is required"},
		{"blank markdown", NewOutput{ProjectID: "p", TaskID: "t", Markdown: " \n "}, "markdown is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateProjectOutput(tt.in)
			if !errors.Is(err, ErrValidation) || err.Error() != tt.msg {
				t.Errorf("err = %v, want %q", err, tt.msg)
			}
		})
	}
}

func TestListOutputsSkipsPartialPairs(t *testing.T) {
	s := newTestStore(t)

	good, err := s.CreateProjectOutput(NewOutput{ProjectID: "p", TaskID: "t", Markdown: "ok"})
	if err != nil {
		t.Fatal(err)
	}
	noMarkdown, err := s.CreateProjectOutput(NewOutput{ProjectID: "p", TaskID: "t", Markdown: "lost"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(s.paths.OutputMarkdown("p", noMarkdown.ID)); err != nil {
		t.Fatal(err)
	}

	// metadata whose id disagrees with the file name
	mismatched := OutputMetadata{ID: "other", ProjectID: "p", TaskID: "t", CreatedAt: "2030-01-01T00:00:00.000Z"}
	if err := WriteJSONFile(s.paths.OutputMeta("p", "renamed"), mismatched); err != nil {
		t.Fatal(err)
	}
	if err := WriteTextFile(s.paths.OutputMarkdown("p", "renamed"), "x"); err != nil {
		t.Fatal(err)
	}

	// orphan markdown without metadata
	if err := WriteTextFile(s.paths.OutputMarkdown("p", "orphan"), "x"); err != nil {
		t.Fatal(err)
	}

	list := s.ListProjectOutputs("p")
	if len(list) != 1 || list[0].ID != good.ID {
		t.Errorf("ListProjectOutputs = %+v, want only %s", list, good.ID)
	}
	if _, ok := s.GetProjectOutput("p", noMarkdown.ID); ok {
		t.Error("GetProjectOutput returned output without markdown")
	}
}

func TestListOutputsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		out, err := s.CreateProjectOutput(NewOutput{ProjectID: "p", TaskID: "t", Markdown: "x"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, out.ID)
	}

	list := s.ListProjectOutputs("p")
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	for i, doc := range list {
		if doc.ID != ids[2-i] {
			t.Errorf("position %d = %s, want %s", i, doc.ID, ids[2-i])
		}
	}
}

func TestDeleteProjectOutputIdempotent(t *testing.T) {
	s := newTestStore(t)

	out, err := s.CreateProjectOutput(NewOutput{ProjectID: "p", TaskID: "t", Markdown: "x"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.DeleteProjectOutput("p", out.ID); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if err := s.DeleteProjectOutput("", ""); err != nil {
		t.Fatalf("blank delete: %v", err)
	}
	if FileExists(s.paths.OutputMeta("p", out.ID)) || FileExists(s.paths.OutputMarkdown("p", out.ID)) {
		t.Error("output files still on disk")
	}
	if got := s.ListProjectOutputs("p"); len(got) != 0 {
		t.Errorf("ListProjectOutputs = %v", got)
	}
}

func TestValidID(t *testing.T) {
	tests := map[string]bool{
		"abc":        true,
		"create-bug": true,
		"":           false,
		"  ":         false,
		".":          false,
		"..":         false,
		"a/b":        false,
		`a\b`:        false,
		"a\x00":      false,
	}
	for id, want := range tests {
		if got := ValidID(id); got != want {
			t.Errorf("ValidID(%q) = %v, want %v", id, got, want)
		}
	}
}
