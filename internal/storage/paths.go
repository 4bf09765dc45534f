package storage

import (
	"path/filepath"
	"strings"
)

// Paths resolves every on-disk location under a data root.
type Paths struct {
	Root string
}

func (p Paths) ProjectsIndex() string { return filepath.Join(p.Root, "projects.json") }

func (p Paths) IndexLock() string { return filepath.Join(p.Root, "projects.json.lock") }

func (p Paths) ProjectsDir() string { return filepath.Join(p.Root, "projects") }

func (p Paths) ProjectDir(projectID string) string {
	return filepath.Join(p.ProjectsDir(), projectID)
}

func (p Paths) ProjectMeta(projectID string) string {
	return filepath.Join(p.ProjectDir(projectID), "project.json")
}

func (p Paths) OutputsDir(projectID string) string {
	return filepath.Join(p.ProjectDir(projectID), "outputs")
}

func (p Paths) OutputMeta(projectID, outputID string) string {
	return filepath.Join(p.OutputsDir(projectID), outputID+".json")
}

func (p Paths) OutputMarkdown(projectID, outputID string) string {
	return filepath.Join(p.OutputsDir(projectID), outputID+".md")
}

// PromptsDir holds user-saved prompt overrides.
func (p Paths) PromptsDir() string { return filepath.Join(p.Root, "prompts") }

// ValidID reports whether id is safe to use as a single path segment.
func ValidID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}
