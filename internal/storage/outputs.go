package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ListProjectOutputs returns the complete outputs of a project, newest first.
// Entries whose metadata is unreadable, whose id does not match the file name,
// or whose markdown is missing are skipped.
func (s *Store) ListProjectOutputs(projectID string) []OutputDocument {
	projectID = strings.TrimSpace(projectID)
	docs := []OutputDocument{}
	if !ValidID(projectID) {
		return docs
	}

	entries, err := os.ReadDir(s.paths.OutputsDir(projectID))
	if err != nil {
		return docs
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if doc, ok := s.readOutput(projectID, strings.TrimSuffix(name, ".json")); ok {
			docs = append(docs, doc)
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt > docs[j].CreatedAt
	})
	return docs
}

// GetProjectOutput returns one output when both of its files are present.
func (s *Store) GetProjectOutput(projectID, outputID string) (OutputDocument, bool) {
	projectID = strings.TrimSpace(projectID)
	outputID = strings.TrimSpace(outputID)
	if !ValidID(projectID) || !ValidID(outputID) {
		return OutputDocument{}, false
	}
	return s.readOutput(projectID, outputID)
}

func (s *Store) readOutput(projectID, outputID string) (OutputDocument, bool) {
	var meta OutputMetadata
	if !ReadJSONFile(s.paths.OutputMeta(projectID, outputID), &meta) || meta.ID != outputID {
		return OutputDocument{}, false
	}
	md, ok := ReadTextFile(s.paths.OutputMarkdown(projectID, outputID))
	if !ok {
		return OutputDocument{}, false
	}
	return OutputDocument{OutputMetadata: meta, Markdown: md}, true
}

// CreateProjectOutput stores markdown and its metadata. The markdown file is
// written first so a crash never leaves metadata pointing at nothing.
func (s *Store) CreateProjectOutput(in NewOutput) (OutputDocument, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	taskID := strings.TrimSpace(in.TaskID)

	switch {
	case projectID == "":
		return OutputDocument{}, invalid("projectId", "projectId is required")
	case !ValidID(projectID):
		return OutputDocument{}, invalid("projectId", "projectId is invalid")
	case taskID == "":
		return OutputDocument{}, invalid("taskId", "taskId is required")
	case strings.TrimSpace(in.Markdown) == "":
		return OutputDocument{}, invalid("markdown", "markdown is required")
	}

	meta := OutputMetadata{
		ID:            s.newID(),
		ProjectID:     projectID,
		TaskID:        taskID,
		Title:         strings.TrimSpace(in.Title),
		Input:         in.Input,
		CreatedAt:     formatTime(s.clock.Now()),
		SchemaVersion: OutputSchemaVersion,
	}

	if err := EnsureDir(s.paths.OutputsDir(projectID)); err != nil {
		return OutputDocument{}, err
	}
	if err := WriteTextFile(s.paths.OutputMarkdown(projectID, meta.ID), in.Markdown); err != nil {
		return OutputDocument{}, fmt.Errorf("saving output: %w", err)
	}
	if err := WriteJSONFile(s.paths.OutputMeta(projectID, meta.ID), meta); err != nil {
		return OutputDocument{}, fmt.Errorf("saving output: %w", err)
	}

	return OutputDocument{OutputMetadata: meta, Markdown: in.Markdown}, nil
}

// DeleteProjectOutput removes both files of an output; missing files are fine.
func (s *Store) DeleteProjectOutput(projectID, outputID string) error {
	projectID = strings.TrimSpace(projectID)
	outputID = strings.TrimSpace(outputID)
	if !ValidID(projectID) || !ValidID(outputID) {
		return nil
	}

	err := errors.Join(
		removeIfExists(s.paths.OutputMarkdown(projectID, outputID)),
		removeIfExists(s.paths.OutputMeta(projectID, outputID)),
	)
	if err != nil {
		return fmt.Errorf("deleting output %s: %w", outputID, err)
	}
	return nil
}
