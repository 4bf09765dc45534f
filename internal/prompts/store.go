package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kalambet/qalobby/internal/storage"
)

// Source tells where resolved prompt content came from.
type Source string

const (
	SourceSaved   Source = "saved"
	SourceDefault Source = "default"
	SourceEmpty   Source = "empty"
)

// Prompt is resolved template content.
type Prompt struct {
	Content string `json:"content"`
	Source  Source `json:"source"`
}

// Record is a resolved prompt annotated with its task and file state.
type Record struct {
	TaskID           string `json:"taskId"`
	TaskName         string `json:"taskName"`
	TaskDescription  string `json:"taskDescription"`
	Content          string `json:"content"`
	Source           Source `json:"source"`
	HasDefault       bool   `json:"hasDefault"`
	SavedUpdatedAt   string `json:"savedUpdatedAt,omitempty"`
	DefaultUpdatedAt string `json:"defaultUpdatedAt,omitempty"`
}

// Store resolves task templates from a writable saved directory over a
// read-only defaults directory. Nothing is cached.
type Store struct {
	savedDir    string
	defaultsDir string
}

// NewStore returns a Store. savedDir is created on first save.
func NewStore(savedDir, defaultsDir string) *Store {
	return &Store{savedDir: savedDir, defaultsDir: defaultsDir}
}

func (s *Store) savedPath(taskID string) string {
	return filepath.Join(s.savedDir, strings.TrimSpace(taskID)+".md")
}

func (s *Store) defaultPath(taskID string) string {
	return filepath.Join(s.defaultsDir, strings.TrimSpace(taskID)+".md")
}

// GetPromptContent resolves saved, then default, then empty. A saved file
// wins even when it is empty.
func (s *Store) GetPromptContent(taskID string) Prompt {
	if !storage.ValidID(taskID) {
		return Prompt{Source: SourceEmpty}
	}
	if content, ok := storage.ReadTextFile(s.savedPath(taskID)); ok {
		return Prompt{Content: content, Source: SourceSaved}
	}
	if content, ok := storage.ReadTextFile(s.defaultPath(taskID)); ok {
		return Prompt{Content: content, Source: SourceDefault}
	}
	return Prompt{Source: SourceEmpty}
}

// ListPrompts resolves every registered task.
func (s *Store) ListPrompts() []Record {
	records := make([]Record, 0, len(tasks))
	for _, t := range tasks {
		p := s.GetPromptContent(t.ID)
		r := Record{
			TaskID:          t.ID,
			TaskName:        t.Name,
			TaskDescription: t.Description,
			Content:         p.Content,
			Source:          p.Source,
			HasDefault:      s.HasDefaultPrompt(t.ID),
		}
		if ts, ok := s.SavedPromptUpdatedAt(t.ID); ok {
			r.SavedUpdatedAt = ts.UTC().Format(storage.TimeLayout)
		}
		if ts, ok := s.DefaultPromptUpdatedAt(t.ID); ok {
			r.DefaultUpdatedAt = ts.UTC().Format(storage.TimeLayout)
		}
		records = append(records, r)
	}
	return records
}

// SavePrompt overwrites the saved template for taskID with content verbatim.
func (s *Store) SavePrompt(taskID, content string) error {
	if !storage.ValidID(taskID) {
		return &storage.ValidationError{Field: "taskId", Message: "taskId is invalid"}
	}
	if err := storage.EnsureDir(s.savedDir); err != nil {
		return err
	}
	if err := storage.WriteTextFile(s.savedPath(taskID), content); err != nil {
		return fmt.Errorf("saving prompt %s: %w", taskID, err)
	}
	return nil
}

// DeleteSavedPrompt removes the saved override. It reports false when there
// was nothing to remove.
func (s *Store) DeleteSavedPrompt(taskID string) (bool, error) {
	if !storage.ValidID(taskID) {
		return false, nil
	}
	err := os.Remove(s.savedPath(taskID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting prompt %s: %w", taskID, err)
	}
	return true, nil
}

func (s *Store) HasDefaultPrompt(taskID string) bool {
	return storage.ValidID(taskID) && storage.FileExists(s.defaultPath(taskID))
}

func (s *Store) SavedPromptUpdatedAt(taskID string) (time.Time, bool) {
	return modTime(taskID, s.savedPath)
}

func (s *Store) DefaultPromptUpdatedAt(taskID string) (time.Time, bool) {
	return modTime(taskID, s.defaultPath)
}

func modTime(taskID string, path func(string) string) (time.Time, bool) {
	if !storage.ValidID(taskID) {
		return time.Time{}, false
	}
	info, err := os.Stat(path(taskID))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
