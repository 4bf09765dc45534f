package storage

import (
	"encoding/json"
	"errors"
	"time"
)

// TimeLayout is the on-disk timestamp format: ISO-8601 UTC with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// OutputSchemaVersion is written into every output metadata file.
const OutputSchemaVersion = 1

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports caller input that a store refused to persist.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Project is one entry of the project index.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type projectIndex struct {
	Projects []Project `json:"projects"`
}

// OutputMetadata is the JSON half of a stored output.
type OutputMetadata struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"projectId"`
	TaskID        string          `json:"taskId"`
	Title         string          `json:"title,omitempty"`
	Input         json.RawMessage `json:"input,omitempty"`
	CreatedAt     string          `json:"createdAt"`
	SchemaVersion int             `json:"schemaVersion,omitempty"`
}

// OutputDocument joins the metadata with its markdown body.
type OutputDocument struct {
	OutputMetadata
	Markdown string `json:"markdown"`
}

// NewOutput is the caller-supplied part of an output.
type NewOutput struct {
	ProjectID string
	TaskID    string
	Title     string
	Input     json.RawMessage
	Markdown  string
}

// Clock abstracts time.Now for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
