package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Generation statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Generation is one recorded LLM call.
type Generation struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	TaskID        string    `json:"taskId,omitempty"`
	PromptChars   int       `json:"promptChars"`
	ResponseChars int       `json:"responseChars"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	DurationMs    int64     `json:"durationMs"`
}
