package engine

// PullProgress reports download progress for a model pull operation.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// GenerateRequest selects a provider and model for one prompt.
// An empty Provider means the gateway default.
type GenerateRequest struct {
	Provider Provider
	Model    string
	Prompt   string
}
