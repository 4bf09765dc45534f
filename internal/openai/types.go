package openai

// ResponseRequest is the body of POST /responses.
type ResponseRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// Response holds the parts of a Responses API reply that carry text.
type Response struct {
	OutputText string       `json:"output_text,omitempty"`
	Output     []OutputItem `json:"output,omitempty"`
}

type OutputItem struct {
	Content []ContentPart `json:"content,omitempty"`
}

type ContentPart struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// Model represents a model entry returned by the /models endpoint.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelList is the response from /models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
