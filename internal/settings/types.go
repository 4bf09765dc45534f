package settings

// Setting keys in the settings table.
const (
	KeyProvider = "llm.provider"
	KeyModel    = "llm.model"
)

// LLM is the remembered provider and model choice.
type LLM struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Patch updates the fields that are non-nil.
type Patch struct {
	Provider *string `json:"provider,omitempty"`
	Model    *string `json:"model,omitempty"`
}
