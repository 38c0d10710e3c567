package models

// ModelConfig configures the underlying language model.
type ModelConfig struct {
	Provider    string  `json:"provider"`     // ollama, openai, anthropic, gemini
	Model       string  `json:"model"`        // e.g. "mistral:instruct"
	ServerURL   string  `json:"server_url"`   // Ollama host; ignored by hosted providers
	Temperature float64 `json:"temperature"`  // 0.0 to 2.0
	NumPredict  int     `json:"num_predict"`  // Max tokens to generate
}

// DefaultModelConfig returns the configuration used when nothing is set.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:    "ollama",
		Model:       "mistral:instruct",
		ServerURL:   "http://localhost:11434",
		Temperature: 0.9,
		NumPredict:  128,
	}
}
