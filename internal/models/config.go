package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// LLM extraction config
	LLM LLMConfig `yaml:"llm"`
}

// LLMConfig represents external extraction provider configuration
type LLMConfig struct {
	// OpenAI
	OpenAI OpenAIConfig `yaml:"openai"`

	// Gemini
	Gemini GeminiConfig `yaml:"gemini"`

	// Ollama (local)
	Ollama OllamaConfig `yaml:"ollama"`

	// Default provider: "openai", "gemini", "ollama" or "" (disabled)
	DefaultProvider string `yaml:"default_provider"`
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4.1-mini"
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-pro"
}

// OllamaConfig for local Ollama
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"` // Default: "http://localhost:11434"
	Model   string `yaml:"model"`    // e.g., "mistral", "llama2"
}
