package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Corpus    CorpusConfig
	Index     IndexConfig
	Retrieval RetrievalConfig
	WebSearch WebSearchConfig
	Agent     AgentConfig
	LLM       LLMConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL    string
	EmbedModel string
}

type CorpusConfig struct {
	DataDir      string
	ChunkSize    int
	ChunkOverlap int
}

type IndexConfig struct {
	Dir string
}

type RetrievalConfig struct {
	TopK int
}

type WebSearchConfig struct {
	APIKey     string
	MaxResults int
}

type AgentConfig struct {
	MaxRounds   int
	ToolTimeout time.Duration
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4200,
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
		},
		Corpus: CorpusConfig{
			DataDir:      "./data",
			ChunkSize:    1200,
			ChunkOverlap: 200,
		},
		Index: IndexConfig{
			Dir: "./vectorstore",
		},
		Retrieval: RetrievalConfig{
			TopK: 4,
		},
		WebSearch: WebSearchConfig{
			MaxResults: 2,
		},
		Agent: AgentConfig{
			MaxRounds:   6,
			ToolTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Model: "google/gemini-2.0-flash-001",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds configuration from defaults overridden by ANSWERD_*
// environment variables. The chat completion API key is the only
// required value: the agent cannot reason without one.
func Load() (Config, error) {
	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: chat API key. " +
			"Set it via environment variable ANSWERD_LLM_API_KEY")
	}
	if cfg.Corpus.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("chunk size must be positive, got %d", cfg.Corpus.ChunkSize)
	}
	if cfg.Corpus.ChunkOverlap < 0 || cfg.Corpus.ChunkOverlap >= cfg.Corpus.ChunkSize {
		return Config{}, fmt.Errorf("chunk overlap %d must be in [0, chunk size %d)",
			cfg.Corpus.ChunkOverlap, cfg.Corpus.ChunkSize)
	}

	return cfg, nil
}
