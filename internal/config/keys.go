package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

// keySpec binds an environment variable to a config field.
type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, val any)
}

var specs = []keySpec{
	{
		env: "ANSWERD_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, val any) { cfg.Server.Port = val.(int) },
	},
	{
		env: "ANSWERD_OLLAMA_BASE_URL", typ: kString,
		apply: func(cfg *Config, val any) { cfg.Ollama.BaseURL = val.(string) },
	},
	{
		env: "ANSWERD_OLLAMA_EMBED_MODEL", typ: kString,
		apply: func(cfg *Config, val any) { cfg.Ollama.EmbedModel = val.(string) },
	},
	{
		env: "ANSWERD_DATA_DIR", typ: kString,
		apply: func(cfg *Config, val any) { cfg.Corpus.DataDir = val.(string) },
	},
	{
		env: "ANSWERD_CHUNK_SIZE", typ: kInt,
		apply: func(cfg *Config, val any) { cfg.Corpus.ChunkSize = val.(int) },
	},
	{
		env: "ANSWERD_CHUNK_OVERLAP", typ: kInt,
		apply: func(cfg *Config, val any) { cfg.Corpus.ChunkOverlap = val.(int) },
	},
	{
		env: "ANSWERD_INDEX_DIR", typ: kString,
		apply: func(cfg *Config, val any) { cfg.Index.Dir = val.(string) },
	},
	{
		env: "ANSWERD_RETRIEVAL_TOP_K", typ: kInt,
		apply: func(cfg *Config, val any) { cfg.Retrieval.TopK = val.(int) },
	},
	{
		env: "ANSWERD_TAVILY_API_KEY", typ: kString,
		apply: func(cfg *Config, val any) { cfg.WebSearch.APIKey = val.(string) },
	},
	{
		env: "ANSWERD_WEB_MAX_RESULTS", typ: kInt,
		apply: func(cfg *Config, val any) { cfg.WebSearch.MaxResults = val.(int) },
	},
	{
		env: "ANSWERD_AGENT_MAX_ROUNDS", typ: kInt,
		apply: func(cfg *Config, val any) { cfg.Agent.MaxRounds = val.(int) },
	},
	{
		env: "ANSWERD_AGENT_TOOL_TIMEOUT", typ: kDuration,
		apply: func(cfg *Config, val any) { cfg.Agent.ToolTimeout = val.(time.Duration) },
	},
	{
		env: "ANSWERD_LLM_API_KEY", typ: kString,
		apply: func(cfg *Config, val any) { cfg.LLM.APIKey = val.(string) },
	},
	{
		env: "ANSWERD_LLM_BASE_URL", typ: kString,
		apply: func(cfg *Config, val any) { cfg.LLM.BaseURL = val.(string) },
	},
	{
		env: "ANSWERD_LLM_MODEL", typ: kString,
		apply: func(cfg *Config, val any) { cfg.LLM.Model = val.(string) },
	},
	{
		env: "ANSWERD_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, val any) { cfg.Log.Level = val.(string) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
