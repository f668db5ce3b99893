// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads assistant configuration from YAML files and
// VALET_-prefixed environment variables, env winning over file.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Assistant AssistantConfig `koanf:"assistant"`
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Storage   StorageConfig   `koanf:"storage"`
	Memory    MemoryConfig    `koanf:"memory"`
	Notify    NotifyConfig    `koanf:"notify"`
	MCP       MCPConfig       `koanf:"mcp"`
	Router    RouterConfig    `koanf:"router"`
	Executor  ExecutorConfig  `koanf:"executor"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type AssistantConfig struct {
	Name              string `koanf:"name"`
	DefaultUser       string `koanf:"default_user"`
	HistoryLimit      int    `koanf:"history_limit"`
	ResponseTimeoutMS int    `koanf:"response_timeout_ms"`
	LearningEnabled   bool   `koanf:"learning_enabled"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // ollama
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"` // sqlite, memory
	Path   string `koanf:"path"`
}

type MemoryConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Provider         string `koanf:"provider"` // vector, inmemory
	Collection       string `koanf:"collection"`
	QdrantAddr       string `koanf:"qdrant_addr"`
	EmbedderProvider string `koanf:"embedder_provider"` // ollama
	EmbedderBaseURL  string `koanf:"embedder_base_url"`
	EmbedderModel    string `koanf:"embedder_model"`
}

type NotifyConfig struct {
	Enabled     bool   `koanf:"enabled"`
	BaseURL     string `koanf:"base_url"`
	TopicPrefix string `koanf:"topic_prefix"`
}

// MCPServerConfig describes one MCP server to spawn over stdio. Its
// tools are discovered at startup and registered alongside the builtin
// ones.
type MCPServerConfig struct {
	Name    string   `koanf:"name"`
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

type MCPConfig struct {
	Servers []MCPServerConfig `koanf:"servers"`
}

type RouterConfig struct {
	PatternFile string `koanf:"pattern_file"`
}

type ExecutorConfig struct {
	MaxIterations int     `koanf:"max_iterations"`
	HistoryWindow int     `koanf:"history_window"`
	Temperature   float64 `koanf:"temperature"`
	MaxTokens     int     `koanf:"max_tokens"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Load reads configuration with defaults, then the YAML file at path
// (when non-empty), then VALET_-prefixed env vars. Later layers win.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	k.Set("assistant.name", "Valet")
	k.Set("assistant.default_user", "default")
	k.Set("assistant.history_limit", 20)
	k.Set("assistant.response_timeout_ms", 60000)
	k.Set("assistant.learning_enabled", true)

	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5:7b-instruct")
	k.Set("llm.base_url", "http://localhost:11434")

	k.Set("storage.driver", "sqlite")
	k.Set("storage.path", "valet.db")

	k.Set("memory.enabled", false)
	k.Set("memory.provider", "vector")
	k.Set("memory.collection", "valet_memories")
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.embedder_provider", "ollama")
	k.Set("memory.embedder_base_url", "http://localhost:11434")
	k.Set("memory.embedder_model", "nomic-embed-text")

	k.Set("notify.enabled", false)
	k.Set("notify.base_url", "https://ntfy.sh")
	k.Set("notify.topic_prefix", "valet")

	k.Set("executor.max_iterations", 8)
	k.Set("executor.history_window", 10)
	k.Set("executor.temperature", 0.2)
	k.Set("executor.max_tokens", 1024)

	k.Set("telemetry.exporter", "stdout")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// VALET_LLM_MODEL -> llm.model
	if err := k.Load(env.Provider("VALET_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "VALET_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
