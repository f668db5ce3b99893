// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Assistant.Name != "Valet" {
		t.Errorf("assistant.name = %q, want Valet", cfg.Assistant.Name)
	}
	if cfg.Assistant.HistoryLimit != 20 {
		t.Errorf("assistant.history_limit = %d, want 20", cfg.Assistant.HistoryLimit)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("llm.provider = %q, want ollama", cfg.LLM.Provider)
	}
	if cfg.Executor.MaxIterations != 8 {
		t.Errorf("executor.max_iterations = %d, want 8", cfg.Executor.MaxIterations)
	}
	if cfg.Memory.Enabled {
		t.Error("memory should be disabled by default")
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("storage.driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if !cfg.Assistant.LearningEnabled {
		t.Error("assistant.learning_enabled should default to true")
	}
	if len(cfg.MCP.Servers) != 0 {
		t.Errorf("expected no mcp servers by default, got %v", cfg.MCP.Servers)
	}
}

func TestLoad_MCPServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valet.yaml")
	data := `
assistant:
  learning_enabled: false
mcp:
  servers:
    - name: files
      command: mcp-files
      args: ["--root", "/tmp"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Assistant.LearningEnabled {
		t.Error("assistant.learning_enabled should come from the file")
	}
	if len(cfg.MCP.Servers) != 1 {
		t.Fatalf("expected one mcp server, got %v", cfg.MCP.Servers)
	}
	server := cfg.MCP.Servers[0]
	if server.Name != "files" || server.Command != "mcp-files" {
		t.Errorf("unexpected server %+v", server)
	}
	if len(server.Args) != 2 || server.Args[1] != "/tmp" {
		t.Errorf("unexpected args %v", server.Args)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valet.yaml")
	data := `
assistant:
  name: Jeeves
  history_limit: 5
llm:
  model: llama3.2
memory:
  enabled: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Assistant.Name != "Jeeves" {
		t.Errorf("assistant.name = %q, want Jeeves", cfg.Assistant.Name)
	}
	if cfg.Assistant.HistoryLimit != 5 {
		t.Errorf("assistant.history_limit = %d, want 5", cfg.Assistant.HistoryLimit)
	}
	if cfg.LLM.Model != "llama3.2" {
		t.Errorf("llm.model = %q, want llama3.2", cfg.LLM.Model)
	}
	if !cfg.Memory.Enabled {
		t.Error("memory.enabled should come from the file")
	}
	// Untouched keys keep their defaults.
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("llm.provider = %q, want ollama", cfg.LLM.Provider)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valet.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("VALET_LLM_MODEL", "from-env")
	t.Setenv("VALET_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.Model != "from-env" {
		t.Errorf("llm.model = %q, want from-env", cfg.LLM.Model)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valet.yaml")
	if err := os.WriteFile(path, []byte("assistant:\n  name: One\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	if got := w.Current().Assistant.Name; got != "One" {
		t.Fatalf("initial name = %q, want One", got)
	}

	reloaded := make(chan *Config, 1)
	w.OnChange(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	w.Start()
	defer w.Stop()

	// Make sure the mtime moves forward on coarse-grained filesystems.
	if err := os.WriteFile(path, []byte("assistant:\n  name: Two\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Assistant.Name != "Two" {
			t.Errorf("reloaded name = %q, want Two", cfg.Assistant.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if got := w.Current().Assistant.Name; got != "Two" {
		t.Errorf("Current name = %q, want Two", got)
	}
}

func TestWatcher_KeepsOldConfigOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valet.yaml")
	if err := os.WriteFile(path, []byte("assistant:\n  name: Good\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	if err := os.WriteFile(path, []byte(":\nnot yaml at all ["), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	w.check()

	if got := w.Current().Assistant.Name; got != "Good" {
		t.Errorf("Current name after bad reload = %q, want Good", got)
	}
}
