// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/valetd/valet/pkg/capability"
	"github.com/valetd/valet/pkg/config"
	"github.com/valetd/valet/pkg/executor"
	"github.com/valetd/valet/pkg/llm"
	"github.com/valetd/valet/pkg/memory"
	memollama "github.com/valetd/valet/pkg/memory/ollama"
	"github.com/valetd/valet/pkg/memory/qdrant"
	"github.com/valetd/valet/pkg/notify"
	"github.com/valetd/valet/pkg/orchestrator"
	"github.com/valetd/valet/pkg/router"
	"github.com/valetd/valet/pkg/storage"
	"github.com/valetd/valet/pkg/telemetry"
	"github.com/valetd/valet/pkg/tool"
	"github.com/valetd/valet/pkg/tool/builtin"
	"github.com/valetd/valet/pkg/tool/mcptool"
)

// App bundles the wired assistant and its shutdown hooks.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Store        storage.Store

	sqlite   *storage.SQLiteStore
	shutdown []func() error
}

// buildApp wires the whole assistant from configuration: logging,
// telemetry, storage, tools, capabilities, and the orchestrator.
func buildApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	telShutdown, err := telemetry.Init("valet", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	app.shutdown = append(app.shutdown, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return telShutdown(ctx)
	})

	store, err := app.openStore(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	provider := llm.NewOllama(cfg.LLM.BaseURL)

	recaller, err := buildRecaller(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	var notifier notify.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.NewHTTPNotifier(cfg.Notify.BaseURL, cfg.Notify.TopicPrefix)
	}

	registry := tool.NewRegistry()
	if err := builtin.Register(registry, store, notifier, cfg.Assistant.DefaultUser); err != nil {
		app.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	for _, server := range cfg.MCP.Servers {
		client, err := mcptool.NewStdioClient(server.Command, server.Args)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("start mcp server %q: %w", server.Name, err)
		}
		app.shutdown = append(app.shutdown, client.Close)
		if err := mcptool.RegisterAll(ctx, registry, client); err != nil {
			app.Close()
			return nil, fmt.Errorf("register mcp tools from %q: %w", server.Name, err)
		}
	}

	exec := executor.New(provider, registry,
		executor.WithModel(cfg.LLM.Model),
		executor.WithTemperature(cfg.Executor.Temperature),
		executor.WithMaxTokens(cfg.Executor.MaxTokens),
		executor.WithMaxIterations(cfg.Executor.MaxIterations),
		executor.WithHistoryWindow(cfg.Executor.HistoryWindow),
	)

	caps, err := capability.NewSet(
		capability.NewMemory(store, recaller, provider, cfg.LLM.Model),
		capability.NewTasks(exec),
		capability.NewHabits(store),
		capability.NewProjects(store),
		capability.NewGeneral(provider, cfg.LLM.Model),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("build capabilities: %w", err)
	}

	routerOpts := []router.Option{router.WithModel(cfg.LLM.Model)}
	if cfg.Router.PatternFile != "" {
		patterns, err := router.LoadPatterns(cfg.Router.PatternFile)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("load routing patterns: %w", err)
		}
		routerOpts = append(routerOpts, router.WithPatterns(patterns))
	}
	rt := router.New(provider, routerOpts...)

	app.Orchestrator = orchestrator.New(rt, caps, provider, store,
		orchestrator.WithModel(cfg.LLM.Model),
		orchestrator.WithHistoryLimit(cfg.Assistant.HistoryLimit),
		orchestrator.WithResponseTimeout(time.Duration(cfg.Assistant.ResponseTimeoutMS)*time.Millisecond),
		orchestrator.WithLearning(cfg.Assistant.LearningEnabled),
	)

	return app, nil
}

func (a *App) openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite", "":
		s, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.sqlite = s
		a.shutdown = append(a.shutdown, s.DB().Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func buildRecaller(ctx context.Context, cfg *config.Config) (capability.Recaller, error) {
	if !cfg.Memory.Enabled {
		return nil, nil
	}

	var vectors memory.VectorStore
	switch cfg.Memory.Provider {
	case "inmemory":
		vectors = memory.NewInMemoryStore()
	case "vector", "":
		store, err := qdrant.New(cfg.Memory.QdrantAddr)
		if err != nil {
			return nil, fmt.Errorf("connect qdrant: %w", err)
		}
		vectors = store
	default:
		return nil, fmt.Errorf("unknown memory provider %q", cfg.Memory.Provider)
	}

	embedder := memollama.NewEmbedder(cfg.Memory.EmbedderBaseURL, cfg.Memory.EmbedderModel)
	manager := memory.NewManager(vectors, embedder, cfg.Memory.Collection)
	if err := manager.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("init memory: %w", err)
	}
	return manager, nil
}

// Ping verifies the backing store is reachable.
func (a *App) Ping(ctx context.Context) error {
	if a.sqlite != nil {
		return a.sqlite.DB().PingContext(ctx)
	}
	return nil
}

// Close runs shutdown hooks in reverse registration order.
func (a *App) Close() {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		_ = a.shutdown[i]()
	}
	a.shutdown = nil
}
