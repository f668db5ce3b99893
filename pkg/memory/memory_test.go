// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// hashEmbedder produces small deterministic vectors so similar words
// land near each other only when identical.
type hashEmbedder struct {
	fail bool
}

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if h.fail {
		return nil, fmt.Errorf("embedder down")
	}
	vec := make([]float32, 8)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		var sum int
		for _, r := range word {
			sum += int(r)
		}
		vec[sum%8]++
	}
	return vec, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store := NewInMemoryStore()
	m := NewManager(store, &hashEmbedder{}, "test_memories")
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return m
}

func TestManager_RememberAndRecall(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.Remember(ctx, "u1", "coffee: oat milk latte"); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	matches, err := m.Recall(ctx, "u1", "coffee: oat milk latte", 5)
	if err != nil {
		t.Fatalf("Recall failed: %v", err)
	}
	if len(matches) != 1 || matches[0] != "coffee: oat milk latte" {
		t.Errorf("unexpected matches %v", matches)
	}
}

func TestManager_RecallScopedToUser(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.Remember(ctx, "u1", "likes hiking"); err != nil {
		t.Fatal(err)
	}
	if err := m.Remember(ctx, "u2", "likes hiking"); err != nil {
		t.Fatal(err)
	}

	matches, err := m.Recall(ctx, "u1", "likes hiking", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("expected only u1's memory, got %v", matches)
	}
}

func TestManager_InitializeTwiceTolerated(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	m := NewManager(store, &hashEmbedder{}, "shared")
	if err := m.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	// Second init: collection exists, creation fails, the search probe
	// confirms it and init succeeds anyway.
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("re-Initialize should be tolerated, got %v", err)
	}
}

func TestManager_EmbedderFailure(t *testing.T) {
	store := NewInMemoryStore()
	m := NewManager(store, &hashEmbedder{fail: true}, "x")

	if err := m.Remember(context.Background(), "u1", "anything"); err == nil {
		t.Error("expected Remember to surface embedder failure")
	}
	if _, err := m.Recall(context.Background(), "u1", "anything", 5); err == nil {
		t.Error("expected Recall to surface embedder failure")
	}
}

func TestManager_DefaultCollection(t *testing.T) {
	m := NewManager(NewInMemoryStore(), &hashEmbedder{}, "")
	if m.collection != DefaultCollection {
		t.Errorf("expected default collection, got %q", m.collection)
	}
}

func TestInMemoryStore_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	if err := store.CreateCollection(ctx, "c", 2); err != nil {
		t.Fatal(err)
	}

	point := Point{ID: "p1", Vector: []float32{1, 0}, Payload: map[string]any{"text": "v1"}}
	if err := store.Upsert(ctx, "c", []Point{point}); err != nil {
		t.Fatal(err)
	}
	point.Payload = map[string]any{"text": "v2"}
	if err := store.Upsert(ctx, "c", []Point{point}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "c", []float32{1, 0}, 10, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Point.Payload["text"] != "v2" {
		t.Errorf("expected replacement, got %v", results)
	}
}

func TestInMemoryStore_ThresholdAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	if err := store.CreateCollection(ctx, "c", 2); err != nil {
		t.Fatal(err)
	}
	points := []Point{
		{ID: "near", Vector: []float32{1, 0}},
		{ID: "far", Vector: []float32{0, 1}},
		{ID: "mid", Vector: []float32{1, 1}},
	}
	if err := store.Upsert(ctx, "c", points); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "c", []float32{1, 0}, 1, 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "near" {
		t.Errorf("expected the nearest point only, got %v", results)
	}
}
