// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/valetd/valet/pkg/errors"
)

const (
	// DefaultCollection is the collection name for assistant memories.
	DefaultCollection = "valet_memories"

	defaultScoreThreshold = 0.6
	defaultRecallLimit    = 5
)

// Manager is the semantic memory surface: Remember stores a short fact
// for a user, Recall returns the nearest stored facts. It satisfies the
// recall contract the memory capability consumes.
type Manager struct {
	store      VectorStore
	embedder   Embedder
	collection string
	threshold  float32
}

// NewManager creates a Manager over a vector store and an embedder.
func NewManager(store VectorStore, embedder Embedder, collection string) *Manager {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Manager{
		store:      store,
		embedder:   embedder,
		collection: collection,
		threshold:  defaultScoreThreshold,
	}
}

// Initialize ensures the collection exists. The embedding dimension is
// probed from the embedder, then creation failure is tolerated when a
// search against the collection works: it already existed.
func (m *Manager) Initialize(ctx context.Context) error {
	vec, err := m.embedder.Embed(ctx, "hello")
	if err != nil {
		return errors.New(errors.CodeMemoryError, "probing embedding dimension failed", err).
			WithRecoverable(true)
	}

	if err := m.store.CreateCollection(ctx, m.collection, uint64(len(vec))); err != nil {
		if _, searchErr := m.store.Search(ctx, m.collection, vec, 1, 0, nil); searchErr == nil {
			return nil
		}
		return errors.New(errors.CodeMemoryError, "creating memory collection failed", err).
			WithContext("collection", m.collection)
	}
	return nil
}

// Remember stores one fact scoped to a user.
func (m *Manager) Remember(ctx context.Context, userID, text string) error {
	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return errors.New(errors.CodeMemoryError, "embedding memory failed", err).
			WithRecoverable(true)
	}

	now := time.Now().Unix()
	point := Point{
		ID:     uuid.NewString(),
		Vector: vector,
		Payload: map[string]any{
			"text":      text,
			"user_id":   userID,
			"timestamp": now,
		},
		Timestamp: now,
	}

	if err := m.store.Upsert(ctx, m.collection, []Point{point}); err != nil {
		return errors.New(errors.CodeMemoryError, "storing memory failed", err).
			WithContext("collection", m.collection).
			WithRecoverable(true)
	}
	return nil
}

// Recall returns up to limit stored facts nearest to the query, scoped
// to the user.
func (m *Manager) Recall(ctx context.Context, userID, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "embedding query failed", err).
			WithRecoverable(true)
	}

	results, err := m.store.Search(ctx, m.collection, vector, limit, m.threshold, map[string]string{
		"user_id": userID,
	})
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "memory search failed", err).
			WithContext("collection", m.collection).
			WithRecoverable(true)
	}

	matches := make([]string, 0, len(results))
	for _, r := range results {
		if text, ok := r.Point.Payload["text"].(string); ok {
			matches = append(matches, text)
		}
	}
	return matches, nil
}
