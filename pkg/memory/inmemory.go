// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// InMemoryStore is a VectorStore for tests and single-process setups.
// Cosine similarity, no persistence.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Point
	sizes       map[string]uint64
}

// NewInMemoryStore creates an empty in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		collections: map[string][]Point{},
		sizes:       map[string]uint64{},
	}
}

func (s *InMemoryStore) CreateCollection(_ context.Context, name string, vectorSize uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[name]; exists {
		return fmt.Errorf("collection %q already exists", name)
	}
	s.collections[name] = nil
	s.sizes[name] = vectorSize
	return nil
}

func (s *InMemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q does not exist", collection)
	}

	for _, point := range points {
		replaced := false
		for i, old := range existing {
			if old.ID == point.ID {
				existing[i] = point
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, point)
		}
	}
	s.collections[collection] = existing
	return nil
}

func (s *InMemoryStore) Search(_ context.Context, collection string, vector []float32, limit int, scoreThreshold float32, filter map[string]string) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	points, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", collection)
	}

	var results []SearchResult
	for _, point := range points {
		if !payloadMatches(point.Payload, filter) {
			continue
		}
		score := cosine(vector, point.Vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, SearchResult{ID: point.ID, Score: score, Point: point})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func payloadMatches(payload map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := payload[key].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
