// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides per-user semantic memory over a vector store:
// short text facts go in, nearest matches come back out.
package memory

import "context"

// VectorStore defines the interface for a vector database.
type VectorStore interface {
	// Upsert adds or updates points in the vector store.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns the nearest vectors to the given vector. filter
	// restricts matches to points whose payload carries the given
	// key/value pairs.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32, filter map[string]string) ([]SearchResult, error)
	// CreateCollection creates a new collection if it doesn't exist.
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
}

// Point represents a data point in the vector store.
type Point struct {
	ID        string         `json:"id"`
	Vector    []float32      `json:"vector"`
	Payload   map[string]any `json:"payload"`
	Timestamp int64          `json:"timestamp"`
}

// SearchResult represents a result from a vector search.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Point Point   `json:"point"`
}

// Embedder defines the interface for converting text to vectors.
type Embedder interface {
	// Embed converts a text string into a vector.
	Embed(ctx context.Context, text string) ([]float32, error)
}
