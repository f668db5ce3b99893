// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHTTPNotifier_Push(t *testing.T) {
	var gotPath, gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
		}
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, "valet")
	if err := n.Push(context.Background(), "u1", "Reminder", "Water the plants"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if gotPath != "/valet-u1" {
		t.Errorf("path = %q, want /valet-u1", gotPath)
	}
	if gotTitle != "Reminder" {
		t.Errorf("title = %q", gotTitle)
	}
	if gotBody != "Water the plants" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestHTTPNotifier_RejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, "")
	if err := n.Push(context.Background(), "u1", "", "msg"); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestHTTPNotifier_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, "valet")
	for i := 0; i < 5; i++ {
		n.Push(context.Background(), "u1", "", "msg")
	}

	// After the breaker opens, calls are rejected without reaching the
	// server.
	if hits.Load() >= 5 {
		t.Errorf("expected breaker to stop traffic, server saw %d hits", hits.Load())
	}
}

func TestLogNotifier(t *testing.T) {
	if err := (LogNotifier{}).Push(context.Background(), "u1", "t", "m"); err != nil {
		t.Fatalf("LogNotifier must never fail, got %v", err)
	}
}
