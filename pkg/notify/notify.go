// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers push notifications to the user, with a
// log-only fallback for setups without a push channel.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/valetd/valet/pkg/errors"
	"github.com/valetd/valet/pkg/resilience"
)

// Notifier sends a push message to a user.
type Notifier interface {
	Push(ctx context.Context, userID, title, message string) error
}

// LogNotifier writes notifications to the log instead of delivering
// them. The default when no push endpoint is configured.
type LogNotifier struct{}

// Push implements Notifier.
func (LogNotifier) Push(_ context.Context, userID, title, message string) error {
	slog.Info("notify.push",
		slog.String("user_id", userID),
		slog.String("title", title),
		slog.String("message", message),
	)
	return nil
}

// HTTPNotifier publishes to an ntfy-compatible endpoint: one topic per
// user, message as the request body, title as a header. A circuit
// breaker keeps a dead push server from stalling every turn.
type HTTPNotifier struct {
	baseURL     string
	topicPrefix string
	client      *http.Client
	breaker     *resilience.CircuitBreaker
}

// NewHTTPNotifier creates an HTTPNotifier for baseURL (e.g. an ntfy
// server). topicPrefix namespaces per-user topics.
func NewHTTPNotifier(baseURL, topicPrefix string) *HTTPNotifier {
	if topicPrefix == "" {
		topicPrefix = "valet"
	}
	return &HTTPNotifier{
		baseURL:     strings.TrimRight(baseURL, "/"),
		topicPrefix: topicPrefix,
		client:      &http.Client{Timeout: 10 * time.Second},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			Timeout:          time.Minute,
			Name:             "notify_push",
		}),
	}
}

// Push implements Notifier.
func (n *HTTPNotifier) Push(ctx context.Context, userID, title, message string) error {
	return n.breaker.Call(ctx, func() error {
		url := fmt.Sprintf("%s/%s-%s", n.baseURL, n.topicPrefix, userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
		if err != nil {
			return errors.New(errors.CodeInternal, "building push request failed", err)
		}
		if title != "" {
			req.Header.Set("Title", title)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return errors.New(errors.CodeInternal, "push delivery failed", err).
				WithRecoverable(true)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return errors.New(errors.CodeInternal, "push endpoint rejected message", nil).
				WithContext("status", resp.StatusCode).
				WithRecoverable(true)
		}
		return nil
	})
}
