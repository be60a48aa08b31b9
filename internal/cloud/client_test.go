// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/relaychat/internal/model"
)

const okBody = `{
	"id": "test-id",
	"model": "test-model",
	"choices": [{
		"message": {"role": "assistant", "content": "\n# hello there\n- item\n"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
}`

func newTestClient(url string) *Client {
	return NewClient("sk-test-key").WithBaseURL(url).WithTimeout(2 * time.Second)
}

// =============================================================================
// SUCCESS PATH
// =============================================================================

func TestComplete_SendsRequestKeepsContent(t *testing.T) {
	var got ChatRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, okBody)
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/").
		WithModel("test-model").
		WithSampling(Sampling{MaxTokens: 100, Temperature: 0.5, TopP: 0.8})

	msgs := []model.Message{model.NewSystemMessage("sys"), model.NewUserMessage("hi")}
	text, err := client.Complete(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	// Leading and trailing newlines mark line starts for the reveal renderer.
	if want := "\n# hello there\n- item\n"; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
	if auth != "Bearer sk-test-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Model != "test-model" || got.Stream || got.MaxTokens != 100 || got.Temperature != 0.5 || got.TopP != 0.8 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != model.RoleSystem {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestDefaults(t *testing.T) {
	c := NewClient("  key  ")
	if !c.IsConfigured() {
		t.Error("IsConfigured() = false, want true")
	}
	if c.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", c.Model(), DefaultModel)
	}
	if c.sampling != DefaultSampling() {
		t.Errorf("sampling = %+v, want %+v", c.sampling, DefaultSampling())
	}
	if fp := c.KeyFingerprint(); len(fp) != 8 || fp == "none" {
		t.Errorf("KeyFingerprint() = %q", fp)
	}
	if fp := NewClient("").KeyFingerprint(); fp != "none" {
		t.Errorf("empty KeyFingerprint() = %q, want none", fp)
	}
}

// =============================================================================
// FAILURE CLASSIFICATION
// =============================================================================

func TestComplete_NotConfigured(t *testing.T) {
	_, err := NewClient("").Complete(context.Background(), nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if Classify(err) != KindNotConfigured {
		t.Errorf("Classify = %v, want not_configured", Classify(err))
	}
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    Kind
	}{
		{
			name: "non-200 with error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, `{"error":{"code":"overloaded","message":"busy"}}`)
			},
			want: KindStatus,
		},
		{
			name: "non-200 plain body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, "bad key")
			},
			want: KindStatus,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "{not json")
			},
			want: KindMalformed,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[]}`)
			},
			want: KindMalformed,
		},
		{
			name: "blank content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`)
			},
			want: KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestClient(server.URL).Complete(context.Background(), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Classify(err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

func TestComplete_APIErrorFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":"rate_limit","message":"slow down"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Code != "rate_limit" || apiErr.Message != "slow down" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestComplete_TimeoutSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient("k").WithBaseURL(server.URL).WithTimeout(50 * time.Millisecond)
	_, err := client.Complete(context.Background(), nil)
	if Classify(err) != KindTimeout {
		t.Fatalf("Classify(%v) = %v, want timeout", err, Classify(err))
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestComplete_Transport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Complete(context.Background(), nil)
	if Classify(err) != KindTransport {
		t.Errorf("Classify(%v) = %v, want transport", err, Classify(err))
	}
}

func TestClassify_Unknown(t *testing.T) {
	if got := Classify(errors.New("boom")); got != KindUnknown {
		t.Errorf("Classify = %v, want unknown", got)
	}
	if got := Classify(nil); got != KindNone {
		t.Errorf("Classify(nil) = %v, want none", got)
	}
}
