package github

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	client, err := NewClient(ctx, "test-token")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Client == nil || client.HTTP == nil {
		t.Fatal("Expected client to be initialized with explicit token")
	}

	// Anonymous access is the default for toprepos.
	client, err = NewClient(ctx, "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Client == nil {
		t.Error("Expected client to be initialized without token")
	}
}

func TestNewClient_NilContextReturnsError(t *testing.T) {
	var nilCtx context.Context
	_, err := NewClient(nilCtx, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "ctx is nil") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClient_WithBaseURL(t *testing.T) {
	c, err := NewClient(context.Background(), "", WithBaseURL("http://example.test/api/v3"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := c.Client.BaseURL.String(); got != "http://example.test/api/v3/" {
		t.Fatalf("expected trailing-slash base url, got %q", got)
	}
}

func TestNewClient_WithLogger_LogsAndAuthHeader(t *testing.T) {
	ctx := context.Background()

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name     string
		token    string
		wantAuth bool
	}{
		{name: "anonymous", token: "", wantAuth: false},
		{name: "token", token: "test-token", wantAuth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAuth = ""
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			c, err := NewClient(ctx, tt.token, WithLogger(logger), WithBaseURL(server.URL))
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}

			req, err := c.Client.NewRequest("GET", "rate_limit", nil)
			if err != nil {
				t.Fatalf("NewRequest: %v", err)
			}
			if _, err := c.Client.Do(ctx, req, nil); err != nil {
				t.Fatalf("Do: %v", err)
			}

			logs := buf.String()
			if !strings.Contains(logs, "github api request") || !strings.Contains(logs, "method=GET") {
				t.Fatalf("expected request log, got: %q", logs)
			}
			if !strings.Contains(logs, "rate_remaining=42") {
				t.Fatalf("expected response log with rate limit, got: %q", logs)
			}
			if tt.wantAuth && !strings.Contains(gotAuth, "test-token") {
				t.Fatalf("expected Authorization header to contain token, got %q", gotAuth)
			}
			if !tt.wantAuth && gotAuth != "" {
				t.Fatalf("expected no Authorization header, got %q", gotAuth)
			}
		})
	}
}
