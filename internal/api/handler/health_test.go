package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestHealthHandler_Liveness(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/health", "", nil)
	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthDependenciesHandler_Readiness(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]Pinger
		wantCode int
		wantDown string
	}{
		{
			name:     "all up",
			checks:   map[string]Pinger{"postgres": ok, "mongodb": ok, "redis": ok},
			wantCode: http.StatusOK,
		},
		{
			name:     "redis down",
			checks:   map[string]Pinger{"postgres": ok, "mongodb": ok, "redis": down},
			wantCode: http.StatusServiceUnavailable,
			wantDown: "redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/health/ready", "", nil)
			if err := NewHealthDependenciesHandler(tt.checks).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if len(resp.Dependencies) != len(tt.checks) {
				t.Fatalf("expected %d dependencies, got %+v", len(tt.checks), resp.Dependencies)
			}
			if tt.wantDown != "" {
				dep := resp.Dependencies[tt.wantDown]
				if dep.Status != "unhealthy" || dep.Error == "" || resp.Status != "degraded" {
					t.Fatalf("unexpected response: %+v", resp)
				}
			}
		})
	}
}
