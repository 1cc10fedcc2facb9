package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOriginHost(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"https://example.com", "example.com"},
		{"https://example.com:8080", "example.com"},
		{"https://example.com/path", "example.com"},
		{"https://deep.sub.example.com", "deep.sub.example.com"},
		{"http://localhost:3000", "localhost"},
		{"http://192.168.1.1:8080", "192.168.1.1"},
		{"example.com", "example.com"},
		{"http://[::1]:8080", "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			if got := originHost(tt.origin); got != tt.want {
				t.Errorf("originHost(%q) = %q, want %q", tt.origin, got, tt.want)
			}
		})
	}
}

func TestMatchOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		pattern string
		want    bool
	}{
		{"exact", "https://example.com", "https://example.com", true},
		{"exact with port", "https://example.com:8080", "https://example.com:8080", true},
		{"different scheme", "http://example.com", "https://example.com", false},
		{"different port", "https://example.com:8080", "https://example.com:9090", false},
		{"wildcard subdomain", "https://sub.example.com", "*.example.com", true},
		{"wildcard deep subdomain", "https://a.b.example.com:4000", "*.example.com", true},
		{"wildcard excludes root", "https://example.com", "*.example.com", false},
		{"wildcard excludes suffix lookalike", "https://notexample.com", "*.example.com", false},
		{"bare star", "https://example.com", "*", false},
		{"empty origin", "", "https://example.com", false},
		{"empty pattern", "https://example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchOrigin(tt.origin, tt.pattern); got != tt.want {
				t.Errorf("matchOrigin(%q, %q) = %v, want %v", tt.origin, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantStatus int
		wantOrigin string
	}{
		{"allowed get", []string{"https://example.com"}, "https://example.com", http.MethodGet, http.StatusOK, "https://example.com"},
		{"allowed preflight", []string{"https://example.com"}, "https://example.com", http.MethodOptions, http.StatusNoContent, "https://example.com"},
		{"allowed wildcard", []string{"*.example.com"}, "https://app.example.com", http.MethodPut, http.StatusOK, "https://app.example.com"},
		{"rejected origin", []string{"https://example.com"}, "https://evil.com", http.MethodGet, http.StatusOK, ""},
		{"rejected preflight", []string{"https://example.com"}, "https://evil.com", http.MethodOptions, http.StatusNoContent, ""},
		{"no origin", []string{"https://example.com"}, "", http.MethodGet, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{cors: corsPolicy{allowed: tt.allowed}}
			handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/v1/scene", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			h := rr.Header()
			if got := h.Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin == "" {
				return
			}
			if got := h.Get("Access-Control-Allow-Methods"); got != corsAllowMethods {
				t.Errorf("Access-Control-Allow-Methods = %q", got)
			}
			if got := h.Get("Access-Control-Max-Age"); got != "86400" {
				t.Errorf("Access-Control-Max-Age = %q, want 86400", got)
			}
			if got := h.Get("Vary"); got != "Origin" {
				t.Errorf("Vary = %q, want Origin", got)
			}
		})
	}
}
