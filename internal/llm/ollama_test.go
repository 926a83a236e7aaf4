package llm

import (
	"net/http"
	"testing"
)

func TestProxyExcluded(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		noProxy string
		want    bool
	}{
		{"empty list", "example.com", "", false},
		{"exact match", "localhost", "localhost", true},
		{"no match", "example.com", "localhost", false},
		{"wildcard", "anything.example.com", "*", true},
		{"domain suffix", "api.internal.example.com", ".internal.example.com", true},
		{"suffix without leading dot", "api.internal.example.com", "internal.example.com", true},
		{"partial host is not a suffix", "notinternal.example.com", "internal.example.com", false},
		{"case insensitive", "LOCALHOST", "localhost", true},
		{"second entry matches", "localhost", "example.com, localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := proxyExcluded(tt.host, tt.noProxy); got != tt.want {
				t.Errorf("proxyExcluded(%q, %q) = %v, want %v", tt.host, tt.noProxy, got, tt.want)
			}
		})
	}
}

func TestNewOllamaProxyFunc(t *testing.T) {
	proxy := newOllamaProxyFunc("http://proxy:3128", "https://proxy:3129", "localhost,.internal.example.com")

	mustRequest := func(rawURL string) *http.Request {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			t.Fatalf("building request for %s: %v", rawURL, err)
		}
		return req
	}

	// Excluded hosts bypass the proxy entirely
	u, err := proxy(mustRequest("http://localhost:11434/api/generate"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Errorf("expected direct connection for excluded host, got proxy %v", u)
	}

	u, err = proxy(mustRequest("https://ollama.internal.example.com/api/tags"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Errorf("expected direct connection for excluded domain, got proxy %v", u)
	}

	// Everything else routes through the scheme's proxy
	u, err = proxy(mustRequest("http://example.com/api/generate"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.String() != "http://proxy:3128" {
		t.Errorf("expected http proxy, got %v", u)
	}

	u, err = proxy(mustRequest("https://example.com/api/generate"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.String() != "https://proxy:3129" {
		t.Errorf("expected https proxy, got %v", u)
	}
}
