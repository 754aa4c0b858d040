package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSplitBaseURLs(t *testing.T) {
	got := splitBaseURLs("127.0.0.1:1234/v1, http://127.0.0.2:1234 ;127.0.0.1:1234/v1")
	if len(got) != 2 {
		t.Fatalf("expected 2 unique URLs, got %d (%v)", len(got), got)
	}
	if got[0] != "http://127.0.0.1:1234/v1" {
		t.Errorf("unexpected first URL: %s", got[0])
	}
	if got[1] != "http://127.0.0.2:1234/v1" {
		t.Errorf("unexpected second URL: %s", got[1])
	}
}

func TestHTTPClientGenerate(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"question":"Why Go?"}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPOptions{BaseURL: srv.URL, Model: "test-model", APIKey: "secret", Timeout: 5 * time.Second})
	out, err := c.Generate(context.Background(), Request{Kind: KindOpening, Role: "Backend Engineer"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"question":"Why Go?"}` {
		t.Errorf("output: got %q", out)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization: got %q", gotAuth)
	}
	if gotBody.Model != "test-model" || len(gotBody.Messages) != 2 {
		t.Fatalf("request body: %+v", gotBody)
	}
	if !strings.Contains(gotBody.Messages[1].Content, "Backend Engineer") {
		t.Errorf("user prompt missing role: %q", gotBody.Messages[1].Content)
	}
}

func TestHTTPClientFallsBackToSecondEndpoint(t *testing.T) {
	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer fail.Close()
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "second"}}},
		})
	}))
	defer ok.Close()

	c := NewHTTPClient(HTTPOptions{BaseURL: fail.URL + "," + ok.URL, Timeout: 5 * time.Second})
	out, err := c.Generate(context.Background(), Request{Kind: KindFollowup})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "second" {
		t.Errorf("output: got %q, want second", out)
	}
}

func TestHTTPClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPOptions{BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := c.Generate(context.Background(), Request{Kind: KindRecommendation})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestBuildPromptIncludesContext(t *testing.T) {
	_, user, err := BuildPrompt(Request{Kind: KindFollowup, Role: "QA Engineer", Context: "Q: a\nA: b"})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if !strings.Contains(user, "QA Engineer") || !strings.Contains(user, "Q: a") {
		t.Errorf("prompt missing data: %q", user)
	}
	if _, _, err := BuildPrompt(Request{Kind: Kind(42)}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
