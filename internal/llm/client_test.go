package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Fatalf("expected bearer auth header")
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-test" || len(req.Messages) != 1 || req.Messages[0].Content != "hola" {
			t.Fatalf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"respuesta"}}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "key", "gpt-test", "emb-test", nil)
	out, err := c.Generate(context.Background(), "hola")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "respuesta" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestHTTPClientGenerateErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		if _, err := NewHTTPClient(srv.URL, "k", "m", "e", nil).Generate(context.Background(), "x"); err == nil {
			t.Fatalf("expected error on 429")
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()
		if _, err := NewHTTPClient(srv.URL, "k", "m", "e", nil).Generate(context.Background(), "x"); err == nil {
			t.Fatalf("expected error on empty response")
		}
	})
}

func TestHTTPClientCreateEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "emb-test" || req.Input != "binary search" {
			t.Fatalf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "gpt-test", "emb-test", nil)
	vec, err := c.CreateEmbedding(context.Background(), "binary search")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(vec))
	}

	if _, err := c.CreateEmbedding(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
