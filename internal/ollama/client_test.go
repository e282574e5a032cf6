package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"modelgate/pkg/types"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(Config{BaseURL: ts.URL + "/", ProbeTimeout: 200 * time.Millisecond, GenerateTimeout: time.Second, PullTimeout: time.Second})
}

func TestAlive(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" { t.Errorf("unexpected path %s", r.URL.Path) }
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	if !c.Alive(context.Background()) {
		t.Fatalf("expected alive")
	}
}

func TestAlive_FalseOnErrorStatusAndTimeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	if c.Alive(context.Background()) {
		t.Fatalf("expected not alive on 500")
	}
	slow := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	if slow.Alive(context.Background()) {
		t.Fatalf("expected not alive on timeout")
	}
	down := New(Config{BaseURL: "http://127.0.0.1:1", ProbeTimeout: 200 * time.Millisecond})
	if down.Alive(context.Background()) {
		t.Fatalf("expected not alive when nothing listens")
	}
}

func TestTags(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.TagsResponse{Models: []types.DaemonModel{{Name: "gemma:2b"}, {Name: "llama3:latest"}}})
	}))
	models, err := c.Tags(context.Background())
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(models) != 2 || models[0].Name != "gemma:2b" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestTags_BadStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	_, err := c.Tags(context.Background())
	se, ok := err.(*StatusError)
	if !ok || se.Code != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
}

func TestPull_StreamsProgress(t *testing.T) {
	var got types.PullRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		enc := json.NewEncoder(w)
		_ = enc.Encode(types.PullProgress{Status: "pulling manifest"})
		_ = enc.Encode(types.PullProgress{Status: "downloading", Total: 100, Completed: 50})
		_ = enc.Encode(types.PullProgress{Status: "success"})
	}))
	var lines []types.PullProgress
	if err := c.Pull(context.Background(), "gemma:2b", func(p types.PullProgress) { lines = append(lines, p) }); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if got.Name != "gemma:2b" || !got.Stream {
		t.Fatalf("unexpected pull request: %+v", got)
	}
	if len(lines) != 3 || lines[1].Completed != 50 {
		t.Fatalf("unexpected progress: %+v", lines)
	}
}

func TestPull_ErrorLine(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"status\":\"pulling manifest\"}\n{\"error\":\"file does not exist\"}\n"))
	}))
	err := c.Pull(context.Background(), "nope:1b", nil)
	if _, ok := err.(*PullError); !ok {
		t.Fatalf("expected PullError, got %v", err)
	}
}

func TestPull_TruncatedStream(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"status\":\"downloading\",\"total\":10,\"completed\":3}\n"))
	}))
	if err := c.Pull(context.Background(), "gemma:2b", nil); err == nil {
		t.Fatalf("expected error for stream without success")
	}
}

func TestPull_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reading the body lets the server notice the client going away.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)
	c := New(Config{BaseURL: ts.URL, PullTimeout: 100 * time.Millisecond})
	if err := c.Pull(context.Background(), "m", nil); !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream || req.Model != "gemma:2b" || req.Prompt != "hi" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(types.GenerateResponse{Model: req.Model, Response: "hello there", Done: true})
	}))
	out, err := c.Generate(context.Background(), "gemma:2b", "hi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "hello there" {
		t.Fatalf("unexpected response %q", out)
	}
}

func TestGenerate_NotFoundAndStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'gemma:2b' not found"}`, http.StatusNotFound)
	}))
	if _, err := c.Generate(context.Background(), "gemma:2b", "hi"); !IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
	c2 := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	_, err := c2.Generate(context.Background(), "gemma:2b", "hi")
	se, ok := err.(*StatusError)
	if !ok || se.Code != 500 || se.Body != "out of memory" {
		t.Fatalf("expected StatusError with body, got %#v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)
	c := New(Config{BaseURL: ts.URL, GenerateTimeout: 100 * time.Millisecond})
	if _, err := c.Generate(context.Background(), "m", "p"); !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
