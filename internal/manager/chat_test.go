package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"modelgate/internal/ollama"
)

func TestChat_EmptyPrompt(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Chat(context.Background(), "")
	if !IsInvalidRequest(err) || err.Error() != "Prompt is required" {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if f.pr.calls.Load() != 0 {
		t.Fatalf("invalid requests must not touch the daemon")
	}
}

func TestChat_WhitespacePromptIsForwarded(t *testing.T) {
	f := newFixture(t)
	f.cat.present.Store(true)
	f.gen.results = []genResult{{out: "?"}}
	out, err := f.m.Chat(context.Background(), "   ")
	if err != nil || out != "?" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if f.gen.count() != 1 {
		t.Fatalf("whitespace prompt should reach the daemon")
	}
}

func TestChat_Success(t *testing.T) {
	f := newFixture(t)
	f.cat.present.Store(true)
	f.gen.results = []genResult{{out: "hello"}}
	out, err := f.m.Chat(context.Background(), "hi")
	if err != nil || out != "hello" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if !f.m.Ready() {
		t.Fatalf("chat success should leave the manager ready")
	}
}

func TestChat_DaemonUnreachable(t *testing.T) {
	f := newFixture(t)
	f.pr.alive.Store(false)
	f.la.err = errBoom
	_, err := f.m.Chat(context.Background(), "hi")
	if !IsDaemonUnreachable(err) || !errors.Is(err, errBoom) {
		t.Fatalf("expected daemon unreachable wrapping cause, got %v", err)
	}
	if err.Error() != "Failed to initialize Ollama: Failed to start Ollama service" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if f.gen.count() != 0 {
		t.Fatalf("nothing must be forwarded")
	}
}

func TestChat_DownloadsMissingModelThenForwards(t *testing.T) {
	f := newFixture(t)
	f.gen.results = []genResult{{out: "fresh"}}
	out, err := f.m.Chat(context.Background(), "hi")
	if err != nil || out != "fresh" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if f.fe.calls.Load() != 1 {
		t.Fatalf("expected one synchronous download, got %d", f.fe.calls.Load())
	}
	if f.m.Guard().InFlight("gemma:2b") {
		t.Fatalf("guard must be free after the download")
	}
}

func TestChat_JoinsInFlightDownload(t *testing.T) {
	f := newFixture(t)
	f.fe.gate = make(chan struct{})
	f.fe.started = make(chan struct{}, 1)
	f.m.Status(context.Background())
	<-f.fe.started

	type result struct {
		out string
		err error
	}
	res := make(chan result, 1)
	go func() {
		out, err := f.m.Chat(context.Background(), "hi")
		res <- result{out, err}
	}()
	select {
	case r := <-res:
		t.Fatalf("chat returned before the download finished: %+v", r)
	case <-time.After(30 * time.Millisecond):
	}
	close(f.fe.gate)
	r := <-res
	if r.err != nil || r.out != "ok" {
		t.Fatalf("out=%q err=%v", r.out, r.err)
	}
	if f.fe.calls.Load() != 1 {
		t.Fatalf("chat must join, not start a second download; calls=%d", f.fe.calls.Load())
	}
}

func TestChat_ModelCouldNotBeLoaded(t *testing.T) {
	f := newFixture(t)
	f.fe.err = errBoom
	_, err := f.m.Chat(context.Background(), "hi")
	if !IsModelAbsent(err) || err.Error() != "Model 'gemma:2b' could not be loaded" {
		t.Fatalf("unexpected error %v", err)
	}
	if !IsFetchFailed(err) {
		t.Fatalf("cause should be the failed fetch: %v", err)
	}
}

func TestChat_NotFoundRetriesOnce(t *testing.T) {
	f := newFixture(t)
	f.cat.present.Store(true)
	f.gen.results = []genResult{{err: ollama.ErrModelNotFound("gemma:2b")}, {out: "second"}}
	out, err := f.m.Chat(context.Background(), "hi")
	if err != nil || out != "second" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if f.gen.count() != 2 || f.fe.calls.Load() != 1 {
		t.Fatalf("expected 2 generates and 1 fetch, got %d and %d", f.gen.count(), f.fe.calls.Load())
	}
	if f.pub.Count(EventForwardRetry) != 1 {
		t.Fatalf("expected forward_retry event")
	}
}

func TestChat_NotFoundTwiceGivesUp(t *testing.T) {
	f := newFixture(t)
	f.cat.present.Store(true)
	f.gen.results = []genResult{{err: ollama.ErrModelNotFound("gemma:2b")}}
	_, err := f.m.Chat(context.Background(), "hi")
	if !IsModelAbsent(err) {
		t.Fatalf("expected model absent, got %v", err)
	}
	if f.gen.count() != 2 {
		t.Fatalf("expected exactly one retry, got %d generate calls", f.gen.count())
	}
}

func TestChat_ForwardErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "Request timed out. The model may be taking too long to respond."},
		{&ollama.StatusError{Code: 500, Body: "out of memory"}, "Ollama error: out of memory"},
		{errBoom, "Error: boom"},
	}
	for _, c := range cases {
		f := newFixture(t)
		f.cat.present.Store(true)
		f.gen.results = []genResult{{err: c.err}}
		_, err := f.m.Chat(context.Background(), "hi")
		if !IsForward(err) || err.Error() != c.want {
			t.Fatalf("got %v, want %q", err, c.want)
		}
		if f.gen.count() != 1 {
			t.Fatalf("non-404 failures must not be retried")
		}
	}
}
