package controller_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ytsummarizer/internal/controller"
	"ytsummarizer/internal/domain"
)

const (
	videoURL    = "https://www.youtube.com/watch?v=abc123"
	stateWait   = 2 * time.Second
	quietWindow = 200 * time.Millisecond
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newController(t *testing.T, endpoint string, opts ...controller.Option) *controller.Controller {
	t.Helper()

	c := controller.New(endpoint, &http.Client{}, discardLogger(), opts...)
	t.Cleanup(c.Close)

	return c
}

// subscribe returns a subscription with the initial Idle snapshot consumed.
func subscribe(t *testing.T, c *controller.Controller) *controller.Subscription {
	t.Helper()

	sub := c.Subscribe()
	t.Cleanup(sub.Close)

	expectState(t, sub, domain.Idle())

	return sub
}

func nextState(t *testing.T, sub *controller.Subscription) domain.RequestState {
	t.Helper()

	select {
	case state, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription is closed")
		}
		return state
	case <-time.After(stateWait):
		t.Fatalf("no state published within %s", stateWait)
	}

	return domain.RequestState{}
}

func expectState(t *testing.T, sub *controller.Subscription, want domain.RequestState) {
	t.Helper()

	if got := nextState(t, sub); got != want {
		t.Fatalf("unexpected state: got %s(%q) want %s(%q)", got, got.Text, want, want.Text)
	}
}

func expectQuiet(t *testing.T, sub *controller.Subscription) {
	t.Helper()

	select {
	case state := <-sub.C:
		t.Fatalf("unexpected state published: %s(%q)", state, state.Text)
	case <-time.After(quietWindow):
	}
}

func linesHandler(t *testing.T, lines ...string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}

		var body struct {
			Link string `json:"link"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}

		if body.Link != videoURL {
			t.Errorf("unexpected link: %q", body.Link)
		}

		w.Header().Set("Content-Type", "text/plain")
		for _, line := range lines {
			_, _ = io.WriteString(w, line+"\n")
			w.(http.Flusher).Flush()
		}
	}
}

// blockingHandler writes the given lines and then waits for the client to
// go away, reporting that on released.
func blockingHandler(released chan<- struct{}, lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		for _, line := range lines {
			_, _ = io.WriteString(w, line+"\n")
		}
		w.(http.Flusher).Flush()

		<-r.Context().Done()
		close(released)
	}
}

func TestSubmitStreamsLinesAndCompletes(t *testing.T) {
	srv := httptest.NewServer(linesHandler(t, "# Title", "First part.", "Second part."))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Streaming("# Title"))
	expectState(t, sub, domain.Streaming("# TitleFirst part."))
	expectState(t, sub, domain.Streaming("# TitleFirst part.Second part."))
	expectState(t, sub, domain.Completed("# TitleFirst part.Second part."))

	if got := c.State(); got != domain.Completed("# TitleFirst part.Second part.") {
		t.Fatalf("unexpected final state: %s(%q)", got, got.Text)
	}
}

func TestSubmitKeepsPartialTextAsPrefixOfFinalText(t *testing.T) {
	srv := httptest.NewServer(linesHandler(t, "Summary", "", "Fun fact: none."))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL, controller.WithLineSeparator("\n"))
	sub := subscribe(t, c)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())

	var partials []string
	for {
		state := nextState(t, sub)
		if state.Kind == domain.StateStreaming {
			partials = append(partials, state.Text)
			continue
		}

		if state.Kind != domain.StateCompleted {
			t.Fatalf("unexpected state: %s(%q)", state, state.Text)
		}

		if state.Text != "Summary\n\nFun fact: none." {
			t.Fatalf("unexpected final text: %q", state.Text)
		}

		for _, partial := range partials {
			if !strings.HasPrefix(state.Text, partial) {
				t.Fatalf("partial %q is not a prefix of %q", partial, state.Text)
			}
		}
		break
	}

	if len(partials) != 3 {
		t.Fatalf("expected one streaming state per line, got %d", len(partials))
	}
}

func TestSubmitRejectsInvalidURL(t *testing.T) {
	c := newController(t, "http://127.0.0.1:1/summarize")
	sub := subscribe(t, c)

	for _, raw := range []string{"", "   ", "not a url", "/watch?v=abc123", "ftp://example.com/video"} {
		err := c.Submit(context.Background(), raw)
		if !errors.Is(err, domain.ErrInvalidURL) {
			t.Fatalf("expected ErrInvalidURL for %q, got %v", raw, err)
		}
	}

	expectQuiet(t, sub)

	if got := c.State(); got != domain.Idle() {
		t.Fatalf("expected idle state, got %s", got)
	}
}

func TestSubmitWhileInFlightIsRejected(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(blockingHandler(released, "partial"))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Streaming("partial"))

	if err := c.Submit(context.Background(), videoURL); !errors.Is(err, controller.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	expectQuiet(t, sub)

	c.Cancel()
	expectState(t, sub, domain.Idle())
}

func TestSubmitReplacesInFlightRequest(t *testing.T) {
	firstReleased := make(chan struct{})
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			blockingHandler(firstReleased, "old")(w, r)
			return
		}

		_, _ = io.WriteString(w, "new\n")
	}))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL, controller.WithPolicy(controller.PolicyReplace))
	sub := subscribe(t, c)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Streaming("old"))

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("replace submit: %v", err)
	}

	expectState(t, sub, domain.Loading())

	select {
	case <-firstReleased:
	case <-time.After(stateWait):
		t.Fatalf("replaced request connection is not released")
	}

	expectState(t, sub, domain.Streaming("new"))
	expectState(t, sub, domain.Completed("new"))
	expectQuiet(t, sub)
}

func TestCancelBeforeFirstLine(t *testing.T) {
	arrived := make(chan struct{})
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
		close(released)
	}))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())

	select {
	case <-arrived:
	case <-time.After(stateWait):
		t.Fatalf("request did not reach the server")
	}

	c.Cancel()
	expectState(t, sub, domain.Idle())

	select {
	case <-released:
	case <-time.After(stateWait):
		t.Fatalf("connection is not released after cancel")
	}

	expectQuiet(t, sub)
}

func TestCancelledContextSkipsSend(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Submit(ctx, videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Idle())
	expectQuiet(t, sub)

	if n := calls.Load(); n != 0 {
		t.Fatalf("expected no request to be sent, got %d", n)
	}
}

func TestCancelMidStreamStopsPublication(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(blockingHandler(released, "first line"))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Streaming("first line"))

	c.Cancel()
	c.Cancel()

	expectState(t, sub, domain.Idle())

	select {
	case <-released:
	case <-time.After(stateWait):
		t.Fatalf("connection is not released after cancel")
	}

	expectQuiet(t, sub)
}

func TestCancelIsNoOpWhenIdleOrTerminal(t *testing.T) {
	srv := httptest.NewServer(linesHandler(t, "done"))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	c.Cancel()
	expectQuiet(t, sub)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Streaming("done"))
	expectState(t, sub, domain.Completed("done"))

	c.Cancel()
	expectQuiet(t, sub)

	if got := c.State(); got != domain.Completed("done") {
		t.Fatalf("cancel changed terminal state to %s", got)
	}
}

func TestSubmitToUnreachableHostFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c := newController(t, endpoint)
	sub := subscribe(t, c)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())

	state := nextState(t, sub)
	if state.Kind != domain.StateFailed {
		t.Fatalf("expected failed state, got %s(%q)", state, state.Text)
	}

	if strings.TrimSpace(state.Text) == "" {
		t.Fatalf("expected non-empty error message")
	}
}

func TestSubmitFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "Failed to download audio"}`)
	}))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Failed("summarize endpoint returned status 400: Failed to download audio"))
}

func TestSubmitFailsOnUndecodableStream(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "line too long", body: strings.Repeat("x", 64)},
		{name: "invalid UTF-8", body: "ok\n\xff\xfe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			t.Cleanup(srv.Close)

			c := newController(t, srv.URL, controller.WithMaxLineBytes(16))
			sub := subscribe(t, c)

			if err := c.Submit(context.Background(), videoURL); err != nil {
				t.Fatalf("submit: %v", err)
			}

			expectState(t, sub, domain.Loading())

			for {
				state := nextState(t, sub)
				if state.Kind == domain.StateStreaming {
					continue
				}

				if state.Kind != domain.StateFailed {
					t.Fatalf("expected failed state, got %s(%q)", state, state.Text)
				}

				if !strings.Contains(state.Text, "decode") {
					t.Fatalf("expected decode failure message, got %q", state.Text)
				}
				break
			}
		})
	}
}

func TestDismissReturnsToIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	c.Dismiss()
	expectQuiet(t, sub)

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Failed("summarize endpoint returned status 500"))

	c.Dismiss()
	expectState(t, sub, domain.Idle())

	if err := c.Submit(context.Background(), videoURL); err != nil {
		t.Fatalf("submit after dismiss: %v", err)
	}
	expectState(t, sub, domain.Loading())
}

func TestParentContextCancellationIsNotAnError(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(blockingHandler(released, "line"))
	t.Cleanup(srv.Close)

	c := newController(t, srv.URL)
	sub := subscribe(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Submit(ctx, videoURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expectState(t, sub, domain.Loading())
	expectState(t, sub, domain.Streaming("line"))

	cancel()

	expectState(t, sub, domain.Idle())
	expectQuiet(t, sub)
}
