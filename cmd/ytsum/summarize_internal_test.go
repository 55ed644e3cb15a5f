package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"ytsummarizer/internal/controller"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLink = "https://youtu.be/dQw4w9WgXcQ"

func newTestCommand(t *testing.T, handler http.HandlerFunc) (*cobra.Command, *bytes.Buffer, *controller.Controller) {
	t.Helper()

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctrl := controller.New(srv.URL, srv.Client(), logger, controller.WithLineSeparator("\n"))
	t.Cleanup(ctrl.Close)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)

	return cmd, &out, ctrl
}

func TestStreamSummaryPrintsText(t *testing.T) {
	cmd, out, ctrl := newTestCommand(t, func(w http.ResponseWriter, _ *http.Request) {
		for _, line := range []string{"# Title\n", "\n", "Body"} {
			_, _ = io.WriteString(w, line)
			w.(http.Flusher).Flush()
		}
	})

	err := streamSummary(cmd, ctrl, testLink, make(chan os.Signal))

	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody\n", out.String())
}

func TestStreamSummaryFailsWithExitCodeOne(t *testing.T) {
	cmd, _, ctrl := newTestCommand(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"no transcript"}`, http.StatusUnprocessableEntity)
	})

	err := streamSummary(cmd, ctrl, testLink, make(chan os.Signal))

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.code)
	assert.Contains(t, err.Error(), "no transcript")
}

func TestStreamSummaryInterruptCancels(t *testing.T) {
	cmd, _, ctrl := newTestCommand(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	interrupts := make(chan os.Signal, 1)
	interrupts <- os.Interrupt

	err := streamSummary(cmd, ctrl, testLink, interrupts)

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitCodeCancelled, exitErr.code)
	assert.True(t, errors.Is(err, errCancelled))
}

func TestStreamSummaryRejectsInvalidLink(t *testing.T) {
	cmd, _, ctrl := newTestCommand(t, func(http.ResponseWriter, *http.Request) {
		t.Error("endpoint must not be called")
	})

	err := streamSummary(cmd, ctrl, "not a link", make(chan os.Signal))

	require.Error(t, err)

	var exitErr *exitError
	assert.False(t, errors.As(err, &exitErr))
}
