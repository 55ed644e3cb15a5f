package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"ytsummarizer/internal/config"

	"github.com/spf13/cobra"
)

const dialKeepAlive = 30 * time.Second

//nolint:gochecknoglobals // Set once by the root command before any subcommand runs.
var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ytsum",
	Short: "Stream summaries of YouTube videos",
	Long: `ytsum streams summaries of YouTube videos.

It can summarize a single link in the terminal, preview a video, serve the
summarization endpoint or run the Telegram bot front-end. Settings are read
from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: cfg.LogLevel,
		}))
		slog.SetDefault(logger)

		return nil
	},
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}

		os.Exit(1)
	}
}

// newHTTPClient has no overall timeout since summaries stream for minutes.
func newHTTPClient(cfg config.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: dialKeepAlive,
	}).DialContext
	transport.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout

	return &http.Client{Transport: transport}
}
