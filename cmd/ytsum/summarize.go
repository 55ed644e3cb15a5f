package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ytsummarizer/internal/controller"
	"ytsummarizer/internal/domain"

	"github.com/spf13/cobra"
)

const exitCodeCancelled = 130

var errCancelled = errors.New("summary is cancelled")

var summarizeCmd = &cobra.Command{
	Use:   "summarize <link>",
	Short: "Stream the summary of a video to stdout",
	Long: `Summarize submits the link to the summarization endpoint and prints the
summary as it streams in. Ctrl-C cancels the request.

Exits with 1 when the summary fails and 130 when it is cancelled.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctrl := controller.New(cfg.Endpoint, newHTTPClient(cfg), logger, controller.WithLineSeparator("\n"))
	defer ctrl.Close()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	return streamSummary(cmd, ctrl, strings.TrimSpace(args[0]), interrupts)
}

// streamSummary prints states of ctrl until the request ends. Only the text
// not printed yet is written for each streaming update.
func streamSummary(
	cmd *cobra.Command,
	ctrl *controller.Controller,
	link string,
	interrupts <-chan os.Signal,
) error {
	sub := ctrl.Subscribe()
	defer sub.Close()

	if err := ctrl.Submit(cmd.Context(), link); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	out := cmd.OutOrStdout()
	printed := ""
	started := false

	for {
		select {
		case sig := <-interrupts:
			logger.InfoContext(cmd.Context(), "Interrupt signal is received",
				"signal", sig.String())

			ctrl.Cancel()

		case state, ok := <-sub.C:
			if !ok {
				return &exitError{code: exitCodeCancelled, err: errCancelled}
			}

			switch state.Kind {
			case domain.StateLoading:
				started = true
			case domain.StateStreaming:
				printed = printDelta(out, printed, state.Text)
			case domain.StateCompleted:
				printed = printDelta(out, printed, state.Text)
				if !strings.HasSuffix(printed, "\n") {
					_, _ = io.WriteString(out, "\n")
				}

				return nil
			case domain.StateFailed:
				return &exitError{code: 1, err: errors.New(state.Text)}
			case domain.StateIdle:
				if started {
					return &exitError{code: exitCodeCancelled, err: errCancelled}
				}
			}
		}
	}
}

func printDelta(out io.Writer, printed string, text string) string {
	delta := text
	if strings.HasPrefix(text, printed) {
		delta = text[len(printed):]
	}

	_, _ = io.WriteString(out, delta)

	return text
}
