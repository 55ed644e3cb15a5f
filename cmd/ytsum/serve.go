package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ytsummarizer/internal/database"
	"ytsummarizer/internal/scheduler"
	"ytsummarizer/internal/server"
	"ytsummarizer/internal/summarizer"
	"ytsummarizer/internal/video"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the summarization endpoint",
	Long: `Serve runs the HTTP endpoint the summarize command and the bot talk to.

Summaries come from OpenAI when OPENAI_API_KEY is set and from the video
metadata otherwise. Completed summaries are cached in SQLite and expired
ones are pruned hourly.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	db, err := database.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	logger.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	sched := scheduler.New(ctx, db, logger)
	if err = sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	logger.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.HourlyPruneSpec,
		"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

	srv := server.New(initSummarizer(ctx), video.NewInfoFetcher(logger), db, cfg.SummaryTTL, logger)

	if err = srv.Run(ctx, cfg.ListenAddr); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	logger.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	return nil
}

func initSummarizer(ctx context.Context) summarizer.Summarizer {
	if cfg.OpenAIAPIKey == "" {
		logger.WarnContext(ctx, "OPENAI_API_KEY is empty so metadata summaries will be served")

		return summarizer.MetadataSummarizer{}
	}

	s, err := summarizer.NewOpenAISummarizer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize OpenAI summarizer",
			"error", err,
			"model", cfg.OpenAIModel)

		return summarizer.MetadataSummarizer{}
	}

	logger.InfoContext(ctx, "OpenAI summarizer is initialized",
		"model", cfg.OpenAIModel)

	return s
}
