package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ytsummarizer/internal/bot"
	"ytsummarizer/internal/video"

	"github.com/spf13/cobra"
)

var errTokenRequired = errors.New("TOKEN is required")

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot front-end",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	if cfg.Token == "" {
		return errTokenRequired
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botInst, err := bot.New(
		cfg.Token,
		cfg.Endpoint,
		newHTTPClient(cfg),
		video.NewInfoFetcher(logger),
		cfg.AllowedUsers,
		cfg.EditInterval,
		logger,
	)
	if err != nil {
		return fmt.Errorf("init bot: %w", err)
	}
	logger.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers),
		"endpoint", cfg.Endpoint)

	botInst.Start(ctx)
	botInst.Stop()

	logger.InfoContext(ctx, "Bot is stopped")

	return nil
}
