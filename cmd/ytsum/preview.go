package main

import (
	"fmt"
	"strings"

	"ytsummarizer/internal/video"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <link>",
	Short: "Print the embed links and metadata of a video",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	link := strings.TrimSpace(args[0])
	out := cmd.OutOrStdout()

	if id, err := video.ParseVideoID(link); err == nil {
		fmt.Fprintf(out, "ID:        %s\n", id)
		fmt.Fprintf(out, "Watch:     %s\n", video.WatchURL(id))
		fmt.Fprintf(out, "Thumbnail: %s\n", video.ThumbnailURL(id))
	} else {
		logger.WarnContext(cmd.Context(), "Link has no YouTube video ID",
			"link", link,
			"reason", err)
	}

	fmt.Fprintf(out, "Embed:     %s\n", video.EmbedURL(link))
	fmt.Fprintf(out, "Iframe:    %s\n", video.EmbedHTML(link))

	info, err := video.NewInfoFetcher(logger).Fetch(cmd.Context(), link)
	if err != nil {
		return fmt.Errorf("fetch video info: %w", err)
	}

	fmt.Fprintf(out, "Title:     %s\n", info.Title)
	if info.Uploader != "" {
		fmt.Fprintf(out, "Uploader:  %s\n", info.Uploader)
	}
	if info.Description != "" {
		fmt.Fprintf(out, "\n%s\n", info.Description)
	}

	return nil
}
