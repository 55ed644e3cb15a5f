package summarizer

import (
	"context"
	"strings"
)

// Input describes the video to summarise.
type Input struct {
	// Link is the original video URL as submitted.
	Link string
	// Title, Uploader and Description are optional metadata scraped from the
	// watch page that help the model ground the summary.
	Title       string
	Uploader    string
	Description string
}

// Summarizer streams a summary as a sequence of text chunks. Chunks carry no
// framing and may split lines or words anywhere.
type Summarizer interface {
	Stream(ctx context.Context, input Input, emit func(chunk string) error) error
}

// MetadataSummarizer is the fallback used when no model is configured: it
// describes the video from its scraped metadata.
type MetadataSummarizer struct{}

func (MetadataSummarizer) Stream(_ context.Context, input Input, emit func(string) error) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSpace(input.Link)
	}

	lines := []string{"# " + title}

	if uploader := strings.TrimSpace(input.Uploader); uploader != "" {
		lines = append(lines, "", "Uploaded by "+uploader+".")
	}

	if description := strings.TrimSpace(input.Description); description != "" {
		lines = append(lines, "", description)
	}

	for _, line := range lines {
		if err := emit(line + "\n"); err != nil {
			return err
		}
	}

	return nil
}
