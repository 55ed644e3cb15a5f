package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	maxOutputTokens int64 = 8192

	systemPrompt = `You summarise YouTube videos for a mobile reader.

Rules:
- Start with a short, catchy title line in Markdown ("# Title").
- Summarise the content so it sounds like a podcast host retelling it.
- Add a few fun facts related to the topic.
- Use short paragraphs separated by blank lines.
- Answer in the language of the video title when it is known.`
)

// OpenAISummarizer streams summaries from OpenAI's chat completions API.
type OpenAISummarizer struct {
	client openai.Client
	model  string
}

func NewOpenAISummarizer(apiKey string, model string, opts ...option.RequestOption) (*OpenAISummarizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAISummarizer{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (s *OpenAISummarizer) Stream(
	ctx context.Context,
	input Input,
	emit func(chunk string) error,
) error {
	link := strings.TrimSpace(input.Link)
	if link == "" {
		return errors.New("link is empty")
	}

	stream := s.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(s.model),
		MaxCompletionTokens: openai.Int(maxOutputTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(input)),
		},
	})
	defer func() {
		_ = stream.Close()
	}()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		if err := emit(delta); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("stream completion: %w", err)
	}

	return nil
}

func userPrompt(input Input) string {
	var b strings.Builder

	b.WriteString("Video:\n")
	b.WriteString(strings.TrimSpace(input.Link))
	b.WriteString("\n")

	if title := strings.TrimSpace(input.Title); title != "" {
		b.WriteString("Title:\n")
		b.WriteString(title)
		b.WriteString("\n")
	}

	if uploader := strings.TrimSpace(input.Uploader); uploader != "" {
		b.WriteString("The uploader of the video is:\n")
		b.WriteString(uploader)
		b.WriteString("\n")
	}

	if description := strings.TrimSpace(input.Description); description != "" {
		b.WriteString("Description:\n")
		b.WriteString(description)
		b.WriteString("\n")
	}

	return b.String()
}
