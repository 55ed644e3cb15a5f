package bot

import (
	"context"
	"strings"

	"ytsummarizer/internal/domain"
	"ytsummarizer/internal/markdown"
	"ytsummarizer/internal/video"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeText = `🤖 *Welcome to YT Summarizer\!*

Send me a YouTube link and I will stream its summary right here\.

– Press *Cancel* to stop a summary in progress
– Press *Dismiss* to close a finished or failed summary
– One summary per chat at a time`

const (
	noLinkText      = "✖️ Send me a YouTube link to summarize\\."
	invalidLinkText = "✖️ This does not look like a video link\\."
	busyText        = "⏳ Already summarizing a video\\. Cancel it first\\."
	failedText      = "❌ Failed\\."
	cancelledText   = "✖️ Cancelled\\."

	streamingHeader = "✍️ *Summarizing…*\n\n"
)

func stateView(state domain.RequestState, link string) (string, bool) {
	var text string
	var keyboard bool

	switch state.Kind {
	case domain.StateLoading:
		text = "⏳ *Summarizing…*\n\n" + markdown.EscapeV2(link)
		keyboard = true
	case domain.StateStreaming:
		// Long partials show their newest part.
		budget := markdown.MaxMessageLength - markdown.UTF16Len(streamingHeader)
		return streamingHeader + markdown.TailV2(markdown.EscapeV2(state.Text), budget), true
	case domain.StateCompleted:
		text = "✅ " + markdown.EscapeV2(video.ShareText(state.Text, link))
		keyboard = true
	case domain.StateFailed:
		text = "❌ *Failed\\.*\n\n" + markdown.EscapeV2(state.Text)
		keyboard = true
	default:
		text = cancelledText
	}

	return markdown.TruncateV2(text, markdown.MaxMessageLength), keyboard
}

func stateKeyboard(state domain.RequestState) *models.InlineKeyboardMarkup {
	if state.InFlight() {
		return &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "✖️ Cancel", CallbackData: callbackCancel}},
			},
		}
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "👌 Dismiss", CallbackData: callbackDismiss}},
		},
	}
}

func previewText(info domain.VideoInfo, link string) string {
	watch := link
	if id, err := video.ParseVideoID(link); err == nil {
		watch = video.WatchURL(id)
	}

	var b strings.Builder

	b.WriteString("🎬 *" + markdown.EscapeV2(info.Title) + "*\n")
	if info.Uploader != "" {
		b.WriteString("👤 " + markdown.EscapeV2(info.Uploader) + "\n")
	}
	b.WriteString("\n▶️ " + markdown.EscapeV2(watch) + "\n")
	b.WriteString("🔗 " + markdown.EscapeV2(video.EmbedURL(link)))

	return markdown.TruncateV2(b.String(), markdown.MaxMessageLength)
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) error {
	if err := b.rateLimiter.Wait(ctx, chatID); err != nil {
		return err
	}

	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               normalize(text),
		ParseMode:          models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	})

	return err
}

func (b *Bot) send(ctx context.Context, s *session, text string, withKeyboard bool, wait bool) {
	if wait {
		if err := b.rateLimiter.Wait(ctx, s.chatID); err != nil {
			return
		}
	}

	params := &bot.SendMessageParams{
		ChatID:             s.chatID,
		Text:               normalize(text),
		ParseMode:          models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if withKeyboard {
		params.ReplyMarkup = stateKeyboard(s.prev)
	}

	message, err := b.api.SendMessage(ctx, params)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to send progress message",
			"error", err,
			"chatID", s.chatID,
			"state", s.prev.String())

		return
	}

	s.messageID = message.ID
	s.lastText = text
	s.hasKeyboard = withKeyboard
}

func (b *Bot) edit(ctx context.Context, s *session, text string, withKeyboard bool, wait bool) {
	if text == s.lastText && withKeyboard == s.hasKeyboard {
		return
	}

	if wait {
		if err := b.rateLimiter.Wait(ctx, s.chatID); err != nil {
			return
		}
	}

	params := &bot.EditMessageTextParams{
		ChatID:             s.chatID,
		MessageID:          s.messageID,
		Text:               normalize(text),
		ParseMode:          models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if withKeyboard {
		params.ReplyMarkup = stateKeyboard(s.prev)
	}

	if _, err := b.api.EditMessageText(ctx, params); err != nil {
		b.log.ErrorContext(ctx, "Failed to edit progress message",
			"error", err,
			"chatID", s.chatID,
			"messageID", s.messageID,
			"state", s.prev.String())

		return
	}

	s.lastText = text
	s.hasKeyboard = withKeyboard
}

func normalize(text string) string {
	return strings.ToValidUTF8(text, "?")
}
