package bot

import (
	"context"
	"errors"
	"fmt"

	"ytsummarizer/internal/controller"
	"ytsummarizer/internal/domain"
	"ytsummarizer/internal/video"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	if err := b.sendText(ctx, update.Message.Chat.ID, welcomeText); err != nil {
		b.log.ErrorContext(ctx, "Failed to send welcome message",
			"error", err,
			"chatID", update.Message.Chat.ID)
	}
}

func (b *Bot) handleText(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	if err := b.handleLink(ctx, chatID, update.Message.Text); err != nil {
		b.log.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"chatID", chatID,
			"chatType", update.Message.Chat.Type,
			"messageID", update.Message.ID)
	}
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, text string) error {
	link, ok := video.ExtractLink(text)
	if !ok {
		return b.sendText(ctx, chatID, noLinkText)
	}

	if _, err := domain.ParseVideoURL(link); err != nil {
		return b.sendText(ctx, chatID, invalidLinkText)
	}

	s := b.session(ctx, chatID)

	if s.ctrl.State().InFlight() {
		return b.sendText(ctx, chatID, busyText)
	}

	if err := b.sendPreview(ctx, chatID, link); err != nil {
		b.log.WarnContext(ctx, "Failed to send preview",
			"error", err,
			"chatID", chatID,
			"link", link)
	}

	err := s.submit(ctx, link)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, controller.ErrBusy):
		return b.sendText(ctx, chatID, busyText)
	case errors.Is(err, domain.ErrInvalidURL):
		return b.sendText(ctx, chatID, invalidLinkText)
	default:
		return errors.Join(
			fmt.Errorf("submit: %w", err),
			b.sendText(ctx, chatID, failedText),
		)
	}
}

func (b *Bot) sendPreview(ctx context.Context, chatID int64, link string) error {
	if b.info == nil {
		return nil
	}

	previewCtx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()

	var info domain.VideoInfo

	err := b.withSpinner(previewCtx, chatID, func() error {
		var err error
		info, err = b.info.Fetch(previewCtx, link)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch info: %w", err)
	}

	return b.sendText(ctx, chatID, previewText(info, link))
}

func (b *Bot) handleCancel(ctx context.Context, _ *bot.Bot, update *models.Update) {
	b.handleCallback(ctx, update, "✖️ Cancelled.", func(s *session) {
		s.ctrl.Cancel()
	})
}

func (b *Bot) handleDismiss(ctx context.Context, _ *bot.Bot, update *models.Update) {
	b.handleCallback(ctx, update, "", func(s *session) {
		s.ctrl.Dismiss()
	})
}

func (b *Bot) handleCallback(
	ctx context.Context,
	update *models.Update,
	answer string,
	fn func(s *session),
) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	if message := callbackMessage(cb); message != nil {
		if s := b.existingSession(message.Chat.ID); s != nil {
			fn(s)
		}
	}

	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
		Text:            answer,
	}); err != nil {
		b.log.ErrorContext(ctx, "Failed to answer callback query",
			"error", err,
			"userID", cb.From.ID,
			"data", cb.Data)
	}
}
