package bot

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"ytsummarizer/internal/domain"
	"ytsummarizer/internal/ratelimiter"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	callbackCancel  = "cancel"
	callbackDismiss = "dismiss"

	previewTimeout = 20 * time.Second
)

// messenger is the part of the Telegram API the bot talks to.
type messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

type InfoFetcher interface {
	Fetch(ctx context.Context, raw string) (domain.VideoInfo, error)
}

type Bot struct {
	tg           *bot.Bot
	api          messenger
	rateLimiter  *ratelimiter.RateLimiter
	info         InfoFetcher
	endpoint     string
	client       *http.Client
	allowedUsers []int64
	editInterval time.Duration
	log          *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
	wg       sync.WaitGroup
}

func New(
	token string,
	endpoint string,
	client *http.Client,
	info InfoFetcher,
	allowedUsers []int64,
	editInterval time.Duration,
	log *slog.Logger,
) (*Bot, error) {
	b := newBot(nil, endpoint, client, info, allowedUsers, editInterval, log)

	tg, err := bot.New(strings.TrimSpace(token),
		bot.WithDefaultHandler(b.handleText),
		bot.WithMiddlewares(b.allowedOnly),
		bot.WithErrorsHandler(func(err error) {
			log.Error("Failed to poll Telegram updates",
				"error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	tg.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	tg.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleStart)
	tg.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackCancel, bot.MatchTypeExact, b.handleCancel)
	tg.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackDismiss, bot.MatchTypeExact, b.handleDismiss)

	b.tg = tg
	b.api = tg

	return b, nil
}

func newBot(
	api messenger,
	endpoint string,
	client *http.Client,
	info InfoFetcher,
	allowedUsers []int64,
	editInterval time.Duration,
	log *slog.Logger,
) *Bot {
	if editInterval <= 0 {
		editInterval = time.Second
	}

	return &Bot{
		api:          api,
		rateLimiter:  ratelimiter.New(log),
		info:         info,
		endpoint:     endpoint,
		client:       client,
		allowedUsers: allowedUsers,
		editInterval: editInterval,
		log:          log,
		sessions:     make(map[int64]*session),
	}
}

// Start polls Telegram until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.InfoContext(ctx, "Bot is started")

	b.tg.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

// Stop cancels every chat's request, drops its rate limiter and waits for
// the renderers.
func (b *Bot) Stop() {
	b.mu.Lock()
	sessions := make([]*session, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.sessions = make(map[int64]*session)
	b.mu.Unlock()

	for _, s := range sessions {
		s.ctrl.Close()
	}

	b.wg.Wait()

	for _, s := range sessions {
		b.rateLimiter.Forget(s.chatID)
	}
}

func (b *Bot) allowedOnly(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tg *bot.Bot, update *models.Update) {
		userID, username := updateUser(update)

		if !b.userAllowed(userID) {
			b.log.DebugContext(ctx, "User is not allowed",
				"userID", userID,
				"username", username,
				"updateID", update.ID)

			return
		}

		next(ctx, tg, update)
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func updateUser(update *models.Update) (int64, string) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.From.Username
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, update.CallbackQuery.From.Username
	default:
		return 0, ""
	}
}

func callbackMessage(cb *models.CallbackQuery) *models.Message {
	if cb == nil {
		return nil
	}

	return cb.Message.Message
}
