package bot

import (
	"context"
	"sync"
	"time"

	"ytsummarizer/internal/controller"
	"ytsummarizer/internal/domain"
)

// session is one chat's controller and the progress message it renders to.
// Fields below mu are owned by the render goroutine.
type session struct {
	chatID int64
	ctrl   *controller.Controller
	sub    *controller.Subscription

	mu   sync.Mutex
	link string

	prev        domain.RequestState
	messageID   int
	lastText    string
	hasKeyboard bool
}

func (s *session) currentLink() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.link
}

// submit starts a request for link, keeping the previous link on failure so
// the running request still renders with its own.
func (s *session) submit(ctx context.Context, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevLink := s.link
	s.link = link

	if err := s.ctrl.Submit(ctx, link); err != nil {
		s.link = prevLink
		return err
	}

	return nil
}

func (b *Bot) session(ctx context.Context, chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[chatID]; ok {
		return s
	}

	ctrl := controller.New(b.endpoint, b.client, b.log.With("chatID", chatID),
		controller.WithLineSeparator("\n"))
	s := &session{
		chatID: chatID,
		ctrl:   ctrl,
		sub:    ctrl.Subscribe(),
		prev:   domain.Idle(),
	}
	b.sessions[chatID] = s

	b.wg.Add(1)
	go b.render(ctx, s)

	return s
}

func (b *Bot) existingSession(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sessions[chatID]
}

// render mirrors controller states into the chat. Streaming updates are
// coalesced and edited at most once per edit interval; other states are
// shown as soon as the chat's rate limit allows.
func (b *Bot) render(ctx context.Context, s *session) {
	defer b.wg.Done()
	defer s.sub.Close()

	ticker := time.NewTicker(b.editInterval)
	defer ticker.Stop()

	var pending *domain.RequestState

	for {
		select {
		case <-ctx.Done():
			return

		case state, ok := <-s.sub.C:
			if !ok {
				return
			}

			if state.Kind == domain.StateStreaming {
				pending = &state
				continue
			}

			pending = nil
			b.show(ctx, s, state, true)

		case <-ticker.C:
			if pending == nil || !b.rateLimiter.Allow(s.chatID) {
				continue
			}

			b.show(ctx, s, *pending, false)
			pending = nil
		}
	}
}

func (b *Bot) show(ctx context.Context, s *session, state domain.RequestState, wait bool) {
	prev := s.prev
	s.prev = state

	if state.Kind == domain.StateIdle {
		if s.messageID == 0 {
			return
		}

		text := s.lastText
		if prev.InFlight() {
			text = cancelledText
		}

		b.edit(ctx, s, text, false, wait)
		s.messageID = 0

		return
	}

	if state.Kind == domain.StateLoading && s.messageID != 0 {
		b.edit(ctx, s, s.lastText, false, wait)
		s.messageID = 0
	}

	text, withKeyboard := stateView(state, s.currentLink())

	if s.messageID == 0 {
		b.send(ctx, s, text, withKeyboard, wait)
		return
	}

	b.edit(ctx, s, text, withKeyboard, wait)
}
