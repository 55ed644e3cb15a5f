package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"ytsummarizer/internal/domain"

	"github.com/google/uuid"
)

const defaultMaxLineBytes = 1 << 20

type SubmitPolicy int

const (
	// PolicyReject refuses a submit while a request is in flight.
	PolicyReject SubmitPolicy = iota
	// PolicyReplace cancels the in-flight request and starts the new one.
	PolicyReplace
)

var ErrBusy = errors.New("summarize request is already in flight")

type Option func(*Controller)

func WithPolicy(policy SubmitPolicy) Option {
	return func(c *Controller) {
		c.policy = policy
	}
}

// WithLineSeparator sets the text inserted between received lines.
// Lines are concatenated as-is by default.
func WithLineSeparator(separator string) Option {
	return func(c *Controller) {
		c.separator = separator
	}
}

func WithMaxLineBytes(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxLineBytes = n
		}
	}
}

// Controller drives one streaming summarize request at a time and
// publishes every state change to its subscribers.
type Controller struct {
	endpoint     string
	client       *http.Client
	log          *slog.Logger
	policy       SubmitPolicy
	separator    string
	maxLineBytes int

	mu    sync.Mutex
	state domain.RequestState
	op    *operation
	subs  map[*Subscription]struct{}
}

// operation is the cancellation handle of a single request. cancelled is
// guarded by Controller.mu and once set the operation can't publish.
type operation struct {
	id        string
	req       domain.SummarizeRequest
	cancel    context.CancelFunc
	cancelled bool
}

func New(
	endpoint string,
	client *http.Client,
	log *slog.Logger,
	opts ...Option,
) *Controller {
	if client == nil {
		client = http.DefaultClient
	}

	c := &Controller{
		endpoint:     endpoint,
		client:       client,
		log:          log,
		policy:       PolicyReject,
		maxLineBytes: defaultMaxLineBytes,
		state:        domain.Idle(),
		subs:         make(map[*Subscription]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Submit validates rawURL and starts streaming its summary. It returns
// domain.ErrInvalidURL without touching the state when the link is malformed
// and ErrBusy when a request is in flight under PolicyReject.
func (c *Controller) Submit(ctx context.Context, rawURL string) error {
	req, err := domain.NewSummarizeRequest(rawURL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.op != nil {
		if c.policy != PolicyReplace {
			return ErrBusy
		}

		c.log.InfoContext(ctx, "Replacing in-flight summarize request",
			"operationID", c.op.id,
			"videoURL", c.op.req.VideoURL(),
			"newVideoURL", req.VideoURL())

		c.cancelLocked(c.op)
	}

	opCtx, cancel := context.WithCancel(ctx)
	op := &operation{
		id:     uuid.NewString(),
		req:    req,
		cancel: cancel,
	}
	c.op = op
	c.setLocked(domain.Loading())

	go c.run(opCtx, op)

	return nil
}

// Cancel stops the in-flight request and resets the controller to Idle.
// Nothing from the cancelled request is published after Cancel returns.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.op == nil {
		return
	}

	c.log.Info("Summarize request is cancelled",
		"operationID", c.op.id,
		"videoURL", c.op.req.VideoURL(),
		"state", c.state.String())

	c.cancelLocked(c.op)
	c.setLocked(domain.Idle())
}

// Dismiss acknowledges a terminal state and returns to Idle.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Terminal() {
		return
	}

	c.setLocked(domain.Idle())
}

func (c *Controller) State() domain.RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Subscribe registers a new subscriber. The current state is delivered
// first, followed by every subsequent change in publication order.
func (c *Controller) Subscribe() *Subscription {
	s := newSubscription(c)

	c.mu.Lock()
	c.subs[s] = struct{}{}
	s.push(c.state)
	c.mu.Unlock()

	go s.pump()

	return s
}

// Close cancels any in-flight request and closes all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.op != nil {
		c.cancelLocked(c.op)
	}
	subs := make([]*Subscription, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

func (c *Controller) unsubscribe(s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subs, s)
}

func (c *Controller) cancelLocked(op *operation) {
	op.cancelled = true
	op.cancel()

	if c.op == op {
		c.op = nil
	}
}

func (c *Controller) setLocked(state domain.RequestState) {
	c.state = state

	for s := range c.subs {
		s.push(state)
	}
}

// publish applies a state produced by op and reports whether op is still
// the current operation.
func (c *Controller) publish(op *operation, state domain.RequestState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if op.cancelled || c.op != op {
		return false
	}

	if state.Terminal() {
		c.op = nil
	}

	c.setLocked(state)

	return true
}

// abandon handles an operation whose parent context ended without an
// explicit Cancel.
func (c *Controller) abandon(op *operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if op.cancelled || c.op != op {
		return false
	}

	c.cancelLocked(op)
	c.setLocked(domain.Idle())

	return true
}

func (c *Controller) run(ctx context.Context, op *operation) {
	defer op.cancel()

	log := c.log.With(
		"operationID", op.id,
		"videoURL", op.req.VideoURL())

	text, err := c.stream(ctx, op, log)

	switch {
	case ctx.Err() != nil:
		if c.abandon(op) {
			log.InfoContext(ctx, "Summarize request context is done",
				"error", ctx.Err(),
				"receivedChars", len(text))
		}
	case err != nil:
		log.ErrorContext(ctx, "Failed to stream summary",
			"error", err,
			"receivedChars", len(text))

		c.publish(op, domain.Failed(userMessage(err)))
	default:
		c.publish(op, domain.Completed(text))
	}
}
