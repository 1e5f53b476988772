package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meysamhadeli/codecompanion/apperr"
	history_contracts "github.com/meysamhadeli/codecompanion/chat_history/contracts"
	history_models "github.com/meysamhadeli/codecompanion/chat_history/models"
	store_contracts "github.com/meysamhadeli/codecompanion/history_store/contracts"
	store_models "github.com/meysamhadeli/codecompanion/history_store/models"
	"github.com/meysamhadeli/codecompanion/prompt_builder"
	"github.com/meysamhadeli/codecompanion/providers/contracts"
	"github.com/meysamhadeli/codecompanion/providers/models"
	token_contracts "github.com/meysamhadeli/codecompanion/token_management/contracts"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultMinInterval    = time.Second
	DefaultThrottle       = 100 * time.Millisecond
	DefaultRequestTimeout = 30 * time.Second
	DefaultStreamTimeout  = 120 * time.Second

	storeTimeout = 5 * time.Second
)

type Options struct {
	Provider       contracts.IChatAIProvider
	RequestOptions models.RequestOptions
	History        history_contracts.IChatHistory
	// Store and TokenManager are optional.
	Store          store_contracts.IHistoryStore
	TokenManager   token_contracts.ITokenManagement
	MinInterval    time.Duration
	Throttle       time.Duration
	RequestTimeout time.Duration
	StreamTimeout  time.Duration
	// Now is the clock the send limiter is evaluated against.
	Now    func() time.Time
	Logger *zap.Logger
}

// Metadata describes the project a request was sent from.
type Metadata struct {
	FolderName string
	FileCount  int
}

type Request struct {
	UserMessage  string
	SystemPrompt string
	Metadata     Metadata
}

// Controller runs one chat request at a time and reports its progress as
// a channel of events.
type Controller struct {
	mu        sync.Mutex
	state     State
	current   *run
	sessionID string

	provider       contracts.IChatAIProvider
	requestOptions models.RequestOptions
	history        history_contracts.IChatHistory
	store          store_contracts.IHistoryStore
	tokens         token_contracts.ITokenManagement
	limiter        *rate.Limiter
	throttle       time.Duration
	requestTimeout time.Duration
	streamTimeout  time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

type run struct {
	ctx       context.Context
	cancel    context.CancelFunc
	events    chan Event
	cancelled bool
	// settled is set once the outcome is decided; Cancel no longer applies.
	settled   bool
	request   Request
}

func NewController(opts Options) *Controller {
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	} else if opts.MinInterval == 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = DefaultStreamTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Controller{
		state:          StateIdle,
		sessionID:      uuid.NewString(),
		provider:       opts.Provider,
		requestOptions: opts.RequestOptions,
		history:        opts.History,
		store:          opts.Store,
		tokens:         opts.TokenManager,
		limiter:        rate.NewLimiter(limit, 1),
		throttle:       opts.Throttle,
		requestTimeout: opts.RequestTimeout,
		streamTimeout:  opts.StreamTimeout,
		now:            opts.Now,
		logger:         opts.Logger,
	}
}

// Send starts a request. It fails fast with ErrBusy while another request
// runs and with ErrTooSoon when sends come faster than the minimum
// interval; neither changes any state. The returned channel must be
// drained until it is closed.
func (c *Controller) Send(ctx context.Context, req Request) (<-chan Event, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return nil, fmt.Errorf("empty message: %w", apperr.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return nil, apperr.ErrBusy
	}
	if !c.limiter.AllowN(c.now(), 1) {
		return nil, apperr.ErrTooSoon
	}

	timeout := c.requestTimeout
	if c.requestOptions.Stream {
		timeout = c.streamTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)

	r := &run{ctx: runCtx, cancel: cancel, events: make(chan Event), request: req}
	c.current = r
	c.state = StateSending

	go c.execute(r)
	return r.events, nil
}

// Ready reports the error Send would fail fast with right now, without
// consuming a send slot.
func (c *Controller) Ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return apperr.ErrBusy
	}
	if c.limiter.Limit() != rate.Inf && c.limiter.TokensAt(c.now()) < 1 {
		return apperr.ErrTooSoon
	}
	return nil
}

// Cancel aborts the running request. It reports whether there was one.
// No content event is delivered after Cancel returns.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.cancelled || c.current.settled {
		return false
	}
	c.current.cancelled = true
	c.current.cancel()
	return true
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns the rolling conversation, oldest first.
func (c *Controller) History() []history_models.ConversationTurn {
	return c.history.Turns()
}

// ClearHistory starts a new rolling conversation with a fresh session id.
func (c *Controller) ClearHistory() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return apperr.ErrBusy
	}
	c.history.Clear()
	c.sessionID = uuid.NewString()
	return nil
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) setState(r *run, state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	r.events <- Event{Kind: EventState, State: state}
	c.logger.Debug("request state", zap.String("state", state.String()))
}

// tryEmitContent hands text to a waiting consumer. It never blocks, so a
// busy consumer just gets a later, longer snapshot.
func (c *Controller) tryEmitContent(r *run, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.cancelled || r.ctx.Err() != nil {
		return false
	}
	select {
	case r.events <- Event{Kind: EventContent, State: c.state, Content: text}:
		return true
	default:
		return false
	}
}

func (c *Controller) finish(r *run, terminal Event) {
	c.mu.Lock()
	r.settled = true
	c.state = terminal.State
	c.mu.Unlock()

	r.events <- Event{Kind: EventState, State: terminal.State}
	r.events <- terminal

	c.mu.Lock()
	c.state = StateIdle
	c.current = nil
	c.mu.Unlock()

	r.cancel()
	close(r.events)
}

func (c *Controller) execute(r *run) {
	r.events <- Event{Kind: EventState, State: StateSending}

	if err := c.provider.ValidateCredentials(); err != nil {
		c.fail(r, err, false)
		return
	}

	userTurn := history_models.ConversationTurn{Role: history_models.RoleUser, Content: r.request.UserMessage, Time: time.Now()}
	c.history.Add(userTurn)
	messages := prompt_builder.BuildMessages(r.request.SystemPrompt, c.history.Turns())

	responses := c.provider.ChatCompletionRequest(r.ctx, messages, c.requestOptions)

	var (
		full     strings.Builder
		streamed bool
		pending  bool
		lastSent time.Time
		timer    *time.Timer
		timerC   <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}
	defer stopTimer()

	flush := func() {
		if c.tryEmitContent(r, full.String()) {
			pending = false
			lastSent = time.Now()
			stopTimer()
			return
		}
		if timerC == nil {
			timer = time.NewTimer(c.throttle)
			timerC = timer.C
		}
	}

	for {
		select {
		case <-r.ctx.Done():
			c.cancelled(r)
			return

		case <-timerC:
			timer, timerC = nil, nil
			if pending {
				flush()
			}

		case response, ok := <-responses:
			if !ok {
				if r.ctx.Err() != nil {
					c.cancelled(r)
					return
				}
				c.fail(r, fmt.Errorf("response stream closed before completion: %w", apperr.ErrMalformedResponse), true)
				return
			}

			if response.Err != nil {
				if r.ctx.Err() != nil || apperr.Classify(response.Err) == apperr.KindCancelled {
					c.cancelled(r)
					return
				}
				c.fail(r, response.Err, true)
				return
			}

			if response.Content != "" {
				if !streamed {
					streamed = true
					c.setState(r, StateStreaming)
				}
				full.WriteString(response.Content)
				pending = true
				if elapsed := time.Since(lastSent); elapsed >= c.throttle {
					flush()
				} else if timerC == nil {
					timer = time.NewTimer(c.throttle - elapsed)
					timerC = timer.C
				}
			}

			if response.Done {
				stopTimer()
				if pending {
					c.finalFlush(r, full.String())
				}
				c.complete(r, full.String(), response.Usage)
				return
			}
		}
	}
}

// finalFlush delivers the last snapshot unless the request was cancelled.
func (c *Controller) finalFlush(r *run, text string) {
	c.mu.Lock()
	skip := r.cancelled
	state := c.state
	c.mu.Unlock()
	if skip {
		return
	}
	select {
	case r.events <- Event{Kind: EventContent, State: state, Content: text}:
	case <-r.ctx.Done():
	}
}

// settle decides the outcome of r. It reports false when r was cancelled
// first.
func (c *Controller) settle(r *run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.cancelled {
		return false
	}
	r.settled = true
	return true
}

func (c *Controller) complete(r *run, text string, usage *models.Usage) {
	if !c.settle(r) {
		c.cancelled(r)
		return
	}

	c.history.Add(history_models.ConversationTurn{Role: history_models.RoleAssistant, Content: text, Time: time.Now()})

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		_, err := c.store.Append(ctx, &store_models.HistoryRecord{
			Timestamp:        time.Now(),
			UserMessage:      r.request.UserMessage,
			AssistantMessage: text,
			Model:            c.requestOptions.Model,
			FolderName:       r.request.Metadata.FolderName,
			FileCount:        r.request.Metadata.FileCount,
			SessionID:        c.SessionID(),
		})
		cancel()
		if err != nil {
			c.logger.Error("failed to save chat history", zap.Error(err))
		}
	}

	if c.tokens != nil && usage != nil {
		c.tokens.UsedTokens(usage.PromptTokens, usage.CompletionTokens)
	}

	c.logger.Debug("request completed", zap.Int("chars", len(text)))
	c.finish(r, Event{Kind: EventCompleted, State: StateCompleted, Content: text, Usage: usage})
}

// cancelled keeps the user turn so the question stays visible.
func (c *Controller) cancelled(r *run) {
	c.logger.Debug("request cancelled", zap.Error(context.Cause(r.ctx)))
	c.finish(r, Event{Kind: EventCancelled, State: StateCancelled, Err: fmt.Errorf("request cancelled: %w", apperr.ErrCancelled)})
}

// fail drops the user turn when it was already recorded.
func (c *Controller) fail(r *run, err error, userTurnAdded bool) {
	if userTurnAdded {
		c.history.PopLast()
	}
	c.logger.Debug("request failed", zap.String("kind", string(apperr.Classify(err))), zap.Error(err))
	c.finish(r, Event{Kind: EventFailed, State: StateFailed, Err: err})
}
