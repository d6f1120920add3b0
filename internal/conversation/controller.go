package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/brands-digger/internal/chat"
	"github.com/suPer8Hu/brands-digger/internal/common"
	"github.com/suPer8Hu/brands-digger/internal/deadletter"
	"github.com/suPer8Hu/brands-digger/internal/storage"
)

var (
	ErrChatNotFound           = errors.New("chat not found")
	ErrEmptyPrompt            = errors.New("prompt is empty")
	ErrPromptTooLong          = errors.New("prompt is too long")
	ErrSuggestMoreUnavailable = errors.New("suggest more is not available for this chat")
	ErrOperationNotFound      = errors.New("operation not found")
)

// NameGenerator is the name service as seen by the controller.
type NameGenerator interface {
	GenerateNames(ctx context.Context, prompt string) ([]string, error)
}

// Controller owns the session state. Every mutation happens under mu, which
// plays the part of the single UI thread; name service calls run unlocked.
type Controller struct {
	mu    sync.Mutex
	state chat.State
	store storage.Store
	names NameGenerator
	dead  deadletter.Sink
	now   func() time.Time
	log   zerolog.Logger

	inflight map[string]int
	ops      map[string]*Operation
	opOrder  []string
	wg       sync.WaitGroup
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithDeadLetters sets where results for deleted chats go. The default only logs them.
func WithDeadLetters(sink deadletter.Sink) Option {
	return func(c *Controller) { c.dead = sink }
}

func New(store storage.Store, names NameGenerator, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		names:    names,
		now:      time.Now,
		log:      logger.With().Str("component", "conversation").Logger(),
		inflight: make(map[string]int),
		ops:      make(map[string]*Operation),
	}
	for _, o := range opts {
		o(c)
	}
	if c.dead == nil {
		c.dead = deadletter.LogSink{Log: c.log}
	}
	return c
}

// Start loads the persisted session and repairs it: empty storage yields one
// default chat, a dangling active id falls back to the first chat.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	chats, active := c.store.Load(ctx)
	c.state = chat.State{Chats: chats, ActiveChat: active}

	before := c.state.ActiveID()
	created := c.state.Resolve(c.now())
	if created || before != c.state.ActiveID() {
		c.persistLocked(ctx)
	}
	c.log.Info().Int("chats", len(c.state.Chats)).Str("active", c.state.ActiveID()).Msg("session loaded")
}

func (c *Controller) persistLocked(ctx context.Context) {
	c.store.Save(ctx, c.state.Chats, c.state.ActiveChat)
}

func (c *Controller) Snapshot() chat.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Chats returns the chats in display order, newest first.
func (c *Controller) Chats() []chat.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone().Chats
}

func (c *Controller) Chat(id string) (chat.Chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.state.Find(id)
	if ch == nil {
		return chat.Chat{}, ErrChatNotFound
	}
	return ch.Clone(), nil
}

// Active returns the active chat; ok is false only before Start.
func (c *Controller) Active() (chat.Chat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.state.Active()
	if ch == nil {
		return chat.Chat{}, false
	}
	return ch.Clone(), true
}

func (c *Controller) NewChat(ctx context.Context) chat.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := chat.NewChat(c.now())
	c.state.Prepend(ch)
	c.state.SetActive(ch.ID)
	c.persistLocked(ctx)
	return ch.Clone()
}

func (c *Controller) SelectChat(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Find(id) == nil {
		return ErrChatNotFound
	}
	c.state.SetActive(id)
	c.persistLocked(ctx)
	return nil
}

// DeleteChat removes a chat. Deleting the active chat activates the first
// remaining one, or a new default chat when it was the last.
func (c *Controller) DeleteChat(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Delete(id, c.now()) {
		return ErrChatNotFound
	}
	c.persistLocked(ctx)
	return nil
}

// InFlight reports whether a name request for the chat is outstanding.
func (c *Controller) InFlight(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[chatID] > 0
}

// CanSuggestMore reports whether Suggest More may be offered for the chat now.
func (c *Controller) CanSuggestMore(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.state.Find(chatID)
	return ch != nil && c.inflight[chatID] == 0 && ch.CanSuggestMore()
}

// Send appends the user's prompt, asks the name service and appends the
// assistant's reply. The user message is persisted before the request is made.
func (c *Controller) Send(ctx context.Context, chatID, text string) (*Result, error) {
	op, err := c.begin(ctx, chatID, KindSend, text)
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, op), nil
}

// SuggestMore asks for names different from the ones offered last.
func (c *Controller) SuggestMore(ctx context.Context, chatID string) (*Result, error) {
	op, err := c.begin(ctx, chatID, KindSuggestMore, "")
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, op), nil
}

// SendAsync persists the user message and returns; the name request finishes
// in the background. Poll Operation for the outcome.
func (c *Controller) SendAsync(chatID, text string) (Operation, error) {
	return c.launch(chatID, KindSend, text)
}

func (c *Controller) SuggestMoreAsync(chatID string) (Operation, error) {
	return c.launch(chatID, KindSuggestMore, "")
}

func (c *Controller) launch(chatID string, kind Kind, text string) (Operation, error) {
	ctx := context.Background()
	op, err := c.begin(ctx, chatID, kind, text)
	if err != nil {
		return Operation{}, err
	}

	c.mu.Lock()
	snapshot := *op
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.complete(ctx, op)
	}()
	return snapshot, nil
}

func (c *Controller) Operation(id string) (Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.ops[id]
	if !ok {
		return Operation{}, ErrOperationNotFound
	}
	return *op, nil
}

// Wait blocks until every background operation has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) begin(ctx context.Context, chatID string, kind Kind, text string) (*Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.state.Find(chatID)
	if ch == nil {
		return nil, ErrChatNotFound
	}

	now := c.now()
	var content, prompt string
	switch kind {
	case KindSend:
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, ErrEmptyPrompt
		}
		if utf8.RuneCountInString(text) > MaxPromptLength {
			return nil, ErrPromptTooLong
		}
		content, prompt = text, text
		if ch.IsEmpty() {
			ch.Title = chat.GenerateChatTitle(text)
		}
	case KindSuggestMore:
		last, ok := ch.LastPrompt()
		if !ok || c.inflight[chatID] > 0 || !ch.CanSuggestMore() {
			return nil, ErrSuggestMoreUnavailable
		}
		content = chat.SuggestMoreLabel
		prompt = SuggestMoreContext(last, ch.LastAssistantNames())
	}

	userMsg := chat.NewMessage(chat.RoleUser, content, nil, now)
	ch.Append(userMsg, now)

	op := &Operation{
		ID:          common.MustULID(now),
		ChatID:      chatID,
		Kind:        kind,
		Status:      StatusRunning,
		Prompt:      prompt,
		UserMessage: userMsg,
		StartedAt:   now.UnixMilli(),
	}
	c.inflight[chatID]++
	c.trackLocked(op)
	c.persistLocked(ctx)
	return op, nil
}

// complete runs the name request and commits its outcome, unless the chat
// was deleted meanwhile; then the outcome goes to the dead-letter sink.
func (c *Controller) complete(ctx context.Context, op *Operation) *Result {
	names, genErr := c.names.GenerateNames(ctx, op.Prompt)

	c.mu.Lock()
	if n := c.inflight[op.ChatID] - 1; n > 0 {
		c.inflight[op.ChatID] = n
	} else {
		delete(c.inflight, op.ChatID)
	}

	now := c.now()
	var reply chat.Message
	if genErr != nil {
		c.log.Error().Err(genErr).Str("chat_id", op.ChatID).Str("operation_id", op.ID).Msg("name request failed")
		reply = chat.NewMessage(chat.RoleAssistant, ReplyFailure, nil, now)
		op.Banner = bannerFor(op.Kind)
		op.Error = genErr.Error()
	} else {
		reply = chat.NewMessage(chat.RoleAssistant, replyFor(op.Kind, len(names) > 0), names, now)
	}
	op.FinishedAt = now.UnixMilli()

	ch := c.state.Find(op.ChatID)
	if ch == nil {
		op.Status = StatusDiscarded
		res := &Result{Operation: *op}
		c.mu.Unlock()

		letter := deadletter.Letter{
			OperationID: op.ID,
			ChatID:      op.ChatID,
			Kind:        string(op.Kind),
			Prompt:      op.Prompt,
			Names:       names,
			Error:       op.Error,
			DiscardedAt: now,
		}
		if err := c.dead.Record(context.WithoutCancel(ctx), letter); err != nil {
			c.log.Error().Err(err).Str("operation_id", op.ID).Msg("dead letter not recorded")
		}
		return res
	}
	defer c.mu.Unlock()

	ch.Append(reply, now)
	op.AssistantMessage = &reply
	if genErr != nil {
		op.Status = StatusFailed
	} else {
		op.Status = StatusSucceeded
	}
	c.persistLocked(context.WithoutCancel(ctx))
	return &Result{Operation: *op, Chat: ch.Clone()}
}

// trackLocked remembers op for Operation lookups, forgetting the oldest
// finished ones past the cap.
func (c *Controller) trackLocked(op *Operation) {
	c.ops[op.ID] = op
	c.opOrder = append(c.opOrder, op.ID)
	if len(c.opOrder) <= maxTrackedOperations {
		return
	}
	kept := c.opOrder[:0]
	excess := len(c.opOrder) - maxTrackedOperations
	for _, id := range c.opOrder {
		if excess > 0 && c.ops[id].Done() {
			delete(c.ops, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	c.opOrder = kept
}
