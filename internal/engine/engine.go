// Package engine implements the assistant that turns user input into committed records.
//
// One request runs at a time: input is sent to the extraction gateway together with a
// pruned snapshot of stored data, clarifying questions are tracked by the clarification
// coordinator, and extracted records go through duplicate detection and the merge
// resolver before the state is persisted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/scribe/internal/clarify"
	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/ident"
	"github.com/Veraticus/scribe/internal/llm"
	"github.com/Veraticus/scribe/internal/merge"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/Veraticus/scribe/internal/prune"
	"github.com/Veraticus/scribe/internal/state"
)

// Status describes how a request ended.
type Status int

// Request outcomes.
const (
	StatusFailed Status = iota
	StatusClarifying
	StatusAnswered
	StatusCommitted
	StatusConflict
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusClarifying:
		return "clarifying"
	case StatusAnswered:
		return "answered"
	case StatusCommitted:
		return "committed"
	case StatusConflict:
		return "conflict"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of one request.
type Outcome struct {
	// History is the committed history item, if the request committed data.
	History *model.HistoryItem
	// Conflict is the parked round when Status is StatusConflict.
	Conflict *merge.ConflictSession
	// Reply is the model message appended to the chat, if any.
	Reply  *model.ChatMessage
	Status Status
}

// Config holds configuration options for the assistant.
type Config struct {
	Now          func() time.Time
	Limits       prune.Limits
	HistoryTurns int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Now:          time.Now,
		Limits:       prune.DefaultLimits(),
		HistoryTurns: 20,
	}
}

// Assistant orchestrates extraction, clarification and merging.
type Assistant struct {
	store       *state.Store
	gateway     llm.Gateway
	persister   Persister
	ids         ident.Generator
	resolver    *merge.Resolver
	coordinator *clarify.Coordinator
	config      Config
	mu          sync.Mutex
	inFlight    atomic.Bool
}

// New creates an assistant with the default configuration.
func New(store *state.Store, gateway llm.Gateway, persister Persister, ids ident.Generator) *Assistant {
	return NewWithConfig(store, gateway, persister, ids, DefaultConfig())
}

// NewWithConfig creates an assistant with custom configuration.
func NewWithConfig(store *state.Store, gateway llm.Gateway, persister Persister, ids ident.Generator, config Config) *Assistant {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Assistant{
		store:       store,
		gateway:     gateway,
		persister:   persister,
		ids:         ids,
		resolver:    merge.NewResolver(store, ids, config.Now),
		coordinator: clarify.NewCoordinator(),
		config:      config,
	}
}

// Store exposes the state for read-only views.
func (a *Assistant) Store() *state.Store {
	return a.store
}

// Busy reports whether new input would be refused: a request is in flight or a
// conflict is waiting for the user.
func (a *Assistant) Busy() bool {
	return a.inFlight.Load() || a.resolver.Busy()
}

// PendingConflict returns the conflict waiting for the user, if any.
func (a *Assistant) PendingConflict() (merge.ConflictSession, bool) {
	return a.resolver.Pending()
}

// PendingClarification returns the input the model asked about, if any.
func (a *Assistant) PendingClarification() (model.Input, bool) {
	return a.coordinator.Original()
}

// Send processes one user message.
func (a *Assistant) Send(ctx context.Context, input model.Input) (Outcome, error) {
	if input.IsEmpty() {
		return Outcome{}, common.ErrEmptyInput
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resolver.Busy() {
		return Outcome{}, common.ErrConflictPending
	}

	a.inFlight.Store(true)
	defer a.inFlight.Store(false)

	session := a.store.EnsureSession()
	turns := historyTurns(session.Messages, a.config.HistoryTurns)

	if _, err := a.store.AppendMessage(model.ChatMessage{
		Role:  model.RoleUser,
		Text:  input.Text,
		Image: input.Image,
	}); err != nil {
		return Outcome{}, fmt.Errorf("failed to record user message: %w", err)
	}

	now := a.config.Now()
	req := model.ExtractionRequest{
		Today:    model.FormatDate(now),
		Input:    input,
		History:  turns,
		Snapshot: prune.Snapshot(a.store.Collections(), now, a.config.Limits),
	}
	if original, pending := a.coordinator.Original(); pending {
		req.Original = &original
	}

	result, err := a.gateway.Extract(ctx, req)
	if err != nil {
		return a.fail(ctx, err)
	}

	decision := a.coordinator.Observe(result, input)
	if decision.Ask {
		reply := a.reply(model.ChatMessage{
			Text:                 orDefault(result.Answer, "Could you tell me a bit more?"),
			ClarificationOptions: result.ClarificationOptions,
		})
		a.persist(ctx)
		return Outcome{Status: StatusClarifying, Reply: reply}, nil
	}

	if result.Data.IsEmpty() {
		reply := a.reply(model.ChatMessage{Text: orDefault(result.Answer, "Nothing to save there.")})
		a.persist(ctx)
		return Outcome{Status: StatusAnswered, Reply: reply}, nil
	}

	data := a.prepare(result.Data, decision.Attribution, now)
	return a.offer(ctx, merge.Round{Input: decision.Attribution, Data: data}, result.Answer)
}

// Ingest merges records that were extracted without the gateway, such as a bank statement.
func (a *Assistant) Ingest(ctx context.Context, input model.Input, data model.Extraction) (Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resolver.Busy() {
		return Outcome{}, common.ErrConflictPending
	}
	if data.IsEmpty() {
		return Outcome{Status: StatusAnswered}, nil
	}

	prepared := a.prepare(data, input, a.config.Now())
	offer, err := a.resolver.Offer(ctx, merge.Round{Input: input, Data: prepared})
	if err != nil {
		return Outcome{}, err
	}
	if offer.Conflict != nil {
		return Outcome{Status: StatusConflict, Conflict: offer.Conflict}, nil
	}
	a.persist(ctx)
	return Outcome{Status: StatusCommitted, History: offer.History}, nil
}

// Resolve applies the user's answer to the outstanding conflict.
func (a *Assistant) Resolve(ctx context.Context, res merge.Resolution) (Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	history, err := a.resolver.Resolve(ctx, res)
	if err != nil {
		return Outcome{}, err
	}

	var text string
	status := StatusCommitted
	switch res {
	case merge.Replace:
		text = "Replaced the existing records with the new ones."
	case merge.IgnoreAndAppend:
		text = "Kept the existing records and added the new ones as well."
	case merge.Cancel:
		text = "Cancelled. Nothing was saved."
		status = StatusCancelled
	}

	var reply *model.ChatMessage
	if _, ok := a.store.ActiveSession(); ok {
		reply = a.reply(model.ChatMessage{Text: text})
	}
	a.persist(ctx)
	return Outcome{Status: status, History: history, Reply: reply}, nil
}

// NewSession starts a fresh conversation. Any pending clarification is dropped.
func (a *Assistant) NewSession(ctx context.Context) model.ChatSession {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.coordinator.Reset()
	session := a.store.NewSession()
	a.persist(ctx)
	return session
}

// SwitchSession activates another conversation. Any pending clarification is dropped.
func (a *Assistant) SwitchSession(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.SwitchSession(id); err != nil {
		return err
	}
	a.coordinator.Reset()
	a.persist(ctx)
	return nil
}

func (a *Assistant) offer(ctx context.Context, round merge.Round, answer string) (Outcome, error) {
	offer, err := a.resolver.Offer(ctx, round)
	if err != nil {
		return Outcome{}, err
	}

	if offer.Conflict != nil {
		text := fmt.Sprintf("%d of these look like records you already have. Replace them, cancel, or add them anyway?",
			offer.Conflict.Report.Count())
		if answer != "" {
			text = answer + "\n\n" + text
		}
		reply := a.reply(model.ChatMessage{Text: text})
		a.persist(ctx)
		return Outcome{Status: StatusConflict, Conflict: offer.Conflict, Reply: reply}, nil
	}

	reply := a.reply(model.ChatMessage{Text: orDefault(answer, "Saved.")})
	a.persist(ctx)
	return Outcome{Status: StatusCommitted, History: offer.History, Reply: reply}, nil
}

// fail clears both pending slots so a failed round cannot be resolved by the next input.
func (a *Assistant) fail(ctx context.Context, err error) (Outcome, error) {
	a.resolver.Reset()
	a.coordinator.Reset()

	common.LogError(err, "Extraction failed", nil)

	reply := a.reply(model.ChatMessage{
		Text:    "Sorry, I couldn't process that. Please try again.",
		IsError: true,
	})
	a.persist(ctx)

	if errors.Is(err, context.Canceled) {
		return Outcome{Status: StatusFailed, Reply: reply}, err
	}
	return Outcome{Status: StatusFailed, Reply: reply}, common.NewUserError("The assistant could not process your message", err)
}

// prepare stamps identifiers on every record and fills defaults that depend on the round.
func (a *Assistant) prepare(data model.Extraction, attribution model.Input, now time.Time) model.Extraction {
	out := data.Normalize().Clone()
	today := model.FormatDate(now)

	for i := range out.Contacts {
		out.Contacts[i].ID = a.ids.NewID()
	}
	for i := range out.Schedule {
		out.Schedule[i].ID = a.ids.NewID()
	}
	for i := range out.Expenses {
		out.Expenses[i].ID = a.ids.NewID()
		if out.Expenses[i].ReceiptImage == "" {
			out.Expenses[i].ReceiptImage = attribution.Image
		}
		if out.Expenses[i].Date == "" {
			out.Expenses[i].Date = today
		}
	}
	for i := range out.Diary {
		out.Diary[i].ID = a.ids.NewID()
		if out.Diary[i].Date == "" {
			out.Diary[i].Date = today
		}
	}
	return out
}

func (a *Assistant) reply(msg model.ChatMessage) *model.ChatMessage {
	msg.Role = model.RoleModel
	stored, err := a.store.AppendMessage(msg)
	if err != nil {
		slog.Warn("Failed to record assistant reply", "error", err)
		return nil
	}
	return &stored
}

func (a *Assistant) persist(ctx context.Context) {
	if a.persister == nil {
		return
	}
	if err := a.persister.SaveState(ctx, a.store.Snapshot()); err != nil {
		common.LogError(err, "Failed to persist state", nil)
	}
}

// historyTurns converts the most recent chat messages into gateway history, skipping error replies.
func historyTurns(messages []model.ChatMessage, limit int) []model.HistoryTurn {
	turns := make([]model.HistoryTurn, 0, len(messages))
	for _, m := range messages {
		if m.IsError || m.Text == "" {
			continue
		}
		turns = append(turns, model.HistoryTurn{Role: m.Role, Text: m.Text})
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
