// Package merge decides how a round of extracted records enters committed state.
//
// The resolver is a two-state machine. In Idle, a round without collisions is committed
// at once; a round with collisions is parked as a ConflictSession and the resolver
// moves to AwaitingResolution until the user picks a Resolution.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/dedup"
	"github.com/Veraticus/scribe/internal/ident"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/Veraticus/scribe/internal/state"
)

// Committer is the state surface the resolver reads from and writes to.
type Committer interface {
	Collections() model.Collections
	Commit(plan state.CommitPlan)
}

// Round is one extraction result ready for merging. Records already carry identifiers.
type Round struct {
	Input model.Input
	Data  model.Extraction
}

// ConflictSession holds a round that collided with stored records, waiting for the user.
type ConflictSession struct {
	Report   dedup.Report
	Existing dedup.ExistingIDs
	Data     model.Extraction
	History  model.HistoryItem
}

// Phase is the resolver state: Idle or AwaitingResolution.
type Phase interface {
	isPhase()
}

// Idle means no conflict is outstanding.
type Idle struct{}

// AwaitingResolution means a conflict has been surfaced and blocks new rounds.
type AwaitingResolution struct {
	Session ConflictSession
}

func (Idle) isPhase()               {}
func (AwaitingResolution) isPhase() {}

// Resolution is the user's answer to a conflict.
type Resolution int

// Resolutions.
const (
	Replace Resolution = iota + 1
	Cancel
	IgnoreAndAppend
)

func (r Resolution) String() string {
	switch r {
	case Replace:
		return "replace"
	case Cancel:
		return "cancel"
	case IgnoreAndAppend:
		return "ignore"
	default:
		return fmt.Sprintf("resolution(%d)", int(r))
	}
}

// ParseResolution accepts a resolution name or its first letter.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "replace":
		return Replace, nil
	case "c", "cancel":
		return Cancel, nil
	case "i", "ignore", "append":
		return IgnoreAndAppend, nil
	default:
		return 0, fmt.Errorf("%w: unknown resolution %q", common.ErrInvalidInput, s)
	}
}

// OfferResult reports what happened to an offered round.
type OfferResult struct {
	// History is set when the round was committed.
	History *model.HistoryItem
	// Conflict is set when the round was parked for the user.
	Conflict *ConflictSession
}

// Resolver runs the merge state machine.
type Resolver struct {
	store Committer
	ids   ident.Generator
	now   func() time.Time
	phase Phase
	mu    sync.Mutex
}

// NewResolver creates an idle resolver.
func NewResolver(store Committer, ids ident.Generator, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		store: store,
		ids:   ids,
		now:   now,
		phase: Idle{},
	}
}

// Phase returns the current state.
func (r *Resolver) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Busy reports whether a conflict blocks new rounds.
func (r *Resolver) Busy() bool {
	_, ok := r.Pending()
	return ok
}

// Pending returns the outstanding conflict, if any.
func (r *Resolver) Pending() (ConflictSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.phase.(AwaitingResolution); ok {
		return p.Session, true
	}
	return ConflictSession{}, false
}

// Reset drops any outstanding conflict without committing it.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.phase.(AwaitingResolution); ok {
		slog.Debug("Discarding pending conflict")
	}
	r.phase = Idle{}
}

// Offer runs duplicate detection on a round and either commits it or parks it.
func (r *Resolver) Offer(ctx context.Context, round Round) (OfferResult, error) {
	if err := ctx.Err(); err != nil {
		return OfferResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.phase.(AwaitingResolution); ok {
		return OfferResult{}, common.ErrConflictPending
	}

	data := round.Data.Normalize().Clone()
	history := model.HistoryItem{
		ID:        r.ids.NewID(),
		Timestamp: r.now(),
		Input:     round.Input,
		Output:    data.Clone(),
	}

	report := dedup.Detect(data, r.store.Collections())
	if !report.HasCollisions() {
		r.store.Commit(state.CommitPlan{Add: data, History: &history})
		slog.Info("Committed extraction round",
			"contacts", len(data.Contacts),
			"schedule", len(data.Schedule),
			"expenses", len(data.Expenses),
			"diary", len(data.Diary))
		return OfferResult{History: &history}, nil
	}

	session := ConflictSession{
		Report:   report,
		Existing: report.ExistingIDs(),
		Data:     data,
		History:  history,
	}
	r.phase = AwaitingResolution{Session: session}
	slog.Info("Extraction round collides with stored records", "collisions", report.Count())
	return OfferResult{Conflict: &session}, nil
}

// Resolve applies the user's decision to the outstanding conflict and returns to Idle.
// The returned history item is nil for Cancel.
func (r *Resolver) Resolve(ctx context.Context, res Resolution) (*model.HistoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending, ok := r.phase.(AwaitingResolution)
	if !ok {
		return nil, common.ErrNoConflict
	}
	session := pending.Session

	var plan state.CommitPlan
	switch res {
	case Replace:
		add := session.Data.Clone()
		add.Diary = uniqueDiary(add.Diary)
		plan = state.CommitPlan{
			RemoveContacts: session.Existing.Contacts,
			RemoveSchedule: session.Existing.Schedule,
			RemoveExpenses: session.Existing.Expenses,
			Add:            add,
		}
	case IgnoreAndAppend:
		plan = state.CommitPlan{Add: session.Data.Clone()}
	case Cancel:
		r.phase = Idle{}
		slog.Info("Conflict cancelled", "collisions", session.Report.Count())
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown resolution %d", common.ErrInvalidInput, int(res))
	}

	history := session.History
	history.Output = plan.Add.Clone()
	plan.History = &history
	r.store.Commit(plan)
	r.phase = Idle{}

	slog.Info("Conflict resolved", "resolution", res.String(), "collisions", session.Report.Count())
	return &history, nil
}

// uniqueDiary drops entries that repeat an earlier entry of the same batch.
func uniqueDiary(entries []model.DiaryEntry) []model.DiaryEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]model.DiaryEntry, 0, len(entries))
	for _, d := range entries {
		key := d.Date + "\x00" + strings.TrimSpace(d.Content)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
