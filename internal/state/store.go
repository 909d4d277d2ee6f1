// Package state owns the authoritative application state.
//
// Collections only change through Commit (called by the merge resolver) or through
// the explicit CRUD methods that back user edits. Every read returns a copy.
package state

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/ident"
	"github.com/Veraticus/scribe/internal/model"
)

// DefaultSessionTitle names chat sessions until their first user message arrives.
const DefaultSessionTitle = "New chat"

const maxTitleLength = 40

// CommitPlan describes one merge: records to drop by identifier, records to add,
// and the history item to prepend.
type CommitPlan struct {
	History        *model.HistoryItem
	RemoveContacts []string
	RemoveSchedule []string
	RemoveExpenses []string
	Add            model.Extraction
}

// Store holds the application state behind a read/write lock.
type Store struct {
	ids   ident.Generator
	now   func() time.Time
	state model.AppState
	mu    sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store seeded with initial.
func NewStore(ids ident.Generator, initial model.AppState, opts ...Option) *Store {
	s := &Store{
		ids:   ids,
		now:   time.Now,
		state: cloneState(initial.Normalize()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the full state.
func (s *Store) Snapshot() model.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Collections returns copies of the four record collections.
func (s *Store) Collections() model.Collections {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Collections{
		Contacts: slices.Clone(s.state.Contacts),
		Schedule: slices.Clone(s.state.Schedule),
		Expenses: slices.Clone(s.state.Expenses),
		Diary:    slices.Clone(s.state.Diary),
	}
}

// History returns the history log, newest first.
func (s *Store) History() []model.HistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(model.AppState{History: s.state.History}).History
}

// Replace swaps the whole state, as done after loading or importing.
func (s *Store) Replace(next model.AppState) {
	next = cloneState(next.Normalize())
	SortSchedule(next.Schedule)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
}

// Commit applies a merge plan atomically: removals, additions, schedule re-sort and
// history prepend.
func (s *Store) Commit(plan CommitPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	st.Contacts = append(removeIDs(st.Contacts, plan.RemoveContacts), plan.Add.Contacts...)
	st.Schedule = append(removeIDs(st.Schedule, plan.RemoveSchedule), plan.Add.Schedule...)
	st.Expenses = append(removeIDs(st.Expenses, plan.RemoveExpenses), plan.Add.Expenses...)
	st.Diary = append(st.Diary, plan.Add.Diary...)
	SortSchedule(st.Schedule)

	if plan.History != nil {
		item := *plan.History
		item.Output = item.Output.Clone()
		st.History = append([]model.HistoryItem{item}, st.History...)
	}
}

// SortSchedule orders items by date, then time. Items without a time come first on their day.
func SortSchedule(items []model.ScheduleItem) {
	slices.SortStableFunc(items, model.CompareSchedule)
}

// AddContact stores a contact entered by hand and returns it with its identifier.
func (s *Store) AddContact(c model.Contact) (model.Contact, error) {
	if strings.TrimSpace(c.Name) == "" {
		return model.Contact{}, fmt.Errorf("%w: contact name is required", common.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.ids.NewID()
	s.state.Contacts = append(s.state.Contacts, c)
	return c, nil
}

// UpdateContact overwrites the stored contact with the same identifier.
func (s *Store) UpdateContact(c model.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replaceByID(s.state.Contacts, c, "contact")
}

// DeleteContact removes a contact.
func (s *Store) DeleteContact(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.state.Contacts, err = deleteByID(s.state.Contacts, id, "contact")
	return err
}

// UpdateScheduleItem overwrites a schedule item and keeps the schedule sorted.
func (s *Store) UpdateScheduleItem(item model.ScheduleItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := replaceByID(s.state.Schedule, item, "schedule item"); err != nil {
		return err
	}
	SortSchedule(s.state.Schedule)
	return nil
}

// DeleteScheduleItem removes a schedule item.
func (s *Store) DeleteScheduleItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.state.Schedule, err = deleteByID(s.state.Schedule, id, "schedule item")
	return err
}

// UpdateExpense overwrites a ledger line.
func (s *Store) UpdateExpense(e model.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replaceByID(s.state.Expenses, e, "expense")
}

// DeleteExpense removes a ledger line.
func (s *Store) DeleteExpense(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.state.Expenses, err = deleteByID(s.state.Expenses, id, "expense")
	return err
}

// UpdateDiaryEntry overwrites a diary entry.
func (s *Store) UpdateDiaryEntry(d model.DiaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replaceByID(s.state.Diary, d, "diary entry")
}

// DeleteDiaryEntry removes a diary entry.
func (s *Store) DeleteDiaryEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.state.Diary, err = deleteByID(s.state.Diary, id, "diary entry")
	return err
}

// DeleteHistory removes a history item. The records it produced stay committed.
func (s *Store) DeleteHistory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.state.History, func(h model.HistoryItem) bool { return h.ID == id })
	if idx < 0 {
		return fmt.Errorf("history item %s: %w", id, common.ErrNotFound)
	}
	s.state.History = slices.Delete(s.state.History, idx, idx+1)
	return nil
}

type identified interface {
	RecordID() string
}

func removeIDs[T identified](items []T, ids []string) []T {
	if len(ids) == 0 {
		return items
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := drop[item.RecordID()]; !ok {
			kept = append(kept, item)
		}
	}
	return kept
}

func replaceByID[T identified](items []T, next T, kind string) error {
	for i := range items {
		if items[i].RecordID() == next.RecordID() {
			items[i] = next
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", kind, next.RecordID(), common.ErrNotFound)
}

func deleteByID[T identified](items []T, id, kind string) ([]T, error) {
	idx := slices.IndexFunc(items, func(item T) bool { return item.RecordID() == id })
	if idx < 0 {
		return items, fmt.Errorf("%s %s: %w", kind, id, common.ErrNotFound)
	}
	return slices.Delete(items, idx, idx+1), nil
}

func cloneState(s model.AppState) model.AppState {
	out := s
	out.Contacts = slices.Clone(s.Contacts)
	out.Schedule = slices.Clone(s.Schedule)
	out.Expenses = slices.Clone(s.Expenses)
	out.Diary = slices.Clone(s.Diary)

	if s.History != nil {
		out.History = make([]model.HistoryItem, len(s.History))
		for i, h := range s.History {
			h.Output = h.Output.Clone()
			out.History[i] = h
		}
	}

	if s.ChatSessions != nil {
		out.ChatSessions = make([]model.ChatSession, len(s.ChatSessions))
		for i, sess := range s.ChatSessions {
			out.ChatSessions[i] = cloneSession(sess)
		}
	}
	return out
}

func cloneSession(sess model.ChatSession) model.ChatSession {
	sess.Messages = slices.Clone(sess.Messages)
	for i := range sess.Messages {
		sess.Messages[i].ClarificationOptions = slices.Clone(sess.Messages[i].ClarificationOptions)
	}
	return sess
}
