package testutil

import (
	"time"

	"github.com/Veraticus/scribe/internal/ident"
	"github.com/Veraticus/scribe/internal/model"
)

// Now is the fixed clock used by fixtures.
var Now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time {
	return Now
}

// StateBuilder assembles an AppState with predictable ids.
//
// Example:
//
//	st := testutil.NewState().
//		WithContact("Alice", "555-1234", "friends").
//		WithExpense("Coffee", 4.5, "2024-03-09", model.TypeExpense).
//		Build()
type StateBuilder struct {
	ids   *ident.Sequence
	state model.AppState
}

// NewState starts an empty state.
func NewState() *StateBuilder {
	return &StateBuilder{ids: ident.NewSequence("fx")}
}

// WithContact adds a contact.
func (b *StateBuilder) WithContact(name, phone, group string) *StateBuilder {
	b.state.Contacts = append(b.state.Contacts, model.Contact{
		ID: b.ids.NewID(), Name: name, Phone: phone, Group: group,
	})
	return b
}

// WithScheduleItem adds a schedule item. An empty clock time means all day.
func (b *StateBuilder) WithScheduleItem(title, date, clock string) *StateBuilder {
	b.state.Schedule = append(b.state.Schedule, model.ScheduleItem{
		ID: b.ids.NewID(), Title: title, Date: date, Time: clock,
	})
	return b
}

// WithExpense adds a ledger entry.
func (b *StateBuilder) WithExpense(item string, amount float64, date string, typ model.ExpenseType) *StateBuilder {
	b.state.Expenses = append(b.state.Expenses, model.Expense{
		ID: b.ids.NewID(), Item: item, Amount: amount, Date: date, Type: typ,
	})
	return b
}

// WithDiary adds a diary entry.
func (b *StateBuilder) WithDiary(date, content string) *StateBuilder {
	b.state.Diary = append(b.state.Diary, model.DiaryEntry{
		ID: b.ids.NewID(), Date: date, Content: content,
	})
	return b
}

// WithSession adds a chat session and makes it active.
func (b *StateBuilder) WithSession(title string, messages ...model.ChatMessage) *StateBuilder {
	session := model.ChatSession{ID: b.ids.NewID(), Title: title, CreatedAt: Now, Messages: messages}
	b.state.ChatSessions = append(b.state.ChatSessions, session)
	b.state.ActiveChatSessionID = session.ID
	return b
}

// Build returns the assembled state.
func (b *StateBuilder) Build() model.AppState {
	return b.state
}
