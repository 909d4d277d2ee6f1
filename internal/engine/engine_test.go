package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/ident"
	"github.com/Veraticus/scribe/internal/merge"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/Veraticus/scribe/internal/prune"
	"github.com/Veraticus/scribe/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type recordingPersister struct {
	err   error
	saved []model.AppState
	mu    sync.Mutex
}

func (p *recordingPersister) SaveState(_ context.Context, st model.AppState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, st)
	return p.err
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saved)
}

type fixture struct {
	assistant *Assistant
	gateway   *MockGateway
	persister *recordingPersister
	store     *state.Store
}

func newFixture(t *testing.T, initial model.AppState, replies ...MockReply) fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := state.NewStore(ident.NewSequence("msg"), initial, state.WithClock(clock))
	gateway := NewMockGateway(replies...)
	persister := &recordingPersister{}

	cfg := DefaultConfig()
	cfg.Now = clock
	return fixture{
		assistant: NewWithConfig(store, gateway, persister, ident.NewSequence("rec"), cfg),
		gateway:   gateway,
		persister: persister,
		store:     store,
	}
}

func TestSend_CommitsWithoutCollisions(t *testing.T) {
	f := newFixture(t, model.AppState{History: []model.HistoryItem{{ID: "old"}}},
		Data("Added your dentist appointment.", model.Extraction{
			Schedule: []model.ScheduleItem{{Title: "Dentist", Date: "2024-05-03", Time: "15:00"}},
		}))

	out, err := f.assistant.Send(context.Background(), model.Input{Text: "dentist friday 3pm"})
	require.NoError(t, err)

	assert.Equal(t, StatusCommitted, out.Status)
	require.NotNil(t, out.History)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "Added your dentist appointment.", out.Reply.Text)
	assert.False(t, f.assistant.Busy())

	snap := f.store.Snapshot()
	require.Len(t, snap.History, 2)
	assert.Equal(t, out.History.ID, snap.History[0].ID)
	assert.Equal(t, "dentist friday 3pm", snap.History[0].Input.Text)
	require.Len(t, snap.Schedule, 1)
	assert.Equal(t, "rec-1", snap.Schedule[0].ID)

	session, ok := f.store.ActiveSession()
	require.True(t, ok)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, model.RoleUser, session.Messages[0].Role)
	assert.Equal(t, model.RoleModel, session.Messages[1].Role)
	assert.Equal(t, 1, f.persister.count())
}

func TestSend_UndatedRecordsAreDatedToday(t *testing.T) {
	f := newFixture(t, model.AppState{},
		Data("Noted.", model.Extraction{
			Expenses: []model.Expense{{Item: "Lunch", Amount: 12, Type: model.TypeExpense}},
			Diary:    []model.DiaryEntry{{Content: "Long walk"}},
		}))

	out, err := f.assistant.Send(context.Background(), model.Input{Text: "lunch 12, went for a long walk"})
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, out.Status)

	snap := f.store.Snapshot()
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, "2024-05-01", snap.Expenses[0].Date)
	require.Len(t, snap.Diary, 1)
	assert.Equal(t, "2024-05-01", snap.Diary[0].Date)
}

func TestSend_RequestCarriesPrunedContext(t *testing.T) {
	var contacts []model.Contact
	for range 120 {
		contacts = append(contacts, model.Contact{ID: "c", Name: "Someone", Phone: "1"})
	}
	f := newFixture(t, model.AppState{Contacts: contacts}, Data("Hi!", model.Extraction{}))

	_, err := f.assistant.Send(context.Background(), model.Input{Text: "hello"})
	require.NoError(t, err)

	reqs := f.gateway.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "2024-05-01", reqs[0].Today)
	assert.Len(t, reqs[0].Snapshot.Contacts, prune.DefaultLimits().Contacts)
	assert.Nil(t, reqs[0].Original)
	assert.Empty(t, reqs[0].History)
}

func TestSend_AnswerWithoutDataCreatesNoHistory(t *testing.T) {
	f := newFixture(t, model.AppState{}, Data("You have nothing scheduled today.", model.Extraction{}))

	out, err := f.assistant.Send(context.Background(), model.Input{Text: "what's on today?"})
	require.NoError(t, err)

	assert.Equal(t, StatusAnswered, out.Status)
	assert.Nil(t, out.History)
	assert.Empty(t, f.store.Snapshot().History)
}

func TestSend_ConflictReplaceScenario(t *testing.T) {
	f := newFixture(t,
		model.AppState{Contacts: []model.Contact{{ID: "c1", Name: "Kim", Phone: "010-1234-5678"}}},
		Data("Saved Kim J.", model.Extraction{Contacts: []model.Contact{{Name: "Kim J.", Phone: "01012345678"}}}),
	)

	out, err := f.assistant.Send(context.Background(), model.Input{Text: "Kim J. 01012345678"})
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, out.Status)
	require.NotNil(t, out.Conflict)
	assert.Len(t, out.Conflict.Report.Contacts, 1)
	assert.True(t, f.assistant.Busy())
	assert.Empty(t, f.store.Snapshot().History)

	_, err = f.assistant.Send(context.Background(), model.Input{Text: "another"})
	require.ErrorIs(t, err, common.ErrConflictPending)
	assert.Len(t, f.gateway.Requests(), 1)

	out, err = f.assistant.Resolve(context.Background(), merge.Replace)
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, out.Status)
	assert.False(t, f.assistant.Busy())

	snap := f.store.Snapshot()
	require.Len(t, snap.Contacts, 1)
	assert.Equal(t, "Kim J.", snap.Contacts[0].Name)
	assert.Equal(t, "01012345678", snap.Contacts[0].Phone)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "Kim J. 01012345678", snap.History[0].Input.Text)
}

func TestSend_ConflictCancelScenario(t *testing.T) {
	f := newFixture(t,
		model.AppState{Schedule: []model.ScheduleItem{{ID: "s1", Title: "Team sync", Date: "2024-05-01"}}},
		Data("", model.Extraction{Schedule: []model.ScheduleItem{{Title: " team SYNC ", Date: "2024-05-01"}}}),
	)
	before := f.store.Collections()

	out, err := f.assistant.Send(context.Background(), model.Input{Text: "team sync today"})
	require.NoError(t, err)
	require.Equal(t, StatusConflict, out.Status)

	out, err = f.assistant.Resolve(context.Background(), merge.Cancel)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)
	assert.Nil(t, out.History)

	assert.Equal(t, before, f.store.Collections())
	assert.Empty(t, f.store.Snapshot().History)
}

func TestResolve_WithoutConflict(t *testing.T) {
	f := newFixture(t, model.AppState{})
	_, err := f.assistant.Resolve(context.Background(), merge.Replace)
	require.ErrorIs(t, err, common.ErrNoConflict)
}

func TestSend_ClarificationScenario(t *testing.T) {
	f := newFixture(t, model.AppState{},
		Clarify("Is that a to-do, a memo or a schedule item?", "To-do list", "Memo", "Schedule"),
		Data("Scheduled.", model.Extraction{Schedule: []model.ScheduleItem{{Title: "Finish chapter 1", Date: "2024-05-01"}}}),
	)

	out, err := f.assistant.Send(context.Background(), model.Input{Text: "finish chapter 1"})
	require.NoError(t, err)
	assert.Equal(t, StatusClarifying, out.Status)
	require.NotNil(t, out.Reply)
	assert.Equal(t, []string{"To-do list", "Memo", "Schedule"}, out.Reply.ClarificationOptions)
	assert.Empty(t, f.store.Snapshot().History)

	pending, ok := f.assistant.PendingClarification()
	require.True(t, ok)
	assert.Equal(t, "finish chapter 1", pending.Text)

	out, err = f.assistant.Send(context.Background(), model.Input{Text: "Schedule"})
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, out.Status)

	reqs := f.gateway.Requests()
	require.Len(t, reqs, 2)
	require.NotNil(t, reqs[1].Original)
	assert.Equal(t, "finish chapter 1", reqs[1].Original.Text)
	assert.Equal(t, "Schedule", reqs[1].Input.Text)

	snap := f.store.Snapshot()
	require.Len(t, snap.History, 1)
	assert.Equal(t, "finish chapter 1", snap.History[0].Input.Text)
	require.Len(t, snap.Schedule, 1)
	_, ok = f.assistant.PendingClarification()
	assert.False(t, ok)
}

func TestSend_ReceiptImageFollowsOriginalInput(t *testing.T) {
	receipt := model.EncodeDataURL([]byte("receipt"), "image/png")
	f := newFixture(t, model.AppState{},
		Clarify("Was this a business expense?", "Yes", "No"),
		Data("Saved.", model.Extraction{Expenses: []model.Expense{
			{Item: "Lunch", Date: "2024-05-01", Amount: 12000, Type: model.TypeExpense},
			{Item: "Taxi", Date: "2024-05-01", Amount: 8000, Type: model.TypeExpense, ReceiptImage: "keep"},
		}}),
	)

	_, err := f.assistant.Send(context.Background(), model.Input{Text: "log this", Image: receipt})
	require.NoError(t, err)
	_, err = f.assistant.Send(context.Background(), model.Input{Text: "No"})
	require.NoError(t, err)

	expenses := f.store.Collections().Expenses
	require.Len(t, expenses, 2)
	assert.Equal(t, receipt, expenses[0].ReceiptImage)
	assert.Equal(t, "keep", expenses[1].ReceiptImage)
	assert.Equal(t, receipt, f.store.Snapshot().History[0].Input.Image)
}

func TestSend_GatewayFailureClearsPendingState(t *testing.T) {
	f := newFixture(t, model.AppState{},
		Clarify("Which one?", "A", "B"),
		Fail(errors.New("upstream 500")),
		Data("ok", model.Extraction{Diary: []model.DiaryEntry{{Content: "fresh start"}}}),
	)

	_, err := f.assistant.Send(context.Background(), model.Input{Text: "ambiguous"})
	require.NoError(t, err)

	out, err := f.assistant.Send(context.Background(), model.Input{Text: "A"})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	require.NotNil(t, out.Reply)
	assert.True(t, out.Reply.IsError)

	_, pending := f.assistant.PendingClarification()
	assert.False(t, pending)
	assert.False(t, f.assistant.Busy())

	_, err = f.assistant.Send(context.Background(), model.Input{Text: "new thought"})
	require.NoError(t, err)
	reqs := f.gateway.Requests()
	assert.Nil(t, reqs[2].Original)

	snap := f.store.Snapshot()
	require.Len(t, snap.History, 1)
	assert.Equal(t, "new thought", snap.History[0].Input.Text)
	assert.Equal(t, "2024-05-01", snap.Diary[0].Date)

	// Error replies are not sent back to the model as history.
	for _, turn := range reqs[2].History {
		assert.NotContains(t, turn.Text, "Sorry")
	}
}

func TestNewSession_ClearsClarification(t *testing.T) {
	f := newFixture(t, model.AppState{}, Clarify("Which?"), Data("", model.Extraction{}))

	_, err := f.assistant.Send(context.Background(), model.Input{Text: "vague"})
	require.NoError(t, err)
	first, _ := f.store.ActiveSession()

	session := f.assistant.NewSession(context.Background())
	assert.NotEqual(t, first.ID, session.ID)
	_, pending := f.assistant.PendingClarification()
	assert.False(t, pending)

	_, err = f.assistant.Send(context.Background(), model.Input{Text: "hello"})
	require.NoError(t, err)
	assert.Nil(t, f.gateway.Requests()[1].Original)
	assert.Empty(t, f.gateway.Requests()[1].History)
}

func TestSwitchSession(t *testing.T) {
	f := newFixture(t, model.AppState{}, Clarify("Which?"))

	first := f.assistant.NewSession(context.Background())
	f.assistant.NewSession(context.Background())
	_, err := f.assistant.Send(context.Background(), model.Input{Text: "vague"})
	require.NoError(t, err)

	require.NoError(t, f.assistant.SwitchSession(context.Background(), first.ID))
	_, pending := f.assistant.PendingClarification()
	assert.False(t, pending)

	require.ErrorIs(t, f.assistant.SwitchSession(context.Background(), "missing"), common.ErrNotFound)
}

func TestSend_EmptyInput(t *testing.T) {
	f := newFixture(t, model.AppState{})
	_, err := f.assistant.Send(context.Background(), model.Input{Text: "   "})
	require.ErrorIs(t, err, common.ErrEmptyInput)
	assert.Empty(t, f.gateway.Requests())
}

func TestIngest(t *testing.T) {
	f := newFixture(t, model.AppState{
		Expenses: []model.Expense{{ID: "e1", Item: "Coffee", Date: "2024-05-01", Amount: 4.5, Type: model.TypeExpense}},
	})
	statement := model.Input{Text: "Imported statement.ofx"}

	out, err := f.assistant.Ingest(context.Background(), statement, model.Extraction{Expenses: []model.Expense{
		{Item: "Groceries", Date: "2024-05-02", Amount: 52.1, Type: model.TypeExpense},
	}})
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, out.Status)

	out, err = f.assistant.Ingest(context.Background(), statement, model.Extraction{Expenses: []model.Expense{
		{Item: "coffee", Date: "2024-05-01", Amount: 4.5, Type: model.TypeExpense},
	}})
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, out.Status)

	_, err = f.assistant.Resolve(context.Background(), merge.IgnoreAndAppend)
	require.NoError(t, err)
	assert.Len(t, f.store.Collections().Expenses, 3)
	assert.Len(t, f.store.Snapshot().History, 2)
}

func TestSend_PersistFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, model.AppState{}, Data("ok", model.Extraction{Diary: []model.DiaryEntry{{Date: "2024-05-01", Content: "x"}}}))
	f.persister.err = errors.New("disk full")

	out, err := f.assistant.Send(context.Background(), model.Input{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, out.Status)
}

func TestHistoryTurns(t *testing.T) {
	messages := []model.ChatMessage{
		{Role: model.RoleUser, Text: "one"},
		{Role: model.RoleModel, Text: "failed", IsError: true},
		{Role: model.RoleUser, Text: "two"},
		{Role: model.RoleModel, Text: "three"},
	}

	assert.Equal(t, []model.HistoryTurn{
		{Role: model.RoleUser, Text: "two"},
		{Role: model.RoleModel, Text: "three"},
	}, historyTurns(messages, 2))
	assert.Len(t, historyTurns(messages, 0), 3)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "conflict", StatusConflict.String())
	assert.Equal(t, "status(42)", Status(42).String())
}
