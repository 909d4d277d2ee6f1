package model

// AppState is the whole persisted dataset. Its JSON form is the export/import layout.
type AppState struct {
	ActiveChatSessionID string         `json:"activeChatSessionId"`
	History             []HistoryItem  `json:"history"`
	Contacts            []Contact      `json:"contacts"`
	Schedule            []ScheduleItem `json:"schedule"`
	Expenses            []Expense      `json:"expenses"`
	Diary               []DiaryEntry   `json:"diary"`
	ChatSessions        []ChatSession  `json:"chatSessions"`
	HasInteracted       bool           `json:"hasInteracted"`
}

// Normalize replaces nil lists with empty ones so exports always carry every key as a list.
func (s AppState) Normalize() AppState {
	if s.History == nil {
		s.History = []HistoryItem{}
	}
	if s.Contacts == nil {
		s.Contacts = []Contact{}
	}
	if s.Schedule == nil {
		s.Schedule = []ScheduleItem{}
	}
	if s.Expenses == nil {
		s.Expenses = []Expense{}
	}
	if s.Diary == nil {
		s.Diary = []DiaryEntry{}
	}
	if s.ChatSessions == nil {
		s.ChatSessions = []ChatSession{}
	}
	return s
}
