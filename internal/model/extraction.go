package model

// Extraction is the category-partitioned set of records produced by one round.
type Extraction struct {
	Contacts []Contact      `json:"contacts"`
	Schedule []ScheduleItem `json:"schedule"`
	Expenses []Expense      `json:"expenses"`
	Diary    []DiaryEntry   `json:"diary"`
}

// Count returns the total number of records across all categories.
func (e Extraction) Count() int {
	return len(e.Contacts) + len(e.Schedule) + len(e.Expenses) + len(e.Diary)
}

// IsEmpty reports whether no category holds a record.
func (e Extraction) IsEmpty() bool {
	return e.Count() == 0
}

// Normalize replaces nil category slices with empty ones so the value serializes as lists.
func (e Extraction) Normalize() Extraction {
	if e.Contacts == nil {
		e.Contacts = []Contact{}
	}
	if e.Schedule == nil {
		e.Schedule = []ScheduleItem{}
	}
	if e.Expenses == nil {
		e.Expenses = []Expense{}
	}
	if e.Diary == nil {
		e.Diary = []DiaryEntry{}
	}
	return e
}

// Clone returns a copy that shares no slices with e.
func (e Extraction) Clone() Extraction {
	return Extraction{
		Contacts: append([]Contact{}, e.Contacts...),
		Schedule: append([]ScheduleItem{}, e.Schedule...),
		Expenses: append([]Expense{}, e.Expenses...),
		Diary:    append([]DiaryEntry{}, e.Diary...),
	}
}

// HistoryTurn is a role-tagged prior message forwarded to the extraction gateway.
type HistoryTurn struct {
	Role Role
	Text string
}

// ContactSummary is the stripped contact shape sent to the gateway as context.
type ContactSummary struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

// ContextSnapshot is the size-bounded view of existing data sent with each request.
type ContextSnapshot struct {
	Contacts []ContactSummary `json:"contacts"`
	Schedule []ScheduleItem   `json:"schedule"`
	Expenses []Expense        `json:"expenses"`
	Diary    []DiaryEntry     `json:"diary"`
}

// ExtractionRequest is everything the gateway needs for one call.
type ExtractionRequest struct {
	// Original is set when Input answers a clarifying question; it holds the input being clarified.
	Original *Input
	Today    string
	Input    Input
	History  []HistoryTurn
	Snapshot ContextSnapshot
}

// ExtractionResult is the gateway's structured answer.
type ExtractionResult struct {
	Answer               string
	ClarificationOptions []string
	Data                 Extraction
	ClarificationNeeded  bool
}

// Collections are the four committed record lists the merge engine reconciles against.
type Collections struct {
	Contacts []Contact
	Schedule []ScheduleItem
	Expenses []Expense
	Diary    []DiaryEntry
}
