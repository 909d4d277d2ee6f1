// Package model defines the core domain models used throughout the application.
package model

import (
	"cmp"
	"strings"
	"time"
)

// GroupUncategorized is the group assigned to contacts and diary entries that arrive without one.
const GroupUncategorized = "uncategorized"

// DateLayout is the calendar date format used by every dated record.
const DateLayout = "2006-01-02"

// TimeLayout is the clock time format used by schedule items.
const TimeLayout = "15:04"

// ExpenseType distinguishes money going out from money coming in.
type ExpenseType string

// Expense type constants.
const (
	TypeExpense ExpenseType = "expense"
	TypeIncome  ExpenseType = "income"
)

// Valid reports whether t is one of the known expense types.
func (t ExpenseType) Valid() bool {
	return t == TypeExpense || t == TypeIncome
}

// Contact is a person the user knows.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Group string `json:"group,omitempty"`
}

// ScheduleItem is a calendar entry. Date uses DateLayout and Time, when set, uses TimeLayout.
type ScheduleItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time,omitempty"`
	Location string `json:"location,omitempty"`
}

// Expense is a single ledger line, either spending or income.
type Expense struct {
	ID           string      `json:"id"`
	Date         string      `json:"date"`
	Item         string      `json:"item"`
	Type         ExpenseType `json:"type"`
	Category     string      `json:"category,omitempty"`
	ReceiptImage string      `json:"receiptImage,omitempty"`
	Amount       float64     `json:"amount"`
}

// DiaryEntry is a free-text journal entry for a day.
type DiaryEntry struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Group   string `json:"group,omitempty"`
}

// RecordID returns the contact identifier.
func (c Contact) RecordID() string { return c.ID }

// RecordID returns the schedule item identifier.
func (s ScheduleItem) RecordID() string { return s.ID }

// RecordID returns the expense identifier.
func (e Expense) RecordID() string { return e.ID }

// RecordID returns the diary entry identifier.
func (d DiaryEntry) RecordID() string { return d.ID }

// GroupOrDefault returns the contact group, falling back to GroupUncategorized.
func (c Contact) GroupOrDefault() string {
	if strings.TrimSpace(c.Group) == "" {
		return GroupUncategorized
	}
	return c.Group
}

// GroupOrDefault returns the diary group, falling back to GroupUncategorized.
func (d DiaryEntry) GroupOrDefault() string {
	if strings.TrimSpace(d.Group) == "" {
		return GroupUncategorized
	}
	return d.Group
}

// ParsedDate parses the schedule date. The zero time is returned when the date is malformed.
func (s ScheduleItem) ParsedDate() time.Time {
	return ParseDate(s.Date)
}

// ParsedDate parses the expense date. The zero time is returned when the date is malformed.
func (e Expense) ParsedDate() time.Time {
	return ParseDate(e.Date)
}

// ParseDate parses a DateLayout string, returning the zero time on failure.
func ParseDate(value string) time.Time {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeTime parses a clock time such as "9:05" or "09:05" and renders it in
// TimeLayout. Values that do not parse come back empty.
func NormalizeTime(value string) string {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(value))
	if err != nil {
		return ""
	}
	return t.Format(TimeLayout)
}

// Minutes returns the time of day in minutes after midnight, or -1 when the item has
// no usable time.
func (s ScheduleItem) Minutes() int {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s.Time))
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

// CompareSchedule orders items by date, then time of day. Items without a time come
// first on their day.
func CompareSchedule(a, b ScheduleItem) int {
	if c := strings.Compare(a.Date, b.Date); c != 0 {
		return c
	}
	ma, mb := a.Minutes(), b.Minutes()
	if ma != mb {
		return cmp.Compare(ma, mb)
	}
	if ma < 0 {
		return strings.Compare(a.Time, b.Time)
	}
	return 0
}
