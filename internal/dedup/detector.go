// Package dedup decides which newly extracted records describe entities that are already stored.
package dedup

import (
	"strings"
	"unicode"

	"github.com/Veraticus/scribe/internal/model"
)

// Collision pairs a newly extracted record with the stored record it duplicates.
type Collision[T any] struct {
	New        T
	ExistingID string
}

// Report is the result of one detection pass. Diary entries never appear here.
type Report struct {
	Contacts []Collision[model.Contact]
	Schedule []Collision[model.ScheduleItem]
	Expenses []Collision[model.Expense]
}

// HasCollisions reports whether any category collided.
func (r Report) HasCollisions() bool {
	return r.Count() > 0
}

// Count returns the number of colliding new records across categories.
func (r Report) Count() int {
	return len(r.Contacts) + len(r.Schedule) + len(r.Expenses)
}

// ExistingIDs lists, per category, the stored identifiers that were collided with.
type ExistingIDs struct {
	Contacts []string
	Schedule []string
	Expenses []string
}

// ExistingIDs collects the identifiers of the stored records involved in a collision.
func (r Report) ExistingIDs() ExistingIDs {
	ids := ExistingIDs{}
	for _, c := range r.Contacts {
		ids.Contacts = append(ids.Contacts, c.ExistingID)
	}
	for _, c := range r.Schedule {
		ids.Schedule = append(ids.Schedule, c.ExistingID)
	}
	for _, c := range r.Expenses {
		ids.Expenses = append(ids.Expenses, c.ExistingID)
	}
	return ids
}

// Detect classifies every incoming record as novel or colliding. It has no side effects.
func Detect(incoming model.Extraction, existing model.Collections) Report {
	return Report{
		Contacts: detectContacts(incoming.Contacts, existing.Contacts),
		Schedule: detectSchedule(incoming.Schedule, existing.Schedule),
		Expenses: detectExpenses(incoming.Expenses, existing.Expenses),
	}
}

func detectContacts(incoming, existing []model.Contact) []Collision[model.Contact] {
	var collisions []Collision[model.Contact]
	for _, c := range incoming {
		phone := NormalizePhone(c.Phone)
		if phone == "" {
			continue
		}
		for _, e := range existing {
			if NormalizePhone(e.Phone) == phone {
				collisions = append(collisions, Collision[model.Contact]{New: c, ExistingID: e.ID})
				break
			}
		}
	}
	return collisions
}

func detectSchedule(incoming, existing []model.ScheduleItem) []Collision[model.ScheduleItem] {
	var collisions []Collision[model.ScheduleItem]
	for _, s := range incoming {
		for _, e := range existing {
			if SameScheduleItem(s, e) {
				collisions = append(collisions, Collision[model.ScheduleItem]{New: s, ExistingID: e.ID})
				break
			}
		}
	}
	return collisions
}

func detectExpenses(incoming, existing []model.Expense) []Collision[model.Expense] {
	var collisions []Collision[model.Expense]
	for _, x := range incoming {
		for _, e := range existing {
			if SameExpense(x, e) {
				collisions = append(collisions, Collision[model.Expense]{New: x, ExistingID: e.ID})
				break
			}
		}
	}
	return collisions
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}

// SameContact reports whether two contacts share a non-empty normalized phone number.
func SameContact(a, b model.Contact) bool {
	phone := NormalizePhone(a.Phone)
	return phone != "" && phone == NormalizePhone(b.Phone)
}

// SameScheduleItem reports whether two items share a date and a trimmed, case-insensitive title.
func SameScheduleItem(a, b model.ScheduleItem) bool {
	return a.Date == b.Date && foldKey(a.Title) == foldKey(b.Title)
}

// SameExpense reports whether two ledger lines match on label, date, amount and type.
func SameExpense(a, b model.Expense) bool {
	return a.Date == b.Date &&
		a.Amount == b.Amount &&
		a.Type == b.Type &&
		foldKey(a.Item) == foldKey(b.Item)
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
