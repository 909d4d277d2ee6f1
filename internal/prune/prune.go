// Package prune bounds the snapshot of stored data sent along with each extraction request.
package prune

import (
	"cmp"
	"slices"
	"time"

	"github.com/Veraticus/scribe/internal/model"
)

// Limits caps each category of the snapshot.
type Limits struct {
	Contacts       int
	PastSchedule   int
	FutureSchedule int
	Expenses       int
	Diary          int
}

// DefaultLimits returns the standard caps.
func DefaultLimits() Limits {
	return Limits{
		Contacts:       100,
		PastSchedule:   10,
		FutureSchedule: 10,
		Expenses:       30,
		Diary:          10,
	}
}

// Snapshot builds the bounded context view. Inputs are never modified.
//
// Schedule items dated before today count as past; today and later count as future.
// The nearest entries on each side are kept and returned in chronological order.
// Expenses and diary entries are returned most recent first.
func Snapshot(c model.Collections, today time.Time, limits Limits) model.ContextSnapshot {
	return model.ContextSnapshot{
		Contacts: contacts(c.Contacts, limits.Contacts),
		Schedule: schedule(c.Schedule, model.FormatDate(today), limits.PastSchedule, limits.FutureSchedule),
		Expenses: mostRecent(c.Expenses, limits.Expenses, func(e model.Expense) string { return e.Date }),
		Diary:    mostRecent(c.Diary, limits.Diary, func(d model.DiaryEntry) string { return d.Date }),
	}
}

func contacts(all []model.Contact, limit int) []model.ContactSummary {
	n := min(len(all), max(limit, 0))
	out := make([]model.ContactSummary, 0, n)
	for _, c := range all[:n] {
		out = append(out, model.ContactSummary{Name: c.Name, Group: c.GroupOrDefault()})
	}
	return out
}

func schedule(all []model.ScheduleItem, today string, pastLimit, futureLimit int) []model.ScheduleItem {
	sorted := slices.Clone(all)
	slices.SortStableFunc(sorted, model.CompareSchedule)

	split, _ := slices.BinarySearchFunc(sorted, today, func(item model.ScheduleItem, day string) int {
		return cmp.Compare(item.Date, day)
	})
	past, future := sorted[:split], sorted[split:]

	past = past[len(past)-min(len(past), max(pastLimit, 0)):]
	future = future[:min(len(future), max(futureLimit, 0))]

	out := make([]model.ScheduleItem, 0, len(past)+len(future))
	out = append(out, past...)
	return append(out, future...)
}

func mostRecent[T any](all []T, limit int, date func(T) string) []T {
	sorted := slices.Clone(all)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return cmp.Compare(date(b), date(a))
	})
	n := min(len(sorted), max(limit, 0))
	return sorted[:n:n]
}
