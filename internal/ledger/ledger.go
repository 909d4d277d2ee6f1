// Package ledger aggregates expense and income records into totals.
package ledger

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/scribe/internal/model"
)

// UncategorizedLabel is used for records that carry no category.
const UncategorizedLabel = "Uncategorized"

// Totals holds income, spending and the difference between them.
type Totals struct {
	Income   float64
	Expenses float64
	Count    int
}

// Net returns income minus expenses.
func (t Totals) Net() float64 {
	return t.Income - t.Expenses
}

func (t *Totals) add(e model.Expense) {
	t.Count++
	if e.Type == model.TypeIncome {
		t.Income += e.Amount
		return
	}
	t.Expenses += e.Amount
}

// MonthTotal is the flow for one calendar month. Month uses the "2006-01" layout.
type MonthTotal struct {
	Month string
	Totals
	RunningBalance float64
}

// CategoryTotal is the amount recorded under one category and type.
type CategoryTotal struct {
	Category string
	Type     model.ExpenseType
	Amount   float64
	Count    int
}

// Summarize returns the totals across all records.
func Summarize(expenses []model.Expense) Totals {
	var t Totals
	for _, e := range expenses {
		t.add(e)
	}
	return t
}

// Monthly groups records by month, oldest first, with a running balance.
// Records with malformed dates are skipped.
func Monthly(expenses []model.Expense) []MonthTotal {
	byMonth := make(map[string]*MonthTotal)
	for _, e := range expenses {
		month := MonthOf(e.Date)
		if month == "" {
			continue
		}
		mt, ok := byMonth[month]
		if !ok {
			mt = &MonthTotal{Month: month}
			byMonth[month] = mt
		}
		mt.add(e)
	}

	months := make([]MonthTotal, 0, len(byMonth))
	for _, mt := range byMonth {
		months = append(months, *mt)
	}
	slices.SortFunc(months, func(a, b MonthTotal) int {
		return cmp.Compare(a.Month, b.Month)
	})

	var balance float64
	for i := range months {
		balance += months[i].Net()
		months[i].RunningBalance = balance
	}
	return months
}

// ByCategory totals records per category and type, largest amount first.
func ByCategory(expenses []model.Expense) []CategoryTotal {
	type key struct {
		category string
		typ      model.ExpenseType
	}

	totals := make(map[key]*CategoryTotal)
	for _, e := range expenses {
		k := key{category: CategoryOf(e), typ: e.Type}
		ct, ok := totals[k]
		if !ok {
			ct = &CategoryTotal{Category: k.category, Type: k.typ}
			totals[k] = ct
		}
		ct.Amount += e.Amount
		ct.Count++
	}

	result := make([]CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		result = append(result, *ct)
	}
	slices.SortFunc(result, func(a, b CategoryTotal) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return result
}

// InMonth returns the records dated in month ("2006-01").
func InMonth(expenses []model.Expense, month string) []model.Expense {
	var result []model.Expense
	for _, e := range expenses {
		if MonthOf(e.Date) == month {
			result = append(result, e)
		}
	}
	return result
}

// Sorted returns a copy of expenses ordered newest first.
func Sorted(expenses []model.Expense) []model.Expense {
	sorted := slices.Clone(expenses)
	slices.SortStableFunc(sorted, func(a, b model.Expense) int {
		return cmp.Compare(b.Date, a.Date)
	})
	return sorted
}

// MonthOf returns the "2006-01" month of a record date, or "" when the date is malformed.
func MonthOf(date string) string {
	t := model.ParseDate(date)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01")
}

// MonthLabel renders a "2006-01" month as "January 2006".
func MonthLabel(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

// CategoryOf returns the record's category or UncategorizedLabel.
func CategoryOf(e model.Expense) string {
	if c := strings.TrimSpace(e.Category); c != "" {
		return c
	}
	return UncategorizedLabel
}
