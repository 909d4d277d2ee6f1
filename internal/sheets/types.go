package sheets

import (
	"github.com/Veraticus/scribe/internal/ledger"
	"github.com/Veraticus/scribe/internal/model"
)

// Tab names in the exported spreadsheet.
const (
	LedgerTab  = "Ledger"
	SummaryTab = "Summary"
)

// Report is everything written to the spreadsheet.
type Report struct {
	Rows       []model.Expense
	Monthly    []ledger.MonthTotal
	Categories []ledger.CategoryTotal
	Totals     ledger.Totals
}

// BuildReport aggregates expenses for export. Rows are ordered newest first.
func BuildReport(expenses []model.Expense) Report {
	return Report{
		Rows:       ledger.Sorted(expenses),
		Monthly:    ledger.Monthly(expenses),
		Categories: ledger.ByCategory(expenses),
		Totals:     ledger.Summarize(expenses),
	}
}

func (r Report) ledgerValues() [][]any {
	values := make([][]any, 0, len(r.Rows)+1)
	values = append(values, []any{"Date", "Item", "Type", "Category", "Amount"})
	for _, e := range r.Rows {
		values = append(values, []any{
			e.Date,
			e.Item,
			string(e.Type),
			ledger.CategoryOf(e),
			e.Amount,
		})
	}
	return values
}

func (r Report) summaryValues() [][]any {
	values := make([][]any, 0, 8+len(r.Monthly)+len(r.Categories))
	values = append(values,
		[]any{"Summary"},
		[]any{"Total Income", r.Totals.Income},
		[]any{"Total Expenses", r.Totals.Expenses},
		[]any{"Net", r.Totals.Net()},
		[]any{},
		[]any{"Month", "Income", "Expenses", "Net", "Running Balance"},
	)
	for _, m := range r.Monthly {
		values = append(values, []any{
			ledger.MonthLabel(m.Month),
			m.Income,
			m.Expenses,
			m.Net(),
			m.RunningBalance,
		})
	}

	values = append(values,
		[]any{},
		[]any{"Category", "Type", "Count", "Amount"},
	)
	for _, c := range r.Categories {
		values = append(values, []any{c.Category, string(c.Type), c.Count, c.Amount})
	}
	return values
}
