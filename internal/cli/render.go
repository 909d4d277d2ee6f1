package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/scribe/internal/ledger"
	"github.com/Veraticus/scribe/internal/merge"
	"github.com/Veraticus/scribe/internal/model"
)

const previewLength = 60

// RenderContacts lists contacts grouped by group, both sorted by name.
func RenderContacts(contacts []model.Contact) string {
	if len(contacts) == 0 {
		return SubtitleStyle.Render("No contacts yet.")
	}

	groups := make(map[string][]model.Contact)
	for _, c := range contacts {
		g := c.GroupOrDefault()
		groups[g] = append(groups[g], c)
	}
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString(FormatTitle(ContactIcon, "Contacts") + "\n")
	for _, g := range names {
		members := groups[g]
		slices.SortFunc(members, func(a, b model.Contact) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})

		fmt.Fprintf(&b, "%s (%d)\n", BoldStyle.Render(g), len(members))
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		for _, c := range members {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", c.Name, c.Phone, c.Email, SubtleStyle.Render(c.ID))
		}
		_ = tw.Flush()
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderCalendar draws a month grid, marking days with schedule items, followed by the
// month's items.
func RenderCalendar(items []model.ScheduleItem, month time.Time) string {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	prefix := first.Format("2006-01-")

	busy := make(map[int]bool)
	var inMonth []model.ScheduleItem
	for _, item := range items {
		if !strings.HasPrefix(item.Date, prefix) {
			continue
		}
		if d := item.ParsedDate(); !d.IsZero() {
			busy[d.Day()] = true
			inMonth = append(inMonth, item)
		}
	}

	var b strings.Builder
	b.WriteString(FormatTitle(CalendarIcon, first.Format("January 2006")) + "\n")
	b.WriteString(SubtleStyle.Render(" Su  Mo  Tu  We  Th  Fr  Sa") + "\n")

	b.WriteString(strings.Repeat("    ", int(first.Weekday())))
	for day := 1; day <= daysInMonth; day++ {
		cell := fmt.Sprintf("%3d", day)
		if busy[day] {
			cell = BoldStyle.Render(fmt.Sprintf("%2d*", day))
		}
		b.WriteString(cell + " ")
		if (int(first.Weekday())+day)%7 == 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if len(inMonth) > 0 {
		b.WriteString("\n" + RenderSchedule(inMonth))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderSchedule lists schedule items in the order given.
func RenderSchedule(items []model.ScheduleItem) string {
	if len(items) == 0 {
		return SubtitleStyle.Render("Nothing scheduled.")
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, item := range items {
		when := item.Date
		if item.Time != "" {
			when += " " + item.Time
		}
		title := item.Title
		if item.Location != "" {
			title += " @ " + item.Location
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", when, title, SubtleStyle.Render(item.ID))
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// RenderLedger lists the records newest first with totals and a category breakdown.
func RenderLedger(expenses []model.Expense) string {
	if len(expenses) == 0 {
		return SubtitleStyle.Render("No ledger entries.")
	}

	var b strings.Builder
	b.WriteString(FormatTitle(LedgerIcon, "Ledger") + "\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tItem\tCategory\tAmount\t\t")
	for _, e := range ledger.Sorted(expenses) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", e.Date, e.Item, ledger.CategoryOf(e), FormatAmount(e), SubtleStyle.Render(e.ID))
	}
	_ = tw.Flush()

	totals := ledger.Summarize(expenses)
	fmt.Fprintf(&b, "\nIncome %s   Expenses %s   Net %s\n",
		IncomeStyle.Render(fmt.Sprintf("%.2f", totals.Income)),
		ErrorStyle.Render(fmt.Sprintf("%.2f", totals.Expenses)),
		BoldStyle.Render(fmt.Sprintf("%.2f", totals.Net())))

	b.WriteString("\n" + BoldStyle.Render("By category") + "\n")
	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, c := range ledger.ByCategory(expenses) {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%.2f\n", c.Category, c.Type, c.Count, c.Amount)
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// RenderMonthlyFlow shows income, expenses and running balance per month.
func RenderMonthlyFlow(expenses []model.Expense) string {
	months := ledger.Monthly(expenses)
	if len(months) == 0 {
		return SubtitleStyle.Render("No dated ledger entries.")
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Month\tIncome\tExpenses\tNet\tBalance")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\n", ledger.MonthLabel(m.Month), m.Income, m.Expenses, m.Net(), m.RunningBalance)
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// FormatAmount renders an amount signed by type: income positive, expense negative.
func FormatAmount(e model.Expense) string {
	if e.Type == model.TypeIncome {
		return IncomeStyle.Render(fmt.Sprintf("+%.2f", e.Amount))
	}
	return fmt.Sprintf("-%.2f", e.Amount)
}

// RenderDiary lists entries newest day first.
func RenderDiary(entries []model.DiaryEntry) string {
	if len(entries) == 0 {
		return SubtitleStyle.Render("The diary is empty.")
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b model.DiaryEntry) int {
		return cmp.Compare(b.Date, a.Date)
	})

	var b strings.Builder
	b.WriteString(FormatTitle(DiaryIcon, "Diary") + "\n")
	for _, d := range sorted {
		fmt.Fprintf(&b, "%s  %s  %s\n", BoldStyle.Render(d.Date), SubtleStyle.Render("["+d.GroupOrDefault()+"]"), SubtleStyle.Render(d.ID))
		fmt.Fprintf(&b, "  %s\n", d.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderHistory lists committed rounds, newest first as stored.
func RenderHistory(items []model.HistoryItem) string {
	if len(items) == 0 {
		return SubtitleStyle.Render("No history yet.")
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, h := range items {
		input := preview(h.Input.Text)
		if h.Input.HasImage() {
			input = strings.TrimSpace("[image] " + input)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			h.Timestamp.Local().Format("2006-01-02 15:04"),
			input,
			SummarizeExtraction(h.Output),
			SubtleStyle.Render(h.ID))
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// RenderSessions lists chat sessions and marks the active one.
func RenderSessions(sessions []model.ChatSession, activeID string) string {
	if len(sessions) == 0 {
		return SubtitleStyle.Render("No chat sessions.")
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%d messages\t%s\n",
			marker, s.Title, s.CreatedAt.Local().Format("2006-01-02 15:04"), len(s.Messages), SubtleStyle.Render(s.ID))
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// SummarizeExtraction renders per-category counts such as "1 contact, 2 expenses".
func SummarizeExtraction(e model.Extraction) string {
	var parts []string
	add := func(n int, singular, plural string) {
		switch {
		case n == 1:
			parts = append(parts, "1 "+singular)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %s", n, plural))
		}
	}
	add(len(e.Contacts), "contact", "contacts")
	add(len(e.Schedule), "event", "events")
	add(len(e.Expenses), "ledger entry", "ledger entries")
	add(len(e.Diary), "diary entry", "diary entries")
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}

// RenderConflict describes each colliding record of a parked round.
func RenderConflict(session merge.ConflictSession) string {
	var lines []string
	for _, c := range session.Report.Contacts {
		lines = append(lines, fmt.Sprintf("%s %s (%s) matches a saved contact", ContactIcon, c.New.Name, c.New.Phone))
	}
	for _, c := range session.Report.Schedule {
		lines = append(lines, fmt.Sprintf("%s %s on %s is already scheduled", CalendarIcon, c.New.Title, c.New.Date))
	}
	for _, c := range session.Report.Expenses {
		lines = append(lines, fmt.Sprintf("%s %s %s on %s is already in the ledger", LedgerIcon, c.New.Item, FormatAmount(c.New), c.New.Date))
	}

	other := session.Data.Count() - session.Report.Count()
	if other > 0 {
		lines = append(lines, SubtleStyle.Render(fmt.Sprintf("%d other new record(s) will be saved unless you cancel.", other)))
	}
	return RenderBox("Possible duplicates", strings.Join(lines, "\n"))
}

// RenderMessage renders one chat message, numbering clarification options.
func RenderMessage(msg model.ChatMessage) string {
	var b strings.Builder
	switch {
	case msg.Role == model.RoleUser:
		b.WriteString(UserStyle.Render("you") + "  ")
	case msg.IsError:
		b.WriteString(ErrorStyle.Render("scribe") + "  ")
	default:
		b.WriteString(ModelStyle.Render("scribe") + "  ")
	}

	text := msg.Text
	if msg.IsError {
		text = ErrorStyle.Render(text)
	}
	if msg.Image != "" {
		text = strings.TrimSpace(SubtleStyle.Render("[image]") + " " + text)
	}
	b.WriteString(text)

	for i, opt := range msg.ClarificationOptions {
		fmt.Fprintf(&b, "\n    %d) %s", i+1, opt)
	}
	return b.String()
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > previewLength {
		return string(r[:previewLength-1]) + "…"
	}
	return text
}
