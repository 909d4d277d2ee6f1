package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/ledger"
	"github.com/Veraticus/scribe/internal/state"
)

// recordCommand builds a list command with a delete subcommand for one kind of record.
func recordCommand(use, short string, list func(cmd *cobra.Command, a *app) error, remove func(store *state.Store, id string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return list(cmd, a)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one entry by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := remove(a.store, args[0]); err != nil {
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted "+args[0]))
			return nil
		},
	})
	return cmd
}

func contactsCmd() *cobra.Command {
	return recordCommand("contacts", "List contacts by group",
		func(cmd *cobra.Command, a *app) error {
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderContacts(a.store.Collections().Contacts))
			return nil
		},
		(*state.Store).DeleteContact)
}

func scheduleCmd() *cobra.Command {
	var month string
	var all bool

	cmd := recordCommand("schedule", "Show the calendar",
		func(cmd *cobra.Command, a *app) error {
			items := a.store.Collections().Schedule
			if all {
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSchedule(items))
				return nil
			}
			when, err := parseMonth(month)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCalendar(items, when))
			return nil
		},
		(*state.Store).DeleteScheduleItem)

	cmd.Flags().StringVarP(&month, "month", "m", "", "Month to show as YYYY-MM (default: this month)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every item instead of a calendar")
	return cmd
}

func ledgerCmd() *cobra.Command {
	var month string
	var flow bool

	cmd := recordCommand("ledger", "Show income and expenses",
		func(cmd *cobra.Command, a *app) error {
			expenses := a.store.Collections().Expenses
			if flow {
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderMonthlyFlow(expenses))
				return nil
			}
			if month != "" {
				if _, err := parseMonth(month); err != nil {
					return err
				}
				expenses = ledger.InMonth(expenses, month)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderLedger(expenses))
			return nil
		},
		(*state.Store).DeleteExpense)

	cmd.Flags().StringVarP(&month, "month", "m", "", "Only show YYYY-MM")
	cmd.Flags().BoolVar(&flow, "flow", false, "Show monthly totals and running balance")
	return cmd
}

func diaryCmd() *cobra.Command {
	return recordCommand("diary", "Read the diary",
		func(cmd *cobra.Command, a *app) error {
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderDiary(a.store.Collections().Diary))
			return nil
		},
		(*state.Store).DeleteDiaryEntry)
}

func historyCmd() *cobra.Command {
	return recordCommand("history", "List what the assistant has saved",
		func(cmd *cobra.Command, a *app) error {
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderHistory(a.store.History()))
			return nil
		},
		(*state.Store).DeleteHistory)
}

func parseMonth(month string) (time.Time, error) {
	if month == "" {
		return time.Now(), nil
	}
	when, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", month)
	}
	return when, nil
}
