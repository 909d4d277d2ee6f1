package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/config"
	"github.com/Veraticus/scribe/internal/ledger"
	"github.com/Veraticus/scribe/internal/sheets"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets integration",
	}
	cmd.AddCommand(sheetsExportCmd())
	return cmd
}

func sheetsExportCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger to a Google spreadsheet",
		Long: `Write every ledger entry plus monthly and per-category totals to a Google
spreadsheet. Authenticate first with 'scribe auth sheets' or configure a
service account under sheets.service_account_path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sheetsCfg, err := config.LoadSheetsConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("google sheets is not configured: %w", err)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			expenses := a.store.Collections().Expenses
			if month != "" {
				if _, err := parseMonth(month); err != nil {
					return err
				}
				expenses = ledger.InMonth(expenses, month)
			}

			writer, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
			if err != nil {
				return err
			}

			spinner := cli.StartSpinner(cmd.ErrOrStderr(), "exporting")
			spreadsheetID, err := writer.Export(ctx, expenses)
			spinner.Stop()
			if err != nil {
				return fmt.Errorf("failed to export to google sheets: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported %d ledger entries", len(expenses))))
			fmt.Fprintf(out, "  https://docs.google.com/spreadsheets/d/%s\n", spreadsheetID)
			if sheetsCfg.SpreadsheetID == "" {
				fmt.Fprintln(out, cli.FormatInfo("Set sheets.spreadsheet_id to "+spreadsheetID+" to keep writing to this spreadsheet."))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "Only export YYYY-MM")
	return cmd
}
