package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/engine"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/Veraticus/scribe/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import-ofx <file>...",
		Short: "Add bank or credit card statements to the ledger",
		Long: `Read OFX/QFX statement files downloaded from a bank and add their
transactions to the ledger. Transactions that are already in the ledger are
reported as possible duplicates, exactly like anything the assistant extracts.`,
		Example: `  scribe import-ofx ~/Downloads/checking.qfx
  scribe import-ofx --dry-run statements/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			parser := ofx.NewParser()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			assistant := a.offlineAssistant()
			prompter := cli.NewPrompter(cmd.InOrStdin(), out)

			for _, path := range args {
				statement, err := parseStatement(cmd, parser, path)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%s %s: %d transactions from %d account(s)\n",
					cli.LedgerIcon, filepath.Base(path), len(statement.Expenses), len(statement.Accounts))
				if dryRun {
					fmt.Fprintln(out, cli.RenderLedger(statement.Expenses))
					continue
				}

				input := model.Input{Text: "Imported statement " + filepath.Base(path)}
				outcome, err := assistant.Ingest(ctx, input, model.Extraction{Expenses: statement.Expenses})
				if err != nil {
					return err
				}
				switch outcome.Status {
				case engine.StatusCommitted:
					fmt.Fprintln(out, cli.FormatSuccess("Saved "+cli.SummarizeExtraction(outcome.History.Output)))
				case engine.StatusConflict:
					if err := settle(ctx, assistant, prompter, out); err != nil {
						return err
					}
				default:
					fmt.Fprintln(out, cli.FormatInfo("Nothing to import."))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Preview transactions without saving")
	return cmd
}

func parseStatement(cmd *cobra.Command, parser *ofx.Parser, path string) (ofx.Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return ofx.Statement{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	statement, err := parser.Parse(cmd.Context(), f)
	if err != nil {
		return ofx.Statement{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return statement, nil
}
