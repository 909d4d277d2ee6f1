package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/transfer"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write all data to a JSON file",
		Long:  `Export contacts, schedule, ledger, diary, history and chat sessions as one JSON document. Use - for stdout.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if args[0] == "-" {
				return transfer.Export(cmd.OutOrStdout(), a.store.Snapshot())
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := transfer.Export(f, a.store.Snapshot()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close export file: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Exported to "+args[0]))
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data with a JSON export",
		Long: `Replace everything with the contents of an export file. A checkpoint is taken
first, so the previous data can be brought back with 'scribe checkpoint restore'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			imported, err := transfer.Import(r)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !force {
				prompter := cli.NewPrompter(cmd.InOrStdin(), out)
				question := fmt.Sprintf("Replace all data with %d contacts, %d events, %d ledger entries and %d diary entries?",
					len(imported.Contacts), len(imported.Schedule), len(imported.Expenses), len(imported.Diary))
				if !confirm(ctx, prompter, question) {
					fmt.Fprintln(out, cli.SubtitleStyle.Render("Import cancelled."))
					return nil
				}
			}

			manager, err := a.storage.NewCheckpointManager()
			if err != nil {
				return fmt.Errorf("failed to create checkpoint manager: %w", err)
			}
			info, err := manager.AutoCheckpoint(ctx, "import")
			if err != nil {
				return fmt.Errorf("failed to checkpoint before import: %w", err)
			}
			slog.Info("Created checkpoint before import", "checkpoint", info.ID)

			a.store.Replace(imported)
			if err := a.save(ctx); err != nil {
				return err
			}

			fmt.Fprintf(out, "%s (previous data saved as %s)\n",
				cli.FormatSuccess("Imported "+args[0]), cli.InfoStyle.Render(info.ID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}
