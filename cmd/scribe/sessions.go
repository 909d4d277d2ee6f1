package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/scribe/internal/cli"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var activeID string
			if active, ok := a.store.ActiveSession(); ok {
				activeID = active.ID
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSessions(a.store.Sessions(), activeID))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Start a fresh chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			session := a.offlineAssistant().NewSession(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Started session "+session.ID))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "switch <id>",
		Short: "Continue an earlier chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.offlineAssistant().SwitchSession(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Switched to session "+args[0]))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.store.DeleteSession(args[0]); err != nil {
				return err
			}
			if err := a.save(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted session "+args[0]))
			return nil
		},
	})
	return cmd
}
