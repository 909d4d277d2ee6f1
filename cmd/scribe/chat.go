package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/engine"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/Veraticus/scribe/internal/tui"
	"github.com/Veraticus/scribe/internal/tui/themes"
)

func chatCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		Long: `Open a conversation with the assistant. Everything you mention is filed into
contacts, the calendar, the ledger or the diary. When something looks like a
record you already have, you choose whether to replace it, keep both or cancel.`,
		Example: `  # Full-screen chat
  scribe chat

  # Line mode, for pipes and simple terminals
  scribe chat --plain`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			assistant, err := a.assistant()
			if err != nil {
				return err
			}

			if plain || viper.GetBool("chat.plain") {
				handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
				ctx = handler.HandleInterrupts(ctx)
				prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				return cli.NewChat(assistant, prompter, cmd.OutOrStdout(), true).Run(ctx)
			}

			var transcript []model.ChatMessage
			if session, ok := a.store.ActiveSession(); ok {
				transcript = session.Messages
			}
			return tui.Run(ctx, assistant,
				tui.WithTheme(themes.ByName(viper.GetString("tui.theme"))),
				tui.WithTranscript(transcript))
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Use line mode instead of the full-screen interface")
	return cmd
}

func addCmd() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Send a single message to the assistant",
		Example: `  scribe add "Lunch with Maria at Nopa, 42 dollars"
  scribe add --image receipt.jpg "hardware store"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			input := model.Input{Text: strings.Join(args, " ")}
			if imagePath != "" {
				image, err := cli.LoadImage(imagePath)
				if err != nil {
					return err
				}
				input.Image = image
			}
			if input.IsEmpty() {
				return fmt.Errorf("%w: give some text or an --image", common.ErrEmptyInput)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			assistant, err := a.assistant()
			if err != nil {
				return err
			}

			prompter := cli.NewPrompter(cmd.InOrStdin(), out)
			for {
				spinner := cli.StartSpinner(cmd.ErrOrStderr(), "thinking")
				outcome, err := assistant.Send(ctx, input)
				spinner.Stop()
				if err != nil {
					return err
				}

				if outcome.Reply != nil {
					fmt.Fprintln(out, cli.RenderMessage(*outcome.Reply))
				}
				switch outcome.Status {
				case engine.StatusCommitted:
					fmt.Fprintln(out, cli.FormatSuccess("Saved "+cli.SummarizeExtraction(outcome.History.Output)))
				case engine.StatusConflict:
					return settle(ctx, assistant, prompter, out)
				case engine.StatusClarifying:
					reply, err := prompter.ReadInput(ctx, "you")
					if err != nil {
						return nil
					}
					input = model.Input{Text: cli.PickOption(reply, replyOptions(outcome))}
					continue
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Attach an image such as a receipt or a business card")
	return cmd
}

// replyOptions returns the clarification choices offered with an outcome. The reply is
// nil when the assistant could not record it in the chat session.
func replyOptions(outcome engine.Outcome) []string {
	if outcome.Reply == nil {
		return nil
	}
	return outcome.Reply.ClarificationOptions
}
