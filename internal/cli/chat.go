package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/engine"
	"github.com/Veraticus/scribe/internal/merge"
	"github.com/Veraticus/scribe/internal/model"
)

// Assistant is the part of the assistant the line-mode chat drives.
type Assistant interface {
	Send(ctx context.Context, input model.Input) (engine.Outcome, error)
	Resolve(ctx context.Context, res merge.Resolution) (engine.Outcome, error)
	PendingConflict() (merge.ConflictSession, bool)
}

const chatHelp = `Type a note, a contact, an appointment or a purchase and press enter.
  /image <file> [text]  attach an image
  /quit                 leave`

// Chat is the line-mode conversation loop.
type Chat struct {
	assistant Assistant
	prompter  *Prompter
	writer    io.Writer
	// options holds the choices of the last clarifying question.
	options []string
	spinner bool
}

// NewChat creates a line-mode chat. The spinner is shown while waiting when spinner is true.
func NewChat(assistant Assistant, prompter *Prompter, writer io.Writer, spinner bool) *Chat {
	return &Chat{
		assistant: assistant,
		prompter:  prompter,
		writer:    writer,
		spinner:   spinner,
	}
}

// Run reads messages until the input ends, the user quits or ctx is canceled.
func (c *Chat) Run(ctx context.Context) error {
	c.println(FormatTitle(ScribeIcon, "scribe"))
	c.println(SubtleStyle.Render(chatHelp))

	for {
		if session, pending := c.assistant.PendingConflict(); pending {
			if err := c.resolve(ctx, session); err != nil {
				return quietEnd(err)
			}
			continue
		}

		line, err := c.prompter.ReadInput(ctx, "you")
		if err != nil {
			return quietEnd(err)
		}

		input, quit, err := c.parse(line)
		if quit {
			return nil
		}
		if err != nil {
			c.println(FormatError(err.Error()))
			continue
		}
		if input.IsEmpty() {
			continue
		}

		outcome, err := c.send(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.println(FormatError(common.UserMessage(err)))
			continue
		}
		c.show(outcome)
	}
}

func (c *Chat) parse(line string) (model.Input, bool, error) {
	switch {
	case line == "/quit" || line == "/exit":
		return model.Input{}, true, nil
	case strings.HasPrefix(line, "/image"):
		fields := strings.Fields(strings.TrimPrefix(line, "/image"))
		if len(fields) == 0 {
			return model.Input{}, false, errors.New("usage: /image <file> [text]")
		}
		image, err := LoadImage(fields[0])
		if err != nil {
			return model.Input{}, false, err
		}
		c.options = nil
		return model.Input{Image: image, Text: strings.Join(fields[1:], " ")}, false, nil
	}

	text := PickOption(line, c.options)
	c.options = nil
	return model.Input{Text: text}, false, nil
}

func (c *Chat) send(ctx context.Context, input model.Input) (engine.Outcome, error) {
	if c.spinner {
		s := StartSpinner(c.writer, "thinking")
		defer s.Stop()
	}
	return c.assistant.Send(ctx, input)
}

func (c *Chat) resolve(ctx context.Context, session merge.ConflictSession) error {
	res, err := c.prompter.ResolveConflict(ctx, session)
	if err != nil {
		return err
	}
	outcome, err := c.assistant.Resolve(ctx, res)
	if err != nil {
		return err
	}
	c.show(outcome)
	return nil
}

func (c *Chat) show(outcome engine.Outcome) {
	if outcome.Reply != nil {
		c.println(RenderMessage(*outcome.Reply))
		c.options = outcome.Reply.ClarificationOptions
	}
	if outcome.History != nil {
		c.println(FormatSuccess("Saved " + SummarizeExtraction(outcome.History.Output)))
	}
}

func (c *Chat) println(s string) {
	_, _ = fmt.Fprintln(c.writer, s)
}

func quietEnd(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, ErrInputCancelled) {
		return nil
	}
	return err
}
