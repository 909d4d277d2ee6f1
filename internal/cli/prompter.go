package cli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/scribe/internal/merge"
	"github.com/Veraticus/scribe/internal/model"
)

// Prompter asks the user for input in line mode.
type Prompter struct {
	reader *LineReader
	writer io.Writer
}

// NewPrompter creates a prompter. Nil arguments default to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{reader: NewLineReader(reader), writer: writer}
}

// ReadInput shows prompt and returns the next line.
func (p *Prompter) ReadInput(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	return p.reader.ReadLine(ctx)
}

// ResolveConflict shows the parked round and asks until the user picks a resolution.
func (p *Prompter) ResolveConflict(ctx context.Context, session merge.ConflictSession) (merge.Resolution, error) {
	if _, err := fmt.Fprintln(p.writer, RenderConflict(session)); err != nil {
		return 0, fmt.Errorf("failed to write conflict: %w", err)
	}

	for {
		answer, err := p.ReadInput(ctx, "[R]eplace / [C]ancel / [I]gnore and add")
		if err != nil {
			return 0, err
		}
		res, err := merge.ParseResolution(answer)
		if err == nil {
			return res, nil
		}
		if _, err := fmt.Fprintln(p.writer, FormatWarning("Please answer r, c or i.")); err != nil {
			return 0, fmt.Errorf("failed to write warning: %w", err)
		}
	}
}

// PickOption maps a reply to a clarification option. A number selects the matching
// option; anything else is returned unchanged as a free-form reply.
func PickOption(reply string, options []string) string {
	n, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || n < 1 || n > len(options) {
		return reply
	}
	return options[n-1]
}

// LoadImage reads an image file into a data URL.
func LoadImage(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-selected file
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = ""
	}
	return model.EncodeDataURL(data, mimeType), nil
}
