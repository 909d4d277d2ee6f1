package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/scribe/internal/dedup"
	"github.com/Veraticus/scribe/internal/merge"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conflictSession() merge.ConflictSession {
	contact := model.Contact{Name: "Ann", Phone: "555-0100"}
	return merge.ConflictSession{
		Report: dedup.Report{
			Contacts: []dedup.Collision[model.Contact]{{New: contact, ExistingID: "c1"}},
		},
		Data: model.Extraction{
			Contacts: []model.Contact{contact},
			Diary:    []model.DiaryEntry{{Content: "met Ann"}},
		},
	}
}

func TestPrompter_ReadInput(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("hello there\n"), &out)

	line, err := p.ReadInput(context.Background(), "you")
	require.NoError(t, err)
	assert.Equal(t, "hello there", line)
	assert.Contains(t, out.String(), "you")
}

func TestPrompter_ResolveConflict(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected merge.Resolution
		warnings int
	}{
		{name: "replace", input: "r\n", expected: merge.Replace},
		{name: "cancel word", input: "Cancel\n", expected: merge.Cancel},
		{name: "ignore after bad answers", input: "maybe\n\ni\n", expected: merge.IgnoreAndAppend, warnings: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)

			res, err := p.ResolveConflict(context.Background(), conflictSession())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res)
			assert.Contains(t, out.String(), "Ann")
			assert.Equal(t, tt.warnings, strings.Count(out.String(), "Please answer"))
		})
	}
}

func TestPrompter_ResolveConflictEOF(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), io.Discard)
	_, err := p.ResolveConflict(context.Background(), conflictSession())
	assert.ErrorIs(t, err, io.EOF)
}

func TestPickOption(t *testing.T) {
	options := []string{"Lunch", "Dinner"}
	tests := []struct {
		reply    string
		expected string
	}{
		{reply: "1", expected: "Lunch"},
		{reply: " 2 ", expected: "Dinner"},
		{reply: "3", expected: "3"},
		{reply: "0", expected: "0"},
		{reply: "brunch", expected: "brunch"},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			assert.Equal(t, tt.expected, PickOption(tt.reply, options))
		})
	}
	assert.Equal(t, "1", PickOption("1", nil))
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nrest"), 0o600))

	url, err := LoadImage(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)

	_, err = LoadImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
