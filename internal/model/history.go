package model

import (
	"strings"
	"time"
)

// Input is what the user handed the assistant in one turn: text, an image, or both.
// Image holds a data URL (data:<mime>;base64,<payload>).
type Input struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// IsEmpty reports whether the input carries neither text nor an image.
func (i Input) IsEmpty() bool {
	return strings.TrimSpace(i.Text) == "" && i.Image == ""
}

// HasImage reports whether an image is attached.
func (i Input) HasImage() bool {
	return i.Image != ""
}

// HistoryItem is the immutable audit record of one committed extraction round.
type HistoryItem struct {
	Timestamp time.Time  `json:"timestamp"`
	ID        string     `json:"id"`
	Input     Input      `json:"input"`
	Output    Extraction `json:"output"`
}
