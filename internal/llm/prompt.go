package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/scribe/internal/model"
)

// prompt is a provider-neutral conversation ready to be sent.
type prompt struct {
	System string
	Turns  []model.HistoryTurn
	User   userMessage
}

// userMessage is the final user turn. Image fields are empty when no image is attached.
type userMessage struct {
	Text      string
	ImageURL  string
	ImageMIME string
	ImageData []byte
}

func (u userMessage) hasImage() bool {
	return len(u.ImageData) > 0
}

const systemInstructions = `You are a personal assistant that files what the user tells you into four categories:
contacts, schedule, expenses (money spent or received) and diary entries.

Respond with ONLY a JSON object, no markdown and no commentary, in this exact shape:
{
  "answer": "short natural-language reply to the user",
  "clarificationNeeded": false,
  "clarificationOptions": [],
  "dataExtraction": {
    "contacts": [{"name": "", "phone": "", "email": "", "group": ""}],
    "schedule": [{"title": "", "date": "YYYY-MM-DD", "time": "HH:MM", "location": ""}],
    "expenses": [{"date": "YYYY-MM-DD", "item": "", "amount": 0, "type": "expense|income", "category": ""}],
    "diary": [{"date": "YYYY-MM-DD", "content": "", "group": ""}]
  }
}

Rules:
- Only extract what the latest user message states. Existing data is context for answering questions and resolving references; never copy it into dataExtraction.
- Resolve relative dates ("tomorrow", "next Friday") against today's date.
- Amounts are positive numbers without currency symbols. Use type "income" for money received.
- Receipts in images are expenses: use the receipt total, merchant as item and the receipt date.
- If the message could reasonably belong to more than one category and you cannot tell which, set clarificationNeeded to true, ask in "answer", offer up to four short options in clarificationOptions and leave every list in dataExtraction empty.
- If the user only asks a question, answer it and leave dataExtraction empty.
- Omit optional fields you do not know; leave group empty when none is stated.`

// buildPrompt assembles the conversation for one extraction request.
func buildPrompt(req model.ExtractionRequest) (prompt, error) {
	snapshot, err := json.Marshal(req.Snapshot)
	if err != nil {
		return prompt{}, fmt.Errorf("failed to marshal context snapshot: %w", err)
	}

	var system strings.Builder
	system.WriteString(systemInstructions)
	fmt.Fprintf(&system, "\n\nToday's date is %s.\n\nExisting data:\n%s", req.Today, snapshot)

	user := userMessage{Text: strings.TrimSpace(req.Input.Text)}
	if req.Original != nil {
		user.Text = fmt.Sprintf("Earlier message you asked me to clarify:\n%s\n\nMy clarification:\n%s",
			strings.TrimSpace(req.Original.Text), user.Text)
	}
	if user.Text == "" {
		user.Text = "(see attached image)"
	}

	image := req.Input.Image
	if image == "" && req.Original != nil {
		image = req.Original.Image
	}
	if image != "" {
		mime, data, err := model.DecodeDataURL(image)
		if err != nil {
			return prompt{}, fmt.Errorf("invalid image attachment: %w", err)
		}
		user.ImageURL = image
		user.ImageMIME = mime
		user.ImageData = data
	}

	turns := make([]model.HistoryTurn, 0, len(req.History))
	for _, t := range req.History {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		turns = append(turns, t)
	}

	return prompt{
		System: system.String(),
		Turns:  turns,
		User:   user,
	}, nil
}
