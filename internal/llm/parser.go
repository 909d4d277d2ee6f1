package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/scribe/internal/model"
	"github.com/kaptinlin/jsonrepair"
)

var errNoJSON = errors.New("no JSON object in model reply")

// wireResult is the JSON shape the model is asked to produce.
type wireResult struct {
	DataExtraction       *wireExtraction `json:"dataExtraction"`
	Answer               string          `json:"answer"`
	ClarificationOptions []string        `json:"clarificationOptions"`
	ClarificationNeeded  bool            `json:"clarificationNeeded"`
}

type wireExtraction struct {
	Contacts []wireContact  `json:"contacts"`
	Schedule []wireSchedule `json:"schedule"`
	Expenses []wireExpense  `json:"expenses"`
	Diary    []wireDiary    `json:"diary"`
}

type wireContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Group string `json:"group"`
}

type wireSchedule struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

type wireExpense struct {
	Date     string     `json:"date"`
	Item     string     `json:"item"`
	Type     string     `json:"type"`
	Category string     `json:"category"`
	Amount   wireAmount `json:"amount"`
}

type wireDiary struct {
	Date    string `json:"date"`
	Content string `json:"content"`
	Group   string `json:"group"`
}

// wireAmount accepts numbers as well as strings such as "4,500" or "$12.30".
type wireAmount float64

func (a *wireAmount) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = wireAmount(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		*a = 0
		return nil
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	*a = wireAmount(n)
	return nil
}

// parseExtraction decodes a model reply. A missing dataExtraction or missing lists are
// treated as empty. Malformed JSON is repaired before giving up.
func parseExtraction(content string) (model.ExtractionResult, error) {
	raw, err := extractJSONObject(stripFence(content))
	if err != nil {
		return model.ExtractionResult{}, err
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return model.ExtractionResult{}, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		wire = wireResult{}
		if err := json.Unmarshal([]byte(repaired), &wire); err != nil {
			return model.ExtractionResult{}, fmt.Errorf("failed to parse repaired JSON response: %w", err)
		}
	}

	result := model.ExtractionResult{
		Answer:              strings.TrimSpace(wire.Answer),
		ClarificationNeeded: wire.ClarificationNeeded,
		Data:                normalizeExtraction(wire.DataExtraction),
	}
	for _, opt := range wire.ClarificationOptions {
		if opt = strings.TrimSpace(opt); opt != "" {
			result.ClarificationOptions = append(result.ClarificationOptions, opt)
		}
	}

	// A clarifying question carries no data, whatever else the model put in the reply.
	if result.ClarificationNeeded {
		result.Data = model.Extraction{}.Normalize()
	}
	return result, nil
}

func normalizeExtraction(w *wireExtraction) model.Extraction {
	out := model.Extraction{}.Normalize()
	if w == nil {
		return out
	}

	for _, c := range w.Contacts {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		out.Contacts = append(out.Contacts, model.Contact{
			Name:  name,
			Phone: strings.TrimSpace(c.Phone),
			Email: strings.TrimSpace(c.Email),
			Group: groupOrDefault(c.Group),
		})
	}

	for _, s := range w.Schedule {
		title, date := strings.TrimSpace(s.Title), strings.TrimSpace(s.Date)
		if title == "" || date == "" {
			continue
		}
		out.Schedule = append(out.Schedule, model.ScheduleItem{
			Title:    title,
			Date:     date,
			Time:     model.NormalizeTime(s.Time),
			Location: strings.TrimSpace(s.Location),
		})
	}

	// Expenses without a date are kept; the assistant dates them today.
	for _, e := range w.Expenses {
		item, amount := strings.TrimSpace(e.Item), math.Abs(float64(e.Amount))
		if item == "" || amount <= 0 {
			continue
		}
		typ := model.ExpenseType(strings.ToLower(strings.TrimSpace(e.Type)))
		if !typ.Valid() {
			typ = model.TypeExpense
		}
		out.Expenses = append(out.Expenses, model.Expense{
			Date:     strings.TrimSpace(e.Date),
			Item:     item,
			Type:     typ,
			Category: strings.TrimSpace(e.Category),
			Amount:   amount,
		})
	}

	for _, d := range w.Diary {
		content := strings.TrimSpace(d.Content)
		if content == "" {
			continue
		}
		out.Diary = append(out.Diary, model.DiaryEntry{
			Date:    strings.TrimSpace(d.Date),
			Content: content,
			Group:   groupOrDefault(d.Group),
		})
	}

	return out
}

func groupOrDefault(group string) string {
	if group = strings.TrimSpace(group); group == "" {
		return model.GroupUncategorized
	}
	return group
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// extractJSONObject returns the text from the first '{' to the last '}'. An unterminated
// object is returned as is so the repair step can close it.
func extractJSONObject(content string) (string, error) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", errNoJSON
	}
	end := strings.LastIndexByte(content, '}')
	if end < start {
		return content[start:], nil
	}
	return content[start : end+1], nil
}
