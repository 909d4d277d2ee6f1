// Package transfer reads and writes the whole application state as a portable JSON file.
package transfer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/model"
)

// requiredLists are the keys an import must carry as JSON arrays.
var requiredLists = []string{"contacts", "schedule", "expenses", "diary", "history", "chatSessions"}

// Export writes st in the persisted layout.
func Export(w io.Writer, st model.AppState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st.Normalize()); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// Import decodes an exported file. The file is rejected as a whole when any
// collection is missing or is not a list.
func Import(r io.Reader) (model.AppState, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.AppState{}, fmt.Errorf("failed to read import: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.AppState{}, fmt.Errorf("%w: %v", common.ErrInvalidImport, err)
	}

	for _, key := range requiredLists {
		value, ok := raw[key]
		if !ok {
			return model.AppState{}, fmt.Errorf("%w: missing %q", common.ErrInvalidImport, key)
		}
		if !isArray(value) {
			return model.AppState{}, fmt.Errorf("%w: %q is not a list", common.ErrInvalidImport, key)
		}
	}

	var st model.AppState
	if err := json.Unmarshal(data, &st); err != nil {
		return model.AppState{}, fmt.Errorf("%w: %v", common.ErrInvalidImport, err)
	}
	return st.Normalize(), nil
}

func isArray(value json.RawMessage) bool {
	for _, b := range value {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
