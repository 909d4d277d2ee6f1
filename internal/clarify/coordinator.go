// Package clarify tracks the single-step disambiguation dialogue.
//
// When the gateway asks a clarifying question the input that triggered it is kept as
// the pending original. The user's reply is only a hint: once a later round returns
// data, that data is attributed to the pending original, not to the reply.
//
// Only one pending original exists. If the model asks again before data arrives the
// first input stays pending. Two unrelated ambiguous inputs in a row are not tracked
// separately; the later one is treated as a reply to the first.
package clarify

import (
	"log/slog"
	"sync"

	"github.com/Veraticus/scribe/internal/model"
)

// Phase is the coordinator state: Normal or AwaitingClarification.
type Phase interface {
	isPhase()
}

// Normal means no clarification is outstanding.
type Normal struct{}

// AwaitingClarification holds the input the model asked about.
type AwaitingClarification struct {
	Original model.Input
}

func (Normal) isPhase()                {}
func (AwaitingClarification) isPhase() {}

// Decision tells the caller what to do with a gateway result.
type Decision struct {
	// Attribution is the input the committed history item should record.
	Attribution model.Input
	// Ask is true when the result is a clarifying question and nothing may be merged.
	Ask bool
}

// Coordinator runs the clarification state machine.
type Coordinator struct {
	phase Phase
	mu    sync.Mutex
}

// NewCoordinator creates a coordinator in the Normal state.
func NewCoordinator() *Coordinator {
	return &Coordinator{phase: Normal{}}
}

// Phase returns the current state.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Original returns the pending original input while a clarification is outstanding.
func (c *Coordinator) Original() (model.Input, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.phase.(AwaitingClarification); ok {
		return p.Original, true
	}
	return model.Input{}, false
}

// Observe feeds a gateway result for the current input through the state machine.
func (c *Coordinator) Observe(result model.ExtractionResult, current model.Input) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	if result.ClarificationNeeded {
		if _, pending := c.phase.(AwaitingClarification); !pending {
			c.phase = AwaitingClarification{Original: current}
			slog.Debug("Awaiting clarification", "options", len(result.ClarificationOptions))
		}
		return Decision{Ask: true}
	}

	attribution := current
	if p, ok := c.phase.(AwaitingClarification); ok {
		attribution = p.Original
		slog.Debug("Clarification answered")
	}
	c.phase = Normal{}
	return Decision{Attribution: attribution}
}

// Reset drops any pending clarification.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = Normal{}
}
