package testutil

import (
	"context"
	"sync"

	"github.com/Veraticus/scribe/internal/engine"
	"github.com/Veraticus/scribe/internal/ident"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/Veraticus/scribe/internal/state"
)

// MemoryPersister keeps the last saved state in memory.
type MemoryPersister struct {
	last  model.AppState
	saves int
	mu    sync.Mutex
}

// SaveState records st.
func (p *MemoryPersister) SaveState(_ context.Context, st model.AppState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = st
	p.saves++
	return nil
}

// Saves reports how many times state was saved.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// Last returns the most recently saved state.
func (p *MemoryPersister) Last() model.AppState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Harness is an assistant backed by a scripted gateway and an in-memory store.
type Harness struct {
	Assistant *engine.Assistant
	Gateway   *engine.MockGateway
	Store     *state.Store
	Persister *MemoryPersister
}

// NewAssistant wires an assistant over initial that answers with replies in order.
func NewAssistant(initial model.AppState, replies ...engine.MockReply) Harness {
	store := state.NewStore(ident.NewSequence("s"), initial, state.WithClock(Clock))
	gateway := engine.NewMockGateway(replies...)
	persister := &MemoryPersister{}

	cfg := engine.DefaultConfig()
	cfg.Now = Clock
	return Harness{
		Assistant: engine.NewWithConfig(store, gateway, persister, ident.NewSequence("r"), cfg),
		Gateway:   gateway,
		Store:     store,
		Persister: persister,
	}
}
