// Package ident produces opaque unique identifiers for committed records.
package ident

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator hands out identifiers. Implementations never return the same value twice.
type Generator interface {
	NewID() string
}

// UUIDGenerator issues random version 4 UUIDs.
type UUIDGenerator struct{}

// NewID returns a fresh UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Sequence issues prefix-1, prefix-2, ... and is meant for deterministic tests.
type Sequence struct {
	prefix string
	next   int
	mu     sync.Mutex
}

// NewSequence creates a Sequence generator with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID returns the next identifier in the sequence.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next)
}
