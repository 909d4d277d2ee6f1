package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/model"
)

// ActiveSession returns the session new messages go to.
func (s *Store) ActiveSession() (model.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.activeIndex()
	if idx < 0 {
		return model.ChatSession{}, false
	}
	return cloneSession(s.state.ChatSessions[idx]), true
}

// Sessions lists every chat session, oldest first.
func (s *Store) Sessions() []model.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChatSession, len(s.state.ChatSessions))
	for i, sess := range s.state.ChatSessions {
		out[i] = cloneSession(sess)
	}
	return out
}

// NewSession starts an empty session and makes it active.
func (s *Store) NewSession() model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.newSessionLocked())
}

// EnsureSession returns the active session, creating one when none exists.
func (s *Store) EnsureSession() model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.activeIndex(); idx >= 0 {
		return cloneSession(s.state.ChatSessions[idx])
	}
	return cloneSession(s.newSessionLocked())
}

// SwitchSession makes an existing session active.
func (s *Store) SwitchSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.ContainsFunc(s.state.ChatSessions, func(sess model.ChatSession) bool { return sess.ID == id }) {
		return fmt.Errorf("chat session %s: %w", id, common.ErrNotFound)
	}
	s.state.ActiveChatSessionID = id
	return nil
}

// DeleteSession removes a session. Deleting the active one activates the most recent remaining session.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.state.ChatSessions, func(sess model.ChatSession) bool { return sess.ID == id })
	if idx < 0 {
		return fmt.Errorf("chat session %s: %w", id, common.ErrNotFound)
	}
	s.state.ChatSessions = slices.Delete(s.state.ChatSessions, idx, idx+1)
	if s.state.ActiveChatSessionID == id {
		s.state.ActiveChatSessionID = ""
		if n := len(s.state.ChatSessions); n > 0 {
			s.state.ActiveChatSessionID = s.state.ChatSessions[n-1].ID
		}
	}
	return nil
}

// AppendMessage adds msg to the active session, stamping its identifier and timestamp.
// The first user message also titles the session and marks the state as interacted with.
func (s *Store) AppendMessage(msg model.ChatMessage) (model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.activeIndex()
	if idx < 0 {
		return model.ChatMessage{}, common.ErrNoActiveSession
	}

	msg.ID = s.ids.NewID()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msg.ClarificationOptions = slices.Clone(msg.ClarificationOptions)

	sess := &s.state.ChatSessions[idx]
	sess.Messages = append(sess.Messages, msg)

	if msg.Role == model.RoleUser {
		s.state.HasInteracted = true
		if sess.Title == DefaultSessionTitle {
			if title := sessionTitle(msg.Text); title != "" {
				sess.Title = title
			}
		}
	}
	return msg, nil
}

func (s *Store) newSessionLocked() model.ChatSession {
	sess := model.ChatSession{
		ID:        s.ids.NewID(),
		Title:     DefaultSessionTitle,
		CreatedAt: s.now(),
		Messages:  []model.ChatMessage{},
	}
	s.state.ChatSessions = append(s.state.ChatSessions, sess)
	s.state.ActiveChatSessionID = sess.ID
	return sess
}

func (s *Store) activeIndex() int {
	if s.state.ActiveChatSessionID == "" {
		return -1
	}
	return slices.IndexFunc(s.state.ChatSessions, func(sess model.ChatSession) bool {
		return sess.ID == s.state.ActiveChatSessionID
	})
}

func sessionTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxTitleLength {
		return text
	}
	return string(runes[:maxTitleLength-1]) + "…"
}
