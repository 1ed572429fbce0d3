package tui

import "ytrag/internal/domain"

// Turn is one chat message shown in the session.
type Turn struct {
	Role    domain.Role
	Content string
	// Sources holds the retrieved chunks behind an assistant turn.
	Sources []domain.SearchResult
}

// Session is the ordered conversation about the selected source.
// It lives only as long as the UI.
type Session struct {
	SourceID string
	Turns    []Turn
}

func (s *Session) add(t Turn) { s.Turns = append(s.Turns, t) }

// lastSources returns the sources of the most recent assistant turn.
func (s *Session) lastSources() []domain.SearchResult {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == domain.RoleAssistant && len(s.Turns[i].Sources) > 0 {
			return s.Turns[i].Sources
		}
	}
	return nil
}

func (s *Session) clear() { s.Turns = nil }
