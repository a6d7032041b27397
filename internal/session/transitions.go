// Package session holds the session lifecycle rules shared by both stores and
// the engine that applies them.
package session

import (
	"time"

	"session-handlers/internal/models"
)

// LogoutResult describes what DeactivateSession did.
type LogoutResult int

const (
	SessionUnknown LogoutResult = iota
	SessionAlreadyInactive
	SessionDeactivated
)

func (r LogoutResult) String() string {
	switch r {
	case SessionDeactivated:
		return "deactivated"
	case SessionAlreadyInactive:
		return "already_inactive"
	default:
		return "unknown_session"
	}
}

// Recompute derives activeSessions and isCurrentlyActive from the session list.
func Recompute(u *models.User) {
	u.ActiveSessions = u.CountActive()
	u.IsCurrentlyActive = u.ActiveSessions > 0
}

// AppendSession adds s at the end of the list. totalSessions never decreases,
// even when the stored list was truncated or the counter was missing.
func AppendSession(u *models.User, s models.Session) {
	previous := u.TotalSessions
	u.Sessions = append(u.Sessions, s)
	Recompute(u)
	u.TotalSessions = max(previous+1, len(u.Sessions))
	login := s.LoginTime
	u.LastLoginTime = &login
}

// DeactivateSession closes the session with the given id. An inactive session
// is left untouched so logoutTime is written only once.
func DeactivateSession(u *models.User, sessionID string, now time.Time) LogoutResult {
	i := u.FindSession(sessionID)
	if i < 0 {
		return SessionUnknown
	}
	s := &u.Sessions[i]
	if !s.IsActive {
		return SessionAlreadyInactive
	}
	s.IsActive = false
	at := now
	s.LogoutTime = &at
	Recompute(u)
	return SessionDeactivated
}

// DeactivateAll closes every session for the daily rollover. A logoutTime that
// is already set is kept. It reports false for users with no sessions, which
// are not rewritten.
func DeactivateAll(u *models.User, now time.Time) bool {
	if len(u.Sessions) == 0 {
		return false
	}
	for i := range u.Sessions {
		s := &u.Sessions[i]
		s.IsActive = false
		if s.LogoutTime == nil {
			at := now
			s.LogoutTime = &at
		}
	}
	Recompute(u)
	return true
}
