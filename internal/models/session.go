package models

import "time"

// Session is one login of a user. IsActive only ever goes from true to false,
// and LogoutTime is set at that moment and never rewritten.
type Session struct {
	SessionID    string     `json:"sessionId"`
	UserID       string     `json:"userId,omitempty"`
	LoginTime    time.Time  `json:"loginTime"`
	LastActivity time.Time  `json:"lastActivity"`
	IsActive     bool       `json:"isActive"`
	LogoutTime   *time.Time `json:"logoutTime,omitempty"`
}

// NewSession returns an active session starting at now. LastActivity is not
// refreshed afterwards.
func NewSession(sessionID, userID string, now time.Time) Session {
	return Session{
		SessionID:    sessionID,
		UserID:       userID,
		LoginTime:    now,
		LastActivity: now,
		IsActive:     true,
	}
}
