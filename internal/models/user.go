package models

import (
	"errors"
	"time"
)

var (
	ErrMissingUserID = errors.New("user record has no userId")
	ErrMissingEmail  = errors.New("user record has no email")
)

// User is the canonical identity record. Sessions keep insertion order, which
// is creation order.
type User struct {
	UserID            string     `json:"userId"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	PasswordHash      string     `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
	LastLoginTime     *time.Time `json:"lastLoginTime,omitempty"`
	Sessions          []Session  `json:"sessions,omitempty"`
	TotalSessions     int        `json:"totalSessions"`
	ActiveSessions    int        `json:"activeSessions"`
	IsCurrentlyActive bool       `json:"isCurrentlyActive"`
}

// Validate reports records that cannot be mirrored into the relational store.
func (u *User) Validate() error {
	if u.UserID == "" {
		return ErrMissingUserID
	}
	if u.Email == "" {
		return ErrMissingEmail
	}
	return nil
}

// FindSession returns the index of sessionID in the user's collection, or -1.
func (u *User) FindSession(sessionID string) int {
	for i := range u.Sessions {
		if u.Sessions[i].SessionID == sessionID {
			return i
		}
	}
	return -1
}

// CountActive counts sessions with IsActive set.
func (u *User) CountActive() int {
	n := 0
	for i := range u.Sessions {
		if u.Sessions[i].IsActive {
			n++
		}
	}
	return n
}

// PublicUser is the listing shape: everything but the password hash.
type PublicUser struct {
	UserID            string     `json:"userId"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastLoginTime     *time.Time `json:"lastLoginTime,omitempty"`
	Sessions          []Session  `json:"sessions,omitempty"`
	TotalSessions     int        `json:"totalSessions"`
	ActiveSessions    int        `json:"activeSessions"`
	IsCurrentlyActive bool       `json:"isCurrentlyActive"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		UserID:            u.UserID,
		Email:             u.Email,
		Name:              u.Name,
		CreatedAt:         u.CreatedAt,
		LastLoginTime:     u.LastLoginTime,
		Sessions:          u.Sessions,
		TotalSessions:     u.TotalSessions,
		ActiveSessions:    u.ActiveSessions,
		IsCurrentlyActive: u.IsCurrentlyActive,
	}
}
