// Package kv implements store.KVStore on DynamoDB and, for local stacks, on
// Redis. Both backends persist the same record shape.
package kv

import (
	"fmt"
	"time"

	"session-handlers/internal/models"
	"session-handlers/internal/store"
)

// isoLayout writes timestamps the way existing records were written
// (millisecond precision, UTC, trailing Z).
const isoLayout = "2006-01-02T15:04:05.000Z"

type userRecord struct {
	UserID            string          `dynamodbav:"userId" json:"userId"`
	Email             string          `dynamodbav:"email" json:"email"`
	Name              string          `dynamodbav:"name" json:"name"`
	Password          string          `dynamodbav:"password" json:"password"`
	CreatedAt         string          `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt         string          `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	LastLoginTime     string          `dynamodbav:"lastLoginTime,omitempty" json:"lastLoginTime,omitempty"`
	Sessions          []sessionRecord `dynamodbav:"sessions" json:"sessions"`
	TotalSessions     int             `dynamodbav:"totalSessions" json:"totalSessions"`
	ActiveSessions    int             `dynamodbav:"activeSessions" json:"activeSessions"`
	IsCurrentlyActive bool            `dynamodbav:"isCurrentlyActive" json:"isCurrentlyActive"`
}

type sessionRecord struct {
	SessionID    string `dynamodbav:"sessionId" json:"sessionId"`
	LoginTime    string `dynamodbav:"loginTime,omitempty" json:"loginTime,omitempty"`
	LastActivity string `dynamodbav:"lastActivity,omitempty" json:"lastActivity,omitempty"`
	IsActive     bool   `dynamodbav:"isActive" json:"isActive"`
	LogoutTime   string `dynamodbav:"logoutTime,omitempty" json:"logoutTime,omitempty"`
}

type fileRecord struct {
	FileID      string `dynamodbav:"fileId" json:"fileId"`
	FileName    string `dynamodbav:"fileName,omitempty" json:"fileName,omitempty"`
	FileSize    *int64 `dynamodbav:"fileSize,omitempty" json:"fileSize,omitempty"`
	Status      string `dynamodbav:"status,omitempty" json:"status,omitempty"`
	ProcessedAt string `dynamodbav:"processedAt,omitempty" json:"processedAt,omitempty"`
	UserID      string `dynamodbav:"userId,omitempty" json:"userId,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q: %v", store.ErrMalformedRecord, field, v, err)
	}
	return t.UTC(), nil
}

func parseTimePtr(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := parseTime(field, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func fromUser(u *models.User) userRecord {
	rec := userRecord{
		UserID:            u.UserID,
		Email:             u.Email,
		Name:              u.Name,
		Password:          u.PasswordHash,
		CreatedAt:         formatTime(u.CreatedAt),
		UpdatedAt:         formatTimePtr(u.UpdatedAt),
		LastLoginTime:     formatTimePtr(u.LastLoginTime),
		Sessions:          fromSessions(u.Sessions),
		TotalSessions:     u.TotalSessions,
		ActiveSessions:    u.ActiveSessions,
		IsCurrentlyActive: u.IsCurrentlyActive,
	}
	return rec
}

func fromSessions(sessions []models.Session) []sessionRecord {
	out := make([]sessionRecord, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionRecord{
			SessionID:    s.SessionID,
			LoginTime:    formatTime(s.LoginTime),
			LastActivity: formatTime(s.LastActivity),
			IsActive:     s.IsActive,
			LogoutTime:   formatTimePtr(s.LogoutTime),
		})
	}
	return out
}

// toUser converts a stored record. Unparseable timestamps are reported as
// store.ErrMalformedRecord; the returned user still carries the identity so
// callers can log it.
func toUser(rec userRecord) (*models.User, error) {
	u := &models.User{
		UserID:            rec.UserID,
		Email:             rec.Email,
		Name:              rec.Name,
		PasswordHash:      rec.Password,
		TotalSessions:     rec.TotalSessions,
		ActiveSessions:    rec.ActiveSessions,
		IsCurrentlyActive: rec.IsCurrentlyActive,
	}

	var err error
	if u.CreatedAt, err = parseTime("createdAt", rec.CreatedAt); err != nil {
		return u, err
	}
	if u.UpdatedAt, err = parseTimePtr("updatedAt", rec.UpdatedAt); err != nil {
		return u, err
	}
	if u.LastLoginTime, err = parseTimePtr("lastLoginTime", rec.LastLoginTime); err != nil {
		return u, err
	}

	u.Sessions = make([]models.Session, 0, len(rec.Sessions))
	for _, sr := range rec.Sessions {
		s := models.Session{
			SessionID: sr.SessionID,
			UserID:    rec.UserID,
			IsActive:  sr.IsActive,
		}
		if s.LoginTime, err = parseTime("sessions.loginTime", sr.LoginTime); err != nil {
			return u, err
		}
		if s.LastActivity, err = parseTime("sessions.lastActivity", sr.LastActivity); err != nil {
			return u, err
		}
		if s.LogoutTime, err = parseTimePtr("sessions.logoutTime", sr.LogoutTime); err != nil {
			return u, err
		}
		u.Sessions = append(u.Sessions, s)
	}
	return u, nil
}

func fromFile(f models.ProcessedFile) fileRecord {
	size := f.FileSize
	return fileRecord{
		FileID:      f.FileID,
		FileName:    f.FileName,
		FileSize:    &size,
		Status:      f.Status,
		ProcessedAt: formatTimePtr(f.ProcessedAt),
		UserID:      f.UserID,
	}
}

// toFile applies the read defaults: missing size is 0, missing status is
// "processing". A missing processedAt stays nil.
func toFile(rec fileRecord) (models.ProcessedFile, error) {
	f := models.ProcessedFile{
		FileID:   rec.FileID,
		FileName: rec.FileName,
		Status:   rec.Status,
		UserID:   rec.UserID,
	}
	if rec.FileSize != nil {
		f.FileSize = *rec.FileSize
	}
	if f.Status == "" {
		f.Status = models.FileStatusProcessing
	}
	var err error
	f.ProcessedAt, err = parseTimePtr("processedAt", rec.ProcessedAt)
	return f, err
}
