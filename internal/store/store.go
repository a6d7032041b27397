// Package store declares the two datastore capabilities the session engine,
// reconciler and dashboard are written against. Adapters live in the kv and
// relational subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"session-handlers/internal/models"
)

const (
	NameKV         = "kv"
	NameRelational = "relational"
)

var (
	ErrUserNotFound    = errors.New("USER_NOT_FOUND")
	ErrEmailTaken      = errors.New("EMAIL_TAKEN")
	ErrUserExists      = errors.New("USER_EXISTS")
	ErrMalformedRecord = errors.New("MALFORMED_RECORD")
)

// UserVisitor receives each scanned user. A non-nil err reports a record that
// could not be decoded; u then carries whatever identity was recoverable.
// Returning an error stops the scan.
type UserVisitor func(u *models.User, err error) error

type FileVisitor func(f models.ProcessedFile, err error) error

// KVStore is the primary store: one wide record per user with its sessions
// embedded.
type KVStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// SaveSessions overwrites the session list and the aggregate fields of an
	// existing user record. Last write wins.
	SaveSessions(ctx context.Context, u *models.User) error
	ScanUsers(ctx context.Context, fn UserVisitor) error
	CountUsers(ctx context.Context, activeOnly bool) (int, error)
	SumActiveSessions(ctx context.Context) (int, error)

	PutProcessedFile(ctx context.Context, f models.ProcessedFile) error
	ListProcessedFiles(ctx context.Context, limit int) ([]models.ProcessedFile, error)
	ScanProcessedFiles(ctx context.Context, fn FileVisitor) error
}

// Counts is the aggregate triple the dashboard reports per store.
type Counts struct {
	TotalUsers     int `json:"totalUsers"`
	ActiveUsers    int `json:"activeUsers"`
	ActiveSessions int `json:"activeSessions"`
}

// ResetResult reports how many rows the bulk reset touched.
type ResetResult struct {
	SessionsClosed int64
	UsersReset     int64
}

// RelationalStore mirrors users and sessions as normalized rows.
type RelationalStore interface {
	InsertSession(ctx context.Context, s models.Session) error
	DeactivateSession(ctx context.Context, userID, sessionID string, at time.Time) (bool, error)
	// RefreshUserActivity recounts active session rows and stores the result
	// on the user row.
	RefreshUserActivity(ctx context.Context, userID string, at time.Time) (int, error)
	ResetAllSessions(ctx context.Context, at time.Time) (ResetResult, error)

	// Upserts report whether a row was inserted or changed.
	UpsertUser(ctx context.Context, u *models.User) (bool, error)
	UpsertSession(ctx context.Context, s models.Session) (bool, error)
	UpsertProcessedFile(ctx context.Context, f models.ProcessedFile) (bool, error)

	Counts(ctx context.Context) (Counts, error)
	LatestProcessedFiles(ctx context.Context, limit int) ([]models.ProcessedFile, error)
	Analytics(ctx context.Context) (*models.AnalyticsReport, error)
	EnsureSchema(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}
