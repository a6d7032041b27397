// Package storetest provides testify mocks of the store capabilities for
// packages that sit above the adapters.
package storetest

import (
	"context"
	"time"

	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/stretchr/testify/mock"
)

type MockRelational struct {
	mock.Mock
}

var _ store.RelationalStore = (*MockRelational)(nil)

func (m *MockRelational) InsertSession(ctx context.Context, s models.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRelational) DeactivateSession(ctx context.Context, userID, sessionID string, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, sessionID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockRelational) RefreshUserActivity(ctx context.Context, userID string, at time.Time) (int, error) {
	args := m.Called(ctx, userID, at)
	return args.Int(0), args.Error(1)
}

func (m *MockRelational) ResetAllSessions(ctx context.Context, at time.Time) (store.ResetResult, error) {
	args := m.Called(ctx, at)
	return args.Get(0).(store.ResetResult), args.Error(1)
}

func (m *MockRelational) UpsertUser(ctx context.Context, u *models.User) (bool, error) {
	args := m.Called(ctx, u)
	return args.Bool(0), args.Error(1)
}

func (m *MockRelational) UpsertSession(ctx context.Context, s models.Session) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *MockRelational) UpsertProcessedFile(ctx context.Context, f models.ProcessedFile) (bool, error) {
	args := m.Called(ctx, f)
	return args.Bool(0), args.Error(1)
}

func (m *MockRelational) Counts(ctx context.Context) (store.Counts, error) {
	args := m.Called(ctx)
	return args.Get(0).(store.Counts), args.Error(1)
}

func (m *MockRelational) LatestProcessedFiles(ctx context.Context, limit int) ([]models.ProcessedFile, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessedFile), args.Error(1)
}

func (m *MockRelational) Analytics(ctx context.Context) (*models.AnalyticsReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalyticsReport), args.Error(1)
}

func (m *MockRelational) EnsureSchema(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRelational) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockKV is used where a scripted failure is easier to express than with a
// real backend.
type MockKV struct {
	mock.Mock

	// Users and Files are replayed to the scan visitors.
	Users []ScannedUser
	Files []models.ProcessedFile
}

type ScannedUser struct {
	User *models.User
	Err  error
}

var _ store.KVStore = (*MockKV)(nil)

func (m *MockKV) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockKV) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockKV) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockKV) SaveSessions(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

// ScanUsers replays Users and then returns the mocked error.
func (m *MockKV) ScanUsers(ctx context.Context, fn store.UserVisitor) error {
	args := m.Called(ctx)
	for _, rec := range m.Users {
		if err := fn(rec.User, rec.Err); err != nil {
			return err
		}
	}
	return args.Error(0)
}

func (m *MockKV) CountUsers(ctx context.Context, activeOnly bool) (int, error) {
	args := m.Called(ctx, activeOnly)
	return args.Int(0), args.Error(1)
}

func (m *MockKV) SumActiveSessions(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockKV) PutProcessedFile(ctx context.Context, f models.ProcessedFile) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockKV) ListProcessedFiles(ctx context.Context, limit int) ([]models.ProcessedFile, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessedFile), args.Error(1)
}

func (m *MockKV) ScanProcessedFiles(ctx context.Context, fn store.FileVisitor) error {
	args := m.Called(ctx)
	for _, f := range m.Files {
		if err := fn(f, nil); err != nil {
			return err
		}
	}
	return args.Error(0)
}
