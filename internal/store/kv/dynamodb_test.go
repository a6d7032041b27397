package kv

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"session-handlers/internal/common/logger"
	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestUser(id, email string, active int, inactive int) *models.User {
	u := &models.User{
		UserID:       id,
		Email:        email,
		Name:         "User " + id,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    t0,
	}
	for i := 0; i < active; i++ {
		u.Sessions = append(u.Sessions, models.NewSession(fmt.Sprintf("%s-a%d", id, i), id, t0.Add(time.Duration(i)*time.Minute)))
	}
	for i := 0; i < inactive; i++ {
		s := models.NewSession(fmt.Sprintf("%s-i%d", id, i), id, t0)
		out := t0.Add(time.Hour)
		s.IsActive = false
		s.LogoutTime = &out
		u.Sessions = append(u.Sessions, s)
	}
	u.TotalSessions = len(u.Sessions)
	u.ActiveSessions = active
	u.IsCurrentlyActive = active > 0
	return u
}

func newDynamoForTest(t *testing.T) (*DynamoStore, *fakeDynamo) {
	t.Helper()
	fake := newFakeDynamo()
	s := NewDynamoStore(fake, testDynamoConfig(), logger.NewTestLogger(t))
	s.now = func() time.Time { return t0.Add(2 * time.Hour) }
	return s, fake
}

func TestDynamoStore_CreateAndGetUser(t *testing.T) {
	s, _ := newDynamoForTest(t)
	ctx := context.Background()

	u := newTestUser("u1", "alice@example.com", 1, 1)
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
	assert.True(t, got.CreatedAt.Equal(t0))
	require.Len(t, got.Sessions, 2)
	assert.True(t, got.Sessions[0].IsActive)
	assert.Nil(t, got.Sessions[0].LogoutTime)
	require.NotNil(t, got.Sessions[1].LogoutTime)
	assert.True(t, got.Sessions[1].LogoutTime.Equal(t0.Add(time.Hour)))
	assert.Equal(t, "u1", got.Sessions[1].UserID)
	assert.Equal(t, 1, got.ActiveSessions)
}

func TestDynamoStore_CreateUser_DuplicateID(t *testing.T) {
	s, _ := newDynamoForTest(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("u1", "a@example.com", 0, 0)))
	err := s.CreateUser(ctx, newTestUser("u1", "b@example.com", 0, 0))
	assert.ErrorIs(t, err, store.ErrUserExists)
}

func TestDynamoStore_GetUser_NotFound(t *testing.T) {
	s, _ := newDynamoForTest(t)
	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestDynamoStore_FindUserByEmail(t *testing.T) {
	s, _ := newDynamoForTest(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newTestUser("u1", "alice@example.com", 0, 0)))
	require.NoError(t, s.CreateUser(ctx, newTestUser("u2", "bob@example.com", 0, 0)))

	got, err := s.FindUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.UserID)

	_, err = s.FindUserByEmail(ctx, "carol@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestDynamoStore_SaveSessions(t *testing.T) {
	s, fake := newDynamoForTest(t)
	ctx := context.Background()
	u := newTestUser("u1", "alice@example.com", 0, 0)
	require.NoError(t, s.CreateUser(ctx, u))

	u.Sessions = append(u.Sessions, models.NewSession("s1", "u1", t0))
	u.TotalSessions, u.ActiveSessions, u.IsCurrentlyActive = 1, 1, true
	login := t0
	u.LastLoginTime = &login
	require.NoError(t, s.SaveSessions(ctx, u))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, "s1", got.Sessions[0].SessionID)
	assert.Equal(t, 1, got.TotalSessions)
	assert.True(t, got.IsCurrentlyActive)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(2*time.Hour)))

	// immutable fields survive the update
	item := fake.get("Users", "u1")
	assert.Equal(t, "$2a$10$hash", strAttr(item, "password"))
	assert.Equal(t, "2024-03-01T09:30:00.000Z", strAttr(item, "lastLoginTime"))
}

func TestDynamoStore_SaveSessions_MissingUser(t *testing.T) {
	s, fake := newDynamoForTest(t)
	err := s.SaveSessions(context.Background(), newTestUser("ghost", "g@example.com", 1, 0))
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.Nil(t, fake.get("Users", "ghost"))
}

func TestDynamoStore_ScanUsers_Paginates(t *testing.T) {
	s, fake := newDynamoForTest(t)
	fake.pageSize = 2
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateUser(ctx, newTestUser(fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@example.com", i), 0, 0)))
	}

	var seen []string
	err := s.ScanUsers(ctx, func(u *models.User, err error) error {
		require.NoError(t, err)
		seen = append(seen, u.UserID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u0", "u1", "u2", "u3", "u4"}, seen)
	assert.Equal(t, 3, fake.scans)
}

func TestDynamoStore_ScanUsers_ReportsMalformedRecords(t *testing.T) {
	s, fake := newDynamoForTest(t)
	fake.put("Users", map[string]types.AttributeValue{
		"userId":    &types.AttributeValueMemberS{Value: "bad"},
		"email":     &types.AttributeValueMemberS{Value: "bad@example.com"},
		"createdAt": &types.AttributeValueMemberS{Value: "yesterday"},
	})

	var gotErr error
	var gotID string
	err := s.ScanUsers(context.Background(), func(u *models.User, err error) error {
		gotErr, gotID = err, u.UserID
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, gotErr, store.ErrMalformedRecord)
	assert.Equal(t, "bad", gotID)
}

func TestDynamoStore_ScanUsers_VisitorStops(t *testing.T) {
	s, _ := newDynamoForTest(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newTestUser("u1", "a@example.com", 0, 0)))
	require.NoError(t, s.CreateUser(ctx, newTestUser("u2", "b@example.com", 0, 0)))

	stop := errors.New("stop")
	calls := 0
	err := s.ScanUsers(ctx, func(*models.User, error) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDynamoStore_Counts(t *testing.T) {
	s, fake := newDynamoForTest(t)
	fake.pageSize = 2
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newTestUser("u1", "a@example.com", 2, 1)))
	require.NoError(t, s.CreateUser(ctx, newTestUser("u2", "b@example.com", 0, 3)))
	require.NoError(t, s.CreateUser(ctx, newTestUser("u3", "c@example.com", 1, 0)))

	total, err := s.CountUsers(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	active, err := s.CountUsers(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, active)

	sessions, err := s.SumActiveSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sessions)
}

func TestDynamoStore_ProcessedFiles(t *testing.T) {
	s, fake := newDynamoForTest(t)
	ctx := context.Background()

	older := t0.Add(-time.Hour)
	require.NoError(t, s.PutProcessedFile(ctx, models.ProcessedFile{
		FileID: "f1", FileName: "old.csv", FileSize: 10, Status: models.FileStatusCompleted, ProcessedAt: &older, UserID: "u1",
	}))
	require.NoError(t, s.PutProcessedFile(ctx, models.ProcessedFile{
		FileID: "f2", FileName: "new.csv", FileSize: 20, Status: models.FileStatusFailed, ProcessedAt: &t0, UserID: "u1",
	}))
	// legacy record without size or status
	fake.put("ProcessedFiles", map[string]types.AttributeValue{
		"fileId":   &types.AttributeValueMemberS{Value: "f3"},
		"fileName": &types.AttributeValueMemberS{Value: "legacy.pdf"},
	})

	files, err := s.ListProcessedFiles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "f2", files[0].FileID)
	assert.Equal(t, "f1", files[1].FileID)
	assert.Equal(t, "f3", files[2].FileID)
	assert.Equal(t, int64(0), files[2].FileSize)
	assert.Equal(t, models.FileStatusProcessing, files[2].Status)

	limited, err := s.ListProcessedFiles(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	var ids []string
	require.NoError(t, s.ScanProcessedFiles(ctx, func(f models.ProcessedFile, err error) error {
		require.NoError(t, err)
		ids = append(ids, f.FileID)
		return nil
	}))
	assert.ElementsMatch(t, []string{"f1", "f2", "f3"}, ids)
}

func TestDynamoStore_APIErrorsAreWrapped(t *testing.T) {
	s, fake := newDynamoForTest(t)
	fake.err = errors.New("ProvisionedThroughputExceededException")
	ctx := context.Background()

	_, err := s.GetUser(ctx, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get user")
	assert.NotErrorIs(t, err, store.ErrUserNotFound)

	_, err = s.FindUserByEmail(ctx, "a@example.com")
	assert.Contains(t, err.Error(), "query email index")

	_, err = s.CountUsers(ctx, false)
	assert.Contains(t, err.Error(), "count users")

	err = s.ScanUsers(ctx, func(*models.User, error) error { return nil })
	assert.Contains(t, err.Error(), "scan users")
}
