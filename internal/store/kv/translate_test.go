package kv

import (
	"testing"
	"time"

	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUser_ParsesExistingTimestamps(t *testing.T) {
	rec := userRecord{
		UserID:    "u1",
		Email:     "a@b.com",
		CreatedAt: "2024-01-02T03:04:05.678Z",
		Sessions: []sessionRecord{
			{SessionID: "s1", LoginTime: "2024-01-02T03:04:05.678Z", IsActive: true},
			{SessionID: "s2", LoginTime: "2024-01-02T03:04:05Z", LastActivity: "2024-01-02T03:04:05Z", LogoutTime: "2024-01-02T04:00:00+00:00"},
		},
		TotalSessions:     2,
		ActiveSessions:    1,
		IsCurrentlyActive: true,
	}

	u, err := toUser(rec)
	require.NoError(t, err)
	assert.Equal(t, 678*time.Millisecond, time.Duration(u.CreatedAt.Nanosecond()))
	require.Len(t, u.Sessions, 2)
	assert.Nil(t, u.Sessions[0].LogoutTime)
	assert.True(t, u.Sessions[0].LastActivity.IsZero())
	require.NotNil(t, u.Sessions[1].LogoutTime)
	assert.Equal(t, 4, u.Sessions[1].LogoutTime.Hour())
	assert.Equal(t, "u1", u.Sessions[1].UserID)
}

func TestToUser_Malformed(t *testing.T) {
	u, err := toUser(userRecord{UserID: "u1", Sessions: []sessionRecord{{SessionID: "s1", LoginTime: "not a time"}}})
	assert.ErrorIs(t, err, store.ErrMalformedRecord)
	assert.Equal(t, "u1", u.UserID)
}

func TestFromUser_RoundTrip(t *testing.T) {
	login := time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC)
	logout := login.Add(time.Minute)
	u := &models.User{
		UserID:        "u1",
		Email:         "a@b.com",
		Name:          "A",
		PasswordHash:  "hash",
		CreatedAt:     login,
		LastLoginTime: &login,
		Sessions: []models.Session{
			{SessionID: "s1", UserID: "u1", LoginTime: login, LastActivity: login, LogoutTime: &logout},
		},
		TotalSessions: 1,
	}

	rec := fromUser(u)
	assert.Equal(t, "2024-05-06T07:08:09.123Z", rec.CreatedAt)
	assert.Equal(t, "hash", rec.Password)
	assert.Equal(t, "2024-05-06T07:09:09.123Z", rec.Sessions[0].LogoutTime)
	assert.Empty(t, rec.UpdatedAt)

	back, err := toUser(rec)
	require.NoError(t, err)
	assert.Equal(t, u, back)
}

func TestToFile_Defaults(t *testing.T) {
	f, err := toFile(fileRecord{FileID: "f1", FileName: "x.csv"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.FileSize)
	assert.Equal(t, models.FileStatusProcessing, f.Status)
	assert.Nil(t, f.ProcessedAt)

	size := int64(42)
	f, err = toFile(fileRecord{FileID: "f2", FileSize: &size, Status: "completed", ProcessedAt: "2024-01-01T00:00:00.000Z"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), f.FileSize)
	assert.Equal(t, "completed", f.Status)
	require.NotNil(t, f.ProcessedAt)
}
