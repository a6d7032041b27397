package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"session-handlers/internal/common/logger"
	"session-handlers/internal/models"
	"session-handlers/internal/store"
	"session-handlers/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func files(ids ...string) []models.ProcessedFile {
	out := make([]models.ProcessedFile, len(ids))
	for i, id := range ids {
		at := t0.Add(-time.Duration(i) * time.Minute)
		out[i] = models.ProcessedFile{FileID: id, FileName: id + ".csv", FileSize: 100, Status: models.FileStatusCompleted, ProcessedAt: &at, UserID: "u1"}
	}
	return out
}

func healthyKV(limit int) *storetest.MockKV {
	kv := &storetest.MockKV{}
	kv.On("CountUsers", mock.Anything, false).Return(10, nil)
	kv.On("CountUsers", mock.Anything, true).Return(4, nil)
	kv.On("SumActiveSessions", mock.Anything).Return(6, nil)
	kv.On("ListProcessedFiles", mock.Anything, limit).Return(files("k1", "k2"), nil)
	return kv
}

func healthyRelational(limit int) *storetest.MockRelational {
	rel := &storetest.MockRelational{}
	rel.On("Counts", mock.Anything).Return(store.Counts{TotalUsers: 8, ActiveUsers: 3, ActiveSessions: 5}, nil)
	rel.On("LatestProcessedFiles", mock.Anything, limit).Return(files("p1"), nil)
	return rel
}

// ==========================
// Counts View
// ==========================

func TestReader_Counts(t *testing.T) {
	kv := healthyKV(DefaultFilesLimit)
	r := NewReader(kv, nil, Limits{}, logger.NewTestLogger(t))

	view, err := r.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, view.TotalUsers)
	assert.Equal(t, 4, view.ActiveUsers)
	assert.Equal(t, 6, view.ActiveSessions)
	require.Len(t, view.ProcessedData, 2)
	item := view.ProcessedData[0]
	assert.Equal(t, "k1", item.ID)
	assert.Equal(t, "file", item.Type)
	assert.Empty(t, item.Source)
	assert.Equal(t, "k1.csv", item.Data.FileName)
	kv.AssertExpectations(t)
}

func TestReader_Counts_OptionalPartsDegrade(t *testing.T) {
	kv := &storetest.MockKV{}
	kv.On("CountUsers", mock.Anything, false).Return(3, nil)
	kv.On("CountUsers", mock.Anything, true).Return(1, nil)
	kv.On("SumActiveSessions", mock.Anything).Return(0, errors.New("scan throttled"))
	kv.On("ListProcessedFiles", mock.Anything, 7).Return(nil, errors.New("ResourceNotFoundException"))

	view, err := NewReader(kv, nil, Limits{Files: 7}, logger.NewTestLogger(t)).Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, view.TotalUsers)
	assert.Zero(t, view.ActiveSessions)
	assert.NotNil(t, view.ProcessedData)
	assert.Empty(t, view.ProcessedData)
}

func TestReader_Counts_RequiredCountFails(t *testing.T) {
	kv := &storetest.MockKV{}
	kv.On("CountUsers", mock.Anything, false).Return(0, errors.New("AccessDeniedException"))
	kv.On("CountUsers", mock.Anything, true).Return(1, nil).Maybe()
	kv.On("SumActiveSessions", mock.Anything).Return(0, nil).Maybe()
	kv.On("ListProcessedFiles", mock.Anything, mock.Anything).Return(files(), nil).Maybe()

	_, err := NewReader(kv, nil, Limits{}, logger.NewTestLogger(t)).Counts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDeniedException")
}

// ==========================
// Hybrid View
// ==========================

func TestReader_Hybrid_SumsBothStores(t *testing.T) {
	kv := healthyKV(DefaultHybridFilesLimit)
	rel := healthyRelational(DefaultHybridFilesLimit)

	view := NewReader(kv, rel, Limits{}, logger.NewTestLogger(t)).Hybrid(context.Background())
	assert.Equal(t, 18, view.TotalUsers)
	assert.Equal(t, 7, view.ActiveUsers)
	assert.Equal(t, 11, view.ActiveSessions)
	require.Len(t, view.ProcessedData, 3)
	assert.Equal(t, SourceKV, view.ProcessedData[0].Source)
	assert.Equal(t, SourceKV, view.ProcessedData[1].Source)
	assert.Equal(t, SourceRelational, view.ProcessedData[2].Source)
	assert.Equal(t, SourceBreakdown{Users: 10, ActiveUsers: 4, ProcessedFiles: 2}, view.DataSources["dynamodb"])
	assert.Equal(t, SourceBreakdown{Users: 8, ActiveUsers: 3, ProcessedFiles: 1}, view.DataSources["postgresql"])
}

func TestReader_Hybrid_RelationalDown(t *testing.T) {
	kv := healthyKV(DefaultHybridFilesLimit)
	rel := &storetest.MockRelational{}
	rel.On("Counts", mock.Anything).Return(store.Counts{}, errors.New("dial tcp: connection refused"))
	rel.On("LatestProcessedFiles", mock.Anything, mock.Anything).Return(files("p1"), nil).Maybe()

	view := NewReader(kv, rel, Limits{}, logger.NewTestLogger(t)).Hybrid(context.Background())
	assert.Equal(t, 10, view.TotalUsers)
	assert.Equal(t, 6, view.ActiveSessions)
	assert.Len(t, view.ProcessedData, 2)
	assert.Equal(t, SourceBreakdown{}, view.DataSources["postgresql"])
}

func TestReader_Hybrid_KVDown(t *testing.T) {
	kv := &storetest.MockKV{}
	kv.On("CountUsers", mock.Anything, false).Return(10, nil).Maybe()
	kv.On("CountUsers", mock.Anything, true).Return(0, errors.New("throttled"))
	kv.On("SumActiveSessions", mock.Anything).Return(6, nil).Maybe()
	kv.On("ListProcessedFiles", mock.Anything, mock.Anything).Return(files("k1"), nil).Maybe()
	rel := healthyRelational(DefaultHybridFilesLimit)

	view := NewReader(kv, rel, Limits{}, logger.NewTestLogger(t)).Hybrid(context.Background())
	assert.Equal(t, 8, view.TotalUsers)
	assert.Equal(t, 3, view.ActiveUsers)
	assert.Equal(t, 5, view.ActiveSessions)
	require.Len(t, view.ProcessedData, 1)
	assert.Equal(t, SourceRelational, view.ProcessedData[0].Source)
	assert.Equal(t, SourceBreakdown{}, view.DataSources["dynamodb"])
}

func TestReader_Hybrid_BothDown(t *testing.T) {
	kv := &storetest.MockKV{}
	kv.On("CountUsers", mock.Anything, mock.Anything).Return(0, errors.New("down"))
	kv.On("SumActiveSessions", mock.Anything).Return(0, errors.New("down")).Maybe()
	kv.On("ListProcessedFiles", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Maybe()
	rel := &storetest.MockRelational{}
	rel.On("Counts", mock.Anything).Return(store.Counts{}, errors.New("down"))
	rel.On("LatestProcessedFiles", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Maybe()

	view := NewReader(kv, rel, Limits{}, logger.NewTestLogger(t)).Hybrid(context.Background())
	assert.Zero(t, view.TotalUsers)
	assert.NotNil(t, view.ProcessedData)
	assert.Empty(t, view.ProcessedData)
}

// ==========================
// Users Listing
// ==========================

func TestReader_Users(t *testing.T) {
	kv := &storetest.MockKV{Users: []storetest.ScannedUser{
		{User: &models.User{UserID: "u1", Email: "a@b.com", Name: "A", PasswordHash: "$2a$10$hash"}},
		{Err: errors.New("malformed record")},
		{User: &models.User{UserID: "u2", Email: "c@d.com", Name: "C", PasswordHash: "$2a$10$hash"}},
	}}
	kv.On("ScanUsers", mock.Anything).Return(nil)

	users, err := NewReader(kv, nil, Limits{}, logger.NewTestLogger(t)).Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].UserID)
	assert.Equal(t, "u2", users[1].UserID)
}

func TestReader_Users_ScanFails(t *testing.T) {
	kv := &storetest.MockKV{}
	kv.On("ScanUsers", mock.Anything).Return(errors.New("AccessDeniedException"))

	_, err := NewReader(kv, nil, Limits{}, logger.NewTestLogger(t)).Users(context.Background())
	assert.ErrorContains(t, err, "AccessDeniedException")
}
