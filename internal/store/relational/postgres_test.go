package relational

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"session-handlers/internal/common/logger"
	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newStoreForTest(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, logger.NewTestLogger(t))
	s.now = func() time.Time { return t0 }
	return s, mock
}

// ==========================
// Session Lifecycle Queries
// ==========================

func TestStore_InsertSession(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectExec("INSERT INTO user_sessions").
		WithArgs("s1", "u1", t0, t0, true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.InsertSession(context.Background(), models.NewSession("s1", "u1", t0)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeactivateSession(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"active row closed", 1, true},
		{"already inactive or unknown", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newStoreForTest(t)
			mock.ExpectExec("UPDATE user_sessions").
				WithArgs(t0, "s1", "u1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			changed, err := s.DeactivateSession(context.Background(), "u1", "s1", t0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, changed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_RefreshUserActivity(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectQuery("UPDATE users").
		WithArgs("u1", t0).
		WillReturnRows(sqlmock.NewRows([]string{"active_sessions"}).AddRow(3))

	n, err := s.RefreshUserActivity(context.Background(), "u1", t0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mock.ExpectQuery("UPDATE users").WithArgs("ghost", t0).WillReturnError(sql.ErrNoRows)
	_, err = s.RefreshUserActivity(context.Background(), "ghost", t0)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ResetAllSessions(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectQuery("WITH closed AS").
		WithArgs(t0).
		WillReturnRows(sqlmock.NewRows([]string{"closed", "reset"}).AddRow(7, 4))

	res, err := s.ResetAllSessions(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, store.ResetResult{SessionsClosed: 7, UsersReset: 4}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ResetAllSessions_Error(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectQuery("WITH closed AS").WillReturnError(errors.New("connection refused"))

	_, err := s.ResetAllSessions(context.Background(), t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset sessions")
}

// ==========================
// Reconciler Upserts
// ==========================

func TestStore_UpsertUser(t *testing.T) {
	s, mock := newStoreForTest(t)
	u := &models.User{UserID: "u1", Email: "a@example.com", Name: "A", PasswordHash: "h", ActiveSessions: 1, IsCurrentlyActive: true}

	// zero createdAt falls back to now
	mock.ExpectExec("INSERT INTO users").
		WithArgs("u1", "a@example.com", "A", "h", true, 1, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := s.UpsertUser(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, changed)

	// guard matched nothing: row already up to date
	mock.ExpectExec("ON CONFLICT \\(user_id\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))
	changed, err = s.UpsertUser(context.Background(), u)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertUser_EmailOwnedByAnotherUser(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "users_email_key"`})

	_, err := s.UpsertUser(context.Background(), &models.User{UserID: "u2", Email: "a@example.com", CreatedAt: t0})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrEmailTaken)
	assert.Contains(t, err.Error(), "users_email_key")
}

func TestStore_UpsertSession_NullsMissingTimes(t *testing.T) {
	s, mock := newStoreForTest(t)
	sess := models.Session{SessionID: "s1", UserID: "u1", LoginTime: t0, IsActive: true}

	mock.ExpectExec("INSERT INTO user_sessions").
		WithArgs("s1", "u1", t0, nil, nil, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := s.UpsertSession(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertProcessedFile(t *testing.T) {
	s, mock := newStoreForTest(t)
	f := models.ProcessedFile{FileID: "f1", FileName: "a.csv", FileSize: 12}

	mock.ExpectExec("INSERT INTO processed_files").
		WithArgs("f1", "a.csv", int64(12), models.FileStatusProcessing, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := s.UpsertProcessedFile(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertProcessedFile_ForeignKey(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectExec("INSERT INTO processed_files").
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	_, err := s.UpsertProcessedFile(context.Background(), models.ProcessedFile{FileID: "f1", FileName: "a.csv", UserID: "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert file f1")
	assert.False(t, IsUniqueViolation(err))
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.Join(errors.New("insert"), &pq.Error{Code: "23505"})
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

// ==========================
// Dashboard Queries
// ==========================

func TestStore_Counts(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "sessions"}).AddRow(10, 4, 6))

	c, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.Counts{TotalUsers: 10, ActiveUsers: 4, ActiveSessions: 6}, c)
}

func TestStore_LatestProcessedFiles(t *testing.T) {
	s, mock := newStoreForTest(t)
	rows := sqlmock.NewRows([]string{"file_id", "file_name", "file_size", "status", "processed_at", "user_id"}).
		AddRow("f2", "b.csv", 200, "completed", t0, "u1").
		AddRow("f1", "a.csv", nil, nil, nil, nil)
	mock.ExpectQuery("FROM processed_files").WithArgs(5).WillReturnRows(rows)

	files, err := s.LatestProcessedFiles(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(200), files[0].FileSize)
	require.NotNil(t, files[0].ProcessedAt)
	assert.Equal(t, "u1", files[0].UserID)
	assert.Equal(t, int64(0), files[1].FileSize)
	assert.Nil(t, files[1].ProcessedAt)
	assert.Empty(t, files[1].UserID)
}

func TestStore_LatestProcessedFiles_Empty(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectQuery("FROM processed_files").
		WillReturnRows(sqlmock.NewRows([]string{"file_id", "file_name", "file_size", "status", "processed_at", "user_id"}))

	files, err := s.LatestProcessedFiles(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

// ==========================
// Schema And Analytics
// ==========================

func TestStore_EnsureSchema(t *testing.T) {
	s, mock := newStoreForTest(t)
	for range TableNames() {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	created, err := s.EnsureSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "user_sessions", "processed_files", "user_analytics", "file_processing_jobs", "daily_reports", "audit_logs"}, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnsureSchema_StopsOnError(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS user_sessions").WillReturnError(errors.New("permission denied"))

	created, err := s.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_sessions")
	assert.Equal(t, []string{"users"}, created)
}

func TestStore_Analytics(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("FROM user_analytics ua\\s+ORDER BY ua.created_at").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "session_duration", "pages_visited", "total_clicks", "feature_usage", "browser", "operating_system", "country", "created_at"}).
			AddRow("user-123", 1800, 15, "45", []byte(`{"dashboard":12}`), "Chrome", "Windows", nil, t0))
	mock.ExpectQuery("FROM file_processing_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "file_name", "file_size", "processing_status", "processing_steps", "quality_metrics", "processing_duration_seconds", "cpu_usage_percent", "created_at"}).
			AddRow("job-001", "document.pdf", 2048576, "completed", nil, nil, 12.5, nil, t0))
	mock.ExpectQuery("FROM daily_reports").
		WillReturnRows(sqlmock.NewRows([]string{"report_date", "total_users", "active_users", "files_processed", "avg_cpu_usage", "avg_memory_usage", "avg_session_duration", "avg_response_time"}).
			AddRow(t0, 100, 40, 12, "35.2", nil, nil, "120"))
	mock.ExpectQuery("::int > 30").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "features_used", "click_count"}).
			AddRow("user-123", []byte(`{"dashboard":12}`), 45))

	report, err := s.Analytics(context.Background())
	require.NoError(t, err)

	require.Len(t, report.UserAnalytics, 1)
	ua := report.UserAnalytics[0]
	require.NotNil(t, ua.TotalClicks)
	assert.Equal(t, "45", *ua.TotalClicks)
	assert.Nil(t, ua.Country)
	assert.JSONEq(t, `{"dashboard":12}`, string(ua.FeatureUsage))

	require.Len(t, report.ProcessingJobs, 1)
	assert.Equal(t, "null", string(report.ProcessingJobs[0].ProcessingSteps))
	require.NotNil(t, report.ProcessingJobs[0].ProcessingDurationSeconds)
	assert.Equal(t, 12.5, *report.ProcessingJobs[0].ProcessingDurationSeconds)

	require.Len(t, report.DailyReports, 1)
	assert.Equal(t, int64(40), report.DailyReports[0].ActiveUsers)

	assert.Equal(t, models.AnalyticsSummary{
		TotalAnalyticsRecords: 1,
		TotalProcessingJobs:   1,
		TotalDailyReports:     1,
		HighEngagementCount:   1,
	}, report.Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Analytics_FailsWhole(t *testing.T) {
	s, mock := newStoreForTest(t)
	mock.MatchExpectationsInOrder(false)

	empty := func(cols ...string) *sqlmock.Rows { return sqlmock.NewRows(cols) }
	mock.ExpectQuery("FROM user_analytics ua\\s+ORDER BY ua.created_at").WillReturnRows(empty("user_id"))
	mock.ExpectQuery("FROM file_processing_jobs").WillReturnError(errors.New(`relation "file_processing_jobs" does not exist`))
	mock.ExpectQuery("FROM daily_reports").WillReturnRows(empty("report_date"))
	mock.ExpectQuery("::int > 30").WillReturnRows(empty("user_id"))

	report, err := s.Analytics(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "processing jobs")
}
