// Package relational implements store.RelationalStore on PostgreSQL.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"session-handlers/internal/common/logger"
	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/lib/pq"
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

var _ store.RelationalStore = (*Store)(nil)

func New(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "postgres"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return nullTime(*t)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// IsUniqueViolation reports a 23505 error from the driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const insertSessionQuery = `
	INSERT INTO user_sessions (session_id, user_id, login_time, last_activity, is_active)
	VALUES ($1, $2, $3, $4, $5)`

func (s *Store) InsertSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx, insertSessionQuery,
		sess.SessionID, sess.UserID, sess.LoginTime, sess.LastActivity, sess.IsActive)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// deactivateSessionQuery only touches an active row, so logout_time is
// written once.
const deactivateSessionQuery = `
	UPDATE user_sessions
	SET is_active = false, logout_time = $1
	WHERE session_id = $2 AND user_id = $3 AND is_active = true`

func (s *Store) DeactivateSession(ctx context.Context, userID, sessionID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, deactivateSessionQuery, at, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("deactivate session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate session: %w", err)
	}
	return n > 0, nil
}

const refreshUserActivityQuery = `
	UPDATE users
	SET active_sessions = c.n, is_currently_active = c.n > 0, updated_at = $2
	FROM (
		SELECT COUNT(*) AS n FROM user_sessions WHERE user_id = $1 AND is_active = true
	) c
	WHERE users.user_id = $1
	RETURNING users.active_sessions`

func (s *Store) RefreshUserActivity(ctx context.Context, userID string, at time.Time) (int, error) {
	var active int
	err := s.db.QueryRowContext(ctx, refreshUserActivityQuery, userID, at).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", store.ErrUserNotFound, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("refresh user activity: %w", err)
	}
	return active, nil
}

// resetAllSessionsQuery closes every active session and zeroes every user in
// one statement.
const resetAllSessionsQuery = `
	WITH closed AS (
		UPDATE user_sessions
		SET is_active = false, logout_time = COALESCE(logout_time, $1)
		WHERE is_active = true
		RETURNING session_id
	), reset AS (
		UPDATE users
		SET is_currently_active = false, active_sessions = 0, updated_at = $1
		RETURNING user_id
	)
	SELECT (SELECT COUNT(*) FROM closed), (SELECT COUNT(*) FROM reset)`

func (s *Store) ResetAllSessions(ctx context.Context, at time.Time) (store.ResetResult, error) {
	var res store.ResetResult
	err := s.db.QueryRowContext(ctx, resetAllSessionsQuery, at).Scan(&res.SessionsClosed, &res.UsersReset)
	if err != nil {
		return store.ResetResult{}, fmt.Errorf("reset sessions: %w", err)
	}
	return res, nil
}

// upsertUserQuery never overwrites email, name, password or created_at. The
// WHERE guard skips rows whose aggregates already match so a repeated sync
// leaves them untouched.
const upsertUserQuery = `
	INSERT INTO users (user_id, email, name, password, is_currently_active, active_sessions, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (user_id) DO UPDATE SET
		is_currently_active = EXCLUDED.is_currently_active,
		active_sessions = EXCLUDED.active_sessions,
		updated_at = CURRENT_TIMESTAMP
	WHERE users.is_currently_active IS DISTINCT FROM EXCLUDED.is_currently_active
		OR users.active_sessions IS DISTINCT FROM EXCLUDED.active_sessions`

func (s *Store) UpsertUser(ctx context.Context, u *models.User) (bool, error) {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, upsertUserQuery,
		u.UserID, u.Email, u.Name, u.PasswordHash, u.IsCurrentlyActive, u.ActiveSessions, createdAt)
	if IsUniqueViolation(err) {
		// another user_id already owns this email
		return false, fmt.Errorf("upsert user %s: %w: %v", u.UserID, store.ErrEmailTaken, err)
	}
	if err != nil {
		return false, fmt.Errorf("upsert user %s: %w", u.UserID, err)
	}
	return affected(res)
}

// upsertSessionQuery keeps login_time from the first insert. A missing
// last_activity falls back to login_time, then to the stored value.
const upsertSessionQuery = `
	INSERT INTO user_sessions (session_id, user_id, login_time, logout_time, last_activity, is_active)
	VALUES ($1, $2, COALESCE($3, CURRENT_TIMESTAMP), $4, COALESCE($5, $3, CURRENT_TIMESTAMP), $6)
	ON CONFLICT (session_id) DO UPDATE SET
		logout_time = EXCLUDED.logout_time,
		last_activity = COALESCE($5, $3, user_sessions.last_activity),
		is_active = EXCLUDED.is_active
	WHERE user_sessions.logout_time IS DISTINCT FROM EXCLUDED.logout_time
		OR user_sessions.last_activity IS DISTINCT FROM COALESCE($5, $3, user_sessions.last_activity)
		OR user_sessions.is_active IS DISTINCT FROM EXCLUDED.is_active`

func (s *Store) UpsertSession(ctx context.Context, sess models.Session) (bool, error) {
	res, err := s.db.ExecContext(ctx, upsertSessionQuery,
		sess.SessionID, sess.UserID,
		nullTime(sess.LoginTime), nullTimePtr(sess.LogoutTime), nullTime(sess.LastActivity),
		sess.IsActive)
	if err != nil {
		return false, fmt.Errorf("upsert session %s: %w", sess.SessionID, err)
	}
	return affected(res)
}

const upsertProcessedFileQuery = `
	INSERT INTO processed_files (file_id, file_name, file_size, status, processed_at, user_id)
	VALUES ($1, $2, $3, $4, COALESCE($5, CURRENT_TIMESTAMP), $6)
	ON CONFLICT (file_id) DO UPDATE SET
		status = EXCLUDED.status,
		processed_at = COALESCE($5, processed_files.processed_at)
	WHERE processed_files.status IS DISTINCT FROM EXCLUDED.status
		OR processed_files.processed_at IS DISTINCT FROM COALESCE($5, processed_files.processed_at)`

func (s *Store) UpsertProcessedFile(ctx context.Context, f models.ProcessedFile) (bool, error) {
	status := f.Status
	if status == "" {
		status = models.FileStatusProcessing
	}
	res, err := s.db.ExecContext(ctx, upsertProcessedFileQuery,
		f.FileID, f.FileName, f.FileSize, status, nullTimePtr(f.ProcessedAt), nullString(f.UserID))
	if err != nil {
		return false, fmt.Errorf("upsert file %s: %w", f.FileID, err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const countsQuery = `
	SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM users WHERE is_currently_active = true),
		(SELECT COUNT(*) FROM user_sessions WHERE is_active = true)`

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	var c store.Counts
	if err := s.db.QueryRowContext(ctx, countsQuery).Scan(&c.TotalUsers, &c.ActiveUsers, &c.ActiveSessions); err != nil {
		return store.Counts{}, fmt.Errorf("counts: %w", err)
	}
	return c, nil
}

const latestProcessedFilesQuery = `
	SELECT file_id, file_name, file_size, status, processed_at, user_id
	FROM processed_files
	ORDER BY processed_at DESC
	LIMIT $1`

func (s *Store) LatestProcessedFiles(ctx context.Context, limit int) ([]models.ProcessedFile, error) {
	rows, err := s.db.QueryContext(ctx, latestProcessedFilesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("latest files: %w", err)
	}
	defer rows.Close()

	files := []models.ProcessedFile{}
	for rows.Next() {
		var (
			f           models.ProcessedFile
			size        sql.NullInt64
			status      sql.NullString
			processedAt sql.NullTime
			userID      sql.NullString
		)
		if err := rows.Scan(&f.FileID, &f.FileName, &size, &status, &processedAt, &userID); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		f.FileSize = size.Int64
		f.Status = status.String
		f.UserID = userID.String
		if processedAt.Valid {
			t := processedAt.Time
			f.ProcessedAt = &t
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest files: %w", err)
	}
	return files, nil
}
