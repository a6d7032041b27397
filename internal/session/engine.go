package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "session-handlers/internal/common/errors"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/common/metrics"
	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Hasher is the password capability the engine needs.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// Notifier receives best-effort side notifications. Failures are logged only.
type Notifier interface {
	UserRegistered(ctx context.Context, u *models.User) error
	Report(ctx context.Context, subject string, payload interface{}) error
}

// Outcome is the result of one store write. The caller only sees success or
// failure, the per-store outcomes are kept for logging and tests.
type Outcome struct {
	Store     string
	Operation string
	Err       error
	Skipped   bool
}

func (o Outcome) OK() bool { return o.Err == nil }

type Options struct {
	KV         store.KVStore
	Relational store.RelationalStore
	Hasher     Hasher
	Notifier   Notifier
	Logger     logger.Logger
	Now        func() time.Time
	NewID      func() string
}

type Engine struct {
	kv       store.KVStore
	rel      store.RelationalStore
	hasher   Hasher
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
	newID    func() string
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		kv:       opts.KV,
		rel:      opts.Relational,
		hasher:   opts.Hasher,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if e.logger == nil {
		e.logger = logger.NewNoOpLogger()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}
	return e
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates the user in the KV store only; the relational copy arrives
// with the next sync.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	log := e.logger.WithFields(map[string]interface{}{"email": logger.MaskEmail(email)})

	existing, err := e.kv.FindUserByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		log.Info("registration rejected, email already registered", nil)
		return nil, apperrors.NewConflictError("User with this email already exists")
	case err != nil && !errors.Is(err, store.ErrUserNotFound):
		return nil, apperrors.NewStoreError(store.NameKV, "find_user_by_email", err)
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := e.now()
	u := &models.User{
		UserID:       e.newID(),
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		Sessions:     []models.Session{},
	}
	if err := e.kv.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrEmailTaken) || errors.Is(err, store.ErrUserExists) {
			return nil, apperrors.NewConflictError("User with this email already exists")
		}
		return nil, apperrors.NewStoreError(store.NameKV, "create_user", err)
	}

	log.Info("user registered", map[string]interface{}{"userId": u.UserID})

	if e.notifier != nil {
		if err := e.notifier.UserRegistered(ctx, u); err != nil {
			log.Warn("welcome notification failed", map[string]interface{}{"error": err})
		}
	}
	return u, nil
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	User      models.PublicUser
	SessionID string
	Outcomes  []Outcome
}

// Login verifies credentials against the KV store and opens a new session.
// The KV write decides the result; the relational mirror may fail silently.
// Two concurrent logins for one user race on the session list and the later
// write wins.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	log := e.logger.WithFields(map[string]interface{}{"email": logger.MaskEmail(email)})

	u, err := e.kv.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Info("login rejected, no such user", nil)
			return nil, apperrors.NewInvalidCredentialsError()
		}
		return nil, apperrors.NewStoreError(store.NameKV, "find_user_by_email", err)
	}
	if !e.hasher.Verify(u.PasswordHash, password) {
		log.Info("login rejected, password mismatch", map[string]interface{}{"userId": u.UserID})
		return nil, apperrors.NewInvalidCredentialsError()
	}

	now := e.now()
	s := models.NewSession(e.newID(), u.UserID, now)
	AppendSession(u, s)

	primary, mirror := e.dualWrite(ctx, "append_session",
		func(ctx context.Context) error { return e.kv.SaveSessions(ctx, u) },
		func(ctx context.Context) error {
			if err := e.rel.InsertSession(ctx, s); err != nil {
				return err
			}
			_, err := e.rel.RefreshUserActivity(ctx, u.UserID, now)
			return err
		},
	)
	if primary.Err != nil {
		return nil, apperrors.NewStoreError(store.NameKV, "append_session", primary.Err)
	}

	log.Info("login successful", map[string]interface{}{
		"userId":         u.UserID,
		"sessionId":      s.SessionID,
		"activeSessions": u.ActiveSessions,
		"mirrored":       mirror.OK(),
	})

	return &LoginResult{
		User:      u.Public(),
		SessionID: s.SessionID,
		Outcomes:  []Outcome{primary, mirror},
	}, nil
}

// LogoutOutcome reports the effect of a logout on each store.
type LogoutOutcome struct {
	Result   LogoutResult
	Outcomes []Outcome
}

// Logout closes one session. A missing user is NotFound; an unknown session
// id is a successful no-op that writes nothing.
func (e *Engine) Logout(ctx context.Context, userID, sessionID string) (*LogoutOutcome, error) {
	log := e.logger.WithFields(map[string]interface{}{"userId": userID, "sessionId": sessionID})

	u, err := e.kv.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		return nil, apperrors.NewStoreError(store.NameKV, "get_user", err)
	}

	now := e.now()
	result := DeactivateSession(u, sessionID, now)
	var saveKV func(context.Context) error
	if result == SessionDeactivated {
		saveKV = func(ctx context.Context) error { return e.kv.SaveSessions(ctx, u) }
	}
	primary, mirror := e.dualWrite(ctx, "deactivate_session", saveKV,
		func(ctx context.Context) error {
			changed, err := e.rel.DeactivateSession(ctx, userID, sessionID, now)
			if err != nil || !changed {
				return err
			}
			_, err = e.rel.RefreshUserActivity(ctx, userID, now)
			return err
		},
	)
	if primary.Err != nil {
		return nil, apperrors.NewStoreError(store.NameKV, "deactivate_session", primary.Err)
	}

	log.Info("logout processed", map[string]interface{}{
		"result":         result.String(),
		"activeSessions": u.ActiveSessions,
		"mirrored":       mirror.OK(),
	})

	return &LogoutOutcome{Result: result, Outcomes: []Outcome{primary, mirror}}, nil
}

// ResetReport summarizes a daily reset run.
type ResetReport struct {
	UsersReset       int
	Failed           int
	RelationalResult store.ResetResult
	RelationalErr    error
	Timestamp        time.Time
}

// ResetDaily closes every session. KV records are rewritten one by one, the
// relational side, when configured, gets one bulk statement. Users without sessions are skipped
// and not counted.
func (e *Engine) ResetDaily(ctx context.Context) (*ResetReport, error) {
	now := e.now()
	report := &ResetReport{Timestamp: now}

	err := e.kv.ScanUsers(ctx, func(u *models.User, decodeErr error) error {
		if decodeErr != nil {
			report.Failed++
			e.logger.Warn("skipping unreadable user record", map[string]interface{}{"error": decodeErr})
			return nil
		}
		if !DeactivateAll(u, now) {
			return nil
		}
		if err := e.kv.SaveSessions(ctx, u); err != nil {
			return apperrors.NewStoreError(store.NameKV, "reset_sessions", err)
		}
		report.UsersReset++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.rel != nil {
		report.RelationalResult, report.RelationalErr = e.rel.ResetAllSessions(ctx, now)
		if report.RelationalErr != nil {
			metrics.StoreWriteFailures.WithLabelValues(store.NameRelational, "reset_sessions").Inc()
			e.logger.Warn("relational session reset failed", map[string]interface{}{"error": report.RelationalErr})
		}
	}

	e.logger.Info("daily session reset completed", map[string]interface{}{
		"usersReset":       report.UsersReset,
		"sessionsClosedDb": report.RelationalResult.SessionsClosed,
	})

	if e.notifier != nil {
		payload := map[string]interface{}{
			"usersReset": report.UsersReset,
			"timestamp":  now.Format(time.RFC3339),
		}
		if err := e.notifier.Report(ctx, "sessions-daily-reset", payload); err != nil {
			e.logger.Warn("reset report not published", map[string]interface{}{"error": err})
		}
	}
	return report, nil
}

// normalizeEmail is applied to every email before a lookup or a write.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperrors.NewValidationError("Email is required")
	}
	return email, nil
}

// dualWrite issues the KV write and its relational mirror concurrently and
// waits for both. Neither cancels the other. A nil write is reported as
// skipped. Mirror failures are logged and counted here; the caller decides
// what a primary failure means.
func (e *Engine) dualWrite(ctx context.Context, operation string, primaryFn, mirrorFn func(context.Context) error) (Outcome, Outcome) {
	primary := Outcome{Store: store.NameKV, Operation: operation, Skipped: primaryFn == nil}
	mirror := Outcome{Store: store.NameRelational, Operation: operation, Skipped: e.rel == nil || mirrorFn == nil}

	var g errgroup.Group
	if !primary.Skipped {
		g.Go(func() error {
			primary.Err = primaryFn(ctx)
			return nil
		})
	}
	if !mirror.Skipped {
		g.Go(func() error {
			mirror.Err = mirrorFn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if mirror.Err != nil {
		metrics.StoreWriteFailures.WithLabelValues(store.NameRelational, operation).Inc()
		e.logger.Warn("relational mirror write failed", map[string]interface{}{
			"operation": operation,
			"error":     mirror.Err,
		})
	}
	return primary, mirror
}
