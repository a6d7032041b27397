// Package reconciler copies KV store state into the relational store. The copy
// is one-way and best effort: a record that fails is logged and skipped.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "session-handlers/internal/common/errors"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/common/metrics"
	"session-handlers/internal/models"
	"session-handlers/internal/store"
)

const (
	kindUser    = "user"
	kindSession = "session"
	kindFile    = "file"

	resultSynced    = "synced"
	resultUnchanged = "unchanged"
	resultFailed    = "failed"
	resultSkipped   = "skipped"
)

// Notifier publishes the run summary. Failures are logged only.
type Notifier interface {
	Report(ctx context.Context, subject string, payload interface{}) error
}

// Result counts a sync run. SyncedUsers counts users whose row and every
// session row were written or already current.
type Result struct {
	SyncedUsers  int `json:"syncedUsers"`
	SyncedFiles  int `json:"syncedFiles"`
	SkippedUsers int `json:"skippedUsers"`
	FailedUsers  int `json:"failedUsers"`
	FailedFiles  int `json:"failedFiles"`
	// RowsChanged counts upserts that inserted or modified a row. A run
	// against an unchanged KV store leaves it at zero.
	RowsChanged int `json:"rowsChanged"`
}

type Reconciler struct {
	kv       store.KVStore
	rel      store.RelationalStore
	notifier Notifier
	logger   logger.Logger
}

func New(kv store.KVStore, rel store.RelationalStore, notifier Notifier, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Reconciler{
		kv:       kv,
		rel:      rel,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "reconciler"}),
	}
}

// Run scans every KV user and processed file and upserts them. Only a failed
// user scan fails the run; a failed file scan is logged and the files synced
// so far are reported.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	res := &Result{}

	err := r.kv.ScanUsers(ctx, func(u *models.User, decodeErr error) error {
		r.syncUser(ctx, u, decodeErr, res)
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStoreError(store.NameKV, "scan_users", err)
	}

	if err := r.kv.ScanProcessedFiles(ctx, func(f models.ProcessedFile, decodeErr error) error {
		r.syncFile(ctx, f, decodeErr, res)
		return nil
	}); err != nil {
		r.logger.Warn("processed files scan failed", map[string]interface{}{
			"error":       err,
			"syncedFiles": res.SyncedFiles,
		})
	}

	r.logger.Info("data sync completed", map[string]interface{}{
		"syncedUsers":  res.SyncedUsers,
		"syncedFiles":  res.SyncedFiles,
		"skippedUsers": res.SkippedUsers,
		"failedUsers":  res.FailedUsers,
		"failedFiles":  res.FailedFiles,
		"rowsChanged":  res.RowsChanged,
		"durationMs":   time.Since(started).Milliseconds(),
	})

	if r.notifier != nil {
		if err := r.notifier.Report(ctx, "data-sync", res); err != nil {
			r.logger.Warn("sync report not published", map[string]interface{}{"error": err})
		}
	}
	return res, nil
}

func (r *Reconciler) syncUser(ctx context.Context, u *models.User, decodeErr error, res *Result) {
	userID := ""
	if u != nil {
		userID = u.UserID
	}
	if decodeErr == nil && u != nil {
		decodeErr = u.Validate()
	}
	if decodeErr != nil {
		res.SkippedUsers++
		metrics.ReconcilerRecords.WithLabelValues(kindUser, resultSkipped).Inc()
		r.logger.Warn("skipping malformed user record", map[string]interface{}{"userId": userID, "error": decodeErr})
		return
	}

	log := r.logger.WithFields(map[string]interface{}{"userId": u.UserID})

	changed, err := r.rel.UpsertUser(ctx, u)
	if err != nil {
		res.FailedUsers++
		metrics.ReconcilerRecords.WithLabelValues(kindUser, resultFailed).Inc()
		fields := map[string]interface{}{"error": err}
		if errors.Is(err, store.ErrEmailTaken) {
			fields["email"] = logger.MaskEmail(u.Email)
		}
		log.Warn("user upsert failed", fields)
		return
	}
	r.count(kindUser, changed, res)

	sessionsOK := true
	for _, s := range u.Sessions {
		if s.SessionID == "" {
			sessionsOK = false
			metrics.ReconcilerRecords.WithLabelValues(kindSession, resultSkipped).Inc()
			log.Warn("skipping session without id", nil)
			continue
		}
		s.UserID = u.UserID
		changed, err := r.rel.UpsertSession(ctx, s)
		if err != nil {
			sessionsOK = false
			metrics.ReconcilerRecords.WithLabelValues(kindSession, resultFailed).Inc()
			log.Warn("session upsert failed", map[string]interface{}{"sessionId": s.SessionID, "error": err})
			continue
		}
		r.count(kindSession, changed, res)
	}

	if !sessionsOK {
		res.FailedUsers++
		return
	}
	res.SyncedUsers++
}

func (r *Reconciler) syncFile(ctx context.Context, f models.ProcessedFile, decodeErr error, res *Result) {
	if decodeErr == nil && f.FileID == "" {
		decodeErr = fmt.Errorf("%w: file record has no fileId", store.ErrMalformedRecord)
	}
	if decodeErr != nil {
		res.FailedFiles++
		metrics.ReconcilerRecords.WithLabelValues(kindFile, resultSkipped).Inc()
		r.logger.Warn("skipping malformed file record", map[string]interface{}{"fileId": f.FileID, "error": decodeErr})
		return
	}
	if f.Status == "" {
		f.Status = models.FileStatusProcessing
	}

	changed, err := r.rel.UpsertProcessedFile(ctx, f)
	if err != nil {
		res.FailedFiles++
		metrics.ReconcilerRecords.WithLabelValues(kindFile, resultFailed).Inc()
		r.logger.Warn("file upsert failed", map[string]interface{}{"fileId": f.FileID, "error": err})
		return
	}
	r.count(kindFile, changed, res)
	res.SyncedFiles++
}

func (r *Reconciler) count(kind string, changed bool, res *Result) {
	if changed {
		res.RowsChanged++
		metrics.ReconcilerRecords.WithLabelValues(kind, resultSynced).Inc()
		return
	}
	metrics.ReconcilerRecords.WithLabelValues(kind, resultUnchanged).Inc()
}
