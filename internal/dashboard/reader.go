// Package dashboard builds the read-only dashboard views over both stores.
package dashboard

import (
	"context"
	"fmt"

	"session-handlers/internal/common/logger"
	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"golang.org/x/sync/errgroup"
)

const (
	SourceKV         = "DynamoDB"
	SourceRelational = "PostgreSQL"

	DefaultFilesLimit       = 10
	DefaultHybridFilesLimit = 5
)

// View is the counts-only dashboard.
type View struct {
	TotalUsers     int                    `json:"totalUsers"`
	ActiveUsers    int                    `json:"activeUsers"`
	ActiveSessions int                    `json:"activeSessions"`
	ProcessedData  []models.ProcessedItem `json:"processedData"`
}

type SourceBreakdown struct {
	Users          int `json:"users"`
	ActiveUsers    int `json:"activeUsers"`
	ProcessedFiles int `json:"processedFiles"`
}

// HybridView sums both stores. A user present in both is counted twice.
type HybridView struct {
	View
	DataSources map[string]SourceBreakdown `json:"dataSources"`
}

type Limits struct {
	Files       int
	HybridFiles int
}

type Reader struct {
	kv     store.KVStore
	rel    store.RelationalStore
	limits Limits
	logger logger.Logger
}

func NewReader(kv store.KVStore, rel store.RelationalStore, limits Limits, log logger.Logger) *Reader {
	if limits.Files <= 0 {
		limits.Files = DefaultFilesLimit
	}
	if limits.HybridFiles <= 0 {
		limits.HybridFiles = DefaultHybridFilesLimit
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Reader{kv: kv, rel: rel, limits: limits, logger: log}
}

// Counts reads the KV store only. The two user counts are required; the
// session sum and the file list fall back to zero and empty.
func (r *Reader) Counts(ctx context.Context) (*View, error) {
	view := &View{ProcessedData: []models.ProcessedItem{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := r.kv.CountUsers(gctx, false)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		view.TotalUsers = n
		return nil
	})
	g.Go(func() error {
		n, err := r.kv.CountUsers(gctx, true)
		if err != nil {
			return fmt.Errorf("count active users: %w", err)
		}
		view.ActiveUsers = n
		return nil
	})
	g.Go(func() error {
		n, err := r.kv.SumActiveSessions(gctx)
		if err != nil {
			r.logger.Warn("active session count unavailable", map[string]interface{}{"error": err})
			return nil
		}
		view.ActiveSessions = n
		return nil
	})
	g.Go(func() error {
		files, err := r.kv.ListProcessedFiles(gctx, r.limits.Files)
		if err != nil {
			r.logger.Warn("processed files unavailable", map[string]interface{}{"error": err})
			return nil
		}
		view.ProcessedData = toItems(files, "")
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

type snapshot struct {
	counts store.Counts
	items  []models.ProcessedItem
}

// Hybrid reads both stores concurrently. A store that fails contributes
// zeros and no items; Hybrid itself does not fail.
func (r *Reader) Hybrid(ctx context.Context) *HybridView {
	var kvSnap, relSnap snapshot
	var g errgroup.Group

	g.Go(func() error {
		s, err := r.kvSnapshot(ctx)
		if err != nil {
			r.logger.Warn("kv store unavailable for dashboard", map[string]interface{}{"error": err})
			s = snapshot{}
		}
		kvSnap = s
		return nil
	})
	if r.rel != nil {
		g.Go(func() error {
			s, err := r.relationalSnapshot(ctx)
			if err != nil {
				r.logger.Warn("relational store unavailable for dashboard", map[string]interface{}{"error": err})
				s = snapshot{}
			}
			relSnap = s
			return nil
		})
	}
	_ = g.Wait()

	items := make([]models.ProcessedItem, 0, len(kvSnap.items)+len(relSnap.items))
	items = append(items, kvSnap.items...)
	items = append(items, relSnap.items...)

	return &HybridView{
		View: View{
			TotalUsers:     kvSnap.counts.TotalUsers + relSnap.counts.TotalUsers,
			ActiveUsers:    kvSnap.counts.ActiveUsers + relSnap.counts.ActiveUsers,
			ActiveSessions: kvSnap.counts.ActiveSessions + relSnap.counts.ActiveSessions,
			ProcessedData:  items,
		},
		DataSources: map[string]SourceBreakdown{
			"dynamodb":   breakdown(kvSnap),
			"postgresql": breakdown(relSnap),
		},
	}
}

func (r *Reader) kvSnapshot(ctx context.Context) (snapshot, error) {
	var s snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.counts.TotalUsers, err = r.kv.CountUsers(gctx, false)
		return err
	})
	g.Go(func() (err error) {
		s.counts.ActiveUsers, err = r.kv.CountUsers(gctx, true)
		return err
	})
	g.Go(func() (err error) {
		s.counts.ActiveSessions, err = r.kv.SumActiveSessions(gctx)
		return err
	})
	g.Go(func() error {
		files, err := r.kv.ListProcessedFiles(gctx, r.limits.HybridFiles)
		s.items = toItems(files, SourceKV)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return s, nil
}

func (r *Reader) relationalSnapshot(ctx context.Context) (snapshot, error) {
	var s snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.counts, err = r.rel.Counts(gctx)
		return err
	})
	g.Go(func() error {
		files, err := r.rel.LatestProcessedFiles(gctx, r.limits.HybridFiles)
		s.items = toItems(files, SourceRelational)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return s, nil
}

func breakdown(s snapshot) SourceBreakdown {
	return SourceBreakdown{
		Users:          s.counts.TotalUsers,
		ActiveUsers:    s.counts.ActiveUsers,
		ProcessedFiles: len(s.items),
	}
}

func toItems(files []models.ProcessedFile, source string) []models.ProcessedItem {
	items := make([]models.ProcessedItem, 0, len(files))
	for _, f := range files {
		items = append(items, f.ToItem(source))
	}
	return items
}

// Users lists every KV user without password hashes. Unreadable records are
// logged and left out.
func (r *Reader) Users(ctx context.Context) ([]models.PublicUser, error) {
	users := []models.PublicUser{}
	err := r.kv.ScanUsers(ctx, func(u *models.User, decodeErr error) error {
		if decodeErr != nil {
			r.logger.Warn("skipping unreadable user record", map[string]interface{}{"error": decodeErr})
			return nil
		}
		users = append(users, u.Public())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}
