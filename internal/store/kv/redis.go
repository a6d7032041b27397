package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"session-handlers/internal/common/logger"
	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/redis/go-redis/v9"
)

const redisScanBatch = 100

// RedisStore keeps each record as a JSON string. Keys under the prefix:
//
//	user:<userId>   user record
//	email:<email>   userId, claimed with SETNX at registration
//	users           set of userIds
//	file:<fileId>   processed file record
//	files           sorted set of fileIds scored by processedAt (unix ms)
type RedisStore struct {
	client redis.Cmdable
	prefix string
	logger logger.Logger
}

var _ store.KVStore = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable, prefix string, log logger.Logger) *RedisStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &RedisStore{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
		logger: log.WithFields(map[string]interface{}{"store": "redis"}),
	}
}

func (s *RedisStore) key(parts ...string) string {
	if s.prefix == "" {
		return strings.Join(parts, ":")
	}
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *RedisStore) CreateUser(ctx context.Context, u *models.User) error {
	payload, err := json.Marshal(fromUser(u))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	emailKey := s.key("email", u.Email)
	claimed, err := s.client.SetNX(ctx, emailKey, u.UserID, 0).Result()
	if err != nil {
		return fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: %s", store.ErrEmailTaken, logger.MaskEmail(u.Email))
	}

	created, err := s.client.SetNX(ctx, s.key("user", u.UserID), payload, 0).Result()
	if err != nil || !created {
		s.client.Del(ctx, emailKey)
		if err != nil {
			return fmt.Errorf("put user: %w", err)
		}
		return fmt.Errorf("%w: %s", store.ErrUserExists, u.UserID)
	}

	if err := s.client.SAdd(ctx, s.key("users"), u.UserID).Err(); err != nil {
		return fmt.Errorf("index user: %w", err)
	}
	return nil
}

func (s *RedisStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	raw, err := s.client.Get(ctx, s.key("user", userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return decodeUserJSON(userID, raw)
}

func (s *RedisStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	userID, err := s.client.Get(ctx, s.key("email", email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	return s.GetUser(ctx, userID)
}

// SaveSessions overwrites the whole record; SET XX refuses to create one.
func (s *RedisStore) SaveSessions(ctx context.Context, u *models.User) error {
	payload, err := json.Marshal(fromUser(u))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.key("user", u.UserID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("update sessions: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, u.UserID)
	}
	return nil
}

func (s *RedisStore) ScanUsers(ctx context.Context, fn store.UserVisitor) error {
	var cursor uint64
	for {
		ids, next, err := s.client.SScan(ctx, s.key("users"), cursor, "", redisScanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan users: %w", err)
		}
		if len(ids) > 0 {
			keys := make([]string, len(ids))
			for i, id := range ids {
				keys[i] = s.key("user", id)
			}
			values, err := s.client.MGet(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("load users: %w", err)
			}
			for i, v := range values {
				raw, ok := v.(string)
				if !ok {
					// indexed but deleted
					continue
				}
				u, decodeErr := decodeUserJSON(ids[i], raw)
				if err := fn(u, decodeErr); err != nil {
					return err
				}
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisStore) CountUsers(ctx context.Context, activeOnly bool) (int, error) {
	if !activeOnly {
		n, err := s.client.SCard(ctx, s.key("users")).Result()
		if err != nil {
			return 0, fmt.Errorf("count users: %w", err)
		}
		return int(n), nil
	}
	count := 0
	err := s.ScanUsers(ctx, func(u *models.User, err error) error {
		if err == nil && u.IsCurrentlyActive {
			count++
		}
		return nil
	})
	return count, err
}

func (s *RedisStore) SumActiveSessions(ctx context.Context) (int, error) {
	sum := 0
	err := s.ScanUsers(ctx, func(u *models.User, err error) error {
		if err == nil && u.IsCurrentlyActive {
			sum += u.ActiveSessions
		}
		return nil
	})
	return sum, err
}

func (s *RedisStore) PutProcessedFile(ctx context.Context, f models.ProcessedFile) error {
	payload, err := json.Marshal(fromFile(f))
	if err != nil {
		return fmt.Errorf("marshal file: %w", err)
	}
	var score float64
	if f.ProcessedAt != nil {
		score = float64(f.ProcessedAt.UnixMilli())
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("file", f.FileID), payload, 0)
		pipe.ZAdd(ctx, s.key("files"), redis.Z{Score: score, Member: f.FileID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put file: %w", err)
	}
	return nil
}

// ListProcessedFiles returns the newest files first.
func (s *RedisStore) ListProcessedFiles(ctx context.Context, limit int) ([]models.ProcessedFile, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.key("files"), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	files := make([]models.ProcessedFile, 0, len(ids))
	err = s.loadFiles(ctx, ids, func(f models.ProcessedFile, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable file record", map[string]interface{}{"fileId": f.FileID, "error": err})
			return nil
		}
		files = append(files, f)
		return nil
	})
	return files, err
}

func (s *RedisStore) ScanProcessedFiles(ctx context.Context, fn store.FileVisitor) error {
	for start := int64(0); ; start += redisScanBatch {
		ids, err := s.client.ZRange(ctx, s.key("files"), start, start+redisScanBatch-1).Result()
		if err != nil {
			return fmt.Errorf("scan files: %w", err)
		}
		if err := s.loadFiles(ctx, ids, fn); err != nil {
			return err
		}
		if len(ids) < redisScanBatch {
			return nil
		}
	}
}

func (s *RedisStore) loadFiles(ctx context.Context, ids []string, fn store.FileVisitor) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key("file", id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("load files: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec fileRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			if err := fn(models.ProcessedFile{FileID: ids[i]}, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)); err != nil {
				return err
			}
			continue
		}
		f, decodeErr := toFile(rec)
		if err := fn(f, decodeErr); err != nil {
			return err
		}
	}
	return nil
}

func decodeUserJSON(userID, raw string) (*models.User, error) {
	var rec userRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return &models.User{UserID: userID}, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
	}
	return toUser(rec)
}
