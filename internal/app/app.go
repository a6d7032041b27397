// Package app builds the process-wide dependencies once at startup and hands
// them to every handler.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"session-handlers/internal/auth/password"
	"session-handlers/internal/common/aws"
	"session-handlers/internal/common/config"
	"session-handlers/internal/common/database"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/dashboard"
	"session-handlers/internal/notify"
	"session-handlers/internal/reconciler"
	"session-handlers/internal/session"
	"session-handlers/internal/store"
	"session-handlers/internal/store/kv"
	"session-handlers/internal/store/relational"
)

// App is the dependency object shared by the handlers of one process.
type App struct {
	Config     *config.Config
	Logger     logger.Logger
	KV         store.KVStore
	Relational store.RelationalStore
	Engine     *session.Engine
	Reconciler *reconciler.Reconciler
	Dashboard  *dashboard.Reader
	Now        func() time.Time

	pingers []pinger
	closers []func() error
}

type pinger struct {
	name string
	ping func(context.Context) error
}

// Deps are the pieces New normally builds itself. Assemble takes them as
// given, which is how tests inject stores and doubles.
type Deps struct {
	KV         store.KVStore
	Relational store.RelationalStore
	Hasher     session.Hasher
	Notifier   *notify.Notifier
	Now        func() time.Time
	NewID      func() string
}

// New connects to the configured stores. Database credentials are resolved
// from Secrets Manager once, here, when a secret ARN is configured.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	awsCfg, err := aws.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	pgCfg := cfg.Database.Postgres
	if pgCfg.SecretARN != "" {
		creds, err := aws.NewSecretsClient(awsCfg).DatabaseCredentials(ctx, pgCfg.SecretARN)
		if err != nil {
			return nil, fmt.Errorf("resolve database credentials: %w", err)
		}
		pgCfg = pgCfg.WithCredentials(creds.Username, creds.Password)
	}
	pg, err := database.NewPostgres(pgCfg)
	if err != nil {
		return nil, err
	}

	var (
		kvStore store.KVStore
		pingers = []pinger{{name: "postgres", ping: pg.Ping}}
		closers = []func() error{pg.Close}
	)
	switch cfg.KV.Backend {
	case config.KVBackendRedis:
		rc := database.NewRedis(cfg.KV.Redis)
		kvStore = kv.NewRedisStore(rc.GetClient(), cfg.KV.Redis.KeyPrefix, log)
		pingers = append(pingers, pinger{name: "redis", ping: rc.Ping})
		closers = append(closers, rc.Close)
	default:
		kvStore = kv.NewDynamoStore(aws.NewDynamoDBClient(awsCfg), kv.DynamoConfig{
			UsersTable:          cfg.KV.UsersTable,
			EmailIndex:          cfg.KV.EmailIndex,
			ProcessedFilesTable: cfg.KV.ProcessedFilesTable,
		}, log)
	}

	var mail notify.EmailSender
	if cfg.Notifications.SES.Enabled {
		mail = aws.NewSESClient(awsCfg)
	}
	var topic notify.Publisher
	if cfg.Notifications.SNS.Enabled {
		topic = aws.NewSNSClient(awsCfg)
	}

	a := Assemble(cfg, log, Deps{
		KV:         kvStore,
		Relational: relational.New(pg.GetDB(), log),
		Hasher:     password.NewBcryptHasher(password.DefaultCost),
		Notifier:   notify.New(cfg.Notifications, mail, topic, log),
	})
	a.pingers = pingers
	a.closers = closers

	log.Info("dependencies initialized", map[string]interface{}{
		"kvBackend":   kvBackendName(cfg.KV.Backend),
		"region":      cfg.AWS.Region,
		"secretStore": pgCfg.SecretARN != "",
	})
	return a, nil
}

// Assemble wires the domain components over already built stores.
func Assemble(cfg *config.Config, log logger.Logger, deps Deps) *App {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop()
	}
	if deps.Hasher == nil {
		deps.Hasher = password.NewBcryptHasher(password.DefaultCost)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	return &App{
		Config:     cfg,
		Logger:     log,
		KV:         deps.KV,
		Relational: deps.Relational,
		Now:        deps.Now,
		Engine: session.NewEngine(session.Options{
			KV:         deps.KV,
			Relational: deps.Relational,
			Hasher:     deps.Hasher,
			Notifier:   deps.Notifier,
			Logger:     log,
			Now:        deps.Now,
			NewID:      deps.NewID,
		}),
		Reconciler: reconciler.New(deps.KV, deps.Relational, deps.Notifier, log),
		Dashboard: dashboard.NewReader(deps.KV, deps.Relational, dashboard.Limits{
			Files:       cfg.Dashboard.ProcessedFilesLimit,
			HybridFiles: cfg.Dashboard.HybridProcessedFilesLimit,
		}, log),
	}
}

// Ready pings every connection the process holds.
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	for _, p := range a.pingers {
		if err := p.ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func kvBackendName(backend string) string {
	if backend == config.KVBackendRedis {
		return config.KVBackendRedis
	}
	return config.KVBackendDynamoDB
}
