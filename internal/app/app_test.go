package app

import (
	"context"
	"errors"
	"testing"

	"session-handlers/internal/common/config"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_Defaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Dashboard.ProcessedFilesLimit = 3

	a := Assemble(cfg, nil, Deps{KV: &storetest.MockKV{}, Relational: &storetest.MockRelational{}})
	require.NotNil(t, a.Engine)
	require.NotNil(t, a.Reconciler)
	require.NotNil(t, a.Dashboard)
	assert.NotNil(t, a.Logger)
	assert.Equal(t, "UTC", a.Now().Location().String())
	assert.NoError(t, a.Ready(context.Background()))
	assert.NoError(t, a.Close())
}

func TestApp_ReadyJoinsFailures(t *testing.T) {
	a := Assemble(&config.Config{}, logger.NewTestLogger(t), Deps{KV: &storetest.MockKV{}})
	a.pingers = []pinger{
		{name: "postgres", ping: func(context.Context) error { return errors.New("connection refused") }},
		{name: "redis", ping: func(context.Context) error { return nil }},
	}

	err := a.Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: connection refused")
	assert.NotContains(t, err.Error(), "redis")
}

func TestApp_CloseRunsEveryCloser(t *testing.T) {
	var closed []string
	a := Assemble(&config.Config{}, nil, Deps{KV: &storetest.MockKV{}})
	a.closers = []func() error{
		func() error { closed = append(closed, "pg"); return errors.New("already closed") },
		func() error { closed = append(closed, "redis"); return nil },
	}

	assert.ErrorContains(t, a.Close(), "already closed")
	assert.Equal(t, []string{"pg", "redis"}, closed)
}

func TestKVBackendName(t *testing.T) {
	assert.Equal(t, "redis", kvBackendName(config.KVBackendRedis))
	assert.Equal(t, config.KVBackendDynamoDB, kvBackendName(""))
}
