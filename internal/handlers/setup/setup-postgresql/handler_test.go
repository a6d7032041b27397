package setuppostgresql

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"session-handlers/internal/common/logger"
	"session-handlers/internal/store/relational"
	"session-handlers/internal/store/storetest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandle_CreatesTables(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	for range relational.TableNames() {
		sqlMock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	h, err := NewHandler(DefaultConfig(), relational.New(db, logger.NewTestLogger(t)), logger.NewTestLogger(t))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"success": true,
		"message": "PostgreSQL tables created successfully",
		"tables": ["users","user_sessions","processed_files","user_analytics","file_processing_jobs","daily_reports","audit_logs"]
	}`, resp.Body)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandle_Fails(t *testing.T) {
	rel := &storetest.MockRelational{}
	rel.On("EnsureSchema", mock.Anything).Return([]string{"users"}, errors.New("create user_sessions: permission denied"))

	h, err := NewHandler(nil, rel, logger.NewTestLogger(t))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Body, "Setup failed")
	assert.Contains(t, resp.Body, "permission denied")
}

func TestNewHandler_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 0
	_, err := NewHandler(cfg, &storetest.MockRelational{}, nil)
	assert.ErrorContains(t, err, "invalid configuration for setup-postgresql")
}
