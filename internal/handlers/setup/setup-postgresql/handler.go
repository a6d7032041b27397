// Package setuppostgresql creates the relational tables. Every statement is
// idempotent so the handler can be rerun after a partial failure.
package setuppostgresql

import (
	"context"
	"fmt"
	"net/http"

	"session-handlers/internal/common/apigw"
	apperrors "session-handlers/internal/common/errors"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/base"
	"session-handlers/internal/store"

	"github.com/aws/aws-lambda-go/events"
)

const HandlerName = "setup-postgresql"

type SchemaCreator interface {
	EnsureSchema(ctx context.Context) ([]string, error)
}

type Handler struct {
	config *Config
	schema SchemaCreator
	logger logger.Logger
}

func NewHandler(cfg *Config, schema SchemaCreator, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", HandlerName, err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{config: cfg, schema: schema, logger: log}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return base.Invoke(ctx, HandlerName, h.config.Config, h.logger, req, func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse {
		tables, err := h.schema.EnsureSchema(ctx)
		if err != nil {
			log.Warn("schema partially created", map[string]interface{}{"created": tables})
			return base.Fail(log, "Setup", apperrors.NewStoreError(store.NameRelational, "create_tables", err))
		}
		log.Info("relational schema ready", map[string]interface{}{"tables": len(tables)})
		return apigw.JSON(http.StatusOK, Output{
			Success: true,
			Message: "PostgreSQL tables created successfully",
			Tables:  tables,
		})
	})
}
