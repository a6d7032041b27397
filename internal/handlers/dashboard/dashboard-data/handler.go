// Package dashboarddata serves the counts dashboard read from the KV store.
package dashboarddata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"session-handlers/internal/common/apigw"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/dashboard"
	"session-handlers/internal/handlers/base"

	"github.com/aws/aws-lambda-go/events"
)

const HandlerName = "dashboard-data"

type CountsReader interface {
	Counts(ctx context.Context) (*dashboard.View, error)
}

type Handler struct {
	config *Config
	reader CountsReader
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(cfg *Config, reader CountsReader, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", HandlerName, err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		config: cfg,
		reader: reader,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return base.Invoke(ctx, HandlerName, h.config.Config, h.logger, req, func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse {
		view, err := h.reader.Counts(ctx)
		if err != nil {
			return base.Fail(log, "Dashboard", err)
		}
		return apigw.JSON(http.StatusOK, Output{
			Success:   true,
			Data:      view,
			Timestamp: h.now().Format(time.RFC3339Nano),
		})
	})
}
