// Package sessionsdailyreset closes every open session in both stores. It runs
// on request and as a scheduled job.
package sessionsdailyreset

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"session-handlers/internal/common/apigw"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/base"
	"session-handlers/internal/session"

	"github.com/aws/aws-lambda-go/events"
)

const HandlerName = "sessions-daily-reset"

type Resetter interface {
	ResetDaily(ctx context.Context) (*session.ResetReport, error)
}

type Handler struct {
	config *Config
	engine Resetter
	logger logger.Logger
}

func NewHandler(cfg *Config, engine Resetter, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", HandlerName, err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{config: cfg, engine: engine, logger: log}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return base.Invoke(ctx, HandlerName, h.config.Config, h.logger, req, func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse {
		out, err := h.Run(ctx)
		if err != nil {
			return base.Fail(log, "Daily reset", err)
		}
		return apigw.JSON(http.StatusOK, out)
	})
}

// Run performs the reset. A failed relational reset is logged by the engine
// and does not fail the run.
func (h *Handler) Run(ctx context.Context) (*Output, error) {
	report, err := h.engine.ResetDaily(ctx)
	if err != nil {
		return nil, err
	}
	return &Output{
		Success:        true,
		Message:        fmt.Sprintf("Daily session reset completed. Reset %d users.", report.UsersReset),
		Timestamp:      report.Timestamp.UTC().Format(time.RFC3339),
		UsersReset:     report.UsersReset,
		SessionsClosed: report.RelationalResult.SessionsClosed,
	}, nil
}

// Job adapts Run to the scheduled job signature.
func (h *Handler) Job(ctx context.Context) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()
	out, err := h.Run(ctx)
	if err != nil {
		return nil, err
	}
	return out, nil
}
