// Package datasync copies KV state into the relational store. It runs on
// request and as a scheduled job.
package datasync

import (
	"context"
	"fmt"
	"net/http"

	"session-handlers/internal/common/apigw"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/base"
	"session-handlers/internal/reconciler"

	"github.com/aws/aws-lambda-go/events"
)

const HandlerName = "data-sync"

type Syncer interface {
	Run(ctx context.Context) (*reconciler.Result, error)
}

type Handler struct {
	config *Config
	syncer Syncer
	logger logger.Logger
}

func NewHandler(cfg *Config, syncer Syncer, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", HandlerName, err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{config: cfg, syncer: syncer, logger: log}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return base.Invoke(ctx, HandlerName, h.config.Config, h.logger, req, func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse {
		out, err := h.Run(ctx)
		if err != nil {
			return base.Fail(log, "Sync", err)
		}
		return apigw.JSON(http.StatusOK, out)
	})
}

func (h *Handler) Run(ctx context.Context) (*Output, error) {
	res, err := h.syncer.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &Output{Success: true, Message: "Data sync completed", Results: *res}, nil
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
