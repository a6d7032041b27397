// Package userslist lists KV users without their password hashes.
package userslist

import (
	"context"
	"fmt"
	"net/http"

	"session-handlers/internal/common/apigw"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/base"
	"session-handlers/internal/models"

	"github.com/aws/aws-lambda-go/events"
)

const HandlerName = "users-list"

type UserLister interface {
	Users(ctx context.Context) ([]models.PublicUser, error)
}

type Handler struct {
	config *Config
	lister UserLister
	logger logger.Logger
}

func NewHandler(cfg *Config, lister UserLister, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", HandlerName, err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{config: cfg, lister: lister, logger: log}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return base.Invoke(ctx, HandlerName, h.config.Config, h.logger, req, func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse {
		users, err := h.lister.Users(ctx)
		if err != nil {
			return base.Fail(log, "Users listing", err)
		}
		return apigw.JSON(http.StatusOK, Output{Success: true, Users: users, Count: len(users)})
	})
}
