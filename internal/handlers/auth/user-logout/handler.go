// Package userlogout closes one session of a user.
package userlogout

import (
	"context"
	"fmt"
	"net/http"

	"session-handlers/internal/common/apigw"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/base"
	"session-handlers/internal/session"

	"github.com/aws/aws-lambda-go/events"
)

const HandlerName = "user-logout"

type SessionCloser interface {
	Logout(ctx context.Context, userID, sessionID string) (*session.LogoutOutcome, error)
}

type Handler struct {
	config *Config
	engine SessionCloser
	logger logger.Logger
}

func NewHandler(cfg *Config, engine SessionCloser, log logger.Logger) (*Handler, error) {
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

// Handle answers 200 for an unknown session id as well; only a missing user
// is reported.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return base.Invoke(ctx, HandlerName, h.config.Config, h.logger, req, func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse {
		var in Input
		if err := base.DecodeBody(req, inputSchema, validationMessage, &in); err != nil {
			return base.Fail(log, "Logout", err)
		}

		if _, err := h.engine.Logout(ctx, in.UserID, in.SessionID); err != nil {
			return base.Fail(log, "Logout", err)
		}

		return apigw.JSON(http.StatusOK, Output{Success: true, Message: "Logout successful"})
	})
}
