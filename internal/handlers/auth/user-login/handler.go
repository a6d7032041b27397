// Package userlogin verifies credentials and opens a session.
package userlogin

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

const HandlerName = "user-login"

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*session.LoginResult, error)
}

type Handler struct {
	config *Config
	engine Authenticator
	logger logger.Logger
}

func NewHandler(cfg *Config, engine Authenticator, log logger.Logger) (*Handler, error) {
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
		var in Input
		if err := base.DecodeBody(req, inputSchema, validationMessage, &in); err != nil {
			return base.Fail(log, "Login", err)
		}

		res, err := h.engine.Login(ctx, in.Email, in.Password)
		if err != nil {
			return base.Fail(log, "Login", err)
		}

		return apigw.JSON(http.StatusOK, Output{
			Success: true,
			User: UserSummary{
				UserID: res.User.UserID,
				Email:  res.User.Email,
				Name:   res.User.Name,
			},
			SessionID: res.SessionID,
		})
	})
}
