// Package userregister creates a user in the KV store.
package userregister

import (
	"context"
	"fmt"
	"net/http"

	"session-handlers/internal/common/apigw"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/base"
	"session-handlers/internal/models"
	"session-handlers/internal/session"

	"github.com/aws/aws-lambda-go/events"
)

const HandlerName = "user-register"

type Registrar interface {
	Register(ctx context.Context, in session.RegisterInput) (*models.User, error)
}

type Handler struct {
	config *Config
	engine Registrar
	logger logger.Logger
}

func NewHandler(cfg *Config, engine Registrar, log logger.Logger) (*Handler, error) {
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
			return base.Fail(log, "Registration", err)
		}

		u, err := h.engine.Register(ctx, session.RegisterInput{
			Email:    in.Email,
			Password: in.Password,
			Name:     in.Name,
		})
		if err != nil {
			return base.Fail(log, "Registration", err)
		}

		return apigw.JSON(http.StatusCreated, Output{
			Success: true,
			Message: "User registered successfully",
			UserID:  u.UserID,
		})
	})
}
