// Package analyticsdata serves the relational analytics report.
package analyticsdata

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

const HandlerName = "analytics-data"

type AnalyticsSource interface {
	Analytics(ctx context.Context) (*models.AnalyticsReport, error)
}

type Handler struct {
	config *Config
	source AnalyticsSource
	logger logger.Logger
}

func NewHandler(cfg *Config, source AnalyticsSource, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", HandlerName, err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{config: cfg, source: source, logger: log}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return base.Invoke(ctx, HandlerName, h.config.Config, h.logger, req, func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse {
		report, err := h.source.Analytics(ctx)
		if err != nil {
			return base.Fail(log, "Analytics", err)
		}
		log.Info("analytics retrieved", map[string]interface{}{
			"userAnalytics":  report.Summary.TotalAnalyticsRecords,
			"processingJobs": report.Summary.TotalProcessingJobs,
		})
		return apigw.JSON(http.StatusOK, Output{
			Success: true,
			Message: "Analytics data retrieved successfully",
			Data:    report,
		})
	})
}
