// Package filesrecord writes processed-file records to the KV store. The
// reconciler later copies them into the relational store.
package filesrecord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"session-handlers/internal/common/apigw"
	apperrors "session-handlers/internal/common/errors"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/base"
	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

const HandlerName = "files-record"

type FileWriter interface {
	PutProcessedFile(ctx context.Context, f models.ProcessedFile) error
}

type Handler struct {
	config *Config
	files  FileWriter
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewHandler(cfg *Config, files FileWriter, log logger.Logger) (*Handler, error) {
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
		files:  files,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return base.Invoke(ctx, HandlerName, h.config.Config, h.logger, req, func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse {
		var in Input
		if err := base.DecodeBody(req, inputSchema, validationMessage, &in); err != nil {
			return base.Fail(log, "File record", err)
		}

		f := h.toFile(in)
		if err := h.files.PutProcessedFile(ctx, f); err != nil {
			return base.Fail(log, "File record", apperrors.NewStoreError(store.NameKV, "put_file", err))
		}

		log.Info("processed file recorded", map[string]interface{}{
			"fileId": f.FileID,
			"userId": f.UserID,
			"status": f.Status,
		})
		return apigw.JSON(http.StatusCreated, Output{
			Success: true,
			Message: "File recorded successfully",
			File:    f,
		})
	})
}

func (h *Handler) toFile(in Input) models.ProcessedFile {
	at := h.now()
	f := models.ProcessedFile{
		FileID:      in.FileID,
		FileName:    in.FileName,
		FileSize:    in.FileSize,
		Status:      in.Status,
		ProcessedAt: &at,
		UserID:      in.UserID,
	}
	if f.FileID == "" {
		f.FileID = h.newID()
	}
	if f.Status == "" {
		f.Status = models.FileStatusProcessing
	}
	return f
}
