// Package base holds the plumbing every request handler shares: per-handler
// settings, the invocation wrapper and body decoding.
package base

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"session-handlers/internal/common/apigw"
	"session-handlers/internal/common/config"
	apperrors "session-handlers/internal/common/errors"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/common/metrics"
	"session-handlers/internal/common/validation"

	"github.com/aws/aws-lambda-go/events"
)

// Config holds the settings every handler has.
type Config struct {
	Enabled bool
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{Enabled: true, Timeout: 30 * time.Second}
}

// FromApp reads the handlers.<name> section, falling back to defaults.
func FromApp(cfg *config.Config, name string) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	hc := config.GetHandlerConfig(cfg, name)
	c := Config{Enabled: hc.Enabled, Timeout: config.GetDuration(hc.Timeout)}
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig().Timeout
	}
	return c
}

func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Invoke runs fn under the handler timeout with a request scoped logger and
// records the request metrics. A disabled handler answers 503 and a panic in
// fn answers 500.
func Invoke(
	ctx context.Context,
	name string,
	cfg Config,
	base logger.Logger,
	req events.APIGatewayProxyRequest,
	fn func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse,
) (events.APIGatewayProxyResponse, error) {
	started := time.Now()
	log := logger.ForRequest(base, name, apigw.RequestID(req))

	var resp events.APIGatewayProxyResponse
	if !cfg.Enabled {
		log.Info("handler disabled by configuration", nil)
		resp = apigw.Error(http.StatusServiceUnavailable, name+" is disabled")
	} else {
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		resp = call(ctx, name, log, fn)
		cancel()
	}

	metrics.ObserveRequest(name, resp.StatusCode, started)
	log.Debug("request completed", map[string]interface{}{
		"status":     resp.StatusCode,
		"durationMs": time.Since(started).Milliseconds(),
	})
	return resp, nil
}

// call runs fn and turns a panic into a 500.
func call(
	ctx context.Context,
	name string,
	log logger.Logger,
	fn func(ctx context.Context, log logger.Logger) events.APIGatewayProxyResponse,
) (resp events.APIGatewayProxyResponse) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", map[string]interface{}{
				"reason": fmt.Sprint(r),
				"stack":  string(debug.Stack()),
			})
			resp = apigw.FromError(name, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn(ctx, log)
}

// DecodeBody validates the request body against schema and decodes it into
// dst. Any validation failure is reported with message.
func DecodeBody(req events.APIGatewayProxyRequest, schema *validation.Compiled, message string, dst interface{}) error {
	body := []byte(req.Body)
	if res := schema.ValidateBody(body); !res.Valid {
		err := apperrors.NewValidationError(message)
		err.Details = strings.Join(res.GetErrorMessages(), "; ")
		return err
	}
	if len(strings.TrimSpace(req.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		e := apperrors.NewValidationError(message)
		e.Details = err.Error()
		return e
	}
	return nil
}

// Fail logs err and maps it to a response. Client errors log at info.
func Fail(log logger.Logger, operation string, err error) events.APIGatewayProxyResponse {
	fields := map[string]interface{}{"error": err.Error(), "errorCode": string(apperrors.Normalize(err).Code)}
	if apperrors.IsClientError(err) {
		log.Info(operation+" rejected", fields)
	} else {
		log.Error(operation+" failed", fields)
	}
	return apigw.FromError(operation, err)
}
