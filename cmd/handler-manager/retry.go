package main

import (
	"fmt"
	"time"

	"session-handlers/internal/common/logger"
)

// retryWithBackoff runs operation until it succeeds, maxRetries is reached or
// retryable rejects the error. A nil retryable retries every error.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, retryable func(error) bool, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return fmt.Errorf("%s failed: %w", operationName, err)
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
