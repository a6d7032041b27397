package analyticsdata

import "session-handlers/internal/models"

type Output struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    *models.AnalyticsReport `json:"data"`
}
