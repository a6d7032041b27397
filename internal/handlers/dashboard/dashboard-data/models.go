package dashboarddata

import "session-handlers/internal/dashboard"

type Output struct {
	Success   bool            `json:"success"`
	Data      *dashboard.View `json:"data"`
	Timestamp string          `json:"timestamp"`
}
