package dashboardhybrid

import "session-handlers/internal/dashboard"

type Output struct {
	Success   bool                  `json:"success"`
	Data      *dashboard.HybridView `json:"data"`
	Timestamp string                `json:"timestamp"`
}
