package models

import (
	"encoding/json"
	"time"
)

// UserAnalytics is one row of per-session engagement data.
type UserAnalytics struct {
	UserID          string          `json:"user_id"`
	SessionDuration *int64          `json:"session_duration"`
	PagesVisited    int64           `json:"pages_visited"`
	TotalClicks     *string         `json:"total_clicks"`
	FeatureUsage    json.RawMessage `json:"feature_usage"`
	Browser         *string         `json:"browser"`
	OperatingSystem *string         `json:"operating_system"`
	Country         *string         `json:"country"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ProcessingJob struct {
	JobID                     string          `json:"job_id"`
	FileName                  string          `json:"file_name"`
	FileSize                  *int64          `json:"file_size"`
	ProcessingStatus          string          `json:"processing_status"`
	ProcessingSteps           json.RawMessage `json:"processing_steps"`
	QualityMetrics            json.RawMessage `json:"quality_metrics"`
	ProcessingDurationSeconds *float64        `json:"processing_duration_seconds"`
	CPUUsagePercent           *float64        `json:"cpu_usage_percent"`
	CreatedAt                 time.Time       `json:"created_at"`
}

type DailyReport struct {
	ReportDate         time.Time `json:"report_date"`
	TotalUsers         int64     `json:"total_users"`
	ActiveUsers        int64     `json:"active_users"`
	FilesProcessed     int64     `json:"files_processed"`
	AvgCPUUsage        *string   `json:"avg_cpu_usage"`
	AvgMemoryUsage     *string   `json:"avg_memory_usage"`
	AvgSessionDuration *string   `json:"avg_session_duration"`
	AvgResponseTime    *string   `json:"avg_response_time"`
}

type HighEngagementUser struct {
	UserID       string          `json:"user_id"`
	FeaturesUsed json.RawMessage `json:"features_used"`
	ClickCount   int64           `json:"click_count"`
}

type AnalyticsSummary struct {
	TotalAnalyticsRecords int `json:"total_analytics_records"`
	TotalProcessingJobs   int `json:"total_processing_jobs"`
	TotalDailyReports     int `json:"total_daily_reports"`
	HighEngagementCount   int `json:"high_engagement_count"`
}

// AnalyticsReport is the relational analytics bundle.
type AnalyticsReport struct {
	UserAnalytics       []UserAnalytics      `json:"user_analytics"`
	ProcessingJobs      []ProcessingJob      `json:"processing_jobs"`
	DailyReports        []DailyReport        `json:"daily_reports"`
	HighEngagementUsers []HighEngagementUser `json:"high_engagement_users"`
	Summary             AnalyticsSummary     `json:"summary"`
}
