package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"session-handlers/internal/models"

	"golang.org/x/sync/errgroup"
)

const userAnalyticsQuery = `
	SELECT
		ua.user_id,
		ua.session_duration,
		ua.pages_visited,
		ua.actions_performed->>'clicks' AS total_clicks,
		ua.actions_performed->'feature_usage' AS feature_usage,
		ua.device_info->>'browser' AS browser,
		ua.device_info->>'os' AS operating_system,
		ua.location_data->>'country' AS country,
		ua.created_at
	FROM user_analytics ua
	ORDER BY ua.created_at DESC
	LIMIT 10`

const processingJobsQuery = `
	SELECT
		fpj.job_id,
		fpj.file_name,
		fpj.file_size,
		fpj.processing_status,
		fpj.processing_metadata->'processing_steps' AS processing_steps,
		fpj.processing_metadata->'quality_metrics' AS quality_metrics,
		fpj.processing_duration_seconds,
		fpj.cpu_usage_percent,
		fpj.created_at
	FROM file_processing_jobs fpj
	WHERE fpj.processing_status = 'completed'
	ORDER BY fpj.created_at DESC
	LIMIT 5`

const dailyReportsQuery = `
	SELECT
		dr.report_date,
		dr.total_users,
		dr.active_users,
		dr.files_processed,
		dr.system_metrics->'cpu_usage'->>'avg' AS avg_cpu_usage,
		dr.system_metrics->'memory_usage'->>'avg' AS avg_memory_usage,
		dr.user_engagement_data->'session_duration'->>'avg' AS avg_session_duration,
		dr.performance_metrics->'api_response_time'->>'avg' AS avg_response_time
	FROM daily_reports dr
	ORDER BY dr.report_date DESC
	LIMIT 7`

const highEngagementQuery = `
	SELECT
		ua.user_id,
		ua.actions_performed->'feature_usage' AS features_used,
		(ua.actions_performed->>'clicks')::int AS click_count
	FROM user_analytics ua
	WHERE (ua.actions_performed->>'clicks')::int > 30
		AND ua.actions_performed->'feature_usage'->>'dashboard' IS NOT NULL
	ORDER BY (ua.actions_performed->>'clicks')::int DESC`

// Analytics runs the four report queries concurrently. Any failure fails
// the whole report.
func (s *Store) Analytics(ctx context.Context) (*models.AnalyticsReport, error) {
	report := &models.AnalyticsReport{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.userAnalytics(gctx)
		report.UserAnalytics = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.processingJobs(gctx)
		report.ProcessingJobs = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.dailyReports(gctx)
		report.DailyReports = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.highEngagement(gctx)
		report.HighEngagementUsers = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Summary = models.AnalyticsSummary{
		TotalAnalyticsRecords: len(report.UserAnalytics),
		TotalProcessingJobs:   len(report.ProcessingJobs),
		TotalDailyReports:     len(report.DailyReports),
		HighEngagementCount:   len(report.HighEngagementUsers),
	}
	return report, nil
}

func (s *Store) userAnalytics(ctx context.Context) ([]models.UserAnalytics, error) {
	rows, err := s.db.QueryContext(ctx, userAnalyticsQuery)
	if err != nil {
		return nil, fmt.Errorf("user analytics: %w", err)
	}
	defer rows.Close()

	out := []models.UserAnalytics{}
	for rows.Next() {
		var (
			a        models.UserAnalytics
			duration sql.NullInt64
			pages    sql.NullInt64
			clicks   sql.NullString
			features []byte
			browser  sql.NullString
			osName   sql.NullString
			country  sql.NullString
		)
		if err := rows.Scan(&a.UserID, &duration, &pages, &clicks, &features, &browser, &osName, &country, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user analytics: %w", err)
		}
		a.SessionDuration = int64Ptr(duration)
		a.PagesVisited = pages.Int64
		a.TotalClicks = stringPtr(clicks)
		a.FeatureUsage = rawJSON(features)
		a.Browser = stringPtr(browser)
		a.OperatingSystem = stringPtr(osName)
		a.Country = stringPtr(country)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) processingJobs(ctx context.Context) ([]models.ProcessingJob, error) {
	rows, err := s.db.QueryContext(ctx, processingJobsQuery)
	if err != nil {
		return nil, fmt.Errorf("processing jobs: %w", err)
	}
	defer rows.Close()

	out := []models.ProcessingJob{}
	for rows.Next() {
		var (
			j        models.ProcessingJob
			size     sql.NullInt64
			status   sql.NullString
			steps    []byte
			quality  []byte
			duration sql.NullFloat64
			cpu      sql.NullFloat64
		)
		if err := rows.Scan(&j.JobID, &j.FileName, &size, &status, &steps, &quality, &duration, &cpu, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan processing job: %w", err)
		}
		j.FileSize = int64Ptr(size)
		j.ProcessingStatus = status.String
		j.ProcessingSteps = rawJSON(steps)
		j.QualityMetrics = rawJSON(quality)
		j.ProcessingDurationSeconds = float64Ptr(duration)
		j.CPUUsagePercent = float64Ptr(cpu)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) dailyReports(ctx context.Context) ([]models.DailyReport, error) {
	rows, err := s.db.QueryContext(ctx, dailyReportsQuery)
	if err != nil {
		return nil, fmt.Errorf("daily reports: %w", err)
	}
	defer rows.Close()

	out := []models.DailyReport{}
	for rows.Next() {
		var (
			r                         models.DailyReport
			total, active, files      sql.NullInt64
			cpu, mem, session, respTm sql.NullString
		)
		if err := rows.Scan(&r.ReportDate, &total, &active, &files, &cpu, &mem, &session, &respTm); err != nil {
			return nil, fmt.Errorf("scan daily report: %w", err)
		}
		r.TotalUsers, r.ActiveUsers, r.FilesProcessed = total.Int64, active.Int64, files.Int64
		r.AvgCPUUsage = stringPtr(cpu)
		r.AvgMemoryUsage = stringPtr(mem)
		r.AvgSessionDuration = stringPtr(session)
		r.AvgResponseTime = stringPtr(respTm)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) highEngagement(ctx context.Context) ([]models.HighEngagementUser, error) {
	rows, err := s.db.QueryContext(ctx, highEngagementQuery)
	if err != nil {
		return nil, fmt.Errorf("high engagement users: %w", err)
	}
	defer rows.Close()

	out := []models.HighEngagementUser{}
	for rows.Next() {
		var (
			h        models.HighEngagementUser
			features []byte
		)
		if err := rows.Scan(&h.UserID, &features, &h.ClickCount); err != nil {
			return nil, fmt.Errorf("scan engagement row: %w", err)
		}
		h.FeaturesUsed = rawJSON(features)
		out = append(out, h)
	}
	return out, rows.Err()
}

// rawJSON copies driver bytes; NULL becomes JSON null.
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return append(json.RawMessage(nil), b...)
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func float64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
