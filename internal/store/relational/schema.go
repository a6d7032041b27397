package relational

import (
	"context"
	"fmt"
)

type tableDDL struct {
	name string
	sql  string
}

// schema is applied in order; user_sessions and processed_files reference users.
var schema = []tableDDL{
	{"users", `CREATE TABLE IF NOT EXISTS users (
		user_id VARCHAR(255) PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		is_currently_active BOOLEAN DEFAULT false,
		active_sessions INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`},
	{"user_sessions", `CREATE TABLE IF NOT EXISTS user_sessions (
		session_id VARCHAR(255) PRIMARY KEY,
		user_id VARCHAR(255) REFERENCES users(user_id),
		login_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		logout_time TIMESTAMP,
		last_activity TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		is_active BOOLEAN DEFAULT true
	)`},
	{"processed_files", `CREATE TABLE IF NOT EXISTS processed_files (
		file_id VARCHAR(255) PRIMARY KEY,
		file_name VARCHAR(255) NOT NULL,
		file_size BIGINT,
		status VARCHAR(50) DEFAULT 'processing',
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		user_id VARCHAR(255) REFERENCES users(user_id)
	)`},
	{"user_analytics", `CREATE TABLE IF NOT EXISTS user_analytics (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		session_duration INTEGER,
		pages_visited INTEGER DEFAULT 0,
		actions_performed JSONB,
		device_info JSONB,
		location_data JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`},
	{"file_processing_jobs", `CREATE TABLE IF NOT EXISTS file_processing_jobs (
		job_id VARCHAR(255) PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		file_size BIGINT,
		processing_status VARCHAR(50) DEFAULT 'pending',
		processing_metadata JSONB,
		processing_duration_seconds NUMERIC,
		cpu_usage_percent NUMERIC,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`},
	{"daily_reports", `CREATE TABLE IF NOT EXISTS daily_reports (
		report_date DATE PRIMARY KEY,
		total_users INTEGER DEFAULT 0,
		active_users INTEGER DEFAULT 0,
		files_processed INTEGER DEFAULT 0,
		system_metrics JSONB,
		user_engagement_data JSONB,
		performance_metrics JSONB
	)`},
	{"audit_logs", `CREATE TABLE IF NOT EXISTS audit_logs (
		log_id SERIAL PRIMARY KEY,
		user_id VARCHAR(255),
		action VARCHAR(100) NOT NULL,
		resource_type VARCHAR(50),
		request_data JSONB,
		response_data JSONB,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`},
}

// TableNames lists the tables EnsureSchema creates, in creation order.
func TableNames() []string {
	names := make([]string, len(schema))
	for i, t := range schema {
		names[i] = t.name
	}
	return names
}

// EnsureSchema creates any missing table and returns the tables it applied.
// On failure the returned slice holds the tables applied before the error.
func (s *Store) EnsureSchema(ctx context.Context) ([]string, error) {
	applied := make([]string, 0, len(schema))
	for _, t := range schema {
		if _, err := s.db.ExecContext(ctx, t.sql); err != nil {
			return applied, fmt.Errorf("create table %s: %w", t.name, err)
		}
		s.logger.Debug("table ensured", map[string]interface{}{"table": t.name})
		applied = append(applied, t.name)
	}
	return applied, nil
}
