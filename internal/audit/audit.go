// Package audit records operator actions (logins, imports, media URL
// grants) in Postgres and serves them to the audit log viewer.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Actions recorded by the console.
const (
	ActionLogin           = "login"
	ActionImportStarted   = "import_started"
	ActionImportCompleted = "import_completed"
	ActionUploadURLIssued = "upload_url_issued"
)

// Entry is one audit log record.
type Entry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	UserID    int64          `json:"userId"`
	UserEmail string         `json:"userEmail"`
	IPAddress string         `json:"ipAddress,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Service handles audit log operations.
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates an audit service backed by the given pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// EnsureSchema creates the audit_log table if it does not exist.
func (s *Service) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_log (
			id         UUID PRIMARY KEY,
			action     TEXT NOT NULL,
			user_id    BIGINT NOT NULL,
			user_email TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			detail     JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Record inserts one audit entry. Failures are returned, not fatal;
// callers log and continue rather than failing the operator action.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	var detail []byte
	if e.Detail != nil {
		var err error
		detail, err = json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, action, user_id, user_email, ip_address, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.Action, e.UserID, e.UserEmail, e.IPAddress, detail)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns recent entries, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, action, user_id, user_email, ip_address, detail, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detail []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.UserEmail, &e.IPAddress, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Detail)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return entries, nil
}
