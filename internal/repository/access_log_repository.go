package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edsonosf/gdp/internal/models"
)

const accessLogColumns = `id, timestamp, user_id, event, status, description, ip_address, user_agent, device_info`

// AccessLogRepository stores the access trail.
type AccessLogRepository struct {
	db *sqlx.DB
}

// NewAccessLogRepository constructs an AccessLogRepository.
func NewAccessLogRepository(db *sqlx.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

// Create appends an entry and fills its generated id.
func (r *AccessLogRepository) Create(ctx context.Context, entry *models.AccessLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO access_logs (timestamp, user_id, event, status, description, ip_address, user_agent, device_info)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, entry.Timestamp, entry.UserID, entry.Event, entry.Status, entry.Description,
		entry.IPAddress, entry.UserAgent, entry.DeviceInfo).Scan(&entry.ID); err != nil {
		return fmt.Errorf("create access log: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *AccessLogRepository) List(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLog, error) {
	var conditions []string
	var args []interface{}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Event != "" {
		conditions = append(conditions, fmt.Sprintf("event = $%d", len(args)+1))
		args = append(args, filter.Event)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := "SELECT " + accessLogColumns + " FROM access_logs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC, id DESC LIMIT %d", limit)

	var logs []models.AccessLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return logs, nil
}

// ListAll returns the full trail in insertion order, used by backups.
func (r *AccessLogRepository) ListAll(ctx context.Context) ([]models.AccessLog, error) {
	var logs []models.AccessLog
	if err := r.db.SelectContext(ctx, &logs, "SELECT "+accessLogColumns+" FROM access_logs ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("list all access logs: %w", err)
	}
	return logs, nil
}

// Clear removes every entry and reports how many were deleted.
func (r *AccessLogRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM access_logs")
	if err != nil {
		return 0, fmt.Errorf("clear access logs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear access logs rows: %w", err)
	}
	return deleted, nil
}
