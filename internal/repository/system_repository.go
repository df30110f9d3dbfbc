package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edsonosf/gdp/internal/models"
)

// RestoreSet is the full content written by a restore.
type RestoreSet struct {
	Students    []models.Student
	Occurrences []models.Occurrence
	Users       []models.User
	Logs        []models.AccessLog
}

// SystemRepository runs database-wide maintenance statements.
type SystemRepository struct {
	db *sqlx.DB
}

// NewSystemRepository constructs a SystemRepository.
func NewSystemRepository(db *sqlx.DB) *SystemRepository {
	return &SystemRepository{db: db}
}

// Now returns the database clock, doubling as a connectivity probe.
func (r *SystemRepository) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.GetContext(ctx, &now, "SELECT NOW()"); err != nil {
		return time.Time{}, fmt.Errorf("database time: %w", err)
	}
	return now, nil
}

// Counts returns the number of rows per backed-up table.
func (r *SystemRepository) Counts(ctx context.Context) (models.BackupCounts, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students) AS students,
        (SELECT COUNT(*) FROM occurrences) AS occurrences,
        (SELECT COUNT(*) FROM users) AS users,
        (SELECT COUNT(*) FROM access_logs) AS logs`
	var counts models.BackupCounts
	if err := r.db.QueryRowxContext(ctx, query).Scan(&counts.Students, &counts.Occurrences, &counts.Users, &counts.Logs); err != nil {
		return models.BackupCounts{}, fmt.Errorf("count records: %w", err)
	}
	return counts, nil
}

// Restore replaces the database content in one transaction. The seeded administrator is kept
// and any incoming record with its id is skipped.
func (r *SystemRepository) Restore(ctx context.Context, set RestoreSet) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "TRUNCATE occurrences, students, access_logs RESTART IDENTITY CASCADE"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM users WHERE id <> $1", models.SeedAdminID); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}

	for i := range set.Students {
		prepareStudent(&set.Students[i])
		if _, err = tx.NamedExecContext(ctx, studentInsert, &set.Students[i]); err != nil {
			return fmt.Errorf("restore student %s: %w", set.Students[i].ID, err)
		}
	}
	for i := range set.Users {
		if set.Users[i].ID == models.SeedAdminID {
			continue
		}
		prepareUser(&set.Users[i])
		if _, err = tx.NamedExecContext(ctx, userInsert, &set.Users[i]); err != nil {
			return fmt.Errorf("restore user %s: %w", set.Users[i].ID, err)
		}
	}
	for i := range set.Occurrences {
		occurrence := &set.Occurrences[i]
		if occurrence.Titles == nil {
			occurrence.Titles = []string{}
		}
		if occurrence.CreatedAt.IsZero() {
			occurrence.CreatedAt = time.Now().UTC()
		}
		if _, err = tx.NamedExecContext(ctx, occurrenceInsert, occurrence); err != nil {
			return fmt.Errorf("restore occurrence %s: %w", occurrence.ID, err)
		}
	}
	for i := range set.Logs {
		entry := &set.Logs[i]
		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now().UTC()
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO access_logs (timestamp, user_id, event, status, description, ip_address, user_agent, device_info)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, entry.Timestamp, entry.UserID, entry.Event, entry.Status, entry.Description,
			entry.IPAddress, entry.UserAgent, entry.DeviceInfo); err != nil {
			return fmt.Errorf("restore access log: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}
