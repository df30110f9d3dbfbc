package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edsonosf/gdp/internal/models"
)

// ReportDimension names a column occurrences can be grouped by.
type ReportDimension string

const (
	DimensionCategory ReportDimension = "type"
	DimensionSeverity ReportDimension = "severity"
	DimensionStatus   ReportDimension = "status"
)

// ReportRepository computes occurrence aggregates for the reports dashboard.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Total counts occurrences since the given local date-time, or all of them when from is nil.
func (r *ReportRepository) Total(ctx context.Context, from *time.Time) (int, error) {
	where, args := periodWhere(from)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM occurrences o"+where, args...); err != nil {
		return 0, fmt.Errorf("count report occurrences: %w", err)
	}
	return total, nil
}

// CountBy groups occurrences by the dimension, largest group first.
func (r *ReportRepository) CountBy(ctx context.Context, dimension ReportDimension, from *time.Time) ([]models.CountRow, error) {
	switch dimension {
	case DimensionCategory, DimensionSeverity, DimensionStatus:
	default:
		return nil, fmt.Errorf("count by %q: unsupported dimension", dimension)
	}
	where, args := periodWhere(from)
	query := fmt.Sprintf("SELECT o.%s AS label, COUNT(*) AS count FROM occurrences o%s GROUP BY o.%s ORDER BY count DESC, label ASC",
		dimension, where, dimension)
	var rows []models.CountRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count by %s: %w", dimension, err)
	}
	return rows, nil
}

// TopStudents ranks students by number of occurrences in the period.
func (r *ReportRepository) TopStudents(ctx context.Context, from *time.Time, limit int) ([]models.StudentCount, error) {
	if limit <= 0 {
		limit = 5
	}
	where, args := periodWhere(from)
	query := fmt.Sprintf(`SELECT o.student_id, COALESCE(s.name, '') AS name, COUNT(*) AS count
        FROM occurrences o LEFT JOIN students s ON s.id = o.student_id%s
        GROUP BY o.student_id, s.name ORDER BY count DESC, name ASC LIMIT %d`, where, limit)
	var rows []models.StudentCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("top students: %w", err)
	}
	return rows, nil
}

func periodWhere(from *time.Time) (string, []interface{}) {
	if from == nil {
		return "", nil
	}
	return " WHERE o.date >= $1", []interface{}{from.Format(models.OccurrenceDateLayout)}
}
