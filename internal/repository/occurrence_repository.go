package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edsonosf/gdp/internal/models"
)

const occurrenceColumns = `o.id, o.student_id, o.date, o.type, o.severity, o.titles, o.description, o.reporter_name, o.reporter_id,
        o.status, o.resolved_at, o.resolved_by, o.created_at`

const occurrenceInsert = `INSERT INTO occurrences (id, student_id, date, type, severity, titles, description, reporter_name,
        reporter_id, status, resolved_at, resolved_by, created_at)
        VALUES (:id, :student_id, :date, :type, :severity, :titles, :description, :reporter_name,
        :reporter_id, :status, :resolved_at, :resolved_by, :created_at)`

// OccurrenceRepository persists occurrence reports.
type OccurrenceRepository struct {
	db *sqlx.DB
}

// NewOccurrenceRepository constructs an OccurrenceRepository.
func NewOccurrenceRepository(db *sqlx.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// Create inserts a new occurrence.
func (r *OccurrenceRepository) Create(ctx context.Context, occurrence *models.Occurrence) error {
	if occurrence.ID == "" {
		occurrence.ID = uuid.NewString()
	}
	if occurrence.CreatedAt.IsZero() {
		occurrence.CreatedAt = time.Now().UTC()
	}
	if occurrence.Titles == nil {
		occurrence.Titles = []string{}
	}
	if _, err := r.db.NamedExecContext(ctx, occurrenceInsert, occurrence); err != nil {
		return fmt.Errorf("create occurrence: %w", err)
	}
	return nil
}

// FindByID returns one occurrence with its student's name.
func (r *OccurrenceRepository) FindByID(ctx context.Context, id string) (*models.OccurrenceWithStudent, error) {
	query := fmt.Sprintf(`SELECT %s, COALESCE(s.name, '') AS student_name, COALESCE(s.grade, '') AS student_grade
        FROM occurrences o LEFT JOIN students s ON s.id = o.student_id WHERE o.id = $1`, occurrenceColumns)
	var occurrence models.OccurrenceWithStudent
	if err := r.db.GetContext(ctx, &occurrence, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find occurrence: %w", err)
	}
	return &occurrence, nil
}

// List returns occurrences matching the filter, newest incident first.
func (r *OccurrenceRepository) List(ctx context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, int, error) {
	base, args := occurrenceWhere(filter)

	page, size := models.ClampPage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, COALESCE(s.name, '') AS student_name, COALESCE(s.grade, '') AS student_grade
        %s ORDER BY o.date DESC, o.created_at DESC LIMIT %d OFFSET %d`, occurrenceColumns, base, size, offset)
	var occurrences []models.OccurrenceWithStudent
	if err := r.db.SelectContext(ctx, &occurrences, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list occurrences: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count occurrences: %w", err)
	}
	return occurrences, total, nil
}

// ListForExport returns every occurrence matching the filter without pagination.
func (r *OccurrenceRepository) ListForExport(ctx context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, error) {
	base, args := occurrenceWhere(filter)
	query := fmt.Sprintf(`SELECT %s, COALESCE(s.name, '') AS student_name, COALESCE(s.grade, '') AS student_grade
        %s ORDER BY o.date DESC, o.created_at DESC`, occurrenceColumns, base)
	var occurrences []models.OccurrenceWithStudent
	if err := r.db.SelectContext(ctx, &occurrences, query, args...); err != nil {
		return nil, fmt.Errorf("export occurrences: %w", err)
	}
	return occurrences, nil
}

// ListByStudent returns the history of one student, newest first.
func (r *OccurrenceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Occurrence, error) {
	query := fmt.Sprintf(`SELECT %s FROM occurrences o WHERE o.student_id = $1 ORDER BY o.date DESC, o.created_at DESC`, occurrenceColumns)
	var occurrences []models.Occurrence
	if err := r.db.SelectContext(ctx, &occurrences, query, studentID); err != nil {
		return nil, fmt.Errorf("list student occurrences: %w", err)
	}
	return occurrences, nil
}

// ListAll returns every occurrence, used by backups.
func (r *OccurrenceRepository) ListAll(ctx context.Context) ([]models.Occurrence, error) {
	query := fmt.Sprintf(`SELECT %s FROM occurrences o ORDER BY o.created_at ASC`, occurrenceColumns)
	var occurrences []models.Occurrence
	if err := r.db.SelectContext(ctx, &occurrences, query); err != nil {
		return nil, fmt.Errorf("list all occurrences: %w", err)
	}
	return occurrences, nil
}

// CountByStudent counts every occurrence of a student regardless of category or status.
func (r *OccurrenceRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM occurrences WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("count student occurrences: %w", err)
	}
	return count, nil
}

// Resolve moves a pending occurrence to resolved. It reports false when the row was not pending.
func (r *OccurrenceRepository) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (bool, error) {
	const query = `UPDATE occurrences SET status = $2, resolved_at = $3, resolved_by = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.OccurrenceResolved, at, resolvedBy, models.OccurrencePending)
	if err != nil {
		return false, fmt.Errorf("resolve occurrence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve occurrence rows: %w", err)
	}
	return affected > 0, nil
}

func occurrenceWhere(filter models.OccurrenceFilter) (string, []interface{}) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("o.type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("o.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ReporterID != "" {
		conditions = append(conditions, fmt.Sprintf("o.reporter_id = $%d", len(args)+1))
		args = append(args, filter.ReporterID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("o.date >= $%d", len(args)+1))
		args = append(args, filter.From.Format(models.OccurrenceDateLayout))
	}

	return "FROM occurrences o LEFT JOIN students s ON s.id = o.student_id WHERE " + strings.Join(conditions, " AND "), args
}
