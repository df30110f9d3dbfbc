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

const studentColumns = `s.id, s.name, s.social_name, s.grade, s.classroom, s.room, s.turn, s.birth_date,
        s.responsible_name, s.relationship, s.other_relationship, s.contact_phone, s.backup_phone, s.landline, s.work_phone,
        s.email, s.profile_image, s.observations, s.is_aee, s.pcd_status, s.cid, s.investigation_description, s.school_need,
        s.pedagogical_evaluation_type, s.created_at, s.updated_at`

const studentInsert = `INSERT INTO students (id, name, social_name, grade, classroom, room, turn, birth_date, responsible_name,
        relationship, other_relationship, contact_phone, backup_phone, landline, work_phone, email, profile_image, observations,
        is_aee, pcd_status, cid, investigation_description, school_need, pedagogical_evaluation_type, created_at, updated_at)
        VALUES (:id, :name, :social_name, :grade, :classroom, :room, :turn, :birth_date, :responsible_name,
        :relationship, :other_relationship, :contact_phone, :backup_phone, :landline, :work_phone, :email, :profile_image, :observations,
        :is_aee, :pcd_status, :cid, :investigation_description, :school_need, :pedagogical_evaluation_type, :created_at, :updated_at)`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters ordered by name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(s.social_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Turn != "" {
		conditions = append(conditions, fmt.Sprintf("s.turn = $%d", len(args)+1))
		args = append(args, filter.Turn)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.room) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Room)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page, size := models.ClampPage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.name ASC LIMIT %d OFFSET %d", studentColumns, base, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns the whole roster, used by backups.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s ORDER BY s.name ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Exists reports whether a student with the id is on the roster.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student)
	if _, err := r.db.NamedExecContext(ctx, studentInsert, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts the student unless its id already exists. It reports whether a row was written.
func (r *StudentRepository) CreateIfAbsent(ctx context.Context, student *models.Student) (bool, error) {
	prepareStudent(student)
	res, err := r.db.NamedExecContext(ctx, studentInsert+" ON CONFLICT (id) DO NOTHING", student)
	if err != nil {
		return false, fmt.Errorf("seed student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed student rows: %w", err)
	}
	return affected > 0, nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	if student.SchoolNeed == nil {
		student.SchoolNeed = []string{}
	}
	const query = `UPDATE students SET name = :name, social_name = :social_name, grade = :grade, classroom = :classroom, room = :room,
        turn = :turn, birth_date = :birth_date, responsible_name = :responsible_name, relationship = :relationship,
        other_relationship = :other_relationship, contact_phone = :contact_phone, backup_phone = :backup_phone, landline = :landline,
        work_phone = :work_phone, email = :email, profile_image = :profile_image, observations = :observations, is_aee = :is_aee,
        pcd_status = :pcd_status, cid = :cid, investigation_description = :investigation_description, school_need = :school_need,
        pedagogical_evaluation_type = :pedagogical_evaluation_type, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res, "update student")
}

// Delete removes the student together with its occurrences in one transaction.
func (r *StudentRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM occurrences WHERE student_id = $1", id); err != nil {
		return fmt.Errorf("delete student occurrences: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if err = expectAffected(res, "delete student"); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	return nil
}

// PendingAnalysis lists students with at least one occurrence, most occurrences first.
func (r *StudentRepository) PendingAnalysis(ctx context.Context) ([]models.PendingStudent, error) {
	const query = `SELECT s.id AS student_id, s.name, s.grade, s.classroom, s.profile_image,
        COUNT(o.id) AS occurrence_count,
        COUNT(o.id) FILTER (WHERE o.status = $1) AS pending_count,
        MAX(o.date) AS last_occurrence,
        (SELECT o2.severity FROM occurrences o2 WHERE o2.student_id = s.id ORDER BY o2.date DESC LIMIT 1) AS last_severity
        FROM students s JOIN occurrences o ON o.student_id = s.id
        GROUP BY s.id, s.name, s.grade, s.classroom, s.profile_image
        ORDER BY occurrence_count DESC, s.name ASC`
	var pending []models.PendingStudent
	if err := r.db.SelectContext(ctx, &pending, query, models.OccurrencePending); err != nil {
		return nil, fmt.Errorf("pending analysis: %w", err)
	}
	return pending, nil
}

func prepareStudent(student *models.Student) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.UpdatedAt.IsZero() {
		student.UpdatedAt = now
	}
	if student.SchoolNeed == nil {
		student.SchoolNeed = []string{}
	}
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
