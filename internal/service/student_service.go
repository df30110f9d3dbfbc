package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edsonosf/gdp/internal/models"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/mask"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	PendingAnalysis(ctx context.Context) ([]models.PendingStudent, error)
}

type studentOccurrenceReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Occurrence, error)
	CountByStudent(ctx context.Context, studentID string) (int, error)
}

// StudentRequest is the create/update payload of a student.
type StudentRequest struct {
	Name                      string   `json:"name" validate:"required,max=200"`
	SocialName                string   `json:"socialName" validate:"max=200"`
	Grade                     string   `json:"grade"`
	Classroom                 string   `json:"classroom"`
	Room                      string   `json:"room"`
	Turn                      string   `json:"turn" validate:"turn"`
	ProfileImage              string   `json:"profileImage"`
	BirthDate                 string   `json:"birthDate"`
	ResponsibleName           string   `json:"responsibleName"`
	Relationship              string   `json:"relationship"`
	OtherRelationship         string   `json:"otherRelationship"`
	ContactPhone              string   `json:"contactPhone"`
	BackupPhone               string   `json:"backupPhone"`
	Landline                  string   `json:"landline"`
	WorkPhone                 string   `json:"workPhone"`
	Email                     string   `json:"email" validate:"omitempty,email"`
	Observations              string   `json:"observations"`
	IsAEE                     bool     `json:"isAEE"`
	PcdStatus                 string   `json:"pcdStatus" validate:"pcd_status"`
	CID                       string   `json:"cid"`
	InvestigationDescription  string   `json:"investigationDescription"`
	SchoolNeed                []string `json:"schoolNeed" validate:"dive,school_need"`
	PedagogicalEvaluationType string   `json:"pedagogicalEvaluationType"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo        studentRepository
	occurrences studentOccurrenceReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, occurrences studentOccurrenceReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		occurrences: occurrences,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns students ordered by name.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	now := s.now()
	for i := range students {
		students[i].WithAge(now)
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns the student with its occurrence count and recidivism flag.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.occurrences.CountByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count occurrences")
	}
	return &models.StudentDetail{Student: *student, OccurrenceCount: count, Recidivist: count > 0}, nil
}

// Create registers a student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	student := &models.Student{ID: uuid.NewString()}
	applyStudent(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.cache.InvalidateReports(ctx)
	student.WithAge(s.now())
	return student, nil
}

// Update replaces the editable fields of a student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	applyStudent(student, req)
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.cache.InvalidateReports(ctx)
	student.WithAge(s.now())
	return student, nil
}

// Delete removes a student together with its occurrences.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.cache.InvalidateReports(ctx)
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// History lists the student's occurrences, newest first.
func (s *StudentService) History(ctx context.Context, id string) ([]models.Occurrence, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	occurrences, err := s.occurrences.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occurrence history")
	}
	if occurrences == nil {
		occurrences = []models.Occurrence{}
	}
	return occurrences, nil
}

// Recidivism reports how many occurrences the student has accumulated.
func (s *StudentService) Recidivism(ctx context.Context, id string) (*models.Recidivism, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	count, err := s.occurrences.CountByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count occurrences")
	}
	return &models.Recidivism{StudentID: id, Count: count, Recidivist: count > 0}, nil
}

// PendingAnalysis lists students that have occurrences, most affected first.
func (s *StudentService) PendingAnalysis(ctx context.Context) ([]models.PendingStudent, error) {
	pending, err := s.repo.PendingAnalysis(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending students")
	}
	if pending == nil {
		pending = []models.PendingStudent{}
	}
	return pending, nil
}

func (s *StudentService) find(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	student.WithAge(s.now())
	return student, nil
}

func applyStudent(student *models.Student, req StudentRequest) {
	student.Name = strings.TrimSpace(req.Name)
	student.SocialName = strings.TrimSpace(req.SocialName)
	student.Grade = req.Grade
	student.Classroom = req.Classroom
	student.Room = req.Room
	student.Turn = req.Turn
	student.ProfileImage = req.ProfileImage
	student.BirthDate = req.BirthDate
	student.ResponsibleName = req.ResponsibleName
	student.Relationship = req.Relationship
	student.OtherRelationship = req.OtherRelationship
	student.ContactPhone = mask.Phone(req.ContactPhone)
	student.BackupPhone = mask.Phone(req.BackupPhone)
	student.Landline = mask.Landline(req.Landline)
	student.WorkPhone = mask.Phone(req.WorkPhone)
	student.Email = strings.TrimSpace(req.Email)
	student.Observations = req.Observations
	student.IsAEE = req.IsAEE
	student.PcdStatus = req.PcdStatus
	student.CID = req.CID
	student.InvestigationDescription = req.InvestigationDescription
	student.SchoolNeed = req.SchoolNeed
	student.PedagogicalEvaluationType = req.PedagogicalEvaluationType
}
