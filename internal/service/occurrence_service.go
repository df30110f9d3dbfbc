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
)

type occurrenceRepository interface {
	Create(ctx context.Context, occurrence *models.Occurrence) error
	FindByID(ctx context.Context, id string) (*models.OccurrenceWithStudent, error)
	List(ctx context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, int, error)
	CountByStudent(ctx context.Context, studentID string) (int, error)
	Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (bool, error)
}

type occurrenceStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// Notifier pushes occurrence events to connected administrators.
type Notifier interface {
	Publish(notification models.Notification)
}

// CreateOccurrenceRequest is the reporting form payload. A client-sent severity is ignored.
type CreateOccurrenceRequest struct {
	StudentID            string          `json:"studentId" validate:"required"`
	Type                 models.Category `json:"type" validate:"required,occurrence_type"`
	Titles               []string        `json:"titles" validate:"min=1,max=3,unique,dive,required"`
	SelectedDescriptions []string        `json:"selectedDescriptions" validate:"-"`
	Description          string          `json:"description" validate:"required,max=5000"`
	Date                 string          `json:"date" validate:"occurrence_date"`
}

// UpdateOccurrenceStatusRequest moves an occurrence along its lifecycle.
type UpdateOccurrenceStatusRequest struct {
	Status models.OccurrenceStatus `json:"status" validate:"required"`
}

// OccurrenceService records and resolves occurrences.
type OccurrenceService struct {
	repo      occurrenceRepository
	students  occurrenceStudentLookup
	cache     *CacheService
	metrics   *MetricsService
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewOccurrenceService constructs the occurrence service. cache, metrics and notifier are optional.
func NewOccurrenceService(repo occurrenceRepository, students occurrenceStudentLookup, cache *CacheService, metrics *MetricsService, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *OccurrenceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccurrenceService{
		repo:      repo,
		students:  students,
		cache:     cache,
		metrics:   metrics,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates the report, derives its severity from the catalog and stores it as pending.
func (s *OccurrenceService) Create(ctx context.Context, reporter *models.JWTClaims, req CreateOccurrenceRequest) (*models.Occurrence, error) {
	if reporter == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if len(req.Titles) == 0 {
		req.Titles = req.SelectedDescriptions
	}
	titles := make([]string, 0, len(req.Titles))
	for _, title := range req.Titles {
		titles = append(titles, strings.TrimSpace(title))
	}
	req.Titles = titles
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid occurrence payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	severity, unmatched := ResolveSeverity(req.Type, req.Titles)
	if len(unmatched) > 0 {
		s.logger.Warn("occurrence titles outside catalog",
			zap.String("category", string(req.Type)),
			zap.Strings("titles", unmatched),
		)
		return nil, appErrors.Clone(appErrors.ErrValidation, "titles not in catalog for "+string(req.Type)+": "+strings.Join(unmatched, "; "))
	}
	canonical, err := canonicalTitles(req.Type, req.Titles)
	if err != nil {
		return nil, err
	}
	req.Titles = canonical

	prior, err := s.repo.CountByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count occurrences")
	}

	now := s.now()
	date := req.Date
	if date == "" {
		date = now.Format(models.OccurrenceDateLayout)
	}
	occurrence := &models.Occurrence{
		ID:           uuid.NewString(),
		StudentID:    student.ID,
		Date:         date,
		Type:         req.Type,
		Severity:     severity,
		Titles:       req.Titles,
		Description:  req.Description,
		ReporterName: reporter.Name,
		ReporterID:   reporter.UserID,
		Status:       models.OccurrencePending,
		CreatedAt:    now.UTC(),
	}
	if err := s.repo.Create(ctx, occurrence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create occurrence")
	}

	s.metrics.OccurrenceCreated(occurrence.Type, occurrence.Severity)
	s.cache.InvalidateReports(ctx)
	s.publish(models.Notification{
		Type:        models.NotificationOccurrenceCreated,
		Occurrence:  occurrence,
		StudentName: student.Name,
		Recidivist:  prior > 0,
		At:          now.UTC(),
	})
	s.logger.Info("occurrence created",
		zap.String("occurrence_id", occurrence.ID),
		zap.String("student_id", student.ID),
		zap.String("severity", string(severity)),
	)
	return occurrence, nil
}

// List returns occurrences newest first.
func (s *OccurrenceService) List(ctx context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list occurrences")
	}
	if items == nil {
		items = []models.OccurrenceWithStudent{}
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single occurrence.
func (s *OccurrenceService) Get(ctx context.Context, id string) (*models.OccurrenceWithStudent, error) {
	occurrence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "occurrence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occurrence")
	}
	return occurrence, nil
}

// UpdateStatus applies a lifecycle transition. Only Pendente -> Resolvida exists; resolving twice is a no-op.
func (s *OccurrenceService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req UpdateOccurrenceStatusRequest) (*models.OccurrenceWithStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}
	switch req.Status {
	case models.OccurrenceResolved:
		return s.Resolve(ctx, actor, id)
	case models.OccurrencePending:
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "occurrences cannot return to Pendente")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be Resolvida")
	}
}

// Resolve marks an occurrence as resolved by an administrator.
func (s *OccurrenceService) Resolve(ctx context.Context, actor *models.JWTClaims, id string) (*models.OccurrenceWithStudent, error) {
	if actor == nil || !actor.IsSystemAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can resolve occurrences")
	}
	now := s.now().UTC()
	changed, err := s.repo.Resolve(ctx, id, actor.UserID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve occurrence")
	}
	occurrence, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return occurrence, nil
	}

	s.metrics.OccurrenceResolved()
	s.cache.InvalidateReports(ctx)
	s.publish(models.Notification{
		Type:        models.NotificationOccurrenceResolved,
		Occurrence:  &occurrence.Occurrence,
		StudentName: occurrence.StudentName,
		At:          now,
	})
	s.logger.Info("occurrence resolved", zap.String("occurrence_id", id), zap.String("actor_id", actor.UserID))
	return occurrence, nil
}

func (s *OccurrenceService) publish(notification models.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(notification)
}

// canonicalTitles replaces each title with its catalog wording and rejects titles naming the same entry.
func canonicalTitles(category models.Category, titles []string) ([]string, error) {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, title := range titles {
		entry, ok := LookupClassification(category, title)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title not in catalog: "+title)
		}
		if _, dup := seen[entry.Description]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate title: "+entry.Description)
		}
		seen[entry.Description] = struct{}{}
		out = append(out, entry.Description)
	}
	return out, nil
}
