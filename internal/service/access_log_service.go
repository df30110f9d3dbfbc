package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edsonosf/gdp/internal/models"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/jobs"
)

const accessLogJob = "access_log.write"

type accessLogRepository interface {
	Create(ctx context.Context, entry *models.AccessLog) error
	List(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLog, error)
	Clear(ctx context.Context) (int64, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// CreateAccessLogRequest is the payload clients post to record their own events.
type CreateAccessLogRequest struct {
	UserID      string              `json:"userId"`
	Event       models.AccessEvent  `json:"event" validate:"required"`
	Status      models.AccessStatus `json:"status" validate:"required,oneof=success failure"`
	Description string              `json:"description" validate:"max=500"`
	DeviceInfo  *models.DeviceInfo  `json:"deviceInfo"`
	IPAddress   string              `json:"-"`
	UserAgent   string              `json:"-"`
}

// AccessLogService records and queries the access trail.
type AccessLogService struct {
	repo      accessLogRepository
	queue     jobQueue
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccessLogService constructs the service. Without a queue entries are written synchronously.
func NewAccessLogService(repo accessLogRepository, queue jobQueue, validate *validator.Validate, logger *zap.Logger) *AccessLogService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessLogService{repo: repo, queue: queue, validator: validate, logger: logger, now: time.Now}
}

// UseQueue routes Record through an asynchronous queue.
func (s *AccessLogService) UseQueue(queue jobQueue) {
	s.queue = queue
}

// Record stores an entry off the request path. Failures are logged, never returned.
func (s *AccessLogService) Record(ctx context.Context, entry models.AccessLog) {
	s.complete(&entry)
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{Type: accessLogJob, Payload: entry})
		if err == nil {
			return
		}
		if !errors.Is(err, jobs.ErrQueueClosed) {
			s.logger.Warn("access log queue rejected entry", zap.String("event", string(entry.Event)), zap.Error(err))
		}
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Warn("failed to record access log", zap.String("event", string(entry.Event)), zap.Error(err))
	}
}

// HandleJob writes a queued entry. It is the handler of the access-log queue.
func (s *AccessLogService) HandleJob(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AccessLog)
	if !ok {
		s.logger.Error("unexpected access log payload", zap.String("type", job.Type))
		return nil
	}
	return s.repo.Create(ctx, &entry)
}

// Create stores a client-reported event synchronously and returns it.
func (s *AccessLogService) Create(ctx context.Context, req CreateAccessLogRequest) (*models.AccessLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid access log payload")
	}
	if !req.Event.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown access log event")
	}
	entry := models.AccessLog{
		UserID:      req.UserID,
		Event:       req.Event,
		Status:      req.Status,
		Description: req.Description,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
	}
	if req.DeviceInfo != nil {
		entry.DeviceInfo = *req.DeviceInfo
	}
	s.complete(&entry)
	if err := s.repo.Create(ctx, &entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record access log")
	}
	return &entry, nil
}

// List returns the newest entries.
func (s *AccessLogService) List(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLog, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list access logs")
	}
	if logs == nil {
		logs = []models.AccessLog{}
	}
	return logs, nil
}

// Clear deletes the whole trail.
func (s *AccessLogService) Clear(ctx context.Context) (int64, error) {
	deleted, err := s.repo.Clear(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear access logs")
	}
	s.logger.Info("access logs cleared", zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *AccessLogService) complete(entry *models.AccessLog) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	if entry.DeviceInfo == (models.DeviceInfo{}) {
		entry.DeviceInfo = InferDevice(entry.UserAgent)
	}
}

var (
	tabletPattern = regexp.MustCompile(`(?i)tablet|ipad|playbook|silk`)
	mobilePattern = regexp.MustCompile(`Mobile|Android|iP(hone|od)`)
)

// InferDevice classifies a User-Agent into device type, operating system and browser.
func InferDevice(ua string) models.DeviceInfo {
	info := models.DeviceInfo{Type: "desktop", OS: "Unknown", Browser: "Unknown"}
	switch {
	case tabletPattern.MatchString(ua):
		info.Type = "tablet"
	case mobilePattern.MatchString(ua):
		info.Type = "mobile"
	}

	switch {
	case strings.Contains(ua, "Android"):
		info.OS = "Android"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"), strings.Contains(ua, "like Mac"):
		info.OS = "iOS"
	case strings.Contains(ua, "Win"):
		info.OS = "Windows"
	case strings.Contains(ua, "Mac"):
		info.OS = "MacOS"
	case strings.Contains(ua, "Linux"):
		info.OS = "Linux"
	}

	switch {
	case strings.Contains(ua, "Edg"):
		info.Browser = "Edge"
	case strings.Contains(ua, "Chrome"), strings.Contains(ua, "CriOS"):
		info.Browser = "Chrome"
	case strings.Contains(ua, "Firefox"), strings.Contains(ua, "FxiOS"):
		info.Browser = "Firefox"
	case strings.Contains(ua, "Safari"):
		info.Browser = "Safari"
	}
	return info
}
