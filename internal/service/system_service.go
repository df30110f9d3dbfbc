package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/repository"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/storage"
)

type systemRepository interface {
	Now(ctx context.Context) (time.Time, error)
	Counts(ctx context.Context) (models.BackupCounts, error)
	Restore(ctx context.Context, set repository.RestoreSet) error
}

type backupSource interface {
	ListAllStudents(ctx context.Context) ([]models.Student, error)
	ListAllOccurrences(ctx context.Context) ([]models.Occurrence, error)
	ListAllUsers(ctx context.Context) ([]models.User, error)
	ListAllLogs(ctx context.Context) ([]models.AccessLog, error)
}

type lister[T any] interface {
	ListAll(ctx context.Context) ([]T, error)
}

// BackupSources adapts the per-table repositories to the backup reader.
type BackupSources struct {
	Students    lister[models.Student]
	Occurrences lister[models.Occurrence]
	Users       lister[models.User]
	Logs        lister[models.AccessLog]
}

func (b BackupSources) ListAllStudents(ctx context.Context) ([]models.Student, error) {
	return b.Students.ListAll(ctx)
}

func (b BackupSources) ListAllOccurrences(ctx context.Context) ([]models.Occurrence, error) {
	return b.Occurrences.ListAll(ctx)
}

func (b BackupSources) ListAllUsers(ctx context.Context) ([]models.User, error) {
	return b.Users.ListAll(ctx)
}

func (b BackupSources) ListAllLogs(ctx context.Context) ([]models.AccessLog, error) {
	return b.Logs.ListAll(ctx)
}

type adminLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type schemaMigrator interface {
	Reset() error
	Version() (uint, bool, error)
}

// Seeder writes the bootstrap records.
type Seeder interface {
	Run(ctx context.Context) error
}

type snapshotStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// SystemConfig tunes backup snapshots.
type SystemConfig struct {
	APIPrefix string
	Retention time.Duration
}

// SystemDeps groups the collaborators of SystemService.
type SystemDeps struct {
	Repo     systemRepository
	Source   backupSource
	Users    adminLookup
	Migrator schemaMigrator
	Seeder   Seeder
	Storage  snapshotStorage
	Signer   *storage.SignedURLSigner
	Cache    *CacheService
	Metrics  *MetricsService
}

// SystemService backs database maintenance: connectivity, backups, restore and reset.
type SystemService struct {
	deps      SystemDeps
	cfg       SystemConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSystemService constructs the system service.
func NewSystemService(deps SystemDeps, cfg SystemConfig, validate *validator.Validate, logger *zap.Logger) *SystemService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemService{deps: deps, cfg: cfg, validator: validate, logger: logger, now: time.Now}
}

// Ping checks the database and returns its clock.
func (s *SystemService) Ping(ctx context.Context) (time.Time, error) {
	now, err := s.deps.Repo.Now(ctx)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "database unreachable")
	}
	return now, nil
}

// Backup collects every table into a backup document. Users keep their password hashes.
func (s *SystemService) Backup(ctx context.Context) (*models.BackupDocument, error) {
	students, err := s.deps.Source.ListAllStudents(ctx)
	if err != nil {
		return nil, backupError("students", err)
	}
	occurrences, err := s.deps.Source.ListAllOccurrences(ctx)
	if err != nil {
		return nil, backupError("occurrences", err)
	}
	users, err := s.deps.Source.ListAllUsers(ctx)
	if err != nil {
		return nil, backupError("users", err)
	}
	logs, err := s.deps.Source.ListAllLogs(ctx)
	if err != nil {
		return nil, backupError("logs", err)
	}

	doc := &models.BackupDocument{
		Students:    nonNil(students),
		Occurrences: nonNil(occurrences),
		Users:       make([]models.BackupUser, 0, len(users)),
		Logs:        nonNil(logs),
	}
	for _, u := range users {
		doc.Users = append(doc.Users, models.BackupUser{User: u, PasswordHash: u.PasswordHash})
	}
	return doc, nil
}

// CreateSnapshot stores a backup document on disk and returns a signed download link.
func (s *SystemService) CreateSnapshot(ctx context.Context) (*models.BackupSnapshot, error) {
	if s.deps.Storage == nil || s.deps.Signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "backup storage not configured")
	}
	doc, err := s.Backup(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode backup")
	}

	now := s.now().UTC()
	id := uuid.NewString()
	name := fmt.Sprintf("backup-%s-%s.json", now.Format("20060102-150405"), id[:8])
	if _, err := s.deps.Storage.Save(name, body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store backup")
	}
	token, expiresAt, err := s.deps.Signer.Generate(id, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign backup link")
	}

	if s.cfg.Retention > 0 {
		if removed, err := s.deps.Storage.CleanupOlderThan(s.cfg.Retention); err != nil {
			s.logger.Warn("backup retention cleanup failed", zap.Error(err))
		} else if len(removed) > 0 {
			s.logger.Info("expired backups removed", zap.Strings("files", removed))
		}
	}

	s.logger.Info("backup snapshot created", zap.String("file", name))
	return &models.BackupSnapshot{
		ID:          id,
		Filename:    name,
		DownloadURL: strings.TrimRight(s.cfg.APIPrefix, "/") + "/backups/download/" + token,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		Counts:      doc.Counts(),
	}, nil
}

// OpenSnapshot resolves a signed download token to the stored file.
func (s *SystemService) OpenSnapshot(token string) (*os.File, string, error) {
	if s.deps.Storage == nil || s.deps.Signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "backup not found")
	}
	_, name, _, err := s.deps.Signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "backup not found")
	}
	file, err := s.deps.Storage.Open(name)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "backup not found")
	}
	return file, name, nil
}

// Restore replaces the database content with the document in a single transaction.
func (s *SystemService) Restore(ctx context.Context, doc *models.BackupDocument) (models.BackupCounts, error) {
	if doc == nil {
		return models.BackupCounts{}, appErrors.Clone(appErrors.ErrValidation, "backup document required")
	}
	set, err := s.prepareRestore(doc)
	if err != nil {
		return models.BackupCounts{}, err
	}
	if err := s.deps.Repo.Restore(ctx, set); err != nil {
		s.logger.Error("restore failed", zap.Error(err))
		return models.BackupCounts{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore database")
	}
	s.deps.Cache.InvalidateReports(ctx)
	counts := doc.Counts()
	s.logger.Info("database restored",
		zap.Int("students", counts.Students),
		zap.Int("occurrences", counts.Occurrences),
		zap.Int("users", counts.Users),
		zap.Int("logs", counts.Logs),
	)
	return counts, nil
}

// Reset drops and recreates the schema and re-seeds it after checking the administrator's password.
func (s *SystemService) Reset(ctx context.Context, req models.ResetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid reset payload")
	}
	denied := appErrors.Clone(appErrors.ErrUnauthorized, "Senha incorreta ou usuário sem privilégios.")
	admin, err := s.deps.Users.FindByID(ctx, req.AdminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return denied
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load administrator")
	}
	if !admin.IsSystemAdmin || !admin.Active() || !CheckPassword(admin.PasswordHash, req.Password) {
		s.logger.Warn("database reset denied", zap.String("admin_id", req.AdminID))
		return denied
	}

	if err := s.deps.Migrator.Reset(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset schema")
	}
	if s.deps.Seeder != nil {
		if err := s.deps.Seeder.Run(ctx); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed database")
		}
	}
	s.deps.Cache.InvalidateReports(ctx)
	s.logger.Warn("database reset", zap.String("admin_id", admin.ID))
	return nil
}

// Status reports database reachability, record counts and process metrics.
func (s *SystemService) Status(ctx context.Context) *models.SystemStatus {
	status := &models.SystemStatus{Database: "ok", Metrics: s.deps.Metrics.Snapshot()}
	now, err := s.deps.Repo.Now(ctx)
	if err != nil {
		s.logger.Warn("database status probe failed", zap.Error(err))
		status.Database = "unavailable"
		return status
	}
	status.DatabaseTime = &now
	if counts, err := s.deps.Repo.Counts(ctx); err != nil {
		s.logger.Warn("failed to count records", zap.Error(err))
	} else {
		status.Counts = counts
	}
	if s.deps.Migrator != nil {
		if version, _, err := s.deps.Migrator.Version(); err != nil {
			s.logger.Warn("failed to read schema version", zap.Error(err))
		} else {
			status.SchemaVersion = version
		}
	}
	return status
}

func (s *SystemService) prepareRestore(doc *models.BackupDocument) (repository.RestoreSet, error) {
	now := s.now().UTC()
	set := repository.RestoreSet{
		Students:    make([]models.Student, 0, len(doc.Students)),
		Occurrences: make([]models.Occurrence, 0, len(doc.Occurrences)),
		Users:       make([]models.User, 0, len(doc.Users)),
		Logs:        make([]models.AccessLog, 0, len(doc.Logs)),
	}

	for _, st := range doc.Students {
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		stampTimes(&st.CreatedAt, &st.UpdatedAt, now)
		set.Students = append(set.Students, st)
	}

	for _, o := range doc.Occurrences {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.Status == "" {
			o.Status = models.OccurrencePending
		}
		if !o.Severity.Valid() {
			var unmatched []string
			o.Severity, unmatched = ResolveSeverity(o.Type, o.Titles)
			if len(unmatched) > 0 {
				s.logger.Warn("restored occurrence titles outside catalog",
					zap.String("occurrence_id", o.ID),
					zap.String("category", string(o.Type)),
					zap.Strings("titles", unmatched),
				)
			}
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		set.Occurrences = append(set.Occurrences, o)
	}

	for _, bu := range doc.Users {
		u := bu.User
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Status == "" {
			u.Status = models.UserInactive
		}
		switch {
		case bu.PasswordHash != "":
			u.PasswordHash = bu.PasswordHash
		case bu.Password != "":
			hash, err := HashPassword(bu.Password)
			if err != nil {
				return repository.RestoreSet{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash restored password")
			}
			u.PasswordHash = hash
		}
		stampTimes(&u.CreatedAt, &u.UpdatedAt, now)
		set.Users = append(set.Users, u)
	}

	for _, l := range doc.Logs {
		if l.Timestamp.IsZero() {
			l.Timestamp = now
		}
		set.Logs = append(set.Logs, l)
	}
	return set, nil
}

func stampTimes(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}

func backupError(collection string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export "+collection)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
