// Package seed writes the bootstrap administrator and the initial student roster.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/service"
	"github.com/edsonosf/gdp/pkg/mask"
)

const (
	adminCPF   = "111.111.111-11"
	adminName  = "Administrador"
	adminRole  = "Administrador do Sistema"
	adminEmail = "admin@educontrol.com"
	adminPhone = "(85) 9 9690-3476"

	studentIDPrefix = "st_seed_"
)

type userStore interface {
	FindByCPF(ctx context.Context, digits string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}

type studentStore interface {
	CreateIfAbsent(ctx context.Context, student *models.Student) (bool, error)
}

// Seeder synchronises the bootstrap records. Every step is idempotent.
type Seeder struct {
	users         userStore
	students      studentStore
	adminPassword string
	logger        *zap.Logger
	now           func() time.Time
}

// New constructs a Seeder.
func New(users userStore, students studentStore, adminPassword string, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{users: users, students: students, adminPassword: adminPassword, logger: logger, now: time.Now}
}

// Run seeds the administrator, then the roster.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.Admin(ctx); err != nil {
		return err
	}
	created, err := s.Students(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("seed completed", zap.Int("students_created", created))
	return nil
}

// Admin upserts the bootstrap administrator, resetting its password to the configured one.
func (s *Seeder) Admin(ctx context.Context) error {
	if s.adminPassword == "" {
		return errors.New("seed admin: password is not configured")
	}
	hash, err := service.HashPassword(s.adminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	now := s.now().UTC()
	email := adminEmail
	admin := &models.User{
		ID:            models.SeedAdminID,
		Name:          adminName,
		Role:          adminRole,
		Email:         &email,
		CPF:           adminCPF,
		Status:        models.UserActive,
		Phone:         adminPhone,
		IsSystemAdmin: true,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Upsert(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Info("administrator synchronised", zap.String("user_id", admin.ID))
	return nil
}

// Students inserts the roster entries that are missing and returns how many were written.
func (s *Seeder) Students(ctx context.Context) (int, error) {
	created := 0
	now := s.now().UTC()
	for _, name := range roster {
		ok, err := s.students.CreateIfAbsent(ctx, rosterStudent(name, now))
		if err != nil {
			return created, fmt.Errorf("seed student %q: %w", name, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// CreateAdmin creates or promotes an active administrator identified by CPF.
func (s *Seeder) CreateAdmin(ctx context.Context, cpf, name, password string) (*models.User, error) {
	if !mask.ValidCPF(cpf) {
		return nil, errors.New("create admin: invalid CPF")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("create admin: name is required")
	}
	if len(password) < 4 {
		return nil, errors.New("create admin: password must have at least 4 characters")
	}

	now := s.now().UTC()
	user, err := s.users.FindByCPF(ctx, mask.Digits(cpf))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		user = &models.User{ID: uuid.NewString(), Role: adminRole, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("create admin: %w", err)
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	user.Name = strings.TrimSpace(name)
	user.CPF = mask.CPF(cpf)
	user.Status = models.UserActive
	user.IsSystemAdmin = true
	user.PasswordHash = hash
	user.UpdatedAt = now
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return user, nil
}

// StudentID derives the deterministic roster id: lower case, accents stripped, spaces as underscores.
func StudentID(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	return studentIDPrefix + strings.Join(strings.Fields(folded), "_")
}

func rosterStudent(name string, now time.Time) *models.Student {
	student := &models.Student{
		ID:              StudentID(name),
		Name:            name,
		Grade:           "1º Ano",
		Classroom:       "A",
		Turn:            models.TurnMorning,
		BirthDate:       "01/01/2015",
		ResponsibleName: "Responsável",
		Relationship:    "Mãe",
		ContactPhone:    "(85) 9 0000-0000",
		Email:           strings.ToLower(strings.Fields(name)[0]) + "@escola.com",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if name == aeeStudent {
		student.IsAEE = true
		student.PcdStatus = models.PcdWithReport
		student.CID = "Transtorno do Espectro Autista, TDAH"
	}
	return student
}
