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

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByCPF(ctx context.Context, digits, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	ListAdmins(ctx context.Context) ([]models.AdminSummary, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// UserProfile holds the editable account fields shared by registration and update.
type UserProfile struct {
	Name                  string   `json:"name" validate:"required,max=200"`
	SocialName            string   `json:"socialName" validate:"max=200"`
	Role                  string   `json:"role"`
	Email                 string   `json:"email" validate:"omitempty,email"`
	CPF                   string   `json:"cpf" validate:"required,cpf"`
	Secretaria            string   `json:"secretaria"`
	Lotacao               string   `json:"lotacao"`
	Matricula             string   `json:"matricula"`
	Phone                 string   `json:"phone"`
	Phone2                string   `json:"phone2"`
	Cargo                 string   `json:"cargo"`
	ProfileImage          string   `json:"profileImage"`
	Gender                string   `json:"gender"`
	BirthDate             string   `json:"birthDate"`
	Components            []string `json:"components"`
	Disciplines           []string `json:"disciplines"`
	CargaHoraria          []string `json:"cargaHoraria"`
	TurnoTrabalho         []string `json:"turnoTrabalho"`
	AdditionalInfo        string   `json:"additionalInfo"`
	HasCustomSchedule     bool     `json:"hasCustomSchedule"`
	CustomScheduleDetails []string `json:"customScheduleDetails"`
}

// RegisterUserRequest is the public sign-up payload.
type RegisterUserRequest struct {
	UserProfile
	Password string `json:"password" validate:"required,min=4"`
}

// UpdateUserRequest edits an account. Status and admin flag are honoured for administrators only.
type UpdateUserRequest struct {
	UserProfile
	Password      string             `json:"password" validate:"omitempty,min=4"`
	Status        *models.UserStatus `json:"status" validate:"omitempty,oneof=Ativo Inativo"`
	IsSystemAdmin *bool              `json:"isSystemAdmin"`
}

// UserService handles account management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users, newest first.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Admins lists the active system administrators.
func (s *UserService) Admins(ctx context.Context) ([]models.AdminSummary, error) {
	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list administrators")
	}
	if admins == nil {
		admins = []models.AdminSummary{}
	}
	return admins, nil
}

// Register creates an inactive account awaiting administrator approval.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest) (*models.User, error) {
	req.UserProfile.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}

	user := &models.User{ID: uuid.NewString(), Status: models.UserInactive}
	applyProfile(user, req.UserProfile)
	if err := s.ensureUnique(ctx, user, ""); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = hash

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Update edits an account on behalf of the actor, who must be the account owner or an administrator.
func (s *UserService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateUserRequest) (*models.User, error) {
	req.UserProfile.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}
	if err := authorizeSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	if !actor.IsSystemAdmin && (req.Status != nil || req.IsSystemAdmin != nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change status or privileges")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyProfile(user, req.UserProfile)
	wasActive := user.Active()
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.IsSystemAdmin != nil {
		user.IsSystemAdmin = *req.IsSystemAdmin
	}
	if err := guardSeedAdmin(user); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, user, user.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		if err := s.repo.UpdatePassword(ctx, user.ID, hash, time.Now().UTC()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
		user.PasswordHash = hash
		s.revokeSessions(ctx, user.ID)
	} else if wasActive && !user.Active() {
		s.revokeSessions(ctx, user.ID)
	}
	return user, nil
}

// SetStatus sets the account status, toggling it when status is nil.
func (s *UserService) SetStatus(ctx context.Context, id string, status *models.UserStatus) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case status != nil && *status != models.UserActive && *status != models.UserInactive:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be Ativo or Inativo")
	case status != nil:
		user.Status = *status
	case user.Active():
		user.Status = models.UserInactive
	default:
		user.Status = models.UserActive
	}
	if err := guardSeedAdmin(user); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}
	if !user.Active() {
		s.revokeSessions(ctx, user.ID)
	}
	return user, nil
}

// SetAdmin grants or revokes administrator privileges, toggling when admin is nil.
func (s *UserService) SetAdmin(ctx context.Context, id string, admin *bool) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin != nil {
		user.IsSystemAdmin = *admin
	} else {
		user.IsSystemAdmin = !user.IsSystemAdmin
	}
	if err := guardSeedAdmin(user); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user privileges")
	}
	return user, nil
}

// Delete removes an account. The seeded administrator cannot be removed.
func (s *UserService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := authorizeSelfOrAdmin(actor, id); err != nil {
		return err
	}
	if id == models.SeedAdminID {
		return appErrors.Clone(appErrors.ErrForbidden, "O administrador padrão não pode ser removido.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actor.UserID))
	return nil
}

func (s *UserService) ensureUnique(ctx context.Context, user *models.User, excludeID string) error {
	taken, err := s.repo.ExistsByCPF(ctx, mask.Digits(user.CPF), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check cpf uniqueness")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "CPF já cadastrado")
	}
	if user.Email == nil {
		return nil
	}
	taken, err = s.repo.ExistsByEmail(ctx, *user.Email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "E-mail já cadastrado")
	}
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", zap.String("user_id", userID), zap.Error(err))
	}
}

func (p *UserProfile) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.SocialName = strings.TrimSpace(p.SocialName)
	p.CPF = strings.TrimSpace(p.CPF)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}

func applyProfile(user *models.User, p UserProfile) {
	user.Name = strings.TrimSpace(p.Name)
	user.SocialName = strings.TrimSpace(p.SocialName)
	user.Role = p.Role
	user.CPF = mask.CPF(p.CPF)
	user.Email = nil
	if email := strings.ToLower(strings.TrimSpace(p.Email)); email != "" {
		user.Email = &email
	}
	user.Secretaria = p.Secretaria
	user.Lotacao = p.Lotacao
	user.Matricula = p.Matricula
	user.Phone = mask.Phone(p.Phone)
	user.Phone2 = mask.Phone(p.Phone2)
	user.Cargo = p.Cargo
	user.ProfileImage = p.ProfileImage
	user.Gender = p.Gender
	user.BirthDate = p.BirthDate
	user.Components = p.Components
	user.Disciplines = p.Disciplines
	user.CargaHoraria = p.CargaHoraria
	user.TurnoTrabalho = p.TurnoTrabalho
	user.AdditionalInfo = p.AdditionalInfo
	user.HasCustomSchedule = p.HasCustomSchedule
	user.CustomScheduleDetails = p.CustomScheduleDetails
}

func guardSeedAdmin(user *models.User) error {
	if user.ID == models.SeedAdminID && (!user.Active() || !user.IsSystemAdmin) {
		return appErrors.Clone(appErrors.ErrForbidden, "O administrador padrão não pode ser desativado.")
	}
	return nil
}

func authorizeSelfOrAdmin(actor *models.JWTClaims, id string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.IsSystemAdmin || actor.UserID == id {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
}
