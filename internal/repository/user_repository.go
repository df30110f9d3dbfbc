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

const userColumns = `id, name, social_name, role, email, cpf, status, secretaria, lotacao, matricula, phone, phone2, cargo,
        profile_image, is_system_admin, gender, birth_date, components, disciplines, carga_horaria, turno_trabalho,
        additional_info, has_custom_schedule, custom_schedule_details, password_hash, created_at, updated_at`

const userInsert = `INSERT INTO users (id, name, social_name, role, email, cpf, status, secretaria, lotacao, matricula, phone, phone2,
        cargo, profile_image, is_system_admin, gender, birth_date, components, disciplines, carga_horaria, turno_trabalho,
        additional_info, has_custom_schedule, custom_schedule_details, password_hash, created_at, updated_at)
        VALUES (:id, :name, :social_name, :role, :email, :cpf, :status, :secretaria, :lotacao, :matricula, :phone, :phone2,
        :cargo, :profile_image, :is_system_admin, :gender, :birth_date, :components, :disciplines, :carga_horaria, :turno_trabalho,
        :additional_info, :has_custom_schedule, :custom_schedule_details, :password_hash, :created_at, :updated_at)`

// UserRepository provides database access for staff accounts and their refresh tokens.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByCPF returns a user whose CPF has the given digits, whatever mask it was stored with.
func (r *UserRepository) FindByCPF(ctx context.Context, digits string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE regexp_replace(cpf, '\D', '', 'g') = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, digits); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by cpf: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ExistsByCPF checks whether another account already uses the CPF digits.
func (r *UserRepository) ExistsByCPF(ctx context.Context, digits, excludeID string) (bool, error) {
	return r.exists(ctx, `regexp_replace(cpf, '\D', '', 'g') = $1`, digits, excludeID, "check cpf")
}

// ExistsByEmail checks whether another account already uses the email, case-insensitively.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER($1)", email, excludeID, "check email")
}

func (r *UserRepository) exists(ctx context.Context, condition, value, excludeID, op string) (bool, error) {
	query := "SELECT 1 FROM users WHERE " + condition
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// List returns users based on filters with total count, newest first.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Admins != nil {
		conditions = append(conditions, fmt.Sprintf("is_system_admin = $%d", len(args)+1))
		args = append(args, *filter.Admins)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR cpf LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := models.ClampPage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", userColumns, baseQuery, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// ListAll returns every account including password hashes, used by backups.
func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY created_at ASC", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list all users: %w", err)
	}
	return users, nil
}

// ListAdmins returns the active system administrators.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]models.AdminSummary, error) {
	const query = `SELECT id, name FROM users WHERE is_system_admin = TRUE AND status = $1 ORDER BY name ASC`
	var admins []models.AdminSummary
	if err := r.db.SelectContext(ctx, &admins, query, models.UserActive); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	prepareUser(user)
	if _, err := r.db.NamedExecContext(ctx, userInsert, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Upsert writes the user keyed by id, replacing identity, status, admin flag and password of an existing row.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	prepareUser(user)
	query := userInsert + ` ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, email = EXCLUDED.email,
        cpf = EXCLUDED.cpf, status = EXCLUDED.status, is_system_admin = EXCLUDED.is_system_admin,
        password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Update updates the profile fields, status and admin flag of a user. The password is left untouched.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	normaliseUserArrays(user)
	const query = `UPDATE users SET name = :name, social_name = :social_name, role = :role, email = :email, cpf = :cpf,
        status = :status, secretaria = :secretaria, lotacao = :lotacao, matricula = :matricula, phone = :phone, phone2 = :phone2,
        cargo = :cargo, profile_image = :profile_image, is_system_admin = :is_system_admin, gender = :gender,
        birth_date = :birth_date, components = :components, disciplines = :disciplines, carga_horaria = :carga_horaria,
        turno_trabalho = :turno_trabalho, additional_info = :additional_info, has_custom_schedule = :has_custom_schedule,
        custom_schedule_details = :custom_schedule_details, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectAffected(res, "update user")
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Delete removes the account permanently.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res, "delete user")
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

func prepareUser(user *models.User) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Status == "" {
		user.Status = models.UserInactive
	}
	normaliseUserArrays(user)
}

func normaliseUserArrays(user *models.User) {
	for _, arr := range []*[]string{
		(*[]string)(&user.Components),
		(*[]string)(&user.Disciplines),
		(*[]string)(&user.CargaHoraria),
		(*[]string)(&user.TurnoTrabalho),
		(*[]string)(&user.CustomScheduleDetails),
	} {
		if *arr == nil {
			*arr = []string{}
		}
	}
}
