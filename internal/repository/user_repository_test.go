package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/models"
)

var userRowColumns = []string{"id", "name", "social_name", "role", "email", "cpf", "status", "secretaria", "lotacao",
	"matricula", "phone", "phone2", "cargo", "profile_image", "is_system_admin", "gender", "birth_date", "components",
	"disciplines", "carga_horaria", "turno_trabalho", "additional_info", "has_custom_schedule", "custom_schedule_details",
	"password_hash", "created_at", "updated_at"}

func userRows(id, cpf string, status models.UserStatus, admin bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userRowColumns).AddRow(id, "Maria", "", "Professora", "maria@escola.com", cpf, string(status),
		"", "", "", "", "", "", "", admin, "", "", "{Matemática}", "{}", "{}", "{Manhã,Tarde}", "", false, "{}",
		"$2a$10$hash", now, now)
}

func TestUserRepositoryFindByCPF(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE regexp_replace(cpf, '\D', '', 'g') = $1 LIMIT 1`)).
		WithArgs("12345678909").
		WillReturnRows(userRows("u1", "123.456.789-09", models.UserActive, false))

	user, err := repo.FindByCPF(context.Background(), "12345678909")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)
	assert.Equal(t, []string{"Manhã", "Tarde"}, []string(user.TurnoTrabalho))
	require.NotNil(t, user.Email)
	assert.True(t, user.Active())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByCPFMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE regexp_replace").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCPF(context.Background(), "00000000000")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByEmailExcludesSelf(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("maria@escola.com", "u1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByEmail(context.Background(), "maria@escola.com", "u1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	admins := true
	mock.ExpectQuery(`FROM users WHERE 1=1 AND status = \$1 AND is_system_admin = \$2 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs(models.UserActive, true).
		WillReturnRows(userRows("u1", "111.111.111-11", models.UserActive, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND status = $1 AND is_system_admin = $2")).
		WithArgs(models.UserActive, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Status: models.UserActive, Admins: &admins})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListAdmins(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM users WHERE is_system_admin = TRUE AND status = $1 ORDER BY name ASC")).
		WithArgs(models.UserActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(models.SeedAdminID, "Administrador"))

	admins, err := repo.ListAdmins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.AdminSummary{{ID: models.SeedAdminID, Name: "Administrador"}}, admins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateDefaultsInactive(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Name: "Novo", CPF: "123.456.789-09", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.UserInactive, user.Status)
	assert.NotNil(t, user.Components)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.User{ID: models.SeedAdminID, Name: "Administrador", Status: models.UserActive})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "nope"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRefreshTokens(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1")).
		WithArgs("rt-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	token := &models.RefreshToken{ID: "rt-1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	assert.False(t, token.CreatedAt.IsZero())
	require.NoError(t, repo.RevokeRefreshToken(context.Background(), "rt-1", time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
