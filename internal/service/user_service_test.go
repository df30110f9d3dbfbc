package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edsonosf/gdp/internal/models"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
)

type mockUserRepo struct {
	users   map[string]*models.User
	revoked []string
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByCPF(ctx context.Context, digits, excludeID string) (bool, error) {
	for _, u := range m.users {
		if u.ID != excludeID && onlyDigits(u.CPF) == digits {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for _, u := range m.users {
		if u.ID != excludeID && u.Email != nil && strings.EqualFold(*u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) ListAdmins(ctx context.Context) ([]models.AdminSummary, error) {
	var out []models.AdminSummary
	for _, u := range m.users {
		if u.IsSystemAdmin && u.Active() {
			out = append(out, models.AdminSummary{ID: u.ID, Name: u.Name})
		}
	}
	return out, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func adminClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, IsSystemAdmin: true}
}

func staffClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id}
}

func registerRequest(cpf, email string) RegisterUserRequest {
	return RegisterUserRequest{
		UserProfile: UserProfile{Name: " Maria Souza ", CPF: cpf, Email: email, Phone: "11987654321"},
		Password:    "segredo",
	}
}

func TestUserServiceRegisterCreatesInactiveAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, zap.NewNop())

	user, err := svc.Register(context.Background(), registerRequest("12345678900", " Maria@Escola.BR "))
	require.NoError(t, err)
	assert.Equal(t, models.UserInactive, user.Status)
	assert.False(t, user.IsSystemAdmin)
	assert.Equal(t, "Maria Souza", user.Name)
	assert.Equal(t, "123.456.789-00", user.CPF)
	assert.Equal(t, "(11) 9 8765-4321", user.Phone)
	require.NotNil(t, user.Email)
	assert.Equal(t, "maria@escola.br", *user.Email)
	assert.True(t, CheckPassword(user.PasswordHash, "segredo"))
	assert.Contains(t, repo.users, user.ID)
}

func TestUserServiceRegisterRejectsDuplicates(t *testing.T) {
	email := "ana@escola.br"
	existing := &models.User{ID: "u1", CPF: "123.456.789-00", Email: &email}
	svc := NewUserService(newMockUserRepo(existing), nil, nil)

	_, err := svc.Register(context.Background(), registerRequest("123.456.789-00", ""))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Register(context.Background(), registerRequest("98765432100", "ANA@escola.br"))
	require.Error(t, err)
	assert.Equal(t, "E-mail já cadastrado", appErrors.FromError(err).Message)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterUserRequest{UserProfile: UserProfile{Name: "X", CPF: "123"}, Password: "1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateSelfCannotEscalate(t *testing.T) {
	user := &models.User{ID: "u1", Name: "Ana", CPF: "123.456.789-00", Status: models.UserActive}
	svc := NewUserService(newMockUserRepo(user), nil, nil)

	admin := true
	req := UpdateUserRequest{UserProfile: UserProfile{Name: "Ana", CPF: "12345678900"}, IsSystemAdmin: &admin}
	_, err := svc.Update(context.Background(), staffClaims("u1"), "u1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), staffClaims("u2"), "u1", UpdateUserRequest{UserProfile: UserProfile{Name: "Ana", CPF: "12345678900"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateChangesPasswordAndRevokesSessions(t *testing.T) {
	user := &models.User{ID: "u1", Name: "Ana", CPF: "123.456.789-00", Status: models.UserActive}
	repo := newMockUserRepo(user)
	svc := NewUserService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), staffClaims("u1"), "u1", UpdateUserRequest{
		UserProfile: UserProfile{Name: "Ana Lima", CPF: "12345678900", Cargo: "Professora"},
		Password:    "nova-senha",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", updated.Name)
	assert.Equal(t, "Professora", repo.users["u1"].Cargo)
	assert.True(t, CheckPassword(repo.users["u1"].PasswordHash, "nova-senha"))
	assert.Equal(t, []string{"u1"}, repo.revoked)
}

func TestUserServiceUpdateTrimsProfileBeforeValidating(t *testing.T) {
	user := &models.User{ID: "u1", Name: "Ana", CPF: "123.456.789-00", Status: models.UserActive}
	repo := newMockUserRepo(user)
	svc := NewUserService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), staffClaims("u1"), "u1", UpdateUserRequest{
		UserProfile: UserProfile{Name: "  Ana Lima ", CPF: " 123.456.789-00 ", Email: "  Ana@Escola.BR\t"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", updated.Name)
	assert.Equal(t, "123.456.789-00", updated.CPF)
	require.NotNil(t, repo.users["u1"].Email)
	assert.Equal(t, "ana@escola.br", *repo.users["u1"].Email)
}

func TestUserServiceSetStatusToggles(t *testing.T) {
	user := &models.User{ID: "u1", Status: models.UserInactive}
	repo := newMockUserRepo(user)
	svc := NewUserService(repo, nil, nil)

	got, err := svc.SetStatus(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, got.Status)

	got, err = svc.SetStatus(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.UserInactive, got.Status)
	assert.Equal(t, []string{"u1"}, repo.revoked)

	bogus := models.UserStatus("Suspenso")
	_, err = svc.SetStatus(context.Background(), "u1", &bogus)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceSeedAdminIsProtected(t *testing.T) {
	seed := &models.User{ID: models.SeedAdminID, Status: models.UserActive, IsSystemAdmin: true}
	svc := NewUserService(newMockUserRepo(seed), nil, nil)

	_, err := svc.SetStatus(context.Background(), models.SeedAdminID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.SetAdmin(context.Background(), models.SeedAdminID, nil)
	require.Error(t, err)

	err = svc.Delete(context.Background(), adminClaims("other"), models.SeedAdminID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserServiceSetAdminAndListAdmins(t *testing.T) {
	user := &models.User{ID: "u1", Name: "Ana", Status: models.UserActive}
	svc := NewUserService(newMockUserRepo(user), nil, nil)

	got, err := svc.SetAdmin(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.True(t, got.IsSystemAdmin)

	admins, err := svc.Admins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.AdminSummary{{ID: "u1", Name: "Ana"}}, admins)
}

func TestUserServiceDelete(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1"}, &models.User{ID: "u2"})
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), staffClaims("u1"), "u1"))
	assert.NotContains(t, repo.users, "u1")

	err := svc.Delete(context.Background(), staffClaims("u1"), "u2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), adminClaims("admin"), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListReturnsPagination(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Status: models.UserActive}, &models.User{ID: "u2", Status: models.UserInactive})
	svc := NewUserService(repo, nil, nil)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Status: models.UserInactive})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 20, pagination.PageSize)
}
