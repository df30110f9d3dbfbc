package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/repository"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/storage"
)

type stubSystemRepo struct {
	nowErr     error
	restored   *repository.RestoreSet
	restoreErr error
}

func (s *stubSystemRepo) Now(ctx context.Context) (time.Time, error) {
	return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC), s.nowErr
}

func (s *stubSystemRepo) Counts(ctx context.Context) (models.BackupCounts, error) {
	return models.BackupCounts{Students: 2, Occurrences: 1, Users: 1}, nil
}

func (s *stubSystemRepo) Restore(ctx context.Context, set repository.RestoreSet) error {
	if s.restoreErr != nil {
		return s.restoreErr
	}
	s.restored = &set
	return nil
}

type stubBackupSource struct {
	students    []models.Student
	occurrences []models.Occurrence
	users       []models.User
	logs        []models.AccessLog
}

func (s stubBackupSource) ListAllStudents(ctx context.Context) ([]models.Student, error) {
	return s.students, nil
}

func (s stubBackupSource) ListAllOccurrences(ctx context.Context) ([]models.Occurrence, error) {
	return s.occurrences, nil
}

func (s stubBackupSource) ListAllUsers(ctx context.Context) ([]models.User, error) {
	return s.users, nil
}

func (s stubBackupSource) ListAllLogs(ctx context.Context) ([]models.AccessLog, error) {
	return s.logs, nil
}

type stubMigrator struct {
	resets int
	err    error
}

func (m *stubMigrator) Reset() error {
	m.resets++
	return m.err
}

func (m *stubMigrator) Version() (uint, bool, error) {
	return 1, false, nil
}

type stubSeeder struct {
	runs int
}

func (s *stubSeeder) Run(ctx context.Context) error {
	s.runs++
	return nil
}

func TestSystemServiceBackupCarriesPasswordHash(t *testing.T) {
	source := stubBackupSource{users: []models.User{{ID: "u1", Name: "Ana", PasswordHash: "$2a$hash"}}}
	svc := NewSystemService(SystemDeps{Repo: &stubSystemRepo{}, Source: source}, SystemConfig{}, nil, nil)

	doc, err := svc.Backup(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Students)
	assert.NotNil(t, doc.Logs)
	require.Len(t, doc.Users, 1)
	assert.Equal(t, "$2a$hash", doc.Users[0].PasswordHash)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"passwordHash":"$2a$hash"`)
	assert.Contains(t, string(raw), `"students":[]`)
}

func TestSystemServiceRestoreNormalisesRecords(t *testing.T) {
	repo := &stubSystemRepo{}
	svc := NewSystemService(SystemDeps{Repo: repo}, SystemConfig{}, nil, nil)

	raw := `{
		"students": "[{\"id\":\"s1\",\"name\":\"Ana\"}]",
		"occurrences": [{"id":"o1","studentId":"s1","type":"Disciplinar","titles":["Porte de armas ou objetos perigosos."]}],
		"users": [{"id":"u1","name":"Legado","cpf":"123.456.789-00","password":"antiga"},{"id":"u2","name":"Novo","cpf":"987.654.321-00","status":"Ativo","passwordHash":"$2a$kept"}],
		"logs": [{"user_id":"u1","event":"user.login","status":"success","ip_address":"10.0.0.1"}]
	}`
	var doc models.BackupDocument
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	counts, err := svc.Restore(context.Background(), &doc)
	require.NoError(t, err)
	assert.Equal(t, models.BackupCounts{Students: 1, Occurrences: 1, Users: 2, Logs: 1}, counts)

	require.NotNil(t, repo.restored)
	set := repo.restored
	assert.Equal(t, models.OccurrencePending, set.Occurrences[0].Status)
	assert.Equal(t, models.SeverityCritical, set.Occurrences[0].Severity)
	assert.Equal(t, models.UserInactive, set.Users[0].Status)
	assert.True(t, CheckPassword(set.Users[0].PasswordHash, "antiga"))
	assert.Equal(t, "$2a$kept", set.Users[1].PasswordHash)
	assert.Equal(t, "10.0.0.1", set.Logs[0].IPAddress)
	assert.False(t, set.Logs[0].Timestamp.IsZero())
	assert.False(t, set.Students[0].CreatedAt.IsZero())
}

func TestSystemServiceRestoreWarnsOnTitlesOutsideCatalog(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &stubSystemRepo{}
	svc := NewSystemService(SystemDeps{Repo: repo}, SystemConfig{}, nil, zap.New(core))

	doc := &models.BackupDocument{Occurrences: []models.Occurrence{{
		ID:     "o1",
		Type:   models.CategoryPedagogical,
		Titles: []string{lowPedagogical, "Texto livre antigo"},
	}}}
	_, err := svc.Restore(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityLow, repo.restored.Occurrences[0].Severity)

	entries := logs.FilterMessage("restored occurrence titles outside catalog").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "o1", entries[0].ContextMap()["occurrence_id"])
	assert.Equal(t, []interface{}{"Texto livre antigo"}, entries[0].ContextMap()["titles"])
}

func TestSystemServiceRestoreFailureIsInternal(t *testing.T) {
	svc := NewSystemService(SystemDeps{Repo: &stubSystemRepo{restoreErr: errors.New("insert failed")}}, SystemConfig{}, nil, nil)

	_, err := svc.Restore(context.Background(), &models.BackupDocument{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Equal(t, "failed to restore database", appErr.Message)
}

func TestSystemServiceResetChecksAdminPassword(t *testing.T) {
	admin := testUser(t, "a1", "111.111.111-11", "admin", models.UserActive, true)
	staff := testUser(t, "u1", "222.222.222-22", "staff", models.UserActive, false)
	migrator := &stubMigrator{}
	seeder := &stubSeeder{}
	svc := NewSystemService(SystemDeps{
		Repo:     &stubSystemRepo{},
		Users:    newMockUserRepo(admin, staff),
		Migrator: migrator,
		Seeder:   seeder,
	}, SystemConfig{}, nil, nil)
	ctx := context.Background()

	for _, req := range []models.ResetRequest{
		{AdminID: "a1", Password: "wrong"},
		{AdminID: "u1", Password: "staff"},
		{AdminID: "missing", Password: "admin"},
	} {
		err := svc.Reset(ctx, req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
		assert.Equal(t, "Senha incorreta ou usuário sem privilégios.", appErr.Message)
	}
	assert.Zero(t, migrator.resets)

	require.NoError(t, svc.Reset(ctx, models.ResetRequest{AdminID: "a1", Password: "admin"}))
	assert.Equal(t, 1, migrator.resets)
	assert.Equal(t, 1, seeder.runs)
}

func TestSystemServiceSnapshotRoundTrip(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	source := stubBackupSource{students: []models.Student{{ID: "s1", Name: "Ana"}}}
	svc := NewSystemService(SystemDeps{Repo: &stubSystemRepo{}, Source: source, Storage: store, Signer: signer}, SystemConfig{APIPrefix: "/api/", Retention: time.Hour}, nil, nil)

	snapshot, err := svc.CreateSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Counts.Students)
	require.True(t, strings.HasPrefix(snapshot.DownloadURL, "/api/backups/download/"))

	token := strings.TrimPrefix(snapshot.DownloadURL, "/api/backups/download/")
	file, name, err := svc.OpenSnapshot(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, snapshot.Filename, name)

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	var doc models.BackupDocument
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "Ana", doc.Students[0].Name)

	_, _, err = svc.OpenSnapshot("bogus")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSystemServiceStatus(t *testing.T) {
	svc := NewSystemService(SystemDeps{Repo: &stubSystemRepo{}, Migrator: &stubMigrator{}, Metrics: NewMetricsService()}, SystemConfig{}, nil, nil)
	status := svc.Status(context.Background())
	assert.Equal(t, "ok", status.Database)
	assert.Equal(t, uint(1), status.SchemaVersion)
	assert.Equal(t, 2, status.Counts.Students)

	down := NewSystemService(SystemDeps{Repo: &stubSystemRepo{nowErr: errors.New("refused")}}, SystemConfig{}, nil, nil)
	assert.Equal(t, "unavailable", down.Status(context.Background()).Database)

	_, err := down.Ping(context.Background())
	assert.Error(t, err)
}
