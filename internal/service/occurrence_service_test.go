package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/models"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
)

type mockOccurrenceRepo struct {
	items []*models.Occurrence
	names map[string]string
}

func newMockOccurrenceRepo(items ...*models.Occurrence) *mockOccurrenceRepo {
	return &mockOccurrenceRepo{items: items, names: map[string]string{}}
}

func (m *mockOccurrenceRepo) Create(ctx context.Context, occurrence *models.Occurrence) error {
	clone := *occurrence
	m.items = append(m.items, &clone)
	return nil
}

func (m *mockOccurrenceRepo) FindByID(ctx context.Context, id string) (*models.OccurrenceWithStudent, error) {
	for _, o := range m.items {
		if o.ID == id {
			return &models.OccurrenceWithStudent{Occurrence: *o, StudentName: m.names[o.StudentID]}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockOccurrenceRepo) matching(filter models.OccurrenceFilter) []models.OccurrenceWithStudent {
	var out []models.OccurrenceWithStudent
	for _, o := range m.items {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Type != "" && o.Type != filter.Type {
			continue
		}
		if filter.StudentID != "" && o.StudentID != filter.StudentID {
			continue
		}
		if filter.ReporterID != "" && o.ReporterID != filter.ReporterID {
			continue
		}
		if filter.From != nil && o.Date < filter.From.Format(models.OccurrenceDateLayout) {
			continue
		}
		out = append(out, models.OccurrenceWithStudent{Occurrence: *o, StudentName: m.names[o.StudentID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func (m *mockOccurrenceRepo) List(ctx context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, int, error) {
	out := m.matching(filter)
	return out, len(out), nil
}

func (m *mockOccurrenceRepo) ListForExport(ctx context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, error) {
	return m.matching(filter), nil
}

func (m *mockOccurrenceRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Occurrence, error) {
	var out []models.Occurrence
	for _, o := range m.matching(models.OccurrenceFilter{StudentID: studentID}) {
		out = append(out, o.Occurrence)
	}
	return out, nil
}

func (m *mockOccurrenceRepo) ListAll(ctx context.Context) ([]models.Occurrence, error) {
	out := make([]models.Occurrence, 0, len(m.items))
	for _, o := range m.items {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOccurrenceRepo) CountByStudent(ctx context.Context, studentID string) (int, error) {
	all, _ := m.ListAll(ctx)
	return CountPriorOccurrences(studentID, all), nil
}

func (m *mockOccurrenceRepo) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (bool, error) {
	for _, o := range m.items {
		if o.ID == id && o.Status == models.OccurrencePending {
			o.Status = models.OccurrenceResolved
			o.ResolvedBy = &resolvedBy
			o.ResolvedAt = &at
			return true, nil
		}
	}
	return false, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Publish(notification models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification)
}

var occurrenceTestNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func newTestOccurrenceService(repo *mockOccurrenceRepo, students *mockStudentRepo, notifier Notifier, metrics *MetricsService) *OccurrenceService {
	svc := NewOccurrenceService(repo, students, nil, metrics, notifier, nil, nil)
	svc.now = func() time.Time { return occurrenceTestNow }
	return svc
}

func reporterClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u1", Name: "Prof. Carla"}
}

func TestOccurrenceServiceCreateDerivesSeverity(t *testing.T) {
	repo := newMockOccurrenceRepo()
	students := newMockStudentRepo(&models.Student{ID: "s1", Name: "Ana"})
	notifier := &recordingNotifier{}
	metrics := NewMetricsService()
	svc := newTestOccurrenceService(repo, students, notifier, metrics)

	occurrence, err := svc.Create(context.Background(), reporterClaims(), CreateOccurrenceRequest{
		StudentID:   "s1",
		Type:        models.CategoryPedagogical,
		Titles:      []string{lowPedagogical, " " + highPedagogical + " "},
		Description: "Discutiu com o colega durante a aula.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, occurrence.Severity)
	assert.Equal(t, models.OccurrencePending, occurrence.Status)
	assert.Equal(t, "2024-05-10T14:30", occurrence.Date)
	assert.Equal(t, "u1", occurrence.ReporterID)
	assert.Equal(t, "Prof. Carla", occurrence.ReporterName)
	assert.Equal(t, []string{lowPedagogical, highPedagogical}, []string(occurrence.Titles))
	require.Len(t, repo.items, 1)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotificationOccurrenceCreated, notifier.sent[0].Type)
	assert.Equal(t, "Ana", notifier.sent[0].StudentName)
	assert.False(t, notifier.sent[0].Recidivist)
	assert.Equal(t, uint64(1), metrics.Snapshot().OccurrencesCreated)
}

func TestOccurrenceServiceCreateFlagsRecidivist(t *testing.T) {
	repo := newMockOccurrenceRepo(&models.Occurrence{ID: "o1", StudentID: "s1", Status: models.OccurrenceResolved})
	notifier := &recordingNotifier{}
	svc := newTestOccurrenceService(repo, newMockStudentRepo(&models.Student{ID: "s1"}), notifier, nil)

	_, err := svc.Create(context.Background(), reporterClaims(), CreateOccurrenceRequest{
		StudentID:   "s1",
		Type:        models.CategoryDisciplinary,
		Titles:      []string{criticalDisc},
		Description: "Trouxe canivete.",
		Date:        "2024-05-09T09:15",
	})
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.True(t, notifier.sent[0].Recidivist)
	assert.Equal(t, "2024-05-09T09:15", notifier.sent[0].Occurrence.Date)
}

func TestOccurrenceServiceCreateAcceptsSelectedDescriptions(t *testing.T) {
	svc := newTestOccurrenceService(newMockOccurrenceRepo(), newMockStudentRepo(&models.Student{ID: "s1"}), nil, nil)

	occurrence, err := svc.Create(context.Background(), reporterClaims(), CreateOccurrenceRequest{
		StudentID:            "s1",
		Type:                 models.CategoryPedagogical,
		SelectedDescriptions: []string{mediumPedagogical},
		Description:          "Chegou atrasado.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SeverityMedium, occurrence.Severity)
}

func TestOccurrenceServiceCreateValidation(t *testing.T) {
	students := newMockStudentRepo(&models.Student{ID: "s1"})
	svc := newTestOccurrenceService(newMockOccurrenceRepo(), students, nil, nil)
	ctx := context.Background()

	cases := map[string]CreateOccurrenceRequest{
		"no titles":        {StudentID: "s1", Type: models.CategoryPedagogical, Description: "x"},
		"too many titles":  {StudentID: "s1", Type: models.CategoryPedagogical, Titles: []string{"a", "b", "c", "d"}, Description: "x"},
		"duplicate titles": {StudentID: "s1", Type: models.CategoryPedagogical, Titles: []string{lowPedagogical, lowPedagogical}, Description: "x"},
		"no description":   {StudentID: "s1", Type: models.CategoryPedagogical, Titles: []string{lowPedagogical}},
		"bad category":     {StudentID: "s1", Type: "Outra", Titles: []string{lowPedagogical}, Description: "x"},
		"bad date":         {StudentID: "s1", Type: models.CategoryPedagogical, Titles: []string{lowPedagogical}, Description: "x", Date: "10/05/2024"},
		"unknown student":  {StudentID: "s9", Type: models.CategoryPedagogical, Titles: []string{lowPedagogical}, Description: "x"},
		"wrong category":   {StudentID: "s1", Type: models.CategoryDisciplinary, Titles: []string{lowPedagogical}, Description: "x"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, reporterClaims(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestOccurrenceServiceCreateStoresCatalogWording(t *testing.T) {
	repo := newMockOccurrenceRepo()
	svc := newTestOccurrenceService(repo, newMockStudentRepo(&models.Student{ID: "s1"}), nil, nil)

	occurrence, err := svc.Create(context.Background(), reporterClaims(), CreateOccurrenceRequest{
		StudentID:   "s1",
		Type:        models.CategoryPedagogical,
		Titles:      []string{"Dormir   durante a\taula.", highPedagogical},
		Description: "Dormiu na aula de química.",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{lowPedagogical, highPedagogical}, []string(occurrence.Titles))
	require.Len(t, repo.items, 1)
	assert.Equal(t, []string{lowPedagogical, highPedagogical}, []string(repo.items[0].Titles))
}

func TestOccurrenceServiceCreateRejectsSpacingVariantsOfOneTitle(t *testing.T) {
	repo := newMockOccurrenceRepo()
	svc := newTestOccurrenceService(repo, newMockStudentRepo(&models.Student{ID: "s1"}), nil, nil)

	_, err := svc.Create(context.Background(), reporterClaims(), CreateOccurrenceRequest{
		StudentID:   "s1",
		Type:        models.CategoryPedagogical,
		Titles:      []string{"Dormir durante a aula.", "Dormir  durante a aula."},
		Description: "x",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.items)
}

func TestOccurrenceServiceResolveIsIdempotent(t *testing.T) {
	repo := newMockOccurrenceRepo(&models.Occurrence{ID: "o1", StudentID: "s1", Status: models.OccurrencePending})
	notifier := &recordingNotifier{}
	metrics := NewMetricsService()
	svc := newTestOccurrenceService(repo, newMockStudentRepo(), notifier, metrics)
	admin := adminClaims("admin")

	got, err := svc.UpdateStatus(context.Background(), admin, "o1", UpdateOccurrenceStatusRequest{Status: models.OccurrenceResolved})
	require.NoError(t, err)
	assert.Equal(t, models.OccurrenceResolved, got.Status)
	require.NotNil(t, got.ResolvedBy)
	assert.Equal(t, "admin", *got.ResolvedBy)

	got, err = svc.Resolve(context.Background(), admin, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OccurrenceResolved, got.Status)
	assert.Len(t, notifier.sent, 1)
	assert.Equal(t, uint64(1), metrics.Snapshot().OccurrencesResolved)
}

func TestOccurrenceServiceRejectsReverseTransition(t *testing.T) {
	repo := newMockOccurrenceRepo(&models.Occurrence{ID: "o1", Status: models.OccurrenceResolved})
	svc := newTestOccurrenceService(repo, newMockStudentRepo(), nil, nil)

	_, err := svc.UpdateStatus(context.Background(), adminClaims("admin"), "o1", UpdateOccurrenceStatusRequest{Status: models.OccurrencePending})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateStatus(context.Background(), adminClaims("admin"), "missing", UpdateOccurrenceStatusRequest{Status: models.OccurrencePending})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOccurrenceServiceResolveRequiresAdmin(t *testing.T) {
	repo := newMockOccurrenceRepo(&models.Occurrence{ID: "o1", Status: models.OccurrencePending})
	svc := newTestOccurrenceService(repo, newMockStudentRepo(), nil, nil)

	_, err := svc.Resolve(context.Background(), staffClaims("u1"), "o1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Resolve(context.Background(), adminClaims("admin"), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOccurrenceServiceListFilters(t *testing.T) {
	repo := newMockOccurrenceRepo(
		&models.Occurrence{ID: "o1", ReporterID: "u1", Date: "2024-05-01T08:00", Status: models.OccurrencePending},
		&models.Occurrence{ID: "o2", ReporterID: "u2", Date: "2024-05-03T08:00", Status: models.OccurrencePending},
		&models.Occurrence{ID: "o3", ReporterID: "u1", Date: "2024-05-02T08:00", Status: models.OccurrenceResolved},
	)
	svc := newTestOccurrenceService(repo, newMockStudentRepo(), nil, nil)

	items, pagination, err := svc.List(context.Background(), models.OccurrenceFilter{ReporterID: "u1"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "o3", items[0].ID)
	assert.Equal(t, 2, pagination.TotalCount)

	items, _, err = svc.List(context.Background(), models.OccurrenceFilter{Status: models.OccurrencePending})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
