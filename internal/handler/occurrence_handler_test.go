package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/service"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
)

type occurrenceServiceMock struct {
	reporter *models.JWTClaims
	created  service.CreateOccurrenceRequest
	filter   models.OccurrenceFilter
	status   service.UpdateOccurrenceStatusRequest
	actor    *models.JWTClaims
}

func (m *occurrenceServiceMock) Create(_ context.Context, reporter *models.JWTClaims, req service.CreateOccurrenceRequest) (*models.Occurrence, error) {
	m.reporter = reporter
	m.created = req
	return &models.Occurrence{ID: "o1", Severity: models.SeverityHigh, ReporterID: reporter.UserID}, nil
}

func (m *occurrenceServiceMock) List(_ context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, *models.Pagination, error) {
	m.filter = filter
	return []models.OccurrenceWithStudent{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (m *occurrenceServiceMock) Get(_ context.Context, id string) (*models.OccurrenceWithStudent, error) {
	if id != "o1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "occurrence not found")
	}
	return &models.OccurrenceWithStudent{Occurrence: models.Occurrence{ID: id}, StudentName: "Ana"}, nil
}

func (m *occurrenceServiceMock) UpdateStatus(_ context.Context, actor *models.JWTClaims, id string, req service.UpdateOccurrenceStatusRequest) (*models.OccurrenceWithStudent, error) {
	m.actor = actor
	m.status = req
	if req.Status == models.OccurrencePending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "occurrences cannot return to Pendente")
	}
	return &models.OccurrenceWithStudent{Occurrence: models.Occurrence{ID: id, Status: req.Status}}, nil
}

func (m *occurrenceServiceMock) Resolve(_ context.Context, actor *models.JWTClaims, id string) (*models.OccurrenceWithStudent, error) {
	m.actor = actor
	return &models.OccurrenceWithStudent{Occurrence: models.Occurrence{ID: id, Status: models.OccurrenceResolved}}, nil
}

func TestOccurrenceHandlerCreate(t *testing.T) {
	svc := &occurrenceServiceMock{}
	h := NewOccurrenceHandler(svc)

	body := `{"studentId":"st1","type":"Pedagógica","titles":["Dormir em sala"],"description":"x","severity":"Baixa"}`
	c, w := newGinContext(http.MethodPost, "/api/occurrences", []byte(body))
	withClaims(c, "prof-1", false)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "prof-1", svc.reporter.UserID)
	assert.Equal(t, []string{"Dormir em sala"}, svc.created.Titles)
	assert.Contains(t, w.Body.String(), `"severity":"Alta"`)
}

func TestOccurrenceHandlerCreateRequiresUser(t *testing.T) {
	h := NewOccurrenceHandler(&occurrenceServiceMock{})
	c, w := newGinContext(http.MethodPost, "/api/occurrences", []byte(`{}`))
	h.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOccurrenceHandlerListFilters(t *testing.T) {
	svc := &occurrenceServiceMock{}
	h := NewOccurrenceHandler(svc)
	h.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }

	c, w := newGinContext(http.MethodGet, "/api/occurrences?status=Pendente&type=Disciplinar&studentId=st1&mine=true&period=week", nil)
	withClaims(c, "prof-1", false)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OccurrencePending, svc.filter.Status)
	assert.Equal(t, models.CategoryDisciplinary, svc.filter.Type)
	assert.Equal(t, "st1", svc.filter.StudentID)
	assert.Equal(t, "prof-1", svc.filter.ReporterID)
	require.NotNil(t, svc.filter.From)
	assert.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), *svc.filter.From)

	c, w = newGinContext(http.MethodGet, "/api/occurrences?period=decade", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOccurrenceHandlerGet(t *testing.T) {
	h := NewOccurrenceHandler(&occurrenceServiceMock{})

	c, w := newGinContext(http.MethodGet, "/api/occurrences/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOccurrenceHandlerUpdateStatus(t *testing.T) {
	svc := &occurrenceServiceMock{}
	h := NewOccurrenceHandler(svc)

	c, w := newGinContext(http.MethodPut, "/api/occurrences/o1", []byte(`{"status":"Resolvida"}`))
	c.Params = gin.Params{{Key: "id", Value: "o1"}}
	withClaims(c, "admin", true)
	h.UpdateStatus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.actor.IsSystemAdmin)

	c, w = newGinContext(http.MethodPut, "/api/occurrences/o1", []byte(`{"status":"Pendente"}`))
	c.Params = gin.Params{{Key: "id", Value: "o1"}}
	withClaims(c, "admin", true)
	h.UpdateStatus(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOccurrenceHandlerResolve(t *testing.T) {
	h := NewOccurrenceHandler(&occurrenceServiceMock{})

	c, w := newGinContext(http.MethodPatch, "/api/occurrences/o1/resolve", nil)
	c.Params = gin.Params{{Key: "id", Value: "o1"}}
	withClaims(c, "admin", true)
	h.Resolve(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"Resolvida"`)
}

func TestOccurrenceHandlerClassifications(t *testing.T) {
	h := NewOccurrenceHandler(nil)

	c, w := newGinContext(http.MethodGet, "/api/classifications?category=Pedag%C3%B3gica", nil)
	h.Classifications(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"severity":"Baixa"`)
	assert.NotContains(t, w.Body.String(), `"severity":"Crítica"`)

	c, w = newGinContext(http.MethodGet, "/api/classifications?category=Outra", nil)
	h.Classifications(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
