package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/repository"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/export"
)

type stubReportRepo struct {
	total  int
	counts map[repository.ReportDimension][]models.CountRow
	top    []models.StudentCount
	calls  int
	from   *time.Time
	err    error
}

func (s *stubReportRepo) Total(ctx context.Context, from *time.Time) (int, error) {
	s.calls++
	s.from = from
	return s.total, s.err
}

func (s *stubReportRepo) CountBy(ctx context.Context, dimension repository.ReportDimension, from *time.Time) ([]models.CountRow, error) {
	return s.counts[dimension], nil
}

func (s *stubReportRepo) TopStudents(ctx context.Context, from *time.Time, limit int) ([]models.StudentCount, error) {
	return s.top, nil
}

type capturingRenderer struct {
	data export.Dataset
}

func (c *capturingRenderer) Render(data export.Dataset) ([]byte, error) {
	c.data = data
	return []byte("rendered"), nil
}

var reportTestNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestReportService(repo *stubReportRepo, occurrences *mockOccurrenceRepo, students *mockStudentRepo, cache *CacheService, renderers ReportRenderers) *ReportService {
	svc := NewReportService(repo, occurrences, students, cache, renderers, nil)
	svc.now = func() time.Time { return reportTestNow }
	return svc
}

func TestReportServiceSummaryPercentages(t *testing.T) {
	repo := &stubReportRepo{
		total: 3,
		counts: map[repository.ReportDimension][]models.CountRow{
			repository.DimensionCategory: {{Label: "Pedagógica", Count: 2}, {Label: "Disciplinar", Count: 1}},
			repository.DimensionSeverity: {{Label: "Crítica", Count: 1}, {Label: "Baixa", Count: 2}},
			repository.DimensionStatus:   {{Label: "Pendente", Count: 3}},
		},
		top: []models.StudentCount{{StudentID: "s1", Name: "Ana", Count: 2}},
	}
	svc := newTestReportService(repo, newMockOccurrenceRepo(), newMockStudentRepo(), nil, ReportRenderers{})

	summary, err := svc.Summary(context.Background(), models.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, []models.ShareRow{
		{Label: "Pedagógica", Count: 2, Percentage: 66.7},
		{Label: "Disciplinar", Count: 1, Percentage: 33.3},
	}, summary.ByCategory)
	require.Len(t, summary.BySeverity, 4)
	assert.Equal(t, "Baixa", summary.BySeverity[0].Label)
	assert.Equal(t, 0, summary.BySeverity[1].Count)
	assert.Equal(t, 33.3, summary.BySeverity[3].Percentage)
	assert.Equal(t, 100.0, summary.ByStatus[0].Percentage)
	assert.Len(t, summary.TopStudents, 1)

	require.NotNil(t, repo.from)
	assert.Equal(t, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), *repo.from)
}

func TestReportServiceSummaryUsesCache(t *testing.T) {
	repo := &stubReportRepo{total: 1}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := newTestReportService(repo, newMockOccurrenceRepo(), newMockStudentRepo(), cache, ReportRenderers{})

	first, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, models.PeriodAll, first.Period)
	assert.Nil(t, repo.from)

	second, err := svc.Summary(context.Background(), models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, repo.calls)

	cache.InvalidateReports(context.Background())
	_, err = svc.Summary(context.Background(), models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestReportServiceSummaryErrors(t *testing.T) {
	svc := newTestReportService(&stubReportRepo{err: errors.New("db down")}, newMockOccurrenceRepo(), newMockStudentRepo(), nil, ReportRenderers{})

	_, err := svc.Summary(context.Background(), "decade")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Summary(context.Background(), models.PeriodWeek)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestReportServiceExportFiltersPeriod(t *testing.T) {
	occurrences := newMockOccurrenceRepo(
		&models.Occurrence{ID: "o1", StudentID: "s1", Date: "2024-05-09T08:15", Type: models.CategoryPedagogical, Severity: models.SeverityLow, Titles: []string{"a", "b"}, Status: models.OccurrencePending},
		&models.Occurrence{ID: "o2", StudentID: "s1", Date: "2023-01-01T08:00"},
	)
	occurrences.names["s1"] = "Ana"
	renderer := &capturingRenderer{}
	svc := newTestReportService(&stubReportRepo{}, occurrences, newMockStudentRepo(), nil, ReportRenderers{CSV: renderer})

	file, err := svc.Export(context.Background(), models.FormatCSV, models.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, "ocorrencias-week-20240510.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	require.Len(t, renderer.data.Rows, 1)
	row := renderer.data.Rows[0]
	assert.Equal(t, "09/05/2024 08:15", row["Data"])
	assert.Equal(t, "Ana", row["Aluno"])
	assert.Equal(t, "a | b", row["Ocorrências"])
	assert.Contains(t, renderer.data.Subtitle, "Total: 1")

	_, err = svc.Export(context.Background(), "doc", models.PeriodAll)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceExportRendersRealFormats(t *testing.T) {
	occurrences := newMockOccurrenceRepo(&models.Occurrence{ID: "o1", StudentID: "s1", Date: "2024-05-09T08:15", Description: "Descrição com acentuação"})
	svc := newTestReportService(&stubReportRepo{}, occurrences, newMockStudentRepo(), nil, ReportRenderers{})

	pdf, err := svc.Export(context.Background(), models.FormatPDF, models.PeriodAll)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	xlsx, err := svc.Export(context.Background(), models.FormatXLSX, models.PeriodAll)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(xlsx.Filename, ".xlsx"))
	assert.True(t, bytes.HasPrefix(xlsx.Body, []byte("PK")))
}

func TestReportServiceStudentReport(t *testing.T) {
	students := newMockStudentRepo(&models.Student{ID: "s1", Name: "Ana", Grade: "7º Ano"})
	occurrences := newMockOccurrenceRepo(&models.Occurrence{ID: "o1", StudentID: "s1", Date: "2024-05-09T08:15"})
	renderer := &capturingRenderer{}
	svc := newTestReportService(&stubReportRepo{}, occurrences, students, nil, ReportRenderers{PDF: renderer})

	file, err := svc.StudentReport(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Equal(t, "aluno-s1-20240510.pdf", file.Filename)
	assert.Equal(t, "Histórico do Aluno: Ana", renderer.data.Title)
	assert.NotContains(t, renderer.data.Headers, "Aluno")
	assert.Len(t, renderer.data.Rows, 1)

	_, err = svc.StudentReport(context.Background(), "missing", models.FormatCSV)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
