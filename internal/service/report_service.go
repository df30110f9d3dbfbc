package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/repository"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/export"
)

const topStudentsLimit = 5

type reportRepository interface {
	Total(ctx context.Context, from *time.Time) (int, error)
	CountBy(ctx context.Context, dimension repository.ReportDimension, from *time.Time) ([]models.CountRow, error)
	TopStudents(ctx context.Context, from *time.Time, limit int) ([]models.StudentCount, error)
}

type reportOccurrenceReader interface {
	ListForExport(ctx context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Occurrence, error)
}

type reportStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReportRenderers groups the output encoders; nil members fall back to the defaults.
type ReportRenderers struct {
	CSV  datasetRenderer
	PDF  datasetRenderer
	XLSX datasetRenderer
}

// ReportService aggregates occurrences for the dashboard and renders exports.
type ReportService struct {
	repo        reportRepository
	occurrences reportOccurrenceReader
	students    reportStudentLookup
	cache       *CacheService
	renderers   ReportRenderers
	logger      *zap.Logger
	now         func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportRepository, occurrences reportOccurrenceReader, students reportStudentLookup, cache *CacheService, renderers ReportRenderers, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderers.CSV == nil {
		renderers.CSV = export.NewCSVExporter()
	}
	if renderers.PDF == nil {
		renderers.PDF = &export.PDFExporter{Widths: map[string]float64{"Aluno": 2, "Ocorrências": 3, "Descrição": 3}}
	}
	if renderers.XLSX == nil {
		renderers.XLSX = export.NewXLSXExporter()
	}
	return &ReportService{
		repo:        repo,
		occurrences: occurrences,
		students:    students,
		cache:       cache,
		renderers:   renderers,
		logger:      logger,
		now:         time.Now,
	}
}

// Summary returns per-category, per-severity and per-status shares for the period, served from cache when possible.
func (s *ReportService) Summary(ctx context.Context, period models.ReportPeriod) (*models.ReportSummary, error) {
	period, err := normalisePeriod(period)
	if err != nil {
		return nil, err
	}
	key := ReportSummaryKey(period)
	var cached models.ReportSummary
	if s.cache.Get(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	now := s.now()
	from := period.Since(now)
	total, err := s.repo.Total(ctx, from)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute report total")
	}
	summary := &models.ReportSummary{Period: period, From: from, Total: total, GeneratedAt: now.UTC()}

	dimensions := []struct {
		dim    repository.ReportDimension
		labels []string
		dest   *[]models.ShareRow
	}{
		{repository.DimensionCategory, []string{string(models.CategoryPedagogical), string(models.CategoryDisciplinary)}, &summary.ByCategory},
		{repository.DimensionSeverity, severityLabels(), &summary.BySeverity},
		{repository.DimensionStatus, []string{string(models.OccurrencePending), string(models.OccurrenceResolved)}, &summary.ByStatus},
	}
	for _, d := range dimensions {
		rows, err := s.repo.CountBy(ctx, d.dim, from)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate occurrences by "+string(d.dim))
		}
		*d.dest = shareRows(rows, d.labels, total)
	}

	top, err := s.repo.TopStudents(ctx, from, topStudentsLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank students")
	}
	if top == nil {
		top = []models.StudentCount{}
	}
	summary.TopStudents = top

	s.cache.Set(ctx, key, summary, 0)
	return summary, nil
}

// Export renders the occurrences of the period in the requested format.
func (s *ReportService) Export(ctx context.Context, format models.ExportFormat, period models.ReportPeriod) (*models.ExportFile, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
	period, err := normalisePeriod(period)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items, err := s.occurrences.ListForExport(ctx, models.OccurrenceFilter{From: period.Since(now)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occurrences")
	}

	data := export.Dataset{
		Title:    "Relatório de Ocorrências",
		Subtitle: fmt.Sprintf("Período: %s | Total: %d | Gerado em %s", periodLabel(period), len(items), now.Format("02/01/2006 15:04")),
		Headers:  occurrenceHeaders(true),
	}
	for _, item := range items {
		data.Rows = append(data.Rows, occurrenceRow(item.Occurrence, item.StudentName, item.StudentGrade))
	}
	filename := fmt.Sprintf("ocorrencias-%s-%s", period, now.Format("20060102"))
	return s.render(format, filename, data)
}

// StudentReport renders the full occurrence history of one student.
func (s *ReportService) StudentReport(ctx context.Context, studentID string, format models.ExportFormat) (*models.ExportFile, error) {
	if format == "" {
		format = models.FormatPDF
	}
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	history, err := s.occurrences.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occurrence history")
	}

	now := s.now()
	data := export.Dataset{
		Title:    "Histórico do Aluno: " + student.Name,
		Subtitle: fmt.Sprintf("Turma: %s %s | Turno: %s | Ocorrências: %d | Gerado em %s", student.Grade, student.Classroom, student.Turn, len(history), now.Format("02/01/2006 15:04")),
		Headers:  occurrenceHeaders(false),
	}
	for _, occurrence := range history {
		data.Rows = append(data.Rows, occurrenceRow(occurrence, student.Name, student.Grade))
	}
	filename := fmt.Sprintf("aluno-%s-%s", studentID, now.Format("20060102"))
	return s.render(format, filename, data)
}

func (s *ReportService) render(format models.ExportFormat, filename string, data export.Dataset) (*models.ExportFile, error) {
	var renderer datasetRenderer
	switch format {
	case models.FormatPDF:
		renderer = s.renderers.PDF
	case models.FormatXLSX:
		renderer = s.renderers.XLSX
	default:
		renderer = s.renderers.CSV
	}
	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &models.ExportFile{
		Filename:    filename + "." + string(format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func normalisePeriod(period models.ReportPeriod) (models.ReportPeriod, error) {
	if period == "" {
		return models.PeriodAll, nil
	}
	if !period.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "period must be today, week, month, year or all")
	}
	return period, nil
}

func severityLabels() []string {
	labels := make([]string, 0, len(models.Severities))
	for _, s := range models.Severities {
		labels = append(labels, string(s))
	}
	return labels
}

// shareRows lists the known labels first, in order and including zero counts, then any unexpected label.
func shareRows(rows []models.CountRow, labels []string, total int) []models.ShareRow {
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Label] += row.Count
	}
	out := make([]models.ShareRow, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		seen[label] = true
		out = append(out, models.ShareRow{Label: label, Count: counts[label], Percentage: percentage(counts[label], total)})
	}
	for _, row := range rows {
		if !seen[row.Label] {
			seen[row.Label] = true
			out = append(out, models.ShareRow{Label: row.Label, Count: counts[row.Label], Percentage: percentage(counts[row.Label], total)})
		}
	}
	return out
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)*1000/float64(total)) / 10
}

func periodLabel(period models.ReportPeriod) string {
	switch period {
	case models.PeriodToday:
		return "hoje"
	case models.PeriodWeek:
		return "últimos 7 dias"
	case models.PeriodMonth:
		return "último mês"
	case models.PeriodYear:
		return "último ano"
	default:
		return "todo o período"
	}
}

func occurrenceHeaders(withStudent bool) []string {
	headers := []string{"Data"}
	if withStudent {
		headers = append(headers, "Aluno", "Turma")
	}
	return append(headers, "Tipo", "Gravidade", "Ocorrências", "Descrição", "Relator", "Status")
}

func occurrenceRow(o models.Occurrence, studentName, grade string) map[string]string {
	return map[string]string{
		"Data":        formatOccurrenceDate(o.Date),
		"Aluno":       studentName,
		"Turma":       grade,
		"Tipo":        string(o.Type),
		"Gravidade":   string(o.Severity),
		"Ocorrências": strings.Join(o.Titles, " | "),
		"Descrição":   o.Description,
		"Relator":     o.ReporterName,
		"Status":      string(o.Status),
	}
}

func formatOccurrenceDate(raw string) string {
	t, err := time.Parse(models.OccurrenceDateLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format("02/01/2006 15:04")
}
