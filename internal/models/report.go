package models

import "time"

// ReportPeriod bounds the occurrences considered by a report.
type ReportPeriod string

const (
	PeriodToday ReportPeriod = "today"
	PeriodWeek  ReportPeriod = "week"
	PeriodMonth ReportPeriod = "month"
	PeriodYear  ReportPeriod = "year"
	PeriodAll   ReportPeriod = "all"
)

// Since returns the lower bound of the period relative to now, or nil for PeriodAll.
func (p ReportPeriod) Since(now time.Time) *time.Time {
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	var from time.Time
	switch p {
	case PeriodToday:
		from = startOfDay
	case PeriodWeek:
		from = startOfDay.AddDate(0, 0, -7)
	case PeriodMonth:
		from = startOfDay.AddDate(0, -1, 0)
	case PeriodYear:
		from = startOfDay.AddDate(-1, 0, 0)
	default:
		return nil
	}
	return &from
}

// Valid reports whether p is a known period.
func (p ReportPeriod) Valid() bool {
	switch p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return true
	}
	return false
}

// CountRow is a generic label/count aggregate row.
type CountRow struct {
	Label string `db:"label" json:"label"`
	Count int    `db:"count" json:"count"`
}

// ShareRow is a count with its percentage of the total.
type ShareRow struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// StudentCount ranks students by number of occurrences.
type StudentCount struct {
	StudentID string `db:"student_id" json:"studentId"`
	Name      string `db:"name" json:"name"`
	Count     int    `db:"count" json:"count"`
}

// ReportSummary aggregates occurrences for the reports dashboard.
type ReportSummary struct {
	Period      ReportPeriod   `json:"period"`
	From        *time.Time     `json:"from,omitempty"`
	Total       int            `json:"total"`
	ByCategory  []ShareRow     `json:"byCategory"`
	BySeverity  []ShareRow     `json:"bySeverity"`
	ByStatus    []ShareRow     `json:"byStatus"`
	TopStudents []StudentCount `json:"topStudents"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Cached      bool           `json:"-"`
}

// ExportFormat selects the rendering of an exported report.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatPDF  ExportFormat = "pdf"
	FormatXLSX ExportFormat = "xlsx"
)

// Valid reports whether f is a supported export format.
func (f ExportFormat) Valid() bool {
	return f == FormatCSV || f == FormatPDF || f == FormatXLSX
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// ExportFile is a rendered report ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
