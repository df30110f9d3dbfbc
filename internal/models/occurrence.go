package models

import (
	"time"

	"github.com/lib/pq"
)

// OccurrenceStatus is the lifecycle state of an occurrence.
type OccurrenceStatus string

const (
	OccurrencePending  OccurrenceStatus = "Pendente"
	OccurrenceResolved OccurrenceStatus = "Resolvida"
)

// OccurrenceDateLayout is the local date-time format used by the reporting form.
const OccurrenceDateLayout = "2006-01-02T15:04"

// MaxOccurrenceTitles bounds the number of catalog descriptions per report.
const MaxOccurrenceTitles = 3

// Occurrence is one disciplinary or pedagogical incident report tied to a student.
type Occurrence struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"studentId"`
	Date         string           `db:"date" json:"date"`
	Type         Category         `db:"type" json:"type"`
	Severity     Severity         `db:"severity" json:"severity"`
	Titles       pq.StringArray   `db:"titles" json:"titles"`
	Description  string           `db:"description" json:"description"`
	ReporterName string           `db:"reporter_name" json:"reporterName"`
	ReporterID   string           `db:"reporter_id" json:"reporterId"`
	Status       OccurrenceStatus `db:"status" json:"status"`
	ResolvedAt   *time.Time       `db:"resolved_at" json:"resolvedAt,omitempty"`
	ResolvedBy   *string          `db:"resolved_by" json:"resolvedBy,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
}

// OccurrenceFilter narrows occurrence listings.
type OccurrenceFilter struct {
	Status     OccurrenceStatus
	Type       Category
	StudentID  string
	ReporterID string
	From       *time.Time
	Page       int
	PageSize   int
}

// OccurrenceWithStudent joins the student name for monitoring and export views.
type OccurrenceWithStudent struct {
	Occurrence
	StudentName  string `db:"student_name" json:"studentName"`
	StudentGrade string `db:"student_grade" json:"studentGrade"`
}

// Recidivism reports how many occurrences a student has accumulated.
type Recidivism struct {
	StudentID  string `json:"studentId"`
	Count      int    `json:"count"`
	Recidivist bool   `json:"recidivist"`
}
