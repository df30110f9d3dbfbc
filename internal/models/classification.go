package models

// Category separates pedagogical records from disciplinary ones.
type Category string

const (
	CategoryPedagogical  Category = "Pedagógica"
	CategoryDisciplinary Category = "Disciplinar"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryPedagogical || c == CategoryDisciplinary
}

// Severity is the ordinal seriousness of an occurrence.
type Severity string

const (
	SeverityLow      Severity = "Baixa"
	SeverityMedium   Severity = "Média"
	SeverityHigh     Severity = "Alta"
	SeverityCritical Severity = "Crítica"
)

// Severities lists every tier in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank orders severities; unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is a known tier.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// ClassificationEntry maps one selectable incident description to its tier.
type ClassificationEntry struct {
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Category    Category `json:"category"`
}

// ClassificationGroup is the catalog as shown to reporters: one tier of one category.
type ClassificationGroup struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Items    []string `json:"items"`
}
