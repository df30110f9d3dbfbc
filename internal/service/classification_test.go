package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/models"
)

const (
	lowPedagogical    = "Dormir durante a aula."
	mediumPedagogical = "Atrasos recorrentes à escola."
	highPedagogical   = "Agressão verbal, ameaça ou intimidação."
	criticalDisc      = "Porte de armas ou objetos perigosos."
)

func TestResolveSeverityTakesHighestTier(t *testing.T) {
	severity, unmatched := ResolveSeverity(models.CategoryPedagogical, []string{lowPedagogical, mediumPedagogical})
	assert.Equal(t, models.SeverityMedium, severity)
	assert.Empty(t, unmatched)

	severity, _ = ResolveSeverity(models.CategoryPedagogical, []string{lowPedagogical, highPedagogical, mediumPedagogical})
	assert.Equal(t, models.SeverityHigh, severity)
}

func TestResolveSeveritySingleCritical(t *testing.T) {
	severity, unmatched := ResolveSeverity(models.CategoryDisciplinary, []string{criticalDisc})
	assert.Equal(t, models.SeverityCritical, severity)
	assert.Empty(t, unmatched)
}

func TestResolveSeverityOrderIndependent(t *testing.T) {
	selections := []string{highPedagogical, lowPedagogical, mediumPedagogical}
	expected, _ := ResolveSeverity(models.CategoryPedagogical, selections)
	permutations := [][]string{
		{lowPedagogical, mediumPedagogical, highPedagogical},
		{mediumPedagogical, highPedagogical, lowPedagogical},
		{highPedagogical, mediumPedagogical, lowPedagogical},
	}
	for _, p := range permutations {
		got, _ := ResolveSeverity(models.CategoryPedagogical, p)
		assert.Equal(t, expected, got)
	}
}

func TestResolveSeverityFlagsUnmatched(t *testing.T) {
	severity, unmatched := ResolveSeverity(models.CategoryPedagogical, []string{mediumPedagogical, criticalDisc, "Inventado"})
	assert.Equal(t, models.SeverityMedium, severity)
	assert.Equal(t, []string{criticalDisc, "Inventado"}, unmatched)
}

func TestResolveSeverityDefaultsToLow(t *testing.T) {
	severity, unmatched := ResolveSeverity(models.CategoryDisciplinary, nil)
	assert.Equal(t, models.SeverityLow, severity)
	assert.Empty(t, unmatched)
}

func TestResolveSeverityToleratesWhitespace(t *testing.T) {
	severity, unmatched := ResolveSeverity(models.CategoryPedagogical, []string{"  Agressão verbal,  ameaça ou intimidação. "})
	assert.Equal(t, models.SeverityHigh, severity)
	assert.Empty(t, unmatched)
}

func TestCatalogGroups(t *testing.T) {
	pedagogical := Catalog(models.CategoryPedagogical)
	require.Len(t, pedagogical, 3)
	assert.Equal(t, models.SeverityLow, pedagogical[0].Severity)
	assert.Len(t, pedagogical[0].Items, 12)
	assert.Len(t, pedagogical[1].Items, 17)
	assert.Len(t, pedagogical[2].Items, 11)

	disciplinary := Catalog(models.CategoryDisciplinary)
	require.Len(t, disciplinary, 1)
	assert.Len(t, disciplinary[0].Items, 10)

	assert.Len(t, Catalog(""), 4)

	pedagogical[0].Items[0] = "mutated"
	_, ok := LookupClassification(models.CategoryPedagogical, "mutated")
	assert.False(t, ok)
}

func TestCountPriorOccurrences(t *testing.T) {
	var occurrences []models.Occurrence
	assert.Equal(t, 0, CountPriorOccurrences("st-1", occurrences))

	occurrences = append(occurrences, models.Occurrence{ID: "o1", StudentID: "st-1", Type: models.CategoryPedagogical, Status: models.OccurrenceResolved})
	assert.Equal(t, 1, CountPriorOccurrences("st-1", occurrences))

	occurrences = append(occurrences, models.Occurrence{ID: "o2", StudentID: "st-2"})
	assert.Equal(t, 1, CountPriorOccurrences("st-1", occurrences))

	occurrences = append(occurrences, models.Occurrence{ID: "o3", StudentID: "st-1", Type: models.CategoryDisciplinary})
	assert.Equal(t, 2, CountPriorOccurrences("st-1", occurrences))
}
