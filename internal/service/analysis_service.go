package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/pkg/ai"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
)

const (
	analysisEmptyText       = "Não foi possível gerar a análise no momento."
	analysisUnavailableText = "Erro ao conectar com o serviço de inteligência artificial."
)

type analysisStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type analysisHistoryReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Occurrence, error)
}

// AnalysisService asks the language model for a behaviour summary of a student.
type AnalysisService struct {
	students    analysisStudentReader
	occurrences analysisHistoryReader
	generator   ai.Generator
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnalysisService constructs the service. A nil generator always yields the fallback text.
func NewAnalysisService(students analysisStudentReader, occurrences analysisHistoryReader, generator ai.Generator, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{students: students, occurrences: occurrences, generator: generator, logger: logger, now: time.Now}
}

// Analyze returns the summary. Model failures produce a fallback text instead of an error.
func (s *AnalysisService) Analyze(ctx context.Context, studentID string) (*models.BehaviorAnalysis, error) {
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

	result := &models.BehaviorAnalysis{
		StudentID:       studentID,
		OccurrenceCount: CountPriorOccurrences(studentID, history),
		GeneratedAt:     s.now().UTC(),
	}
	if s.generator == nil {
		result.Summary = analysisUnavailableText
		return result, nil
	}

	text, err := s.generator.Generate(ctx, analysisPrompt(student, history))
	switch {
	case errors.Is(err, ai.ErrEmptyResponse):
		result.Summary = analysisEmptyText
	case err != nil:
		s.logger.Warn("behaviour analysis failed", zap.String("student_id", studentID), zap.Error(err))
		result.Summary = analysisUnavailableText
	default:
		result.Summary = text
		result.Generated = true
	}
	return result, nil
}

func analysisPrompt(student *models.Student, history []models.Occurrence) string {
	lines := make([]string, 0, len(history))
	for _, o := range history {
		severity := ""
		if o.Severity != "" {
			severity = fmt.Sprintf(" (%s)", o.Severity)
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s%s: %s. %s",
			formatOccurrenceDate(o.Date), o.Type, severity, strings.Join(o.Titles, ", "), o.Description))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analise o seguinte histórico de um aluno chamado %s da turma %s.\n", student.Name, student.Grade)
	b.WriteString("O histórico contém ocorrências disciplinares e pedagógicas:\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nPor favor, forneça um resumo profissional em português (máximo 3 parágrafos) que inclua:\n")
	b.WriteString("1. Uma análise geral do comportamento e desempenho.\n")
	b.WriteString("2. Identificação de padrões preocupantes (se houver).\n")
	b.WriteString("3. Sugestões de intervenções pedagógicas ou medidas disciplinares adequadas.\n\n")
	b.WriteString("O tom deve ser pedagógico, empático e construtivo.")
	return b.String()
}
