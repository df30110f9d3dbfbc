package service

import (
	"strings"

	"github.com/edsonosf/gdp/internal/models"
)

var classificationCatalog = []models.ClassificationGroup{
	{
		Category: models.CategoryPedagogical,
		Severity: models.SeverityLow,
		Summary:  "Fatos que atrapalham o ritmo individual do aluno ou pequenos desvios de conduta.",
		Items: []string{
			"Apresentar de forma recorrente esquecimento do material escolar.",
			"Falta de material escolar (livros didáticos) durante as atividades.",
			"Falta de zelo com o material escolar (livros, cadernos, etc).",
			"Dormir durante a aula.",
			"Se debruçar ou baixar a cabeça para ignorar a explicação do professor.",
			"Uso inadequado do uniforme escolar.",
			"Modificar o uniforme escolar com pinturas, riscos ou recortes inapropriados.",
			"Utilização de pinturas corporais com material inapropriados (Liquido corretivo, esmalte ou outros produtos toxicos.",
			"Violação do código escolar de vestimenta.",
			"Uso de má fé ao solicitar ida ao banheiro.",
			"Contribuir para desperdício de água.",
			"Uso inadequado de recursos e materiais coletivos.",
		},
	},
	{
		Category: models.CategoryPedagogical,
		Severity: models.SeverityMedium,
		Summary:  "Ações que prejudicam o andamento da aula, o coletivo ou demonstram indisciplina moderada.",
		Items: []string{
			"Apresentar-se com fardamento sujo, desalinhado ou rasgado",
			"Atrasos recorrentes à escola.",
			"Utilização de calçados diferentes do previsto pelo regimento escolar.",
			"Faltas injustificadas e não comunicadas.",
			"Circular pelos corredores em horário de aula sem permissão.",
			"Saída da sala de aula sem autorização.",
			"Conversas excessivas/paralelas ou interrupções constantes.",
			"Não realizar atividades em sala ou não apresentar o \"dever de casa\".",
			"Recusar-se a participar de atividades (individuais ou em grupo).",
			"Conduta educacional inadequada (pés nas cadeiras).",
			"Uso indevido de eletrônicos (celular, smartwatch, etc) ou jogos durante a aula.",
			"Não observar a higine corporal no ambiente escolar.",
			"Desperdiçar merenda escolar ou incentivar o desperdício.",
			"Importunar o colega com toques (empurrões, puxões de cabelo, pisões).",
			"Impor ao colega ou a qualquer membro da unidade escolar pseudônimos depreciativos ou não.",
			"Incitar práticas desordeiras.",
			"Prevaricar (faltar ao cumprimento do dever por interesse ou má-fé).",
		},
	},
	{
		Category: models.CategoryPedagogical,
		Severity: models.SeverityHigh,
		Summary:  "Atitudes que rompem o respeito hierárquico, ameaçam a segurança física/emocional ou violam direitos de imagem e privacidade.",
		Items: []string{
			"Agressão verbal, ameaça ou intimidação.",
			"Intimidação através de gestos ou palavras (coação).",
			"Agir de forma grosseira ou usar argumentações pejorativas/depreciativas contra membros da escola.",
			"Desrespeito à autoridade com respostas ofensivas (professores, coordenação, etc).",
			"Desrespeito ou falta de educação (verbal ou gestual) em geral.",
			"Interpelar de forma truculenta membros da comunidade escolar.",
			"Usar palavras de baixo calão (vocabulário vulgar/obsceno).",
			"Uso de termos ofensivos ou linguagem imprópria recorrente.",
			"Filmar ou fotografar membros da escola sem autorização.",
			"Evadir-se (fugir) da escola antes do horário sem autorização.",
			"Importunar colegas usando qualquer tipo de artefato perigoso.",
		},
	},
	{
		Category: models.CategoryDisciplinary,
		Severity: models.SeverityCritical,
		Summary:  "Violações graves do regimento que exigem intervenção imediata.",
		Items: []string{
			"Porte de armas ou objetos perigosos.",
			"Uso ou comercialização de substâncias ilícitas.",
			"Agressão física contra membros da comunidade escolar.",
			"Vandalismo grave contra o patrimonio.",
			"Furto ou roubo no ambiente escolar.",
			"Assédio ou importunação sexual.",
			"Bullying ou humilhação sistemática",
			"Atos de discriminação (racismo, homofobia, sexismo, etc.)",
			"Vandalismo/Depredação, danos a móveis, equipamentos ou pichação de paredes.",
			"Agressividade física/verbal ou ameaça.",
		},
	},
}

var classificationIndex = buildClassificationIndex(classificationCatalog)

func buildClassificationIndex(groups []models.ClassificationGroup) map[models.Category]map[string]models.ClassificationEntry {
	index := make(map[models.Category]map[string]models.ClassificationEntry)
	for _, group := range groups {
		if index[group.Category] == nil {
			index[group.Category] = make(map[string]models.ClassificationEntry)
		}
		for _, item := range group.Items {
			index[group.Category][normalizeDescription(item)] = models.ClassificationEntry{
				Description: item,
				Severity:    group.Severity,
				Category:    group.Category,
			}
		}
	}
	return index
}

func normalizeDescription(description string) string {
	return strings.Join(strings.Fields(description), " ")
}

// Catalog returns the classification groups for a category ordered by ascending tier.
// An empty category returns every group.
func Catalog(category models.Category) []models.ClassificationGroup {
	groups := make([]models.ClassificationGroup, 0, len(classificationCatalog))
	for _, group := range classificationCatalog {
		if category != "" && group.Category != category {
			continue
		}
		items := make([]string, len(group.Items))
		copy(items, group.Items)
		group.Items = items
		groups = append(groups, group)
	}
	return groups
}

// LookupClassification finds the catalog entry for a description within a category.
func LookupClassification(category models.Category, description string) (models.ClassificationEntry, bool) {
	entry, ok := classificationIndex[category][normalizeDescription(description)]
	return entry, ok
}

// ResolveSeverity returns the highest tier among the descriptions found in the category's
// catalog, together with the descriptions that were not found. With no match it returns Low.
func ResolveSeverity(category models.Category, descriptions []string) (models.Severity, []string) {
	severity := models.SeverityLow
	var unmatched []string
	for _, description := range descriptions {
		entry, ok := LookupClassification(category, description)
		if !ok {
			unmatched = append(unmatched, description)
			continue
		}
		if entry.Severity.Rank() > severity.Rank() {
			severity = entry.Severity
		}
	}
	return severity, unmatched
}

// CountPriorOccurrences counts every occurrence that belongs to the student, whatever its category or status.
// It folds an in-memory history; OccurrenceRepository.CountByStudent runs the same count in SQL.
func CountPriorOccurrences(studentID string, occurrences []models.Occurrence) int {
	count := 0
	for _, occurrence := range occurrences {
		if occurrence.StudentID == studentID {
			count++
		}
	}
	return count
}
