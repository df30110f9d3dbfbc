package models

import (
	"time"

	"github.com/lib/pq"
)

// Turn values accepted for a student's shift.
const (
	TurnFullTime  = "Integral"
	TurnMorning   = "Manhã"
	TurnAfternoon = "Tarde"
	TurnEvening   = "Noite"
)

// PcdStatus values.
const (
	PcdWithReport         = "com_laudo"
	PcdUnderInvestigation = "sob_investigacao"
)

// School need flags.
const (
	NeedPhysicalStructure  = "estrutura_fisica"
	NeedCurriculumAdaption = "adaptacao_curricular"
	NeedSpecializedCare    = "atendimento_especializado"
)

// Student is a learner on the school roster.
type Student struct {
	ID                        string         `db:"id" json:"id"`
	Name                      string         `db:"name" json:"name"`
	SocialName                string         `db:"social_name" json:"socialName"`
	Grade                     string         `db:"grade" json:"grade"`
	Classroom                 string         `db:"classroom" json:"classroom"`
	Room                      string         `db:"room" json:"room"`
	Turn                      string         `db:"turn" json:"turn"`
	BirthDate                 string         `db:"birth_date" json:"birthDate"`
	Age                       *int           `db:"-" json:"age,omitempty"`
	ResponsibleName           string         `db:"responsible_name" json:"responsibleName"`
	Relationship              string         `db:"relationship" json:"relationship"`
	OtherRelationship         string         `db:"other_relationship" json:"otherRelationship"`
	ContactPhone              string         `db:"contact_phone" json:"contactPhone"`
	BackupPhone               string         `db:"backup_phone" json:"backupPhone"`
	Landline                  string         `db:"landline" json:"landline"`
	WorkPhone                 string         `db:"work_phone" json:"workPhone"`
	Email                     string         `db:"email" json:"email"`
	ProfileImage              string         `db:"profile_image" json:"profileImage"`
	Observations              string         `db:"observations" json:"observations"`
	IsAEE                     bool           `db:"is_aee" json:"isAEE"`
	PcdStatus                 string         `db:"pcd_status" json:"pcdStatus"`
	CID                       string         `db:"cid" json:"cid"`
	InvestigationDescription  string         `db:"investigation_description" json:"investigationDescription"`
	SchoolNeed                pq.StringArray `db:"school_need" json:"schoolNeed"`
	PedagogicalEvaluationType string         `db:"pedagogical_evaluation_type" json:"pedagogicalEvaluationType"`
	CreatedAt                 time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt                 time.Time      `db:"updated_at" json:"updatedAt"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Grade    string
	Turn     string
	Room     string
	Page     int
	PageSize int
}

// StudentDetail adds the derived occurrence history markers.
type StudentDetail struct {
	Student
	OccurrenceCount int  `json:"occurrenceCount"`
	Recidivist      bool `json:"recidivist"`
}

// PendingStudent summarises a student that has occurrences awaiting analysis.
type PendingStudent struct {
	StudentID       string   `db:"student_id" json:"studentId"`
	Name            string   `db:"name" json:"name"`
	Grade           string   `db:"grade" json:"grade"`
	Classroom       string   `db:"classroom" json:"classroom"`
	ProfileImage    string   `db:"profile_image" json:"profileImage"`
	OccurrenceCount int      `db:"occurrence_count" json:"occurrenceCount"`
	PendingCount    int      `db:"pending_count" json:"pendingCount"`
	LastOccurrence  string   `db:"last_occurrence" json:"lastOccurrence"`
	LastSeverity    Severity `db:"last_severity" json:"lastSeverity"`
}

// AgeAt derives whole years from a DD/MM/YYYY or YYYY-MM-DD birth date.
// It returns nil when the date cannot be parsed or lies in the future.
func AgeAt(birthDate string, now time.Time) *int {
	var born time.Time
	var err error
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		born, err = time.Parse(layout, birthDate)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	if age < 0 {
		return nil
	}
	return &age
}

// WithAge fills the derived Age field.
func (s *Student) WithAge(now time.Time) {
	s.Age = AgeAt(s.BirthDate, now)
}
