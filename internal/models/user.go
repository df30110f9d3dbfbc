package models

import (
	"time"

	"github.com/lib/pq"
)

// UserStatus toggles whether an account may sign in.
type UserStatus string

const (
	UserActive   UserStatus = "Ativo"
	UserInactive UserStatus = "Inativo"
)

// SeedAdminID identifies the bootstrap administrator, which survives restores and cannot be deleted.
const SeedAdminID = "admin_seed"

// User represents a staff account stored in the users table.
type User struct {
	ID                    string         `db:"id" json:"id"`
	Name                  string         `db:"name" json:"name"`
	SocialName            string         `db:"social_name" json:"socialName"`
	Role                  string         `db:"role" json:"role"`
	Email                 *string        `db:"email" json:"email,omitempty"`
	CPF                   string         `db:"cpf" json:"cpf"`
	Status                UserStatus     `db:"status" json:"status"`
	Secretaria            string         `db:"secretaria" json:"secretaria"`
	Lotacao               string         `db:"lotacao" json:"lotacao"`
	Matricula             string         `db:"matricula" json:"matricula"`
	Phone                 string         `db:"phone" json:"phone"`
	Phone2                string         `db:"phone2" json:"phone2"`
	Cargo                 string         `db:"cargo" json:"cargo"`
	ProfileImage          string         `db:"profile_image" json:"profileImage"`
	IsSystemAdmin         bool           `db:"is_system_admin" json:"isSystemAdmin"`
	Gender                string         `db:"gender" json:"gender"`
	BirthDate             string         `db:"birth_date" json:"birthDate"`
	Components            pq.StringArray `db:"components" json:"components"`
	Disciplines           pq.StringArray `db:"disciplines" json:"disciplines"`
	CargaHoraria          pq.StringArray `db:"carga_horaria" json:"cargaHoraria"`
	TurnoTrabalho         pq.StringArray `db:"turno_trabalho" json:"turnoTrabalho"`
	AdditionalInfo        string         `db:"additional_info" json:"additionalInfo"`
	HasCustomSchedule     bool           `db:"has_custom_schedule" json:"hasCustomSchedule"`
	CustomScheduleDetails pq.StringArray `db:"custom_schedule_details" json:"customScheduleDetails"`
	PasswordHash          string         `db:"password_hash" json:"-"`
	CreatedAt             time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updatedAt"`
}

// Active reports whether the account may sign in.
func (u *User) Active() bool {
	return u.Status == UserActive
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Status   UserStatus
	Admins   *bool
	Search   string
	Page     int
	PageSize int
}

// AdminSummary is the minimal administrator projection used by the reset dialog.
type AdminSummary struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// NewPagination clamps the requested page the same way repositories do.
func NewPagination(page, size, total int) *Pagination {
	page, size = ClampPage(page, size)
	return &Pagination{Page: page, PageSize: size, TotalCount: total}
}

// ClampPage applies the default page (1) and page size (20, max 100).
func ClampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
