package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditFields is embedded in every persisted entity. GORM stamps CreatedAt
// and UpdatedAt on save; DeletedAt makes deletes soft so history keeps its
// foreign keys resolvable.
type AuditFields struct {
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Role string

const (
	RoleSeeker   Role = "seeker"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID uint `gorm:"primaryKey" json:"id"`
	AuditFields

	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Role        Role   `gorm:"type:varchar(16);not null;default:'seeker'" json:"role"`
}

type Company struct {
	ID uint `gorm:"primaryKey" json:"id"`
	AuditFields

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	OwnerID uint `gorm:"index;not null" json:"owner_id"`
	Owner   User `json:"-"`
}

// Profile is the seeker-side profile; one per user, required before applying.
type Profile struct {
	ID uint `gorm:"primaryKey" json:"id"`
	AuditFields

	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	User   User `json:"-"`

	Headline  string         `json:"headline"`
	Bio       string         `gorm:"type:text" json:"bio"`
	Skills    datatypes.JSON `json:"skills,omitempty"`
	ResumeURL string         `json:"resume_url"`
}

type JobPost struct {
	ID uint `gorm:"primaryKey" json:"id"`
	AuditFields

	CompanyID uint    `gorm:"index;not null" json:"company_id"`
	Company   Company `json:"company,omitempty"`

	// CreatedByID is the employer user who posted the job; either this user
	// or the company owner may review its applications.
	CreatedByID uint `gorm:"index;not null" json:"created_by_id"`

	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Location    string         `json:"location"`
	HourlyRate  string         `json:"hourly_rate"`
	Tags        datatypes.JSON `json:"tags,omitempty"`

	// Counters are only ever changed with an atomic UPDATE expression.
	ApplicationsCount int `gorm:"not null;default:0" json:"applications_count"`
	ViewsCount        int `gorm:"not null;default:0" json:"views_count"`
}

// ApplicationStatus is the fixed 9-row lifecycle lookup. IDs and names are
// stable; reseeding must leave existing rows unchanged to stay compatible
// with stored applications.
type ApplicationStatus struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

const (
	StatusPending      uint = 1
	StatusReviewing    uint = 2
	StatusShortlisted  uint = 3
	StatusInterviewing uint = 4
	StatusOffered      uint = 5
	StatusAccepted     uint = 6
	StatusRejected     uint = 7
	StatusWithdrawn    uint = 8
	StatusExpired      uint = 9
)

// ApplicationStatuses lists the seed rows in ordinal order.
func ApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		{ID: StatusPending, Name: "Pending"},
		{ID: StatusReviewing, Name: "Reviewing"},
		{ID: StatusShortlisted, Name: "Shortlisted"},
		{ID: StatusInterviewing, Name: "Interviewing"},
		{ID: StatusOffered, Name: "Offered"},
		{ID: StatusAccepted, Name: "Accepted"},
		{ID: StatusRejected, Name: "Rejected"},
		{ID: StatusWithdrawn, Name: "Withdrawn"},
		{ID: StatusExpired, Name: "Expired"},
	}
}

// Application is one seeker's submission to one job post. The partial unique
// index admits at most one live application per (job post, profile) pair;
// soft-deleted rows stay behind so history stays resolvable.
type Application struct {
	ID uint `gorm:"primaryKey" json:"id"`
	AuditFields

	JobPostID uint    `gorm:"not null;uniqueIndex:idx_applications_job_profile,where:deleted_at IS NULL" json:"job_post_id"`
	JobPost   JobPost `json:"-"`

	ProfileID uint    `gorm:"not null;uniqueIndex:idx_applications_job_profile,where:deleted_at IS NULL" json:"profile_id"`
	Profile   Profile `json:"-"`

	StatusID uint              `gorm:"not null;default:1" json:"status_id"`
	Status   ApplicationStatus `gorm:"foreignKey:StatusID" json:"status,omitempty"`

	CoverLetter string `gorm:"type:text" json:"cover_letter"`
	ResumeURL   string `json:"resume_url"`

	AppliedAt time.Time `gorm:"not null" json:"applied_at"`

	ReviewedByID *uint      `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes  string     `gorm:"type:text" json:"review_notes"`
}

// ApplicationHistory is the append-only audit trail: exactly one row per
// status change, committed in the same transaction as the application
// update. Rows are never updated or deleted.
type ApplicationHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"changed_at"`

	ApplicationID uint `gorm:"index;not null" json:"application_id"`
	FromStatusID  uint `gorm:"not null" json:"from_status_id"`
	ToStatusID    uint `gorm:"not null" json:"to_status_id"`

	// ChangedByID is nil for system-initiated transitions.
	ChangedByID *uint  `json:"changed_by_id,omitempty"`
	Notes       string `gorm:"type:text" json:"notes"`
}

// Conversation is the single thread between one employer and one seeker.
// The pair is ordered by role, so the composite unique index alone
// guarantees at most one row per pair even under concurrent first contact.
type Conversation struct {
	ID uint `gorm:"primaryKey" json:"id"`
	AuditFields

	EmployerID uint `gorm:"not null;uniqueIndex:idx_conversations_pair" json:"employer_id"`
	StudentID  uint `gorm:"not null;uniqueIndex:idx_conversations_pair" json:"student_id"`

	// JobPostID anchors the thread to the post that started it, if any.
	// Recorded at creation only; later get-or-create calls ignore it.
	JobPostID *uint `json:"job_post_id,omitempty"`

	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at,omitempty"`

	EmployerUnread int `gorm:"not null;default:0" json:"employer_unread"`
	StudentUnread  int `gorm:"not null;default:0" json:"student_unread"`
}

// Message is immutable once created except for IsRead, which only ever goes
// false -> true.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	ConversationID uint `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint `gorm:"not null" json:"sender_id"`
	RecipientID    uint `gorm:"index;not null" json:"recipient_id"`

	Content string `gorm:"type:text;not null" json:"content"`
	IsRead  bool   `gorm:"not null;default:false" json:"is_read"`

	// ClientMsgID deduplicates the push path against the HTTP fallback when
	// a flaky connection reports failure after actually delivering.
	// Server-generated when the client does not supply one.
	ClientMsgID string `gorm:"size:36;uniqueIndex;not null" json:"client_msg_id"`
}
