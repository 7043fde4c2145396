package models

import (
	"time"

	"gorm.io/gorm"
)

// Application statuses, in the order an application usually moves through them.
const (
	StatusApplied      = "Applied"
	StatusInterviewing = "Interviewing"
	StatusOffer        = "Offer"
	StatusRejected     = "Rejected"
)

// IsTerminal reports whether no further status change is expected.
func IsTerminal(status string) bool {
	return status == StatusOffer || status == StatusRejected
}

type Application struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Company     string     `gorm:"not null;index" json:"company"`
	Position    string     `gorm:"not null" json:"position"`
	JobLink     string     `json:"job_link"`
	Status      string     `gorm:"default:'Applied'" json:"status"`
	AppliedDate *time.Time `gorm:"type:date" json:"applied_date"`
	Notes       string     `gorm:"type:text" json:"notes"`
}

// ApplicationEvent is the status history of an application.
type ApplicationEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	ApplicationID uint      `gorm:"index" json:"application_id"`
	EventType     string    `json:"event_type"`
	Details       string    `gorm:"type:text" json:"details"`
}

const (
	EventStatusUpdate = "STATUS_UPDATE"
	EventEmailUpdate  = "EMAIL_UPDATE"
)

// MailboxState is the Gmail watcher's bookmark.
type MailboxState struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	LastHistoryID uint64 `json:"last_history_id"`
}

type ProcessedEmail struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}
