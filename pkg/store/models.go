package store

import (
	"time"

	"gorm.io/datatypes"
)

// ProjectModel is the GORM model used for persistence. Units, the
// refinement ledger, and feedback are embedded documents stored as JSONB.
type ProjectModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Kind        string `gorm:"not null"`
	Topic       string `gorm:"not null"`
	Description string
	Sections    datatypes.JSON `gorm:"type:jsonb"`
	Slides      datatypes.JSON `gorm:"type:jsonb"`
	Refinements datatypes.JSON `gorm:"type:jsonb"`
	Feedback    datatypes.JSON `gorm:"type:jsonb"`
	Status      string         `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null;index"`
	UpdatedAt   time.Time      `gorm:"not null"`
}
