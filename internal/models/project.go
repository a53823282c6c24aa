package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a user's unit of work: an exclusively owned
// folder, a pipeline, and at most one active process. The
// workflow stage is derived from folder contents and the
// process state on every read; no stage field is stored.
type Project struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string     `gorm:"type:text;not null;uniqueIndex:idx_project_name_user" json:"name"`
	UserID           string     `gorm:"type:text;not null;uniqueIndex:idx_project_name_user" json:"user_id"`
	Folder           string     `gorm:"type:text;not null" json:"folder"`
	PipelineID       uuid.UUID  `gorm:"type:uuid;not null" json:"pipeline_id"`
	Pipeline         *Pipeline  `gorm:"foreignKey:PipelineID;constraint:OnDelete:CASCADE" json:"pipeline,omitempty"`
	CurrentProcessID *uuid.UUID `gorm:"type:uuid" json:"current_process_id,omitempty"`
	CurrentProcess   *Process   `gorm:"foreignKey:CurrentProcessID;constraint:OnDelete:SET NULL" json:"current_process,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}
