package models

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OutputFolderName is the subfolder of a process folder
// into which downloaded result archives are extracted.
const OutputFolderName = "output"

// Process is one run of a script's job on the remote
// server, scoped to a project's working folder.
//
// Invariant: Status == StatusCreated implies ClamID is
// nil. Any other status implies a non-nil ClamID, except
// terminal error states where cleanup already cleared it.
type Process struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ScriptID   *uuid.UUID        `gorm:"type:uuid;index" json:"script_id,omitempty"`
	Script     *Script           `gorm:"foreignKey:ScriptID;constraint:OnDelete:SET NULL" json:"script,omitempty"`
	ClamID     *string           `gorm:"type:text" json:"clam_id,omitempty"`
	Status     ProcessStatus     `gorm:"not null;default:0" json:"status"`
	Folder     string            `gorm:"type:text;not null" json:"folder"`
	Parameters datatypes.JSONMap `gorm:"type:json" json:"parameters,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null" json:"updated_at"`
}

// OutputFolder is the absolute path results are unpacked
// into.
func (p *Process) OutputFolder() string {
	return filepath.Join(p.Folder, OutputFolderName)
}

// LogMessage is one deduplicated line of a remote job's
// log. Rows are append-only; readers order by Index, not
// by insertion order, to reconstruct chronology.
type LogMessage struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProcessID uuid.UUID  `gorm:"type:uuid;index;not null" json:"process_id"`
	Time      *time.Time `json:"time,omitempty"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Index     int        `gorm:"column:sequence;not null" json:"index"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}
