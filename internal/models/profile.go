package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile is one invocation configuration of a script: a
// named bundle of input template slots. Deleting a profile
// cascades to its templates.
//
// Profiles declared by a script carry only ScriptID. When
// a process is created it pins its own copy of the
// script's profiles; those copies carry ProcessID so a
// later script refresh cannot change a run in flight.
type Profile struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ScriptID  *uuid.UUID `gorm:"type:uuid;index" json:"script_id,omitempty"`
	ProcessID *uuid.UUID `gorm:"type:uuid;index" json:"process_id,omitempty"`
	// SourceProfileID names the declared profile a pinned
	// copy was taken from.
	SourceProfileID *uuid.UUID      `gorm:"type:uuid;index" json:"source_profile_id,omitempty"`
	Templates       []InputTemplate `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"templates,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

// InputTemplate describes one input slot of a remote job:
// which file extension it accepts and whether the slot is
// optional or limited to a single file.
type InputTemplate struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID     uuid.UUID `gorm:"type:uuid;index;not null" json:"profile_id"`
	TemplateID    string    `gorm:"type:text;not null" json:"template_id"`
	Format        string    `gorm:"type:text" json:"format,omitempty"`
	Label         string    `gorm:"type:text" json:"label,omitempty"`
	Extension     string    `gorm:"type:text;not null" json:"extension"`
	Optional      bool      `gorm:"not null" json:"optional"`
	Unique        bool      `gorm:"column:unique_input;not null" json:"unique"`
	AcceptArchive bool      `gorm:"not null" json:"accept_archive"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// MatchingFiles returns the subset of entries whose name
// ends with the template's extension. Matching is suffix
// based and case-sensitive. An empty result means no file
// matched; callers decide whether that is acceptable based
// on the Optional flag.
func (t *InputTemplate) MatchingFiles(entries []string) []string {
	matches := make([]string, 0)

	for _, entry := range entries {
		if strings.HasSuffix(entry, t.Extension) {
			matches = append(matches, entry)
		}
	}

	return matches
}

func (t *InputTemplate) String() string {
	switch {
	case t.Unique && t.Optional:
		return fmt.Sprintf("unique optional file with extension %v", t.Extension)
	case t.Unique:
		return fmt.Sprintf("unique file with extension %v", t.Extension)
	case t.Optional:
		return fmt.Sprintf("optional file with extension %v", t.Extension)
	default:
		return fmt.Sprintf("file with extension %v", t.Extension)
	}
}
