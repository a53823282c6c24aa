package models

import (
	"time"

	"github.com/google/uuid"
)

// Script describes one remote CLAM-hosted job definition:
// where it lives and how to authenticate against it.
type Script struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Hostname    string    `gorm:"type:text;not null" json:"hostname"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Username    string    `gorm:"type:text" json:"-"`
	Password    string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// Pipeline pairs the forced-alignment script with the
// grapheme-to-phoneme script a project runs in order.
type Pipeline struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	FAScriptID  uuid.UUID `gorm:"type:uuid;not null" json:"fa_script_id"`
	FAScript    *Script   `gorm:"foreignKey:FAScriptID;constraint:OnDelete:CASCADE" json:"fa_script,omitempty"`
	G2PScriptID uuid.UUID `gorm:"type:uuid;not null" json:"g2p_script_id"`
	G2PScript   *Script   `gorm:"foreignKey:G2PScriptID;constraint:OnDelete:CASCADE" json:"g2p_script,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
