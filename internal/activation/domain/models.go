package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ActivationRecord is the append-only audit entry written for every
// successful activation. Records are never deduplicated per user: each
// successful claim appends one row.
type ActivationRecord struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	UserID      snowflake.ID `gorm:"not null;index"`
	PromoID     snowflake.ID `gorm:"not null;index"`
	ActivatedAt time.Time    `gorm:"not null;index"`
}

// TableName sets the database table name.
func (ActivationRecord) TableName() string { return "promo_activations" }
