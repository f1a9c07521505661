package domain

import (
	"encoding/json"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/targeting"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PromoMode selects how code inventory is handed out.
type PromoMode string

const (
	// PromoModeCommon shares one code among max_count redemptions.
	PromoModeCommon PromoMode = "COMMON"
	// PromoModeUnique hands each redeemer one code from a finite pool.
	PromoModeUnique PromoMode = "UNIQUE"
)

// Promo is a redeemable offer owned by a company. The activation engine only
// ever mutates used_count (COMMON) and the is_used/used_at fields of its
// code rows (UNIQUE); it never creates or deletes promos.
type Promo struct {
	ID           snowflake.ID   `gorm:"primaryKey"`
	CompanyID    snowflake.ID   `gorm:"not null;index"`
	Description  string         `gorm:"type:text;not null"`
	ImageURL     *string        `gorm:"type:text"`
	Mode         PromoMode      `gorm:"type:text;not null"`
	Target       datatypes.JSON `gorm:"not null;default:'{}'"`
	ActiveFrom   *time.Time
	ActiveUntil  *time.Time
	MaxCount     int            `gorm:"not null"`
	UsedCount    int            `gorm:"not null;default:0"`
	CommonCode   *string        `gorm:"type:text"`
	UniqueCodes  []PromoCode    `gorm:"foreignKey:PromoID"`
	Active       bool           `gorm:"not null;default:true"`
	LikeCount    int            `gorm:"not null;default:0"`
	CommentCount int            `gorm:"not null;default:0"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

// TableName sets the database table name.
func (Promo) TableName() string { return "promos" }

// PromoCode is one claimable unit of a UNIQUE promo. is_used transitions
// false to true at most once and never reverts.
type PromoCode struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	PromoID   snowflake.ID `gorm:"not null;index"`
	Code      string       `gorm:"type:text;not null"`
	IsUsed    bool         `gorm:"not null;default:false;index"`
	UsedAt    *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (PromoCode) TableName() string { return "promo_codes" }

// TargetSpec decodes the stored targeting rule. A malformed value decodes as
// an empty spec rather than failing reads.
func (p *Promo) TargetSpec() targeting.Spec {
	var spec targeting.Spec
	if len(p.Target) == 0 {
		return spec
	}
	if err := json.Unmarshal(p.Target, &spec); err != nil {
		return targeting.Spec{}
	}
	return spec
}

// IsWithinWindow reports whether now falls inside the promo's date window.
// Bounds are inclusive and date-granular; an absent bound is unbounded.
func (p *Promo) IsWithinWindow(now time.Time) bool {
	today := truncateToDate(now)
	if p.ActiveFrom != nil && today.Before(truncateToDate(*p.ActiveFrom)) {
		return false
	}
	if p.ActiveUntil != nil && today.After(truncateToDate(*p.ActiveUntil)) {
		return false
	}
	return true
}

func truncateToDate(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
