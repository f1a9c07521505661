package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PromoLike marks that a user likes a promo. At most one row per
// (promo, user) pair; liking twice is a no-op.
type PromoLike struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	PromoID   snowflake.ID `gorm:"not null;uniqueIndex:idx_promo_likes_promo_user"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:idx_promo_likes_promo_user"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (PromoLike) TableName() string { return "promo_likes" }

// PromoComment is a user comment under a promo.
type PromoComment struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	PromoID   snowflake.ID `gorm:"not null;index"`
	AuthorID  snowflake.ID `gorm:"not null;index"`
	Text      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (PromoComment) TableName() string { return "promo_comments" }
