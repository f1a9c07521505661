package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter scopes a repository listing.
type ListFilter struct {
	CompanyID snowflake.ID
	SortBy    string
	Limit     int
	Offset    int
}

// Repository persists promos and their code pools.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, promo *Promo) error
	Update(ctx context.Context, db *gorm.DB, promo *Promo) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Promo, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Promo, int64, error)
	CountUnusedCodes(ctx context.Context, db *gorm.DB, promoID snowflake.ID) (int64, error)
	CountUnusedCodesByPromo(ctx context.Context, db *gorm.DB, promoIDs []snowflake.ID) (map[snowflake.ID]int64, error)
}
