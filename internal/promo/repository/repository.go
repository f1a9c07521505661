package repository

import (
	"context"
	"errors"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type promoRepository struct{}

// Provide constructs the gorm-backed promo repository.
func Provide() domain.Repository {
	return &promoRepository{}
}

func (promoRepository) Insert(ctx context.Context, db *gorm.DB, promo *domain.Promo) error {
	return db.WithContext(ctx).Create(promo).Error
}

func (promoRepository) Update(ctx context.Context, db *gorm.DB, promo *domain.Promo) error {
	return db.WithContext(ctx).Save(promo).Error
}

func (promoRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Promo, error) {
	var promo domain.Promo
	err := db.WithContext(ctx).First(&promo, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

func (promoRepository) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Promo, int64, error) {
	query := db.WithContext(ctx).Model(&domain.Promo{}).Where("company_id = ?", filter.CompanyID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "active_from":
		query = query.Order("active_from DESC")
	case "active_until":
		query = query.Order("active_until DESC")
	default:
		query = query.Order("created_at DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var promos []*domain.Promo
	if err := query.Find(&promos).Error; err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

func (promoRepository) CountUnusedCodesByPromo(ctx context.Context, db *gorm.DB, promoIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	counts := make(map[snowflake.ID]int64, len(promoIDs))
	if len(promoIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PromoID snowflake.ID
		Count   int64
	}
	if err := db.WithContext(ctx).
		Model(&domain.PromoCode{}).
		Select("promo_id, COUNT(*) AS count").
		Where("promo_id IN ? AND is_used = ?", promoIDs, false).
		Group("promo_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PromoID] = row.Count
	}
	return counts, nil
}

func (promoRepository) CountUnusedCodes(ctx context.Context, db *gorm.DB, promoID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.PromoCode{}).
		Where("promo_id = ? AND is_used = ?", promoID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
