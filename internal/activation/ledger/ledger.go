package ledger

import (
	"context"
	"errors"
	"time"

	activationdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/activation/domain"
	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the atomic issuance primitive over a promo's code inventory.
// Claim must run inside a transaction; the promo row is locked FOR UPDATE
// on postgres, and every mutation is a conditional update checked through
// RowsAffected, so a claim can never exceed the true remaining capacity
// even where row locks are unavailable.
type Ledger struct{}

func New() *Ledger { return &Ledger{} }

// Claim hands out exactly one code unit from the promo's inventory, or
// reports exhaustion. State read before the transaction is never trusted:
// capacity is re-validated here, under the lock.
func (l *Ledger) Claim(ctx context.Context, tx *gorm.DB, promoID snowflake.ID, now time.Time) (string, error) {
	promo, err := l.lockPromo(ctx, tx, promoID)
	if err != nil {
		return "", err
	}
	if promo == nil {
		// The promo was deleted between the engine's lookup and this
		// locked re-read.
		return "", activationdomain.ErrActivationFailed
	}

	switch promo.Mode {
	case promodomain.PromoModeCommon:
		return l.claimCommon(ctx, tx, promo, now)
	case promodomain.PromoModeUnique:
		return l.claimUnique(ctx, tx, promo.ID, now)
	default:
		return "", activationdomain.ErrActivationFailed
	}
}

func (l *Ledger) lockPromo(ctx context.Context, tx *gorm.DB, promoID snowflake.ID) (*promodomain.Promo, error) {
	query := tx.WithContext(ctx)
	if db.IsPostgres(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var promo promodomain.Promo
	if err := query.First(&promo, "id = ?", promoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

func (l *Ledger) claimCommon(ctx context.Context, tx *gorm.DB, promo *promodomain.Promo, now time.Time) (string, error) {
	if promo.CommonCode == nil {
		return "", activationdomain.ErrActivationFailed
	}

	result := tx.WithContext(ctx).Exec(
		`UPDATE promos
		 SET used_count = used_count + 1, updated_at = ?
		 WHERE id = ? AND used_count < max_count`,
		now,
		promo.ID,
	)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", activationdomain.ErrPromoUnavailable
	}
	return *promo.CommonCode, nil
}

func (l *Ledger) claimUnique(ctx context.Context, tx *gorm.DB, promoID snowflake.ID, now time.Time) (string, error) {
	for {
		candidate, err := l.nextUnusedCode(ctx, tx, promoID)
		if err != nil {
			return "", err
		}
		if candidate == nil {
			return "", activationdomain.ErrPromoUnavailable
		}

		// The is_used guard makes the flip a compare-and-swap: if another
		// transaction claimed this row first, pick the next one.
		result := tx.WithContext(ctx).Exec(
			`UPDATE promo_codes
			 SET is_used = ?, used_at = ?
			 WHERE id = ? AND is_used = ?`,
			true,
			now,
			candidate.ID,
			false,
		)
		if result.Error != nil {
			return "", result.Error
		}
		if result.RowsAffected > 0 {
			return candidate.Code, nil
		}
	}
}

func (l *Ledger) nextUnusedCode(ctx context.Context, tx *gorm.DB, promoID snowflake.ID) (*promodomain.PromoCode, error) {
	query := tx.WithContext(ctx)
	if db.IsPostgres(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var code promodomain.PromoCode
	err := query.
		Where("promo_id = ? AND is_used = ?", promoID, false).
		Order("id ASC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}
