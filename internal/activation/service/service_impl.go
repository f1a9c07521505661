package service

import (
	"context"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/activation/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/activation/ledger"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/antifraud"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/targeting"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VerdictSource resolves anti-fraud verdicts. Satisfied by
// *antifraud.Gateway; tests substitute a scripted fake.
type VerdictSource interface {
	GetVerdict(ctx context.Context, userEmail, promoID string) antifraud.Verdict
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	PromoRepo promodomain.Repository
	Ledger    *ledger.Ledger
	Verdicts  VerdictSource
}

// Service is the promo activation engine. It is stateless: every call runs
// the same linear pipeline of targeting, availability, anti-fraud and the
// transactional claim, with no retries outside the claim's own CAS loop.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clk       clock.Clock
	promoRepo promodomain.Repository
	ledger    *ledger.Ledger
	verdicts  VerdictSource
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("activation.service"),
		genID:     p.GenID,
		clk:       p.Clock,
		promoRepo: p.PromoRepo,
		ledger:    p.Ledger,
		verdicts:  p.Verdicts,
	}
}

func (s *Service) Activate(ctx context.Context, redeemer domain.Redeemer, promoID string) (*domain.ActivateResponse, error) {
	id, err := promodomain.ParseID(promoID)
	if err != nil {
		return nil, promodomain.ErrNotFound
	}

	promo, err := s.promoRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, promodomain.ErrNotFound
	}

	if !targeting.Matches(promo.TargetSpec(), redeemer.Profile) {
		return nil, domain.ErrTargetingMismatch
	}

	now := s.clk.Now()
	if !promo.Active || !promo.IsWithinWindow(now) {
		return nil, domain.ErrPromoInactive
	}
	if err := s.checkCapacity(ctx, promo); err != nil {
		return nil, err
	}

	// The external call runs before any lock is taken so the claim
	// transaction never spans network I/O.
	verdict := s.verdicts.GetVerdict(ctx, redeemer.Email, id.String())
	if !verdict.Ok {
		return nil, domain.ErrAntiFraudBlocked
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var code string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := s.ledger.Claim(ctx, tx, id, now)
		if err != nil {
			return err
		}
		code = claimed

		record := &domain.ActivationRecord{
			ID:          s.genID.Generate(),
			UserID:      redeemer.ID,
			PromoID:     id,
			ActivatedAt: now,
		}
		return tx.Create(record).Error
	})
	if err != nil {
		if err == domain.ErrActivationFailed {
			s.log.Warn("promo vanished during claim",
				zap.String("promo_id", id.String()),
				zap.String("user_id", redeemer.ID.String()),
			)
		}
		return nil, err
	}

	s.log.Info("promo activated",
		zap.String("promo_id", id.String()),
		zap.String("user_id", redeemer.ID.String()),
	)
	return &domain.ActivateResponse{Code: code}, nil
}

// checkCapacity is the cheap availability pre-check. It is advisory only:
// the claim re-validates capacity under the lock, so a stale read here can
// never cause over-issuance, only a skipped anti-fraud round-trip.
func (s *Service) checkCapacity(ctx context.Context, promo *promodomain.Promo) error {
	if promo.Mode == promodomain.PromoModeCommon {
		if promo.UsedCount >= promo.MaxCount {
			return domain.ErrPromoUnavailable
		}
		return nil
	}
	remaining, err := s.promoRepo.CountUnusedCodes(ctx, s.db, promo.ID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return domain.ErrPromoUnavailable
	}
	return nil
}

func (s *Service) History(ctx context.Context, userID snowflake.ID, req domain.HistoryRequest) (*domain.HistoryResponse, error) {
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&domain.ActivationRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []struct {
		PromoID     snowflake.ID
		CompanyID   snowflake.ID
		Description string
		Mode        string
		ActivatedAt time.Time
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT p.id AS promo_id, p.company_id, p.description, p.mode, pa.activated_at
		 FROM promo_activations pa
		 JOIN promos p ON p.id = pa.promo_id
		 WHERE pa.user_id = ?
		 ORDER BY pa.activated_at DESC, pa.id DESC
		 LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}

	resp := &domain.HistoryResponse{Total: total, Items: make([]domain.HistoryItem, 0, len(rows))}
	for _, row := range rows {
		resp.Items = append(resp.Items, domain.HistoryItem{
			PromoID:     row.PromoID.String(),
			CompanyID:   row.CompanyID.String(),
			Description: row.Description,
			Mode:        row.Mode,
			ActivatedAt: row.ActivatedAt,
		})
	}
	return resp, nil
}
