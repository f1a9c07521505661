package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/targeting"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPromoCount   = 100000000
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clk   clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("promo.service"),
		genID: p.GenID,
		clk:   p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, companyID snowflake.ID, req domain.CreateRequest) (*domain.Response, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.ErrInvalidDescription
	}

	mode := domain.PromoMode(strings.ToUpper(strings.TrimSpace(req.Mode)))
	if err := validateInventory(mode, req); err != nil {
		return nil, err
	}

	activeFrom, err := parseDate(req.ActiveFrom)
	if err != nil {
		return nil, err
	}
	activeUntil, err := parseDate(req.ActiveUntil)
	if err != nil {
		return nil, err
	}

	target, err := encodeTarget(req.Target)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	promo := &domain.Promo{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		Description: description,
		ImageURL:    req.ImageURL,
		Mode:        mode,
		Target:      target,
		ActiveFrom:  activeFrom,
		ActiveUntil: activeUntil,
		MaxCount:    req.MaxCount,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if mode == domain.PromoModeCommon {
		code := strings.TrimSpace(*req.PromoCommon)
		promo.CommonCode = &code
	} else {
		for _, code := range req.PromoUnique {
			promo.UniqueCodes = append(promo.UniqueCodes, domain.PromoCode{
				ID:        s.genID.Generate(),
				Code:      strings.TrimSpace(code),
				CreatedAt: now,
			})
		}
	}

	if err := s.repo.Insert(ctx, s.db, promo); err != nil {
		return nil, err
	}

	s.log.Info("promo created",
		zap.String("promo_id", promo.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.String("mode", string(mode)),
	)
	return s.toResponse(promo), nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID, req domain.ListRequest) (*domain.ListResponse, error) {
	sortBy := strings.TrimSpace(req.SortBy)
	switch sortBy {
	case "", "active_from", "active_until":
	default:
		return nil, domain.ErrInvalidSortBy
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	promos, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		CompanyID: companyID,
		SortBy:    sortBy,
		Limit:     limit,
		Offset:    req.Offset,
	})
	if err != nil {
		return nil, err
	}

	resp := &domain.ListResponse{Total: total, Promos: make([]domain.Response, 0, len(promos))}
	for _, promo := range promos {
		resp.Promos = append(resp.Promos, *s.toResponse(promo))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, companyID snowflake.ID, id string) (*domain.Response, error) {
	promo, err := s.ownedPromo(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(promo), nil
}

func (s *Service) Update(ctx context.Context, companyID snowflake.ID, id string, req domain.UpdateRequest) (*domain.Response, error) {
	promo, err := s.ownedPromo(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, domain.ErrInvalidDescription
		}
		promo.Description = description
	}
	if req.ImageURL != nil {
		promo.ImageURL = req.ImageURL
	}
	if req.Target != nil {
		target, err := encodeTarget(req.Target)
		if err != nil {
			return nil, err
		}
		promo.Target = target
	}
	if req.ActiveFrom != nil {
		activeFrom, err := parseDate(req.ActiveFrom)
		if err != nil {
			return nil, err
		}
		promo.ActiveFrom = activeFrom
	}
	if req.ActiveUntil != nil {
		activeUntil, err := parseDate(req.ActiveUntil)
		if err != nil {
			return nil, err
		}
		promo.ActiveUntil = activeUntil
	}
	if req.MaxCount != nil {
		// The cap can only be raised for COMMON promos, never below the
		// redemptions already handed out.
		if promo.Mode != domain.PromoModeCommon {
			return nil, domain.ErrInvalidMaxCount
		}
		if *req.MaxCount < promo.UsedCount || *req.MaxCount > maxPromoCount {
			return nil, domain.ErrInvalidMaxCount
		}
		promo.MaxCount = *req.MaxCount
	}
	if req.Active != nil {
		promo.Active = *req.Active
	}

	promo.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, s.db, promo); err != nil {
		return nil, err
	}
	return s.toResponse(promo), nil
}

func (s *Service) Stat(ctx context.Context, companyID snowflake.ID, id string) (*domain.StatResponse, error) {
	promo, err := s.ownedPromo(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Table("promo_activations").
		Where("promo_id = ?", promo.ID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []domain.CountryStat
	if err := s.db.WithContext(ctx).Raw(
		`SELECT LOWER(COALESCE(u.country, '')) AS country, COUNT(1) AS activation_count
		 FROM promo_activations pa
		 JOIN users u ON u.id = pa.user_id
		 WHERE pa.promo_id = ?
		 GROUP BY LOWER(COALESCE(u.country, ''))
		 ORDER BY country ASC`,
		promo.ID,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}

	return &domain.StatResponse{
		ActivationsCount: int(total),
		Countries:        rows,
	}, nil
}

func (s *Service) ownedPromo(ctx context.Context, companyID snowflake.ID, id string) (*domain.Promo, error) {
	promoID, err := domain.ParseID(id)
	if err != nil {
		return nil, err
	}
	promo, err := s.repo.FindByID(ctx, s.db, promoID)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, domain.ErrNotFound
	}
	if promo.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return promo, nil
}

func (s *Service) toResponse(promo *domain.Promo) *domain.Response {
	return &domain.Response{
		ID:           promo.ID.String(),
		CompanyID:    promo.CompanyID.String(),
		Description:  promo.Description,
		ImageURL:     promo.ImageURL,
		Target:       promo.TargetSpec(),
		ActiveFrom:   formatDate(promo.ActiveFrom),
		ActiveUntil:  formatDate(promo.ActiveUntil),
		Mode:         string(promo.Mode),
		MaxCount:     promo.MaxCount,
		UsedCount:    promo.UsedCount,
		Active:       promo.Active,
		LikeCount:    promo.LikeCount,
		CommentCount: promo.CommentCount,
		CreatedAt:    promo.CreatedAt,
	}
}

func validateInventory(mode domain.PromoMode, req domain.CreateRequest) error {
	switch mode {
	case domain.PromoModeCommon:
		if req.PromoCommon == nil || strings.TrimSpace(*req.PromoCommon) == "" {
			return domain.ErrInvalidCommonCode
		}
		if len(req.PromoUnique) > 0 {
			return domain.ErrInvalidUniqueCodes
		}
		if req.MaxCount < 1 || req.MaxCount > maxPromoCount {
			return domain.ErrInvalidMaxCount
		}
	case domain.PromoModeUnique:
		if len(req.PromoUnique) == 0 {
			return domain.ErrInvalidUniqueCodes
		}
		for _, code := range req.PromoUnique {
			if strings.TrimSpace(code) == "" {
				return domain.ErrInvalidUniqueCodes
			}
		}
		if req.PromoCommon != nil {
			return domain.ErrInvalidCommonCode
		}
		// Each unique code is claimable exactly once.
		if req.MaxCount != 1 {
			return domain.ErrInvalidMaxCount
		}
	default:
		return domain.ErrInvalidMode
	}
	return nil
}

func encodeTarget(spec *targeting.Spec) (datatypes.JSON, error) {
	if spec == nil {
		return datatypes.JSON([]byte("{}")), nil
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, domain.ErrInvalidDate
	}
	return &parsed, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format("2006-01-02")
	return &value
}
