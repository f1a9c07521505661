package service

import (
	"context"
	"strings"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/targeting"
	"github.com/bwmarrin/snowflake"
)

// feedRow joins a candidate promo with its issuing company name, the
// caller-specific activated/liked flags and the precomputed availability.
type feedRow struct {
	promo       *domain.Promo
	companyName string
	activated   bool
	liked       bool
	available   bool
}

func (s *Service) Feed(ctx context.Context, userID snowflake.ID, req domain.FeedRequest) (*domain.FeedResponse, error) {
	rows, err := s.loadFeedRows(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(req.Category)

	matched := make([]feedRow, 0, len(rows))
	for _, row := range rows {
		if !targetingMatchesFeed(row.promo.TargetSpec(), req, category) {
			continue
		}
		if req.Active != nil && row.available != *req.Active {
			continue
		}
		matched = append(matched, row)
	}

	total := int64(len(matched))
	matched = paginate(matched, req.Limit, req.Offset)

	resp := &domain.FeedResponse{Total: total, Promos: make([]domain.FeedItem, 0, len(matched))}
	for _, row := range matched {
		resp.Promos = append(resp.Promos, toFeedItem(row))
	}
	return resp, nil
}

func (s *Service) FeedItemByID(ctx context.Context, userID snowflake.ID, id string) (*domain.FeedItem, error) {
	promoID, err := domain.ParseID(id)
	if err != nil {
		return nil, err
	}
	rows, err := s.loadFeedRows(ctx, userID, &promoID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	item := toFeedItem(rows[0])
	return &item, nil
}

func (s *Service) loadFeedRows(ctx context.Context, userID snowflake.ID, promoID *snowflake.ID) ([]feedRow, error) {
	query := s.db.WithContext(ctx).
		Model(&domain.Promo{}).
		Order("promos.created_at DESC")
	if promoID != nil {
		query = query.Where("promos.id = ?", *promoID)
	}

	var promos []*domain.Promo
	if err := query.Find(&promos).Error; err != nil {
		return nil, err
	}
	if len(promos) == 0 {
		return nil, nil
	}

	ids := make([]snowflake.ID, 0, len(promos))
	companyIDs := make([]snowflake.ID, 0, len(promos))
	uniqueIDs := make([]snowflake.ID, 0, len(promos))
	for _, promo := range promos {
		ids = append(ids, promo.ID)
		companyIDs = append(companyIDs, promo.CompanyID)
		if promo.Mode == domain.PromoModeUnique {
			uniqueIDs = append(uniqueIDs, promo.ID)
		}
	}

	companyNames, err := s.companyNames(ctx, companyIDs)
	if err != nil {
		return nil, err
	}
	activated, err := s.flaggedPromoIDs(ctx, "promo_activations", userID, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.flaggedPromoIDs(ctx, "promo_likes", userID, ids)
	if err != nil {
		return nil, err
	}
	unusedCodes, err := s.repo.CountUnusedCodesByPromo(ctx, s.db, uniqueIDs)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	rows := make([]feedRow, 0, len(promos))
	for _, promo := range promos {
		rows = append(rows, feedRow{
			promo:       promo,
			companyName: companyNames[promo.CompanyID],
			activated:   activated[promo.ID],
			liked:       liked[promo.ID],
			available:   isAvailable(promo, unusedCodes, now),
		})
	}
	return rows, nil
}

func (s *Service) companyNames(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]string, error) {
	var rows []struct {
		ID   snowflake.ID
		Name string
	}
	if err := s.db.WithContext(ctx).
		Table("companies").
		Select("id, name").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

func (s *Service) flaggedPromoIDs(ctx context.Context, table string, userID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]bool, error) {
	var promoIDs []snowflake.ID
	if err := s.db.WithContext(ctx).
		Table(table).
		Select("promo_id").
		Where("user_id = ? AND promo_id IN ?", userID, ids).
		Scan(&promoIDs).Error; err != nil {
		return nil, err
	}
	flagged := make(map[snowflake.ID]bool, len(promoIDs))
	for _, id := range promoIDs {
		flagged[id] = true
	}
	return flagged, nil
}

// isAvailable mirrors the activation engine's availability pre-check: the
// admin flag, the date window and remaining capacity. Unused-code counts
// come precomputed from a single grouped query.
func isAvailable(promo *domain.Promo, unusedCodes map[snowflake.ID]int64, now time.Time) bool {
	if !promo.Active || !promo.IsWithinWindow(now) {
		return false
	}
	if promo.Mode == domain.PromoModeCommon {
		return promo.UsedCount < promo.MaxCount
	}
	return unusedCodes[promo.ID] > 0
}

func targetingMatchesFeed(spec targeting.Spec, req domain.FeedRequest, category string) bool {
	if !targeting.Matches(spec, req.Profile) {
		return false
	}
	if category != "" && !spec.MatchesCategory(category) {
		return false
	}
	return true
}

func toFeedItem(row feedRow) domain.FeedItem {
	promo := row.promo
	return domain.FeedItem{
		ID:           promo.ID.String(),
		CompanyID:    promo.CompanyID.String(),
		CompanyName:  row.companyName,
		Description:  promo.Description,
		ImageURL:     promo.ImageURL,
		Active:       row.available,
		LikeCount:    promo.LikeCount,
		CommentCount: promo.CommentCount,
		Activated:    row.activated,
		Liked:        row.liked,
	}
}

func paginate(rows []feedRow, limit, offset int) []feedRow {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
