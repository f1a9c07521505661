package service

import (
	"context"
	"errors"
	"strings"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/engagement/domain"
	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCommentLength = 1000

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clk   clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("engagement.service"),
		genID: p.GenID,
		clk:   p.Clock,
	}
}

func (s *Service) Like(ctx context.Context, userID snowflake.ID, promoID string) error {
	id, err := s.promoExists(ctx, promoID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.PromoLike
		err := tx.First(&existing, "promo_id = ? AND user_id = ?", id, userID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		like := &domain.PromoLike{
			ID:        s.genID.Generate(),
			PromoID:   id,
			UserID:    userID,
			CreatedAt: s.clk.Now(),
		}
		if err := tx.Create(like).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE promos SET like_count = like_count + 1 WHERE id = ?`,
			id,
		).Error
	})
}

func (s *Service) Unlike(ctx context.Context, userID snowflake.ID, promoID string) error {
	id, err := s.promoExists(ctx, promoID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.PromoLike{}, "promo_id = ? AND user_id = ?", id, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return tx.Exec(
			`UPDATE promos SET like_count = like_count - 1 WHERE id = ? AND like_count > 0`,
			id,
		).Error
	})
}

func (s *Service) CreateComment(ctx context.Context, userID snowflake.ID, promoID, text string) (*domain.CommentResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxCommentLength {
		return nil, domain.ErrInvalidText
	}

	id, err := s.promoExists(ctx, promoID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	comment := &domain.PromoComment{
		ID:        s.genID.Generate(),
		PromoID:   id,
		AuthorID:  userID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE promos SET comment_count = comment_count + 1 WHERE id = ?`,
			id,
		).Error
	})
	if err != nil {
		return nil, err
	}

	return s.render(ctx, comment)
}

func (s *Service) ListComments(ctx context.Context, promoID string, req domain.ListCommentsRequest) (*domain.ListCommentsResponse, error) {
	id, err := s.promoExists(ctx, promoID)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&domain.PromoComment{}).
		Where("promo_id = ?", id).
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

	var comments []*domain.PromoComment
	if err := s.db.WithContext(ctx).
		Where("promo_id = ?", id).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error; err != nil {
		return nil, err
	}

	resp := &domain.ListCommentsResponse{Total: total, Items: make([]domain.CommentResponse, 0, len(comments))}
	for _, comment := range comments {
		rendered, err := s.render(ctx, comment)
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, *rendered)
	}
	return resp, nil
}

func (s *Service) GetComment(ctx context.Context, promoID, commentID string) (*domain.CommentResponse, error) {
	comment, err := s.findComment(ctx, promoID, commentID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, comment)
}

func (s *Service) UpdateComment(ctx context.Context, userID snowflake.ID, promoID, commentID, text string) (*domain.CommentResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxCommentLength {
		return nil, domain.ErrInvalidText
	}

	comment, err := s.findComment(ctx, promoID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, domain.ErrForbidden
	}

	comment.Text = text
	comment.UpdatedAt = s.clk.Now()
	if err := s.db.WithContext(ctx).Save(comment).Error; err != nil {
		return nil, err
	}
	return s.render(ctx, comment)
}

func (s *Service) DeleteComment(ctx context.Context, userID snowflake.ID, promoID, commentID string) error {
	comment, err := s.findComment(ctx, promoID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID {
		return domain.ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.PromoComment{}, "id = ?", comment.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return tx.Exec(
			`UPDATE promos SET comment_count = comment_count - 1 WHERE id = ? AND comment_count > 0`,
			comment.PromoID,
		).Error
	})
}

// promoExists resolves and checks the promo id without loading relations.
func (s *Service) promoExists(ctx context.Context, promoID string) (snowflake.ID, error) {
	id, err := promodomain.ParseID(promoID)
	if err != nil {
		return 0, promodomain.ErrNotFound
	}
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&promodomain.Promo{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, promodomain.ErrNotFound
	}
	return id, nil
}

func (s *Service) findComment(ctx context.Context, promoID, commentID string) (*domain.PromoComment, error) {
	pid, err := promodomain.ParseID(promoID)
	if err != nil {
		return nil, promodomain.ErrNotFound
	}
	cid, err := promodomain.ParseID(commentID)
	if err != nil {
		return nil, domain.ErrCommentNotFound
	}

	var comment domain.PromoComment
	err = s.db.WithContext(ctx).First(&comment, "id = ? AND promo_id = ?", cid, pid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

func (s *Service) render(ctx context.Context, comment *domain.PromoComment) (*domain.CommentResponse, error) {
	var author struct {
		Name      string
		Surname   string
		AvatarURL *string
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT name, surname, avatar_url FROM users WHERE id = ?`,
		comment.AuthorID,
	).Scan(&author).Error
	if err != nil {
		return nil, err
	}

	resp := &domain.CommentResponse{
		ID:   comment.ID.String(),
		Text: comment.Text,
		Author: domain.CommentAuthor{
			Name:    author.Name,
			Surname: author.Surname,
		},
		CreatedAt: comment.CreatedAt,
	}
	if author.AvatarURL != nil {
		resp.Author.AvatarURL = *author.AvatarURL
	}
	return resp, nil
}
