package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/account/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/config"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clk   clock.Clock
	cfg   config.Config
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		clk:   p.Clock,
		cfg:   p.Cfg,
	}
}

func (s *Service) SignUpUser(ctx context.Context, req domain.SignUpUserRequest) (*domain.TokenResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	surname := strings.TrimSpace(req.Surname)
	if name == "" || surname == "" {
		return nil, domain.ErrInvalidName
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		return nil, domain.ErrInvalidAge
	}
	country, err := normalizeCountry(req.Country)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         name,
		Surname:      surname,
		AvatarURL:    req.AvatarURL,
		Age:          req.Age,
		Country:      country,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var token *domain.TokenResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrEmailTaken
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		var err error
		token, err = s.issueSession(tx, domain.ActorTypeUser, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID.String()))
	return token, nil
}

func (s *Service) SignInUser(ctx context.Context, req domain.SignInRequest) (*domain.TokenResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !verifyPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issueSession(s.db.WithContext(ctx), domain.ActorTypeUser, user.ID)
}

func (s *Service) SignUpCompany(ctx context.Context, req domain.SignUpCompanyRequest) (*domain.TokenResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	company := &domain.Company{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    s.clk.Now(),
	}

	var token *domain.TokenResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Company{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrEmailTaken
		}
		if err := tx.Create(company).Error; err != nil {
			return err
		}
		var err error
		token, err = s.issueSession(tx, domain.ActorTypeCompany, company.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("company signed up", zap.String("company_id", company.ID.String()))
	return token, nil
}

func (s *Service) SignInCompany(ctx context.Context, req domain.SignInRequest) (*domain.TokenResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	var company domain.Company
	if err := s.db.WithContext(ctx).First(&company, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !company.Active || !verifyPassword(req.Password, company.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issueSession(s.db.WithContext(ctx), domain.ActorTypeCompany, company.ID)
}

func (s *Service) Profile(ctx context.Context, user *domain.User) *domain.ProfileResponse {
	return &domain.ProfileResponse{
		Email:     user.Email,
		Name:      user.Name,
		Surname:   user.Surname,
		AvatarURL: user.AvatarURL,
		Age:       user.Age,
		Country:   user.Country,
	}
}

func (s *Service) UpdateProfile(ctx context.Context, user *domain.User, req domain.UpdateProfileRequest) (*domain.ProfileResponse, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		user.Name = name
	}
	if req.Surname != nil {
		surname := strings.TrimSpace(*req.Surname)
		if surname == "" {
			return nil, domain.ErrInvalidName
		}
		user.Surname = surname
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return nil, err
		}
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}
	if req.Age != nil {
		if *req.Age < 0 || *req.Age > 150 {
			return nil, domain.ErrInvalidAge
		}
		user.Age = req.Age
	}
	if req.Country != nil {
		country, err := normalizeCountry(req.Country)
		if err != nil {
			return nil, err
		}
		user.Country = country
	}

	user.UpdatedAt = s.clk.Now()
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return s.Profile(ctx, user), nil
}

func (s *Service) ResolveUser(ctx context.Context, token string) (*domain.User, error) {
	session, err := s.activeSession(ctx, token, domain.ActorTypeUser)
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", session.ActorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) ResolveCompany(ctx context.Context, token string) (*domain.Company, error) {
	session, err := s.activeSession(ctx, token, domain.ActorTypeCompany)
	if err != nil {
		return nil, err
	}
	var company domain.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", session.ActorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !company.Active {
		return nil, domain.ErrUnauthorized
	}
	return &company, nil
}

func (s *Service) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.clk.Now()).
		Delete(&domain.Session{})
	return result.RowsAffected, result.Error
}

func (s *Service) issueSession(tx *gorm.DB, actorType domain.ActorType, actorID snowflake.ID) (*domain.TokenResponse, error) {
	now := s.clk.Now()
	session := &domain.Session{
		ID:        s.genID.Generate(),
		Token:     uuid.NewString(),
		ActorType: actorType,
		ActorID:   actorID,
		ExpiresAt: now.Add(s.cfg.Session.TTL),
		CreatedAt: now,
	}
	if err := tx.Create(session).Error; err != nil {
		return nil, err
	}
	return &domain.TokenResponse{Token: session.Token}, nil
}

func (s *Service) activeSession(ctx context.Context, token string, actorType domain.ActorType) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	var session domain.Session
	err := s.db.WithContext(ctx).
		First(&session, "token = ? AND actor_type = ?", token, actorType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !session.ExpiresAt.After(s.clk.Now()) {
		return nil, domain.ErrUnauthorized
	}
	return &session, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func normalizeCountry(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	country := strings.ToLower(strings.TrimSpace(*raw))
	if len(country) != 2 {
		return nil, domain.ErrInvalidCountry
	}
	for _, r := range country {
		if r < 'a' || r > 'z' {
			return nil, domain.ErrInvalidCountry
		}
	}
	return &country, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return domain.ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return domain.ErrWeakPassword
	}
	return nil
}
