package server

import (
	"strings"

	accountdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/account/domain"
	auditdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/audit/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/auditcontext"
	"github.com/gin-gonic/gin"
)

const (
	contextUserKey    = "auth_user"
	contextCompanyKey = "auth_company"
)

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// UserRequired resolves the bearer token to a user account and stores it on
// the gin context.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.accountSvc.ResolveUser(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserKey, user)
		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), user.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CompanyRequired resolves the bearer token to a company account and stores
// it on the gin context.
func (s *Server) CompanyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		company, err := s.accountSvc.ResolveCompany(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextCompanyKey, company)
		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeCompany), company.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func currentUser(c *gin.Context) (*accountdomain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*accountdomain.User)
	return user, ok
}

func currentCompany(c *gin.Context) (*accountdomain.Company, bool) {
	value, ok := c.Get(contextCompanyKey)
	if !ok {
		return nil, false
	}
	company, ok := value.(*accountdomain.Company)
	return company, ok
}
