package server

import (
	"net/http"
	"strings"

	accountdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/account/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) SignUpUser(c *gin.Context) {
	var req accountdomain.SignUpUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.SignUpUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) SignInUser(c *gin.Context) {
	if !s.signinLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req accountdomain.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.SignInUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) SignUpCompany(c *gin.Context) {
	var req accountdomain.SignUpCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.SignUpCompany(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		name := strings.TrimSpace(req.Name)
		_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "company.signup", "company", nil, map[string]any{
			"name": name,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) SignInCompany(c *gin.Context) {
	if !s.signinLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req accountdomain.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.SignInCompany(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, s.accountSvc.Profile(c.Request.Context(), user))
}

func (s *Server) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req accountdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.UpdateProfile(c.Request.Context(), user, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
