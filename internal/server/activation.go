package server

import (
	"net/http"

	activationdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/activation/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ActivatePromo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	redeemer := activationdomain.Redeemer{
		ID:      user.ID,
		Email:   user.Email,
		Profile: user.Profile(),
	}
	resp, err := s.activationSvc.Activate(c.Request.Context(), redeemer, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := c.Param("id")
		_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "promo.activate", "promo", &targetID, nil)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ActivationHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.activationSvc.History(c.Request.Context(), user.ID, activationdomain.HistoryRequest{
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
