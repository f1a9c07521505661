package server

import (
	"net/http"

	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreatePromo(c *gin.Context) {
	company, ok := currentCompany(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req promodomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.promoSvc.Create(c.Request.Context(), company.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID
		_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "promo.create", "promo", &targetID, map[string]any{
			"mode":      resp.Mode,
			"max_count": resp.MaxCount,
		})
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListPromos(c *gin.Context) {
	company, ok := currentCompany(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		Limit  int    `form:"limit"`
		Offset int    `form:"offset"`
		SortBy string `form:"sort_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.promoSvc.List(c.Request.Context(), company.ID, promodomain.ListRequest{
		Limit:  query.Limit,
		Offset: query.Offset,
		SortBy: query.SortBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetPromo(c *gin.Context) {
	company, ok := currentCompany(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.promoSvc.GetByID(c.Request.Context(), company.ID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdatePromo(c *gin.Context) {
	company, ok := currentCompany(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req promodomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.promoSvc.Update(c.Request.Context(), company.ID, c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID
		_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "promo.update", "promo", &targetID, map[string]any{
			"active": resp.Active,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) PromoStat(c *gin.Context) {
	company, ok := currentCompany(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.promoSvc.Stat(c.Request.Context(), company.ID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
