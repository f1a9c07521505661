package server

import (
	"net/http"

	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) Feed(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		Limit    int    `form:"limit"`
		Offset   int    `form:"offset"`
		Category string `form:"category"`
		Active   *bool  `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.promoSvc.Feed(c.Request.Context(), user.ID, promodomain.FeedRequest{
		Profile:  user.Profile(),
		Category: query.Category,
		Active:   query.Active,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) FeedItem(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.promoSvc.FeedItemByID(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
