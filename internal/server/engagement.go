package server

import (
	"net/http"

	engagementdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/engagement/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) LikePromo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.engagementSvc.Like(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) UnlikePromo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.engagementSvc.Unlike(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) CreateComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.engagementSvc.CreateComment(c.Request.Context(), user.ID, c.Param("id"), req.Text)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListComments(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
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

	resp, err := s.engagementSvc.ListComments(c.Request.Context(), c.Param("id"), engagementdomain.ListCommentsRequest{
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetComment(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.engagementSvc.GetComment(c.Request.Context(), c.Param("id"), c.Param("comment_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.engagementSvc.UpdateComment(c.Request.Context(), user.ID, c.Param("id"), c.Param("comment_id"), req.Text)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.engagementSvc.DeleteComment(c.Request.Context(), user.ID, c.Param("id"), c.Param("comment_id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
