package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes(engine *gin.Engine) {
	engine.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	user := engine.Group("/api/user")
	{
		user.POST("/auth/sign-up", s.SignUpUser)
		user.POST("/auth/sign-in", s.SignInUser)

		authed := user.Group("", s.UserRequired())
		authed.GET("/profile", s.GetProfile)
		authed.PATCH("/profile", s.UpdateProfile)

		authed.GET("/feed", s.Feed)
		authed.GET("/promo/history", s.ActivationHistory)
		authed.GET("/promo/:id", s.FeedItem)
		authed.POST("/promo/:id/activate", s.ActivatePromo)

		authed.POST("/promo/:id/like", s.LikePromo)
		authed.DELETE("/promo/:id/like", s.UnlikePromo)
		authed.POST("/promo/:id/comments", s.CreateComment)
		authed.GET("/promo/:id/comments", s.ListComments)
		authed.GET("/promo/:id/comments/:comment_id", s.GetComment)
		authed.PUT("/promo/:id/comments/:comment_id", s.UpdateComment)
		authed.DELETE("/promo/:id/comments/:comment_id", s.DeleteComment)
	}

	business := engine.Group("/api/business")
	{
		business.POST("/auth/sign-up", s.SignUpCompany)
		business.POST("/auth/sign-in", s.SignInCompany)

		authed := business.Group("", s.CompanyRequired())
		authed.POST("/promo", s.CreatePromo)
		authed.GET("/promo", s.ListPromos)
		authed.GET("/promo/:id", s.GetPromo)
		authed.PATCH("/promo/:id", s.UpdatePromo)
		authed.GET("/promo/:id/stat", s.PromoStat)
	}
}
