package app

import (
	"exam_prep_backend/docs"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/middleware"
	"exam_prep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.POST("/user/upgrade", c.auth.Upgrade)

		// 试卷
		authGroup.POST("/papers", c.paper.Create)
		authGroup.GET("/papers", c.paper.List)
		authGroup.GET("/papers/:id", c.paper.Get)
		authGroup.DELETE("/papers/:id", c.paper.Delete)
		authGroup.POST("/papers/:id/attempts", c.attempt.Start)

		// 答题
		authGroup.GET("/attempts", c.attempt.List)
		authGroup.GET("/attempts/:id", c.attempt.Get)
		authGroup.POST("/attempts/:id/answers", c.attempt.SaveAnswer)
		authGroup.POST("/attempts/:id/submit", c.attempt.Submit)
		authGroup.GET("/attempts/:id/review", c.attempt.Review)
		authGroup.POST("/exports/attempts", c.attempt.ExportHistory)

		// 看板
		authGroup.GET("/dashboard", c.dashboard.GetSummary)
	}
}
