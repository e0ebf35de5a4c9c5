package app

import (
	"course_market_backend/docs"
	"course_market_backend/internal/config"
	"course_market_backend/internal/middleware"
	"course_market_backend/internal/model"
	"course_market_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 课程目录对游客开放
		public.GET("/catalog/courses", c.catalog.List)
		public.GET("/catalog/courses/:id", c.catalog.Detail)
	}

	// 2. 需要登录的学生/通用路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)

		authGroup.POST("/courses/:id/enroll", c.enrollment.Enroll)
		authGroup.POST("/wallet/topup", c.enrollment.TopUp)
		authGroup.GET("/my/courses", c.enrollment.MyCourses)
		authGroup.GET("/my/orders", c.enrollment.MyOrders)
		authGroup.GET("/lessons/:id/content", c.enrollment.LessonContent)

		// 3. 讲师路由
		instructor := authGroup.Group("/instructor")
		instructor.Use(middleware.RoleMiddleware(model.Instructor))
		{
			instructor.POST("/courses", c.course.Create)
			instructor.GET("/courses", c.course.ListMine)
			instructor.PUT("/courses/:id", c.course.Update)
			instructor.GET("/courses/:id/curriculum", c.course.Curriculum)

			// 草稿工作流
			draft := instructor.Group("/courses/:id/draft")
			{
				draft.POST("", c.draft.GetOrCreate)
				draft.GET("", c.draft.Get)
				draft.GET("/status", c.draft.Status)
				draft.DELETE("", c.draft.Cancel)
				draft.PUT("/metadata", c.draft.UpdateMetadata)
				draft.POST("/submit", c.draft.Submit)

				draft.POST("/sections", c.draft.AddSection)
				draft.PUT("/sections/:sectionId", c.draft.UpdateSection)
				draft.DELETE("/sections/:sectionId", c.draft.DeleteSection)
				draft.POST("/sections/:sectionId/lessons", c.draft.AddLesson)

				draft.PUT("/lessons/:lessonId", c.draft.UpdateLesson)
				draft.DELETE("/lessons/:lessonId", c.draft.DeleteLesson)
				draft.PUT("/lessons/:lessonId/video", c.draft.AttachVideo)
				draft.PUT("/lessons/:lessonId/material", c.draft.AttachMaterial)
				draft.PUT("/lessons/:lessonId/quiz", c.draft.UpsertQuiz)
				draft.DELETE("/lessons/:lessonId/content", c.draft.DetachContent)
			}

			// 资产上传
			uploads := instructor.Group("/uploads")
			{
				uploads.POST("/video", c.upload.CreateVideoUpload)
				uploads.POST("/video/chunk", c.upload.UploadVideoChunk)
				uploads.GET("/video/progress/:identifier", c.upload.GetUploadProgress)
				uploads.POST("/thumbnail", c.upload.UploadThumbnail)
			}
		}

		// 4. 管理员路由
		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.GET("/reviews", c.admin.ListPending)
			admin.POST("/reviews/:courseId/approve", c.admin.Approve)
			admin.POST("/reviews/:courseId/reject", c.admin.Reject)
			admin.GET("/orphans", c.admin.OrphanStats)
			admin.POST("/orphans/retry", c.admin.RetryOrphans)
		}
	}
}
