package app

import (
	"eduquiz_backend/docs"
	"eduquiz_backend/internal/config"
	"eduquiz_backend/internal/middleware"
	"eduquiz_backend/internal/model"
	"eduquiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.auth.UpdateProfile)

	// 测验作答
	rg.GET("/quizzes", c.quiz.ListQuizzes)
	rg.POST("/quizzes/:id/attempts", c.quiz.StartAttempt)
	rg.POST("/quizzes/:id/submit", c.quiz.SubmitQuiz)
	rg.GET("/quizzes/:id/status", c.progress.GetStatus)

	// 辅导阶段
	assistance := rg.Group("/quizzes/:id/assistance")
	{
		assistance.GET("/level1", c.assistance.GetLevel1)
		assistance.POST("/level1/submit", c.assistance.SubmitLevel1)
		assistance.GET("/level2", c.assistance.GetLevel2)
		assistance.POST("/level2/submit", c.assistance.SubmitLevel2)
		assistance.GET("/level3", c.assistance.GetLevel3)
		assistance.POST("/level3/acknowledge", c.assistance.AcknowledgeLevel3)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		// 测验管理
		teacher.POST("/quizzes", c.quiz.CreateQuiz)
		teacher.PUT("/quizzes/:id", c.quiz.UpdateQuiz)
		teacher.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)
		teacher.GET("/quizzes/:id/attempts", c.teacher.ListQuizAttempts)

		// 辅导内容管理
		teacher.POST("/assistance/level1", c.assistance.CreateLevel1)
		teacher.POST("/assistance/level2", c.assistance.CreateLevel2)
		teacher.POST("/assistance/level3", c.assistance.CreateLevel3)
		teacher.POST("/quizzes/:id/assistance", c.assistance.AttachToQuiz)

		// 二级辅导批改
		teacher.GET("/assistance/level2/pending", c.assistance.ListPendingLevel2)
		teacher.GET("/assistance/level2/submissions/:submissionId", c.assistance.GetLevel2Submission)
		teacher.POST("/assistance/level2/submissions/:submissionId/grade", c.assistance.GradeLevel2)

		// 学生进度查看与人工干预
		teacher.GET("/quizzes/:id/students/:userId/status", c.progress.GetStudentStatus)
		teacher.PUT("/quizzes/:id/students/:userId/override", c.teacher.SetOverride)
		teacher.PUT("/quizzes/:id/students/:userId/final-status", c.teacher.ToggleFinalStatus)
		teacher.PUT("/quizzes/:id/students/:userId/level3-access", c.teacher.GrantLevel3Access)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.DELETE("/quizzes/:id/students/:userId/progress", c.teacher.ResetProgress)
	}
}
