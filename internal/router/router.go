package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/handler"
	"github.com/grahaedukasi/graha-cbt/internal/metrics"
	"github.com/grahaedukasi/graha-cbt/internal/middleware"
	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Question      *handler.QuestionHandler
	Media         *handler.MediaHandler
	WS            *handler.WSHandler
	Setting       *handler.SettingHandler
	Subject       *handler.SubjectHandler
	System        *handler.SystemHandler
	Dashboard     *handler.DashboardHandler
}

// Paths whose bodies are binary, streamed or scraped and must not be
// brotli-wrapped.
var uncompressedPaths = []string{
	"/metrics",
	"/api/v1/admin/students/export",
	"/api/v1/admin/system/metrics",
	"/api/v1/admin/monitor",
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	studentService *service.StudentService,
	loginLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.MetricsMiddleware())
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		SkipPaths: uncompressedPaths,
	}))

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(middleware.CacheControl(5))
	{
		publicAPI.GET("/schedule", handlers.System.PublicSchedule)
		publicAPI.GET("/config", handlers.Setting.GetPublicConfig)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", loginLimiter.Middleware(), handlers.Auth.StudentLogin)
		auth.POST("/admin/login", loginLimiter.Middleware(), handlers.Auth.AdminLogin)

		auth.GET("/student/me",
			middleware.RequireStudentJWT(authService),
			middleware.RequireExistingStudent(studentService),
			handlers.Auth.GetStudentProfile,
		)
	}

	// ─── 2. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.RequireExistingStudent(studentService),
		middleware.NoStore(),
	)
	{
		exam := studentAPI.Group("/exam")
		{
			exam.POST("/start", handlers.StudentPortal.StartExam)
			exam.GET("/state", handlers.StudentPortal.GetState)
			exam.PUT("/answers", handlers.StudentPortal.SaveAnswer)
			exam.POST("/navigate", handlers.StudentPortal.Navigate)
			exam.POST("/finish", handlers.StudentPortal.RequestFinish)
			exam.POST("/finish/cancel", handlers.StudentPortal.CancelFinish)
			exam.POST("/finish/confirm", handlers.StudentPortal.ConfirmFinish)
			exam.POST("/warning/dismiss", handlers.StudentPortal.DismissWarning)
			exam.POST("/leave", handlers.StudentPortal.LeaveExam)
		}
		studentAPI.GET("/result", handlers.StudentPortal.GetResult)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exam/stream", handlers.WS.ExamWebSocketStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService), middleware.NoStore())
	{
		adminAPI.POST("/media/image", handlers.Media.UploadImage)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)
		adminAPI.GET("/monitor", handlers.Dashboard.MonitorSSE)

		questions := adminAPI.Group("/questions")
		{
			questions.GET("", handlers.Question.ListQuestions)
			questions.POST("", handlers.Question.CreateQuestion)
			questions.POST("/import", handlers.Question.ImportQuestions)
			questions.GET("/:id", handlers.Question.GetQuestion)
			questions.PUT("/:id", handlers.Question.UpdateQuestion)
			questions.DELETE("/:id", handlers.Question.DeleteQuestion)
		}

		students := adminAPI.Group("/students")
		{
			students.GET("", handlers.StudentMgmt.ListStudents)
			students.POST("", handlers.StudentMgmt.CreateStudent)
			students.POST("/import", handlers.StudentMgmt.ImportStudents)
			students.GET("/export", handlers.StudentMgmt.ExportStudents)
			students.GET("/:id", handlers.StudentMgmt.GetStudent)
			students.POST("/:id/reset", handlers.StudentMgmt.ResetStudent)
			students.DELETE("/:id", handlers.StudentMgmt.DeleteStudent)
		}

		adminAPI.GET("/subjects", handlers.Subject.GetAll)
		adminAPI.PUT("/subjects", handlers.Subject.Replace)

		adminAPI.GET("/exam-config", handlers.Setting.GetExamConfig)
		adminAPI.PUT("/exam-config", handlers.Setting.UpdateExamConfig)
	}

	return router
}
