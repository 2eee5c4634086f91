package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sis-admin/api/swagger"
	"github.com/noah-isme/sis-admin/internal/middleware"
	"github.com/noah-isme/sis-admin/pkg/config"
	"github.com/noah-isme/sis-admin/pkg/logger"
	corsmiddleware "github.com/noah-isme/sis-admin/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sis-admin/pkg/middleware/requestid"
)

func (a *app) router() *gin.Engine {
	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	h := a.h
	r.GET("/health", h.metrics.Health)
	r.GET("/metrics", h.metrics.Prometheus)
	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(a.cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)
	// The signed token authorizes the download on its own.
	api.GET("/reports/exports/download/:token", h.reports.Download)

	secured := api.Group("", middleware.JWT(a.auth))
	admin := middleware.RequireManager()

	secured.POST("/auth/logout", h.auth.Logout)
	secured.GET("/auth/me", h.auth.Me)

	students := secured.Group("/students")
	students.GET("", h.students.List)
	students.GET("/:id", h.students.Get)
	students.POST("", admin, h.students.Create)
	students.PUT("/:id", admin, h.students.Update)
	students.DELETE("/:id", admin, h.students.Delete)

	teachers := secured.Group("/teachers")
	teachers.GET("", h.teachers.List)
	teachers.GET("/:id", h.teachers.Get)
	teachers.POST("", admin, h.teachers.Create)
	teachers.PUT("/:id", admin, h.teachers.Update)
	teachers.DELETE("/:id", admin, h.teachers.Delete)

	years := secured.Group("/academic-years")
	years.GET("", h.academicYears.List)
	years.GET("/:id", h.academicYears.Get)
	years.POST("", admin, h.academicYears.Create)
	years.PUT("/:id", admin, h.academicYears.Update)
	years.DELETE("/:id", admin, h.academicYears.Delete)
	years.POST("/:id/activate", admin, h.academicYears.Activate)

	levels := secured.Group("/year-levels")
	levels.GET("", h.yearLevels.List)
	levels.GET("/:id", h.yearLevels.Get)
	levels.POST("", admin, h.yearLevels.Create)
	levels.PUT("/:id", admin, h.yearLevels.Update)
	levels.DELETE("/:id", admin, h.yearLevels.Delete)

	sections := secured.Group("/sections")
	sections.GET("", h.sections.List)
	sections.GET("/:id", h.sections.Get)
	sections.POST("", admin, h.sections.Create)
	sections.PUT("/:id", admin, h.sections.Update)
	sections.DELETE("/:id", admin, h.sections.Delete)
	sections.PUT("/:id/adviser", admin, h.schedules.AssignAdviser)

	calendar := secured.Group("/calendar")
	calendar.GET("", h.calendar.List)
	calendar.POST("", admin, h.calendar.Create)
	calendar.PUT("/:id", admin, h.calendar.Update)
	calendar.DELETE("/:id", admin, h.calendar.Delete)

	schedules := secured.Group("/schedules")
	schedules.GET("", h.schedules.List)
	schedules.POST("", admin, h.schedules.Create)
	schedules.PUT("/:id", admin, h.schedules.Update)
	schedules.DELETE("/:id", admin, h.schedules.Delete)
	secured.GET("/advisories", h.schedules.Advisories)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", h.enrollments.List)
	enrollments.GET("/options", h.enrollments.Options)
	enrollments.GET("/:id", h.enrollments.Get)
	enrollments.POST("", admin, h.enrollments.Create)
	enrollments.POST("/import", admin, h.enrollments.Import)
	enrollments.PUT("/:id", admin, h.enrollments.Update)
	enrollments.DELETE("/:id", admin, h.enrollments.Delete)

	selection := enrollments.Group("/selection", admin)
	selection.GET("", h.selection.Get)
	selection.DELETE("", h.selection.Clear)
	selection.POST("/toggle", h.selection.Toggle)
	selection.POST("/select-all", h.selection.SelectAll)
	selection.POST("/deselect-visible", h.selection.DeselectVisible)
	selection.POST("/assign-section", h.selection.AssignSection)

	reports := secured.Group("/reports")
	reports.GET("/sf5", h.reports.SF5)
	reports.GET("/sf6", h.reports.SF6)
	reports.POST("/:type/exports", admin, h.reports.RequestExport)
	reports.GET("/exports/:id", h.reports.ExportStatus)

	return r
}
