package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/internal/handler"
	"github.com/noah-isme/sis-admin/internal/repository"
	"github.com/noah-isme/sis-admin/internal/service"
	"github.com/noah-isme/sis-admin/internal/session"
	"github.com/noah-isme/sis-admin/pkg/cache"
	"github.com/noah-isme/sis-admin/pkg/config"
	"github.com/noah-isme/sis-admin/pkg/database"
	"github.com/noah-isme/sis-admin/pkg/jobs"
	"github.com/noah-isme/sis-admin/pkg/storage"
)

const exportRetryDelay = 5 * time.Second

type handlers struct {
	auth          *handler.AuthHandler
	students      *handler.StudentHandler
	teachers      *handler.TeacherHandler
	academicYears *handler.AcademicYearHandler
	yearLevels    *handler.YearLevelHandler
	sections      *handler.SectionHandler
	calendar      *handler.CalendarHandler
	schedules     *handler.ScheduleHandler
	enrollments   *handler.EnrollmentHandler
	selection     *handler.SelectionHandler
	reports       *handler.ReportHandler
	metrics       *handler.MetricsHandler
}

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sqlx.DB
	redis   *redis.Client
	metrics *service.MetricsService
	hub     *session.Hub
	auth    *service.AuthService
	exports *service.ExportService
	queue   *jobs.Queue[string]
	h       handlers
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(rdb), metrics, cfg.ListView.CacheTTL, logger, cfg.ListView.CacheEnabled)
	list := service.ListSettings{
		DefaultPageSize: cfg.ListView.DefaultPageSize,
		MaxPageSize:     cfg.ListView.MaxPageSize,
		MaxVisible:      cfg.ListView.MaxVisiblePages,
	}
	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	sectionRepo := repository.NewSectionRepository(db)

	students := service.NewStudentService(studentRepo, cacheSvc, list, validate, logger)
	teachers := service.NewTeacherService(teacherRepo, cacheSvc, list, validate, logger)
	academicYears := service.NewAcademicYearService(repository.NewAcademicYearRepository(db), cacheSvc, list, validate, logger)
	yearLevels := service.NewYearLevelService(repository.NewYearLevelRepository(db), cacheSvc, list, validate, logger)
	sections := service.NewSectionService(sectionRepo, cacheSvc, list, validate, logger)
	calendar := service.NewCalendarService(repository.NewCalendarRepository(db), cacheSvc, list, validate, logger)
	schedules := service.NewTeacherScheduleService(repository.NewTeacherScheduleRepository(db), sectionRepo, teacherRepo, cacheSvc, list, validate, logger)
	enrollments := service.NewEnrollmentService(repository.NewEnrollmentRepository(db), studentRepo, yearLevels, sections, academicYears, cacheSvc, list, validate, logger)
	selection := service.NewSelectionService(repository.NewSelectionRepository(rdb, cfg.Selection.TTL), enrollments, sections, metrics, logger)

	hub := session.NewHub(logger)
	selection.Register(hub)
	hub.Subscribe("metrics", func(ctx context.Context, userID string, reason session.Reason) error {
		metrics.RecordSessionInvalidation(string(reason))
		return nil
	})

	auth := service.NewAuthService(repository.NewUserRepository(db), hub, validate, logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	reports := service.NewReportService(repository.NewReportRepository(db), list)
	exports, err := newExportService(cfg, db, reports, metrics, logger)
	if err != nil {
		_ = rdb.Close()
		_ = db.Close()
		return nil, err
	}
	queue := jobs.New[string]("report-exports", exports.Process, exports.GiveUp, jobs.Config{
		Workers:    cfg.Exports.WorkerConcurrency,
		BufferSize: cfg.Exports.WorkerConcurrency * 10,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: exportRetryDelay,
		Logger:     logger,
	})
	exports.SetQueue(queue)

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		redis:   rdb,
		metrics: metrics,
		hub:     hub,
		auth:    auth,
		exports: exports,
		queue:   queue,
		h: handlers{
			auth:          handler.NewAuthHandler(auth),
			students:      handler.NewStudentHandler(students),
			teachers:      handler.NewTeacherHandler(teachers),
			academicYears: handler.NewAcademicYearHandler(academicYears),
			yearLevels:    handler.NewYearLevelHandler(yearLevels),
			sections:      handler.NewSectionHandler(sections),
			calendar:      handler.NewCalendarHandler(calendar),
			schedules:     handler.NewScheduleHandler(schedules),
			enrollments:   handler.NewEnrollmentHandler(enrollments),
			selection:     handler.NewSelectionHandler(selection),
			reports:       handler.NewReportHandler(reports, exports),
			metrics: handler.NewMetricsHandler(metrics, map[string]handler.HealthCheck{
				"postgres": db.PingContext,
				"redis":    cache.Ping(rdb),
			}),
		},
	}, nil
}

// newExportService builds the export pipeline shared by the server and the
// cleanup command.
func newExportService(cfg *config.Config, db *sqlx.DB, reports *service.ReportService, metrics *service.MetricsService, logger *zap.Logger) (*service.ExportService, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	return service.NewExportService(repository.NewExportJobRepository(db), reports, files, nil, signer, metrics, logger, service.ExportConfig{
		Enabled:   cfg.Exports.Enabled,
		APIPrefix: cfg.APIPrefix,
	}), nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("close redis", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close postgres", zap.Error(err))
	}
}
