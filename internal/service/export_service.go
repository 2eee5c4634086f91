package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/repository"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/export"
	"github.com/noah-isme/sis-admin/pkg/jobs"
	"github.com/noah-isme/sis-admin/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.ExportJobUpdate) error
	ListFinishedBefore(ctx context.Context, cutoff time.Time, skip []string, limit int) ([]models.ExportJob, error)
	ClearFile(ctx context.Context, id string) error
}

type reportDatasets interface {
	Validate(reportType models.ReportType, filter models.ReportFilter) error
	Dataset(ctx context.Context, reportType models.ReportType, filter models.ReportFilter) (export.Dataset, error)
}

type fileStorage interface {
	Save(name string, r io.Reader) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvWriter interface {
	Write(w io.Writer, data export.Dataset) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job[string]) error
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled   bool
	APIPrefix string
}

// ExportDownload is an opened export file ready to be streamed.
type ExportDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

const cleanupBatch = 100

// ExportService runs report CSV exports in the background and hands out
// signed download links for finished files.
type ExportService struct {
	jobs    exportJobStore
	reports reportDatasets
	storage fileStorage
	csv     csvWriter
	signer  *storage.SignedURLSigner
	queue   jobDispatcher
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService. The queue is attached with
// SetQueue once it has been built around Process.
func NewExportService(jobStore exportJobStore, reports reportDatasets, files fileStorage, csv csvWriter, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if strings.TrimSpace(cfg.APIPrefix) == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		jobs:    jobStore,
		reports: reports,
		storage: files,
		csv:     csv,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetQueue attaches the dispatcher used by Request.
func (s *ExportService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Request validates the filter, records a queued job and hands it to the
// worker queue.
func (s *ExportService) Request(ctx context.Context, reportType models.ReportType, filter models.ReportFilter, actorID string) (*models.ExportJob, error) {
	if !s.cfg.Enabled || s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "report exports are disabled")
	}
	if err := s.reports.Validate(reportType, filter); err != nil {
		return nil, err
	}
	filter.Page, filter.PageSize = 0, 0

	job := &models.ExportJob{
		Type:      reportType,
		Params:    filter,
		Status:    models.ExportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job[string]{ID: job.ID, Payload: job.ID}); err != nil {
		s.fail(ctx, job, "failed to enqueue job")
		return nil, appErrors.Internal(err, "failed to enqueue export job")
	}
	s.logger.Info("export job queued", zap.String("job_id", job.ID), zap.String("type", string(reportType)), zap.String("created_by", actorID))
	return job, nil
}

// Status returns a job with a fresh download link once it has finished.
// Only the creator or an administrator may read a job.
func (s *ExportService) Status(ctx context.Context, id, actorID string, role models.UserRole) (*models.ExportJob, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Internal(err, "failed to load export job")
	}
	if job.CreatedBy != actorID && !role.CanManage() {
		return nil, appErrors.ErrForbidden
	}
	if job.Status == models.ExportStatusFinished && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to sign download link")
		}
		job.DownloadURL = fmt.Sprintf("%s/reports/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
		job.DownloadExpiresAt = &expiresAt
	}
	return job, nil
}

// ResolveDownload validates a download token and opens the file behind it.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.jobs.FindByID(ctx, claims.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Internal(err, "failed to load export job")
	}
	if job.Status != models.ExportStatusFinished || job.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file is not available")
	}
	if *job.FilePath != claims.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(claims.Path)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ExportDownload{File: file, Filename: path.Base(claims.Path), ExpiresAt: claims.ExpiresAt}, nil
}

// Process is the queue handler: it renders the report CSV and stores it.
// Returning an error lets the queue retry the job.
func (s *ExportService) Process(ctx context.Context, queued jobs.Job[string]) error {
	job, err := s.jobs.FindByID(ctx, queued.Payload)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", queued.Payload, err)
	}
	processing := models.ExportStatusProcessing
	progress := 10
	if err := s.jobs.Update(ctx, job.ID, repository.ExportJobUpdate{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	data, err := s.reports.Dataset(ctx, job.Type, job.Params)
	if err != nil {
		s.requeue(ctx, job, err)
		return err
	}

	name := exportFilename(job, s.now())
	if err := s.write(name, data); err != nil {
		s.requeue(ctx, job, err)
		return err
	}

	finished := models.ExportStatusFinished
	progress = 100
	now := s.now().UTC()
	clear := ""
	if err := s.jobs.Update(ctx, job.ID, repository.ExportJobUpdate{
		Status:       &finished,
		Progress:     &progress,
		FilePath:     &name,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		return err
	}
	s.metrics.RecordExportJob(string(job.Type), string(finished))
	s.logger.Info("export job finished", zap.String("job_id", job.ID), zap.Int("rows", len(data.Rows)))
	return nil
}

// GiveUp marks a job failed once the queue stops retrying it.
func (s *ExportService) GiveUp(ctx context.Context, queued jobs.Job[string], cause error) {
	job, err := s.jobs.FindByID(ctx, queued.Payload)
	if err != nil {
		s.logger.Warn("failed to load export job after retries", zap.String("job_id", queued.Payload), zap.Error(err))
		return
	}
	s.fail(ctx, job, cause.Error())
}

// Cleanup deletes files of jobs that finished longer than one link TTL ago,
// then sweeps stray files of the same age. It returns how many files went.
// A reference that can never resolve inside storage is dropped. A file that
// fails to delete keeps its reference for the next run and is skipped for
// the rest of this one.
func (s *ExportService) Cleanup(ctx context.Context) (int, error) {
	ttl := s.signer.TTL()
	cutoff := s.now().Add(-ttl)
	removed := 0
	var failed []string
	for {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		expired, err := s.jobs.ListFinishedBefore(ctx, cutoff, failed, cleanupBatch)
		if err != nil {
			return removed, fmt.Errorf("list expired exports: %w", err)
		}
		for _, job := range expired {
			if job.FilePath != nil {
				err := s.storage.Delete(*job.FilePath)
				switch {
				case errors.Is(err, storage.ErrInvalidPath):
					s.logger.Warn("dropping unresolvable export file reference", zap.String("job_id", job.ID), zap.String("path", *job.FilePath))
				case err != nil:
					s.logger.Warn("failed to delete export file", zap.String("job_id", job.ID), zap.Error(err))
					failed = append(failed, job.ID)
					continue
				default:
					removed++
				}
			}
			if err := s.jobs.ClearFile(ctx, job.ID); err != nil {
				return removed, fmt.Errorf("clear export file: %w", err)
			}
		}
		if len(expired) < cleanupBatch {
			break
		}
	}

	stray, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return removed, err
	}
	removed += len(stray)
	return removed, nil
}

// StartCleanup schedules Cleanup on a cron spec. The caller stops the
// returned scheduler.
func (s *ExportService) StartCleanup(spec string) (*cron.Cron, error) {
	logger := cronLogger{s.logger.Sugar().With("component", "export-cleanup")}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		removed, err := s.Cleanup(ctx)
		if err != nil {
			s.logger.Warn("export cleanup failed", zap.Error(err))
			return
		}
		s.logger.Info("export cleanup finished", zap.Int("removed", removed))
	}); err != nil {
		return nil, fmt.Errorf("schedule export cleanup %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

// cronLogger routes scheduler events through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

func (s *ExportService) write(name string, data export.Dataset) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.csv.Write(pw, data))
	}()
	_, err := s.storage.Save(name, pr)
	pr.Close()
	return err
}

func (s *ExportService) requeue(ctx context.Context, job *models.ExportJob, cause error) {
	queued := models.ExportStatusQueued
	reset := 0
	msg := cause.Error()
	if err := s.jobs.Update(ctx, job.ID, repository.ExportJobUpdate{Status: &queued, Progress: &reset, ErrorMessage: &msg}); err != nil {
		s.logger.Warn("failed to mark export job queued", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (s *ExportService) fail(ctx context.Context, job *models.ExportJob, msg string) {
	failed := models.ExportStatusFailed
	progress := 100
	now := s.now().UTC()
	if err := s.jobs.Update(ctx, job.ID, repository.ExportJobUpdate{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	s.metrics.RecordExportJob(string(job.Type), string(failed))
}

func exportFilename(job *models.ExportJob, now time.Time) string {
	scope := job.Params.SectionID
	if scope == "" {
		scope = job.Params.YearLevelID
	}
	if scope == "" {
		scope = "all"
	}
	return fmt.Sprintf("%s/%s_%s_%s_%s_%s.csv",
		now.UTC().Format("2006-01"),
		job.Type,
		sanitizeFilename(job.Params.AcademicYearID),
		sanitizeFilename(scope),
		now.UTC().Format("20060102_150405"),
		sanitizeFilename(job.ID),
	)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}
