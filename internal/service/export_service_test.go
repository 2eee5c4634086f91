package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/repository"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/jobs"
	"github.com/noah-isme/sis-admin/pkg/storage"
)

type memExportJobs struct {
	jobs    map[string]*models.ExportJob
	cleared []string
}

func newMemExportJobs() *memExportJobs {
	return &memExportJobs{jobs: make(map[string]*models.ExportJob)}
}

func (m *memExportJobs) Create(ctx context.Context, job *models.ExportJob) error {
	job.ID = "job-" + string(rune('a'+len(m.jobs)))
	job.CreatedAt = time.Now().UTC()
	copyJob := *job
	m.jobs[job.ID] = &copyJob
	return nil
}

func (m *memExportJobs) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyJob := *job
	return &copyJob, nil
}

func (m *memExportJobs) Update(ctx context.Context, id string, params repository.ExportJobUpdate) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.FilePath != nil {
		path := *params.FilePath
		job.FilePath = &path
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		finished := *params.FinishedAt
		job.FinishedAt = &finished
	}
	return nil
}

func (m *memExportJobs) ListFinishedBefore(ctx context.Context, cutoff time.Time, skip []string, limit int) ([]models.ExportJob, error) {
	skipped := make(map[string]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}
	out := make([]models.ExportJob, 0)
	for _, job := range m.jobs {
		if skipped[job.ID] {
			continue
		}
		if job.Status == models.ExportStatusFinished && job.FilePath != nil && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memExportJobs) ClearFile(ctx context.Context, id string) error {
	m.cleared = append(m.cleared, id)
	m.jobs[id].FilePath = nil
	return nil
}

type recordingQueue struct {
	enqueued []jobs.Job[string]
	err      error
}

func (q *recordingQueue) Enqueue(job jobs.Job[string]) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type exportFixture struct {
	svc   *ExportService
	jobs  *memExportJobs
	queue *recordingQueue
	dir   string
}

func newExportFixture(t *testing.T, reports reportDatasets) exportFixture {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	jobStore := newMemExportJobs()
	queue := &recordingQueue{}
	svc := NewExportService(jobStore, reports, files, nil, storage.NewSignedURLSigner("secret", time.Hour), NewMetricsService(), nil, ExportConfig{Enabled: true, APIPrefix: "/api/v1"})
	svc.SetQueue(queue)
	return exportFixture{svc: svc, jobs: jobStore, queue: queue, dir: dir}
}

func TestExportServiceRequestAndProcess(t *testing.T) {
	f := newExportFixture(t, NewReportService(sampleReportRepo(), DefaultListSettings()))
	ctx := context.Background()

	job, err := f.svc.Request(ctx, models.ReportTypeSF5, models.ReportFilter{AcademicYearID: "ay-1", SectionID: "sec-1", Page: 3}, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Zero(t, job.Params.Page)
	require.Len(t, f.queue.enqueued, 1)

	require.NoError(t, f.svc.Process(ctx, f.queue.enqueued[0]))

	status, err := f.svc.Status(ctx, job.ID, "u1", models.RoleRegistrar)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.True(t, strings.HasPrefix(status.DownloadURL, "/api/v1/reports/exports/download/"))
	require.NotNil(t, status.DownloadExpiresAt)

	token := strings.TrimPrefix(status.DownloadURL, "/api/v1/reports/exports/download/")
	download, err := f.svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	content := strings.TrimPrefix(string(body), "\ufeff")
	assert.True(t, strings.HasPrefix(content, "LRN,Learner's Name,Sex"))
	assert.Contains(t, content, "Santos, Ana")
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))
}

func TestExportServiceStatusOwnership(t *testing.T) {
	f := newExportFixture(t, NewReportService(sampleReportRepo(), DefaultListSettings()))
	ctx := context.Background()
	job, err := f.svc.Request(ctx, models.ReportTypeSF6, models.ReportFilter{AcademicYearID: "ay-1"}, "u1")
	require.NoError(t, err)

	_, err = f.svc.Status(ctx, job.ID, "u2", models.RoleTeacher)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	status, err := f.svc.Status(ctx, job.ID, "u2", models.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, status.DownloadURL)

	_, err = f.svc.Status(ctx, "missing", "u1", models.RoleAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestExportServiceRequestRejects(t *testing.T) {
	f := newExportFixture(t, NewReportService(sampleReportRepo(), DefaultListSettings()))
	ctx := context.Background()

	_, err := f.svc.Request(ctx, models.ReportTypeSF5, models.ReportFilter{AcademicYearID: "ay-1"}, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	f.queue.err = jobs.ErrQueueStopped
	_, err = f.svc.Request(ctx, models.ReportTypeSF6, models.ReportFilter{AcademicYearID: "ay-1"}, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	for _, job := range f.jobs.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}

	disabled := NewExportService(f.jobs, nil, nil, nil, nil, nil, nil, ExportConfig{})
	_, err = disabled.Request(ctx, models.ReportTypeSF6, models.ReportFilter{AcademicYearID: "ay-1"}, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrFeatureDisabled))
}

func TestExportServiceRetryThenGiveUp(t *testing.T) {
	f := newExportFixture(t, NewReportService(stubReportRepo{err: errors.New("view missing")}, DefaultListSettings()))
	ctx := context.Background()
	job, err := f.svc.Request(ctx, models.ReportTypeSF6, models.ReportFilter{AcademicYearID: "ay-1"}, "u1")
	require.NoError(t, err)

	err = f.svc.Process(ctx, f.queue.enqueued[0])
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, f.jobs.jobs[job.ID].Status)
	require.NotNil(t, f.jobs.jobs[job.ID].ErrorMessage)

	f.svc.GiveUp(ctx, f.queue.enqueued[0], err)
	assert.Equal(t, models.ExportStatusFailed, f.jobs.jobs[job.ID].Status)
	assert.NotNil(t, f.jobs.jobs[job.ID].FinishedAt)
}

func TestExportServiceResolveDownloadRejectsBadTokens(t *testing.T) {
	f := newExportFixture(t, NewReportService(sampleReportRepo(), DefaultListSettings()))

	_, err := f.svc.ResolveDownload(context.Background(), "not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	other := storage.NewSignedURLSigner("other-secret", time.Hour)
	token, _, err := other.Generate("job-a", "2024-01/file.csv")
	require.NoError(t, err)
	_, err = f.svc.ResolveDownload(context.Background(), token)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceCleanup(t *testing.T) {
	f := newExportFixture(t, NewReportService(sampleReportRepo(), DefaultListSettings()))
	ctx := context.Background()

	job, err := f.svc.Request(ctx, models.ReportTypeSF6, models.ReportFilter{AcademicYearID: "ay-1"}, "u1")
	require.NoError(t, err)
	require.NoError(t, f.svc.Process(ctx, f.queue.enqueued[0]))
	filePath := *f.jobs.jobs[job.ID].FilePath
	_, err = os.Stat(filepath.Join(f.dir, filePath))
	require.NoError(t, err)

	removed, err := f.svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = f.svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{job.ID}, f.jobs.cleared)
	_, err = os.Stat(filepath.Join(f.dir, filePath))
	assert.True(t, os.IsNotExist(err))
}

func TestExportServiceCleanupTerminatesOnUndeletableFiles(t *testing.T) {
	f := newExportFixture(t, NewReportService(sampleReportRepo(), DefaultListSettings()))
	ctx := context.Background()

	// A non-empty directory where a file is expected cannot be removed.
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "locked.csv"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "locked.csv", "keep"), []byte("x"), 0o644))

	finished := time.Now().Add(-3 * time.Hour)
	addJob := func(id, path string) {
		p := path
		f.jobs.jobs[id] = &models.ExportJob{ID: id, Status: models.ExportStatusFinished, FilePath: &p, FinishedAt: &finished}
	}
	for i := 0; i < cleanupBatch; i++ {
		addJob(fmt.Sprintf("escape-%03d", i), "../outside.csv")
		addJob(fmt.Sprintf("locked-%03d", i), "locked.csv")
	}

	done := make(chan struct{})
	var removed int
	var err error
	go func() {
		defer close(done)
		removed, err = f.svc.Cleanup(ctx)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup did not finish")
	}

	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Len(t, f.jobs.cleared, cleanupBatch)
	for _, id := range f.jobs.cleared {
		assert.True(t, strings.HasPrefix(id, "escape-"), id)
	}
	assert.NotNil(t, f.jobs.jobs["locked-000"].FilePath)
}

func TestExportServiceCleanupHonoursCancellation(t *testing.T) {
	f := newExportFixture(t, NewReportService(sampleReportRepo(), DefaultListSettings()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Cleanup(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCronLoggerWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := cronLogger{zap.New(core).Sugar()}

	logger.Info("wake", "now", "08:00")
	logger.Error(errors.New("boom"), "panic", "job", "cleanup")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, "08:00", entries[0].ContextMap()["now"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Equal(t, "cleanup", entries[1].ContextMap()["job"])
}

func TestExportServiceStartCleanupRejectsBadSpec(t *testing.T) {
	f := newExportFixture(t, NewReportService(sampleReportRepo(), DefaultListSettings()))

	_, err := f.svc.StartCleanup("not a cron spec")
	assert.Error(t, err)

	c, err := f.svc.StartCleanup("@every 1h")
	require.NoError(t, err)
	<-c.Stop().Done()
}
