package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/jobs"
)

const indexAuditJobType = "index_audit"

type indexAuditor interface {
	AuditIndex(ctx context.Context, tenant string, prune bool) (*IndexAuditReport, error)
}

type jobDispatcher interface {
	Enqueue(ctx context.Context, job jobs.Job) (jobs.Job, error)
}

type indexAuditPayload struct {
	Tenant string
	Prune  bool
}

// IndexAuditService schedules index audits and keeps their results in memory.
type IndexAuditService struct {
	auditor indexAuditor
	queue   jobDispatcher
	logger  *zap.Logger

	mu    sync.RWMutex
	audit map[string]*models.IndexAuditJob
	now   func() time.Time
}

// NewIndexAuditService constructs the service. Call SetQueue before Create.
func NewIndexAuditService(auditor indexAuditor, logger *zap.Logger) *IndexAuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexAuditService{auditor: auditor, logger: logger, audit: map[string]*models.IndexAuditJob{}, now: time.Now}
}

// SetQueue attaches the dispatcher whose workers call Handle.
func (s *IndexAuditService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Create queues an audit of tenant's index.
func (s *IndexAuditService) Create(ctx context.Context, tenant string, prune bool) (*models.IndexAuditJob, error) {
	if err := validateTenant(tenant); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "index audit is disabled")
	}

	job, err := s.queue.Enqueue(ctx, jobs.Job{Type: indexAuditJobType, Payload: indexAuditPayload{Tenant: tenant, Prune: prune}})
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to enqueue index audit")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.audit[job.ID]
	if !ok {
		record = &models.IndexAuditJob{
			ID:        job.ID,
			Tenant:    tenant,
			Prune:     prune,
			Status:    models.IndexAuditQueued,
			Missing:   []string{},
			CreatedAt: job.Enqueued,
		}
		s.audit[job.ID] = record
	}
	out := *record
	return &out, nil
}

// Get returns the audit job with id when it belongs to tenant.
func (s *IndexAuditService) Get(_ context.Context, tenant, id string) (*models.IndexAuditJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.audit[id]
	if !ok || record.Tenant != tenant {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "index audit not found")
	}
	out := *record
	return &out, nil
}

// List returns the audits of tenant, newest first.
func (s *IndexAuditService) List(_ context.Context, tenant string) []models.IndexAuditJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.IndexAuditJob, 0)
	for _, record := range s.audit {
		if record.Tenant == tenant {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Handle runs a queued audit.
func (s *IndexAuditService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(indexAuditPayload)
	if !ok {
		s.logger.Error("unexpected index audit payload", zap.String("job_id", job.ID))
		return nil
	}

	s.update(job.ID, payload, func(r *models.IndexAuditJob) {
		r.Status = models.IndexAuditRunning
		r.Error = ""
	})

	report, err := s.auditor.AuditIndex(ctx, payload.Tenant, payload.Prune)
	if err != nil {
		s.update(job.ID, payload, func(r *models.IndexAuditJob) {
			r.Status = models.IndexAuditFailed
			r.Error = err.Error()
		})
		if errors.Is(err, appErrors.ErrValidation) {
			return nil
		}
		return err
	}

	completed := s.now().UTC()
	s.update(job.ID, payload, func(r *models.IndexAuditJob) {
		r.Status = models.IndexAuditFinished
		r.Checked = report.Checked
		r.Missing = report.Missing
		r.Pruned = report.Pruned
		r.CompletedAt = &completed
	})
	s.logger.Info("index audit finished",
		zap.String("job_id", job.ID),
		zap.String("tenant", payload.Tenant),
		zap.Int("checked", report.Checked),
		zap.Int("missing", len(report.Missing)),
		zap.Int("pruned", report.Pruned),
	)
	return nil
}

func (s *IndexAuditService) update(id string, payload indexAuditPayload, fn func(*models.IndexAuditJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.audit[id]
	if !ok {
		record = &models.IndexAuditJob{ID: id, Tenant: payload.Tenant, Prune: payload.Prune, Missing: []string{}, CreatedAt: s.now().UTC()}
		s.audit[id] = record
	}
	fn(record)
}
