package merge

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/config"
	"clipforge/internal/events"
	"clipforge/internal/jobs"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
	"clipforge/internal/textutil"
)

// defaultGainDB is applied when volume adjustment is requested without an
// explicit gain.
const defaultGainDB = -3.0

// SubmitRequest describes one merge submission. JobID is optional; clients
// that want to track the job before the acknowledgement arrives may supply
// their own identifier.
type SubmitRequest struct {
	JobID           string
	FileIDs         []string
	OutputName      string
	NormalizeVolume bool
	GainDB          float64
}

// Submission is the acknowledgement returned to the caller; the merge
// itself runs in the background.
type Submission struct {
	JobID      string
	Status     jobs.Status
	TotalFiles int
}

// Service validates merge submissions, dispatches them onto the worker
// pool, and exposes job status and cancellation.
type Service struct {
	store    *library.Store
	registry *jobs.Registry
	pool     *jobs.Pool
	hub      *events.Hub
	runner   *runner
	logger   *slog.Logger
}

// NewService wires the merge engine together.
func NewService(cfg *config.Config, store *library.Store, registry *jobs.Registry, pool *jobs.Pool, hub *events.Hub, codec media.Codec, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:    store,
		registry: registry,
		pool:     pool,
		hub:      hub,
		logger:   logger,
		runner: &runner{
			store:        store,
			registry:     registry,
			hub:          hub,
			codec:        codec,
			mergedDir:    cfg.Paths.MergedDir,
			outputFormat: cfg.Merge.OutputFormat,
			sampleRate:   cfg.Merge.SampleRate,
			channels:     cfg.Merge.Channels,
			logger:       logger,
		},
	}
}

// Submit validates the request, registers a job, and queues it for
// execution. The clips are merged in library order regardless of the order
// ids were supplied in.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if len(req.FileIDs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "merge", "submit", "no clips selected", nil)
	}
	req.OutputName = textutil.SanitizeFileName(req.OutputName)
	if req.OutputName == "" {
		return nil, services.Wrap(services.ErrValidation, "merge", "submit", "output name is required", nil)
	}
	if req.NormalizeVolume && req.GainDB == 0 {
		req.GainDB = defaultGainDB
	}

	seen := make(map[string]struct{}, len(req.FileIDs))
	items := make([]*library.Item, 0, len(req.FileIDs))
	for _, id := range req.FileIDs {
		if _, dup := seen[id]; dup {
			return nil, services.Wrap(services.ErrValidation, "merge", "submit", "duplicate clip id: "+id, nil)
		}
		seen[id] = struct{}{}
		item, err := s.store.GetUnmerged(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, services.Wrap(services.ErrNotFound, "merge", "submit", "clip not found: "+id, nil)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Order < items[j].Order })

	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		jobID = uuid.NewString()
	}
	// Registry rejects an id that is already tracked.
	if _, err := s.registry.Create(jobID); err != nil {
		return nil, err
	}

	run := request{
		jobID:      jobID,
		items:      items,
		outputName: req.OutputName,
		normalize:  req.NormalizeVolume,
		gainDB:     req.GainDB,
	}
	err := s.pool.Submit(jobs.Task{JobID: jobID, Run: func(taskCtx context.Context) {
		s.runner.run(taskCtx, run)
	}})
	if err != nil {
		s.registry.Fail(jobID, "merge queue is full")
		return nil, err
	}

	s.logger.Info("merge queued",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("clips", len(items)))
	return &Submission{JobID: jobID, Status: jobs.StatusProcessing, TotalFiles: len(items)}, nil
}

// Cancel requests cooperative cancellation of a running job.
func (s *Service) Cancel(jobID string) error {
	return s.registry.RequestCancel(jobID)
}

// Status returns a snapshot of the job record.
func (s *Service) Status(jobID string) (*jobs.Job, error) {
	job, ok := s.registry.Get(jobID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "merge", "status", jobID, nil)
	}
	return job, nil
}
