package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"clipforge/internal/events"
	"clipforge/internal/jobs"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/media"
)

// progress milestones mirror the ratio of work each phase represents:
// decoding and joining clips dominates, normalization and export are quick.
const (
	concatProgressCeiling = 60
	normalizeProgress     = 70
	exportProgress        = 85
)

type runner struct {
	store    *library.Store
	registry *jobs.Registry
	hub      *events.Hub
	codec    media.Codec

	mergedDir    string
	outputFormat string
	sampleRate   int
	channels     int

	logger *slog.Logger
}

type request struct {
	jobID      string
	items      []*library.Item
	outputName string
	normalize  bool
	gainDB     float64
}

// run executes one merge job to a terminal state. Cancellation is checked
// between clips and between phases; once a terminal state is set it never
// changes.
func (r *runner) run(ctx context.Context, req request) {
	log := logging.WithContext(ctx, r.logger)
	outputPath := ""

	fail := func(stage, message string, err error) {
		if err != nil {
			log.Error("merge failed",
				logging.String(logging.FieldStage, stage),
				logging.Error(err))
		} else {
			log.Error("merge failed", logging.String(logging.FieldStage, stage))
		}
		if outputPath != "" {
			if rmErr := os.Remove(outputPath); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("partial output not removed", logging.Error(rmErr))
			}
		}
		r.registry.Fail(req.jobID, message)
		r.hub.Publish(events.Failed(req.jobID, message))
	}

	cancelled := func() bool {
		if !r.registry.CancelRequested(req.jobID) && ctx.Err() == nil {
			return false
		}
		log.Info("merge cancelled")
		if outputPath != "" {
			if rmErr := os.Remove(outputPath); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("partial output not removed", logging.Error(rmErr))
			}
		}
		r.registry.Cancel(req.jobID)
		r.hub.Publish(events.Cancelled(req.jobID))
		return true
	}

	total := len(req.items)
	log.Info("merge started",
		logging.Int("clips", total),
		logging.String("output_name", req.outputName))

	// Decode and join clips in library order.
	buffers := make([]*media.Buffer, 0, total)
	for idx, item := range req.items {
		if cancelled() {
			return
		}
		stage := "merging " + item.DisplayName
		r.setProgress(req.jobID, (idx+1)*concatProgressCeiling/total, stage, idx+1, total)

		buf, err := r.codec.Decode(ctx, item.Path, r.sampleRate, r.channels)
		if err != nil {
			fail(stage, fmt.Sprintf("failed to decode %s", item.DisplayName), err)
			return
		}
		buffers = append(buffers, buf)
	}

	if cancelled() {
		return
	}
	combined, err := media.Concatenate(buffers)
	if err != nil {
		fail("concatenating", "failed to join clips", err)
		return
	}
	buffers = nil

	// Volume adjustment is best effort: a failure downgrades to a warning
	// and the merge continues with the unadjusted audio.
	applied := false
	if req.normalize {
		if cancelled() {
			return
		}
		r.setProgress(req.jobID, normalizeProgress, "normalizing volume", total, total)
		adjusted, gainErr := r.codec.ApplyGain(combined, req.gainDB)
		if gainErr != nil {
			log.Warn("volume adjustment failed", logging.Error(gainErr))
			r.hub.Publish(events.Warning(req.jobID, "normalizing volume", "volume adjustment failed, continuing without it"))
		} else {
			combined = adjusted
			applied = true
		}
	}

	if cancelled() {
		return
	}
	storedFilename := uuid.NewString() + "." + r.outputFormat
	outputPath = filepath.Join(r.mergedDir, storedFilename)
	r.setProgress(req.jobID, exportProgress, "exporting "+req.outputName, total, total)
	if err := r.codec.Encode(ctx, combined, outputPath, r.outputFormat); err != nil {
		fail("exporting", "failed to encode merged output", err)
		return
	}

	if cancelled() {
		return
	}

	mergedFrom := make([]string, 0, total)
	for _, item := range req.items {
		mergedFrom = append(mergedFrom, item.ID)
	}
	var gain *float64
	if applied {
		g := req.gainDB
		gain = &g
	}
	item := &library.Item{
		OriginalName:    req.outputName,
		DisplayName:     req.outputName,
		StoredFilename:  storedFilename,
		Path:            outputPath,
		DurationSeconds: combined.DurationSeconds(),
		Merged:          true,
		MergedFrom:      mergedFrom,
		NormalizeVolume: applied,
		NormalizeGainDB: gain,
	}
	stored, err := r.store.Insert(ctx, item)
	if err != nil {
		fail("finalizing", "failed to record merged output", err)
		return
	}

	// The record is durable before anyone is told the job finished.
	r.registry.Complete(req.jobID, stored)
	r.hub.Publish(events.Completed(req.jobID, stored))
	log.Info("merge completed",
		logging.String(logging.FieldItemID, stored.ID),
		logging.Float64("duration_seconds", stored.DurationSeconds))
}

func (r *runner) setProgress(jobID string, percent int, stage string, current, total int) {
	r.registry.SetProgress(jobID, percent, stage, current, total)
	r.hub.Publish(events.Progress(jobID, percent, stage, current, total))
}
