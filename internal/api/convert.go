package api

import (
	"time"

	"clipforge/internal/events"
	"clipforge/internal/jobs"
	"clipforge/internal/library"
)

// FromItem converts a library record to its wire representation.
func FromItem(item *library.Item) Item {
	if item == nil {
		return Item{}
	}
	return Item{
		ID:              item.ID,
		OriginalName:    item.OriginalName,
		DisplayName:     item.DisplayName,
		Filename:        item.StoredFilename,
		Order:           item.Order,
		DurationSeconds: item.DurationSeconds,
		Merged:          item.Merged,
		ContentHash:     item.ContentHash,
		MergedFrom:      append([]string(nil), item.MergedFrom...),
		NormalizeVolume: item.NormalizeVolume,
		NormalizeGainDB: item.NormalizeGainDB,
		CreatedAt:       item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       item.UpdatedAt.Format(time.RFC3339),
	}
}

// FromItems converts a listing.
func FromItems(items []*library.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// FromJob converts a registry snapshot to a status response.
func FromJob(job *jobs.Job) TaskStatusResponse {
	resp := TaskStatusResponse{
		TaskID:       job.JobID,
		Status:       string(job.Status),
		Progress:     job.ProgressPercent,
		Stage:        job.Stage,
		CurrentIndex: job.CurrentIndex,
		TotalCount:   job.TotalCount,
	}
	if job.Status == jobs.StatusFailed {
		resp.Error = job.Message
	}
	if job.Result != nil {
		item := FromItem(job.Result)
		resp.File = &item
	}
	return resp
}

// FromEvent converts a hub event to a websocket frame.
func FromEvent(ev events.Event) JobEvent {
	frame := JobEvent{
		Type:         string(ev.Type),
		TaskID:       ev.JobID,
		Progress:     ev.Percent,
		Stage:        ev.Stage,
		CurrentIndex: ev.CurrentIndex,
		TotalCount:   ev.TotalCount,
		Message:      ev.Message,
	}
	if ev.Item != nil {
		item := FromItem(ev.Item)
		frame.File = &item
	}
	return frame
}
