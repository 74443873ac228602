package library

import "time"

// Item represents one audio record: either an uploaded clip awaiting merge
// selection or a finished merge result. The Merged flag discriminates the
// two lifecycle tracks. Unmerged items carry a dense 1-based Order and a
// ContentHash; merge results carry MergedFrom and the gain provenance
// fields instead.
type Item struct {
	ID              string
	OriginalName    string
	DisplayName     string
	StoredFilename  string
	Path            string
	DurationSeconds float64
	Order           int
	Merged          bool
	ContentHash     string
	MergedFrom      []string
	NormalizeVolume bool
	NormalizeGainDB *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	cp := *i
	if i.MergedFrom != nil {
		cp.MergedFrom = append([]string(nil), i.MergedFrom...)
	}
	if i.NormalizeGainDB != nil {
		v := *i.NormalizeGainDB
		cp.NormalizeGainDB = &v
	}
	return &cp
}
