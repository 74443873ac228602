package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/config"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

// LibraryService implements the clip library operations behind the HTTP
// handlers: ingesting uploads with content deduplication, listing, renaming,
// deleting, and reordering.
type LibraryService struct {
	store  *library.Store
	codec  media.Codec
	cfg    *config.Config
	logger *slog.Logger
}

// UploadResult pairs the stored item with upload metadata.
type UploadResult struct {
	Item         *library.Item
	IsDuplicate  bool
	UploadedName string
}

// NewLibraryService constructs the service.
func NewLibraryService(cfg *config.Config, store *library.Store, codec media.Codec, logger *slog.Logger) *LibraryService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LibraryService{
		store:  store,
		codec:  codec,
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "library-service")),
	}
}

// Upload stores an uploaded clip. The content is hashed while it streams to
// disk; if an unmerged clip with the same hash already exists, the new copy
// is discarded and the existing record is returned as a duplicate.
func (s *LibraryService) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	filename = strings.TrimSpace(filepath.Base(filename))
	if filename == "" || filename == "." {
		return nil, services.Wrap(services.ErrValidation, "library-service", "upload", "filename is required", nil)
	}

	storedFilename := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.cfg.Paths.UploadDir, storedFilename)

	out, err := os.Create(path)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "library-service", "upload", "create upload file", err)
	}
	hasher := sha256.New()
	_, copyErr := io.Copy(out, io.TeeReader(r, hasher))
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr == nil {
			copyErr = closeErr
		}
		return nil, services.Wrap(services.ErrPersistence, "library-service", "upload", "write upload file", copyErr)
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	// Duration is cosmetic at upload time; a probe failure is not fatal.
	duration := 0.0
	if s.codec != nil {
		if probed, probeErr := s.codec.Probe(ctx, path); probeErr != nil {
			s.logger.Warn("duration probe failed",
				logging.String("path", path),
				logging.Error(probeErr))
		} else {
			duration = probed
		}
	}

	// The hash check and the insert run in one store transaction so two
	// concurrent uploads of the same bytes cannot both create a record.
	item, duplicate, err := s.store.InsertClip(ctx, &library.Item{
		OriginalName:    filename,
		DisplayName:     strings.TrimSuffix(filename, filepath.Ext(filename)),
		StoredFilename:  storedFilename,
		Path:            path,
		DurationSeconds: duration,
		ContentHash:     hash,
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	if duplicate {
		_ = os.Remove(path)
		s.logger.Info("duplicate upload rejected",
			logging.String("uploaded_name", filename),
			logging.String(logging.FieldItemID, item.ID))
		return &UploadResult{Item: item, IsDuplicate: true, UploadedName: filename}, nil
	}
	s.logger.Info("clip uploaded",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("uploaded_name", filename),
		logging.Int("order", item.Order))
	return &UploadResult{Item: item, UploadedName: filename}, nil
}

// ListClips returns unmerged clips in library order.
func (s *LibraryService) ListClips(ctx context.Context) ([]*library.Item, error) {
	return s.store.ListUnmerged(ctx)
}

// ListMerged returns merged tracks, oldest first.
func (s *LibraryService) ListMerged(ctx context.Context) ([]*library.Item, error) {
	return s.store.ListMerged(ctx)
}

// Rename updates an item's display name within the given collection.
func (s *LibraryService) Rename(ctx context.Context, id, displayName string, merged bool) (*library.Item, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, services.Wrap(services.ErrValidation, "library-service", "rename", "display name is required", nil)
	}
	return s.store.UpdateDisplayName(ctx, id, displayName, merged)
}

// Delete removes one item and its backing file.
func (s *LibraryService) Delete(ctx context.Context, id string, merged bool) error {
	return s.store.DeleteOne(ctx, id, merged)
}

// DeleteAll clears a collection and reports how many items were removed.
func (s *LibraryService) DeleteAll(ctx context.Context, merged bool) (int, error) {
	return s.store.DeleteAll(ctx, merged)
}

// Reorder applies a complete new ordering of the unmerged clips.
func (s *LibraryService) Reorder(ctx context.Context, ids []string) ([]*library.Item, error) {
	return s.store.Reorder(ctx, ids)
}

// Resolve returns the item for download. The backing file must still exist.
func (s *LibraryService) Resolve(ctx context.Context, id string) (*library.Item, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "library-service", "resolve", id, nil)
	}
	if _, err := os.Stat(item.Path); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "library-service", "resolve", "backing file missing for "+id, err)
	}
	return item, nil
}
