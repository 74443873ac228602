package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

const itemColumns = `id, original_name, display_name, stored_filename, path,
    duration_seconds, sort_order, merged, content_hash, merged_from,
    normalize_volume, normalize_gain_db, created_at, updated_at`

// Insert adds a new item. Unmerged clips are appended to the end of the
// dense order sequence; merge results are stored without an order slot.
// A zero ID is assigned a fresh one.
func (s *Store) Insert(ctx context.Context, item *Item) (*Item, error) {
	if item == nil {
		return nil, errors.New("item is nil")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertItemTx(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// InsertClip adds an uploaded clip unless an unmerged clip with the same
// content hash already exists. The hash lookup and the insert share one
// transaction, so concurrent uploads of identical content cannot both pass
// the check; the loser sees the winner's row. On a duplicate the existing
// item is returned with duplicate=true and nothing is written.
func (s *Store) InsertClip(ctx context.Context, item *Item) (*Item, bool, error) {
	if item == nil {
		return nil, false, errors.New("item is nil")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Merged = false
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	var existing *Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing = nil
		if item.ContentHash != "" {
			row := tx.QueryRowContext(ctx,
				`SELECT `+itemColumns+` FROM audio_items WHERE merged = 0 AND content_hash = ? LIMIT 1`, item.ContentHash)
			found, findErr := scanItem(row)
			if findErr != nil && !errors.Is(findErr, sql.ErrNoRows) {
				return fmt.Errorf("find by hash: %w", findErr)
			}
			if findErr == nil {
				existing = found
				return nil
			}
		}
		return insertItemTx(ctx, tx, item)
	})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}
	return item.Clone(), false, nil
}

// insertItemTx writes one item row, assigning the next order slot to
// unmerged clips.
func insertItemTx(ctx context.Context, tx *sql.Tx, item *Item) error {
	var mergedFrom sql.NullString
	if item.Merged && len(item.MergedFrom) > 0 {
		data, err := json.Marshal(item.MergedFrom)
		if err != nil {
			return fmt.Errorf("marshal merged_from: %w", err)
		}
		mergedFrom = sql.NullString{String: string(data), Valid: true}
	}

	order := 0
	if !item.Merged {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM audio_items WHERE merged = 0`).Scan(&count); err != nil {
			return fmt.Errorf("count unmerged: %w", err)
		}
		order = count + 1
	}
	item.Order = order

	_, err := tx.ExecContext(ctx,
		`INSERT INTO audio_items (`+itemColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.OriginalName,
		item.DisplayName,
		item.StoredFilename,
		item.Path,
		item.DurationSeconds,
		item.Order,
		boolToInt(item.Merged),
		item.ContentHash,
		mergedFrom,
		boolToInt(item.NormalizeVolume),
		nullableFloat(item.NormalizeGainDB),
		item.CreatedAt.Format(time.RFC3339Nano),
		item.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID fetches an item by identifier. Returns nil when no row matches.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM audio_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetUnmerged fetches an unmerged item by identifier. Returns nil when no
// unmerged row matches.
func (s *Store) GetUnmerged(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+itemColumns+` FROM audio_items WHERE id = ? AND merged = 0`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unmerged item: %w", err)
	}
	return item, nil
}

// ListUnmerged returns uploaded clips in ascending order position.
func (s *Store) ListUnmerged(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, `SELECT `+itemColumns+` FROM audio_items WHERE merged = 0 ORDER BY sort_order`)
}

// ListMerged returns merge results ordered by creation time.
func (s *Store) ListMerged(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, `SELECT `+itemColumns+` FROM audio_items WHERE merged = 1 ORDER BY created_at`)
}

func (s *Store) list(ctx context.Context, query string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindByHash returns the unmerged item owning the given content hash, or nil.
// The lookup always runs against the live collection; uploads compare their
// digest here before creating a record.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Item, error) {
	if hash == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+itemColumns+` FROM audio_items WHERE merged = 0 AND content_hash = ? LIMIT 1`, hash)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	return item, nil
}

// UpdateDisplayName renames an item on the given lifecycle track.
func (s *Store) UpdateDisplayName(ctx context.Context, id, name string, merged bool) (*Item, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE audio_items SET display_name = ?, updated_at = ? WHERE id = ? AND merged = ?`,
			name, time.Now().UTC().Format(time.RFC3339Nano), id, boolToInt(merged))
		if err != nil {
			return fmt.Errorf("update display name: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return services.Wrap(services.ErrNotFound, "library", "rename", id, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// DeleteOne removes an item from the given track, deletes its backing file,
// and re-densifies the unmerged order sequence.
func (s *Store) DeleteOne(ctx context.Context, id string, merged bool) error {
	var path string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT path FROM audio_items WHERE id = ? AND merged = ?`, id, boolToInt(merged))
		if err := row.Scan(&path); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return services.Wrap(services.ErrNotFound, "library", "delete", id, nil)
			}
			return fmt.Errorf("load item path: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM audio_items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		if !merged {
			return densifyOrder(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeFile(path)
	return nil
}

// DeleteAll removes every item on the given track along with backing files.
// File removal failures are logged and do not fail the operation.
func (s *Store) DeleteAll(ctx context.Context, merged bool) (int, error) {
	var paths []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT path FROM audio_items WHERE merged = ?`, boolToInt(merged))
		if err != nil {
			return fmt.Errorf("list item paths: %w", err)
		}
		defer rows.Close()
		paths = paths[:0]
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				return err
			}
			paths = append(paths, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM audio_items WHERE merged = ?`, boolToInt(merged)); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, p := range paths {
		s.removeFile(p)
	}
	return len(paths), nil
}

// Reorder assigns order positions from the supplied id sequence. The ids
// must be exactly the current unmerged set; anything else is rejected and
// the stored order stays untouched.
func (s *Store) Reorder(ctx context.Context, ids []string) ([]*Item, error) {
	if len(ids) == 0 {
		return nil, services.Wrap(services.ErrValidation, "library", "reorder", "empty id sequence", nil)
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM audio_items WHERE merged = 0`)
		if err != nil {
			return fmt.Errorf("list unmerged ids: %w", err)
		}
		defer rows.Close()
		current := make(map[string]struct{})
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			current[id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if len(ids) != len(current) {
			return services.Wrap(services.ErrValidation, "library", "reorder", "id sequence does not match current clips", nil)
		}
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				return services.Wrap(services.ErrValidation, "library", "reorder", "duplicate id "+id, nil)
			}
			seen[id] = struct{}{}
			if _, ok := current[id]; !ok {
				return services.Wrap(services.ErrValidation, "library", "reorder", "unknown id "+id, nil)
			}
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE audio_items SET sort_order = ?, updated_at = ? WHERE id = ?`, i+1, now, id); err != nil {
				return fmt.Errorf("apply order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ListUnmerged(ctx)
}

// densifyOrder renumbers surviving unmerged items to 1..N preserving their
// relative order.
func densifyOrder(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM audio_items WHERE merged = 0 ORDER BY sort_order`)
	if err != nil {
		return fmt.Errorf("list unmerged for densify: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE audio_items SET sort_order = ? WHERE id = ?`, i+1, id); err != nil {
			return fmt.Errorf("densify order: %w", err)
		}
	}
	return nil
}

func (s *Store) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove backing file", logging.String("path", path), logging.Error(err))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item        Item
		merged      int
		normalize   int
		mergedFrom  sql.NullString
		gainDB      sql.NullFloat64
		createdText string
		updatedText string
	)
	err := row.Scan(
		&item.ID,
		&item.OriginalName,
		&item.DisplayName,
		&item.StoredFilename,
		&item.Path,
		&item.DurationSeconds,
		&item.Order,
		&merged,
		&item.ContentHash,
		&mergedFrom,
		&normalize,
		&gainDB,
		&createdText,
		&updatedText,
	)
	if err != nil {
		return nil, err
	}
	item.Merged = merged != 0
	item.NormalizeVolume = normalize != 0
	if mergedFrom.Valid && mergedFrom.String != "" {
		if err := json.Unmarshal([]byte(mergedFrom.String), &item.MergedFrom); err != nil {
			return nil, fmt.Errorf("decode merged_from: %w", err)
		}
	}
	if gainDB.Valid {
		v := gainDB.Float64
		item.NormalizeGainDB = &v
	}
	if t, err := time.Parse(time.RFC3339Nano, createdText); err == nil {
		item.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedText); err == nil {
		item.UpdatedAt = t
	}
	return &item, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
