package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResetStuckUploading returns items left mid-upload back to pending. The
// daemon runs this at startup; the resume set on each item makes the rerun
// pick up from the last recorded image instead of starting over.
func (s *Store) ResetStuckUploading(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, progress_percent = 0,
             progress_message = 'Reset from interrupted upload',
             last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusUploading,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleUploading returns uploading items whose heartbeat expired back
// to pending.
func (s *Store) ReclaimStaleUploading(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
        SET status = ?, progress_percent = 0,
            progress_message = 'Reclaimed from stale upload',
            last_heartbeat = NULL, updated_at = ?
        WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		now.Format(time.RFC3339Nano),
		StatusUploading,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryItem moves incomplete and failed items back to pending. With no ids
// every retryable item is re-queued. The resume set and gallery id are left
// in place so the rerun continues the existing gallery.
func (s *Store) RetryItem(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_percent = 0, progress_message = 'Retry requested',
                error_message = NULL, failures_json = NULL, completed_at = NULL, updated_at = ?
            WHERE status IN (?, ?)`,
			StatusPending,
			now,
			StatusIncomplete,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+4)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusIncomplete, StatusFailed)
	query := `UPDATE queue_items
        SET status = ?, progress_percent = 0, progress_message = 'Retry requested',
            error_message = NULL, failures_json = NULL, completed_at = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status IN (?, ?)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// RecordUploadedFile appends a filename to the item's resume set and adds its
// size to the uploaded byte count. The gallery id is adopted when the item
// has none yet, so a crash right after gallery creation still resumes into
// the same gallery. Duplicate filenames are ignored.
func (s *Store) RecordUploadedFile(ctx context.Context, id int64, filename string, sizeBytes int64, galleryID string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return errors.New("filename is empty")
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.recordUploadedFile(ctx, id, filename, sizeBytes, galleryID)
	})
}

func (s *Store) recordUploadedFile(ctx context.Context, id int64, filename string, sizeBytes int64, galleryID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resume tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		filesRaw      sql.NullString
		storedGallery sql.NullString
		uploadedBytes sql.NullInt64
	)
	row := tx.QueryRowContext(ctx, `SELECT uploaded_files_json, gallery_id, uploaded_bytes FROM queue_items WHERE id = ?`, id)
	if err := row.Scan(&filesRaw, &storedGallery, &uploadedBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record uploaded file: no item with id %d", id)
		}
		return fmt.Errorf("read resume state: %w", err)
	}

	changed := false
	files := decodeFileList(filesRaw.String)
	duplicate := false
	for _, existing := range files {
		if strings.EqualFold(existing, filename) {
			duplicate = true
			break
		}
	}
	bytes := uploadedBytes.Int64
	if !duplicate {
		files = append(files, filename)
		if sizeBytes > 0 {
			bytes += sizeBytes
		}
		changed = true
	}

	gallery := storedGallery.String
	if gallery == "" {
		if adopted := strings.TrimSpace(galleryID); adopted != "" {
			gallery = adopted
			changed = true
		}
	}

	if !changed {
		return nil
	}

	encoded, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("encode resume set: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE queue_items
         SET uploaded_files_json = ?, uploaded_images = ?, uploaded_bytes = ?,
             gallery_id = ?, updated_at = ?
         WHERE id = ?`,
		string(encoded),
		len(files),
		bytes,
		nullableString(gallery),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("write resume state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resume state: %w", err)
	}
	return nil
}
