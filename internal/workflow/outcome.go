package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bbdrop/internal/engine"
	"bbdrop/internal/logging"
	"bbdrop/internal/queue"
	"bbdrop/internal/services"
)

// finishItem maps the engine outcome onto the queue item: fatal error means
// failed, unattempted work after a soft stop means incomplete, surviving
// per-file failures mean failed with details, anything else means completed.
func (m *Manager) finishItem(ctx context.Context, logger *slog.Logger, item *queue.Item, result *engine.Result, runErr error) {
	if runErr != nil {
		m.failItem(ctx, logger, item, runErr)
		return
	}

	m.mergeWithPrevious(logger, item, result)

	item.GalleryID = result.GalleryID
	item.GalleryURL = result.GalleryURL
	if item.GalleryName == "" {
		item.GalleryName = result.GalleryName
	}
	item.TotalImages = result.TotalImages
	item.UploadedImages = result.SuccessfulCount
	item.TotalBytes = result.TotalBytes
	item.SetFailureList(toFailureDetails(result.Failed))

	attempted := result.SuccessfulCount + result.FailedCount
	switch {
	case attempted < result.TotalImages:
		// Soft stop left files unattempted; the resume set picks them up.
		item.Status = queue.StatusIncomplete
		item.ErrorMessage = ""
		item.SetProgress(percentOf(result.SuccessfulCount, result.TotalImages), "Upload paused")
		item.LastHeartbeat = nil
		m.savePartial(logger, item.ID, result)
		logger.Info("gallery upload paused",
			logging.Int("uploaded", result.SuccessfulCount),
			logging.Int("total", result.TotalImages))
		if err := m.notifier.GalleryIncomplete(ctx, item.GalleryName, result.SuccessfulCount, result.TotalImages); err != nil {
			logger.Warn("incomplete notification failed", logging.Error(err))
		}

	case result.FailedCount > 0:
		item.SetFailed(fmt.Sprintf("%d of %d images failed to upload", result.FailedCount, result.TotalImages))
		item.SetProgress(percentOf(result.SuccessfulCount, result.TotalImages), item.ErrorMessage)
		m.savePartial(logger, item.ID, result)
		logger.Warn("gallery upload finished with failures",
			logging.Int("failed", result.FailedCount),
			logging.Int("total", result.TotalImages))
		if err := m.notifier.GalleryFailed(ctx, item.GalleryName, result.FailedCount, ""); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}

	default:
		now := time.Now().UTC()
		item.Status = queue.StatusCompleted
		item.CompletedAt = &now
		item.ErrorMessage = ""
		item.SetProgress(100, "Completed")
		item.LastHeartbeat = nil
		m.clearPartial(item.ID)
		if _, err := m.artifacts.Write(item.FolderPath, item.GalleryName, item.TemplateName, result); err != nil {
			// Artifacts are regenerable from the gallery; never fail the item.
			logger.Warn("artifact write failed", logging.Error(err))
		}
		logger.Info("gallery upload completed",
			logging.String(logging.FieldGalleryID, result.GalleryID),
			logging.Int("images", result.SuccessfulCount),
			logging.Duration("elapsed", result.Elapsed))
		if err := m.notifier.GalleryComplete(ctx, item.GalleryName, result.GalleryURL, result.SuccessfulCount, result.UploadedBytes); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}

	if err := m.store.Update(ctx, item); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist item outcome", logging.Error(err))
	}
}

// failItem handles a fatal engine or configuration error.
func (m *Manager) failItem(ctx context.Context, logger *slog.Logger, item *queue.Item, cause error) {
	m.setLastError(cause)
	item.SetFailed(cause.Error())
	logger.Error("gallery upload failed",
		logging.Error(cause),
		logging.String("failure_kind", services.FailureKind(cause)),
		logging.Bool("retryable", services.Retryable(cause)))
	if err := m.store.Update(ctx, item); err != nil {
		logger.Error("failed to persist failed item", logging.Error(err))
	}
	if err := m.notifier.GalleryFailed(ctx, item.GalleryName, 0, cause.Error()); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
}

func toFailureDetails(failed []engine.FailedImage) []queue.FailureDetail {
	if len(failed) == 0 {
		return nil
	}
	details := make([]queue.FailureDetail, 0, len(failed))
	for _, failure := range failed {
		details = append(details, queue.FailureDetail{Filename: failure.Filename, Reason: failure.Reason})
	}
	return details
}

func percentOf(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}
