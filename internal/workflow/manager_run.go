package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bbdrop/internal/engine"
	"bbdrop/internal/imagehost"
	"bbdrop/internal/logging"
	"bbdrop/internal/queue"
	"bbdrop/internal/rename"
	"bbdrop/internal/scan"
	"bbdrop/internal/services"
)

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	queueActive := false

	for {
		if m.stopRequested(ctx) {
			return
		}

		if err := m.heartbeat.ReclaimStale(ctx); err != nil {
			m.logger.Warn("reclaim stale uploading failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"))
		}

		item, err := m.store.NextPending(ctx)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"))
			m.waitOrShutdown(ctx)
			continue
		}
		if item == nil {
			if queueActive {
				queueActive = false
				m.notifyQueueDrained(ctx)
			}
			m.waitOrShutdown(ctx)
			continue
		}

		if !m.checkFreeSpace() {
			// Item stays pending; try again next poll.
			m.waitOrShutdown(ctx)
			continue
		}

		if !queueActive {
			queueActive = true
			m.mu.Lock()
			m.queueStart = time.Now()
			m.processed = 0
			m.mu.Unlock()
		}

		m.processItem(ctx, item)
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) notifyQueueDrained(ctx context.Context) {
	m.mu.Lock()
	processed := m.processed
	elapsed := time.Since(m.queueStart)
	m.mu.Unlock()
	if processed == 0 {
		return
	}
	if err := m.notifier.QueueEmpty(ctx, processed, elapsed); err != nil {
		m.logger.Warn("queue-empty notification failed", logging.Error(err))
	}
}

// checkFreeSpace reports whether the data volume has room to keep working.
// Low disk pauses processing rather than failing items: the condition clears
// itself once the operator frees space.
func (m *Manager) checkFreeSpace() bool {
	minMB := m.cfg.Daemon.MinFreeSpaceMB
	if minMB <= 0 {
		return true
	}
	free, err := scan.FreeSpace(m.cfg.Paths.DataDir)
	if err != nil {
		m.logger.Warn("free-space probe failed", logging.Error(err))
		return true
	}
	if free < uint64(minMB)*1024*1024 {
		m.logger.Error("low disk space; pausing queue processing",
			logging.Uint64("free_bytes", free),
			logging.Int("min_free_mb", minMB),
			logging.String(logging.FieldErrorHint, "free space on the data volume to resume"))
		return false
	}
	return true
}

func (m *Manager) processItem(parent context.Context, item *queue.Item) {
	hostID := strings.TrimSpace(item.Host)
	if hostID == "" {
		hostID = m.cfg.Upload.DefaultHost
	}

	ctx := services.WithItemID(parent, item.ID)
	ctx = services.WithHost(ctx, hostID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	client, err := m.hosts.Get(hostID)
	if err != nil {
		m.failItem(ctx, logger, item, err)
		return
	}

	if err := m.claimItem(ctx, item); err != nil {
		m.setLastError(err)
		logger.Error("failed to claim queue item", logging.Error(err))
		return
	}
	logger.Info("processing gallery",
		logging.String("folder", item.FolderPath),
		logging.String("gallery_name", item.GalleryName))

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	result, runErr := m.runEngine(ctx, logger, client, item)

	// RecordUploadedFile wrote resume state straight to the database while
	// the engine ran; refresh the row so the final update keeps it.
	if fresh, err := m.store.GetByID(context.WithoutCancel(ctx), item.ID); err == nil && fresh != nil {
		item = fresh
	}

	// Outcome persistence must survive a hard cancel, otherwise the item
	// stays stuck in uploading until the next daemon start.
	m.finishItem(context.WithoutCancel(ctx), logger, item, result, runErr)

	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *Manager) claimItem(ctx context.Context, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = queue.StatusUploading
	item.ErrorMessage = ""
	item.SetProgress(0, "Starting upload")
	if item.StartedAt == nil {
		item.StartedAt = &now
	}
	item.LastHeartbeat = &now
	return m.store.Update(ctx, item)
}

func (m *Manager) runEngine(ctx context.Context, logger *slog.Logger, client imagehost.Client, item *queue.Item) (*engine.Result, error) {
	alreadyUploaded := item.UploadedFileList()

	listing, err := scan.ListImages(item.FolderPath, scan.Options{
		MaxFileSizeMB: client.Capabilities().MaxFileSizeMB,
		Uploaded:      alreadyUploaded,
		Comparator:    m.comparator,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "enumerate", item.FolderPath, err)
	}

	dims, err := scan.ScanDimensions(ctx, listing.All, m.cfg.Upload.ParallelBatchSize)
	if err != nil {
		return nil, err
	}

	item.TotalImages = len(listing.Work) + len(listing.Resumed)
	item.TotalBytes = listing.TotalBytes
	if err := m.store.Update(ctx, item); err != nil {
		logger.Warn("failed to persist gallery totals", logging.Error(err))
	}

	sampler := logging.NewProgressSampler(10)
	req := engine.Request{
		FolderPath:        item.FolderPath,
		GalleryName:       item.GalleryName,
		ThumbnailSize:     m.cfg.Upload.ThumbnailSize,
		ThumbnailFormat:   m.cfg.Upload.ThumbnailFormat,
		MaxRetries:        m.cfg.Upload.MaxRetries,
		Concurrency:       m.cfg.Upload.ParallelBatchSize,
		TemplateName:      item.TemplateName,
		AlreadyUploaded:   alreadyUploaded,
		ExistingGalleryID: item.GalleryID,
		GalleryNamed:      item.GalleryID != "",
		Dimensions:        &dims,
		Comparator:        m.comparator,

		ShouldSoftStop: func() bool { return m.stopRequested(ctx) },
		OnProgress: func(completed, total, percent int, filename string) {
			if m.progress != nil {
				m.progress(completed, total, percent, filename)
			}
			item.SetProgress(float64(percent), fmt.Sprintf("Uploading %s (%d/%d)", filename, completed, total))
			item.UploadedImages = completed
			if err := m.store.UpdateProgress(ctx, item); err != nil {
				logger.Debug("progress update failed", logging.Error(err))
			}
			if sampler.ShouldLog(float64(percent), "uploading", filename) {
				logger.Info("upload progress",
					logging.Int("completed", completed),
					logging.Int("total", total),
					logging.Int(logging.FieldProgressPercent, percent),
					logging.String("file", filename))
			}
		},
		OnImageUploaded: func(filename string, image *imagehost.UploadResult, sizeBytes int64) {
			galleryID := ""
			if image != nil {
				galleryID = image.GalleryID
			}
			if err := m.store.RecordUploadedFile(ctx, item.ID, filename, sizeBytes, galleryID); err != nil {
				logger.Warn("failed to record uploaded file; resume may re-upload it",
					logging.String("file", filename),
					logging.Error(err))
			}
		},
	}

	var handoff rename.Handoff
	if m.renames != nil && m.cfg.Upload.AutoRename {
		handoff = m.renames.ForHost(client.ID())
	}

	eng := engine.New(client, handoff, nil, m.logger)
	return eng.Run(ctx, req)
}
