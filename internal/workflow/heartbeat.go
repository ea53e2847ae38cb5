package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bbdrop/internal/logging"
	"bbdrop/internal/queue"
)

// staleHeartbeatMultiple sets the reclaim cutoff as a multiple of the
// heartbeat interval: an uploading item whose heartbeat is this many
// intervals old is assumed orphaned by a dead process.
const staleHeartbeatMultiple = 4

// HeartbeatMonitor keeps the claimed item's heartbeat fresh and reclaims
// items orphaned by a previous daemon.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
}

// NewHeartbeatMonitor creates a monitor over the given store. A non-positive
// interval disables both the updater loop and stale reclamation.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{store: store, logger: logger, interval: interval}
}

// ReclaimStale returns uploading items with expired heartbeats to pending.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context) error {
	if h.interval <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.interval * staleHeartbeatMultiple)
	reclaimed, err := h.store.ReclaimStaleUploading(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale uploading items", logging.Int64("count", reclaimed))
	}
	return nil
}

// StartLoop updates the item's heartbeat until the context is cancelled.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				h.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldItemID, itemID),
					logging.Error(err))
			}
		}
	}
}
