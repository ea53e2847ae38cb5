package workflow

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bbdrop/internal/engine"
	"bbdrop/internal/logging"
	"bbdrop/internal/queue"
)

// partialState is the image metadata accumulated across interrupted runs of
// one queue item. The resume set on the item records which files to skip;
// this file keeps their URLs and BBCode so the final artifact covers every
// run, not just the last one.
type partialState struct {
	GalleryID     string         `json:"gallery_id"`
	GalleryURL    string         `json:"gallery_url"`
	UploadedBytes int64          `json:"uploaded_bytes"`
	Images        []engine.Image `json:"images"`
}

func (m *Manager) partialPath(itemID int64) string {
	return filepath.Join(m.cfg.Paths.DataDir, "partials", fmt.Sprintf("gallery-%d.json", itemID))
}

// mergeWithPrevious folds a previous run's accumulated images into this
// run's result: the union keyed by filename, current fields winning, the
// whole list re-sorted into canonical order.
func (m *Manager) mergeWithPrevious(logger *slog.Logger, item *queue.Item, result *engine.Result) {
	prev := m.loadPartial(item.ID)
	if prev == nil {
		return
	}

	byName := make(map[string]int, len(result.Images))
	for i, img := range result.Images {
		byName[strings.ToLower(img.OriginalFilename)] = i
	}
	for _, img := range prev.Images {
		key := strings.ToLower(img.OriginalFilename)
		if idx, ok := byName[key]; ok {
			result.Images[idx] = fillImageGaps(result.Images[idx], img)
			continue
		}
		result.Images = append(result.Images, img)
	}

	cmp := m.comparator
	sort.SliceStable(result.Images, func(i, j int) bool {
		return cmp.Compare(result.Images[i].OriginalFilename, result.Images[j].OriginalFilename) < 0
	})

	if result.GalleryID == "" {
		result.GalleryID = prev.GalleryID
		result.GalleryURL = prev.GalleryURL
	}
	result.UploadedBytes += prev.UploadedBytes

	logger.Debug("merged previous partial results",
		logging.Int("previous_images", len(prev.Images)),
		logging.Int("merged_images", len(result.Images)))
}

// fillImageGaps keeps current's populated fields and fills the empty ones
// from previous.
func fillImageGaps(current, previous engine.Image) engine.Image {
	if current.ImageID == "" {
		current.ImageID = previous.ImageID
	}
	if current.ImageURL == "" {
		current.ImageURL = previous.ImageURL
	}
	if current.ThumbURL == "" {
		current.ThumbURL = previous.ThumbURL
	}
	if current.BBCode == "" {
		current.BBCode = previous.BBCode
	}
	if current.SizeBytes == 0 {
		current.SizeBytes = previous.SizeBytes
	}
	return current
}

func (m *Manager) loadPartial(itemID int64) *partialState {
	raw, err := os.ReadFile(m.partialPath(itemID))
	if err != nil {
		return nil
	}
	var state partialState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil
	}
	return &state
}

// savePartial persists the run's merged image metadata for the next resume.
// Best-effort: a lost partial file only degrades the final artifact, never
// the upload.
func (m *Manager) savePartial(logger *slog.Logger, itemID int64, result *engine.Result) {
	state := partialState{
		GalleryID:     result.GalleryID,
		GalleryURL:    result.GalleryURL,
		UploadedBytes: result.UploadedBytes,
		Images:        result.Images,
	}
	path := m.partialPath(itemID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("failed to create partials directory", logging.Error(err))
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		logger.Warn("failed to encode partial results", logging.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("failed to persist partial results", logging.Error(err))
	}
}

func (m *Manager) clearPartial(itemID int64) {
	_ = os.Remove(m.partialPath(itemID))
}
