package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle state of a queued gallery.
type Status string

const (
	// StatusPending marks galleries waiting for an upload slot.
	StatusPending Status = "pending"
	// StatusUploading marks the gallery currently holding the upload slot.
	StatusUploading Status = "uploading"
	// StatusCompleted marks galleries whose every image reached the host.
	StatusCompleted Status = "completed"
	// StatusIncomplete marks galleries interrupted by a soft stop. The resume
	// set on the item lets a later run pick up where this one left off.
	StatusIncomplete Status = "incomplete"
	// StatusFailed marks galleries that finished with upload failures or a
	// fatal error.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusUploading,
	StatusCompleted,
	StatusIncomplete,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsRetryable reports whether items in this status may be re-queued.
func (s Status) IsRetryable() bool {
	return s == StatusIncomplete || s == StatusFailed
}

// Item represents a queued gallery persisted in SQLite. UploadedFilesJSON is
// the resume set: filenames recorded there are skipped on the next run, and
// the stored gallery id keeps those uploads flowing into the same gallery.
type Item struct {
	ID                int64
	FolderPath        string
	GalleryName       string
	Host              string
	TemplateName      string
	Status            Status
	GalleryID         string
	GalleryURL        string
	TotalImages       int
	UploadedImages    int
	TotalBytes        int64
	UploadedBytes     int64
	UploadedFilesJSON string
	FailuresJSON      string
	ErrorMessage      string
	ProgressPercent   float64
	ProgressMessage   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	LastHeartbeat     *time.Time
}

// IsProcessing returns true when the item currently holds the upload slot.
func (i Item) IsProcessing() bool {
	return i.Status == StatusUploading
}

// SetProgress updates both display progress fields atomically.
func (i *Item) SetProgress(percent float64, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	i.ProgressPercent = percent
	i.ProgressMessage = message
}

// SetFailed marks the item as failed with the given error message.
// Clears the heartbeat so stale-item sweeps ignore it.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressMessage = message
	i.LastHeartbeat = nil
}

// UploadedFileList decodes the resume set persisted on the item. Corrupt or
// empty payloads decode to nil so a bad row degrades to a full re-upload.
func (i Item) UploadedFileList() []string {
	return decodeFileList(i.UploadedFilesJSON)
}

func decodeFileList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var files []string
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil
	}
	return files
}

// SetUploadedFileList replaces the persisted resume set.
func (i *Item) SetUploadedFileList(files []string) {
	if len(files) == 0 {
		i.UploadedFilesJSON = ""
		return
	}
	data, err := json.Marshal(files)
	if err != nil {
		return
	}
	i.UploadedFilesJSON = string(data)
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Uploading  int
	Completed  int
	Incomplete int
	Failed     int
}
