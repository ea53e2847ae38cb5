package rename

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"bbdrop/internal/services"
)

var pendingBucket = []byte("pending_renames")

// Entry records a gallery that still carries its host-generated placeholder
// name. Entries survive restarts so an interrupted run never strands an
// unnamed gallery.
type Entry struct {
	Host        string    `json:"host"`
	GalleryID   string    `json:"gallery_id"`
	GalleryName string    `json:"gallery_name"`
	QueuedAt    time.Time `json:"queued_at"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
}

// Ledger persists pending rename entries in a bbolt database.
type Ledger struct {
	db *bolt.DB
}

// OpenLedger opens (creating if needed) the pending-rename database at path.
func OpenLedger(path string) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "rename", "open ledger", "ledger path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "rename", "open ledger", "create data directory", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "rename", "open ledger", "open database", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pendingBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, services.Wrap(services.ErrConfiguration, "rename", "open ledger", "create bucket", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Put stores or replaces the entry for its host/gallery pair.
func (l *Ledger) Put(entry Entry) error {
	entry.Host = strings.TrimSpace(entry.Host)
	entry.GalleryID = strings.TrimSpace(entry.GalleryID)
	entry.GalleryName = strings.TrimSpace(entry.GalleryName)
	if entry.GalleryID == "" {
		return services.Wrap(services.ErrValidation, "rename", "put", "gallery id is empty", nil)
	}
	if entry.GalleryName == "" {
		return services.Wrap(services.ErrValidation, "rename", "put", "gallery name is empty", nil)
	}
	if entry.QueuedAt.IsZero() {
		entry.QueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return services.Wrap(services.ErrValidation, "rename", "put", "encode entry", err)
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Put(entryKey(entry.Host, entry.GalleryID), payload)
	})
}

// Remove deletes the entry for the host/gallery pair. Removing an absent
// entry is not an error.
func (l *Ledger) Remove(host, galleryID string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Delete(entryKey(strings.TrimSpace(host), strings.TrimSpace(galleryID)))
	})
}

// Pending returns every stored entry ordered by queue time.
func (l *Ledger) Pending() ([]Entry, error) {
	var entries []Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).ForEach(func(key, value []byte) error {
			var entry Entry
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("decode entry %s: %w", key, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "rename", "pending", "read ledger", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].QueuedAt.Equal(entries[j].QueuedAt) {
			return entries[i].GalleryID < entries[j].GalleryID
		}
		return entries[i].QueuedAt.Before(entries[j].QueuedAt)
	})
	return entries, nil
}

func entryKey(host, galleryID string) []byte {
	return []byte(host + "/" + galleryID)
}
