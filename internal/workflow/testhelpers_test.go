package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"bbdrop/internal/imagehost"
	"bbdrop/internal/queue"
)

// fakeHost is a scriptable imagehost.Client shared by the manager tests.
type fakeHost struct {
	delay time.Duration

	mu           sync.Mutex
	uploads      []string
	failuresLeft map[string]int
	failCreate   bool
	nextGallery  int
}

func (h *fakeHost) ID() string     { return "imx" }
func (h *fakeHost) WebURL() string { return "https://fake.example" }

func (h *fakeHost) Capabilities() imagehost.Capabilities {
	return imagehost.Capabilities{SupportsRename: false}
}

func (h *fakeHost) GalleryURL(galleryID, galleryName string) string {
	return "https://fake.example/g/" + galleryID
}

func (h *fakeHost) UploadImage(ctx context.Context, req imagehost.UploadRequest) (*imagehost.UploadResult, error) {
	name := filepath.Base(req.Path)

	h.mu.Lock()
	h.uploads = append(h.uploads, name)
	fail := h.failCreate && req.CreateGallery
	if !fail && h.failuresLeft[name] > 0 {
		h.failuresLeft[name]--
		fail = true
	}
	h.mu.Unlock()

	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	if fail {
		return nil, errors.New("simulated upload failure")
	}

	result := &imagehost.UploadResult{
		ImageURL:         "https://fake.example/i/" + name,
		ThumbURL:         "https://fake.example/t/" + name,
		OriginalFilename: name,
	}
	if req.CreateGallery {
		h.mu.Lock()
		h.nextGallery++
		result.GalleryID = fmt.Sprintf("g-%d", h.nextGallery)
		h.mu.Unlock()
	}
	return result, nil
}

func (h *fakeHost) uploadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.uploads)
}

// fakeHosts resolves every id to the same fake client.
type fakeHosts struct {
	client imagehost.Client
}

func (s fakeHosts) Get(id string) (imagehost.Client, error) {
	if s.client == nil {
		return nil, fmt.Errorf("host %q is not enabled", id)
	}
	return s.client, nil
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(event string) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) has(prefix string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, event := range n.events {
		if strings.HasPrefix(event, prefix) {
			return true
		}
	}
	return false
}

func (n *recordingNotifier) GalleryComplete(_ context.Context, name, url string, images int, bytes int64) error {
	n.record(fmt.Sprintf("complete:%s:%d", name, images))
	return nil
}

func (n *recordingNotifier) GalleryIncomplete(_ context.Context, name string, uploaded, total int) error {
	n.record(fmt.Sprintf("incomplete:%s:%d/%d", name, uploaded, total))
	return nil
}

func (n *recordingNotifier) GalleryFailed(_ context.Context, name string, failed int, cause string) error {
	n.record(fmt.Sprintf("failed:%s:%d", name, failed))
	return nil
}

func (n *recordingNotifier) QueueEmpty(_ context.Context, processed int, _ time.Duration) error {
	n.record(fmt.Sprintf("queue_empty:%d", processed))
	return nil
}

func (n *recordingNotifier) Error(_ context.Context, err error, label string) error {
	n.record("error:" + label)
	return nil
}

func (n *recordingNotifier) Test(context.Context) error {
	n.record("test")
	return nil
}

// waitForStatus polls the store until the item reaches one of the wanted
// statuses or the deadline passes.
func waitForStatus(t *testing.T, store *queue.Store, id int64, timeout time.Duration, want ...queue.Status) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		for _, status := range want {
			if item != nil && item.Status == status {
				return item
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	item, _ := store.GetByID(context.Background(), id)
	got := "missing"
	if item != nil {
		got = string(item.Status)
	}
	t.Fatalf("item %d never reached %v; last status %s", id, want, got)
	return nil
}
