package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bbdrop/internal/config"
	"bbdrop/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.GalleryComplete(context.Background(), "Example", "https://imx.to/g/abc", 12, 1024); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "gallery complete",
			send: func(svc notifications.Service) error {
				return svc.GalleryComplete(context.Background(), "Vacation 2025", "https://imx.to/g/abc123", 42, 5<<20)
			},
			expectTitle:   "bbdrop - Gallery Complete",
			expectMessage: "Gallery uploaded: Vacation 2025 (42 images, 5.0 MiB)\nhttps://imx.to/g/abc123",
			expectTags:    "bbdrop,gallery,completed",
		},
		{
			name: "gallery incomplete",
			send: func(svc notifications.Service) error {
				return svc.GalleryIncomplete(context.Background(), "Vacation 2025", 10, 42)
			},
			expectTitle:   "bbdrop - Upload Paused",
			expectMessage: "Upload stopped: Vacation 2025 (10 of 42 images done, resumable)",
			expectTags:    "bbdrop,gallery,incomplete",
		},
		{
			name: "gallery failed",
			send: func(svc notifications.Service) error {
				return svc.GalleryFailed(context.Background(), "Vacation 2025", 3, "")
			},
			expectTitle:    "bbdrop - Upload Failed",
			expectMessage:  "Upload failed: Vacation 2025 (3 images did not upload)",
			expectTags:     "bbdrop,gallery,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.Error(context.Background(), errors.New("host unreachable"), "upload")
			},
			expectTitle:    "bbdrop - Error",
			expectMessage:  "Error with upload: host unreachable",
			expectTags:     "bbdrop,error,alert",
			expectPriority: "high",
		},
		{
			name: "test",
			send: func(svc notifications.Service) error {
				return svc.Test(context.Background())
			},
			expectTitle:    "bbdrop - Test",
			expectMessage:  "Notification system test",
			expectTags:     "bbdrop,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsCategoryToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed category: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Uploads = false
	cfg.Notifications.Errors = false
	cfg.Notifications.QueueEmpty = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.GalleryComplete(ctx, "g", "", 1, 1); err != nil {
		t.Fatalf("suppressed GalleryComplete returned error: %v", err)
	}
	if err := svc.GalleryIncomplete(ctx, "g", 1, 2); err != nil {
		t.Fatalf("suppressed GalleryIncomplete returned error: %v", err)
	}
	if err := svc.GalleryFailed(ctx, "g", 1, "boom"); err != nil {
		t.Fatalf("suppressed GalleryFailed returned error: %v", err)
	}
	if err := svc.Error(ctx, errors.New("boom"), "upload"); err != nil {
		t.Fatalf("suppressed Error returned error: %v", err)
	}
	if err := svc.QueueEmpty(ctx, 3, 0); err != nil {
		t.Fatalf("suppressed QueueEmpty returned error: %v", err)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Test(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
