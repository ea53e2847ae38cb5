package imagehost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"bbdrop/internal/config"
	"bbdrop/internal/logging"
	"bbdrop/internal/services"
)

const (
	turboUploadPath     = "/upload_html5.tu"
	turboResultPath     = "/html5_upload_result.tu"
	turboThumbCDN       = "https://s8d8.turboimg.net/t1"
	turboSessionName    = "PHPSESSID"
	turboGalleryNameMax = 20

	turboResultAttempts = 3
)

// Turbo thumbnails are requested in pixels. The 1-6 host-agnostic codes map
// onto the widths the upload form offers.
var turboThumbSizes = map[int]int{
	1: 150,
	2: 200,
	3: 300,
	4: 400,
	5: 500,
	6: 600,
}

// TurboClient talks to turboimagehost.com. The host has no JSON API for
// image links; uploads return a bare success flag and the real URLs are
// scraped from the batch results page after the run.
type TurboClient struct {
	cfg    config.Host
	http   *resty.Client
	logger *slog.Logger

	mu sync.Mutex
	// batchUploadID groups uploads into a gallery. Every upload carrying
	// the same id lands in the same album on the host.
	batchUploadID string
}

// NewTurbo builds a turboimagehost.com client from host configuration.
func NewTurbo(cfg config.Host, logger *slog.Logger) *TurboClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := newRestyClient(cfg)
	client.SetBaseURL(cfg.BaseURL)
	if cfg.SessionCookie != "" {
		client.SetCookie(&http.Cookie{Name: turboSessionName, Value: cfg.SessionCookie})
	}
	return &TurboClient{
		cfg:    cfg,
		http:   client,
		logger: logger.With(logging.String(logging.FieldComponent, "imagehost"), logging.String(logging.FieldHost, "turbo")),
	}
}

// ID implements Client.
func (c *TurboClient) ID() string { return "turbo" }

// WebURL implements Client.
func (c *TurboClient) WebURL() string { return c.cfg.BaseURL }

// Capabilities implements Client. Galleries are named at creation time via
// the upload form; existing albums cannot be retitled.
func (c *TurboClient) Capabilities() Capabilities {
	return Capabilities{
		MaxFileSizeMB:  c.cfg.MaxFileSizeMB,
		SupportsRename: false,
	}
}

// UploadImage implements Client. A CreateGallery request opens a fresh batch
// id; subsequent uploads reuse it so the host groups them into one album.
func (c *TurboClient) UploadImage(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	file, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	filename := filepath.Base(req.Path)

	c.mu.Lock()
	if req.CreateGallery {
		c.batchUploadID = newBatchUploadID()
	}
	batchID := c.batchUploadID
	c.mu.Unlock()

	uploadID := batchID
	if uploadID == "" {
		uploadID = newBatchUploadID()
	}

	form := map[string]string{
		"upload_id":  uploadID,
		"thumb_size": strconv.Itoa(turboThumbPixels(req.ThumbnailSize)),
		"imcontent":  contentTypeOrDefault(req.ContentType),
	}
	if batchID != "" && req.GalleryName != "" {
		form["galleryAN"] = "1"
		form["galleryN"] = req.GalleryName
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Referer", c.cfg.BaseURL).
		SetHeader("Accept", "*/*").
		SetMultipartField("qqfile", filename, mimeForImage(req.Path), newProgressReader(file, req.Progress)).
		SetMultipartFormData(form).
		Post(turboUploadPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "turbo", "upload", filename, err)
	}
	if code := resp.StatusCode(); code != http.StatusOK {
		marker := services.ErrHost
		if code >= 500 {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "turbo", "upload", fmt.Sprintf("%s: server returned %d", filename, code), nil)
	}

	var payload struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, services.Wrap(services.ErrHost, "turbo", "upload", fmt.Sprintf("%s: response is not JSON: %s", filename, snippet(resp.String())), nil)
	}
	if !payload.Success {
		return nil, services.Wrap(services.ErrHost, "turbo", "upload", fmt.Sprintf("%s: upload rejected: %s", filename, snippet(resp.String())), nil)
	}

	// Image links only exist on the results page, fetched once after the
	// batch. The batch id stands in as the gallery id until then.
	return &UploadResult{
		GalleryID:        batchID,
		OriginalFilename: filename,
	}, nil
}

// FetchBatchResults implements BatchResultFetcher. The results page is the
// only source of image URLs and BBCode, so the fetch retries a few times
// before giving up.
func (c *TurboClient) FetchBatchResults(ctx context.Context) (*BatchResults, error) {
	c.mu.Lock()
	batchID := c.batchUploadID
	c.mu.Unlock()
	if batchID == "" {
		return &BatchResults{}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= turboResultAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("upload_id", batchID).
			Get(turboResultPath)
		if err != nil {
			lastErr = services.Wrap(services.ErrTransient, "turbo", "batch results", "", err)
			c.logger.Warn("batch results fetch failed",
				logging.Int("attempt", attempt),
				logging.Error(err))
			continue
		}
		if resp.StatusCode() != http.StatusOK {
			lastErr = services.Wrap(services.ErrHost, "turbo", "batch results", fmt.Sprintf("server returned %d", resp.StatusCode()), nil)
			c.logger.Warn("batch results fetch failed",
				logging.Int("attempt", attempt),
				logging.Int("status", resp.StatusCode()))
			continue
		}

		batch := parseTurboBatch(resp.String())
		c.logger.Debug("batch results parsed",
			logging.String(logging.FieldGalleryID, batch.GalleryID),
			logging.Int("image_count", len(batch.Images)))
		return batch, nil
	}
	return nil, lastErr
}

// GalleryURL implements Client. Album links may carry the title with spaces
// folded to underscores.
func (c *TurboClient) GalleryURL(galleryID, galleryName string) string {
	if galleryName != "" {
		return fmt.Sprintf("%s/album/%s/%s", c.cfg.BaseURL, galleryID, strings.ReplaceAll(galleryName, " ", "_"))
	}
	return fmt.Sprintf("%s/album/%s", c.cfg.BaseURL, galleryID)
}

// ThumbnailURL implements ThumbnailURLProvider.
func (c *TurboClient) ThumbnailURL(imageID, ext string) string {
	return fmt.Sprintf("%s/%s%s", turboThumbCDN, imageID, ext)
}

// SanitizeGalleryName implements NameSanitizer. Turbo album titles are much
// shorter than imx gallery titles.
func (c *TurboClient) SanitizeGalleryName(name string) string {
	return sanitizeName(name, turboGalleryNameMax)
}

// ClearAPICookies implements APICookieClearer. Only the batch id is dropped:
// the next CreateGallery starts a fresh album while the session survives.
func (c *TurboClient) ClearAPICookies() {
	c.mu.Lock()
	c.batchUploadID = ""
	c.mu.Unlock()
}

func turboThumbPixels(size int) int {
	if px, ok := turboThumbSizes[size]; ok {
		return px
	}
	// Values outside the code table are treated as raw pixels and clamped
	// to the range the upload form accepts.
	if size < 150 {
		return 150
	}
	if size > 600 {
		return 600
	}
	return size
}

// newBatchUploadID mints the 20-character lowercase id Turbo uses to group a
// batch into one album.
func newBatchUploadID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
