package imagehost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"bbdrop/internal/config"
	"bbdrop/internal/logging"
	"bbdrop/internal/services"
)

const (
	imxUploadPath     = "/upload.php"
	imxGalleryEditFmt = "%s/user/gallery/edit?id=%s"
	imxSessionCookie  = "PHPSESSID"
	imxGalleryNameMax = 255
)

// IMXClient talks to the imx.to upload API and web frontend. Uploads go to
// the JSON API authenticated by API key; gallery renames go through the web
// frontend authenticated by the configured session cookie.
type IMXClient struct {
	cfg    config.Host
	api    *resty.Client
	web    *resty.Client
	logger *slog.Logger
}

// NewIMX builds an imx.to client from host configuration.
func NewIMX(cfg config.Host, logger *slog.Logger) *IMXClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	api := newRestyClient(cfg)
	api.SetBaseURL(cfg.APIBaseURL)
	if cfg.APIKey != "" {
		api.SetHeader("X-API-Key", cfg.APIKey)
	}
	if cfg.SessionCookie != "" {
		api.SetCookie(&http.Cookie{Name: imxSessionCookie, Value: cfg.SessionCookie})
	}

	web := newRestyClient(cfg)
	web.SetBaseURL(cfg.BaseURL)
	if cfg.SessionCookie != "" {
		web.SetCookie(&http.Cookie{Name: imxSessionCookie, Value: cfg.SessionCookie})
	}

	return &IMXClient{
		cfg:    cfg,
		api:    api,
		web:    web,
		logger: logger.With(logging.String(logging.FieldComponent, "imagehost"), logging.String(logging.FieldHost, "imx")),
	}
}

// ID implements Client.
func (c *IMXClient) ID() string { return "imx" }

// WebURL implements Client.
func (c *IMXClient) WebURL() string { return c.cfg.BaseURL }

// Capabilities implements Client.
func (c *IMXClient) Capabilities() Capabilities {
	return Capabilities{
		MaxFileSizeMB:  c.cfg.MaxFileSizeMB,
		SupportsRename: true,
	}
}

type imxUploadData struct {
	ImageID          string `json:"image_id"`
	ImageURL         string `json:"image_url"`
	ThumbURL         string `json:"thumb_url"`
	GalleryID        string `json:"gallery_id"`
	OriginalFilename string `json:"original_filename"`
}

type imxUploadResponse struct {
	Status string        `json:"status"`
	Data   imxUploadData `json:"data"`
	Error  string        `json:"error"`
}

// UploadImage implements Client.
func (c *IMXClient) UploadImage(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	file, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	filename := filepath.Base(req.Path)
	form := map[string]string{
		"thumb_size":   strconv.Itoa(req.ThumbnailSize),
		"thumb_format": strconv.Itoa(req.ThumbnailFormat),
		"content_type": contentTypeOrDefault(req.ContentType),
	}
	if req.CreateGallery {
		form["create_gallery"] = "1"
		if req.GalleryName != "" {
			form["gallery_name"] = req.GalleryName
		}
	} else if req.GalleryID != "" {
		form["gallery_id"] = req.GalleryID
	}

	resp, err := c.api.R().
		SetContext(ctx).
		SetMultipartField("image", filename, mimeForImage(req.Path), newProgressReader(file, req.Progress)).
		SetMultipartFormData(form).
		Post(imxUploadPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "imx", "upload", filename, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		// Retrying with the same key cannot succeed.
		return nil, services.Wrap(services.ErrConfiguration, "imx", "upload", "API key rejected", nil)
	case code >= 500:
		return nil, services.Wrap(services.ErrTransient, "imx", "upload", fmt.Sprintf("%s: server returned %d", filename, code), nil)
	case code != http.StatusOK:
		return nil, services.Wrap(services.ErrHost, "imx", "upload", fmt.Sprintf("%s: server returned %d", filename, code), nil)
	}

	var payload imxUploadResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, services.Wrap(services.ErrHost, "imx", "upload", fmt.Sprintf("%s: response is not JSON: %s", filename, snippet(resp.String())), nil)
	}
	if payload.Status != "success" {
		message := payload.Error
		if message == "" {
			message = "upload rejected"
		}
		return nil, services.Wrap(services.ErrHost, "imx", "upload", fmt.Sprintf("%s: %s", filename, message), nil)
	}

	result := &UploadResult{
		ImageID:          payload.Data.ImageID,
		ImageURL:         payload.Data.ImageURL,
		ThumbURL:         payload.Data.ThumbURL,
		GalleryID:        payload.Data.GalleryID,
		OriginalFilename: payload.Data.OriginalFilename,
	}
	if result.OriginalFilename == "" {
		result.OriginalFilename = filename
	}
	return result, nil
}

// GalleryURL implements Client. imx gallery links do not embed the name.
func (c *IMXClient) GalleryURL(galleryID, galleryName string) string {
	return fmt.Sprintf("%s/g/%s", c.cfg.BaseURL, galleryID)
}

// ThumbnailURL implements ThumbnailURLProvider.
func (c *IMXClient) ThumbnailURL(imageID, ext string) string {
	return fmt.Sprintf("%s/u/t/%s%s", c.cfg.BaseURL, imageID, ext)
}

// SanitizeGalleryName implements NameSanitizer. imx gallery titles allow word
// characters, spaces, hyphens, and dots, capped at 255 characters.
func (c *IMXClient) SanitizeGalleryName(name string) string {
	return sanitizeName(name, imxGalleryNameMax)
}

// ClearAPICookies implements APICookieClearer. Cookies the API handed back
// during earlier batches are dropped; the configured session cookie is set on
// the client itself and survives.
func (c *IMXClient) ClearAPICookies() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	c.api.SetCookieJar(jar)
}

// RenameGallery implements GalleryRenamer by driving the web frontend's
// gallery edit form. It requires a valid session cookie.
func (c *IMXClient) RenameGallery(ctx context.Context, galleryID, galleryName string) error {
	if c.cfg.SessionCookie == "" {
		return services.Wrap(services.ErrConfiguration, "imx", "rename", "no session cookie configured", nil)
	}
	editURL := fmt.Sprintf(imxGalleryEditFmt, c.cfg.BaseURL, galleryID)

	resp, err := c.web.R().SetContext(ctx).Get(editURL)
	if err != nil {
		return services.Wrap(services.ErrTransient, "imx", "rename", "load edit form", err)
	}
	if resp.StatusCode() == http.StatusForbidden {
		return services.Wrap(services.ErrHost, "imx", "rename", "session rejected", nil)
	}
	// A dead session bounces the edit form to the login page.
	if strings.Contains(finalURLPath(resp), "login") {
		return services.Wrap(services.ErrHost, "imx", "rename", "session expired", nil)
	}
	if resp.StatusCode() != http.StatusOK {
		return services.Wrap(services.ErrHost, "imx", "rename", fmt.Sprintf("edit form returned %d", resp.StatusCode()), nil)
	}

	resp, err = c.web.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"gallery_name":       c.SanitizeGalleryName(galleryName),
			"submit_new_gallery": "Rename Gallery",
		}).
		Post(editURL)
	if err != nil {
		return services.Wrap(services.ErrTransient, "imx", "rename", "submit rename", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return services.Wrap(services.ErrHost, "imx", "rename", fmt.Sprintf("rename returned %d", resp.StatusCode()), nil)
	}

	c.logger.Debug("gallery renamed",
		logging.String(logging.FieldGalleryID, galleryID),
		logging.String("gallery_name", galleryName))
	return nil
}
