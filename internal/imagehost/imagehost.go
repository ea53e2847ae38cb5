package imagehost

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"bbdrop/internal/config"
	"bbdrop/internal/services"
)

// ProgressFunc receives the absolute number of request bytes written so far
// for the file currently uploading. Implementations may be called from the
// uploading goroutine at arbitrary intervals and must be fast.
type ProgressFunc func(sent int64)

// UploadRequest describes a single image upload.
type UploadRequest struct {
	// Path is the local image file to upload.
	Path string
	// CreateGallery asks the host to open a new gallery with this upload.
	// When set, GalleryID is ignored and GalleryName (if any) names the
	// new gallery.
	CreateGallery bool
	// GalleryID attaches the upload to an existing gallery.
	GalleryID string
	// GalleryName is the desired gallery title. Hosts that cannot name a
	// gallery at creation time ignore it.
	GalleryName string
	// ThumbnailSize is the host-agnostic 1-6 size code. Clients translate
	// it into whatever their API expects.
	ThumbnailSize int
	// ThumbnailFormat is the host-agnostic 1-3 format code.
	ThumbnailFormat int
	// ContentType is the host content rating ("all", "family", "adult").
	ContentType string
	// Progress, when non-nil, observes upload progress for this file.
	Progress ProgressFunc
}

// UploadResult is the normalized outcome of a successful upload. Hosts that
// defer link generation to a batch results page leave the URL fields empty;
// the engine backfills them from FetchBatchResults.
type UploadResult struct {
	ImageID          string
	ImageURL         string
	ThumbURL         string
	GalleryID        string
	OriginalFilename string
	BBCode           string
}

// Capabilities reports static host limits the engine consults before and
// during a run.
type Capabilities struct {
	// MaxFileSizeMB is the host per-file ceiling in megabytes. Zero means
	// the host imposes no limit.
	MaxFileSizeMB int
	// SupportsRename reports whether finished galleries can be renamed
	// after the fact.
	SupportsRename bool
}

// Client is the surface every image host exposes to the upload engine.
type Client interface {
	// ID returns the stable host identifier ("imx", "turbo").
	ID() string
	// WebURL returns the host web root for display purposes.
	WebURL() string
	// UploadImage uploads one file and returns the normalized result.
	UploadImage(ctx context.Context, req UploadRequest) (*UploadResult, error)
	// GalleryURL renders the public URL for a gallery. galleryName may be
	// empty; hosts that do not embed the name ignore it.
	GalleryURL(galleryID, galleryName string) string
	// Capabilities reports the host limits.
	Capabilities() Capabilities
}

// NameSanitizer is implemented by hosts that restrict gallery names. The
// engine sanitizes through the host before creating or renaming a gallery.
type NameSanitizer interface {
	SanitizeGalleryName(name string) string
}

// ThumbnailURLProvider is implemented by hosts whose thumbnail links can be
// derived from an image ID, letting resumed runs rebuild missing thumb URLs.
type ThumbnailURLProvider interface {
	ThumbnailURL(imageID, ext string) string
}

// APICookieClearer is implemented by hosts that accumulate per-batch state.
// The engine clears it once before the first upload of a run.
type APICookieClearer interface {
	ClearAPICookies()
}

// BatchResultFetcher is implemented by hosts that publish image links on a
// separate results page after the batch finishes uploading.
type BatchResultFetcher interface {
	FetchBatchResults(ctx context.Context) (*BatchResults, error)
}

// GalleryRenamer is implemented by hosts that can retitle an existing
// gallery. The rename worker drives this interface asynchronously.
type GalleryRenamer interface {
	RenameGallery(ctx context.Context, galleryID, galleryName string) error
}

// BatchResults carries everything a host's results page reveals about the
// finished batch.
type BatchResults struct {
	// GalleryID is the host's canonical gallery identifier when the page
	// exposes one. Empty when unknown.
	GalleryID string
	Images    []BatchImage
}

// BatchImage is one image row from a batch results page.
type BatchImage struct {
	OriginalFilename string
	BBCode           string
	ImageURL         string
	ThumbURL         string
}

// SanitizeGalleryName runs the host's name rules when it has any, otherwise
// returns the trimmed name unchanged.
func SanitizeGalleryName(client Client, name string) string {
	if s, ok := client.(NameSanitizer); ok {
		return s.SanitizeGalleryName(name)
	}
	return strings.TrimSpace(name)
}

// Registry holds the configured host clients keyed by identifier.
type Registry struct {
	clients map[string]Client
}

// NewRegistry builds clients for every enabled host in the configuration.
func NewRegistry(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "imagehost", "registry", "configuration is required", nil)
	}
	clients := make(map[string]Client)
	for _, id := range cfg.EnabledHosts() {
		hostCfg, ok := cfg.HostConfig(id)
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "imagehost", "registry", fmt.Sprintf("unknown host %q", id), nil)
		}
		client, err := newClient(id, hostCfg, logger)
		if err != nil {
			return nil, err
		}
		clients[id] = client
	}
	if len(clients) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "imagehost", "registry", "no image hosts enabled", nil)
	}
	return &Registry{clients: clients}, nil
}

func newClient(id string, hostCfg config.Host, logger *slog.Logger) (Client, error) {
	switch id {
	case "imx":
		return NewIMX(hostCfg, logger), nil
	case "turbo":
		return NewTurbo(hostCfg, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "imagehost", "registry", fmt.Sprintf("no client implementation for host %q", id), nil)
	}
}

// Get returns the client for the named host.
func (r *Registry) Get(id string) (Client, error) {
	client, ok := r.clients[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "imagehost", "registry", fmt.Sprintf("host %q is not enabled", id), nil)
	}
	return client, nil
}

// IDs returns the enabled host identifiers in stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
