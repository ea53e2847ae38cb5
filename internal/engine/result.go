package engine

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"bbdrop/internal/imagehost"
	"bbdrop/internal/logging"
	"bbdrop/internal/scan"
)

// Image is one uploaded image in its final, canonical gallery position.
type Image struct {
	ImageID          string `json:"image_id,omitempty"`
	ImageURL         string `json:"image_url"`
	ThumbURL         string `json:"thumb_url"`
	BBCode           string `json:"bbcode,omitempty"`
	OriginalFilename string `json:"original_filename"`
	SizeBytes        int64  `json:"size_bytes"`
}

// FailedImage records one file that still failed after all retry passes.
type FailedImage struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Result is the engine's aggregated outcome for one run. Images are ordered
// by canonical folder position regardless of upload completion order.
// SuccessfulCount includes files resumed from earlier runs, so it can exceed
// len(Images).
type Result struct {
	GalleryID       string        `json:"gallery_id"`
	GalleryName     string        `json:"gallery_name"`
	GalleryURL      string        `json:"gallery_url"`
	Images          []Image       `json:"images"`
	SuccessfulCount int           `json:"successful_count"`
	FailedCount     int           `json:"failed_count"`
	Failed          []FailedImage `json:"failed,omitempty"`
	TotalImages     int           `json:"total_images"`
	TotalBytes      int64         `json:"total_bytes"`
	UploadedBytes   int64         `json:"uploaded_bytes"`
	BytesPerSecond  float64       `json:"bytes_per_second"`

	Dimensions scan.DimensionSummary `json:"dimensions"`

	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`

	ThumbnailSize   int    `json:"thumbnail_size"`
	ThumbnailFormat int    `json:"thumbnail_format"`
	Concurrency     int    `json:"concurrency"`
	TemplateName    string `json:"template_name"`
	ContentType     string `json:"content_type"`
}

// assemble orders this run's successes canonically, reconciles them with the
// host's batch results page when the client has one, and enriches each entry
// with sizes and backfilled thumbnail URLs. It returns the final image list
// and the bytes uploaded by the pool passes.
func (e *Engine) assemble(ctx context.Context, listing *scan.Listing, preseed *imageSuccess, successes []imageSuccess, galleryID, galleryURL *string, galleryName string) ([]Image, int64) {
	sort.SliceStable(successes, func(i, j int) bool {
		return canonicalPosition(listing, successes[i].file.Name) < canonicalPosition(listing, successes[j].file.Name)
	})

	ordered := make([]imageSuccess, 0, len(successes)+1)
	if preseed != nil {
		ordered = append(ordered, *preseed)
	}
	ordered = append(ordered, successes...)

	e.mergeBatchResults(ctx, ordered, galleryID, galleryURL, galleryName)

	var uploadedBytes int64
	images := make([]Image, 0, len(ordered))
	for i, success := range ordered {
		if preseed == nil || i > 0 {
			uploadedBytes += success.file.Size
		}
		images = append(images, e.buildImage(success))
	}
	return images, uploadedBytes
}

// mergeBatchResults performs the one post-run fetch for hosts that publish
// URLs and BBCode on a consolidated results page. Server-provided fields win;
// anything already present is kept when the page has no replacement. Fetch
// failures degrade to the per-upload data instead of failing the run.
func (e *Engine) mergeBatchResults(ctx context.Context, ordered []imageSuccess, galleryID, galleryURL *string, galleryName string) {
	fetcher, ok := e.client.(imagehost.BatchResultFetcher)
	if !ok {
		return
	}
	batch, err := fetcher.FetchBatchResults(ctx)
	if err != nil {
		e.logger.Warn("batch results fetch failed", logging.Error(err))
		return
	}
	if batch == nil {
		return
	}

	// The results page reports the host's canonical gallery id; uploads
	// only ever saw the ephemeral batch id.
	if id := strings.TrimSpace(batch.GalleryID); id != "" && id != *galleryID {
		*galleryID = id
		*galleryURL = e.client.GalleryURL(id, galleryName)
	}

	byName := make(map[string]imagehost.BatchImage, len(batch.Images))
	for _, img := range batch.Images {
		byName[strings.ToLower(img.OriginalFilename)] = img
	}
	for _, success := range ordered {
		key := strings.ToLower(success.data.OriginalFilename)
		if key == "" {
			key = strings.ToLower(success.file.Name)
		}
		img, ok := byName[key]
		if !ok {
			continue
		}
		if img.BBCode != "" {
			success.data.BBCode = img.BBCode
		}
		if img.ImageURL != "" {
			success.data.ImageURL = img.ImageURL
		}
		if img.ThumbURL != "" {
			success.data.ThumbURL = img.ThumbURL
		}
	}
}

func (e *Engine) buildImage(success imageSuccess) Image {
	data := success.data
	img := Image{
		ImageID:          data.ImageID,
		ImageURL:         data.ImageURL,
		ThumbURL:         data.ThumbURL,
		BBCode:           data.BBCode,
		OriginalFilename: data.OriginalFilename,
		SizeBytes:        success.file.Size,
	}
	if img.OriginalFilename == "" {
		img.OriginalFilename = normalizeFilename(success.file.Name)
	}
	if img.ThumbURL == "" && img.ImageURL != "" {
		img.ThumbURL = e.backfillThumbURL(img.ImageURL, img.OriginalFilename)
	}
	return img
}

// backfillThumbURL rebuilds a missing thumbnail link from the image URL's
// trailing id segment, for hosts whose thumbnails are addressable by id.
func (e *Engine) backfillThumbURL(imageURL, filename string) string {
	provider, ok := e.client.(imagehost.ThumbnailURLProvider)
	if !ok {
		return ""
	}
	segment := path.Base(strings.TrimRight(imageURL, "/"))
	imageID := strings.TrimSuffix(segment, path.Ext(segment))
	if imageID == "" || imageID == "." || imageID == "/" {
		return ""
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return provider.ThumbnailURL(imageID, ext)
}

func canonicalPosition(listing *scan.Listing, name string) int {
	if pos, ok := listing.Positions[name]; ok {
		return pos
	}
	return len(listing.All)
}

func normalizeFilename(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + strings.ToLower(ext)
}
