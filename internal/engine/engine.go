package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/dustin/go-humanize"

	"bbdrop/internal/imagehost"
	"bbdrop/internal/logging"
	"bbdrop/internal/naturalsort"
	"bbdrop/internal/rename"
	"bbdrop/internal/scan"
	"bbdrop/internal/services"
)

// Request carries everything one gallery upload run needs. It is treated as
// immutable for the duration of the run.
type Request struct {
	// FolderPath is the local folder whose images form the gallery.
	FolderPath string
	// GalleryName is the desired gallery title. Empty defaults to the
	// folder's base name.
	GalleryName string
	// ThumbnailSize and ThumbnailFormat are the host-agnostic codes passed
	// through to the client.
	ThumbnailSize   int
	ThumbnailFormat int
	// MaxRetries bounds how many extra passes re-attempt failed files.
	MaxRetries int
	// Concurrency is the upload worker pool size.
	Concurrency int
	// TemplateName is echoed into the result for artifact generation.
	TemplateName string
	// ContentType is the host content rating filter.
	ContentType string
	// AlreadyUploaded lists file names a previous run uploaded. They are
	// skipped but still counted toward completion totals.
	AlreadyUploaded []string
	// ExistingGalleryID resumes or appends into a known gallery instead of
	// creating one.
	ExistingGalleryID string
	// GalleryNamed reports that a resumed gallery already carries its
	// user-chosen name, suppressing the rename hand-off.
	GalleryNamed bool
	// ExcludeFile names one file to leave out of the gallery, such as a
	// cover uploaded separately.
	ExcludeFile string
	// Dimensions carries the folder's precomputed dimension summary. The
	// engine never decodes images itself.
	Dimensions *scan.DimensionSummary
	// Comparator defines the canonical file order. Callers that sort or
	// merge results outside the engine must pass the same comparator here,
	// or resumed runs can assemble a different order than uninterrupted
	// ones. Nil selects the generic natural-sort comparator.
	Comparator naturalsort.Comparator

	// OnProgress, when non-nil, observes every completed upload as
	// (completed, total, percent, filename).
	OnProgress func(completed, total, percent int, filename string)
	// ShouldSoftStop is polled after each completion; once it reports true
	// no further uploads are submitted, though in-flight ones finish.
	ShouldSoftStop func() bool
	// OnImageUploaded fires once per successfully uploaded file so callers
	// can persist resume state incrementally.
	OnImageUploaded func(filename string, image *imagehost.UploadResult, sizeBytes int64)
}

// Engine uploads a folder of images as one gallery: create the gallery via
// the first image, fan the rest across a bounded worker pool, retry failures,
// reconcile batch results, and assemble a deterministic ordered result.
type Engine struct {
	client  imagehost.Client
	renames rename.Handoff
	counter *ByteCounter
	logger  *slog.Logger
}

// New builds an engine around the given host client. The rename handoff may
// be nil when no rename collaborator is configured; counter may be nil to
// give the run its own.
func New(client imagehost.Client, renames rename.Handoff, counter *ByteCounter, logger *slog.Logger) *Engine {
	if counter == nil {
		counter = NewByteCounter()
	}
	return &Engine{
		client:  client,
		renames: renames,
		counter: counter,
		logger: logging.NewComponentLogger(logger, "engine").With(
			logging.String(logging.FieldHost, client.ID())),
	}
}

// Run executes one gallery upload and returns the assembled result. Fatal
// conditions (missing folder, nothing to upload, first-image failure) return
// an error; per-file failures are reported inside the result instead.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	folder := strings.TrimSpace(req.FolderPath)
	if folder == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "run", "folder path is empty", nil)
	}
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, "engine", "run", fmt.Sprintf("folder not found: %s", folder), err)
	}
	if req.Concurrency < 1 {
		req.Concurrency = 1
	}
	if req.MaxRetries < 0 {
		req.MaxRetries = 0
	}

	caps := e.client.Capabilities()
	listing, err := scan.ListImages(folder, scan.Options{
		MaxFileSizeMB: caps.MaxFileSizeMB,
		Exclude:       excludeList(req.ExcludeFile),
		Uploaded:      req.AlreadyUploaded,
		Comparator:    req.Comparator,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "engine", "run", "enumerate folder", err)
	}
	for _, file := range listing.Oversized {
		e.logger.Warn("skipping oversized file",
			logging.String("file", file.Name),
			logging.Int64("size_bytes", file.Size),
			logging.Int("limit_mb", caps.MaxFileSizeMB))
	}

	totalImages := len(listing.Work) + len(listing.Resumed)
	if len(listing.All)-len(listing.Excluded) == 0 {
		return nil, services.Wrap(services.ErrValidation, "engine", "run", fmt.Sprintf("no image files found in %s", folder), nil)
	}
	if len(listing.Work) == 0 && strings.TrimSpace(req.ExistingGalleryID) == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "run", "no files to upload", nil)
	}

	requestedName := strings.TrimSpace(req.GalleryName)
	if requestedName == "" {
		requestedName = filepath.Base(folder)
	}
	galleryName := imagehost.SanitizeGalleryName(e.client, requestedName)
	if galleryName != requestedName {
		e.logger.Debug("sanitized gallery name",
			logging.String("requested", requestedName),
			logging.String("gallery_name", galleryName))
	}

	st := &runState{
		req:         &req,
		galleryName: galleryName,
		total:       totalImages,
	}

	var (
		preseed      *imageSuccess
		initialBytes int64
		work         = listing.Work
		currentFile  string
	)

	st.galleryID = strings.TrimSpace(req.ExistingGalleryID)
	if st.galleryID != "" {
		st.completed = len(listing.Resumed)
		e.logger.Info("resuming gallery",
			logging.String(logging.FieldGalleryID, st.galleryID),
			logging.Int("resumed", len(listing.Resumed)),
			logging.Int("remaining", len(work)))
		if len(work) > 0 {
			currentFile = work[0].Name
		}
	} else {
		// A stale batch id from a previous run would fold this gallery
		// into the old one.
		if clearer, ok := e.client.(imagehost.APICookieClearer); ok {
			clearer.ClearAPICookies()
		}
		first := work[0]
		currentFile = first.Name
		e.logger.Info("uploading first image to create gallery", logging.String("file", first.Name))
		firstStart := time.Now()
		data, err := e.client.UploadImage(ctx, e.uploadRequest(st, first, true))
		if err != nil {
			return nil, services.Wrap(services.ErrGalleryCreate, "engine", "create gallery", fmt.Sprintf("first image %s", first.Name), err)
		}
		st.galleryID = data.GalleryID
		preseed = &imageSuccess{file: first, data: data}
		work = work[1:]
		st.completed = 1
		initialBytes = first.Size
		e.logger.Debug("uploaded",
			logging.String("file", first.Path),
			logging.Duration("elapsed", time.Since(firstStart)),
			logging.String("url", data.ImageURL))
		e.emitUploaded(&req, first, data)
	}

	galleryURL := e.client.GalleryURL(st.galleryID, galleryName)
	e.queueRename(&req, caps, st.galleryID, galleryName)
	e.emitProgress(st, currentFile)

	successes, failures, stopped := e.runPass(ctx, st, work)

	for retry := 1; len(failures) > 0 && retry <= req.MaxRetries && !stopped && !softStopRequested(&req); retry++ {
		e.logger.Info("retrying failed uploads",
			logging.Int("failed", len(failures)),
			logging.Int("attempt", retry),
			logging.Int("max_retries", req.MaxRetries))
		retrySucceeded, retryFailed, retryStopped := e.runPass(ctx, st, filesFor(listing, failures))
		successes = append(successes, retrySucceeded...)
		failures = retryFailed
		stopped = retryStopped
	}

	images, uploadedBytes := e.assemble(ctx, listing, preseed, successes, &st.galleryID, &galleryURL, galleryName)
	uploadedBytes += initialBytes

	elapsed := time.Since(started)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(uploadedBytes) / elapsed.Seconds()
	}

	var dims scan.DimensionSummary
	if req.Dimensions != nil {
		dims = *req.Dimensions
	} else {
		e.logger.Warn("no precomputed dimensions provided; dimension stats will be zero")
	}

	result := &Result{
		GalleryID:       st.galleryID,
		GalleryName:     requestedName,
		GalleryURL:      galleryURL,
		Images:          images,
		SuccessfulCount: st.completed,
		FailedCount:     len(failures),
		Failed:          failures,
		TotalImages:     totalImages,
		TotalBytes:      listing.WorkBytes + resumedBytes(listing),
		UploadedBytes:   uploadedBytes,
		BytesPerSecond:  rate,
		Dimensions:      dims,
		StartedAt:       started,
		Elapsed:         elapsed,
		ThumbnailSize:   req.ThumbnailSize,
		ThumbnailFormat: req.ThumbnailFormat,
		Concurrency:     req.Concurrency,
		TemplateName:    req.TemplateName,
		ContentType:     req.ContentType,
	}

	e.logCompletion(result)
	return result, nil
}

func (e *Engine) uploadRequest(st *runState, file scan.FileInfo, create bool) imagehost.UploadRequest {
	up := imagehost.UploadRequest{
		Path:            file.Path,
		GalleryName:     st.galleryName,
		ThumbnailSize:   st.req.ThumbnailSize,
		ThumbnailFormat: st.req.ThumbnailFormat,
		ContentType:     st.req.ContentType,
		Progress:        e.counter.DeltaFunc(),
	}
	if create {
		up.CreateGallery = true
	} else {
		up.GalleryID = st.galleryID
	}
	return up
}

func (e *Engine) queueRename(req *Request, caps imagehost.Capabilities, galleryID, galleryName string) {
	if !caps.SupportsRename || galleryID == "" || galleryName == "" {
		return
	}
	if req.ExistingGalleryID != "" && req.GalleryNamed {
		return
	}
	if e.renames == nil {
		e.logger.Warn("no rename collaborator configured; gallery keeps its placeholder name",
			logging.String(logging.FieldGalleryID, galleryID),
			logging.String("gallery_name", galleryName))
		return
	}
	e.renames.QueueRename(galleryID, galleryName)
	e.logger.Debug("queued gallery rename",
		logging.String(logging.FieldGalleryID, galleryID),
		logging.String("gallery_name", galleryName))
}

func (e *Engine) emitProgress(st *runState, filename string) {
	if st.req.OnProgress == nil {
		return
	}
	total := st.total
	if total < 1 {
		total = 1
	}
	st.req.OnProgress(st.completed, st.total, st.completed*100/total, filename)
}

func (e *Engine) emitUploaded(req *Request, file scan.FileInfo, data *imagehost.UploadResult) {
	if req.OnImageUploaded != nil {
		req.OnImageUploaded(file.Name, data, file.Size)
	}
}

func (e *Engine) logCompletion(result *Result) {
	if result.FailedCount > 0 {
		e.logger.Warn("gallery completed with failures",
			logging.String(logging.FieldGalleryID, result.GalleryID),
			logging.Int("successful", result.SuccessfulCount),
			logging.Int("total", result.TotalImages),
			logging.Int("failed", result.FailedCount),
			logging.Duration("elapsed", result.Elapsed))
		for _, failure := range result.Failed {
			e.logger.Warn("upload failed",
				logging.String("file", failure.Filename),
				logging.String("reason", failure.Reason))
		}
		return
	}
	e.logger.Info("gallery uploaded",
		logging.String(logging.FieldGalleryID, result.GalleryID),
		logging.String("gallery_name", result.GalleryName),
		logging.Int("images", result.SuccessfulCount),
		logging.String("size", humanize.IBytes(uint64(result.UploadedBytes))),
		logging.String("rate", humanize.IBytes(uint64(result.BytesPerSecond))+"/s"),
		logging.Duration("elapsed", result.Elapsed))
}

func softStopRequested(req *Request) bool {
	return req.ShouldSoftStop != nil && req.ShouldSoftStop()
}

func excludeList(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return []string{name}
}

func resumedBytes(listing *scan.Listing) int64 {
	var total int64
	for _, file := range listing.Resumed {
		total += file.Size
	}
	return total
}

func filesFor(listing *scan.Listing, failures []FailedImage) []scan.FileInfo {
	byName := make(map[string]scan.FileInfo, len(listing.All))
	for _, file := range listing.All {
		byName[file.Name] = file
	}
	files := make([]scan.FileInfo, 0, len(failures))
	for _, failure := range failures {
		if file, ok := byName[failure.Filename]; ok {
			files = append(files, file)
		}
	}
	return files
}
