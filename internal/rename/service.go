package rename

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"bbdrop/internal/imagehost"
	"bbdrop/internal/logging"
	"bbdrop/internal/services"
)

const (
	queueCapacity = 64
	renameTimeout = 30 * time.Second
)

// Handoff is the fire-and-forget queue surface the upload engine hands
// gallery-naming work to. Implementations never block and never fail the
// caller.
type Handoff interface {
	QueueRename(galleryID, galleryName string)
}

// ClientSource resolves enabled image-host clients by id.
// *imagehost.Registry satisfies this.
type ClientSource interface {
	Get(id string) (imagehost.Client, error)
}

type request struct {
	host        string
	galleryID   string
	galleryName string
	attempts    int
}

// Service renames galleries asynchronously so naming failures never block or
// fail an upload run. A single worker goroutine drains the queue; anything it
// cannot complete is parked in the ledger for a later pass.
type Service struct {
	clients ClientSource
	ledger  *Ledger
	logger  *slog.Logger
	timeout time.Duration

	requests chan request

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService builds a rename service backed by the given host source and
// ledger. The ledger may be nil, in which case unprocessable renames are
// dropped with a warning instead of persisted.
func NewService(clients ClientSource, ledger *Ledger, logger *slog.Logger) *Service {
	return &Service{
		clients:  clients,
		ledger:   ledger,
		logger:   logging.NewComponentLogger(logger, "rename"),
		timeout:  renameTimeout,
		requests: make(chan request, queueCapacity),
	}
}

// Start launches the worker goroutine.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("rename service unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("rename service already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop halts the worker and drains any unprocessed queue entries into the
// ledger so they survive the shutdown.
func (s *Service) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	for {
		select {
		case req := <-s.requests:
			s.persist(req, "worker stopped before processing")
		default:
			return
		}
	}
}

// QueueRename enqueues a rename without blocking. Empty ids or names are
// dropped. When the worker is stopped or the queue is full the pair goes
// straight to the ledger.
func (s *Service) QueueRename(host, galleryID, galleryName string) {
	if s == nil {
		return
	}
	req := request{
		host:        strings.ToLower(strings.TrimSpace(host)),
		galleryID:   strings.TrimSpace(galleryID),
		galleryName: strings.TrimSpace(galleryName),
	}
	if req.galleryID == "" || req.galleryName == "" {
		return
	}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if running {
		select {
		case s.requests <- req:
			return
		default:
			s.persist(req, "rename queue full")
			return
		}
	}
	s.persist(req, "worker not running")
}

// ForHost binds the service to one host id, yielding the two-argument queue
// surface the engine expects.
func (s *Service) ForHost(hostID string) Handoff {
	return hostHandoff{svc: s, host: strings.ToLower(strings.TrimSpace(hostID))}
}

// ProcessPending retries every ledger entry once, removing successes. It
// returns how many galleries were renamed and how many remain parked.
func (s *Service) ProcessPending(ctx context.Context) (renamed, remaining int, err error) {
	if s == nil || s.ledger == nil {
		return 0, 0, nil
	}
	entries, err := s.ledger.Pending()
	if err != nil {
		return 0, 0, err
	}
	for i, entry := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return renamed, remaining + len(entries) - i, ctxErr
		}
		renameErr := s.rename(ctx, entry.Host, entry.GalleryID, entry.GalleryName)
		if renameErr == nil {
			if removeErr := s.ledger.Remove(entry.Host, entry.GalleryID); removeErr != nil {
				s.logger.Warn("remove renamed ledger entry", logging.Error(removeErr), logging.String(logging.FieldGalleryID, entry.GalleryID))
			}
			renamed++
			s.logger.Info("pending gallery renamed",
				logging.String(logging.FieldHost, entry.Host),
				logging.String(logging.FieldGalleryID, entry.GalleryID),
				logging.String("gallery_name", entry.GalleryName))
			continue
		}
		entry.Attempts++
		entry.LastError = renameErr.Error()
		if putErr := s.ledger.Put(entry); putErr != nil {
			s.logger.Warn("update pending rename", logging.Error(putErr), logging.String(logging.FieldGalleryID, entry.GalleryID))
		}
		remaining++
		s.logger.Warn("pending rename still failing",
			logging.Error(renameErr),
			logging.String(logging.FieldHost, entry.Host),
			logging.String(logging.FieldGalleryID, entry.GalleryID),
			logging.Int("attempts", entry.Attempts))
	}
	return renamed, remaining, nil
}

func (s *Service) loop() {
	defer s.wg.Done()

	for {
		// Check shutdown first so queued requests are left for Stop to
		// drain into the ledger instead of being attempted with a
		// canceled context.
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		select {
		case <-s.ctx.Done():
			return
		case req := <-s.requests:
			s.process(s.ctx, req)
		}
	}
}

func (s *Service) process(ctx context.Context, req request) {
	err := s.rename(ctx, req.host, req.galleryID, req.galleryName)
	if err == nil {
		if s.ledger != nil {
			if removeErr := s.ledger.Remove(req.host, req.galleryID); removeErr != nil {
				s.logger.Warn("remove renamed ledger entry", logging.Error(removeErr), logging.String(logging.FieldGalleryID, req.galleryID))
			}
		}
		s.logger.Debug("gallery renamed",
			logging.String(logging.FieldHost, req.host),
			logging.String(logging.FieldGalleryID, req.galleryID),
			logging.String("gallery_name", req.galleryName))
		return
	}
	req.attempts++
	s.persist(req, err.Error())
	s.logger.Warn("gallery rename failed; parked in ledger",
		logging.Error(err),
		logging.String(logging.FieldHost, req.host),
		logging.String(logging.FieldGalleryID, req.galleryID))
}

func (s *Service) rename(ctx context.Context, host, galleryID, galleryName string) error {
	if s.clients == nil {
		return services.Wrap(services.ErrConfiguration, "rename", "resolve host", "no host registry configured", nil)
	}
	client, err := s.clients.Get(host)
	if err != nil {
		return err
	}
	renamer, ok := client.(imagehost.GalleryRenamer)
	if !ok {
		return services.Wrap(services.ErrConfiguration, "rename", "resolve host", fmt.Sprintf("host %q cannot rename galleries", host), nil)
	}
	renameCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return renamer.RenameGallery(renameCtx, galleryID, galleryName)
}

func (s *Service) persist(req request, cause string) {
	if s.ledger == nil {
		s.logger.Warn("rename dropped; no ledger configured",
			logging.String(logging.FieldHost, req.host),
			logging.String(logging.FieldGalleryID, req.galleryID))
		return
	}
	entry := Entry{
		Host:        req.host,
		GalleryID:   req.galleryID,
		GalleryName: req.galleryName,
		Attempts:    req.attempts,
		LastError:   cause,
	}
	if err := s.ledger.Put(entry); err != nil {
		s.logger.Warn("persist pending rename", logging.Error(err), logging.String(logging.FieldGalleryID, req.galleryID))
	}
}

type hostHandoff struct {
	svc  *Service
	host string
}

func (h hostHandoff) QueueRename(galleryID, galleryName string) {
	h.svc.QueueRename(h.host, galleryID, galleryName)
}
