// Package uploader turns local files into upload payloads and sends them
// through a transport with bounded concurrency.
package uploader

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"uploadq/internal/dataurl"
	"uploadq/internal/exif"
	"uploadq/internal/imaging"
	"uploadq/internal/metrics"
	"uploadq/internal/model"
	"uploadq/internal/transport"
)

// ServerErrorMessage is recorded on a file whose upload failed below the
// server contract (network, protocol, unreadable reply).
const ServerErrorMessage = "Could not upload file - server error"

var (
	ErrNoTransport   = errors.New("no transport configured")
	ErrUnknownRecord = errors.New("record not in queue")
	ErrNotPending    = errors.New("record already dispatched")
	ErrInvalidStatus = errors.New("invalid status")
	ErrClosed        = errors.New("uploader closed")
)

type entry struct {
	ctx        context.Context
	rec        *model.FileRecord
	data       string
	dispatched bool
}

// Uploader owns an upload queue. It is safe for concurrent use.
type Uploader struct {
	opts   Options
	tr     transport.Transport
	hooks  Hooks
	log    *slog.Logger
	norm   *imaging.Normalizer
	met    *metrics.Metrics
	tracer trace.Tracer

	// base is cancelled by Close and aborts in-flight uploads.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	queue    []*entry
	inFlight int
	maxTasks int
	active   bool
	closed   bool
	endSeq   uint64
	endTimer *time.Timer
	// ended is closed once OnEnd of the current or most recent cycle ran.
	ended    chan struct{}
	pending  []func()

	flushing sync.Mutex
}

// New returns an idle Uploader. hooks and logger may be nil.
func New(opts Options, tr transport.Transport, hooks Hooks, logger *slog.Logger) (*Uploader, error) {
	if tr == nil {
		return nil, ErrNoTransport
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	ended := make(chan struct{})
	close(ended)
	base, cancel := context.WithCancel(context.Background())

	return &Uploader{
		opts:     opts,
		tr:       tr,
		hooks:    hooks,
		log:      logger.With(slog.String("component", "uploader")),
		norm:     imaging.NewNormalizer(opts.Encoder),
		met:      opts.Metrics,
		tracer:   otel.Tracer("uploadq/internal/uploader"),
		base:     base,
		cancel:   cancel,
		maxTasks: opts.MaxTasks,
		ended:    ended,
	}, nil
}

// AddFiles runs every source through the processing pipeline and appends the
// accepted ones to the queue. A file that cannot be read or decoded is logged
// and skipped. ctx bounds processing and is carried into the uploads of the
// files it added.
func (u *Uploader) AddFiles(ctx context.Context, files []Source) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.notifyLocked(u.hooks.OnStartProcessing)
	u.mu.Unlock()
	u.flush()

	var err error
	for _, src := range files {
		if err = ctx.Err(); err != nil {
			break
		}
		e, perr := u.prepare(ctx, src)
		if perr != nil {
			u.log.Warn("skip file", slog.String("file", src.Name()), slog.String("error", perr.Error()))
			continue
		}
		if e != nil {
			u.enqueue(e)
		}
	}

	if u.opts.AutoStart && err == nil {
		u.Start()
	}

	u.mu.Lock()
	u.notifyLocked(u.hooks.OnEndProcessing)
	u.mu.Unlock()
	u.flush()
	return err
}

// prepare builds the queue entry for src. It returns nil without error when a
// filter rejected the file.
func (u *Uploader) prepare(ctx context.Context, src Source) (*entry, error) {
	raw, err := readSource(src)
	if err != nil {
		return nil, err
	}

	rec := model.NewFileRecord()
	ext := filepath.Ext(src.Name())
	rec.OrigFileName = strings.TrimSuffix(src.Name(), ext)
	rec.OrigFileExt = strings.TrimPrefix(ext, ".")
	rec.OrigMime = src.Mime()
	rec.OrigSize = src.Size()
	rec.OrigDate = src.ModTime()

	isImage := strings.HasPrefix(rec.OrigMime, "image/")
	if isImage {
		w, h, err := imaging.Probe(bytes.NewReader(raw))
		if err != nil {
			u.log.Debug("not a decodable image, sending as file",
				slog.String("file", src.Name()), slog.String("error", err.Error()))
			isImage = false
		} else {
			rec.OrigWidth, rec.OrigHeight = w, h
		}
	}

	if !u.hooks.BeforeFileProcessing(rec) || rec.Status != model.StatusPending {
		return nil, nil
	}

	rec.FileSize = rec.OrigSize
	rec.FileMime = rec.OrigMime
	rec.FileExt = strings.ToLower(rec.OrigFileExt)

	var data string
	if isImage {
		format := imaging.Format(u.opts.FinalImageMime)
		if format == imaging.FormatOriginal {
			rec.FileWidth = rec.OrigWidth
			rec.FileHeight = rec.OrigHeight
		} else {
			res, err := u.normalize(raw)
			if err != nil {
				return nil, err
			}
			data = res.Data
			rec.Thumb = res.Thumb
			rec.FileSize = res.Size
			rec.FileWidth = res.Width
			rec.FileHeight = res.Height
			rec.FileMime = string(format)
			rec.FileExt = format.Ext()
		}
	}
	if data == "" {
		data = dataurl.Encode(rec.OrigMime, raw)
	}

	sum := md5.Sum([]byte(data))
	rec.FileHash = hex.EncodeToString(sum[:])

	if !u.hooks.AfterFileProcessing(rec) {
		return nil, nil
	}
	return &entry{ctx: ctx, rec: rec, data: data}, nil
}

func (u *Uploader) normalize(raw []byte) (*imaging.Result, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	orientation := exif.Normalize(exif.Orientation(raw))
	return u.norm.Normalize(img, orientation, u.opts.imaging())
}

func readSource(src Source) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return raw, nil
}

func (u *Uploader) enqueue(e *entry) {
	u.mu.Lock()
	u.queue = append(u.queue, e)
	u.met.Enqueued(e.rec.FileSize)
	snap := *e.rec
	u.notifyLocked(func() { u.hooks.OnFileAdded(snap) })
	// A draining queue picks up late additions.
	u.dispatchLocked()
	u.mu.Unlock()
	u.flush()
}

// Start begins draining the queue. It is a no-op on an empty idle queue and
// never exceeds the concurrency budget when called repeatedly.
func (u *Uploader) Start() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	if !u.active && len(u.queue) > 0 {
		u.active = true
		u.ended = make(chan struct{})
		u.notifyLocked(u.hooks.OnStart)
	}
	u.dispatchLocked()
	u.mu.Unlock()
	u.flush()
}

// SetMaxTasks changes the concurrency budget. Values below one are raised
// to one. In-flight uploads are not interrupted when the budget shrinks.
func (u *Uploader) SetMaxTasks(n int) {
	u.mu.Lock()
	u.maxTasks = max(n, 1)
	u.dispatchLocked()
	u.mu.Unlock()
	u.flush()
}

// SetStatus changes the status of a queued record that has not been
// dispatched yet. A record moved out of pending is dropped from the queue
// when its turn comes.
func (u *Uploader) SetStatus(guid string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, e := range u.queue {
		if e.rec.GUID != guid {
			continue
		}
		if e.dispatched {
			return ErrNotPending
		}
		e.rec.Status = status
		return nil
	}
	return ErrUnknownRecord
}

// Wait blocks until the current drain cycle has ended and OnEnd has run. It
// returns immediately when no cycle is in progress.
func (u *Uploader) Wait(ctx context.Context) error {
	u.mu.Lock()
	ch := u.ended
	u.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued records, including those being uploaded.
func (u *Uploader) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.queue)
}

// InFlight returns the number of transport calls in progress.
func (u *Uploader) InFlight() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inFlight
}

// Close stops dispatching, aborts in-flight uploads and waits for them to
// settle. An active cycle ends with OnEnd. Queued records that were never
// dispatched stay in the queue.
func (u *Uploader) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.stopEndTimerLocked()
	u.mu.Unlock()

	u.cancel()
	u.wg.Wait()

	u.mu.Lock()
	if u.active {
		u.endLocked()
	}
	u.mu.Unlock()
	u.flush()
	return nil
}

// dispatchLocked starts uploads until the budget is used up, then checks for
// the end of the cycle.
func (u *Uploader) dispatchLocked() {
	if !u.active || u.closed {
		return
	}
	for u.inFlight < u.maxTasks {
		e := u.nextLocked()
		if e == nil {
			break
		}
		u.startLocked(e)
	}
	u.checkEndLocked()
}

// nextLocked returns the oldest undispatched record, removing records whose
// status was changed externally on the way.
func (u *Uploader) nextLocked() *entry {
	for i := 0; i < len(u.queue); {
		e := u.queue[i]
		if e.dispatched {
			i++
			continue
		}
		if e.rec.Status != model.StatusPending {
			u.log.Debug("drop record", slog.String("guid", e.rec.GUID), slog.String("status", string(e.rec.Status)))
			u.queue = append(u.queue[:i], u.queue[i+1:]...)
			u.met.Dropped()
			continue
		}
		return e
	}
	return nil
}

func (u *Uploader) startLocked(e *entry) {
	payload := e.rec.Payload(e.data, u.opts.Meta)
	if err := e.rec.Transition(model.StatusUploading); err != nil {
		u.log.Error("start upload", slog.String("guid", e.rec.GUID), slog.String("error", err.Error()))
		return
	}
	e.dispatched = true
	u.inFlight++
	u.stopEndTimerLocked()
	u.met.Started()

	snap := *e.rec
	u.notifyLocked(func() { u.hooks.OnFileStart(snap) })

	u.wg.Add(1)
	go u.upload(e, payload)
}

func (u *Uploader) upload(e *entry, payload model.UploadPayload) {
	defer u.wg.Done()

	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	stop := context.AfterFunc(u.base, cancel)
	defer stop()

	ctx, span := u.tracer.Start(ctx, "uploader.upload", trace.WithAttributes(
		attribute.String("upload.guid", payload.GUID),
		attribute.String("upload.mime", payload.FileMime),
		attribute.Int64("upload.size", payload.FileSize),
	))
	defer span.End()

	req := transport.Request{
		URL:     u.opts.URL,
		Headers: u.opts.Headers,
		Payload: payload,
	}
	resp, err := u.tr.Upload(ctx, req, func(loaded, total int64) {
		u.progress(e, loaded, total)
	})

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport fault")
	case resp == nil:
		span.SetStatus(codes.Error, "empty response")
	case !resp.OK():
		span.SetStatus(codes.Error, "rejected")
	}
	u.finish(e, resp, err)
}

func (u *Uploader) progress(e *entry, loaded, total int64) {
	if total <= 0 {
		return
	}
	u.mu.Lock()
	if e.rec.Status != model.StatusUploading {
		u.mu.Unlock()
		return
	}
	e.rec.SetProgress(int(math.Round(float64(loaded) * 100 / float64(total))))
	snap := *e.rec
	u.notifyLocked(func() { u.hooks.OnProgress(snap) })
	u.mu.Unlock()
	u.flush()
}

func (u *Uploader) finish(e *entry, resp *model.UploadResponse, err error) {
	u.mu.Lock()
	log := u.log.With(slog.String("guid", e.rec.GUID))

	var outcome string
	switch {
	case err != nil || resp == nil:
		outcome = metrics.OutcomeFault
		if err == nil {
			err = errors.New("empty response")
		}
		log.Warn("upload failed", slog.String("error", err.Error()))
		_ = e.rec.Fail(ServerErrorMessage)
	case !resp.OK():
		outcome = metrics.OutcomeRejected
		log.Warn("upload rejected", slog.String("error", resp.Error))
		_ = e.rec.Fail(resp.Error)
	default:
		outcome = metrics.OutcomeSuccess
		log.Info("upload done", slog.String("filename", resp.Filename))
		_ = e.rec.Succeed(resp.Filename, resp.URL)
	}

	snap := *e.rec
	if outcome == metrics.OutcomeSuccess {
		u.notifyLocked(func() { u.hooks.OnFileUploaded(snap) })
	} else {
		u.notifyLocked(func() { u.hooks.OnUploadError(snap) })
	}

	u.inFlight--
	u.removeLocked(e)
	u.met.Finished(outcome)
	u.dispatchLocked()
	u.mu.Unlock()
	u.flush()
}

func (u *Uploader) removeLocked(e *entry) {
	for i, q := range u.queue {
		if q == e {
			u.queue = append(u.queue[:i], u.queue[i+1:]...)
			return
		}
	}
}

// checkEndLocked ends the cycle once the queue is empty, after the debounce
// window if one is configured.
func (u *Uploader) checkEndLocked() {
	if !u.active || len(u.queue) > 0 {
		return
	}
	if u.opts.EndDebounce < 0 {
		u.endLocked()
		return
	}
	if u.endTimer != nil {
		return
	}
	seq := u.endSeq
	u.endTimer = time.AfterFunc(u.opts.EndDebounce, func() {
		u.mu.Lock()
		if seq != u.endSeq || !u.active || len(u.queue) > 0 {
			u.mu.Unlock()
			return
		}
		u.endLocked()
		u.mu.Unlock()
		u.flush()
	})
}

func (u *Uploader) endLocked() {
	u.stopEndTimerLocked()
	u.active = false
	done := u.ended
	u.notifyLocked(func() {
		u.hooks.OnEnd()
		close(done)
	})
}

func (u *Uploader) stopEndTimerLocked() {
	u.endSeq++
	if u.endTimer != nil {
		u.endTimer.Stop()
		u.endTimer = nil
	}
}

func (u *Uploader) notifyLocked(fn func()) {
	u.pending = append(u.pending, fn)
}

// flush delivers pending notifications. Only one goroutine delivers at a
// time; others leave their notifications to it.
func (u *Uploader) flush() {
	for {
		if !u.flushing.TryLock() {
			return
		}
		for {
			u.mu.Lock()
			batch := u.pending
			u.pending = nil
			u.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				fn()
			}
		}
		u.flushing.Unlock()

		u.mu.Lock()
		more := len(u.pending) > 0
		u.mu.Unlock()
		if !more {
			return
		}
	}
}
