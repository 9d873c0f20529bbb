package fotogopher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/root4loot/goutils/urlutil"

	"github.com/root4loot/fotogopher/internal/logging"
	"github.com/root4loot/fotogopher/pkg/imageutil"
)

// Snapshotter renders a page as JPEG bytes.
type Snapshotter interface {
	Snapshot(ctx context.Context, url string) ([]byte, error)
}

// SnapshotRequest is one queued snapshot job.
type SnapshotRequest struct {
	URL    string
	Width  int
	Height int

	done chan SnapshotResult
}

// SnapshotResult is the outcome of a SnapshotRequest.
type SnapshotResult struct {
	Image []byte
	Err   error
}

// PoolOptions contains options for a Pool.
type PoolOptions struct {
	Workers     int           // number of workers, 0 for one goroutine per job
	Timeout     time.Duration // how long a caller waits for a snapshot
	BusyTimeout time.Duration // how long a caller waits for a free worker
	JPEGQuality int           // quality of resized output
}

// DefaultPoolOptions returns default pool options.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		Timeout:     45 * time.Second,
		BusyTimeout: 10 * time.Second,
		JPEGQuality: 75,
	}
}

// Pool feeds snapshot jobs from a queue to workers.
type Pool struct {
	snapshotter Snapshotter
	options     PoolOptions
	work        chan *SnapshotRequest
	startOnce   sync.Once
}

// NewPool returns a pool that takes snapshots with s. Call Start before
// Snapshot.
func NewPool(s Snapshotter, options PoolOptions) *Pool {
	d := DefaultPoolOptions()
	if options.Timeout <= 0 {
		options.Timeout = d.Timeout
	}
	if options.BusyTimeout <= 0 {
		options.BusyTimeout = d.BusyTimeout
	}
	if options.JPEGQuality <= 0 {
		options.JPEGQuality = d.JPEGQuality
	}
	return &Pool{
		snapshotter: s,
		options:     options,
		work:        make(chan *SnapshotRequest),
	}
}

// Start launches the workers. They stop when ctx is done. Start is
// idempotent.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		if p.options.Workers > 0 {
			for i := 0; i < p.options.Workers; i++ {
				go p.pooledWorker(ctx)
			}
			logging.Debug("snapshot pool started", "workers", p.options.Workers)
			return
		}
		go p.freeWorker(ctx)
		logging.Debug("snapshot pool started", "workers", "unlimited")
	})
}

// Snapshot queues a snapshot of url scaled to width x height and waits for
// it. A zero dimension keeps the aspect ratio. ErrBusy is returned when no
// worker picks the job up within the busy timeout, ErrTimeout when the
// snapshot takes longer than the pool timeout.
func (p *Pool) Snapshot(ctx context.Context, url string, width, height int) ([]byte, error) {
	req := &SnapshotRequest{URL: url, Width: width, Height: height, done: make(chan SnapshotResult, 1)}

	busy := time.NewTimer(p.options.BusyTimeout)
	defer busy.Stop()

	select {
	case p.work <- req:
	case <-busy.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	wait := time.NewTimer(p.options.Timeout)
	defer wait.Stop()

	select {
	case res := <-req.done:
		return res.Image, res.Err
	case <-wait.C:
		return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, url, p.options.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) pooledWorker(ctx context.Context) {
	for {
		select {
		case req := <-p.work:
			p.run(ctx, req)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) freeWorker(ctx context.Context) {
	for {
		select {
		case req := <-p.work:
			go p.run(ctx, req)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, req *SnapshotRequest) {
	logging.Debug("taking snapshot", "url", req.URL, "width", req.Width, "height", req.Height)

	// the caller gives up after Timeout; so does the job
	jobCtx, cancel := context.WithTimeout(ctx, p.options.Timeout)
	defer cancel()

	res := p.take(jobCtx, req)
	if res.Err != nil {
		logging.Warn("snapshot failed", "url", req.URL, "error", res.Err)
	} else {
		logging.Debug("snapshot completed", "url", req.URL, "bytes", len(res.Image))
	}
	req.done <- res
}

func (p *Pool) take(ctx context.Context, req *SnapshotRequest) (res SnapshotResult) {
	defer func() {
		if r := recover(); r != nil {
			res = SnapshotResult{Err: fmt.Errorf("snapshot failed because of a panic: %v", r)}
		}
	}()

	img, err := p.snapshotter.Snapshot(ctx, req.URL)
	if err != nil {
		return SnapshotResult{Err: err}
	}

	if req.Width > 0 || req.Height > 0 {
		img, err = imageutil.ResizeJPEG(img, req.Width, req.Height, p.options.JPEGQuality)
		if err != nil {
			return SnapshotResult{Err: err}
		}
	}
	return SnapshotResult{Image: img}
}

// NormalizeURL trims raw, adds http:// when no scheme is given and ensures
// a bare host ends with a slash.
func NormalizeURL(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", ErrMissingURL
	}
	if !hasScheme(target) {
		target = "http://" + target
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", raw)
	}

	if u.Path == "" && u.RawQuery == "" && u.Fragment == "" {
		if withSlash, _ := urlutil.EnsureTrailingSlash(target); withSlash != "" {
			target = withSlash
		}
	}
	return target, nil
}

// hasScheme checks if the target has a scheme
func hasScheme(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
