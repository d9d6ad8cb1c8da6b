// Package prefetch runs one speculative acquisition ahead of the next round
// and hands it over only while it still matches what the player is doing.
//
// Every Start and Invalidate mints a new token synchronously. A background
// acquisition remembers the token it was started with and stores its result
// only if that token is still current when it finishes; anything else is
// dropped. In-flight requests are never aborted by invalidation.
package prefetch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/heartmarshall/wildguess-backend/internal/service/acquisition"
)

type acquirer interface {
	Acquire(ctx context.Context, req acquisition.Request) acquisition.Result
}

// Coordinator owns the prefetch token of one game session.
type Coordinator struct {
	log *slog.Logger
	acq acquirer

	// ctx is detached from any request and cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	token   uint64
	pending bool
	done    chan struct{}
	ready   *acquisition.Result
	closed  bool
}

// NewCoordinator creates a coordinator with token 0 and nothing in flight.
func NewCoordinator(logger *slog.Logger, acq acquirer) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		log:    logger.With("service", "prefetch"),
		acq:    acq,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start mints a new token, drops any ready result and launches a background
// acquisition for req. It returns the new token, or 0 after Close.
func (c *Coordinator) Start(req acquisition.Request) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	c.token++
	token := c.token
	done := make(chan struct{})
	c.pending = true
	c.done = done
	c.ready = nil
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(token, done, req)
	return token
}

func (c *Coordinator) run(token uint64, done chan struct{}, req acquisition.Request) {
	defer c.wg.Done()
	defer close(done)

	res := c.acq.Acquire(c.ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		c.log.Debug("stale prefetch discarded",
			slog.Uint64("token", token),
			slog.Uint64("live_token", c.token),
		)
		return
	}
	c.pending = false
	c.ready = &res
}

// Invalidate mints a new token so that any in-flight result is discarded,
// and drops a ready result. Call it before reacting to a region change or
// when a round begins.
func (c *Coordinator) Invalidate() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token++
	c.pending = false
	c.ready = nil
	return c.token
}

// GetIfFresh returns the ready result and clears it.
func (c *Coordinator) GetIfFresh() (acquisition.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.takeLocked()
}

// Await waits for the in-flight acquisition of the current token and
// returns its result. It returns false at once when nothing current is in
// flight, and false when ctx ends or the token moves on while waiting.
func (c *Coordinator) Await(ctx context.Context) (acquisition.Result, bool) {
	c.mu.Lock()
	if c.ready != nil {
		defer c.mu.Unlock()
		return c.takeLocked()
	}
	if !c.pending {
		c.mu.Unlock()
		return acquisition.Result{}, false
	}
	token, done := c.token, c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return acquisition.Result{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != token {
		return acquisition.Result{}, false
	}
	return c.takeLocked()
}

func (c *Coordinator) takeLocked() (acquisition.Result, bool) {
	if c.ready == nil {
		return acquisition.Result{}, false
	}
	res := *c.ready
	c.ready = nil
	return res, true
}

// Pending reports whether an acquisition for the current token is running.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Token returns the live token.
func (c *Coordinator) Token() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Close invalidates the coordinator, cancels in-flight acquisitions and
// waits for them to return. Start is a no-op afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.token++
	c.pending = false
	c.ready = nil
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
