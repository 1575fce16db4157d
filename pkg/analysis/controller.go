package analysis

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/observability"
)

// DefaultTimeout bounds a single analysis request.
const DefaultTimeout = 30 * time.Second

// User-facing messages.
const (
	MsgFetchFailed    = "获取 AI 分析失败，请稍后重试"
	MsgAnalysisFailed = "分析失败，请稍后重试"
)

// ErrNoAnalysis is returned by fetchers when the server answered without
// analysis text or message.
var ErrNoAnalysis = stderrors.New("no analysis in response")

// State is the phase of the analysis popup.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the analysis view model at one point in time.
type Snapshot struct {
	State      State  `json:"-"`
	Phase      string `json:"state"`
	Generation uint64 `json:"generation"`
	Center     string `json:"center,omitempty"`
	Selected   string `json:"selected,omitempty"`
	Analysis   string `json:"analysis,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Fetcher retrieves the analysis text for a pair of nodes.
type Fetcher interface {
	Analyze(ctx context.Context, a, b string) (string, error)
}

var _ Fetcher = (*backend.Client)(nil)

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOnChange registers a callback invoked after every state change. Calls
// are serialized and never go backwards in generation.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller drives the analysis popup for one graph view.
type Controller struct {
	fetcher  Fetcher
	timeout  time.Duration
	onChange func(Snapshot)
	logger   *log.Logger

	mu     sync.Mutex
	snap   Snapshot
	gen    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup

	pubMu   sync.Mutex
	lastPub uint64
}

// NewController creates an idle controller that fetches through f.
func NewController(f Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher: f,
		timeout: DefaultTimeout,
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		snap:    Snapshot{State: Idle, Phase: Idle.String()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request starts a new generation for the pair (center, selected) and returns
// its number. The Loading state is published before Request returns. After
// Close, Request does nothing and returns 0.
func (c *Controller) Request(ctx context.Context, center, selected string) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel
	c.snap = newSnapshot(Loading, gen, center, selected)
	snap := c.snap
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Debug("analysis request", "gen", gen, "center", center, "selected", selected)
	c.publish(snap)
	go c.fetch(rctx, cancel, gen, center, selected)
	return gen
}

func (c *Controller) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, center, selected string) {
	defer c.wg.Done()
	defer cancel()

	hooks := observability.Analysis()
	hooks.OnAnalysisStart(ctx, gen)
	start := time.Now()

	text, err := c.analyze(ctx, center, selected)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("analysis stale", "gen", gen)
		hooks.OnAnalysisStale(ctx, gen)
		return
	}
	snap := newSnapshot(Loaded, gen, center, selected)
	switch {
	case err != nil:
		snap = errorSnapshot(snap, messageFor(err))
		c.logger.Warn("analysis failed", "gen", gen, "err", err)
	case text == "":
		snap = errorSnapshot(snap, MsgAnalysisFailed)
	default:
		snap.Analysis = text
	}
	c.snap = snap
	c.cancel = nil
	c.mu.Unlock()

	c.publish(snap)
	hooks.OnAnalysisComplete(ctx, gen, snap.Phase, time.Since(start))
}

type fetchResult struct {
	text string
	err  error
}

// analyze calls the fetcher and stops waiting once ctx ends, even if the
// fetcher ignores ctx. A result that lands after ctx ended is discarded.
func (c *Controller) analyze(ctx context.Context, center, selected string) (string, error) {
	done := make(chan fetchResult, 1)
	go func() {
		text, err := c.fetcher.Analyze(ctx, center, selected)
		done <- fetchResult{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && ctx.Err() != nil {
			return "", contextError(ctx)
		}
		return r.text, r.err
	case <-ctx.Done():
		return "", contextError(ctx)
	}
}

func contextError(ctx context.Context) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "analysis timed out")
	}
	return errors.Wrap(errors.ErrCodeNetwork, ctx.Err(), "analysis cancelled")
}

// messageFor prefers a message supplied by the server and falls back to
// generic text.
func messageFor(err error) string {
	if se, ok := backend.AsStatusError(err); ok && se.Detail != "" {
		return se.Detail
	}
	if errors.Is(err, errors.ErrCodeRateLimited) {
		return errors.UserMessage(err)
	}
	if stderrors.Is(err, ErrNoAnalysis) {
		return MsgAnalysisFailed
	}
	return MsgFetchFailed
}

func newSnapshot(s State, gen uint64, center, selected string) Snapshot {
	return Snapshot{State: s, Phase: s.String(), Generation: gen, Center: center, Selected: selected}
}

func errorSnapshot(s Snapshot, msg string) Snapshot {
	s.State, s.Phase, s.Message = Error, Error.String(), msg
	return s
}

func (c *Controller) publish(s Snapshot) {
	if c.onChange == nil {
		return
	}
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if s.Generation < c.lastPub {
		return
	}
	c.lastPub = s.Generation
	c.onChange(s)
}

// Snapshot returns the current view model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Reset cancels any in-flight request and returns to Idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.snap = newSnapshot(Idle, c.gen, "", "")
	snap := c.snap
	c.mu.Unlock()
	c.publish(snap)
}

// Wait blocks until no request is in flight.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels any in-flight request, waits for it to finish and rejects
// further requests. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.mu.Unlock()
	c.wg.Wait()
}
