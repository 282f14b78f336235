package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// Executor runs stitch and download actions in one execution context
type Executor interface {
	MergeAndDownload(ctx context.Context, req models.StitchRequest) error
	DownloadImages(ctx context.Context, req models.DownloadRequest) error
}

// Controls are the triggering controls, disabled while an action runs
type Controls interface {
	SetEnabled(enabled bool)
}

// StatusReporter shows a short status line to the user
type StatusReporter interface {
	SetStatus(text string, isError bool)
}

// UserInputError is reported without contacting any executor
type UserInputError struct {
	Message string
}

func (e *UserInputError) Error() string { return e.Message }

var (
	// ErrNoSelection is returned when an action is invoked with nothing selected
	ErrNoSelection = &UserInputError{Message: "Please select images first"}
	// ErrBusy is returned when an action is invoked while another one runs
	ErrBusy = errors.New("another action is still running")
)

// Action names what a routed request does
type Action string

const (
	ActionStitch   Action = "stitch"
	ActionDownload Action = "download"
)

// Transition is reported for every state change
type Transition struct {
	Action Action
	From   State
	To     State
	Err    error
}

// Result is the outcome of one routed action
type Result struct {
	Action       Action
	State        State
	UsedFallback bool
	Err          error
}

// Router runs each action in the primary context and re-runs it in the
// fallback context when, and only when, the primary failed to communicate.
type Router struct {
	primary      Executor
	fallback     Executor
	controls     Controls
	status       StatusReporter
	onTransition func(Transition)

	mu    sync.Mutex
	busy  bool
	state State
}

// Option configures a Router
type Option func(*Router)

func WithControls(c Controls) Option { return func(r *Router) { r.controls = c } }

func WithStatus(s StatusReporter) Option { return func(r *Router) { r.status = s } }

// WithTransitionHook registers fn to observe every state change
func WithTransitionHook(fn func(Transition)) Option {
	return func(r *Router) { r.onTransition = fn }
}

// New creates a router. fallback may be nil, in which case communication
// failures are reported like any other error.
func New(primary, fallback Executor, opts ...Option) *Router {
	r := &Router{primary: primary, fallback: fallback, state: Idle}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Busy reports whether an action is running
func (r *Router) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

type messages struct {
	started   string
	fallback  string
	done      string
	doneLocal string
	failed    string
}

var stitchMessages = messages{
	started:   "Selected %d images, stitching...",
	fallback:  "Background unavailable, stitching locally...",
	done:      "Stitched, download started",
	doneLocal: "Done, download started (stitched locally)",
	failed:    "Stitching failed",
}

var downloadMessages = messages{
	started:   "Downloading %d selected images...",
	fallback:  "Background unavailable, downloading locally...",
	done:      "Download started",
	doneLocal: "Download started (local)",
	failed:    "Download failed",
}

// Stitch merges the selected images into one file
func (r *Router) Stitch(ctx context.Context, req models.StitchRequest) (Result, error) {
	return r.run(ctx, ActionStitch, len(req.Images), stitchMessages, func(ctx context.Context, e Executor) error {
		return e.MergeAndDownload(ctx, req)
	})
}

// Download saves each selected image
func (r *Router) Download(ctx context.Context, req models.DownloadRequest) (Result, error) {
	return r.run(ctx, ActionDownload, len(req.Images), downloadMessages, func(ctx context.Context, e Executor) error {
		return e.DownloadImages(ctx, req)
	})
}

func (r *Router) run(ctx context.Context, action Action, count int, msgs messages, call func(context.Context, Executor) error) (Result, error) {
	if count == 0 {
		r.setStatus(ErrNoSelection.Message, true)
		return Result{Action: action, State: Idle, Err: ErrNoSelection}, ErrNoSelection
	}
	if !r.acquire() {
		return Result{Action: action, State: r.State(), Err: ErrBusy}, ErrBusy
	}
	defer r.finish(action)

	r.transition(action, Requested, nil)
	r.setEnabled(false)
	r.setStatus(fmt.Sprintf(msgs.started, count), false)

	r.transition(action, PrimaryAttempt, nil)
	err := call(ctx, r.primary)
	if err == nil {
		r.transition(action, Succeeded, nil)
		r.setStatus(msgs.done, false)
		return Result{Action: action, State: Succeeded}, nil
	}

	r.transition(action, PrimaryFailed, err)
	if r.fallback == nil || !messaging.IsCommunicationError(err) {
		slog.Error("Action failed", "action", action, "err", err)
		r.setStatus(Describe(err, msgs.failed), true)
		return Result{Action: action, State: PrimaryFailed, Err: err}, err
	}

	slog.Warn("Privileged context unavailable, running locally", "action", action, "err", err)
	r.setStatus(msgs.fallback, true)
	r.transition(action, FallbackAttempt, nil)
	if err := call(ctx, r.fallback); err != nil {
		r.transition(action, FallbackFailed, err)
		slog.Error("Local fallback failed", "action", action, "err", err)
		r.setStatus(Describe(err, msgs.failed), true)
		return Result{Action: action, State: FallbackFailed, UsedFallback: true, Err: err}, err
	}

	r.transition(action, Succeeded, nil)
	r.setStatus(msgs.doneLocal, false)
	return Result{Action: action, State: Succeeded, UsedFallback: true}, nil
}

func (r *Router) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return false
	}
	r.busy = true
	return true
}

func (r *Router) finish(action Action) {
	r.transition(action, Idle, nil)
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
	r.setEnabled(true)
}

func (r *Router) transition(action Action, to State, err error) {
	r.mu.Lock()
	from := r.state
	if !canTransition(from, to) {
		slog.Error("Invalid router transition", "action", action, "from", from, "to", to)
	}
	r.state = to
	hook := r.onTransition
	r.mu.Unlock()

	slog.Debug("Router transition", "action", action, "from", from, "to", to)
	if hook != nil {
		hook(Transition{Action: action, From: from, To: to, Err: err})
	}
}

func (r *Router) setEnabled(enabled bool) {
	if r.controls != nil {
		r.controls.SetEnabled(enabled)
	}
}

func (r *Router) setStatus(text string, isError bool) {
	if r.status != nil {
		r.status.SetStatus(text, isError)
	}
}
