package clock

import (
	"errors"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ErrCancelled is the cancellation sentinel returned by Sleep and Sync when
// their task is cancelled while suspended. The task runner recognises it
// and terminates the task cleanly without logging it as an error.
var ErrCancelled = errors.New("clock: task cancelled")

// State is a task's position in its lifecycle:
// Scheduled -> Running <-> Suspended(sleep|sync) -> Completed | Cancelled.
type State int32

const (
	StateScheduled State = iota
	StateRunning
	StateSuspendedSleep
	StateSuspendedSync
	StateCompleted
	StateCancelled
)

// busyWaitThreshold is the cutover point for Sleep's design: durations at or
// below this busy-wait end to end; longer durations schedule a coarse timer
// first and busy-wait only the final busyWaitTail.
const (
	busyWaitThreshold = 4 * time.Millisecond
	busyWaitTail      = 3 * time.Millisecond
)

// Task is a single registered unit of cooperative work.
type Task struct {
	id       uint64
	clock    *Clock
	state    atomic.Int32
	cancelCh chan struct{}
	once     sync.Once
	done     chan struct{}
}

// ID returns the task's registry identifier. Identifiers are not reused.
func (t *Task) ID() uint64 { return t.id }

// State returns the task's current lifecycle state.
func (t *Task) State() State { return State(t.state.Load()) }

// Done returns a channel closed when the task reaches Completed or
// Cancelled.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) cancel() {
	t.once.Do(func() { close(t.cancelCh) })
}

// Context is the handle a running task uses to suspend itself: an implicit
// cancellation handle plus clock access, passed into the task body so it
// never needs to reach for package-level state.
type Context struct {
	task  *Task
	clock *Clock
}

// Cancelled reports whether cancellation has been requested. Does not
// suspend.
func (ctx *Context) Cancelled() bool {
	select {
	case <-ctx.task.cancelCh:
		return true
	default:
		return false
	}
}

// Sleep suspends the calling task for the given real-time duration,
// returning ErrCancelled if the task is cancelled first. Accurate to well
// under one audio block: durations at or below 4ms busy-wait end to end;
// longer ones schedule a coarse timer for duration-3ms and busy-wait the
// final 3ms against a monotonic clock.
func (ctx *Context) Sleep(seconds float64) error {
	if seconds <= 0 {
		return ctx.checkCancelled()
	}
	d := time.Duration(seconds * float64(time.Second))
	// When called from Sync the task is already StateSuspendedSync; keep that
	// state, and leave restoring StateRunning to Sync.
	if ctx.task.state.CompareAndSwap(int32(StateRunning), int32(StateSuspendedSleep)) {
		defer ctx.task.state.Store(int32(StateRunning))
	}

	if d <= busyWaitThreshold {
		return busyWait(d, ctx.task.cancelCh)
	}

	coarse := d - busyWaitTail
	timer := time.NewTimer(coarse)
	defer timer.Stop()
	select {
	case <-ctx.task.cancelCh:
		return ErrCancelled
	case <-timer.C:
	}
	return busyWait(busyWaitTail, ctx.task.cancelCh)
}

// Sync suspends the calling task until the next instant where
// beats() ≡ offset (mod beat). If the transport is stopped, it falls back
// to sleeping beat*60/tempo seconds unconditionally: patterns keep
// advancing in real time even while the transport is paused, but they
// drift from the beat grid if tempo changes while stopped.
func (ctx *Context) Sync(beat, offset float64) error {
	ctx.task.state.Store(int32(StateSuspendedSync))
	defer ctx.task.state.Store(int32(StateRunning))

	c := ctx.clock
	c.mu.Lock()
	running := c.running
	beatSecs := c.beatSecondsLocked()
	cur := c.beatsLocked()
	c.mu.Unlock()

	if !running {
		return ctx.Sleep(beat * beatSecs)
	}

	const epsilon = 1e-4
	next := math.Ceil((cur-offset)/beat)*beat + offset
	if next-cur < epsilon {
		next += beat
	}
	deltaSeconds := (next - cur) * beatSecs
	return ctx.Sleep(deltaSeconds)
}

func (ctx *Context) checkCancelled() error {
	if ctx.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// busyWait blocks for d, yielding the scheduler between checks, returning
// early with ErrCancelled if cancelCh closes.
func busyWait(d time.Duration, cancelCh <-chan struct{}) error {
	deadline := time.Now().Add(d)
	for {
		select {
		case <-cancelCh:
			return ErrCancelled
		default:
		}
		if time.Now().After(deadline) {
			return nil
		}
		runtime.Gosched()
	}
}

// Run registers fn as a new cooperative task and starts it immediately on
// its own goroutine, returning a non-reusable task identifier. fn receives
// a Context for Sleep/Sync/Cancelled. A panic or returned error inside fn is
// caught at the task boundary and logged; ErrCancelled is not logged, since
// it is the expected clean-termination path.
func (c *Clock) Run(fn func(ctx *Context) error) uint64 {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	t := &Task{
		id:       id,
		clock:    c,
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
	t.state.Store(int32(StateScheduled))
	c.tasks[id] = t
	c.mu.Unlock()

	go func() {
		defer close(t.done)
		defer c.removeTask(id)
		defer func() {
			if r := recover(); r != nil {
				t.state.Store(int32(StateCancelled))
				logUnexpected(id, r)
			}
		}()

		t.state.Store(int32(StateRunning))
		ctx := &Context{task: t, clock: c}
		err := fn(ctx)
		switch {
		case err == nil:
			t.state.Store(int32(StateCompleted))
		case errors.Is(err, ErrCancelled):
			t.state.Store(int32(StateCancelled))
		default:
			t.state.Store(int32(StateCancelled))
			logUnexpected(id, err)
		}
	}()

	return id
}

// Cancel requests cancellation of the task with the given id. Asynchronous:
// it wakes the task's current suspension (Sleep or Sync), which returns
// ErrCancelled; the task terminates at its next suspension return. Safe and
// idempotent to call on an already-completed or unknown id (no-op).
func (c *Clock) Cancel(id uint64) {
	c.mu.Lock()
	t := c.tasks[id]
	c.mu.Unlock()
	if t == nil {
		return
	}
	t.cancel()
}
