// Package queue implements the two single-producer-single-consumer channels
// that carry Commands from control to audio and Events from audio to
// control. Both sides are buffered Go channels: the audio side never blocks
// on them, since a blocked audio callback means dropped output, so every
// send or receive it performs goes through a non-blocking select with a
// default case. A dropped-event counter records what a full queue discarded,
// so an operator can tell "silently lossy" apart from "silently fine".
package queue

import "sync/atomic"

// Commands carries control->audio messages. The control side sends
// (blocking, or refusing if it needs to stay non-blocking itself — queue
// overflow here means the control side is submitting faster than the audio
// thread can drain, a programming error rather than a steady-state
// condition); the audio side drains non-blockingly every process() call.
type Commands[T any] struct {
	ch chan T
}

// NewCommands returns a Commands queue with the given capacity.
func NewCommands[T any](capacity int) *Commands[T] {
	return &Commands[T]{ch: make(chan T, capacity)}
}

// Send enqueues a command, blocking if the queue is full. Commands from a
// single submitter arrive in submission order.
func (c *Commands[T]) Send(cmd T) {
	c.ch <- cmd
}

// TrySend enqueues a command without blocking, reporting whether it fit.
func (c *Commands[T]) TrySend(cmd T) bool {
	select {
	case c.ch <- cmd:
		return true
	default:
		return false
	}
}

// Drain removes and applies every pending command in arrival order. Called
// once per process() block, before the voice kernel runs. Never blocks.
func (c *Commands[T]) Drain(apply func(T)) {
	for {
		select {
		case cmd := <-c.ch:
			apply(cmd)
		default:
			return
		}
	}
}

// Events carries audio->control messages. It tracks a counter of how many
// events have been silently dropped on overflow, for event classes where
// that is acceptable — a redundant sample of a continuous signal, say, where
// the next quantum crossing will emit again regardless.
type Events[T any] struct {
	ch      chan T
	dropped atomic.Uint64
}

// NewEvents returns an Events queue with the given capacity.
func NewEvents[T any](capacity int) *Events[T] {
	return &Events[T]{ch: make(chan T, capacity)}
}

// PushDroppable enqueues ev, silently dropping (and counting) it if the
// queue is full. Use for event classes whose consumer can tolerate an
// occasional gap.
func (e *Events[T]) PushDroppable(ev T) {
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

// PushRequired enqueues ev, reporting false (never dropping the event) if
// the queue is full. Use for event classes that must never be silently
// discarded — the caller must surface a capacity error to whoever is
// waiting on the result instead.
func (e *Events[T]) PushRequired(ev T) bool {
	select {
	case e.ch <- ev:
		return true
	default:
		return false
	}
}

// Dropped returns and resets the droppable-event counter.
func (e *Events[T]) Dropped() uint64 {
	return e.dropped.Swap(0)
}

// Drain removes and delivers every pending event in emission order. The
// control side may call this from a poll loop or a receiving goroutine.
func (e *Events[T]) Drain(deliver func(T)) {
	for {
		select {
		case ev := <-e.ch:
			deliver(ev)
		default:
			return
		}
	}
}

// Chan exposes the underlying channel for callers that want to select on it
// directly (e.g. a control-thread loop blocking until the next event).
func (e *Events[T]) Chan() <-chan T {
	return e.ch
}

// Room reports how many slots are free right now. Advisory only — the audio
// thread can fill the last slot between a caller checking Room and acting on
// it, so a caller that must not silently lose data still needs
// PushRequired's definitive answer; Room just lets the control side reject
// obviously-doomed requests early.
func (e *Events[T]) Room() int {
	return cap(e.ch) - len(e.ch)
}
