// Package control implements the public façade over the engine: it
// translates the caller-facing 1-based voice/buffer indices into the
// engine's 0-based interior indices, composes Commands, and dispatches
// Events to registered callbacks. It holds no audio state of its own —
// every mutation goes through the engine's command queue.
package control

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"softcut/internal/buffer"
	"softcut/internal/engine"
	"softcut/internal/voice"
)

// Sentinel errors returned by Control methods. Use errors.Is to check them:
// ErrInvalidArgument is usually returned wrapped (with %w) in an error that
// names the offending value, so comparing with == does not match it.
var (
	// ErrInvalidArgument is returned when a voice or buffer index is out of
	// range, or a value is out of its documented domain. The call is
	// rejected before any command is enqueued.
	ErrInvalidArgument = errors.New("control: invalid argument")

	// ErrNotReady is returned when a call is made against a Control whose
	// engine has not been attached (or after the engine has been torn
	// down).
	ErrNotReady = errors.New("control: not ready")

	// ErrCapacity is returned by BufferRead when the events queue has no
	// free slot at call time. This is a best-effort check: a slot freed or
	// taken between the check and the audio thread actually servicing the
	// read is still possible, in which case the request instead surfaces
	// (or succeeds) via the OnBufferData/OnBufferReadRefused callbacks.
	ErrCapacity = errors.New("control: no capacity for buffer_read")
)

// Control is the thin façade over an engine.Engine.
type Control struct {
	eng *engine.Engine

	mu                sync.Mutex
	nextRequestID     uint64
	onPhase           func(v int, posS float64)
	onBufferData      func(buf int, startS float64, samples []float32)
	onBufferReadError func(requestID uint64)
}

// New returns a Control façade over eng.
func New(eng *engine.Engine) *Control {
	return &Control{eng: eng}
}

func (c *Control) ready() error {
	if c.eng == nil {
		return ErrNotReady
	}
	return nil
}

// voiceIndex translates a 1-based caller voice number to a 0-based interior
// index, or ErrInvalidArgument if out of [1,6].
func voiceIndex(v int) (int, error) {
	if v < 1 || v > voice.Count {
		return 0, fmt.Errorf("%w: voice %d out of [1,%d]", ErrInvalidArgument, v, voice.Count)
	}
	return v - 1, nil
}

// bufferIndex translates a 1-based caller buffer number to a 0-based
// interior index, or ErrInvalidArgument if out of [1,2].
func bufferIndex(b int) (int, error) {
	if b != 1 && b != 2 {
		return 0, fmt.Errorf("%w: buffer %d out of [1,2]", ErrInvalidArgument, b)
	}
	return b - 1, nil
}

func (c *Control) sendVoice(v int, kind engine.Kind, bv bool, fv float64) error {
	if err := c.ready(); err != nil {
		return err
	}
	vi, err := voiceIndex(v)
	if err != nil {
		return err
	}
	c.eng.Commands().Send(engine.Command{Kind: kind, Voice: vi, Bool: bv, Float: fv})
	return nil
}

// Enable toggles a voice between idle and active.
func (c *Control) Enable(v int, on bool) error { return c.sendVoice(v, engine.CmdEnable, on, 0) }

// Play toggles a voice's transport.
func (c *Control) Play(v int, on bool) error { return c.sendVoice(v, engine.CmdPlay, on, 0) }

// Rec toggles a voice's record state.
func (c *Control) Rec(v int, on bool) error { return c.sendVoice(v, engine.CmdRec, on, 0) }

// BufferSelect chooses voice v's source/destination buffer (1 or 2).
func (c *Control) BufferSelect(v, buf int) error {
	if err := c.ready(); err != nil {
		return err
	}
	vi, err := voiceIndex(v)
	if err != nil {
		return err
	}
	bi, err := bufferIndex(buf)
	if err != nil {
		return err
	}
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdBufferSelect, Voice: vi, Buffer: bi})
	return nil
}

// Rate sets voice v's signed playback rate.
func (c *Control) Rate(v int, r float64) error { return c.sendVoice(v, engine.CmdRate, false, r) }

// Level sets voice v's target output level (level_target); the kernel
// slews toward it, snapping instantly when level_slew_time is 0.
func (c *Control) Level(v int, amp float64) error {
	if amp < 0 {
		return fmt.Errorf("%w: level %f must be >= 0", ErrInvalidArgument, amp)
	}
	return c.sendVoice(v, engine.CmdLevel, false, amp)
}

// LevelSlewTime sets how long (seconds) Level takes to reach its target.
func (c *Control) LevelSlewTime(v int, s float64) error {
	if s < 0 {
		return fmt.Errorf("%w: level_slew_time %f must be >= 0", ErrInvalidArgument, s)
	}
	return c.sendVoice(v, engine.CmdLevelSlewTime, false, s)
}

// Pan sets voice v's equal-power pan position in [-1,1].
func (c *Control) Pan(v int, p float64) error {
	if p < -1 || p > 1 {
		return fmt.Errorf("%w: pan %f out of [-1,1]", ErrInvalidArgument, p)
	}
	return c.sendVoice(v, engine.CmdPan, false, p)
}

// Position sets voice v's head to posS seconds into its buffer.
func (c *Control) Position(v int, posS float64) error {
	if posS < 0 {
		return fmt.Errorf("%w: position %f must be >= 0", ErrInvalidArgument, posS)
	}
	return c.sendVoice(v, engine.CmdPosition, false, posS)
}

// Loop toggles voice v's loop mode.
func (c *Control) Loop(v int, on bool) error { return c.sendVoice(v, engine.CmdLoop, on, 0) }

// LoopStart sets voice v's loop start, in seconds.
func (c *Control) LoopStart(v int, s float64) error { return c.sendVoice(v, engine.CmdLoopStart, false, s) }

// LoopEnd sets voice v's loop end, in seconds.
func (c *Control) LoopEnd(v int, s float64) error { return c.sendVoice(v, engine.CmdLoopEnd, false, s) }

// FadeTime sets voice v's loop-boundary crossfade length, in seconds.
func (c *Control) FadeTime(v int, s float64) error {
	if s < 0 {
		return fmt.Errorf("%w: fade_time %f must be >= 0", ErrInvalidArgument, s)
	}
	return c.sendVoice(v, engine.CmdFadeTime, false, s)
}

// RecLevel sets the gain applied to the input sample while recording.
func (c *Control) RecLevel(v int, amp float64) error {
	if amp < 0 || amp > 1 {
		return fmt.Errorf("%w: rec_level %f out of [0,1]", ErrInvalidArgument, amp)
	}
	return c.sendVoice(v, engine.CmdRecLevel, false, amp)
}

// PreLevel sets the gain applied to the existing buffer sample before
// summing while recording (0 = overwrite, 1 = infinite overdub).
func (c *Control) PreLevel(v int, amp float64) error {
	if amp < 0 || amp > 1 {
		return fmt.Errorf("%w: pre_level %f out of [0,1]", ErrInvalidArgument, amp)
	}
	return c.sendVoice(v, engine.CmdPreLevel, false, amp)
}

// PhaseQuant sets voice v's phase-report granularity, in seconds; 0 disables
// reporting for that voice.
func (c *Control) PhaseQuant(v int, q float64) error {
	if q < 0 {
		return fmt.Errorf("%w: phase_quant %f must be >= 0", ErrInvalidArgument, q)
	}
	return c.sendVoice(v, engine.CmdPhaseQuant, false, q)
}

// PollStartPhase enables the engine-wide phase reporting gate.
func (c *Control) PollStartPhase() error {
	if err := c.ready(); err != nil {
		return err
	}
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdPollStartPhase})
	return nil
}

// PollStopPhase disables the engine-wide phase reporting gate.
func (c *Control) PollStopPhase() error {
	if err := c.ready(); err != nil {
		return err
	}
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdPollStopPhase})
	return nil
}

// BufferClear zeroes both buffers.
func (c *Control) BufferClear() error {
	if err := c.ready(); err != nil {
		return err
	}
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdBufferClear})
	return nil
}

// BufferClearChannel zeroes one buffer.
func (c *Control) BufferClearChannel(buf int) error {
	if err := c.ready(); err != nil {
		return err
	}
	bi, err := bufferIndex(buf)
	if err != nil {
		return err
	}
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdBufferClearChannel, Buffer: bi})
	return nil
}

// BufferClearRegion zeroes [startS, startS+durS) in *both* buffers
// simultaneously, unlike BufferClearChannel, which targets one.
func (c *Control) BufferClearRegion(startS, durS float64) error {
	if err := c.ready(); err != nil {
		return err
	}
	if startS < 0 || durS < 0 {
		return fmt.Errorf("%w: clear_region start=%f dur=%f must be >= 0", ErrInvalidArgument, startS, durS)
	}
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdBufferClearRegion, StartS: startS, DurS: durS})
	return nil
}

// BufferLoad copies data into buf beginning at startS, transferring
// ownership of data to the engine — the caller must not touch it again.
// Loads that would overrun the buffer are silently truncated.
func (c *Control) BufferLoad(buf int, startS float64, data []float32) error {
	if err := c.ready(); err != nil {
		return err
	}
	bi, err := bufferIndex(buf)
	if err != nil {
		return err
	}
	if startS < 0 {
		return fmt.Errorf("%w: buffer_load start %f must be >= 0", ErrInvalidArgument, startS)
	}
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdBufferLoad, Buffer: bi, StartS: startS, Data: data})
	return nil
}

// BufferRead asynchronously requests a copy of [startS, startS+durS) from
// buf. It returns a request id immediately; the result (or a capacity
// refusal) is delivered to the OnBufferData/OnBufferReadRefused callbacks
// on a later Poll call.
func (c *Control) BufferRead(buf int, startS, durS float64) (uint64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	bi, err := bufferIndex(buf)
	if err != nil {
		return 0, err
	}
	if startS < 0 || durS < 0 {
		return 0, fmt.Errorf("%w: buffer_read start=%f dur=%f must be >= 0", ErrInvalidArgument, startS, durS)
	}
	if c.eng.Events().Room() == 0 {
		return 0, ErrCapacity
	}
	c.mu.Lock()
	c.nextRequestID++
	id := c.nextRequestID
	c.mu.Unlock()
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdBufferRead, Buffer: bi, StartS: startS, DurS: durS, RequestID: id})
	return id, nil
}

// Reset restores factory defaults on every voice and zeroes both buffers.
// Idempotent.
func (c *Control) Reset() error {
	if err := c.ready(); err != nil {
		return err
	}
	c.eng.Commands().Send(engine.Command{Kind: engine.CmdReset})
	return nil
}

// OnPhase registers the single callback invoked (per event) for Phase
// events, with the voice translated back to its 1-based caller index.
// Pass nil to unsubscribe.
func (c *Control) OnPhase(fn func(voice int, posS float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPhase = fn
}

// OnBufferData registers the single callback invoked (per event) for
// completed buffer reads, with the buffer translated back to its 1-based
// caller index. Pass nil to unsubscribe.
func (c *Control) OnBufferData(fn func(buf int, startS float64, samples []float32)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBufferData = fn
}

// OnBufferReadRefused registers the callback invoked when a buffer_read
// could not be completed for lack of event-queue capacity. Pass nil to
// unsubscribe.
func (c *Control) OnBufferReadRefused(fn func(requestID uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBufferReadError = fn
}

// Poll drains every pending event and status notice, dispatching them to
// the registered callbacks in emission order. The control thread may call
// this from a tight loop, a UI tick, or a dedicated goroutine — the engine
// does not care how often, only that nothing reads the queues concurrently
// with another Poll call.
func (c *Control) Poll() error {
	if err := c.ready(); err != nil {
		return err
	}
	c.mu.Lock()
	onPhase := c.onPhase
	onData := c.onBufferData
	onErr := c.onBufferReadError
	c.mu.Unlock()

	c.eng.Events().Drain(func(ev engine.Event) {
		switch ev.Kind {
		case engine.EventPhase:
			if onPhase != nil {
				onPhase(ev.Voice+1, ev.PositionS)
			}
		case engine.EventBufferData:
			if onData != nil {
				onData(ev.BufferID+1, float64(ev.StartSample)/buffer.SampleRate, ev.Samples)
			}
		default:
			log.Printf("[control] unexpected event kind %v", ev.Kind)
		}
	})
	c.eng.Status().Drain(func(ev engine.Event) {
		if ev.Kind == engine.EventBufferReadRefused && onErr != nil {
			onErr(ev.RequestID)
		}
	})
	return nil
}
