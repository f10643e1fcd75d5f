// Package engine owns the two PCM buffers and six voices, and implements
// the single real-time entry point, Process. Nothing in this package locks
// or blocks inside Process. Process allocates in two places: the copy made
// to satisfy a buffer_read, and the slice of phase positions that
// voice.Step returns for each frame that emits a phase event.
package engine

import (
	"softcut/internal/buffer"
	"softcut/internal/queue"
	"softcut/internal/voice"
)

// commandQueueCapacity and eventQueueCapacity bound the two SPSC channels.
// Sized generously relative to one block's worth of commands/events so a
// burst of control-thread activity between two process() calls never
// overflows in ordinary operation; commandQueueCapacity overflow is a
// programming error, not a steady-state condition.
const (
	commandQueueCapacity = 256
	eventQueueCapacity   = 1024

	// statusQueueCapacity is a small, separate channel for buffer_read
	// refusal notices, kept apart from the high-volume Phase/BufferData
	// traffic so a saturated events queue cannot also swallow the
	// capacity notice that explains why.
	statusQueueCapacity = 64
)

// Engine is the sample engine: two shared buffers, six voices, and the
// command/event channel pair that is the only legitimate path between the
// audio thread and the control thread.
type Engine struct {
	buffers  [2]*buffer.Buffer
	voices   [voice.Count]voice.Voice
	pollOn   bool
	commands *queue.Commands[Command]
	events   *queue.Events[Event]
	status   *queue.Events[Event]
}

// New returns an Engine with both buffers zeroed and every voice at its
// factory default.
func New() *Engine {
	e := &Engine{
		buffers:  [2]*buffer.Buffer{buffer.New(), buffer.New()},
		commands: queue.NewCommands[Command](commandQueueCapacity),
		events:   queue.NewEvents[Event](eventQueueCapacity),
		status:   queue.NewEvents[Event](statusQueueCapacity),
	}
	for i := range e.voices {
		e.voices[i] = voice.Defaults(i)
	}
	return e
}

// Commands returns the command queue's control-side handle.
func (e *Engine) Commands() *queue.Commands[Command] {
	return e.commands
}

// Events returns the Phase/BufferData event queue's control-side handle.
func (e *Engine) Events() *queue.Events[Event] {
	return e.events
}

// Status returns the small, separate queue carrying buffer_read refusal
// notices.
func (e *Engine) Status() *queue.Events[Event] {
	return e.status
}

// Process is the real-time entry point: it clears outL/outR, drains pending
// commands in arrival order, runs the voice kernel for every enabled voice
// across the block, and pushes any events produced along the way. in, outL
// and outR must be the same length. Does not lock or perform blocking I/O.
// It allocates for CmdBufferRead (the copy of the requested region) and
// for every frame in which a voice emits phase events (the PhaseEvents
// slice of the voice.Frame); it does not allocate otherwise.
func (e *Engine) Process(in, outL, outR []float32) {
	n := len(in)
	for i := 0; i < n; i++ {
		outL[i] = 0
		outR[i] = 0
	}

	e.commands.Drain(e.apply)

	for vi := range e.voices {
		v := &e.voices[vi]
		if !v.Enabled {
			continue
		}
		buf := e.buffers[v.BufferID]
		for i := 0; i < n; i++ {
			f := voice.Step(v, buf, in[i], e.pollOn)
			outL[i] += f.OutL
			outR[i] += f.OutR
			for _, posS := range f.PhaseEvents {
				e.events.PushDroppable(Event{Kind: EventPhase, Voice: vi, PositionS: posS})
			}
		}
	}
}

// apply dispatches a single command. Invalid voice/buffer indices are
// clamped away (skipped) rather than raising — the audio path never faults
// on bad input.
func (e *Engine) apply(cmd Command) {
	if cmd.Kind == CmdReset {
		e.reset()
		return
	}
	if cmd.Kind == CmdPollStartPhase {
		e.pollOn = true
		return
	}
	if cmd.Kind == CmdPollStopPhase {
		e.pollOn = false
		return
	}
	if isBufferCommand(cmd.Kind) {
		e.applyBuffer(cmd)
		return
	}
	if cmd.Voice < 0 || cmd.Voice >= voice.Count {
		return
	}
	v := &e.voices[cmd.Voice]
	switch cmd.Kind {
	case CmdEnable:
		v.Enabled = cmd.Bool
	case CmdPlay:
		v.Playing = cmd.Bool
	case CmdRec:
		v.Recording = cmd.Bool
	case CmdBufferSelect:
		if cmd.Buffer == 0 || cmd.Buffer == 1 {
			v.BufferID = cmd.Buffer
		}
	case CmdRate:
		v.Rate = cmd.Float
	case CmdLevel:
		v.LevelTarget = cmd.Float
		if v.LevelSlewS <= 0 {
			v.Level = cmd.Float
		}
	case CmdLevelSlewTime:
		v.LevelSlewS = cmd.Float
	case CmdPan:
		v.Pan = cmd.Float
	case CmdPosition:
		v.Phase = cmd.Float * buffer.SampleRate
	case CmdLoop:
		v.LoopOn = cmd.Bool
	case CmdLoopStart:
		v.LoopStartS = cmd.Float
	case CmdLoopEnd:
		v.LoopEndS = cmd.Float
	case CmdFadeTime:
		v.FadeTimeS = cmd.Float
	case CmdRecLevel:
		v.RecLevel = cmd.Float
	case CmdPreLevel:
		v.PreLevel = cmd.Float
	case CmdPhaseQuant:
		v.PhaseQuantS = cmd.Float
	}
}

func isBufferCommand(k Kind) bool {
	switch k {
	case CmdBufferClear, CmdBufferClearChannel, CmdBufferClearRegion, CmdBufferLoad, CmdBufferRead:
		return true
	default:
		return false
	}
}

func (e *Engine) applyBuffer(cmd Command) {
	switch cmd.Kind {
	case CmdBufferClear:
		e.buffers[0].Clear()
		e.buffers[1].Clear()
	case CmdBufferClearChannel:
		if b := e.bufferAt(cmd.Buffer); b != nil {
			b.Clear()
		}
	case CmdBufferClearRegion:
		// Clears the region in *both* buffers, unlike
		// CmdBufferClearChannel which targets one.
		start := int(cmd.StartS * buffer.SampleRate)
		n := int(cmd.DurS * buffer.SampleRate)
		e.buffers[0].ClearRegion(start, n)
		e.buffers[1].ClearRegion(start, n)
	case CmdBufferLoad:
		if b := e.bufferAt(cmd.Buffer); b != nil {
			b.Load(int(cmd.StartS*buffer.SampleRate), cmd.Data)
		}
	case CmdBufferRead:
		e.doBufferRead(cmd)
	}
}

func (e *Engine) bufferAt(id int) *buffer.Buffer {
	if id != 0 && id != 1 {
		return nil
	}
	return e.buffers[id]
}

func (e *Engine) doBufferRead(cmd Command) {
	b := e.bufferAt(cmd.Buffer)
	if b == nil {
		return
	}
	start := int(cmd.StartS * buffer.SampleRate)
	n := int(cmd.DurS * buffer.SampleRate)
	samples := b.Read(start, n)
	ev := Event{
		Kind:        EventBufferData,
		RequestID:   cmd.RequestID,
		BufferID:    cmd.Buffer,
		StartSample: start,
		Samples:     samples,
	}
	if !e.events.PushRequired(ev) {
		// No room for the payload; tell the control side its read was
		// refused rather than silently dropping it. Posted on the separate
		// status queue so congestion on the main events queue can't also
		// swallow the explanation. The audio thread only posts the notice;
		// it's up to the control side to log it.
		e.status.PushDroppable(Event{
			Kind:        EventBufferReadRefused,
			RequestID:   cmd.RequestID,
			BufferID:    cmd.Buffer,
			StartSample: start,
		})
	}
}

func (e *Engine) reset() {
	e.buffers[0].Clear()
	e.buffers[1].Clear()
	for i := range e.voices {
		e.voices[i].Reset(i)
	}
	e.pollOn = false
}
