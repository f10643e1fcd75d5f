// Package voice holds per-voice playback/record state and the per-frame
// kernel that advances it. A Voice never touches the command queue or the
// control API directly — it is pure state plus an inner loop, driven once
// per frame by the engine.
package voice

import "softcut/internal/buffer"

// Count is the fixed number of voices an engine owns. Voices are created
// once at engine construction and never destroyed; enabled=false is their
// idle state.
const Count = 6

// Voice holds the eight attribute groups of per-voice state: topology,
// transport, loop, fade, amplitude, pan, record, and phase reporting. All
// fields use engine-interior 0-based indexing; the control API translates
// from the caller-facing 1-based indices.
type Voice struct {
	// Topology
	BufferID  int
	Enabled   bool
	Playing   bool
	Recording bool

	// Transport
	Phase float64 // fractional sample position
	Rate  float64 // signed; playback and record share this head

	// Loop
	LoopOn     bool
	LoopStartS float64
	LoopEndS   float64

	// Fade
	FadeTimeS float64

	// Amplitude
	Level       float64
	LevelTarget float64
	LevelSlewS  float64

	// Pan
	Pan float64

	// Record
	RecLevel float64
	PreLevel float64

	// Phase reporting
	PhaseQuantS float64
	PhaseAccum  float64
}

// Defaults returns the factory-default Voice for the given 0-based voice
// index: voices 0-2 default to buffer 0, voices 3-5 default to buffer 1.
func Defaults(index int) Voice {
	buf := 0
	if index >= 3 {
		buf = 1
	}
	return Voice{
		BufferID:    buf,
		Rate:        1,
		Level:       1,
		LevelTarget: 1,
		LoopEndS:    buffer.MaxDurationSeconds,
		FadeTimeS:   0.01,
	}
}

// Reset reinitialises the voice to its factory defaults in place.
func (v *Voice) Reset(index int) {
	*v = Defaults(index)
}
