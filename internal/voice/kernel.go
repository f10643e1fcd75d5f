package voice

import (
	"math"

	"softcut/internal/buffer"
)

// Frame is the result of processing one sample-time slot through a voice.
type Frame struct {
	OutL, OutR float32

	// PhaseEvents holds every quantised phase position (in seconds) crossed
	// this frame. It is almost always length 0 or 1; a pathologically high
	// |rate| relative to a tiny phase_quant_s can cross more than one
	// quantum in a single sample, so the kernel reports all of them rather
	// than silently dropping extras.
	PhaseEvents []float64
}

// Step advances v by one frame, reading/writing buf as needed, and returns
// the stereo output plus any phase-report events. input is the current
// sample from the record source. pollPhase is the engine-wide phase
// reporting gate (toggled by poll_start_phase/poll_stop_phase); the
// per-voice quantum is v.PhaseQuantS.
//
// Steps, in order: level slew, interpolated read, loop-boundary crossfade
// gain, pan, emit, record, phase advance, loop/stop boundary handling, and
// quantised phase reporting.
func Step(v *Voice, buf *buffer.Buffer, input float32, pollPhase bool) Frame {
	var out Frame

	// 1. Level slew.
	if v.Level != v.LevelTarget {
		if v.LevelSlewS <= 0 {
			v.Level = v.LevelTarget
		} else {
			step := 1.0 / (v.LevelSlewS * buffer.SampleRate)
			if v.Level < v.LevelTarget {
				v.Level += step
				if v.Level > v.LevelTarget {
					v.Level = v.LevelTarget
				}
			} else {
				v.Level -= step
				if v.Level < v.LevelTarget {
					v.Level = v.LevelTarget
				}
			}
		}
	}

	// 2. A non-playing voice advances nothing further this frame: no read,
	// no emit, no record, no phase advance. Recording is inhibited too,
	// since record shares the playback head.
	if !v.Playing {
		return out
	}

	// 3. Read with linear interpolation.
	p := v.Phase
	i0 := int(math.Floor(p))
	f := p - float64(i0)
	length := buf.Len()
	var sample float32
	switch {
	case i0 >= 0 && i0+1 < length:
		sample = buf.At(i0)*float32(1-f) + buf.At(i0+1)*float32(f)
	case i0 >= 0 && i0 < length:
		sample = buf.At(i0)
	default:
		sample = 0
	}

	// 4. Crossfade gain.
	fadeGain := 1.0
	loopStartSamples := v.LoopStartS * buffer.SampleRate
	loopEndSamples := v.LoopEndS * buffer.SampleRate
	if v.LoopOn && v.FadeTimeS > 0 && loopEndSamples-loopStartSamples > 0 {
		fadeSamples := v.FadeTimeS * buffer.SampleRate
		dStart := v.Phase - loopStartSamples
		dEnd := loopEndSamples - v.Phase
		switch {
		case dStart >= 0 && dStart < fadeSamples:
			fadeGain = dStart / fadeSamples
		case dEnd >= 0 && dEnd < fadeSamples:
			fadeGain = dEnd / fadeSamples
		}
	}

	// 5. Pan.
	panNorm := (v.Pan + 1) / 2
	gL := math.Cos(panNorm * math.Pi / 2)
	gR := math.Sin(panNorm * math.Pi / 2)

	// 6. Emit.
	outSample := float64(sample) * v.Level * fadeGain
	out.OutL = float32(outSample * gL)
	out.OutR = float32(outSample * gR)

	// 7. Record.
	if v.Recording {
		ri := int(math.Floor(v.Phase))
		if ri >= 0 && ri < length {
			buf.Set(ri, float32(v.RecLevel)*input+float32(v.PreLevel)*buf.At(ri))
		}
	}

	// 8. Advance phase.
	v.Phase += v.Rate

	// 9. Boundary policy.
	if v.LoopOn {
		if v.Rate > 0 && v.Phase >= loopEndSamples {
			v.Phase = loopStartSamples + (v.Phase - loopEndSamples)
		} else if v.Rate < 0 && v.Phase < loopStartSamples {
			v.Phase = loopEndSamples - (loopStartSamples - v.Phase)
		}
	} else {
		if v.Phase >= float64(length) || v.Phase < 0 {
			v.Playing = false
		}
	}

	// 10. Phase reporting.
	if pollPhase && v.PhaseQuantS > 0 {
		v.PhaseAccum += math.Abs(v.Rate)
		quantum := v.PhaseQuantS * buffer.SampleRate
		for v.PhaseAccum >= quantum {
			v.PhaseAccum -= quantum
			out.PhaseEvents = append(out.PhaseEvents, v.Phase/buffer.SampleRate)
		}
	}

	return out
}
