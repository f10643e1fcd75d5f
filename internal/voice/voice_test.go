package voice

import (
	"math"
	"testing"

	"softcut/internal/buffer"
)

func TestDefaultsBufferAssignment(t *testing.T) {
	for i := 0; i < Count; i++ {
		v := Defaults(i)
		want := 0
		if i >= 3 {
			want = 1
		}
		if v.BufferID != want {
			t.Errorf("Defaults(%d).BufferID: got %d, want %d", i, v.BufferID, want)
		}
	}
}

func TestDefaultsFields(t *testing.T) {
	v := Defaults(0)
	if v.Rate != 1 || v.Level != 1 || v.LevelTarget != 1 {
		t.Errorf("Defaults rate/level: got rate=%f level=%f target=%f", v.Rate, v.Level, v.LevelTarget)
	}
	if v.LoopOn || v.Enabled || v.Playing || v.Recording {
		t.Errorf("Defaults should start idle: %+v", v)
	}
	if v.FadeTimeS != 0.01 {
		t.Errorf("Defaults fade time: got %f, want 0.01", v.FadeTimeS)
	}
	if v.LoopEndS != buffer.MaxDurationSeconds {
		t.Errorf("Defaults loop end: got %f, want %f", v.LoopEndS, float64(buffer.MaxDurationSeconds))
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	v := Defaults(1)
	v.Phase = 12345
	v.Rate = -3
	v.Enabled = true
	v.Reset(1)
	want := Defaults(1)
	if v != want {
		t.Errorf("Reset: got %+v, want %+v", v, want)
	}
}

func TestStepNotPlayingIsSilentAndFrozen(t *testing.T) {
	v := Defaults(0)
	v.Enabled = true
	v.Playing = false
	v.Phase = 10
	buf := buffer.New()
	f := Step(&v, buf, 0, true)
	if f.OutL != 0 || f.OutR != 0 {
		t.Errorf("non-playing voice emitted output: %+v", f)
	}
	if v.Phase != 10 {
		t.Errorf("non-playing voice advanced phase: got %f, want 10", v.Phase)
	}
}

func TestStepLevelSlewSnapsWhenZero(t *testing.T) {
	v := Defaults(0)
	v.LevelSlewS = 0
	v.Level = 0
	v.LevelTarget = 0.8
	buf := buffer.New()
	Step(&v, buf, 0, false)
	if v.Level != 0.8 {
		t.Errorf("level did not snap: got %f, want 0.8", v.Level)
	}
}

func TestStepLevelSlewRampsLinearly(t *testing.T) {
	v := Defaults(0)
	v.Playing = false // isolate slew from playback path
	v.LevelSlewS = 1.0
	v.Level = 0
	v.LevelTarget = 1.0
	buf := buffer.New()
	want := 1.0 / buffer.SampleRate
	Step(&v, buf, 0, false)
	if math.Abs(v.Level-want) > 1e-9 {
		t.Errorf("slew step: got %f, want %f", v.Level, want)
	}
}

func TestStepReadInterpolatesLinearly(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.Rate = 0
	v.Phase = 0.25
	buf := buffer.New()
	buf.Set(0, 0.0)
	buf.Set(1, 1.0)
	f := Step(&v, buf, 0, false)
	// pan=0 -> gL = cos(pi/4) = sqrt(2)/2; outL = sample*level*gL
	expectedSample := float32(0.25)
	expectedL := expectedSample * float32(math.Cos(math.Pi/4))
	if math.Abs(float64(f.OutL-expectedL)) > 1e-5 {
		t.Errorf("interpolated read: got OutL=%f, want %f", f.OutL, expectedL)
	}
}

func TestPanPowerInvariant(t *testing.T) {
	for p := -1.0; p <= 1.0; p += 0.05 {
		panNorm := (p + 1) / 2
		gL := math.Cos(panNorm * math.Pi / 2)
		gR := math.Sin(panNorm * math.Pi / 2)
		sum := gL*gL + gR*gR
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("pan=%f: gL^2+gR^2 = %f, want 1.0", p, sum)
		}
	}
}

func TestLoopClosureForward(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.LoopOn = true
	v.FadeTimeS = 0
	v.LoopStartS = 0
	v.LoopEndS = 0.001 // 48 samples at 48kHz
	v.Rate = 1
	buf := buffer.New()
	for i := 0; i < 10000; i++ {
		Step(&v, buf, 0, false)
		if v.Phase < 0 || v.Phase >= v.LoopEndS*buffer.SampleRate {
			t.Fatalf("iteration %d: phase %f left [0, %f)", i, v.Phase, v.LoopEndS*buffer.SampleRate)
		}
	}
}

func TestLoopClosureReverse(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.LoopOn = true
	v.FadeTimeS = 0
	v.LoopStartS = 0
	v.LoopEndS = 0.001
	v.Rate = -1
	v.Phase = 10
	buf := buffer.New()
	for i := 0; i < 10000; i++ {
		Step(&v, buf, 0, false)
		if v.Phase < 0 || v.Phase >= v.LoopEndS*buffer.SampleRate {
			t.Fatalf("iteration %d: phase %f left [0, %f)", i, v.Phase, v.LoopEndS*buffer.SampleRate)
		}
	}
}

func TestOneShotStopsAtBufferEnd(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.LoopOn = false
	v.Rate = 1
	v.Phase = float64(buffer.Length - 2)
	buf := buffer.New()
	for i := 0; i < 5; i++ {
		Step(&v, buf, 0, false)
	}
	if v.Playing {
		t.Errorf("one-shot voice should have stopped at buffer end")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.Recording = true
	v.RecLevel = 1
	v.PreLevel = 0
	v.Rate = 1
	v.LoopOn = false
	buf := buffer.New()

	const n = 1000
	input := make([]float32, n)
	for i := range input {
		input[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / buffer.SampleRate))
	}
	for i := 0; i < n; i++ {
		Step(&v, buf, input[i], false)
	}

	v.Recording = false
	v.Playing = true
	v.Phase = 0
	for i := 0; i < n; i++ {
		want := input[i]
		got := buf.At(i)
		if math.Abs(float64(got-want)) > 1e-6 {
			t.Fatalf("sample %d: got %f, want %f", i, got, want)
		}
	}
}

func TestOverdubLinearity(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.Recording = true
	v.RecLevel = 0.6
	v.PreLevel = 0.3
	v.Rate = 1
	buf := buffer.New()
	buf.Set(0, 0.4) // prior buffer content
	prev := buf.At(0)
	input := float32(0.9)
	Step(&v, buf, input, false)
	want := float32(0.6)*input + float32(0.3)*prev
	got := buf.At(0)
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("overdub: got %f, want %f", got, want)
	}
}

func TestCrossfadeGainAtLoopBoundary(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.LoopOn = true
	v.LoopStartS = 0
	v.LoopEndS = 1.0
	v.FadeTimeS = 0.01
	v.Rate = 0 // freeze phase so we can probe specific positions
	buf := buffer.New()
	buf.Set(0, 1.0)
	buf.Set(1, 1.0)

	fadeSamples := v.FadeTimeS * buffer.SampleRate

	v.Phase = 0 // exactly at loop start
	f := Step(&v, buf, 0, false)
	gL := math.Cos(((v.Pan + 1) / 2) * math.Pi / 2)
	if math.Abs(float64(f.OutL)) > 1e-6 {
		t.Errorf("fade at loop start should be ~0 gain (d_start=0): got %f", f.OutL)
	}

	v.Phase = fadeSamples / 2
	buf.Set(int(v.Phase), 1.0)
	buf.Set(int(v.Phase)+1, 1.0)
	f = Step(&v, buf, 0, false)
	expected := float32(0.5 * gL)
	if math.Abs(float64(f.OutL-expected)) > 1e-3 {
		t.Errorf("fade mid-ramp: got %f, want ~%f", f.OutL, expected)
	}
}

func TestPhaseEventCadence(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.Rate = 1
	v.PhaseQuantS = 0.01 // 480 samples
	buf := buffer.New()

	events := 0
	const frames = 48000 // 1 second
	for i := 0; i < frames; i++ {
		f := Step(&v, buf, 0, true)
		events += len(f.PhaseEvents)
	}
	want := int(math.Abs(v.Rate) * 1.0 / v.PhaseQuantS)
	if events < want-1 || events > want+1 {
		t.Errorf("phase events over 1s: got %d, want %d +/- 1", events, want)
	}
}

func TestPhaseReportingDisabledWhenQuantZero(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.Rate = 1
	v.PhaseQuantS = 0
	buf := buffer.New()
	for i := 0; i < 48000; i++ {
		f := Step(&v, buf, 0, true)
		if len(f.PhaseEvents) != 0 {
			t.Fatalf("phase event emitted despite phase_quant_s=0")
		}
	}
}

func TestPhaseReportingGatedByPoll(t *testing.T) {
	v := Defaults(0)
	v.Playing = true
	v.Rate = 1
	v.PhaseQuantS = 0.001
	buf := buffer.New()
	for i := 0; i < 48000; i++ {
		f := Step(&v, buf, 0, false) // pollPhase=false
		if len(f.PhaseEvents) != 0 {
			t.Fatalf("phase event emitted while polling disabled")
		}
	}
}
