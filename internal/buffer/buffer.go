// Package buffer implements the fixed-length mono PCM storage shared between
// the audio thread and the control thread.
//
// There are exactly two buffers in a running engine (see engine.New). Both
// are allocated once, at construction, and never reallocated or resized —
// an arena-like lifetime that keeps the audio thread free of allocation.
// All index arithmetic clamps or no-ops on out-of-range input; a Buffer
// never panics on a bad index, because the audio thread that owns it must
// never fault.
package buffer

// SampleRate is the engine's fixed sample rate in Hz. Behaviour at any other
// rate is undefined.
const SampleRate = 48000

// MaxDurationSeconds is the nominal capacity of one buffer, in seconds.
const MaxDurationSeconds = 350

// Length is the number of float32 samples in one buffer
// (48000 Hz * 350 s = 16,800,000 samples, ~67 MB as float32).
const Length = SampleRate * MaxDurationSeconds

// Buffer is a fixed-length, zero-initialised mono sample store.
type Buffer struct {
	data [Length]float32
}

// New returns a zeroed Buffer. Call once per buffer slot at engine
// construction; never reallocate.
func New() *Buffer {
	return &Buffer{}
}

// Len returns the buffer's fixed length in samples.
func (b *Buffer) Len() int {
	return len(b.data)
}

// At returns the sample at i, or 0 if i is out of range. Never panics.
func (b *Buffer) At(i int) float32 {
	if i < 0 || i >= len(b.data) {
		return 0
	}
	return b.data[i]
}

// Set writes v at i. Out-of-range i is silently ignored.
func (b *Buffer) Set(i int, v float32) {
	if i < 0 || i >= len(b.data) {
		return
	}
	b.data[i] = v
}

// Clear zeroes the entire buffer.
func (b *Buffer) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// ClearRegion zeroes samples in [start, start+n), clamped to buffer bounds.
func (b *Buffer) ClearRegion(start, n int) {
	lo, hi := clampRange(start, start+n, len(b.data))
	for i := lo; i < hi; i++ {
		b.data[i] = 0
	}
}

// Load copies src into the buffer beginning at dst, clamping to buffer
// bounds (truncating src if it would overrun).
func (b *Buffer) Load(dst int, src []float32) {
	if dst < 0 {
		src = src[min(len(src), -dst):]
		dst = 0
	}
	if dst >= len(b.data) {
		return
	}
	n := min(len(src), len(b.data)-dst)
	copy(b.data[dst:dst+n], src[:n])
}

// Read returns a freshly-allocated copy of samples in [start, start+n),
// clamped to buffer bounds. The returned slice is owned by the caller.
func (b *Buffer) Read(start, n int) []float32 {
	lo, hi := clampRange(start, start+n, len(b.data))
	if hi <= lo {
		return nil
	}
	out := make([]float32, hi-lo)
	copy(out, b.data[lo:hi])
	return out
}

// clampRange clamps [lo, hi) to [0, length).
func clampRange(lo, hi, length int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > length {
		hi = length
	}
	if lo > length {
		lo = length
	}
	if hi < 0 {
		hi = 0
	}
	return lo, hi
}
