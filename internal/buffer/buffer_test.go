package buffer

import "testing"

func TestNewIsZeroed(t *testing.T) {
	b := New()
	if b.Len() != Length {
		t.Errorf("Len: got %d, want %d", b.Len(), Length)
	}
	if v := b.At(0); v != 0 {
		t.Errorf("At(0): got %f, want 0", v)
	}
	if v := b.At(Length - 1); v != 0 {
		t.Errorf("At(last): got %f, want 0", v)
	}
}

func TestAtOutOfRangeReturnsZero(t *testing.T) {
	b := New()
	b.Set(5, 1.0)
	cases := []int{-1, -1000, Length, Length + 1}
	for _, i := range cases {
		if v := b.At(i); v != 0 {
			t.Errorf("At(%d): got %f, want 0", i, v)
		}
	}
}

func TestSetOutOfRangeIsNoop(t *testing.T) {
	b := New()
	b.Set(-5, 1.0)
	b.Set(Length+5, 1.0)
	// Nothing to assert beyond "did not panic"; every in-range sample
	// should still read 0.
	if v := b.At(0); v != 0 {
		t.Errorf("At(0): got %f, want 0", v)
	}
}

func TestSetAndAt(t *testing.T) {
	b := New()
	b.Set(100, 0.5)
	if v := b.At(100); v != 0.5 {
		t.Errorf("At(100): got %f, want 0.5", v)
	}
}

func TestClear(t *testing.T) {
	b := New()
	b.Set(10, 1)
	b.Set(20, 1)
	b.Clear()
	if b.At(10) != 0 || b.At(20) != 0 {
		t.Errorf("Clear did not zero buffer")
	}
}

func TestClearRegion(t *testing.T) {
	b := New()
	for i := 0; i < 10; i++ {
		b.Set(i, 1)
	}
	b.ClearRegion(2, 3) // clears [2,5)
	for i := 0; i < 10; i++ {
		want := float32(1)
		if i >= 2 && i < 5 {
			want = 0
		}
		if got := b.At(i); got != want {
			t.Errorf("At(%d): got %f, want %f", i, got, want)
		}
	}
}

func TestClearRegionClampsToBounds(t *testing.T) {
	b := New()
	b.Set(Length-1, 1)
	b.ClearRegion(Length-5, 1000) // overruns the end
	if b.At(Length-1) != 0 {
		t.Errorf("ClearRegion did not clamp to buffer end")
	}
}

func TestLoadCopiesAtOffset(t *testing.T) {
	b := New()
	src := []float32{1, 2, 3, 4}
	b.Load(10, src)
	for i, want := range src {
		if got := b.At(10 + i); got != want {
			t.Errorf("At(%d): got %f, want %f", 10+i, got, want)
		}
	}
}

func TestLoadTruncatesAtBufferEnd(t *testing.T) {
	b := New()
	src := make([]float32, 10)
	for i := range src {
		src[i] = float32(i + 1)
	}
	b.Load(Length-3, src) // only 3 samples fit
	if b.At(Length-3) != 1 || b.At(Length-2) != 2 || b.At(Length-1) != 3 {
		t.Errorf("Load did not truncate cleanly at buffer end")
	}
}

func TestLoadClampsNegativeStart(t *testing.T) {
	b := New()
	src := []float32{1, 2, 3, 4}
	b.Load(-2, src) // first 2 samples fall off the front
	if b.At(0) != 3 || b.At(1) != 4 {
		t.Errorf("Load did not clamp negative start correctly: At(0)=%f At(1)=%f", b.At(0), b.At(1))
	}
}

func TestReadReturnsCopy(t *testing.T) {
	b := New()
	b.Set(0, 1)
	b.Set(1, 2)
	b.Set(2, 3)
	out := b.Read(0, 3)
	if len(out) != 3 {
		t.Fatalf("Read length: got %d, want 3", len(out))
	}
	out[0] = 99
	if b.At(0) != 1 {
		t.Errorf("Read did not return an owned copy: mutating it changed the buffer")
	}
}

func TestReadClampsToBounds(t *testing.T) {
	b := New()
	out := b.Read(Length-2, 10)
	if len(out) != 2 {
		t.Errorf("Read clamp: got %d samples, want 2", len(out))
	}
}

func TestReadEntirelyOutOfRange(t *testing.T) {
	b := New()
	if out := b.Read(Length+10, 5); out != nil {
		t.Errorf("Read out of range: got %v, want nil", out)
	}
}
