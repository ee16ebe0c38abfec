package pcm

import "testing"

func TestIteratorLen(t *testing.T) {
	data := make([]byte, 10) // 5 native-endian S16 samples
	it := NewIterator[int16](S16(), data)
	if got := it.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	// Trailing partial sample is ignored.
	it2 := NewIterator[int16](S16(), data[:9])
	if got := it2.Len(); got != 4 {
		t.Fatalf("Len() with trailing byte = %d, want 4", got)
	}
}

func TestIteratorAtAndSet(t *testing.T) {
	data := make([]byte, 8)
	it := NewIterator[float32](S16LE(), data)

	it.Set(0, 1.0)
	it.Set(1, -1.0)
	it.Set(2, 0.0)
	it.Set(3, 0.5)

	// 1.0 clips to the largest 16-bit sample, 32767/32768.
	if got, want := it.At(0), float32(32767)/32768; got != want {
		t.Errorf("At(0) = %v, want %v", got, want)
	}
	if got := it.At(1); got != -1.0 {
		t.Errorf("At(1) = %v, want -1.0", got)
	}
	if got := it.At(2); got != 0.0 {
		t.Errorf("At(2) = %v, want 0.0", got)
	}
}

func TestIteratorProxy(t *testing.T) {
	data := make([]byte, 4)
	it := NewIterator[int16](S16LE(), data)

	p := it.Proxy(1)
	p.Set(42)

	if got := it.At(1); got != 42 {
		t.Errorf("At(1) after Proxy.Set = %d, want 42", got)
	}
	if got := p.Get(); got != 42 {
		t.Errorf("Proxy.Get() = %d, want 42", got)
	}
}

func TestIteratorAll(t *testing.T) {
	data := make([]byte, 6)
	it := NewIterator[int16](S16LE(), data)
	it.Set(0, 10)
	it.Set(1, 20)
	it.Set(2, 30)

	var sum int
	for i, v := range it.All() {
		sum += i + int(v)
	}

	if want := (0 + 10) + (1 + 20) + (2 + 30); sum != want {
		t.Errorf("All() sum = %d, want %d", sum, want)
	}
}
