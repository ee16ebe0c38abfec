package pcm

// Iterator is a random-access view over a raw PCM byte range, presenting
// each sample as a T value converted on the fly from the underlying
// Format. It does not copy data; At and Set decode/encode directly against
// the backing slice.
type Iterator[T Value] struct {
	format Format
	data   []byte
}

// NewIterator returns an Iterator over data, interpreted as a sequence of
// samples encoded as f. data need not be a whole number of samples; trailing
// bytes short of one sample are ignored by Len.
func NewIterator[T Value](f Format, data []byte) *Iterator[T] {
	return &Iterator[T]{format: f, data: data}
}

// Len returns the number of whole samples in the iterator's byte range.
func (it *Iterator[T]) Len() int {
	bps := it.format.BytesPerSample()
	if bps == 0 {
		return 0
	}

	return len(it.data) / bps
}

// At decodes and converts the sample at index i. It panics if i is out of
// range, consistent with slice indexing.
func (it *Iterator[T]) At(i int) T {
	bps := it.format.BytesPerSample()
	off := i * bps

	return ReadSample[T](it.format, it.data[off:off+bps])
}

// Set converts v to the iterator's Format and encodes it in place at index
// i. It panics if i is out of range.
func (it *Iterator[T]) Set(i int, v T) {
	bps := it.format.BytesPerSample()
	off := i * bps

	WriteSample(it.format, it.data[off:off+bps], v)
}

// Proxy returns a reference to the sample at index i that can be read and
// written without re-deriving the byte offset each time, mirroring the
// element-reference proxy of a random-access PCM iterator.
func (it *Iterator[T]) Proxy(i int) Proxy[T] {
	return Proxy[T]{it: it, idx: i}
}

// Proxy is a reference to a single sample slot in an Iterator's backing
// buffer.
type Proxy[T Value] struct {
	it  *Iterator[T]
	idx int
}

// Get decodes the referenced sample.
func (p Proxy[T]) Get() T { return p.it.At(p.idx) }

// Set encodes v into the referenced sample slot.
func (p Proxy[T]) Set(v T) { p.it.Set(p.idx, v) }

// All returns a range-over-func sequence of every (index, sample) pair in
// the iterator, in order.
func (it *Iterator[T]) All() func(func(int, T) bool) {
	return func(yield func(int, T) bool) {
		n := it.Len()
		for i := 0; i < n; i++ {
			if !yield(i, it.At(i)) {
				return
			}
		}
	}
}
