package pcm

import "testing"

func TestReadWriteSampleRoundTrip(t *testing.T) {
	formats := []Format{
		S8(), U8(),
		S16BE(), S16LE(), U16BE(), U16LE(),
		S24BE(), S24LE(), U24BE(), U24LE(),
		S32BE(), S32LE(), U32BE(), U32LE(),
		F32BE(), F32LE(), F64BE(), F64LE(),
	}

	for _, f := range formats {
		raw := make([]byte, f.BytesPerSample())
		WriteSample[float32](f, raw, 0.5)
		got := ReadSample[float32](f, raw)

		if diff := got - 0.5; diff > 0.01 || diff < -0.01 {
			t.Errorf("%v: write(0.5) then read = %v", f, got)
		}
	}
}

func TestS24LEEncodesThreeBytes(t *testing.T) {
	raw := make([]byte, 3)
	// 1/2^23 should encode to raw sample value 1 (0x000001 little-endian).
	WriteSample[float32](S24LE(), raw, float32(1.0/float32(int64(1)<<23)))

	if raw[0] != 1 || raw[1] != 0 || raw[2] != 0 {
		t.Fatalf("S24LE encode = % x, want [01 00 00]", raw)
	}
}

func TestS24BEMatchesS24LEByteSwap(t *testing.T) {
	be := []byte{0x01, 0x02, 0x03}
	le := []byte{0x03, 0x02, 0x01}

	got := ReadSample[float64](S24BE(), be)
	want := ReadSample[float64](S24LE(), le)

	if got != want {
		t.Fatalf("S24BE(% x) = %v, S24LE(% x) = %v, want equal", be, got, le, want)
	}
}

func TestS16RoundTripPreservesSign(t *testing.T) {
	raw := make([]byte, 2)
	WriteSample[int16](S16LE(), raw, -1)
	got := ReadSample[int16](S16LE(), raw)
	if got != -1 {
		t.Fatalf("S16LE round trip of -1 = %d", got)
	}
	if raw[0] != 0xFF || raw[1] != 0xFF {
		t.Fatalf("S16LE encoding of -1 = % x, want [ff ff]", raw)
	}
}

func TestU8MidpointIsSignedZero(t *testing.T) {
	raw := []byte{128}
	got := ReadSample[int8](U8(), raw)
	if got != 0 {
		t.Fatalf("U8(128)->int8 = %d, want 0", got)
	}
}

func TestFloatFormatsPassThroughExactly(t *testing.T) {
	raw := make([]byte, 4)
	WriteSample[float32](F32LE(), raw, -0.125)
	if got := ReadSample[float32](F32LE(), raw); got != -0.125 {
		t.Fatalf("F32LE round trip = %v, want -0.125", got)
	}

	raw8 := make([]byte, 8)
	WriteSample[float64](F64BE(), raw8, 0.125)
	if got := ReadSample[float64](F64BE(), raw8); got != 0.125 {
		t.Fatalf("F64BE round trip = %v, want 0.125", got)
	}
}
