package pcm

import "testing"

func TestFormatZeroValueInvalid(t *testing.T) {
	var f Format
	if f.Valid() {
		t.Fatalf("zero value Format should be invalid")
	}
	if f.ID() != -1 {
		t.Fatalf("zero value Format.ID() = %d, want -1", f.ID())
	}
}

func TestFormatDescriptors(t *testing.T) {
	cases := []struct {
		name     string
		f        Format
		number   Number
		bitwidth int
		endian   Endian
	}{
		{"S8", S8(), SignedInteger, 8, NativeEndian},
		{"U8", U8(), UnsignedInteger, 8, NativeEndian},
		{"S16BE", S16BE(), SignedInteger, 16, BigEndian},
		{"S16LE", S16LE(), SignedInteger, 16, LittleEndian},
		{"U24BE", U24BE(), UnsignedInteger, 24, BigEndian},
		{"S32LE", S32LE(), SignedInteger, 32, LittleEndian},
		{"F32BE", F32BE(), FloatingPoint, 32, BigEndian},
		{"F64LE", F64LE(), FloatingPoint, 64, LittleEndian},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if !c.f.Valid() {
				t.Fatalf("%s: expected valid format", c.name)
			}
			if c.f.Number() != c.number {
				t.Errorf("Number() = %v, want %v", c.f.Number(), c.number)
			}
			if c.f.BitWidth() != c.bitwidth {
				t.Errorf("BitWidth() = %d, want %d", c.f.BitWidth(), c.bitwidth)
			}
			if c.f.Endianness() != c.endian {
				t.Errorf("Endianness() = %v, want %v", c.f.Endianness(), c.endian)
			}
			if c.f.BytesPerSample() != c.bitwidth/8 {
				t.Errorf("BytesPerSample() = %d, want %d", c.f.BytesPerSample(), c.bitwidth/8)
			}
		})
	}
}

func TestFormatIDsAreStableAndUnique(t *testing.T) {
	all := []Format{
		S8(), U8(),
		S16BE(), S16LE(), U16BE(), U16LE(),
		S24BE(), S24LE(), U24BE(), U24LE(),
		S32BE(), S32LE(), U32BE(), U32LE(),
		F32BE(), F32LE(), F64BE(), F64LE(),
	}

	seen := map[int]bool{}
	for _, f := range all {
		id := f.ID()
		if id < 0 || id >= numFormats {
			t.Fatalf("ID() = %d out of range [0, %d)", id, numFormats)
		}
		if seen[id] {
			t.Fatalf("duplicate dispatch id %d", id)
		}
		seen[id] = true
	}

	if len(seen) != numFormats {
		t.Fatalf("got %d distinct ids, want %d", len(seen), numFormats)
	}
}

func TestNativeEndianConvenienceFunctions(t *testing.T) {
	want := S16LE()
	if NativeEndian == BigEndian {
		want = S16BE()
	}
	if S16() != want {
		t.Errorf("S16() did not select the format matching NativeEndian")
	}
}
