package aiff

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"audiofile/pkg/pcm"
)

// ieee80 encodes rate as a 10-byte 80-bit IEEE 754 extended float, the
// inverse of extendedToFloat64, good enough for the round sample rates used
// in these tests.
func ieee80(rate float64) [10]byte {
	var buf [10]byte
	if rate == 0 {
		return buf
	}

	exponent := 16383 + 15 // bias + enough headroom for audio sample rates
	mantissa := uint64(rate) << (63 - 15)

	binary.BigEndian.PutUint16(buf[0:2], uint16(exponent))
	binary.BigEndian.PutUint64(buf[2:10], mantissa)

	return buf
}

func writeTestAIFF(t *testing.T, formType string, channels int, sampleSize uint16, compression string, nFrames int) string {
	t.Helper()

	blockAlign := int(sampleSize/8) * channels
	dataSize := nFrames * blockAlign

	var comm []byte
	comm = binary.BigEndian.AppendUint16(comm, uint16(channels))
	comm = binary.BigEndian.AppendUint32(comm, uint32(nFrames))
	comm = binary.BigEndian.AppendUint16(comm, sampleSize)
	rate := ieee80(44100)
	comm = append(comm, rate[:]...)

	commLen := len(comm)
	if formType == "AIFC" {
		commLen += 4 // compression id
	}

	var body []byte
	body = append(body, "COMM"...)
	body = binary.BigEndian.AppendUint32(body, uint32(commLen))
	if formType == "AIFC" {
		body = append(body, compression...)
	}
	body = append(body, comm...)
	if commLen%2 != 0 {
		body = append(body, 0)
	}

	body = append(body, "SSND"...)
	body = binary.BigEndian.AppendUint32(body, uint32(8+dataSize))
	body = binary.BigEndian.AppendUint32(body, 0) // offset
	body = binary.BigEndian.AppendUint32(body, 0) // blockSize
	body = append(body, make([]byte, dataSize)...)

	var buf []byte
	buf = append(buf, "FORM"...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(4+len(body)))
	buf = append(buf, formType...)
	buf = append(buf, body...)

	path := filepath.Join(t.TempDir(), "test.aiff")
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

// ieee80Precise encodes rate as a fully precise 80-bit IEEE 754 extended
// float via math.Frexp, unlike ieee80 above (which truncates to integer
// rates), so it can exercise fractional sample rates.
func ieee80Precise(rate float64) [10]byte {
	var buf [10]byte

	frac, exp := math.Frexp(rate)
	mantissa := uint64(frac * (1 << 64))
	exponent := uint16(exp - 1 + 16383)

	binary.BigEndian.PutUint16(buf[0:2], exponent)
	binary.BigEndian.PutUint64(buf[2:10], mantissa)

	return buf
}

func TestExtendedToFloat64RoundsToNearestInteger(t *testing.T) {
	rate := extendedToFloat64(sliceOf(ieee80Precise(44100.6)))
	if rate != 44101 {
		t.Errorf("extendedToFloat64(44100.6) = %v, want 44101", rate)
	}

	rate = extendedToFloat64(sliceOf(ieee80Precise(48000.2)))
	if rate != 48000 {
		t.Errorf("extendedToFloat64(48000.2) = %v, want 48000", rate)
	}
}

func sliceOf(b [10]byte) []byte { return b[:] }

func TestOpenAIFF(t *testing.T) {
	path := writeTestAIFF(t, "AIFF", 2, 16, "", 50)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	info := r.Info()
	if info.NumChannels != 2 {
		t.Errorf("NumChannels = %d, want 2", info.NumChannels)
	}
	if info.NumSampleFrames != 50 {
		t.Errorf("NumSampleFrames = %d, want 50", info.NumSampleFrames)
	}
	if info.Format.ID() != pcm.S16BE().ID() {
		t.Errorf("Format = %v, want S16BE", info.Format)
	}
}

func TestOpenAIFCSowtIsLittleEndian(t *testing.T) {
	path := writeTestAIFF(t, "AIFC", 1, 16, "sowt", 10)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.Info().Format.ID() != pcm.S16LE().ID() {
		t.Errorf("Format = %v, want S16LE", r.Info().Format)
	}
}

func TestOpenAIFCNoneIsBigEndian(t *testing.T) {
	path := writeTestAIFF(t, "AIFC", 1, 24, "NONE", 10)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.Info().Format.ID() != pcm.S24BE().ID() {
		t.Errorf("Format = %v, want S24BE", r.Info().Format)
	}
}

func TestOpenAIFCRejectsUnsupportedCompression(t *testing.T) {
	path := writeTestAIFF(t, "AIFC", 1, 16, "ima4", 10)

	if _, err := Open(path); err == nil {
		t.Fatal("expected error for unsupported compression")
	}
}

func TestOpenRejectsNonAIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.aiff")
	if err := os.WriteFile(path, []byte("not an IFF file at all!"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected error opening non-FORM file")
	}
}

func TestReadAndSeek(t *testing.T) {
	path := writeTestAIFF(t, "AIFF", 1, 16, "", 20)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	buf := make([]byte, 6)
	n, err := r.Read(buf)
	if err != nil || n != 6 {
		t.Fatalf("Read = %d, %v", n, err)
	}

	pos, err := r.Seek(10, io.SeekStart)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if pos != 10 {
		t.Fatalf("Seek returned %d, want 10", pos)
	}

	if _, err := r.Seek(1000, io.SeekStart); err != nil {
		t.Fatalf("Seek past end: %v", err)
	}
	n, err = r.Read(buf)
	if err != nil {
		t.Fatalf("Read past end: %v", err)
	}
	if n != 0 {
		t.Fatalf("Read past end = %d bytes, want 0", n)
	}
}
