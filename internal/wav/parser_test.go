package wav

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"audiofile/pkg/pcm"
)

// writeTestWAV builds a minimal canonical WAV file with the given channel
// count, bit depth and format tag, holding nFrames of silence, and returns
// its path.
func writeTestWAV(t *testing.T, channels int, bitsPerSample uint16, formatTag uint16, nFrames int) string {
	t.Helper()

	blockAlign := int(bitsPerSample/8) * channels
	dataSize := nFrames * blockAlign

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, formatTag)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, 44100)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(44100*blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	path := filepath.Join(t.TempDir(), "test.wav")
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func TestOpenCanonicalPCM(t *testing.T) {
	path := writeTestWAV(t, 2, 16, formatPCM, 100)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	info := r.Info()
	if info.NumChannels != 2 {
		t.Errorf("NumChannels = %d, want 2", info.NumChannels)
	}
	if info.SampleRate != 44100 {
		t.Errorf("SampleRate = %v, want 44100", info.SampleRate)
	}
	if info.NumSampleFrames != 100 {
		t.Errorf("NumSampleFrames = %d, want 100", info.NumSampleFrames)
	}
	if info.Format.ID() != pcm.S16LE().ID() {
		t.Errorf("Format = %v, want S16LE", info.Format)
	}
}

func TestOpenIEEEFloat(t *testing.T) {
	path := writeTestWAV(t, 1, 32, formatIEEEFloat, 10)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.Info().Format.ID() != pcm.F32LE().ID() {
		t.Errorf("Format = %v, want F32LE", r.Info().Format)
	}
}

func TestOpenRejectsNonRIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a riff file at all"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected error opening non-RIFF file")
	}
}

func TestReadAndSeek(t *testing.T) {
	path := writeTestWAV(t, 1, 16, formatPCM, 10)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	buf := make([]byte, 4) // 2 frames at 2 bytes/frame
	n, err := r.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("Read = %d, %v", n, err)
	}

	pos, err := r.Seek(5, io.SeekStart)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if pos != 5 {
		t.Fatalf("Seek returned %d, want 5", pos)
	}

	// Seeking past end then reading should yield a short/empty read, not an
	// error.
	if _, err := r.Seek(100, io.SeekStart); err != nil {
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

func TestOpenRejectsUnsupportedBitDepth(t *testing.T) {
	path := writeTestWAV(t, 1, 12, formatPCM, 1)

	if _, err := Open(path); err == nil {
		t.Fatal("expected error for unsupported bit depth")
	}
}
