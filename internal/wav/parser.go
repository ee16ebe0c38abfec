// Package wav parses the RIFF/WAVE container: a "fmt " chunk describing PCM
// or IEEE-float encoding (including WAVEFORMATEXTENSIBLE), a "data" chunk
// holding the raw sample bytes; every other chunk (metadata included) is
// skipped without being interpreted.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"audiofile/internal/bytesource"
	"audiofile/pkg/audiostream"
	"audiofile/pkg/pcm"
)

// Errors.
var (
	ErrNotRIFF           = errors.New("wav: not a RIFF/WAVE file")
	ErrInvalidFile       = errors.New("wav: invalid file structure")
	ErrUnsupportedFormat = errors.New("wav: unsupported format")
	ErrMissingChunk      = errors.New("wav: missing required chunk")
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
	formatExtensible = 0xFFFE
)

// subFormat GUIDs from the WAVEFORMATEXTENSIBLE sub-format field
// (KSDATAFORMAT_SUBTYPE_PCM / KSDATAFORMAT_SUBTYPE_IEEE_FLOAT).
var (
	subFormatPCM = [16]byte{
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
		0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
	}
	subFormatIEEEFloat = [16]byte{
		0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
		0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
	}
)

// Reader is a seekable, streaming WAV/RIFF PCM source.
type Reader struct {
	src        *bytesource.FileSource
	info       audiostream.Info
	dataStart  int64
	blockAlign int
}

// Open opens path, parses its RIFF header, and positions the stream at the
// start of the PCM payload.
func Open(path string) (*Reader, error) {
	src, err := bytesource.Open(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{src: src}
	if err := r.readHeader(); err != nil {
		src.Close()
		return nil, err
	}

	return r, nil
}

// Info implements audiostream.Stream.
func (r *Reader) Info() audiostream.Info { return r.info }

// Read implements audiostream.Stream.
func (r *Reader) Read(p []byte) (int, error) {
	pos := r.src.Tell()
	end := r.dataStart + r.info.NumBytes()

	if pos >= end {
		return 0, nil
	}

	if max := end - pos; int64(len(p)) > max {
		p = p[:max]
	}

	return r.src.Read(p)
}

// Seek implements audiostream.Stream. frame is a sample-frame offset.
func (r *Reader) Seek(frame int64, whence int) (int64, error) {
	step := int64(r.blockAlign)

	var target int64
	switch whence {
	case io.SeekStart:
		target = r.dataStart + frame*step
	case io.SeekCurrent:
		target = r.src.Tell() + frame*step
	case io.SeekEnd:
		target = r.dataStart + r.info.NumBytes() + frame*step
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", ErrInvalidFile, whence)
	}

	pos, err := r.src.Seek(target, io.SeekStart)
	if err != nil {
		return 0, err
	}

	return (pos - r.dataStart) / step, nil
}

// Close implements audiostream.Stream.
func (r *Reader) Close() error { return r.src.Close() }

func (r *Reader) readHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(r.src, riff[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	if string(riff[0:4]) != "RIFF" {
		return ErrNotRIFF
	}
	if string(riff[8:12]) != "WAVE" {
		return ErrNotRIFF
	}

	var (
		info       audiostream.Info
		haveFormat bool
	)

	for {
		if r.src.Tell() >= r.src.Size() {
			return fmt.Errorf("%w: 'data' chunk", ErrMissingChunk)
		}

		var hdr [8]byte
		if _, err := io.ReadFull(r.src, hdr[:]); err != nil {
			return fmt.Errorf("%w: %w", ErrMissingChunk, err)
		}

		chunkID := string(hdr[0:4])
		chunkLen := binary.LittleEndian.Uint32(hdr[4:8])

		switch chunkID {
		case "fmt ":
			format, channels, sampleRate, err := r.parseFmt(chunkLen)
			if err != nil {
				return err
			}

			info.Format = format
			info.NumChannels = channels
			info.SampleRate = float64(sampleRate)
			r.blockAlign = format.BytesPerSample() * channels
			haveFormat = true

		case "data":
			if !haveFormat {
				return fmt.Errorf("%w: 'data' before 'fmt '", ErrInvalidFile)
			}

			r.dataStart = r.src.Tell()
			info.NumSampleFrames = int64(chunkLen) / int64(r.blockAlign)
			r.info = info

			return nil

		default:
			if err := r.skipChunk(chunkLen); err != nil {
				return err
			}
		}
	}
}

// parseFmt reads the "fmt " chunk body (chunkLen bytes, already past the
// chunk header) and returns the resolved PCM format, channel count, and
// sample rate.
func (r *Reader) parseFmt(chunkLen uint32) (pcm.Format, int, uint32, error) {
	if chunkLen < 16 {
		return pcm.Format{}, 0, 0, fmt.Errorf("%w: 'fmt ' chunk too small", ErrInvalidFile)
	}

	var base [16]byte
	if _, err := io.ReadFull(r.src, base[:]); err != nil {
		return pcm.Format{}, 0, 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	formatTag := binary.LittleEndian.Uint16(base[0:2])
	channels := int(binary.LittleEndian.Uint16(base[2:4]))
	sampleRate := binary.LittleEndian.Uint32(base[4:8])
	bitsPerSample := binary.LittleEndian.Uint16(base[14:16])

	consumed := uint32(16)

	if formatTag == formatExtensible {
		const extSize = 2 + 4 + 16 // Samples union + channel mask + sub-format GUID

		var ext [extSize]byte
		if _, err := io.ReadFull(r.src, ext[:]); err != nil {
			return pcm.Format{}, 0, 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
		consumed += extSize

		var subFormat [16]byte
		copy(subFormat[:], ext[6:22])

		switch subFormat {
		case subFormatPCM:
			formatTag = formatPCM
		case subFormatIEEEFloat:
			formatTag = formatIEEEFloat
		default:
			return pcm.Format{}, 0, 0, fmt.Errorf("%w: unrecognized WAVEFORMATEXTENSIBLE sub-format", ErrUnsupportedFormat)
		}
	}

	if remaining := int64(chunkLen) - int64(consumed); remaining > 0 {
		if err := r.skipBytes(remaining); err != nil {
			return pcm.Format{}, 0, 0, err
		}
	}

	format, err := resolveFormat(formatTag, bitsPerSample)
	if err != nil {
		return pcm.Format{}, 0, 0, err
	}

	return format, channels, sampleRate, nil
}

func resolveFormat(formatTag uint16, bitsPerSample uint16) (pcm.Format, error) {
	switch formatTag {
	case formatPCM:
		switch bitsPerSample {
		case 8:
			return pcm.U8(), nil
		case 16:
			return pcm.S16LE(), nil
		case 24:
			return pcm.S24LE(), nil
		case 32:
			return pcm.S32LE(), nil
		default:
			return pcm.Format{}, fmt.Errorf("%w: %d-bit integer PCM", ErrUnsupportedFormat, bitsPerSample)
		}
	case formatIEEEFloat:
		switch bitsPerSample {
		case 32:
			return pcm.F32LE(), nil
		case 64:
			return pcm.F64LE(), nil
		default:
			return pcm.Format{}, fmt.Errorf("%w: %d-bit float PCM", ErrUnsupportedFormat, bitsPerSample)
		}
	default:
		return pcm.Format{}, fmt.Errorf("%w: format tag 0x%04x", ErrUnsupportedFormat, formatTag)
	}
}

// skipChunk skips a chunk's body plus the trailing pad byte RIFF chunks
// carry when their length is odd.
func (r *Reader) skipChunk(chunkLen uint32) error {
	return r.skipBytes(int64(chunkLen+1) &^ 1)
}

func (r *Reader) skipBytes(n int64) error {
	if n <= 0 {
		return nil
	}

	if _, err := r.src.Seek(n, io.SeekCurrent); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return nil
}
