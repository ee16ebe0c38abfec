// Package aiff parses the IFF-based AIFF and AIFF-C (AIFC) containers: a
// FORM chunk of type AIFF or AIFC, a COMM chunk describing channel count,
// frame count, bit depth and sample rate, and an SSND chunk holding the raw
// sample bytes. AIFC's NONE and sowt compression ids are supported (sowt is
// byte-swapped PCM); any other compression id is rejected.
package aiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"audiofile/internal/bytesource"
	"audiofile/pkg/audiostream"
	"audiofile/pkg/pcm"
)

// Errors.
var (
	ErrNotAIFF           = errors.New("aiff: not an AIFF/AIFC file")
	ErrInvalidFile       = errors.New("aiff: invalid file structure")
	ErrUnsupportedFormat = errors.New("aiff: unsupported format")
	ErrMissingChunk      = errors.New("aiff: missing required chunk")
)

// Reader is a seekable, streaming AIFF/AIFC PCM source.
type Reader struct {
	src        *bytesource.FileSource
	info       audiostream.Info
	dataStart  int64
	blockAlign int
}

// Open opens path, parses its FORM header, and positions the stream at the
// start of the PCM payload in the SSND chunk.
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
	var form [12]byte
	if _, err := io.ReadFull(r.src, form[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	if string(form[0:4]) != "FORM" {
		return ErrNotAIFF
	}

	formType := string(form[8:12])
	if formType != "AIFF" && formType != "AIFC" {
		return ErrNotAIFF
	}

	var (
		info         audiostream.Info
		haveCommon   bool
		littleEndian bool
	)

	for {
		if r.src.Tell() >= r.src.Size() {
			break
		}

		var hdr [8]byte
		n, err := io.ReadFull(r.src, hdr[:])
		if err != nil {
			if n == 0 && errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		chunkID := string(hdr[0:4])
		chunkLen := binary.BigEndian.Uint32(hdr[4:8])

		switch chunkID {
		case "COMM":
			format, channels, sampleRate, err := r.parseCOMM(chunkLen, formType, &littleEndian)
			if err != nil {
				return err
			}

			info.Format = format
			info.NumChannels = channels
			info.SampleRate = sampleRate
			haveCommon = true

			if err := r.skipPad(chunkLen); err != nil {
				return err
			}

		case "SSND":
			if !haveCommon {
				return fmt.Errorf("%w: 'SSND' before 'COMM'", ErrInvalidFile)
			}

			frames, err := r.parseSSND(chunkLen, info.Format, info.NumChannels)
			if err != nil {
				return err
			}

			info.NumSampleFrames = frames
			r.blockAlign = info.Format.BytesPerSample() * info.NumChannels
			r.info = info

			return nil

		default:
			if err := r.skipChunk(chunkLen); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w: 'SSND' chunk", ErrMissingChunk)
}

// parseCOMM reads the COMM chunk body (and, for AIFC, the compression id
// and Pascal-string compressor name that precede it) and resolves the PCM
// format, channel count, and sample rate.
func (r *Reader) parseCOMM(chunkLen uint32, formType string, littleEndian *bool) (pcm.Format, int, float64, error) {
	const commonChunkSize = 2 + 4 + 2 + 10 // channels + frames + sampleSize + extended rate

	if formType == "AIFC" {
		var compression [4]byte
		if _, err := io.ReadFull(r.src, compression[:]); err != nil {
			return pcm.Format{}, 0, 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		if chunkLen > commonChunkSize+4 {
			var nameLen [1]byte
			if _, err := io.ReadFull(r.src, nameLen[:]); err != nil {
				return pcm.Format{}, 0, 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
			}

			name := make([]byte, nameLen[0])
			if _, err := io.ReadFull(r.src, name); err != nil {
				return pcm.Format{}, 0, 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
			}
		}

		switch string(compression[:]) {
		case "NONE":
		case "sowt":
			*littleEndian = true
		default:
			return pcm.Format{}, 0, 0, fmt.Errorf("%w: AIFC compression %q", ErrUnsupportedFormat, compression[:])
		}
	}

	if chunkLen < commonChunkSize {
		return pcm.Format{}, 0, 0, fmt.Errorf("%w: 'COMM' chunk too small", ErrInvalidFile)
	}

	var body [commonChunkSize]byte
	if _, err := io.ReadFull(r.src, body[:]); err != nil {
		return pcm.Format{}, 0, 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	channels := int(binary.BigEndian.Uint16(body[0:2]))
	sampleSize := binary.BigEndian.Uint16(body[6:8])
	sampleRate := extendedToFloat64(body[8:18])

	format, err := resolveFormat(sampleSize, *littleEndian)
	if err != nil {
		return pcm.Format{}, 0, 0, err
	}

	return format, channels, sampleRate, nil
}

func resolveFormat(sampleSize uint16, littleEndian bool) (pcm.Format, error) {
	switch sampleSize {
	case 8:
		return pcm.U8(), nil
	case 16:
		if littleEndian {
			return pcm.S16LE(), nil
		}
		return pcm.S16BE(), nil
	case 24:
		if littleEndian {
			return pcm.S24LE(), nil
		}
		return pcm.S24BE(), nil
	case 32:
		if littleEndian {
			return pcm.S32LE(), nil
		}
		return pcm.S32BE(), nil
	default:
		return pcm.Format{}, fmt.Errorf("%w: %d-bit depth", ErrUnsupportedFormat, sampleSize)
	}
}

// parseSSND reads the SSND chunk's offset/blockSize header, skips to the
// start of the actual sample data, and returns the number of whole sample
// frames available.
func (r *Reader) parseSSND(chunkLen uint32, format pcm.Format, channels int) (int64, error) {
	const ssndHeaderSize = 8

	if chunkLen < ssndHeaderSize {
		return 0, fmt.Errorf("%w: 'SSND' chunk too small", ErrInvalidFile)
	}

	var hdr [ssndHeaderSize]byte
	if _, err := io.ReadFull(r.src, hdr[:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	offset := binary.BigEndian.Uint32(hdr[0:4])
	if offset > 0 {
		if _, err := r.src.Seek(int64(offset), io.SeekCurrent); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
	}

	r.dataStart = r.src.Tell()

	blockAlign := format.BytesPerSample() * channels
	dataLen := int64(chunkLen) - ssndHeaderSize - int64(offset)
	if dataLen < 0 || blockAlign == 0 {
		return 0, nil
	}

	return dataLen / int64(blockAlign), nil
}

// skipPad skips the single padding byte a chunk carries when its length is
// odd, assuming the chunk body itself has already been consumed.
func (r *Reader) skipPad(chunkLen uint32) error {
	if chunkLen%2 == 0 {
		return nil
	}

	if _, err := r.src.Seek(1, io.SeekCurrent); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return nil
}

// skipChunk skips an entire unrecognized chunk, including its pad byte.
func (r *Reader) skipChunk(chunkLen uint32) error {
	padded := int64(chunkLen+1) &^ 1
	if _, err := r.src.Seek(padded, io.SeekCurrent); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return nil
}

// extendedToFloat64 decodes a 10-byte IEEE 754 80-bit extended precision
// float, the format AIFF stores its sample rate in, and rounds it to the
// nearest integer sample rate per spec.md §9.
func extendedToFloat64(b []byte) float64 {
	exponent := uint16(b[0])<<8 | uint16(b[1])
	sign := exponent&0x8000 != 0
	exponent &= 0x7FFF

	mantissa := binary.BigEndian.Uint64(b[2:10])
	if mantissa == 0 && exponent == 0 {
		return 0
	}

	val := float64(mantissa) * math.Pow(2, -63)
	val *= math.Pow(2, float64(exponent)-16383)

	if sign {
		val = -val
	}

	return math.Round(val)
}
