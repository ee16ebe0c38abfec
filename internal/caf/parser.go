// Package caf parses Core Audio Format containers carrying Apple Lossless
// (ALAC) data: a 'desc' chunk describing the encoded format, a 'kuki' chunk
// holding the ALAC magic cookie, a 'pakt' chunk listing each packet's
// variable byte size, and a 'data' chunk holding the packets themselves.
// Because ALAC packets vary in size, the whole stream is decoded once at
// Open time to learn the total frame count, matching the reference decoder
// it is grounded on.
package caf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"audiofile/internal/alac"
	"audiofile/internal/bytesource"
	"audiofile/pkg/audiostream"
	"audiofile/pkg/pcm"
)

// Errors.
var (
	ErrNotCAF            = errors.New("caf: not a CAF file")
	ErrInvalidFile       = errors.New("caf: invalid file structure")
	ErrUnsupportedFormat = errors.New("caf: unsupported format")
	ErrMissingChunk      = errors.New("caf: missing required chunk")
)

const formatALAC = "alac"

// Reader is a fully-materialized CAF/ALAC PCM source: the whole file is
// decoded to PCM at Open time, then served from memory. Seek mirrors the
// reference decoder's own limitation and reports the current position
// without moving, since CAF's packet table only supports forward,
// sequential decode.
type Reader struct {
	info    audiostream.Info
	pcmData []byte
	pos     int64 // byte offset into pcmData
}

// Open opens path, fully decodes its ALAC payload to PCM, and returns a
// Reader positioned at the start of the stream.
func Open(path string) (*Reader, error) {
	src, err := bytesource.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	r := &Reader{}
	if err := r.load(src); err != nil {
		return nil, err
	}

	return r, nil
}

// Info implements audiostream.Stream.
func (r *Reader) Info() audiostream.Info { return r.info }

// Read implements audiostream.Stream.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= int64(len(r.pcmData)) {
		return 0, nil
	}

	n := copy(p, r.pcmData[r.pos:])
	r.pos += int64(n)

	return n, nil
}

// Seek implements audiostream.Stream. The reference source this package is
// grounded on never implemented seeking for CAF/ALAC streams (its packet
// table only supports sequential decode); this mirrors that limitation by
// reporting the current frame position without moving.
func (r *Reader) Seek(frame int64, whence int) (int64, error) {
	blockAlign := int64(r.info.Format.BytesPerSample() * r.info.NumChannels)
	if blockAlign == 0 {
		return 0, nil
	}

	return r.pos / blockAlign, nil
}

// Close implements audiostream.Stream.
func (r *Reader) Close() error { return nil }

type chunkHeader struct {
	id   string
	size int64
}

func readChunkHeader(r io.Reader) (chunkHeader, error) {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return chunkHeader{}, err
	}

	return chunkHeader{
		id:   string(buf[0:4]),
		size: int64(binary.BigEndian.Uint64(buf[4:12])),
	}, nil
}

// load walks every top-level chunk, resolves the ALAC format description,
// magic cookie and packet table, then decodes the entire data chunk.
func (r *Reader) load(src *bytesource.FileSource) error {
	var fileHdr [8]byte
	if _, err := io.ReadFull(src, fileHdr[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	if string(fileHdr[0:4]) != "caff" {
		return ErrNotCAF
	}

	var (
		haveDesc     bool
		channels     int
		sampleRate   float64
		cookie       []byte
		packetSizes  []int
		dataStart    int64
		dataLen      int64
		decoder      *alac.Decoder
		decoderBits  int
	)

	for {
		// FileSource reports end of file as a 0-byte read, not io.EOF, so
		// the end of the chunk list is detected from the position.
		if src.Tell() >= src.Size() {
			break
		}

		hdr, err := readChunkHeader(src)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		switch hdr.id {
		case "desc":
			const descSize = 8 + 4 + 4 + 4 + 4 + 4 + 4 // CAFAudioFormat
			var body [descSize]byte
			if _, err := io.ReadFull(src, body[:]); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidFile, err)
			}

			sampleRate = math.Float64frombits(binary.BigEndian.Uint64(body[0:8]))
			formatID := string(body[8:12])
			channels = int(binary.BigEndian.Uint32(body[24:28]))

			if formatID != formatALAC {
				return fmt.Errorf("%w: CAF format %q", ErrUnsupportedFormat, formatID)
			}

			if channels > 2 {
				return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
			}

			haveDesc = true

		case "kuki":
			cookie = make([]byte, hdr.size)
			if _, err := io.ReadFull(src, cookie); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidFile, err)
			}

			cfg, err := alac.ParseConfig(cookie)
			if err != nil {
				return err
			}

			decoder = alac.NewDecoder(cfg)
			decoderBits = int(cfg.BitDepth)

		case "pakt":
			sizes, err := readPacketTable(src, hdr.size)
			if err != nil {
				return err
			}

			packetSizes = sizes

		case "data":
			var edits [4]byte
			if _, err := io.ReadFull(src, edits[:]); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidFile, err)
			}

			dataStart = src.Tell()
			dataLen = hdr.size - 4

			if err := skip(src, dataLen); err != nil {
				return err
			}

		default:
			if err := skip(src, hdr.size); err != nil {
				return err
			}
		}
	}

	if !haveDesc {
		return fmt.Errorf("%w: 'desc'", ErrMissingChunk)
	}
	if decoder == nil {
		return fmt.Errorf("%w: 'kuki'", ErrMissingChunk)
	}
	if packetSizes == nil {
		return fmt.Errorf("%w: 'pakt'", ErrMissingChunk)
	}
	if dataStart == 0 {
		return fmt.Errorf("%w: 'data'", ErrMissingChunk)
	}

	format, err := formatForBitDepth(decoderBits)
	if err != nil {
		return err
	}

	if _, err := src.Seek(dataStart, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	pcmBytes, frames, err := decodeAllPackets(src, decoder, packetSizes, format, channels, dataLen)
	if err != nil {
		return err
	}

	r.pcmData = pcmBytes
	r.info = audiostream.Info{
		Format:          format,
		SampleRate:      sampleRate,
		NumChannels:     channels,
		NumSampleFrames: frames,
	}

	return nil
}

// readPacketTable reads the CAF packet table header followed by one
// BER-encoded variable-length integer per packet, giving each packet's
// compressed byte size.
func readPacketTable(r io.Reader, size int64) ([]int, error) {
	const paktHeaderSize = 8 + 8 + 4 + 4 // numPackets, numValidFrames, priming, remainder

	var hdr [paktHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	numPackets := int64(binary.BigEndian.Uint64(hdr[0:8]))

	remaining := size - paktHeaderSize
	buf := make([]byte, remaining)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	sizes := make([]int, 0, numPackets)

	pos := 0
	for i := int64(0); i < numPackets; i++ {
		v, n := readBER(buf[pos:])
		if n == 0 {
			return nil, fmt.Errorf("%w: truncated packet table", ErrInvalidFile)
		}

		sizes = append(sizes, int(v))
		pos += n
	}

	return sizes, nil
}

// readBER decodes a big-endian base-128 variable-length integer (7 data
// bits per byte, high bit set on every byte but the last) and returns the
// value plus the number of bytes consumed.
func readBER(buf []byte) (uint32, int) {
	var v uint32

	for i, b := range buf {
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, i + 1
		}

		if i == 4 { // kMaxBERSize
			return 0, 0
		}
	}

	return 0, 0
}

func skip(src *bytesource.FileSource, n int64) error {
	if n <= 0 {
		return nil
	}

	if _, err := src.Seek(n, io.SeekCurrent); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return nil
}

func formatForBitDepth(bits int) (pcm.Format, error) {
	switch bits {
	case 8:
		return pcm.S8(), nil
	case 16:
		return pcm.S16LE(), nil
	case 24:
		return pcm.S24LE(), nil
	case 32:
		return pcm.S32LE(), nil
	default:
		return pcm.Format{}, fmt.Errorf("%w: %d-bit depth", ErrUnsupportedFormat, bits)
	}
}

// decodeAllPackets reads each ALAC packet per the sizes in packetSizes,
// decodes it, and writes the resulting samples into a native-format PCM
// byte buffer. Returns the full buffer and the total number of sample
// frames decoded.
func decodeAllPackets(r io.Reader, dec *alac.Decoder, packetSizes []int, format pcm.Format, channels int, dataLen int64) ([]byte, int64, error) {
	bytesPerSample := format.BytesPerSample()
	out := make([]byte, 0, dataLen)

	var totalFrames int64

	packetBuf := make([]byte, 0)

	for _, size := range packetSizes {
		if cap(packetBuf) < size {
			packetBuf = make([]byte, size)
		} else {
			packetBuf = packetBuf[:size]
		}

		if _, err := io.ReadFull(r, packetBuf); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		samples, err := dec.DecodePacket(packetBuf)
		if err != nil {
			return nil, 0, err
		}

		raw := make([]byte, bytesPerSample)
		for _, s := range samples {
			pcm.WriteSample(format, raw, s)
			out = append(out, raw...)
		}

		totalFrames += int64(len(samples)) / int64(channels)
	}

	return out, totalFrames, nil
}
