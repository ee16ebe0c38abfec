// Package alac implements a decoder for Apple Lossless (ALAC) frames as
// carried inside a CAF container: the element-tagged bitstream of
// single-channel (SCE), channel-pair (CPE) and low-frequency (LFE) elements,
// each an adaptively Rice-coded residual stream run back through a dynamic
// FIR predictor and, for channel pairs, mid/side unmixing.
package alac

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Element tags, the 3-bit values that open every element in an ALAC frame.
const (
	elemSCE = 0 // single channel element
	elemCPE = 1 // channel pair element
	elemCCE = 2 // coupling channel element (unsupported)
	elemLFE = 3 // low-frequency element
	elemDSE = 4 // data stream element (skipped)
	elemPCE = 5 // program config element (unsupported)
	elemFIL = 6 // fill element (skipped)
	elemEND = 7 // terminator
)

// Errors.
var (
	ErrShortCookie     = errors.New("alac: magic cookie too short")
	ErrUnsupportedElem = errors.New("alac: unsupported element type")
	ErrTruncatedPacket = errors.New("alac: packet shorter than frame header claims")
)

// Config is the decoded form of an ALACSpecificConfig magic cookie, as
// produced by a CAF 'kuki' chunk or an MP4 'alac' sample description.
type Config struct {
	FrameLength   uint32
	BitDepth      uint8
	Pb            uint8
	Mb            uint8
	Kb            uint8
	NumChannels   uint8
	MaxRun        uint16
	MaxFrameBytes uint32
	AvgBitRate    uint32
	SampleRate    uint32
}

// ParseConfig decodes a 24-byte ALACSpecificConfig.
func ParseConfig(cookie []byte) (Config, error) {
	const cookieLen = 24
	if len(cookie) < cookieLen {
		return Config{}, ErrShortCookie
	}

	return Config{
		FrameLength:   binary.BigEndian.Uint32(cookie[0:4]),
		BitDepth:      cookie[5],
		Pb:            cookie[6],
		Mb:            cookie[7],
		Kb:            cookie[8],
		NumChannels:   cookie[9],
		MaxRun:        binary.BigEndian.Uint16(cookie[10:12]),
		MaxFrameBytes: binary.BigEndian.Uint32(cookie[12:16]),
		AvgBitRate:    binary.BigEndian.Uint32(cookie[16:20]),
		SampleRate:    binary.BigEndian.Uint32(cookie[20:24]),
	}, nil
}

// Decoder decodes successive ALAC packets sharing a single Config into
// interleaved PCM sample frames.
type Decoder struct {
	cfg      Config
	rice     riceConfig
	channels int
}

// NewDecoder builds a Decoder from a parsed magic cookie.
func NewDecoder(cfg Config) *Decoder {
	return &Decoder{
		cfg:      cfg,
		channels: int(cfg.NumChannels),
		rice: riceConfig{
			historyMult: int(cfg.Mb),
			initialHist: 10,
			kModifier:   int(cfg.Kb),
			limit:       9,
		},
	}
}

// DecodePacket decodes one ALAC access unit and returns its samples
// interleaved channel-minor (L,R,L,R,... for stereo), as signed integers
// left-justified to 32 bits the way pkg/pcm's canonical intermediate
// expects.
func (d *Decoder) DecodePacket(packet []byte) ([]int32, error) {
	r := newBitReader(packet)

	bits := int(d.cfg.BitDepth)
	channelBufs := make([][]int32, 0, d.channels)
	frames := 0

	for {
		tag := int(r.readBits(3))
		if tag == elemEND {
			break
		}

		switch tag {
		case elemSCE, elemLFE:
			r.readBits(4) // element instance tag
			samples, n, err := d.decodeChannel(r, bits)
			if err != nil {
				return nil, err
			}

			channelBufs = append(channelBufs, samples)
			frames = n

		case elemCPE:
			r.readBits(4) // element instance tag

			mixBits := int(r.readBits(8))
			mixRes := int(int8(r.readBits(8)))

			mid, n, err := d.decodeChannel(r, bits+1)
			if err != nil {
				return nil, err
			}

			side, _, err := d.decodeChannel(r, bits+1)
			if err != nil {
				return nil, err
			}

			left, right := unmixStereo(mid, side, mixBits, mixRes)
			channelBufs = append(channelBufs, clampBits(left, bits), clampBits(right, bits))
			frames = n

		case elemDSE:
			d.skipDataElement(r)

		case elemFIL:
			d.skipFillElement(r)

		default:
			return nil, fmt.Errorf("%w: tag %d", ErrUnsupportedElem, tag)
		}

		r.align()
	}

	if len(channelBufs) == 0 {
		return nil, nil
	}

	return interleave(channelBufs, frames, bits), nil
}

// decodeChannel decodes a single audio channel's header, predictor
// coefficients and Rice-coded residual run, then reverses the predictor.
func (d *Decoder) decodeChannel(r *bitReader, bits int) ([]int32, int, error) {
	r.readBit()        // partial frame flag (unused: frame length is fixed here)
	shift := int(r.readBits(2)) // wasted-bits shift
	verbatim := r.readBit()

	n := int(d.cfg.FrameLength)

	if verbatim {
		out := make([]int32, n)
		for i := range out {
			out[i] = signExtend(int32(r.readBits(bits)), bits)
		}

		return out, n, nil
	}

	predictorType := r.readBit()
	quant := int(r.readBits(4))
	riceModifier := int(r.readBits(4))
	order := int(r.readBits(5))

	coefs := make([]int32, order)
	for i := range coefs {
		coefs[i] = signExtend(int32(r.readBits(16)), 16)
	}

	cfg := d.rice
	if riceModifier > 0 {
		cfg.historyMult = cfg.historyMult * riceModifier / 4
	}

	residual := make([]int32, n)
	state := newRiceState(cfg)
	readBits := bits
	if shift > 0 {
		readBits = bits - shift
	}

	for i := range residual {
		residual[i] = int32(state.decodeResidual(r, readBits))
	}

	_ = predictorType // only the dynamic (order>=0) predictor is supported

	out := unpredict(residual, coefs, quant, bits)

	if shift > 0 {
		for i := range out {
			out[i] <<= uint(shift)
		}
	}

	return out, n, nil
}

func (d *Decoder) skipDataElement(r *bitReader) {
	r.readBits(4) // element instance tag
	count := int(r.readBits(8))
	if count == 255 {
		count += int(r.readBits(8))
	}
	r.readBits(count * 8)
}

func (d *Decoder) skipFillElement(r *bitReader) {
	count := int(r.readBits(4))
	if count == 15 {
		count += int(r.readBits(8)) - 1
	}
	r.readBits(count * 8)
}

func clampBits(samples []int32, bits int) []int32 {
	for i, v := range samples {
		samples[i] = signExtend(v, bits)
	}

	return samples
}

// interleave folds independently-decoded per-channel buffers into a single
// channel-minor sample sequence, left-justified into the top bits of a
// 32-bit word to match pkg/pcm's canonical integer intermediate.
func interleave(channels [][]int32, frames, bits int) []int32 {
	numCh := len(channels)
	out := make([]int32, frames*numCh)

	shift := uint(32 - bits)

	for i := 0; i < frames; i++ {
		for c := 0; c < numCh; c++ {
			out[i*numCh+c] = channels[c][i] << shift
		}
	}

	return out
}
