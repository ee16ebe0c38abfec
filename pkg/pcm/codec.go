package pcm

import "math"

// decode turns BytesPerSample() raw bytes of a PCM encoding into its native
// Go intermediate value (one of int8, uint8, int16, uint16, int32, uint32,
// float32, float64), as an any so it can live in a table indexed by format
// id. encode does the reverse.
type decodeFunc func(raw []byte) any
type encodeFunc func(raw []byte, v any)

var decodeTable [numFormats]decodeFunc
var encodeTable [numFormats]encodeFunc

func init() {
	decodeTable[idS8] = func(raw []byte) any { return int8(raw[0]) }
	decodeTable[idU8] = func(raw []byte) any { return uint8(raw[0]) }
	decodeTable[idS16BE] = func(raw []byte) any { return int16(decodeInt(raw, true, 16)) }
	decodeTable[idS16LE] = func(raw []byte) any { return int16(decodeInt(raw, false, 16)) }
	decodeTable[idU16BE] = func(raw []byte) any { return uint16(decodeInt(raw, true, 16)) }
	decodeTable[idU16LE] = func(raw []byte) any { return uint16(decodeInt(raw, false, 16)) }
	decodeTable[idS24BE] = func(raw []byte) any { return decodeInt(raw, true, 24) }
	decodeTable[idS24LE] = func(raw []byte) any { return decodeInt(raw, false, 24) }
	decodeTable[idU24BE] = func(raw []byte) any { return uint32(decodeInt(raw, true, 24)) }
	decodeTable[idU24LE] = func(raw []byte) any { return uint32(decodeInt(raw, false, 24)) }
	decodeTable[idS32BE] = func(raw []byte) any { return decodeInt(raw, true, 32) }
	decodeTable[idS32LE] = func(raw []byte) any { return decodeInt(raw, false, 32) }
	decodeTable[idU32BE] = func(raw []byte) any { return uint32(decodeInt(raw, true, 32)) }
	decodeTable[idU32LE] = func(raw []byte) any { return uint32(decodeInt(raw, false, 32)) }
	decodeTable[idF32BE] = func(raw []byte) any { return math.Float32frombits(decodeRaw(raw, true, 32)) }
	decodeTable[idF32LE] = func(raw []byte) any { return math.Float32frombits(decodeRaw(raw, false, 32)) }
	decodeTable[idF64BE] = func(raw []byte) any { return decodeFloat64(raw, true) }
	decodeTable[idF64LE] = func(raw []byte) any { return decodeFloat64(raw, false) }

	encodeTable[idS8] = func(raw []byte, v any) { raw[0] = byte(v.(int8)) }
	encodeTable[idU8] = func(raw []byte, v any) { raw[0] = v.(uint8) }
	encodeTable[idS16BE] = func(raw []byte, v any) { encodeInt(raw, true, 16, uint32(uint16(v.(int16)))) }
	encodeTable[idS16LE] = func(raw []byte, v any) { encodeInt(raw, false, 16, uint32(uint16(v.(int16)))) }
	encodeTable[idU16BE] = func(raw []byte, v any) { encodeInt(raw, true, 16, uint32(v.(uint16))) }
	encodeTable[idU16LE] = func(raw []byte, v any) { encodeInt(raw, false, 16, uint32(v.(uint16))) }
	encodeTable[idS24BE] = func(raw []byte, v any) { encodeInt(raw, true, 24, uint32(v.(int32))) }
	encodeTable[idS24LE] = func(raw []byte, v any) { encodeInt(raw, false, 24, uint32(v.(int32))) }
	encodeTable[idU24BE] = func(raw []byte, v any) { encodeInt(raw, true, 24, v.(uint32)) }
	encodeTable[idU24LE] = func(raw []byte, v any) { encodeInt(raw, false, 24, v.(uint32)) }
	encodeTable[idS32BE] = func(raw []byte, v any) { encodeInt(raw, true, 32, uint32(v.(int32))) }
	encodeTable[idS32LE] = func(raw []byte, v any) { encodeInt(raw, false, 32, uint32(v.(int32))) }
	encodeTable[idU32BE] = func(raw []byte, v any) { encodeInt(raw, true, 32, v.(uint32)) }
	encodeTable[idU32LE] = func(raw []byte, v any) { encodeInt(raw, false, 32, v.(uint32)) }
	encodeTable[idF32BE] = func(raw []byte, v any) { encodeRaw(raw, true, 32, uint64(math.Float32bits(v.(float32)))) }
	encodeTable[idF32LE] = func(raw []byte, v any) { encodeRaw(raw, false, 32, uint64(math.Float32bits(v.(float32)))) }
	encodeTable[idF64BE] = func(raw []byte, v any) { encodeFloat64(raw, true, v.(float64)) }
	encodeTable[idF64LE] = func(raw []byte, v any) { encodeFloat64(raw, false, v.(float64)) }
}

// decodeInt decodes a bits-wide (8/16/24/32) big- or little-endian integer
// from raw and returns it sign-extended to int32 in the intermediate's own
// native width: a sub-32-bit value keeps its ordinary magnitude (16-bit
// formats) except 24-bit, whose native Go intermediate is int32 and which is
// therefore left-justified into the full 32-bit range rather than shifted
// back down — matching ni-media's io_helper byte placement, so the result
// can be handed to Convert unchanged.
func decodeInt(raw []byte, be bool, bits int) int32 {
	canonical := int32(decodeRaw(raw, be, bits)) << uint(32-bits)
	native := nativeBitsFor(bits)
	return canonical >> uint(32-native)
}

// decodeRaw reads the bits-wide raw magnitude (0 .. 2^bits-1) from raw in
// the given byte order, with no sign handling or justification.
func decodeRaw(raw []byte, be bool, bits int) uint32 {
	n := bits / 8
	var v uint32
	if be {
		for i := 0; i < n; i++ {
			v = v<<8 | uint32(raw[i])
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint32(raw[i])
		}
	}

	return v
}

func decodeFloat64(raw []byte, be bool) float64 {
	n := 8
	var v uint64
	if be {
		for i := 0; i < n; i++ {
			v = v<<8 | uint64(raw[i])
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(raw[i])
		}
	}

	return math.Float64frombits(v)
}

func encodeFloat64(raw []byte, be bool, f float64) {
	v := math.Float64bits(f)
	if be {
		for i := 0; i < 8; i++ {
			raw[i] = byte(v >> uint(8*(7-i)))
		}
	} else {
		for i := 0; i < 8; i++ {
			raw[i] = byte(v >> uint(8*i))
		}
	}
}

// nativeBitsFor returns the bit width of the Go type used to hold a PCM
// encoding's intermediate value: 24-bit encodings share int32/uint32 with
// 32-bit encodings.
func nativeBitsFor(encodingBits int) int {
	if encodingBits == 24 {
		return 32
	}

	return encodingBits
}

// encodeInt is the inverse of decodeInt: v holds a left-justified-if-24-bit
// intermediate value (as produced by decodeInt, or by Convert targeting the
// matching native width), and encodeInt writes its bits-wide raw magnitude
// into raw in the given byte order.
func encodeInt(raw []byte, be bool, bits int, v uint32) {
	native := nativeBitsFor(bits)
	canonical := v << uint(32-native)
	magnitude := canonical >> uint(32-bits)
	n := bits / 8

	if be {
		for i := 0; i < n; i++ {
			raw[i] = byte(magnitude >> uint(8*(n-1-i)))
		}
	} else {
		for i := 0; i < n; i++ {
			raw[i] = byte(magnitude >> uint(8*i))
		}
	}
}

func encodeRaw(raw []byte, be bool, bits int, v uint64) {
	n := bits / 8
	if be {
		for i := 0; i < n; i++ {
			raw[i] = byte(v >> uint(8*(n-1-i)))
		}
	} else {
		for i := 0; i < n; i++ {
			raw[i] = byte(v >> uint(8*i))
		}
	}
}

// ReadSample decodes one sample of format f from the first f.BytesPerSample
// bytes of raw and converts it to Dst.
func ReadSample[Dst Value](f Format, raw []byte) Dst {
	v := decodeTable[f.ID()](raw)

	switch iv := v.(type) {
	case int8:
		return Convert[Dst](iv)
	case uint8:
		return Convert[Dst](iv)
	case int16:
		return Convert[Dst](iv)
	case uint16:
		return Convert[Dst](iv)
	case int32:
		return Convert[Dst](iv)
	case uint32:
		return Convert[Dst](iv)
	case float32:
		return Convert[Dst](iv)
	case float64:
		return Convert[Dst](iv)
	}

	panic("pcm: unreachable intermediate type")
}

// WriteSample converts v to format f's intermediate type and encodes it
// into the first f.BytesPerSample bytes of raw.
func WriteSample[Src Value](f Format, raw []byte, v Src) {
	id := f.ID()

	switch {
	case f.number == SignedInteger && f.bitwidth == 8:
		encodeTable[id](raw, Convert[int8](v))
	case f.number == UnsignedInteger && f.bitwidth == 8:
		encodeTable[id](raw, Convert[uint8](v))
	case f.number == SignedInteger && f.bitwidth == 16:
		encodeTable[id](raw, Convert[int16](v))
	case f.number == UnsignedInteger && f.bitwidth == 16:
		encodeTable[id](raw, Convert[uint16](v))
	case f.number == SignedInteger && (f.bitwidth == 24 || f.bitwidth == 32):
		encodeTable[id](raw, Convert[int32](v))
	case f.number == UnsignedInteger && (f.bitwidth == 24 || f.bitwidth == 32):
		encodeTable[id](raw, Convert[uint32](v))
	case f.number == FloatingPoint && f.bitwidth == 32:
		encodeTable[id](raw, Convert[float32](v))
	case f.number == FloatingPoint && f.bitwidth == 64:
		encodeTable[id](raw, Convert[float64](v))
	default:
		panic("pcm: unreachable format descriptor")
	}
}
