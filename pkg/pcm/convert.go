package pcm

// Value is the set of native Go types a PCM sample can be converted to or
// from: the eight {u8,i8,u16,i16,u32,i32,f32,f64} value types named in the
// sample-conversion contract. A 24-bit PCM encoding has no native Go type of
// its own; its samples are carried as int32/uint32, left-justified to the
// full 32-bit range by the codec layer (codec.go) before reaching here, so
// the converter never needs to know a sample's original PCM bit depth.
type Value interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

// Convert performs a lossless-where-possible numeric conversion from Src to
// Dst, applying the rules of §4.3: float-to-float is a value-preserving
// cast; float-to-integer clips, scales, and rounds half away from zero;
// integer-to-float reinterprets signedness then scales down; integer-to-
// integer reinterprets signedness then shifts to the target width.
func Convert[Dst Value, Src Value](src Src) Dst {
	info := describe(src)

	var z Dst
	switch any(z).(type) {
	case int8:
		return any(int8(toInt(info, 8, true))).(Dst)
	case uint8:
		return any(uint8(uint32(toInt(info, 8, false)))).(Dst)
	case int16:
		return any(int16(toInt(info, 16, true))).(Dst)
	case uint16:
		return any(uint16(uint32(toInt(info, 16, false)))).(Dst)
	case int32:
		return any(toInt(info, 32, true)).(Dst)
	case uint32:
		return any(uint32(toInt(info, 32, false))).(Dst)
	case float32:
		return any(toFloat32(info)).(Dst)
	case float64:
		return any(toFloat64(info)).(Dst)
	}

	panic("pcm: unreachable destination sample type")
}

// srcInfo is the normalized description of a source sample value, used to
// share the clip/scale/shift logic across all 64 (Src, Dst) pairs instead of
// hand-writing one routine per pair.
type srcInfo struct {
	isFloat bool
	bits    int // 8, 16, or 32 for integers; 32 or 64 for floats
	signed  bool
	raw     uint32  // zero-extended raw bits, meaningful when !isFloat
	f32     float32 // meaningful when isFloat && bits == 32
	f64     float64 // meaningful when isFloat && bits == 64
}

func describe[S Value](src S) srcInfo {
	switch v := any(src).(type) {
	case int8:
		return srcInfo{bits: 8, signed: true, raw: uint32(uint8(v))}
	case uint8:
		return srcInfo{bits: 8, signed: false, raw: uint32(v)}
	case int16:
		return srcInfo{bits: 16, signed: true, raw: uint32(uint16(v))}
	case uint16:
		return srcInfo{bits: 16, signed: false, raw: uint32(v)}
	case int32:
		return srcInfo{bits: 32, signed: true, raw: uint32(v)}
	case uint32:
		return srcInfo{bits: 32, signed: false, raw: v}
	case float32:
		return srcInfo{isFloat: true, bits: 32, f32: v}
	case float64:
		return srcInfo{isFloat: true, bits: 64, f64: v}
	}

	panic("pcm: unreachable source sample type")
}

// msbMask is the bit mask of the most significant bit of a `bits`-wide word.
func msbMask(bits int) uint32 {
	return 1 << uint(bits-1)
}

// intCanonical reinterprets a `srcBits`-wide integer (raw, signedness
// srcSigned) as one of signedness dstSigned at the same width, then left-
// justifies it into the full 32-bit range — the same placement the codec
// layer uses when assembling a sub-32-bit intermediate, so that a single
// arithmetic right shift (intAtWidth) produces any narrower or wider target
// width uniformly.
func intCanonical(raw uint32, srcBits int, srcSigned, dstSigned bool) int32 {
	if srcSigned != dstSigned {
		raw ^= msbMask(srcBits)
	}

	return int32(raw << uint(32-srcBits))
}

// intAtWidth extracts the dstBits-wide result from a left-justified 32-bit
// canonical value. The shift is arithmetic (sign-preserving); callers
// truncate the low dstBits bits into the concrete target type afterwards,
// which is where unsigned targets pick up their correct bit pattern.
func intAtWidth(canon int32, dstBits int) int32 {
	return canon >> uint(32-dstBits)
}

// toInt converts a normalized source into a dstBits-wide, dstSigned integer,
// returned sign-extended in an int32 (callers truncate to the concrete Go
// type, which is a no-op bit-wise for the unsigned narrow types).
func toInt(info srcInfo, dstBits int, dstSigned bool) int32 {
	if !info.isFloat {
		canon := intCanonical(info.raw, info.bits, info.signed, dstSigned)
		return intAtWidth(canon, dstBits)
	}

	return floatToInt(info, dstBits, dstSigned)
}

// floatToInt implements the float->integer rule of §4.3: clip to the
// target's representable range, scale by 2^(B-1), round half away from
// zero, then toggle the MSB if the target is unsigned. The clip/scale
// arithmetic runs in float32 when the source is float32 and the target is
// at most 24 bits wide (8 or 16-bit targets); otherwise it runs in float64,
// matching ni-media's promote_float selection.
func floatToInt(info srcInfo, dstBits int, dstSigned bool) int32 {
	var signedResult int32
	if info.bits == 64 || dstBits > 24 {
		v := info.f64
		if info.bits == 32 {
			v = float64(info.f32)
		}

		signedResult = roundClipF64(v, dstBits)
	} else {
		signedResult = roundClipF32(info.f32, dstBits)
	}

	if dstSigned {
		return signedResult
	}

	return int32(uint32(signedResult) ^ msbMask(dstBits))
}

func roundClipF64(v float64, bits int) int32 {
	scale := float64(int64(1) << uint(bits-1))
	minV, maxV := -1.0, (scale-1)/scale

	switch {
	case v < minV:
		v = minV
	case v > maxV:
		v = maxV
	}

	scaled := v * scale
	if scaled > 0 {
		return int32(scaled + 0.5)
	}

	return int32(scaled - 0.5)
}

func roundClipF32(v float32, bits int) int32 {
	scale := float32(int64(1) << uint(bits-1))
	minV, maxV := float32(-1.0), (scale-1)/scale

	switch {
	case v < minV:
		v = minV
	case v > maxV:
		v = maxV
	}

	scaled := v * scale
	if scaled > 0 {
		return int32(scaled + 0.5)
	}

	return int32(scaled - 0.5)
}

// toFloat32 implements the integer->float and float->float rules of §4.3,
// targeting float32. Integer sources are first reinterpreted as signed at
// their own width, then scaled by 2^-(B-1). The scaling runs in float32 for
// 8/16-bit sources, and in float64 (then narrowed) for 32-bit sources, to
// avoid the precision loss a 32-bit int would suffer scaled directly in
// float32.
func toFloat32(info srcInfo) float32 {
	if info.isFloat {
		if info.bits == 64 {
			return float32(info.f64)
		}

		return info.f32
	}

	signedSrc := intAtWidth(intCanonical(info.raw, info.bits, info.signed, true), info.bits)

	if info.bits > 24 {
		return float32(float64(signedSrc) * invScale64(info.bits))
	}

	return float32(signedSrc) * invScale32(info.bits)
}

// toFloat64 implements the integer->float and float->float rules of §4.3,
// targeting float64. Scaling always runs in float64.
func toFloat64(info srcInfo) float64 {
	if info.isFloat {
		if info.bits == 32 {
			return float64(info.f32)
		}

		return info.f64
	}

	signedSrc := intAtWidth(intCanonical(info.raw, info.bits, info.signed, true), info.bits)

	return float64(signedSrc) * invScale64(info.bits)
}

func invScale64(bits int) float64 {
	return 1.0 / float64(int64(1)<<uint(bits-1))
}

func invScale32(bits int) float32 {
	return 1.0 / float32(int64(1)<<uint(bits-1))
}
