package alac

// signExtend sign-extends the low bits bits of v.
func signExtend(v int32, bits int) int32 {
	shift := uint(32 - bits)
	return v << shift >> shift
}

func signOf(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// unpredict reverses ALAC's adaptive FIR predictor, turning a buffer of
// prediction residuals back into a signal. coefs is adapted in place as the
// reference decoder does, a sign-directed nudge per sample that keeps
// encoder and decoder coefficient state in lockstep without transmitting it.
func unpredict(residual []int32, coefs []int32, quant, bits int) []int32 {
	n := len(residual)
	out := make([]int32, n)
	if n == 0 {
		return out
	}

	out[0] = residual[0]

	order := len(coefs)
	if order == 0 {
		copy(out[1:], residual[1:])
		return out
	}

	if order == 31 { // simple first-order delta, ALAC's escape case
		for i := 1; i < n; i++ {
			out[i] = signExtend(out[i-1]+residual[i], bits)
		}

		return out
	}

	for i := 1; i <= order && i < n; i++ {
		out[i] = signExtend(out[i-1]+residual[i], bits)
	}

	for i := order + 1; i < n; i++ {
		base := out[i-order-1]

		var predicted int64
		for j := 0; j < order; j++ {
			predicted += int64(coefs[j]) * int64(out[i-order+j]-base)
		}

		errVal := residual[i]
		val := int32(predicted>>uint(quant)) + base + errVal
		out[i] = signExtend(val, bits)

		sign := signOf(errVal)
		if sign != 0 {
			for j := 0; j < order; j++ {
				d := out[i-order+j] - base
				dSign := signOf(d)

				if sign > 0 {
					coefs[j] -= dSign
					errVal -= int32((int64(dSign) * int64(d)) >> uint(quant))
				} else {
					coefs[j] += dSign
					errVal += int32((int64(dSign) * int64(d)) >> uint(quant))
				}
			}
		}
	}

	return out
}

// unmixStereo reverses ALAC's mid/side rematrixing for a CPE (channel pair
// element), recovering independent left/right sample buffers from the
// coded mid/side pair. mixBits selects the fractional weighting and mixRes
// the blend ratio, both carried per frame in the bitstream.
func unmixStereo(mid, side []int32, mixBits, mixRes int) (left, right []int32) {
	n := len(mid)
	left = make([]int32, n)
	right = make([]int32, n)

	for i := 0; i < n; i++ {
		m := int64(mid[i])
		s := int64(side[i])

		r := m - (s*int64(mixRes))>>uint(mixBits)
		l := r + s

		left[i] = int32(l)
		right[i] = int32(r)
	}

	return left, right
}
