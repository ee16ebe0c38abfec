// Package dsp carries the teacher's numeric-approximation helpers forward,
// trimmed to the one still exercised: the log10 used to convert spectrum
// magnitudes to decibels.
package dsp

import "math"

// log10Approx returns log10(x) for audio applications, computed exactly by
// math.Log10 in float64 and narrowed to float32.
func log10Approx(x float32) float32 {
	// For now, use standard library
	// TODO: Implement fast approximation if needed for performance
	return float32(math.Log10(float64(x)))
}

// Log10Approx is the exported form of log10Approx, shared with
// internal/spectrum's dB conversion so both packages use the same rounding
// behavior.
func Log10Approx(x float32) float32 {
	return log10Approx(x)
}
