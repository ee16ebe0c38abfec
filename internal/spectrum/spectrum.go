// Package spectrum computes a windowed FFT magnitude spectrum of a decoded
// PCM buffer, feeding cmd/audioscope's live spectrum view.
package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"audiofile/dsp"
)

// Analyzer computes magnitude spectra of a fixed size, reusing one FFT plan
// across calls.
type Analyzer struct {
	size   int
	plan   *algofft.Plan[complex64]
	window []float32
	buf    []complex64
}

// NewAnalyzer builds an Analyzer for FFT size size, which must be a power
// of two. A Hann window is precomputed once and reused every call.
func NewAnalyzer(size int) (*Analyzer, error) {
	plan, err := algofft.NewPlan32(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: %w", err)
	}

	window := make([]float32, size)
	for i := range window {
		window[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1))))
	}

	return &Analyzer{
		size:   size,
		plan:   plan,
		window: window,
		buf:    make([]complex64, size),
	}, nil
}

// Size returns the FFT size this Analyzer was built for.
func (a *Analyzer) Size() int { return a.size }

// Magnitudes windows and transforms samples (which must have length Size),
// returning size/2+1 magnitude bins in decibels, DC first.
func (a *Analyzer) Magnitudes(samples []float32) ([]float32, error) {
	if len(samples) != a.size {
		return nil, fmt.Errorf("spectrum: expected %d samples, got %d", a.size, len(samples))
	}

	for i, s := range samples {
		a.buf[i] = complex(s*a.window[i], 0)
	}

	if err := a.plan.Forward(a.buf, a.buf); err != nil {
		return nil, fmt.Errorf("spectrum: forward FFT: %w", err)
	}

	bins := a.size/2 + 1
	out := make([]float32, bins)

	for i := 0; i < bins; i++ {
		mag := complexAbs(a.buf[i]) / float32(a.size)
		out[i] = magnitudeToDB(mag)
	}

	return out, nil
}

func complexAbs(c complex64) float32 {
	return float32(math.Hypot(float64(real(c)), float64(imag(c))))
}

// magnitudeToDB converts a linear magnitude to decibels, floored at -120dB
// so silence doesn't produce -Inf.
func magnitudeToDB(mag float32) float32 {
	const floor = 1e-6
	if mag < floor {
		mag = floor
	}

	return 20 * dsp.Log10Approx(mag)
}
