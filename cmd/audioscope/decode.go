package main

import (
	"context"
	"errors"
	"io"
	"math"

	"audiofile/internal/spectrum"
	"audiofile/pkg/audiostream"
	"audiofile/pkg/pcm"
)

const (
	decodeChunkFrames = 4096
	spectrumSize      = 1024
)

// decodeLoop reads stream to completion in chunks, maintaining running
// peak/RMS levels per channel (up to stereo) and a rolling mono buffer fed
// to a spectrum.Analyzer, pushing a decodeState snapshot each time that
// buffer fills (every spectrumSize frames). Once the stream is exhausted it
// seeks back to the start and keeps going, so a selected file keeps
// animating until a different one is chosen; if Seek does not return
// position 0, the loop stops instead.
func decodeLoop(ctx context.Context, stream audiostream.Stream, updates chan<- decodeState) {
	info := stream.Info()

	analyzer, err := spectrum.NewAnalyzer(spectrumSize)
	if err != nil {
		select {
		case updates <- decodeState{info: info, err: err}:
		case <-ctx.Done():
		}
		return
	}

	bytesPerFrame := info.BytesPerSampleFrame()
	if bytesPerFrame == 0 {
		return
	}

	buf := make([]byte, decodeChunkFrames*bytesPerFrame)

	var sumSquares [2]float64
	var count [2]int64
	var peak [2]float64

	monoWindow := make([]float32, 0, spectrumSize)

	var framesRead int64

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, readErr := stream.Read(buf)
		if n > 0 {
			it := pcm.NewIterator[float64](info.Format, buf[:n])
			frames := it.Len() / info.NumChannels
			framesRead += int64(frames)

			for f := 0; f < frames; f++ {
				var mono float64

				for ch := 0; ch < info.NumChannels; ch++ {
					v := it.At(f*info.NumChannels + ch)
					mono += v

					if ch < 2 {
						if a := math.Abs(v); a > peak[ch] {
							peak[ch] = a
						}
						sumSquares[ch] += v * v
						count[ch]++
					}
				}

				mono /= float64(info.NumChannels)
				monoWindow = append(monoWindow, float32(mono))

				if len(monoWindow) == spectrumSize {
					mags, magErr := analyzer.Magnitudes(monoWindow)
					if magErr == nil {
						pushUpdate(ctx, updates, info, framesRead, peak, sumSquares, count, mags)
					}
					monoWindow = monoWindow[:0]
				}
			}
		}

		if readErr != nil && !errors.Is(readErr, io.EOF) {
			select {
			case updates <- decodeState{info: info, err: readErr}:
			case <-ctx.Done():
			}
			return
		}

		if n == 0 {
			// End of stream: loop back to the start and keep animating, but
			// only if Seek actually moved the stream there. Some streams
			// (e.g. internal/caf's) report Seek without rewinding; for
			// those, looping would spin Read/Seek forever against an
			// exhausted stream, so stop instead and leave the last
			// snapshot on screen.
			pos, err := stream.Seek(0, io.SeekStart)
			if err != nil || pos != 0 {
				return
			}

			framesRead = 0
			peak = [2]float64{}
			sumSquares = [2]float64{}
			count = [2]int64{}
		}
	}
}

func pushUpdate(
	ctx context.Context,
	updates chan<- decodeState,
	info audiostream.Info,
	framesRead int64,
	peak [2]float64,
	sumSquares [2]float64,
	count [2]int64,
	mags []float32,
) {
	st := decodeState{info: info, framesRead: framesRead, spectrum: mags}

	for ch := 0; ch < 2; ch++ {
		st.peakDB[ch] = linearToDB(peak[ch])
		if count[ch] > 0 {
			st.rmsDB[ch] = linearToDB(math.Sqrt(sumSquares[ch] / float64(count[ch])))
		} else {
			st.rmsDB[ch] = -180
		}
	}

	select {
	case updates <- st:
	case <-ctx.Done():
	default:
		// Drop the update rather than block the decode loop; the next
		// tick's redraw will pick up a later snapshot instead.
	}
}

func linearToDB(v float64) float64 {
	if v <= 1e-9 {
		return -180
	}

	return 20 * math.Log10(v)
}
