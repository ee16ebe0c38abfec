// Package audiostream defines the format-agnostic stream descriptor and
// reader contract shared by every container parser (WAV, AIFF/AIFC, CAF):
// an immutable Info value plus the Read/Seek/Close surface a decoded stream
// exposes to callers.
package audiostream

import (
	"time"

	"audiofile/pkg/pcm"
)

// Info is an immutable description of a PCM stream's layout: its sample
// encoding, rate, channel count, and total length in sample frames. A
// sample frame is one sample per channel; NumSampleFrames therefore counts
// time, not raw samples.
type Info struct {
	Format          pcm.Format
	SampleRate      float64
	NumChannels     int
	NumSampleFrames int64
}

// NumSamples returns the total sample count across all channels.
func (i Info) NumSamples() int64 {
	return i.NumSampleFrames * int64(i.NumChannels)
}

// BitsPerSample returns the encoding's bit width.
func (i Info) BitsPerSample() int {
	return i.Format.BitWidth()
}

// BytesPerSample returns the number of bytes one sample (one channel, one
// frame) occupies.
func (i Info) BytesPerSample() int {
	return i.Format.BytesPerSample()
}

// BytesPerSampleFrame returns the number of bytes one full frame (all
// channels) occupies.
func (i Info) BytesPerSampleFrame() int {
	return i.BytesPerSample() * i.NumChannels
}

// NumBytes returns the total size of the stream's PCM payload in bytes.
func (i Info) NumBytes() int64 {
	return i.NumSampleFrames * int64(i.BytesPerSampleFrame())
}

// Duration returns the stream's playback length. It is zero if SampleRate is
// not positive.
func (i Info) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}

	seconds := float64(i.NumSampleFrames) / i.SampleRate

	return time.Duration(seconds * float64(time.Second))
}

// Stream is a decoded, seekable PCM source: a container parser opened
// against a file, positioned in sample frames rather than raw bytes.
type Stream interface {
	// Info returns the stream's immutable descriptor.
	Info() Info

	// Read fills p with raw PCM bytes starting at the current frame
	// position and advances the position by the n bytes read. It returns
	// a short count rather than an error at end of stream.
	Read(p []byte) (n int, err error)

	// Seek repositions the stream to the given frame offset per whence
	// (io.SeekStart, io.SeekCurrent, io.SeekEnd) and returns the new
	// absolute frame position.
	Seek(frame int64, whence int) (int64, error)

	// Close releases the stream's underlying resources.
	Close() error
}
