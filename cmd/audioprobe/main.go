// Command audioprobe opens a WAV, AIFF/AIFC or CAF/ALAC file, prints its
// stream info, and reports peak and RMS level statistics computed from the
// decoded PCM data.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"audiofile/internal/aiff"
	"audiofile/internal/caf"
	"audiofile/internal/wav"
	"audiofile/pkg/audiostream"
	"audiofile/pkg/pcm"
)

// ErrUnrecognizedExtension is returned when a file's extension doesn't map
// to any supported container.
var ErrUnrecognizedExtension = errors.New("audioprobe: unrecognized file extension")

func main() {
	logFile := flag.String("log", "", "log file path (default: stderr)")
	showHelp := flag.Bool("help", false, "show this help message")

	flag.Parse()

	if *showHelp || flag.NArg() == 0 {
		//nolint:forbidigo // CLI help output
		fmt.Println("audioprobe: print stream info and PCM stats for an audio file")
		//nolint:forbidigo // CLI help output
		fmt.Println("\nUsage: audioprobe [options] <file> [file...]")
		flag.PrintDefaults()

		if !*showHelp {
			os.Exit(1)
		}

		return
	}

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			//nolint:forbidigo // error output before logging is initialized
			fmt.Printf("failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		slog.SetDefault(slog.New(slog.NewTextHandler(f, nil)))
	}

	exitCode := 0

	for _, path := range flag.Args() {
		if err := probe(path); err != nil {
			slog.Error("probe failed", "path", path, "error", err)
			//nolint:forbidigo // per-file error output
			fmt.Printf("%s: ERROR: %v\n", path, err)
			exitCode = 1
		}
	}

	os.Exit(exitCode)
}

// openStream opens path with the container parser matching its extension.
func openStream(path string) (audiostream.Stream, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.Open(path)
	case ".aif", ".aiff", ".aifc":
		return aiff.Open(path)
	case ".caf":
		return caf.Open(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedExtension, filepath.Ext(path))
	}
}

func probe(path string) error {
	stream, err := openStream(path)
	if err != nil {
		return err
	}
	defer stream.Close()

	info := stream.Info()

	//nolint:forbidigo // CLI output
	fmt.Printf("%s\n", path)
	//nolint:forbidigo // CLI output
	fmt.Printf("  format:       %s\n", info.Format)
	//nolint:forbidigo // CLI output
	fmt.Printf("  sample rate:  %.0f Hz\n", info.SampleRate)
	//nolint:forbidigo // CLI output
	fmt.Printf("  channels:     %d\n", info.NumChannels)
	//nolint:forbidigo // CLI output
	fmt.Printf("  frames:       %d\n", info.NumSampleFrames)
	//nolint:forbidigo // CLI output
	fmt.Printf("  duration:     %s\n", info.Duration())

	peak, rms, err := levelStats(stream, info)
	if err != nil {
		return err
	}

	//nolint:forbidigo // CLI output
	fmt.Printf("  peak:         %.2f dBFS\n", linearToDB(peak))
	//nolint:forbidigo // CLI output
	fmt.Printf("  rms:          %.2f dBFS\n", linearToDB(rms))

	return nil
}

// levelStats decodes the whole stream in chunks, converting every sample to
// float64 through pkg/pcm regardless of the source encoding, and returns
// its peak absolute amplitude and RMS level (both linear, 0..1ish range).
func levelStats(stream audiostream.Stream, info audiostream.Info) (peak, rms float64, err error) {
	const chunkFrames = 4096

	bytesPerFrame := info.BytesPerSampleFrame()
	if bytesPerFrame == 0 {
		return 0, 0, nil
	}

	buf := make([]byte, chunkFrames*bytesPerFrame)

	var sumSquares float64
	var count int64

	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			it := pcm.NewIterator[float64](info.Format, buf[:n])
			for i := 0; i < it.Len(); i++ {
				v := it.At(i)
				if a := math.Abs(v); a > peak {
					peak = a
				}
				sumSquares += v * v
				count++
			}
		}

		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return 0, 0, readErr
		}

		if n == 0 {
			break
		}
	}

	if count > 0 {
		rms = math.Sqrt(sumSquares / float64(count))
	}

	return peak, rms, nil
}

func linearToDB(v float64) float64 {
	if v <= 1e-9 {
		return -180
	}

	return 20 * math.Log10(v)
}
