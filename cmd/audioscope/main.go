// Command audioscope is an interactive terminal browser over a directory of
// audio files, with a live level meter and spectrum view over whichever
// file is currently selected. It decodes the selected file in a background
// goroutine and redraws the terminal on a ticker, the way the teacher's
// original reverb TUI redrew its parameter/meter screen.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nsf/termbox-go"

	"audiofile/internal/aiff"
	"audiofile/internal/caf"
	"audiofile/internal/telemetry"
	"audiofile/internal/wav"
	"audiofile/pkg/audiostream"
)

const (
	colDef    = termbox.ColorDefault
	colWhite  = termbox.ColorWhite
	colRed    = termbox.ColorRed
	colGreen  = termbox.ColorGreen
	colYellow = termbox.ColorYellow
	colCyan   = termbox.ColorCyan
)

var extToOpener = map[string]func(string) (audiostream.Stream, error){
	".wav":  func(path string) (audiostream.Stream, error) { return wav.Open(path) },
	".aif":  func(path string) (audiostream.Stream, error) { return aiff.Open(path) },
	".aiff": func(path string) (audiostream.Stream, error) { return aiff.Open(path) },
	".aifc": func(path string) (audiostream.Stream, error) { return aiff.Open(path) },
	".caf":  func(path string) (audiostream.Stream, error) { return caf.Open(path) },
}

func main() {
	dir := flag.String("dir", ".", "directory to browse for audio files")
	port := flag.Int("telemetry-port", 0, "serve a telemetry dashboard on this port (0 disables it)")
	logFile := flag.String("log", "", "log file path (default: discarded, since stderr is the terminal)")

	flag.Parse()

	var logWriter io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			//nolint:forbidigo // error output before the TUI takes over the terminal
			fmt.Printf("failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		logWriter = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logWriter, nil)))

	files, err := listAudioFiles(*dir)
	if err != nil {
		//nolint:forbidigo // error output before the TUI takes over the terminal
		fmt.Printf("failed to list %s: %v\n", *dir, err)
		os.Exit(1)
	}

	var telemetrySrv *telemetry.Server
	if *port > 0 {
		telemetrySrv = telemetry.NewServer(*port)
		go func() {
			if err := telemetrySrv.Start(); err != nil {
				slog.Error("telemetry server stopped", "error", err)
			}
		}()
	}

	runTUI(*dir, files, telemetrySrv)
}

// listAudioFiles returns the sorted base names of every file directly under
// dir whose extension maps to a known container parser.
func listAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := extToOpener[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// decodeState holds everything the background decode goroutine produces for
// the file currently selected in the browser.
type decodeState struct {
	info       audiostream.Info
	framesRead int64
	peakDB     [2]float64
	rmsDB      [2]float64
	spectrum   []float32
	err        error
}

// scopeState is the TUI's mutable model, mirroring the shape of the
// teacher's TUIState: a selection cursor plus whatever the current
// selection's live data looks like.
type scopeState struct {
	dir       string
	files     []string
	selected  int
	exit      bool
	telemetry *telemetry.Server

	stream audiostream.Stream
	path   string

	state decodeState

	cancelDecode context.CancelFunc
}

func runTUI(dir string, files []string, telemetrySrv *telemetry.Server) {
	if err := termbox.Init(); err != nil {
		//nolint:forbidigo // TUI initialization error requires direct output
		fmt.Printf("failed to initialize TUI: %v\n", err)
		return
	}
	defer termbox.Close()

	termbox.SetInputMode(termbox.InputEsc)

	s := &scopeState{dir: dir, files: files, telemetry: telemetrySrv}
	updates := make(chan decodeState, 1)

	if len(s.files) > 0 {
		s.openSelected(updates)
	}

	eventQueue := make(chan termbox.Event)
	go func() {
		for {
			eventQueue <- termbox.PollEvent()
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	draw(s)

	for !s.exit {
		select {
		case ev := <-eventQueue:
			switch ev.Type {
			case termbox.EventKey:
				handleKey(ev, s, updates)
			case termbox.EventResize:
				draw(s)
			}
		case st := <-updates:
			s.state = st
			s.pushTelemetry()
			draw(s)
		case <-ticker.C:
			draw(s)
		}
	}

	if s.cancelDecode != nil {
		s.cancelDecode()
	}
	if s.stream != nil {
		s.stream.Close()
	}
}

func handleKey(ev termbox.Event, s *scopeState, updates chan decodeState) {
	if ev.Key == termbox.KeyEsc || ev.Ch == 'q' {
		s.exit = true
		return
	}

	switch ev.Key {
	case termbox.KeyArrowUp:
		if len(s.files) == 0 {
			return
		}
		s.selected--
		if s.selected < 0 {
			s.selected = len(s.files) - 1
		}
		s.openSelected(updates)
	case termbox.KeyArrowDown:
		if len(s.files) == 0 {
			return
		}
		s.selected++
		if s.selected >= len(s.files) {
			s.selected = 0
		}
		s.openSelected(updates)
	}
}

// openSelected closes any stream currently open, opens the one at
// s.selected, and launches a fresh background decode loop feeding updates.
func (s *scopeState) openSelected(updates chan decodeState) {
	if s.cancelDecode != nil {
		s.cancelDecode()
		s.cancelDecode = nil
	}
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}

	s.path = filepath.Join(s.dir, s.files[s.selected])
	s.state = decodeState{}

	opener := extToOpener[strings.ToLower(filepath.Ext(s.path))]

	stream, err := opener(s.path)
	if err != nil {
		s.state.err = err
		return
	}
	s.stream = stream

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelDecode = cancel

	go decodeLoop(ctx, stream, updates)
}

func (s *scopeState) pushTelemetry() {
	if s.telemetry == nil || s.stream == nil {
		return
	}

	info := s.state.info

	progress := 0.0
	if info.NumSampleFrames > 0 {
		progress = float64(s.state.framesRead) / float64(info.NumSampleFrames)
	}

	s.telemetry.Push(telemetry.Stats{
		Path:        s.path,
		Format:      info.Format.String(),
		SampleRate:  info.SampleRate,
		NumChannels: info.NumChannels,
		Progress:    progress,
		PeakDB:      s.state.peakDB[0],
	})
}

func draw(s *scopeState) {
	_ = termbox.Clear(colDef, colDef)

	printTB(0, 0, colCyan, colDef, "audioscope - Interactive Audio Inspector")
	printTB(0, 1, colDef, colDef, fmt.Sprintf("Directory: %s", s.dir))
	printTB(0, 2, colDef, colDef, "Use Up/Down to select a file. 'q' or Esc to quit.")
	printTB(0, 3, colDef, colDef, strings.Repeat("-", 70))

	drawFileList(s)
	drawDetails(s)

	termbox.Flush()
}

func drawFileList(s *scopeState) {
	const listX, listY, listWidth = 0, 5, 30

	if len(s.files) == 0 {
		printTB(listX, listY, colYellow, colDef, "(no audio files found)")
		return
	}

	for i, name := range s.files {
		col, bg, prefix := colWhite, colDef, "  "
		if i == s.selected {
			col, bg, prefix = colDef, colWhite, "> "
		}

		line := prefix + name
		if len(line) > listWidth {
			line = line[:listWidth-3] + "..."
		}

		printTB(listX, listY+i, col, bg, line)
	}
}

func drawDetails(s *scopeState) {
	const detailX = 34

	if s.state.err != nil {
		printTB(detailX, 5, colRed, colDef, fmt.Sprintf("error: %v", s.state.err))
		return
	}

	if s.stream == nil {
		return
	}

	info := s.state.info

	printTB(detailX, 5, colWhite, colDef, fmt.Sprintf("format:   %s", info.Format))
	printTB(detailX, 6, colWhite, colDef, fmt.Sprintf("rate:     %.0f Hz", info.SampleRate))
	printTB(detailX, 7, colWhite, colDef, fmt.Sprintf("channels: %d", info.NumChannels))
	printTB(detailX, 8, colWhite, colDef, fmt.Sprintf("frames:   %d / %d", s.state.framesRead, info.NumSampleFrames))

	drawMeter(detailX, 10, "Peak L", s.state.peakDB[0], colGreen)
	drawMeter(detailX, 11, "Peak R", s.state.peakDB[1], colGreen)
	drawMeter(detailX, 13, "RMS  L", s.state.rmsDB[0], colYellow)
	drawMeter(detailX, 14, "RMS  R", s.state.rmsDB[1], colYellow)

	drawSpectrum(detailX, 16, s.state.spectrum)
}

func drawMeter(x, y int, label string, db float64, color termbox.Attribute) {
	const (
		barWidth = 40
		minDB    = -90.0
		maxDB    = 0.0
	)

	if math.IsInf(db, -1) || db < minDB {
		db = minDB
	}
	if db > maxDB {
		db = maxDB
	}

	ratio := (db - minDB) / (maxDB - minDB)
	filled := int(ratio * float64(barWidth))

	printTB(x, y, colDef, colDef, fmt.Sprintf("%s [%-6.1f dB] ", label, db))

	startX := x + 18
	for i := range barWidth {
		barChar := rune('░')
		if i < filled {
			barChar = '█'
		}
		termbox.SetCell(startX+i, y, barChar, color, colDef)
	}
}

// drawSpectrum renders magnitude bins as a row of bar-height characters,
// one column per bin, downsampled to fit a fixed display width.
func drawSpectrum(x, y int, bins []float32) {
	if len(bins) == 0 {
		return
	}

	const (
		width  = 60
		height = 8
		minDB  = -90.0
		maxDB  = 0.0
	)

	printTB(x, y, colCyan, colDef, "Spectrum:")

	binsPerCol := len(bins) / width
	if binsPerCol < 1 {
		binsPerCol = 1
	}

	for col := 0; col < width && col*binsPerCol < len(bins); col++ {
		var peak float32 = -1000
		for i := col * binsPerCol; i < (col+1)*binsPerCol && i < len(bins); i++ {
			if bins[i] > peak {
				peak = bins[i]
			}
		}

		db := float64(peak)
		if db < minDB {
			db = minDB
		}
		if db > maxDB {
			db = maxDB
		}

		ratio := (db - minDB) / (maxDB - minDB)
		barHeight := int(ratio * float64(height))

		for row := 0; row < height; row++ {
			barChar := rune(' ')
			if row < barHeight {
				barChar = '█'
			}
			termbox.SetCell(x+col, y+1+height-row, barChar, colGreen, colDef)
		}
	}
}

func printTB(x, y int, fg, bg termbox.Attribute, msg string) {
	for _, c := range msg {
		termbox.SetCell(x, y, c, fg, bg)
		x++
	}
}
