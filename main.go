// main.go - Command line player and renderer for the Drift Engine

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

func boilerPlate() {
	fmt.Println("\nDrift Engine - realtime noise synthesis for the Driftscape app")
	fmt.Println("(c) 2025 - 2026 Driftscape Audio")
	fmt.Println("https://github.com/driftscape/DriftEngine")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	boilerPlate()
	initLogging()

	var (
		renderSample bool
		renderFull   bool
		outPath      string
		backendName  string
		seekSeconds  float64
		durationSecs float64
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&renderSample, "render", false, "Render up to 60s of the track to a WAV file")
	flagSet.BoolVar(&renderFull, "render-full", false, "Render the complete track to a WAV file")
	flagSet.StringVar(&outPath, "out", "out.wav", "Output WAV path for render modes")
	flagSet.StringVar(&backendName, "backend", "oto", "Audio backend: oto, malgo or headless")
	flagSet.Float64Var(&seekSeconds, "seek", 0, "Start playback at this position in seconds")
	flagSet.Float64Var(&durationSecs, "duration", 0, "Stop playback after this many seconds (0 = until quit)")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./drift_engine [-render|-render-full -out file.wav] [-backend oto|malgo|headless] [-seek N] [-duration N] track.json")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	filename := flagSet.Arg(0)
	if filename == "" {
		fmt.Println("Error: a track JSON file is required")
		flagSet.Usage()
		os.Exit(1)
	}
	if renderSample && renderFull {
		fmt.Println("Error: select at most one of -render and -render-full")
		os.Exit(1)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading track file: %v\n", err)
		os.Exit(1)
	}
	track, err := ParseTrackConfig(data)
	if err != nil {
		fmt.Printf("Error parsing track: %v\n", err)
		os.Exit(1)
	}

	if renderSample || renderFull {
		if renderFull {
			err = RenderFullWAV(track, outPath)
		} else {
			err = RenderSampleWAV(track, outPath)
		}
		if err != nil {
			fmt.Printf("Render failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rendered to %s\n", outPath)
		return
	}

	backend, err := ParseBackendName(backendName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	session, err := StartSession(track, seekSeconds, SessionConfig{
		Backend:  backend,
		Observer: &LogObserver{},
	})
	if err != nil {
		fmt.Printf("Failed to start session: %v\n", err)
		os.Exit(1)
	}
	defer session.Stop()

	fmt.Println("\nPlaying. Keys: [space] pause/resume  [+/-] volume  [q] quit")
	runPlayer(session, durationSecs)
}

// runPlayer drives interactive playback: raw-terminal key handling plus
// an optional wall-clock duration limit.
func runPlayer(session *Session, durationSecs float64) {
	var timeout <-chan time.Time
	if durationSecs > 0 {
		timeout = time.After(time.Duration(durationSecs * float64(time.Second)))
	}

	keys := make(chan byte, 8)
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err == nil {
		defer term.Restore(int(os.Stdin.Fd()), oldState)
		go func() {
			buf := make([]byte, 1)
			for {
				if n, err := os.Stdin.Read(buf); err != nil || n == 0 {
					return
				}
				keys <- buf[0]
			}
		}()
	} else {
		// Not a terminal; just honor the duration limit or run forever.
		fmt.Println("(no interactive terminal, keys disabled)")
	}

	paused := false
	gain := float32(1.0)
	status := time.NewTicker(time.Second)
	defer status.Stop()

	for {
		select {
		case <-timeout:
			return
		case <-status.C:
			st := session.Status()
			fmt.Printf("\rstep %d  %6.1fs  gain %.2f  %s   ",
				st.CurrentStep, st.PositionSeconds, gain, pausedLabel(st.IsPaused))
		case key := <-keys:
			switch key {
			case ' ':
				paused = !paused
				if paused {
					_ = session.Pause()
				} else {
					_ = session.Resume()
				}
			case '+', '=':
				gain = min32(gain+0.05, 1.0)
				_ = session.SetMasterGain(gain)
			case '-', '_':
				gain = max32(gain-0.05, 0.0)
				_ = session.SetMasterGain(gain)
			case 'q', 'Q', 3: // 3 = Ctrl-C in raw mode
				fmt.Println()
				return
			}
		}
	}
}

func pausedLabel(paused bool) string {
	if paused {
		return "paused "
	}
	return "playing"
}
