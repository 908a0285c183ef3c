// Command cuedspeech runs the streaming cued-speech recognizer over landmark
// files. Each input is a JSON-lines file with one detector result per video
// frame:
//
//	{"face": [[x,y,z], ...], "hand": [[x,y,z], ...], "pose": [[x,y,z], ...]}
//
// An empty line (or null) marks a frame where detection failed. The final
// phoneme sequence and corrected sentence print to stdout; -srt additionally
// writes a SubRip file next to each input.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	cuedspeech "github.com/ieee0824/cuedspeech-go"
	"github.com/ieee0824/cuedspeech-go/config"
	"github.com/ieee0824/cuedspeech-go/feature"
	"github.com/ieee0824/cuedspeech-go/subtitle"
	"github.com/ieee0824/cuedspeech-go/window"
)

func main() {
	configPath := flag.String("config", "", "path to YAML pipeline configuration")
	writeSRT := flag.Bool("srt", false, "write an .srt subtitle file next to each input")
	fps := flag.Float64("fps", 30.0, "video frame rate for subtitle timing")
	parallel := flag.Int("parallel", 1, "number of inputs processed concurrently")
	verbose := flag.Bool("v", false, "verbose output (debug logging)")
	flag.Parse()

	inputs := flag.Args()
	if *configPath == "" || len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: cuedspeech -config CONFIG [-srt] [-fps N] [-parallel N] LANDMARKS.jsonl ...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, *verbose)
	slog.SetDefault(logger)

	rec, err := cuedspeech.NewRecognizer(cfg, cuedspeech.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(max(*parallel, 1))
	for _, input := range inputs {
		g.Go(func() error {
			return processFile(rec, input, *fps, *writeSRT, logger)
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// landmarkLine is one frame of detector output.
type landmarkLine struct {
	Face [][]float64 `json:"face"`
	Hand [][]float64 `json:"hand"`
	Pose [][]float64 `json:"pose"`
}

func toLandmarks(points [][]float64) []feature.Landmark {
	out := make([]feature.Landmark, len(points))
	for i, p := range points {
		if len(p) >= 3 {
			out[i] = feature.Landmark{X: p[0], Y: p[1], Z: p[2]}
		} else if len(p) == 2 {
			out[i] = feature.Landmark{X: p[0], Y: p[1]}
		}
	}
	return out
}

func processFile(rec *cuedspeech.Recognizer, path string, fps float64, writeSRT bool, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	stream := rec.NewStream()
	var results []window.Result

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 4*1024*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		var set *feature.LandmarkSet
		if line != "" && line != "null" {
			var lm landmarkLine
			if err := json.Unmarshal([]byte(line), &lm); err != nil {
				return fmt.Errorf("%q line %d: %w", path, lineNum, err)
			}
			set = &feature.LandmarkSet{
				Face: toLandmarks(lm.Face),
				Hand: toLandmarks(lm.Hand),
				Pose: toLandmarks(lm.Pose),
			}
		}
		if res, ok := stream.PushLandmarks(set); ok {
			results = append(results, res)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}

	final := stream.Finalize()
	if len(final.Phonemes) > 0 {
		results = append(results, final)
	}

	totalSeen, valid, dropped, chunks := stream.Stats()
	logger.Info("stream finished",
		"input", path,
		"frames", totalSeen, "valid", valid, "dropped", dropped, "chunks", chunks)

	last := final
	if len(last.Phonemes) == 0 && len(results) > 0 {
		last = results[len(results)-1]
	}
	fmt.Printf("%s\t%s\t%s\n", path, strings.Join(last.Phonemes, " "), last.FrenchSentence)

	if writeSRT {
		srtPath := strings.TrimSuffix(path, ".jsonl") + ".srt"
		out, err := os.Create(srtPath)
		if err != nil {
			return fmt.Errorf("create %q: %w", srtPath, err)
		}
		defer out.Close()
		if err := subtitle.WriteSRT(out, results, fps, 0); err != nil {
			return fmt.Errorf("write %q: %w", srtPath, err)
		}
	}
	return nil
}
