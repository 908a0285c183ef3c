// Package subtitle renders recognition results as SubRip (.srt) subtitle
// files. Video compositing is left to external tooling; an .srt next to the
// source video is what players and editors consume.
package subtitle

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ieee0824/cuedspeech-go/window"
)

// accentReplacer folds accented French characters to ASCII, matching the
// character set most subtitle renderers can draw without font fallback.
var accentReplacer = strings.NewReplacer(
	"À", "A", "Á", "A", "Â", "A", "Ã", "A", "Ä", "A",
	"Ç", "C",
	"È", "E", "É", "E", "Ê", "E", "Ë", "E",
	"Î", "I", "Ï", "I",
	"Ô", "O", "Ö", "O",
	"Ù", "U", "Û", "U", "Ü", "U",
	"Œ", "OE",
	"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"œ", "oe",
)

// RemoveAccents folds accented characters to their ASCII equivalents.
func RemoveAccents(s string) string {
	return accentReplacer.Replace(s)
}

// entryText picks the display text of a result: the corrected sentence when
// present, else the phoneme sequence.
func entryText(r window.Result) string {
	if r.FrenchSentence != "" {
		return RemoveAccents(r.FrenchSentence)
	}
	return strings.Join(r.Phonemes, " ")
}

// WriteSRT renders results as SubRip subtitles. Each cue starts at its
// result's frame and runs until the next result (or holdFrames for the
// last). Results are sorted by frame number; empty ones are skipped.
func WriteSRT(w io.Writer, results []window.Result, fps float64, holdFrames int) error {
	if fps <= 0 {
		fps = 30.0
	}
	if holdFrames <= 0 {
		holdFrames = int(fps * 2)
	}

	sorted := make([]window.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FrameNumber < sorted[j].FrameNumber
	})

	cue := 0
	for i, r := range sorted {
		text := entryText(r)
		if text == "" {
			continue
		}
		startFrame := r.FrameNumber
		endFrame := startFrame + holdFrames
		for j := i + 1; j < len(sorted); j++ {
			if entryText(sorted[j]) != "" {
				endFrame = sorted[j].FrameNumber
				break
			}
		}
		if endFrame <= startFrame {
			endFrame = startFrame + 1
		}

		cue++
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			cue, timestamp(startFrame, fps), timestamp(endFrame, fps), text); err != nil {
			return err
		}
	}
	return nil
}

// timestamp formats a frame number as an SRT time code (HH:MM:SS,mmm).
func timestamp(frame int, fps float64) string {
	ms := int(float64(frame) / fps * 1000.0)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
