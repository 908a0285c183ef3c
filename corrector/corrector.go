// Package corrector turns decoded LIAPHON phoneme sequences into French
// sentences by resolving each IPA token against its homophone class and
// selecting the best word sequence with a word-level n-gram language model.
package corrector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/ieee0824/cuedspeech-go/language"
	"github.com/ieee0824/cuedspeech-go/phoneme"
)

// defaultBeamWidth bounds the homophone beam search.
const defaultBeamWidth = 20

// Option configures a Corrector.
type Option func(*Corrector)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Corrector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBeamWidth overrides the beam width (default 20).
func WithBeamWidth(w int) Option {
	return func(c *Corrector) {
		if w > 0 {
			c.beamWidth = w
		}
	}
}

// WithFuzzyLookup enables Jaro-Winkler fallback for IPA tokens missing from
// the homophone table: the closest key scoring above threshold supplies
// its class instead of the identity fallback. Disabled by default.
func WithFuzzyLookup(threshold float64) Option {
	return func(c *Corrector) { c.fuzzyThreshold = threshold }
}

// Corrector holds the homophone table and the French language model.
// Read-only after Initialize; safe to share across streams.
type Corrector struct {
	homophonesPath string
	lmPath         string
	logger         *slog.Logger
	beamWidth      int
	fuzzyThreshold float64

	classes map[string][]string
	keys    []string // table keys in encounter order
	lm      *language.Model
}

// New creates a Corrector reading the homophone table from homophonesPath
// (JSON lines) and the word LM from lmPath.
func New(homophonesPath, lmPath string, opts ...Option) *Corrector {
	c := &Corrector{
		homophonesPath: homophonesPath,
		lmPath:         lmPath,
		logger:         slog.Default(),
		beamWidth:      defaultBeamWidth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// homophoneLine is one JSONL record. "words" defaults to the IPA itself.
type homophoneLine struct {
	IPA   string   `json:"ipa"`
	Words []string `json:"words"`
}

// Initialize loads the homophone table and the language model. Failures are
// fatal: the corrector stays unusable.
func (c *Corrector) Initialize() error {
	f, err := os.Open(c.homophonesPath)
	if err != nil {
		return fmt.Errorf("corrector: open homophones %q: %w", c.homophonesPath, err)
	}
	defer f.Close()

	classes := make(map[string][]string)
	var keys []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec homophoneLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return fmt.Errorf("corrector: homophones %q line %d: %w", c.homophonesPath, lineNum, err)
		}
		if rec.IPA == "" {
			return fmt.Errorf("corrector: homophones %q line %d: missing ipa", c.homophonesPath, lineNum)
		}
		words := rec.Words
		if len(words) == 0 {
			words = []string{rec.IPA}
		}
		if _, exists := classes[rec.IPA]; !exists {
			keys = append(keys, rec.IPA)
		}
		classes[rec.IPA] = words
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("corrector: homophones %q: %w", c.homophonesPath, err)
	}

	lm, err := language.LoadFile(c.lmPath)
	if err != nil {
		return fmt.Errorf("corrector: %w", err)
	}

	c.classes = classes
	c.keys = keys
	c.lm = lm
	c.logger.Info("sentence corrector initialized", "homophone_classes", len(keys))
	return nil
}

// Correct converts a LIAPHON phoneme sequence into a capitalized French
// sentence ending in a period. Returns "" when nothing can be produced.
func (c *Corrector) Correct(liaphonPhonemes []string) string {
	if c.lm == nil {
		return ""
	}

	ipa := phoneme.LiaphonToIPA(liaphonPhonemes)
	tokens := strings.Fields(ipa)
	if len(tokens) == 0 {
		if ipa == "" {
			return ""
		}
		tokens = []string{ipa}
	}

	lists := make([][]string, 0, len(tokens))
	for _, tok := range tokens {
		lists = append(lists, c.classFor(tok))
	}

	best := c.beamSearch(lists)
	if len(best) == 0 {
		return ""
	}

	sentence := strings.Join(best, " ")
	sentence = capitalize(sentence)
	if !strings.HasSuffix(sentence, ".") {
		sentence += "."
	}
	return sentence
}

// classFor resolves one IPA token to its homophone class, falling back to
// fuzzy key matching when enabled and finally to the token itself.
func (c *Corrector) classFor(token string) []string {
	if words, ok := c.classes[token]; ok && len(words) > 0 {
		return words
	}
	if c.fuzzyThreshold > 0 {
		bestKey := ""
		bestScore := c.fuzzyThreshold
		for _, key := range c.keys {
			score := matchr.JaroWinkler(token, key, false)
			if score > bestScore {
				bestScore = score
				bestKey = key
			}
		}
		if bestKey != "" {
			return c.classes[bestKey]
		}
	}
	return []string{token}
}

// beamEntry carries the LM state, cumulative score and word sequence of one
// partial sentence.
type beamEntry struct {
	state language.State
	score float64
	words []string
}

// beamSearch explores the Cartesian product of homophone classes, keeping
// the beamWidth best-scoring prefixes at each position.
func (c *Corrector) beamSearch(lists [][]string) []string {
	if len(lists) == 0 {
		return nil
	}

	beams := []beamEntry{{state: c.lm.Start()}}
	for _, words := range lists {
		next := make([]beamEntry, 0, len(beams)*len(words))
		for _, b := range beams {
			for _, w := range words {
				state, score := c.lm.Score(b.state, w)
				seq := make([]string, len(b.words), len(b.words)+1)
				copy(seq, b.words)
				next = append(next, beamEntry{
					state: state,
					score: b.score + score,
					words: append(seq, w),
				})
			}
		}
		if len(next) == 0 {
			return nil
		}
		sort.SliceStable(next, func(i, j int) bool { return next[i].score > next[j].score })
		if len(next) > c.beamWidth {
			next = next[:c.beamWidth]
		}
		beams = next
	}
	return beams[0].words
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
