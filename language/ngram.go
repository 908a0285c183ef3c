// Package language implements the n-gram language models used both for
// lexicon-constrained decoding and for homophone disambiguation. Models load
// from ARPA text or from the gob binary format and are read-only afterwards.
package language

import "github.com/ieee0824/cuedspeech-go/internal/mathutil"

// Sentence boundary markers.
const (
	SentenceStart = "<s>"
	SentenceEnd   = "</s>"
	UnkWord       = "<unk>"
)

// Model represents an n-gram language model with backoff, up to trigrams.
type Model struct {
	Order    int // 1, 2 or 3
	Unigrams map[string]Entry
	Bigrams  map[[2]string]Entry
	Trigrams map[[3]string]Entry
}

// Entry holds the log probability and backoff weight of one n-gram, in
// natural log.
type Entry struct {
	LogProb    float64
	LogBackoff float64
}

// NewModel creates an empty model of the given order.
func NewModel(order int) *Model {
	return &Model{
		Order:    order,
		Unigrams: make(map[string]Entry),
		Bigrams:  make(map[[2]string]Entry),
		Trigrams: make(map[[3]string]Entry),
	}
}

// State is the opaque scoring context: the last words of the history, as
// many as the model order consumes. The zero State is an empty history;
// comparable, so usable as a beam dedup key.
type State struct {
	Prev2, Prev1 string
}

// Start returns the begin-of-sentence state.
func (m *Model) Start() State {
	return State{Prev1: SentenceStart}
}

// Score returns the successor state and the natural-log probability of word
// following st, backing off when the exact n-gram is unknown.
func (m *Model) Score(st State, word string) (State, float64) {
	logProb := m.logProb(st, word)

	next := State{Prev1: word}
	if m.Order >= 3 {
		next.Prev2 = st.Prev1
	}
	return next, logProb
}

func (m *Model) logProb(st State, word string) float64 {
	if m.Order >= 3 && st.Prev2 != "" {
		if e, ok := m.Trigrams[[3]string{st.Prev2, st.Prev1, word}]; ok {
			return e.LogProb
		}
		if e, ok := m.Bigrams[[2]string{st.Prev2, st.Prev1}]; ok {
			return e.LogBackoff + m.logProbBigram(st.Prev1, word)
		}
	}
	if m.Order >= 2 && st.Prev1 != "" {
		return m.logProbBigram(st.Prev1, word)
	}
	return m.logProbUnigram(word)
}

func (m *Model) logProbBigram(prev, word string) float64 {
	if e, ok := m.Bigrams[[2]string{prev, word}]; ok {
		return e.LogProb
	}
	if e, ok := m.Unigrams[prev]; ok {
		return e.LogBackoff + m.logProbUnigram(word)
	}
	return m.logProbUnigram(word)
}

func (m *Model) logProbUnigram(word string) float64 {
	if e, ok := m.Unigrams[word]; ok {
		return e.LogProb
	}
	if e, ok := m.Unigrams[UnkWord]; ok {
		return e.LogProb
	}
	return mathutil.LogZero
}

// SentenceLogProb scores a full word sequence, bracketing it with the
// sentence markers.
func (m *Model) SentenceLogProb(words []string) float64 {
	st := m.Start()
	total := 0.0
	var p float64
	for _, w := range words {
		st, p = m.Score(st, w)
		total += p
	}
	_, p = m.Score(st, SentenceEnd)
	return total + p
}

// Vocab returns all words in the unigram vocabulary.
func (m *Model) Vocab() []string {
	words := make([]string, 0, len(m.Unigrams))
	for w := range m.Unigrams {
		words = append(words, w)
	}
	return words
}
