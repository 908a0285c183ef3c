// Package decoder implements lexicon-constrained CTC beam-search decoding
// over accumulated logit matrices, scored by an n-gram language model
// through a smeared pronunciation trie.
package decoder

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/ieee0824/cuedspeech-go/internal/mathutil"
	"github.com/ieee0824/cuedspeech-go/language"
	"github.com/ieee0824/cuedspeech-go/lexicon"
)

// ErrUninitialized is recorded when Decode runs before Initialize.
var ErrUninitialized = errors.New("decoder: not initialized")

// Config holds the beam-search parameters and resource paths.
type Config struct {
	LexiconPath string
	TokensPath  string
	LMPath      string
	LMDictPath  string // optional, unused by the in-process LM backend

	NBest         int
	BeamSize      int     // max active beams per time step
	BeamSizeToken int     // token candidates per step; -1 means vocab size
	BeamThreshold float64 // prune beams this far below the best
	LMWeight      float64
	WordScore     float64 // bonus on word completion
	UnkScore      float64 // accepted but not read: the search never proposes the <UNK> word
	SilScore      float64 // bonus on silence emission
	LogAdd        bool    // combine merged beams with log-add instead of max

	BlankToken string
	SilToken   string
	UnkWord    string
}

// DefaultConfig returns the decoding defaults.
func DefaultConfig() Config {
	return Config{
		NBest:         1,
		BeamSize:      40,
		BeamSizeToken: -1,
		BeamThreshold: 50.0,
		LMWeight:      3.23,
		WordScore:     0.0,
		UnkScore:      math.Inf(-1),
		SilScore:      0.0,
		LogAdd:        false,
		BlankToken:    lexicon.BlankToken,
		SilToken:      "_",
		UnkWord:       lexicon.UnkToken,
	}
}

// CTCDecoder decodes logit matrices into word-constrained token sequences.
// Read-only after Initialize, so one decoder may serve many streams. Decode
// never fails across the boundary: errors produce an empty hypothesis list
// and are retrievable from LastError.
type CTCDecoder struct {
	cfg    Config
	logger *slog.Logger

	alphabet *lexicon.Alphabet
	lex      *lexicon.Lexicon
	lm       *language.Model
	trie     *lexicon.Trie

	blankIdx int
	silIdx   int
	unkIdx   int

	initialized bool

	errMu   sync.Mutex
	lastErr error
}

// New creates a decoder with the given configuration. logger may be nil.
func New(cfg Config, logger *slog.Logger) *CTCDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CTCDecoder{cfg: cfg, logger: logger, blankIdx: -1, silIdx: -1, unkIdx: -1}
}

// Initialize loads the alphabet, lexicon and language model, then builds the
// smeared trie. Any failure is fatal: the decoder stays unusable.
func (d *CTCDecoder) Initialize() error {
	alphabet, err := lexicon.LoadAlphabetFile(d.cfg.TokensPath)
	if err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	d.alphabet = alphabet

	d.blankIdx = alphabet.Index(d.cfg.BlankToken)
	d.silIdx = alphabet.Index(d.cfg.SilToken)
	d.unkIdx = alphabet.Index(d.cfg.UnkWord)
	if d.blankIdx < 0 {
		d.logger.Warn("blank token not found in vocabulary", "token", d.cfg.BlankToken)
	}

	lex, err := lexicon.LoadFile(d.cfg.LexiconPath, alphabet)
	if err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	d.lex = lex

	lm, err := language.LoadFile(d.cfg.LMPath)
	if err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	d.lm = lm

	d.trie = buildTrie(lex, lm)
	d.initialized = true

	d.logger.Info("CTC decoder initialized",
		"vocab_size", alphabet.Size(),
		"words", lex.Size(),
		"trie_nodes", d.trie.NumNodes(),
		"blank_idx", d.blankIdx,
		"sil_idx", d.silIdx)
	return nil
}

// buildTrie inserts every accepted spelling with its word's unigram LM score
// and smears the result with MAX.
func buildTrie(lex *lexicon.Lexicon, lm *language.Model) *lexicon.Trie {
	trie := lexicon.NewTrie()
	start := lm.Start()
	for _, e := range lex.Entries() {
		_, score := lm.Score(start, lex.Word(e.Word))
		trie.Insert(e.Spelling, e.Word, score)
	}
	trie.Smear()
	return trie
}

// Decode applies a numerically stable log-softmax to each row of the
// [T × V] logit matrix and runs the beam search. The input is not modified.
func (d *CTCDecoder) Decode(logits [][]float64) []Hypothesis {
	logProbs := make([][]float64, len(logits))
	for t, row := range logits {
		cp := make([]float64, len(row))
		copy(cp, row)
		mathutil.LogSoftmaxRow(cp)
		logProbs[t] = cp
	}
	return d.DecodeLogProbs(logProbs)
}

// DecodeLogProbs runs the beam search over a matrix already in log space.
func (d *CTCDecoder) DecodeLogProbs(logProbs [][]float64) []Hypothesis {
	if !d.initialized {
		d.setLastError(ErrUninitialized)
		return nil
	}
	if len(logProbs) == 0 {
		return nil
	}
	hyps := d.search(logProbs)
	if len(hyps) == 0 {
		d.setLastError(fmt.Errorf("decoder: no hypothesis survived the beam"))
	}
	return hyps
}

// IdxsToTokens converts decoded token indices to phoneme strings: the
// sentinel pair bracketing every hypothesis is dropped, empty and special
// tokens removed, consecutive repeats collapsed, and trailing silences
// stripped. The unconditional first/last drop assumes sentinel-bracketed
// input, which this decoder's own hypotheses always are.
func (d *CTCDecoder) IdxsToTokens(indices []int) []string {
	tokens := make([]string, 0, len(indices))
	for _, idx := range indices {
		tokens = append(tokens, d.alphabet.Token(idx))
	}
	if len(tokens) >= 2 {
		tokens = tokens[1 : len(tokens)-1]
	}

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" || lexicon.IsSpecial(tok) {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == tok {
			continue
		}
		out = append(out, tok)
	}
	for len(out) > 0 && out[len(out)-1] == d.cfg.SilToken {
		out = out[:len(out)-1]
	}
	return out
}

// VocabSize returns the alphabet size (0 before Initialize).
func (d *CTCDecoder) VocabSize() int {
	if d.alphabet == nil {
		return 0
	}
	return d.alphabet.Size()
}

// TokenToIdx returns the index of a token string, or -1.
func (d *CTCDecoder) TokenToIdx(token string) int {
	if d.alphabet == nil {
		return -1
	}
	return d.alphabet.Index(token)
}

// IdxToToken returns the token string at idx, or "".
func (d *CTCDecoder) IdxToToken(idx int) string {
	if d.alphabet == nil {
		return ""
	}
	return d.alphabet.Token(idx)
}

// Alphabet exposes the loaded token alphabet (nil before Initialize).
func (d *CTCDecoder) Alphabet() *lexicon.Alphabet { return d.alphabet }

// Lexicon exposes the loaded lexicon (nil before Initialize).
func (d *CTCDecoder) Lexicon() *lexicon.Lexicon { return d.lex }

// LastError returns the most recent decode-side error, if any.
func (d *CTCDecoder) LastError() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.lastErr
}

func (d *CTCDecoder) setLastError(err error) {
	d.errMu.Lock()
	d.lastErr = err
	d.errMu.Unlock()
}
