package decoder

import (
	"fmt"
	"math"
	"sort"

	"github.com/ieee0824/cuedspeech-go/internal/mathutil"
	"github.com/ieee0824/cuedspeech-go/language"
)

// beam is one active hypothesis during search.
type beam struct {
	score     float64
	node      int            // current trie node; root when between words
	look      float64        // smeared LM lookahead already applied (0 at root)
	lm        language.State // LM context after the last completed word
	prevTok   int            // last emitted token index, -1 before any emission
	prevBlank bool           // blank emitted since prevTok (collapse barrier)
	words     *wordNode
	toks      *tokenNode
}

// beamKey identifies beams eligible for recombination. Word and token
// histories are deliberately excluded: merged beams keep the better
// backpointers (or log-add their mass when configured).
type beamKey struct {
	node      int
	lm        language.State
	prevTok   int
	prevBlank bool
}

// beamSet accumulates candidate beams for one time step, recombining on
// beamKey. Items keep insertion order so pruning is deterministic.
type beamSet struct {
	logAdd bool
	idx    map[beamKey]int
	items  []beam
}

func newBeamSet(logAdd bool) *beamSet {
	return &beamSet{logAdd: logAdd, idx: make(map[beamKey]int)}
}

func (s *beamSet) add(nb beam) {
	k := beamKey{nb.node, nb.lm, nb.prevTok, nb.prevBlank}
	if i, ok := s.idx[k]; ok {
		cur := &s.items[i]
		if s.logAdd {
			merged := mathutil.LogAdd(cur.score, nb.score)
			if nb.score > cur.score {
				nb.score = merged
				s.items[i] = nb
			} else {
				cur.score = merged
			}
		} else if nb.score > cur.score {
			s.items[i] = nb
		}
		return
	}
	s.idx[k] = len(s.items)
	s.items = append(s.items, nb)
}

// prune applies the score threshold and the beam-size cap, returning beams
// sorted best first.
func (s *beamSet) prune(beamSize int, threshold float64) []beam {
	if len(s.items) == 0 {
		return nil
	}
	best := math.Inf(-1)
	for i := range s.items {
		if s.items[i].score > best {
			best = s.items[i].score
		}
	}
	kept := make([]beam, 0, len(s.items))
	for _, b := range s.items {
		if b.score >= best-threshold {
			kept = append(kept, b)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if len(kept) > beamSize {
		kept = kept[:beamSize]
	}
	return kept
}

// search runs the lexicon-constrained CTC beam search over a [T × V]
// log-probability matrix.
func (d *CTCDecoder) search(logProbs [][]float64) []Hypothesis {
	T := len(logProbs)
	V := len(logProbs[0])
	root := d.trie.Root()

	beams := []beam{{
		node:      root,
		lm:        d.lm.Start(),
		prevTok:   -1,
		prevBlank: true,
	}}

	for t := 0; t < T; t++ {
		row := logProbs[t]
		if len(row) != V {
			d.setLastError(fmt.Errorf("decoder: ragged logit matrix: row %d has %d columns, want %d", t, len(row), V))
			return nil
		}
		cands := d.candidateTokens(row)
		next := newBeamSet(d.cfg.LogAdd)
		for i := range beams {
			for _, v := range cands {
				d.expand(&beams[i], v, row[v], t, next)
			}
		}
		beams = next.prune(d.cfg.BeamSize, d.cfg.BeamThreshold)
		if len(beams) == 0 {
			return nil
		}
	}

	// Complete pending words at end of input; beams stuck mid-word at a
	// non-accepting node cannot produce a lexicon word and are dropped
	// unless nothing else survived.
	finals := newBeamSet(d.cfg.LogAdd)
	for i := range beams {
		b := &beams[i]
		if b.node == root {
			finals.add(*b)
			continue
		}
		labels := d.trie.Labels(b.node)
		if len(labels) == 0 {
			continue
		}
		for _, lab := range labels {
			nextState, lmScore := d.lm.Score(b.lm, d.lex.Word(lab.Word))
			nb := *b
			nb.score += d.cfg.LMWeight*(lmScore-b.look) + d.cfg.WordScore
			nb.lm = nextState
			nb.node = root
			nb.look = 0
			nb.words = appendWord(b.words, lab.Word)
			finals.add(nb)
		}
	}
	final := finals.prune(d.cfg.BeamSize, d.cfg.BeamThreshold)
	if len(final) == 0 {
		final = beams
	}

	nbest := d.cfg.NBest
	if nbest <= 0 {
		nbest = 1
	}
	if len(final) > nbest {
		final = final[:nbest]
	}

	hyps := make([]Hypothesis, 0, len(final))
	for i := range final {
		hyps = append(hyps, d.toHypothesis(&final[i], T))
	}
	return hyps
}

// candidateTokens returns the token indices expanded this step, ascending.
// BeamSizeToken caps them by per-frame probability; blank always survives
// the cap so hypotheses can continue.
func (d *CTCDecoder) candidateTokens(row []float64) []int {
	V := len(row)
	k := d.cfg.BeamSizeToken
	if k <= 0 || k >= V {
		all := make([]int, V)
		for i := range all {
			all[i] = i
		}
		return all
	}
	order := make([]int, V)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return row[order[i]] > row[order[j]] })
	top := order[:k]

	hasBlank := false
	for _, v := range top {
		if v == d.blankIdx {
			hasBlank = true
			break
		}
	}
	if !hasBlank && d.blankIdx >= 0 {
		top = append(top, d.blankIdx)
	}
	sort.Ints(top)
	return top
}

// expand applies CTC transition rules for token v at step t to beam b,
// adding successors to next.
func (d *CTCDecoder) expand(b *beam, v int, lp float64, t int, next *beamSet) {
	switch {
	case v == d.blankIdx:
		nb := *b
		nb.score += lp
		nb.prevBlank = true
		next.add(nb)
		// Blank after an accepting node completes the pending word.
		d.complete(b, lp, t, -1, next)

	case v == d.silIdx:
		sc := lp + d.cfg.SilScore
		if v == b.prevTok && !b.prevBlank {
			nb := *b
			nb.score += sc
			next.add(nb)
			return
		}
		nb := *b
		nb.score += sc
		nb.prevTok = v
		nb.prevBlank = false
		nb.toks = appendToken(b.toks, v, t)
		next.add(nb)
		// Silence likewise terminates a pending word.
		d.complete(b, sc, t, v, next)

	default:
		if v == b.prevTok && !b.prevBlank {
			// CTC collapse: same token, no intervening blank.
			nb := *b
			nb.score += lp
			next.add(nb)
			return
		}
		child := d.trie.Child(b.node, v)
		if child < 0 {
			return
		}
		look := d.trie.MaxScore(child)
		nb := *b
		nb.score += lp + d.cfg.LMWeight*(look-b.look)
		nb.node = child
		nb.look = look
		nb.prevTok = v
		nb.prevBlank = false
		nb.toks = appendToken(b.toks, v, t)
		next.add(nb)
	}
}

// complete emits the words accepted at b's trie node, replacing the smeared
// lookahead with the true n-gram score. emitTok is the token carried by the
// terminating emission (-1 for blank, the silence index for silence).
func (d *CTCDecoder) complete(b *beam, emitScore float64, t, emitTok int, next *beamSet) {
	if b.node == d.trie.Root() {
		return
	}
	labels := d.trie.Labels(b.node)
	for _, lab := range labels {
		nextState, lmScore := d.lm.Score(b.lm, d.lex.Word(lab.Word))
		nb := *b
		nb.score += emitScore + d.cfg.LMWeight*(lmScore-b.look) + d.cfg.WordScore
		nb.lm = nextState
		nb.node = d.trie.Root()
		nb.look = 0
		nb.words = appendWord(b.words, lab.Word)
		if emitTok >= 0 {
			nb.toks = appendToken(b.toks, emitTok, t)
			nb.prevTok = emitTok
			nb.prevBlank = false
		} else {
			nb.prevBlank = true
		}
		next.add(nb)
	}
}

// toHypothesis materializes a beam: backpointer lists become slices and the
// token sequence is bracketed with the blank sentinel pair that
// IdxsToTokens strips.
func (d *CTCDecoder) toHypothesis(b *beam, T int) Hypothesis {
	tokens, steps := b.toks.toSlices()
	blank := d.blankIdx
	if blank < 0 {
		blank = 0
	}
	sentTokens := make([]int, 0, len(tokens)+2)
	sentSteps := make([]int, 0, len(steps)+2)
	sentTokens = append(sentTokens, blank)
	sentSteps = append(sentSteps, 0)
	sentTokens = append(sentTokens, tokens...)
	sentSteps = append(sentSteps, steps...)
	sentTokens = append(sentTokens, blank)
	lastStep := T - 1
	if lastStep < 0 {
		lastStep = 0
	}
	sentSteps = append(sentSteps, lastStep)

	wordIdxs := b.words.toSlice()
	words := make([]string, 0, len(wordIdxs))
	for _, wi := range wordIdxs {
		words = append(words, d.lex.Word(wi))
	}

	return Hypothesis{
		Tokens:    sentTokens,
		Words:     words,
		Score:     b.score,
		Timesteps: sentSteps,
	}
}
