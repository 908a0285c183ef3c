// Package window implements overlap-save streaming inference: valid feature
// frames are buffered into fixed windows, each window runs through the
// acoustic model, and only a central slice of its output — scored with full
// bidirectional context — is committed. The accumulated committed logits are
// re-decoded after every commit, so the reported phoneme sequence refines
// monotonically as the stream advances.
package window

import (
	"context"
	"log/slog"
	"time"

	"github.com/ieee0824/cuedspeech-go/acoustic"
	"github.com/ieee0824/cuedspeech-go/decoder"
	"github.com/ieee0824/cuedspeech-go/feature"
	"github.com/ieee0824/cuedspeech-go/internal/observe"
)

// Windowing constants. Commit + LeftContext + RightContext = Size, so every
// committed row carries at least LeftContext frames of context on each side
// (except at the stream edges).
const (
	Size         = 100
	Commit       = 50
	LeftContext  = 25
	RightContext = 25
)

// Result is one recognition update, sorted by FrameNumber across a stream.
type Result struct {
	FrameNumber    int
	Phonemes       []string
	FrenchSentence string
	Confidence     float64
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor's logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics attaches metric instruments (default none).
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// Processor owns the streaming state of one recognition stream. It is
// single-owner: PushFrame, ProcessWindow and Finalize must be called in
// order from one logical caller. The decoder and model may be shared with
// other streams.
type Processor struct {
	decoder *decoder.CTCDecoder
	model   acoustic.SequenceModel
	logger  *slog.Logger
	metrics *observe.Metrics

	validFeatures []*feature.Frame
	allLogits     [][][]float64 // committed slices, each [Tc × V]

	chunkIdx           int
	nextWindowNeeded   int
	frameCount         int
	effectiveVocabSize int
	totalFramesSeen    int
	chunksProcessed    int
}

// NewProcessor creates a Processor over a shared decoder and model.
func NewProcessor(dec *decoder.CTCDecoder, model acoustic.SequenceModel, opts ...Option) *Processor {
	p := &Processor{
		decoder:          dec,
		model:            model,
		logger:           slog.Default(),
		nextWindowNeeded: Size,
	}
	if dec != nil {
		p.effectiveVocabSize = dec.VocabSize()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reset clears all state for a new stream.
func (p *Processor) Reset() {
	p.validFeatures = nil
	p.allLogits = nil
	p.chunkIdx = 0
	p.nextWindowNeeded = Size
	p.frameCount = 0
	p.totalFramesSeen = 0
	p.chunksProcessed = 0
	p.effectiveVocabSize = 0
	if p.decoder != nil {
		p.effectiveVocabSize = p.decoder.VocabSize()
	}
}

// PushFrame consumes one frame of features (nil or invalid frames are
// silently dropped) and reports whether enough valid frames are buffered
// for ProcessWindow.
func (p *Processor) PushFrame(f *feature.Frame) bool {
	p.totalFramesSeen++
	valid := f.Valid()
	p.metrics.RecordFrame(context.Background(), !valid)
	if !valid {
		return false
	}
	p.validFeatures = append(p.validFeatures, f)
	p.frameCount++
	return len(p.validFeatures) >= p.nextWindowNeeded
}

// ProcessWindow runs the next due window, commits its central slice and
// re-decodes the accumulated logits. Call it when PushFrame reports ready.
// Failures are isolated to the window: the chunk counter advances and an
// empty Result is returned.
func (p *Processor) ProcessWindow() Result {
	result := Result{FrameNumber: p.frameCount}

	if p.model == nil || !p.model.IsLoaded() {
		return result
	}
	numValid := len(p.validFeatures)
	if numValid < p.nextWindowNeeded {
		return result
	}

	var windowStart, windowEnd, commitStart, commitEnd int
	switch {
	case p.chunkIdx == 0:
		windowStart = 0
		windowEnd = min(Size-1, numValid-1)
		commitStart = 0
		commitEnd = min(Commit-1, numValid-1)
		p.nextWindowNeeded = LeftContext + Size
	case p.chunkIdx == 1:
		windowStart = LeftContext
		windowEnd = min(windowStart+Size-1, numValid-1)
		commitStart = Commit
		commitEnd = min(commitStart+LeftContext-1, numValid-1)
		p.nextWindowNeeded = Commit + Size
	default:
		windowStart = Commit * (p.chunkIdx - 1)
		windowEnd = min(windowStart+Size-1, numValid-1)
		commitStart = windowStart + LeftContext
		commitEnd = min(commitStart+Commit-1, numValid-1)
		p.nextWindowNeeded = Commit*p.chunkIdx + Size
	}

	p.logger.Debug("processing window",
		"valid_frames", numValid,
		"chunk", p.chunkIdx,
		"window_start", windowStart, "window_end", windowEnd,
		"commit_start", commitStart, "commit_end", commitEnd)

	committed, vocab := p.processSingleWindow(windowStart, windowEnd, commitStart, commitEnd)
	if len(committed) == 0 {
		p.chunkIdx++
		return result
	}
	p.noteVocabSize(vocab)
	if p.effectiveVocabSize <= 0 {
		p.chunkIdx++
		return result
	}

	p.allLogits = append(p.allLogits, committed)
	p.decodeAccumulated(&result)
	p.chunkIdx++
	return result
}

// processSingleWindow runs inference on [windowStart, windowEnd] (zero
// padded to Size) and slices the commit range out of the model output,
// clamped to the reported sequence length. Returns nil on any failure.
func (p *Processor) processSingleWindow(windowStart, windowEnd, commitStart, commitEnd int) ([][]float64, int) {
	if windowEnd < windowStart {
		return nil, 0
	}

	frames := p.validFeatures[windowStart : windowEnd+1]
	begin := time.Now()
	logits, err := p.model.Infer(frames, Size)
	if err != nil {
		p.logger.Warn("window inference failed; skipping window", "chunk", p.chunkIdx, "err", err)
		return nil, 0
	}
	p.metrics.RecordWindow(context.Background(), time.Since(begin))

	seqLen := len(logits)
	vocab := p.model.VocabSize()
	if seqLen == 0 || vocab <= 0 {
		return nil, 0
	}

	startRel := commitStart - windowStart
	endRel := commitEnd - windowStart
	if startRel < 0 {
		startRel = 0
	}
	if endRel > seqLen-1 {
		endRel = seqLen - 1
	}
	if startRel > endRel {
		return nil, 0
	}
	return logits[startRel : endRel+1], vocab
}

// noteVocabSize records the model-reported vocabulary width. A change
// between windows indicates a broken model; the newest value wins and
// decoding continues.
func (p *Processor) noteVocabSize(vocab int) {
	if vocab <= 0 {
		return
	}
	if p.effectiveVocabSize > 0 && p.effectiveVocabSize != vocab {
		p.logger.Warn("model vocabulary size changed between windows",
			"was", p.effectiveVocabSize, "now", vocab)
	}
	p.effectiveVocabSize = vocab
}

// decodeAccumulated concatenates every committed slice and re-runs the beam
// search, filling result on success.
func (p *Processor) decodeAccumulated(result *Result) {
	total := 0
	for _, slice := range p.allLogits {
		total += len(slice)
	}
	if total == 0 || p.decoder == nil {
		return
	}

	full := make([][]float64, 0, total)
	for _, slice := range p.allLogits {
		full = append(full, slice...)
	}

	begin := time.Now()
	hyps := p.decoder.Decode(full)
	p.metrics.RecordDecode(context.Background(), time.Since(begin))

	if len(hyps) == 0 {
		return
	}
	result.Phonemes = p.decoder.IdxsToTokens(hyps[0].Tokens)
	result.Confidence = hyps[0].Score
	p.chunksProcessed++

	p.logger.Debug("decoded accumulated logits",
		"rows", total, "chunk", p.chunkIdx, "phonemes", len(result.Phonemes))
}

// Finalize commits the tail of the stream that no regular window has
// emitted yet and decodes one last time. Returns an empty Result when
// everything was already committed or the tail is too short to score.
func (p *Processor) Finalize() Result {
	result := Result{FrameNumber: p.frameCount}

	if p.model == nil || !p.model.IsLoaded() {
		return result
	}
	numValid := len(p.validFeatures)
	if numValid == 0 {
		return result
	}

	var framesCommitted int
	switch {
	case p.chunkIdx == 0:
		framesCommitted = 0
	case p.chunkIdx == 1:
		framesCommitted = Commit
	default:
		framesCommitted = Commit + LeftContext + (p.chunkIdx-2)*Commit
	}
	if framesCommitted >= numValid {
		return result
	}

	windowEnd := numValid - 1
	var windowStart, commitStart int
	switch {
	case p.chunkIdx == 0:
		windowStart = 0
		commitStart = 0
		if numValid < Size {
			// The final window is mostly zero padding here; models trained
			// without end-of-stream padding may score the tail poorly.
			p.logger.Warn("finalizing short stream with zero-padded window",
				"valid_frames", numValid, "window_size", Size)
		}
	case p.chunkIdx == 1:
		windowStart = LeftContext
		commitStart = Commit
	default:
		windowStart = Commit * (p.chunkIdx - 1)
		commitStart = windowStart + LeftContext
	}
	if windowEnd-windowStart+1 < LeftContext {
		return result
	}

	committed, vocab := p.processSingleWindow(windowStart, windowEnd, commitStart, windowEnd)
	if len(committed) == 0 {
		return result
	}
	p.noteVocabSize(vocab)
	if p.effectiveVocabSize <= 0 {
		return result
	}

	p.allLogits = append(p.allLogits, committed)
	p.decodeAccumulated(&result)
	return result
}

// ValidFrameCount returns the number of valid frames consumed.
func (p *Processor) ValidFrameCount() int { return len(p.validFeatures) }

// TotalFramesSeen returns the number of frames pushed, valid or not.
func (p *Processor) TotalFramesSeen() int { return p.totalFramesSeen }

// DroppedFrameCount returns the number of invalid frames dropped.
func (p *Processor) DroppedFrameCount() int { return p.totalFramesSeen - len(p.validFeatures) }

// ChunksProcessed returns the number of commits that produced a decode.
func (p *Processor) ChunksProcessed() int { return p.chunksProcessed }

// Accumulated returns a copy of the committed logit matrix, one row per
// committed time step.
func (p *Processor) Accumulated() [][]float64 {
	out := make([][]float64, 0, p.CommittedRows())
	for _, slice := range p.allLogits {
		for _, row := range slice {
			cp := make([]float64, len(row))
			copy(cp, row)
			out = append(out, cp)
		}
	}
	return out
}

// CommittedRows returns the number of logit rows committed so far.
func (p *Processor) CommittedRows() int {
	total := 0
	for _, slice := range p.allLogits {
		total += len(slice)
	}
	return total
}
