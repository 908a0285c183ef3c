// Package cuedspeech recognizes French Cued Speech from streams of per-frame
// face/hand landmarks. A Recognizer bundles the long-lived resources
// (acoustic model, CTC decoder, sentence corrector); each video stream gets
// its own Stream holding the feature extractor and overlap-save window
// processor.
package cuedspeech

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/ieee0824/cuedspeech-go/acoustic"
	"github.com/ieee0824/cuedspeech-go/config"
	"github.com/ieee0824/cuedspeech-go/corrector"
	"github.com/ieee0824/cuedspeech-go/decoder"
	"github.com/ieee0824/cuedspeech-go/feature"
	"github.com/ieee0824/cuedspeech-go/internal/observe"
	"github.com/ieee0824/cuedspeech-go/window"
)

// Recognizer is the top-level cued speech recognizer. Safe to share across
// streams: the decoder and corrector are read-only after construction and
// the model serializes its own inference calls.
type Recognizer struct {
	Model     acoustic.SequenceModel
	Decoder   *decoder.CTCDecoder
	Corrector *corrector.Corrector // nil disables sentence correction

	logger  *slog.Logger
	metrics *observe.Metrics
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLogger sets the logger used by all components (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(r *Recognizer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMeterProvider enables OpenTelemetry metrics on the given provider;
// pass nil for the global provider. Without this option no instruments are
// created.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recognizer) {
		m, err := observe.New(provider)
		if err != nil {
			r.logger.Warn("metrics disabled: instrument creation failed", "err", err)
			return
		}
		r.metrics = m
	}
}

// NewRecognizer loads all resources named by cfg.
func NewRecognizer(cfg *config.Config, opts ...Option) (*Recognizer, error) {
	r := &Recognizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	model := acoustic.NewNetwork()
	if err := model.Load(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("cuedspeech: %w", err)
	}
	r.Model = model

	dec := decoder.New(decoderConfigFrom(cfg.Decoder), r.logger)
	if err := dec.Initialize(); err != nil {
		return nil, fmt.Errorf("cuedspeech: %w", err)
	}
	r.Decoder = dec

	if cfg.Corrector.HomophonesPath != "" {
		var corrOpts []corrector.Option
		corrOpts = append(corrOpts, corrector.WithLogger(r.logger))
		if cfg.Corrector.BeamWidth > 0 {
			corrOpts = append(corrOpts, corrector.WithBeamWidth(cfg.Corrector.BeamWidth))
		}
		if cfg.Corrector.FuzzyThreshold > 0 {
			corrOpts = append(corrOpts, corrector.WithFuzzyLookup(cfg.Corrector.FuzzyThreshold))
		}
		corr := corrector.New(cfg.Corrector.HomophonesPath, cfg.Corrector.LMPath, corrOpts...)
		if err := corr.Initialize(); err != nil {
			return nil, fmt.Errorf("cuedspeech: %w", err)
		}
		r.Corrector = corr
	}

	return r, nil
}

// NewRecognizerFromComponents wires pre-built components, for callers that
// load models themselves. corr may be nil.
func NewRecognizerFromComponents(model acoustic.SequenceModel, dec *decoder.CTCDecoder, corr *corrector.Corrector, opts ...Option) *Recognizer {
	r := &Recognizer{
		Model:     model,
		Decoder:   dec,
		Corrector: corr,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// decoderConfigFrom overlays non-zero YAML values on the decoder defaults.
func decoderConfigFrom(c config.DecoderConfig) decoder.Config {
	dc := decoder.DefaultConfig()
	dc.LexiconPath = c.LexiconPath
	dc.TokensPath = c.TokensPath
	dc.LMPath = c.LMPath
	dc.LMDictPath = c.LMDictPath
	if c.NBest > 0 {
		dc.NBest = c.NBest
	}
	if c.BeamSize > 0 {
		dc.BeamSize = c.BeamSize
	}
	if c.BeamSizeToken != 0 {
		dc.BeamSizeToken = c.BeamSizeToken
	}
	if c.BeamThreshold != nil {
		dc.BeamThreshold = *c.BeamThreshold
	}
	if c.LMWeight != nil {
		dc.LMWeight = *c.LMWeight
	}
	if c.WordScore != nil {
		dc.WordScore = *c.WordScore
	}
	if c.UnkScore != nil {
		dc.UnkScore = *c.UnkScore
	}
	if c.SilScore != nil {
		dc.SilScore = *c.SilScore
	}
	dc.LogAdd = c.LogAdd
	if c.BlankToken != "" {
		dc.BlankToken = c.BlankToken
	}
	if c.SilToken != "" {
		dc.SilToken = c.SilToken
	}
	if c.UnkWord != "" {
		dc.UnkWord = c.UnkWord
	}
	return dc
}

// Stream is the per-video recognition state. Single-owner: push frames in
// order from one goroutine.
type Stream struct {
	recognizer *Recognizer
	extractor  *feature.Extractor
	processor  *window.Processor
}

// NewStream creates an independent stream over the recognizer's shared
// resources.
func (r *Recognizer) NewStream() *Stream {
	return &Stream{
		recognizer: r,
		extractor:  feature.NewExtractor(),
		processor: window.NewProcessor(r.Decoder, r.Model,
			window.WithLogger(r.logger),
			window.WithMetrics(r.metrics)),
	}
}

// PushLandmarks feeds one frame of detector output (nil when the detector
// produced nothing). When enough frames are buffered, a window is processed
// and the updated recognition result is returned with ok = true.
func (s *Stream) PushLandmarks(set *feature.LandmarkSet) (window.Result, bool) {
	return s.PushFeatures(s.extractor.Push(set))
}

// PushFeatures feeds one pre-extracted feature frame (nil or invalid frames
// count as dropped).
func (s *Stream) PushFeatures(f *feature.Frame) (window.Result, bool) {
	if !s.processor.PushFrame(f) {
		return window.Result{}, false
	}
	res := s.processor.ProcessWindow()
	s.applyCorrection(&res)
	return res, true
}

// Finalize flushes the stream tail and returns the last result. The stream
// remains usable only after Reset.
func (s *Stream) Finalize() window.Result {
	res := s.processor.Finalize()
	s.applyCorrection(&res)
	return res
}

// Reset clears all per-stream state.
func (s *Stream) Reset() {
	s.extractor.Reset()
	s.processor.Reset()
}

// Stats reports the stream's frame counters.
func (s *Stream) Stats() (totalSeen, valid, dropped, chunks int) {
	return s.processor.TotalFramesSeen(),
		s.processor.ValidFrameCount(),
		s.processor.DroppedFrameCount(),
		s.processor.ChunksProcessed()
}

func (s *Stream) applyCorrection(res *window.Result) {
	if s.recognizer.Corrector == nil || len(res.Phonemes) == 0 {
		return
	}
	res.FrenchSentence = s.recognizer.Corrector.Correct(res.Phonemes)
}
