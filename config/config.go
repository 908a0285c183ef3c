// Package config loads the recognizer's YAML pipeline configuration: model
// and resource paths plus decoding and correction knobs.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	// Acoustic sequence model file.
	ModelPath string `yaml:"model_path"`

	Decoder   DecoderConfig   `yaml:"decoder"`
	Corrector CorrectorConfig `yaml:"corrector"`

	// LogLevel controls slog verbosity: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// DecoderConfig mirrors the CTC decoder knobs. Zero values fall back to the
// decoder package defaults.
type DecoderConfig struct {
	LexiconPath string `yaml:"lexicon_path"`
	TokensPath  string `yaml:"tokens_path"`
	LMPath      string `yaml:"lm_path"`
	LMDictPath  string `yaml:"lm_dict_path"`

	NBest         int      `yaml:"nbest"`
	BeamSize      int      `yaml:"beam_size"`
	BeamSizeToken int      `yaml:"beam_size_token"`
	BeamThreshold *float64 `yaml:"beam_threshold"`
	LMWeight      *float64 `yaml:"lm_weight"`
	WordScore     *float64 `yaml:"word_score"`
	UnkScore      *float64 `yaml:"unk_score"`
	SilScore      *float64 `yaml:"sil_score"`
	LogAdd        bool     `yaml:"log_add"`

	BlankToken string `yaml:"blank_token"`
	SilToken   string `yaml:"sil_token"`
	UnkWord    string `yaml:"unk_word"`
}

// CorrectorConfig configures homophone disambiguation. Correction is
// skipped entirely when HomophonesPath is empty.
type CorrectorConfig struct {
	HomophonesPath string  `yaml:"homophones_path"`
	LMPath         string  `yaml:"lm_path"`
	BeamWidth      int     `yaml:"beam_width"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown fields are rejected so typos fail loudly.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg names every required resource. All failures are
// reported at once as a joined error.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.ModelPath == "" {
		errs = append(errs, errors.New("model_path is required"))
	}
	if cfg.Decoder.TokensPath == "" {
		errs = append(errs, errors.New("decoder.tokens_path is required"))
	}
	if cfg.Decoder.LexiconPath == "" {
		errs = append(errs, errors.New("decoder.lexicon_path is required"))
	}
	if cfg.Decoder.LMPath == "" {
		errs = append(errs, errors.New("decoder.lm_path is required"))
	}
	if cfg.Corrector.HomophonesPath != "" && cfg.Corrector.LMPath == "" {
		errs = append(errs, errors.New("corrector.lm_path is required when corrector.homophones_path is set"))
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}
