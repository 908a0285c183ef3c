package config

import (
	"strings"
	"testing"
)

const validYAML = `model_path: models/sequence.bin
decoder:
  tokens_path: resources/tokens.txt
  lexicon_path: resources/lexicon.txt
  lm_path: resources/phoneme.arpa
  beam_size: 60
  lm_weight: 2.5
corrector:
  homophones_path: resources/homophones.jsonl
  lm_path: resources/french.arpa
  beam_width: 10
log_level: debug
`

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.ModelPath != "models/sequence.bin" {
		t.Errorf("model_path = %q", cfg.ModelPath)
	}
	if cfg.Decoder.BeamSize != 60 {
		t.Errorf("beam_size = %d, want 60", cfg.Decoder.BeamSize)
	}
	if cfg.Decoder.LMWeight == nil || *cfg.Decoder.LMWeight != 2.5 {
		t.Errorf("lm_weight = %v, want 2.5", cfg.Decoder.LMWeight)
	}
	// Unset knobs stay nil so defaults apply downstream.
	if cfg.Decoder.BeamThreshold != nil {
		t.Error("beam_threshold should be nil when unset")
	}
	if cfg.Corrector.BeamWidth != 10 {
		t.Errorf("corrector beam_width = %d, want 10", cfg.Corrector.BeamWidth)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	yaml := validYAML + "bogus_field: 1\n"
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("unknown field should be rejected")
	}
}

func TestValidateRequiredPaths(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("log_level: info\n"))
	if err == nil {
		t.Fatal("empty config should fail validation")
	}
	for _, want := range []string{"model_path", "tokens_path", "lexicon_path", "lm_path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestValidateCorrectorLM(t *testing.T) {
	yaml := `model_path: m
decoder:
  tokens_path: t
  lexicon_path: l
  lm_path: lm
corrector:
  homophones_path: h
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("corrector without lm_path should fail validation")
	}
}

func TestValidateLogLevel(t *testing.T) {
	yaml := `model_path: m
decoder:
  tokens_path: t
  lexicon_path: l
  lm_path: lm
log_level: loud
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("invalid log_level should fail validation")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Error("missing config file should fail")
	}
}
