package cuedspeech

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ieee0824/cuedspeech-go/acoustic"
	"github.com/ieee0824/cuedspeech-go/config"
	"github.com/ieee0824/cuedspeech-go/feature"
	"github.com/ieee0824/cuedspeech-go/window"
)

const testTokens = `<BLANK>
<UNK>
<SOS>
<EOS>
<PAD>
_
a
b
o~
z^
u
r
`

const testLexicon = `bonjour b o~ z^ u r
ab a b
`

const testARPA = `\data\
ngram 1=5

\1-grams:
-1.0	<s>
-2.0	</s>
-1.2	bonjour
-1.5	ab
-3.5	<unk>

\end\
`

const testHomophones = `{"ipa": "bɔ̃ʒuʁ", "words": ["bonjour"]}
`

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTestModel(t *testing.T, dir string) string {
	t.Helper()
	mk := func(in, out int) acoustic.Layer {
		l := acoustic.Layer{
			W: make([]float64, in*out), B: make([]float64, out),
			InDim: in, OutDim: out,
		}
		for i := range l.W {
			l.W[i] = 0.01 * float64(i%5)
		}
		for i := range l.B {
			l.B[i] = 0.05 * float64(i)
		}
		return l
	}
	n := &acoustic.Network{
		Branches: [3]acoustic.Layer{
			mk(feature.LipsDim, 2),
			mk(feature.HandShapeDim, 2),
			mk(feature.HandPositionDim, 2),
		},
		Trunk: []acoustic.Layer{mk(6, 12)},
	}
	path := filepath.Join(dir, "model.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := n.Save(f); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ModelPath: writeTestModel(t, dir),
		Decoder: config.DecoderConfig{
			TokensPath:  writeTestFile(t, dir, "tokens.txt", testTokens),
			LexiconPath: writeTestFile(t, dir, "lexicon.txt", testLexicon),
			LMPath:      writeTestFile(t, dir, "lm.arpa", testARPA),
		},
		Corrector: config.CorrectorConfig{
			HomophonesPath: writeTestFile(t, dir, "homophones.jsonl", testHomophones),
			LMPath:         writeTestFile(t, dir, "french.arpa", testARPA),
		},
	}
}

// detectorFrame mimics one frame of detector output with face width 1.
func detectorFrame() *feature.LandmarkSet {
	set := &feature.LandmarkSet{
		Face: make([]feature.Landmark, 478),
		Hand: make([]feature.Landmark, 21),
	}
	set.Face[454] = feature.Landmark{X: 1}
	return set
}

func TestNewRecognizer(t *testing.T) {
	rec, err := NewRecognizer(testConfig(t))
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}
	if !rec.Model.IsLoaded() {
		t.Error("model not loaded")
	}
	if rec.Decoder.VocabSize() != 12 {
		t.Errorf("vocab size = %d, want 12", rec.Decoder.VocabSize())
	}
	if rec.Corrector == nil {
		t.Error("corrector not built despite homophones path")
	}
}

func TestNewRecognizerWithoutCorrector(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corrector = config.CorrectorConfig{}
	rec, err := NewRecognizer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Corrector != nil {
		t.Error("corrector built without homophones path")
	}
}

func TestStreamEndToEnd(t *testing.T) {
	rec, err := NewRecognizer(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	stream := rec.NewStream()

	var updates []window.Result
	const pushes = 130
	for i := 0; i < pushes; i++ {
		if res, ok := stream.PushLandmarks(detectorFrame()); ok {
			updates = append(updates, res)
		}
	}

	// The first two frames lack motion history, so the first window fills
	// at push 102 (100 valid frames) and the second at 125 valid frames.
	if len(updates) != 2 {
		t.Fatalf("window updates = %d, want 2", len(updates))
	}
	if updates[0].FrameNumber != window.Size {
		t.Errorf("first update frame number = %d, want %d", updates[0].FrameNumber, window.Size)
	}
	if updates[1].FrameNumber != window.Size+window.LeftContext {
		t.Errorf("second update frame number = %d, want %d",
			updates[1].FrameNumber, window.Size+window.LeftContext)
	}

	final := stream.Finalize()
	totalSeen, valid, dropped, _ := stream.Stats()
	if totalSeen != pushes {
		t.Errorf("total seen = %d, want %d", totalSeen, pushes)
	}
	if valid != pushes-2 {
		t.Errorf("valid = %d, want %d", valid, pushes-2)
	}
	if totalSeen != valid+dropped {
		t.Error("frame accounting does not balance")
	}
	if final.FrameNumber != valid {
		t.Errorf("final frame number = %d, want %d", final.FrameNumber, valid)
	}
}

func TestStreamsIndependent(t *testing.T) {
	rec, err := NewRecognizer(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	run := func() []window.Result {
		stream := rec.NewStream()
		var out []window.Result
		for i := 0; i < 130; i++ {
			if res, ok := stream.PushLandmarks(detectorFrame()); ok {
				out = append(out, res)
			}
		}
		out = append(out, stream.Finalize())
		return out
	}

	a := run()
	b := run()
	if !reflect.DeepEqual(a, b) {
		t.Error("identical streams produced different results")
	}
}

func TestDecoderConfigOverlay(t *testing.T) {
	lw := 2.5
	c := config.DecoderConfig{
		TokensPath: "t", LexiconPath: "l", LMPath: "lm",
		BeamSize: 7, LMWeight: &lw, SilToken: "SIL",
	}
	dc := decoderConfigFrom(c)
	if dc.BeamSize != 7 {
		t.Errorf("beam size = %d, want 7", dc.BeamSize)
	}
	if dc.LMWeight != 2.5 {
		t.Errorf("lm weight = %v, want 2.5", dc.LMWeight)
	}
	if dc.SilToken != "SIL" {
		t.Errorf("sil token = %q, want SIL", dc.SilToken)
	}
	// Untouched knobs keep their defaults.
	if dc.BeamThreshold != 50.0 {
		t.Errorf("beam threshold = %v, want 50", dc.BeamThreshold)
	}
	if !math.IsInf(dc.UnkScore, -1) {
		t.Errorf("unk score = %v, want -Inf", dc.UnkScore)
	}
	if dc.NBest != 1 {
		t.Errorf("nbest = %d, want 1", dc.NBest)
	}
}
