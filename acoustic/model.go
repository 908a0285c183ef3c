// Package acoustic loads and runs the sequence model that maps windows of
// geometric feature frames to per-frame phoneme logits.
package acoustic

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/ieee0824/cuedspeech-go/feature"
)

// Error kinds reported by model loading and inference.
var (
	// ErrModelLoad indicates the model file cannot be parsed or does not
	// have the required three-input structure.
	ErrModelLoad = errors.New("acoustic: model load failed")

	// ErrShapeMismatch indicates tensor ranks or sizes differ from the
	// model contract.
	ErrShapeMismatch = errors.New("acoustic: model shape mismatch")

	// ErrInference indicates a runtime failure inside the model.
	ErrInference = errors.New("acoustic: inference failed")
)

// SequenceModel is the acoustic model boundary. Given a window of feature
// frames it produces a [T' × V] logit matrix, where V is the vocabulary size
// and T' the output sequence length, both observable after the first Infer.
//
// Implementations must serialize Infer internally; callers may share one
// instance across streams and will observe queueing.
type SequenceModel interface {
	Load(path string) error
	Infer(frames []*feature.Frame, window int) ([][]float64, error)
	VocabSize() int
	LastSequenceLength() int
	IsLoaded() bool
}

// Layer holds weights and biases for a single fully-connected layer.
// W is [OutDim × InDim] row-major, B is [OutDim].
type Layer struct {
	W      []float64
	B      []float64
	InDim  int
	OutDim int
}

// forward computes dst = relu(W·src + B) when relu is set, else the affine
// output. dst must have length OutDim.
func (l *Layer) forward(src, dst []float64, relu bool) {
	for o := 0; o < l.OutDim; o++ {
		sum := l.B[o]
		row := l.W[o*l.InDim : (o+1)*l.InDim]
		for i, w := range row {
			sum += w * src[i]
		}
		if relu && sum < 0 {
			sum = 0
		}
		dst[o] = sum
	}
}

// Network is a gob-serialized sequence model. Each of the three feature
// streams (lips, hand shape, hand position) passes through its own input
// branch; branch outputs are concatenated, stacked over a symmetric context
// window with edge replication, and fed through the trunk layers. The final
// trunk layer emits raw logits over the token vocabulary, one row per input
// frame (T' = T).
//
// Infer holds an internal mutex: the scratch buffers are reused across
// calls, so one inference runs at a time per Network.
type Network struct {
	mu sync.Mutex

	// Branch order: lips, hand shape, hand position.
	Branches   [3]Layer
	Trunk      []Layer
	ContextLen int

	vocabSize  int
	lastSeqLen int
	loaded     bool
}

// Branch input dimensions, in serialization order.
var branchDims = [3]int{feature.LipsDim, feature.HandShapeDim, feature.HandPositionDim}

// NewNetwork returns an empty, unloaded Network.
func NewNetwork() *Network {
	return &Network{}
}

// serialized gob format, versioned so older model files stay loadable if
// the layout ever changes.
type serializedNetV1 struct {
	Version    int // = 1
	ContextLen int
	Branches   []serializedLayer // exactly 3: lips, hand shape, hand position
	Trunk      []serializedLayer
}

type serializedLayer struct {
	W      []float64
	B      []float64
	InDim  int
	OutDim int
}

// Load reads a serialized network from path. The file must describe exactly
// three input branches matching the lips/hand-shape/hand-position feature
// dimensions; anything else fails with ErrModelLoad or ErrShapeMismatch.
func (n *Network) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrModelLoad, path, err)
	}
	defer f.Close()
	return n.load(f)
}

func (n *Network) load(r io.Reader) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var sd serializedNetV1
	if err := gob.NewDecoder(r).Decode(&sd); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrModelLoad, err)
	}
	if sd.Version != 1 {
		return fmt.Errorf("%w: unsupported version %d", ErrModelLoad, sd.Version)
	}
	if len(sd.Branches) != 3 {
		return fmt.Errorf("%w: model must have exactly 3 input branches (lips, hand_shape, hand_position), got %d",
			ErrModelLoad, len(sd.Branches))
	}
	if len(sd.Trunk) == 0 {
		return fmt.Errorf("%w: model has no trunk layers", ErrModelLoad)
	}

	var branches [3]Layer
	branchOut := 0
	for i, sl := range sd.Branches {
		if sl.InDim != branchDims[i] {
			return fmt.Errorf("%w: branch %d input dim %d, want %d", ErrShapeMismatch, i, sl.InDim, branchDims[i])
		}
		if err := checkLayer(sl); err != nil {
			return fmt.Errorf("%w: branch %d: %v", ErrShapeMismatch, i, err)
		}
		branches[i] = Layer(sl)
		branchOut += sl.OutDim
	}

	ctx := sd.ContextLen
	if ctx < 0 {
		return fmt.Errorf("%w: negative context length %d", ErrShapeMismatch, ctx)
	}
	wantIn := (2*ctx + 1) * branchOut
	trunk := make([]Layer, len(sd.Trunk))
	prev := wantIn
	for i, sl := range sd.Trunk {
		if sl.InDim != prev {
			return fmt.Errorf("%w: trunk layer %d input dim %d, want %d", ErrShapeMismatch, i, sl.InDim, prev)
		}
		if err := checkLayer(sl); err != nil {
			return fmt.Errorf("%w: trunk layer %d: %v", ErrShapeMismatch, i, err)
		}
		trunk[i] = Layer(sl)
		prev = sl.OutDim
	}

	n.Branches = branches
	n.Trunk = trunk
	n.ContextLen = ctx
	n.vocabSize = 0
	n.lastSeqLen = 0
	n.loaded = true
	return nil
}

func checkLayer(sl serializedLayer) error {
	if sl.InDim <= 0 || sl.OutDim <= 0 {
		return fmt.Errorf("non-positive dims [%d × %d]", sl.OutDim, sl.InDim)
	}
	if len(sl.W) != sl.InDim*sl.OutDim {
		return fmt.Errorf("weight length %d, want %d", len(sl.W), sl.InDim*sl.OutDim)
	}
	if len(sl.B) != sl.OutDim {
		return fmt.Errorf("bias length %d, want %d", len(sl.B), sl.OutDim)
	}
	return nil
}

// Infer runs the network over frames padded or truncated to exactly window
// entries (missing frames become zero frames) and returns the [T' × V] logit
// matrix. The vocabulary size and output length are recorded and readable
// through VocabSize and LastSequenceLength afterwards.
func (n *Network) Infer(frames []*feature.Frame, window int) ([][]float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded {
		return nil, fmt.Errorf("%w: model not loaded", ErrInference)
	}
	seqLen := window
	if seqLen <= 0 {
		seqLen = len(frames)
	}
	if seqLen <= 0 {
		return nil, fmt.Errorf("%w: empty input window", ErrInference)
	}

	branchOut := 0
	for _, b := range n.Branches {
		branchOut += b.OutDim
	}

	// Per-frame branch forward.
	zero := feature.ZeroFrame()
	encoded := make([][]float64, seqLen)
	for t := 0; t < seqLen; t++ {
		fr := zero
		if t < len(frames) && frames[t] != nil {
			fr = frames[t]
		}
		row := make([]float64, branchOut)
		off := 0
		for bi, input := range [3][]float64{fr.Lips, fr.HandShape, fr.HandPosition} {
			b := &n.Branches[bi]
			if len(input) != b.InDim {
				return nil, fmt.Errorf("%w: stream %d has %d values, model wants %d",
					ErrShapeMismatch, bi, len(input), b.InDim)
			}
			b.forward(input, row[off:off+b.OutDim], true)
			off += b.OutDim
		}
		encoded[t] = row
	}

	// Trunk forward over context-stacked frames, edge replicated.
	winSize := 2*n.ContextLen + 1
	stacked := make([]float64, winSize*branchOut)
	vocab := n.Trunk[len(n.Trunk)-1].OutDim
	out := make([][]float64, seqLen)
	var scratchA, scratchB []float64
	for t := 0; t < seqLen; t++ {
		for w := 0; w < winSize; w++ {
			src := t - n.ContextLen + w
			if src < 0 {
				src = 0
			} else if src >= seqLen {
				src = seqLen - 1
			}
			copy(stacked[w*branchOut:(w+1)*branchOut], encoded[src])
		}
		cur := stacked
		for li := range n.Trunk {
			l := &n.Trunk[li]
			dst := scratchA
			if cap(dst) < l.OutDim {
				dst = make([]float64, l.OutDim)
			}
			dst = dst[:l.OutDim]
			l.forward(cur, dst, li < len(n.Trunk)-1)
			scratchA, scratchB = scratchB, dst
			cur = dst
		}
		row := make([]float64, vocab)
		copy(row, cur)
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite logit at frame %d", ErrInference, t)
			}
		}
		out[t] = row
	}

	n.lastSeqLen = seqLen
	n.vocabSize = vocab
	return out, nil
}

// VocabSize reports the vocabulary size observed on the most recent Infer
// (0 before the first call).
func (n *Network) VocabSize() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vocabSize
}

// LastSequenceLength reports the output length of the most recent Infer.
func (n *Network) LastSequenceLength() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastSeqLen
}

// IsLoaded reports whether a model has been loaded.
func (n *Network) IsLoaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loaded
}

// Save serializes the network so tools and tests can produce model files.
func (n *Network) Save(w io.Writer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	sd := serializedNetV1{Version: 1, ContextLen: n.ContextLen}
	for _, b := range n.Branches {
		sd.Branches = append(sd.Branches, serializedLayer(b))
	}
	for _, l := range n.Trunk {
		sd.Trunk = append(sd.Trunk, serializedLayer(l))
	}
	return gob.NewEncoder(w).Encode(&sd)
}
