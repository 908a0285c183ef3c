package language

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Binary format: versioned gob of flat n-gram records, in the same spirit as
// the acoustic model serialization. Loading a binary model skips ARPA text
// parsing entirely.

type serializedLMV1 struct {
	Version  int // = 1
	Order    int
	Unigrams []lmRecord
	Bigrams  []lmRecord
	Trigrams []lmRecord
}

type lmRecord struct {
	W1, W2, W3 string
	LogProb    float64
	LogBackoff float64
}

// SaveBinary writes the model in gob binary form.
func (m *Model) SaveBinary(w io.Writer) error {
	sd := serializedLMV1{Version: 1, Order: m.Order}
	for k, e := range m.Unigrams {
		sd.Unigrams = append(sd.Unigrams, lmRecord{W1: k, LogProb: e.LogProb, LogBackoff: e.LogBackoff})
	}
	for k, e := range m.Bigrams {
		sd.Bigrams = append(sd.Bigrams, lmRecord{W1: k[0], W2: k[1], LogProb: e.LogProb, LogBackoff: e.LogBackoff})
	}
	for k, e := range m.Trigrams {
		sd.Trigrams = append(sd.Trigrams, lmRecord{W1: k[0], W2: k[1], W3: k[2], LogProb: e.LogProb, LogBackoff: e.LogBackoff})
	}
	return gob.NewEncoder(w).Encode(&sd)
}

// LoadBinary reads a gob binary model.
func LoadBinary(r io.Reader) (*Model, error) {
	var sd serializedLMV1
	if err := gob.NewDecoder(r).Decode(&sd); err != nil {
		return nil, fmt.Errorf("language: binary decode: %w", err)
	}
	if sd.Version != 1 {
		return nil, fmt.Errorf("language: unsupported binary version %d", sd.Version)
	}
	if sd.Order < 1 || sd.Order > 3 {
		return nil, fmt.Errorf("language: bad model order %d", sd.Order)
	}
	m := NewModel(sd.Order)
	for _, rec := range sd.Unigrams {
		m.Unigrams[rec.W1] = Entry{LogProb: rec.LogProb, LogBackoff: rec.LogBackoff}
	}
	for _, rec := range sd.Bigrams {
		m.Bigrams[[2]string{rec.W1, rec.W2}] = Entry{LogProb: rec.LogProb, LogBackoff: rec.LogBackoff}
	}
	for _, rec := range sd.Trigrams {
		m.Trigrams[[3]string{rec.W1, rec.W2, rec.W3}] = Entry{LogProb: rec.LogProb, LogBackoff: rec.LogBackoff}
	}
	return m, nil
}

// LoadFile reads a model from disk, sniffing the format: files whose leading
// chunk contains an ARPA \data\ marker parse as ARPA text, anything else as
// gob binary.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("language: open %q: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	head, _ := br.Peek(4096)
	var m *Model
	if bytes.Contains(head, []byte(`\data\`)) {
		m, err = LoadARPA(br)
	} else {
		m, err = LoadBinary(br)
	}
	if err != nil {
		return nil, fmt.Errorf("language: %q: %w", path, err)
	}
	return m, nil
}
