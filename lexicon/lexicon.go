package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one accepted pronunciation: the word's index and its spelling as
// alphabet token indices.
type Entry struct {
	Word     int
	Spelling []int
}

// Lexicon maps words to their accepted spellings. Word indices follow first
// encounter order in the source file. Read-only after construction.
type Lexicon struct {
	words     []string
	wordIndex map[string]int
	entries   []Entry
}

// LoadFile reads a lexicon file from disk. See Load.
func LoadFile(path string, alphabet *Alphabet) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: open %q: %w", path, err)
	}
	defer f.Close()
	lex, err := Load(f, alphabet)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %q: %w", path, err)
	}
	return lex, nil
}

// Load parses a lexicon: each line is a word followed by whitespace-separated
// spelling tokens. A spelling containing a token unknown to the alphabet is
// rejected; a word whose spellings are all rejected is dropped entirely.
// A word may appear on several lines, once per alternative spelling.
func Load(r io.Reader, alphabet *Alphabet) (*Lexicon, error) {
	lex := &Lexicon{wordIndex: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: word %q has no spelling", lineNum, fields[0])
		}

		word := fields[0]
		spelling := make([]int, 0, len(fields)-1)
		ok := true
		for _, tok := range fields[1:] {
			idx := alphabet.Index(tok)
			if idx < 0 {
				ok = false
				break
			}
			spelling = append(spelling, idx)
		}
		if !ok {
			continue // reject this spelling, keep the word if another line accepts
		}

		wi, exists := lex.wordIndex[word]
		if !exists {
			wi = len(lex.words)
			lex.wordIndex[word] = wi
			lex.words = append(lex.words, word)
		}
		lex.entries = append(lex.entries, Entry{Word: wi, Spelling: spelling})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lex, nil
}

// Size returns the number of indexed words.
func (l *Lexicon) Size() int { return len(l.words) }

// Word returns the word at idx, or "" when out of range.
func (l *Lexicon) Word(idx int) string {
	if idx < 0 || idx >= len(l.words) {
		return ""
	}
	return l.words[idx]
}

// Index returns the index of word, or -1 when absent.
func (l *Lexicon) Index(word string) int {
	if i, ok := l.wordIndex[word]; ok {
		return i
	}
	return -1
}

// Words returns the indexed words in first-encounter order.
func (l *Lexicon) Words() []string { return l.words }

// Entries returns all accepted pronunciations.
func (l *Lexicon) Entries() []Entry { return l.entries }
