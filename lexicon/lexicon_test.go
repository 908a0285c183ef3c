package lexicon

import (
	"reflect"
	"strings"
	"testing"
)

func testAlphabet(t *testing.T) *Alphabet {
	t.Helper()
	a, err := NewAlphabet([]string{"_", "a", "b", "o~", "z^", "u", "r"})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestLoadLexicon(t *testing.T) {
	a := testAlphabet(t)
	lex, err := Load(strings.NewReader("bonjour b o~ z^ u r\nab a b\n"), a)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lex.Size() != 2 {
		t.Fatalf("size = %d, want 2", lex.Size())
	}
	if lex.Index("bonjour") != 0 || lex.Index("ab") != 1 {
		t.Errorf("word order not preserved: %v", lex.Words())
	}

	entries := lex.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	wantSpelling := []int{a.Index("b"), a.Index("o~"), a.Index("z^"), a.Index("u"), a.Index("r")}
	if !reflect.DeepEqual(entries[0].Spelling, wantSpelling) {
		t.Errorf("spelling = %v, want %v", entries[0].Spelling, wantSpelling)
	}
}

func TestLoadLexiconRejectsUnknownToken(t *testing.T) {
	a := testAlphabet(t)
	// First spelling has an unknown token, second is accepted: the word
	// stays indexed through the surviving spelling.
	lex, err := Load(strings.NewReader("ab a QQ\nab a b\nzz QQ\n"), a)
	if err != nil {
		t.Fatal(err)
	}
	if lex.Index("ab") < 0 {
		t.Error("word with one accepted spelling was dropped")
	}
	if lex.Index("zz") >= 0 {
		t.Error("word with no accepted spelling was indexed")
	}
	if len(lex.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(lex.Entries()))
	}
}

func TestLoadLexiconTabSeparated(t *testing.T) {
	a := testAlphabet(t)
	lex, err := Load(strings.NewReader("ab\ta b\n"), a)
	if err != nil {
		t.Fatal(err)
	}
	if lex.Index("ab") != 0 {
		t.Error("tab-separated line not parsed")
	}
}

func TestLoadLexiconBareWord(t *testing.T) {
	a := testAlphabet(t)
	if _, err := Load(strings.NewReader("lonely\n"), a); err == nil {
		t.Error("word without spelling should be an error")
	}
}

func TestLexiconLookups(t *testing.T) {
	a := testAlphabet(t)
	lex, err := Load(strings.NewReader("ab a b\n"), a)
	if err != nil {
		t.Fatal(err)
	}
	if got := lex.Word(0); got != "ab" {
		t.Errorf("Word(0) = %q, want ab", got)
	}
	if got := lex.Word(5); got != "" {
		t.Errorf("Word(5) = %q, want empty", got)
	}
	if got := lex.Index("missing"); got != -1 {
		t.Errorf("Index(missing) = %d, want -1", got)
	}
}
