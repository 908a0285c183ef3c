package lexicon

import (
	"reflect"
	"strings"
	"testing"
)

func TestLoadAlphabetInjectsSpecials(t *testing.T) {
	a, err := LoadAlphabet(strings.NewReader("<BLANK>\n_\na\nb\n"))
	if err != nil {
		t.Fatalf("LoadAlphabet: %v", err)
	}
	want := []string{"<BLANK>", "<UNK>", "<SOS>", "<EOS>", "<PAD>", "_", "a", "b"}
	if !reflect.DeepEqual(a.Tokens(), want) {
		t.Errorf("tokens = %v, want %v", a.Tokens(), want)
	}
	if a.Index("<BLANK>") != 0 {
		t.Errorf("blank index = %d, want 0", a.Index("<BLANK>"))
	}
}

func TestLoadAlphabetMovesBlankToFront(t *testing.T) {
	a, err := LoadAlphabet(strings.NewReader("a\n<BLANK>\nb\n"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Token(0) != "<BLANK>" {
		t.Errorf("token 0 = %q, want <BLANK>", a.Token(0))
	}
	// No duplicate blank.
	count := 0
	for _, tok := range a.Tokens() {
		if tok == "<BLANK>" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("<BLANK> occurs %d times, want 1", count)
	}
}

func TestLoadAlphabetFieldSeparators(t *testing.T) {
	a, err := LoadAlphabet(strings.NewReader("a,freq=12\nb;x\nc\tcomment\nd\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	for _, tok := range []string{"a", "b", "c", "d"} {
		if a.Index(tok) < 0 {
			t.Errorf("token %q missing", tok)
		}
	}
	if a.Index("freq=12") >= 0 || a.Index("x") >= 0 {
		t.Error("separator suffix leaked into alphabet")
	}
}

func TestLoadAlphabetSkipsEmptyAndDuplicates(t *testing.T) {
	a, err := LoadAlphabet(strings.NewReader("a\n\n  \na\nb\n"))
	if err != nil {
		t.Fatal(err)
	}
	// 5 specials + a + b
	if a.Size() != 7 {
		t.Errorf("size = %d, want 7", a.Size())
	}
}

func TestLoadAlphabetEmpty(t *testing.T) {
	a, err := LoadAlphabet(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if a.Token(0) != "<BLANK>" {
		t.Errorf("token 0 = %q, want <BLANK>", a.Token(0))
	}
}

func TestAlphabetLookups(t *testing.T) {
	a, err := NewAlphabet([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Index("nope"); got != -1 {
		t.Errorf("Index(nope) = %d, want -1", got)
	}
	if got := a.Token(999); got != "" {
		t.Errorf("Token(999) = %q, want empty", got)
	}
	idx := a.Index("b")
	if a.Token(idx) != "b" {
		t.Errorf("round trip lookup failed for b")
	}
}
