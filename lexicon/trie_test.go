package lexicon

import (
	"math"
	"testing"
)

func TestTrieSinglePath(t *testing.T) {
	// "bonjour" as token ids, unigram score -8.0.
	spelling := []int{6, 9, 10, 11, 12}
	trie := NewTrie()
	trie.Insert(spelling, 0, -8.0)

	// Root plus one node per token.
	if got := trie.NumNodes(); got != len(spelling)+1 {
		t.Fatalf("nodes = %d, want %d", got, len(spelling)+1)
	}

	node := trie.Root()
	for _, tok := range spelling {
		node = trie.Child(node, tok)
		if node < 0 {
			t.Fatalf("path broken at token %d", tok)
		}
	}
	labels := trie.Labels(node)
	if len(labels) != 1 || labels[0].Word != 0 || labels[0].Score != -8.0 {
		t.Fatalf("leaf labels = %v, want [{0 -8}]", labels)
	}

	// Internal nodes accept nothing.
	if inner := trie.Child(trie.Root(), spelling[0]); len(trie.Labels(inner)) != 0 {
		t.Error("internal node carries labels")
	}
}

func TestTrieSmearMax(t *testing.T) {
	spelling := []int{6, 9, 10, 11, 12}
	trie := NewTrie()
	trie.Insert(spelling, 0, -8.0)
	trie.Smear()

	node := trie.Root()
	if trie.MaxScore(node) != -8.0 {
		t.Errorf("root smear = %v, want -8", trie.MaxScore(node))
	}
	for _, tok := range spelling {
		node = trie.Child(node, tok)
		if got := trie.MaxScore(node); got != -8.0 {
			t.Errorf("smear along path = %v, want -8", got)
		}
	}
}

func TestTrieSmearPicksMaximum(t *testing.T) {
	trie := NewTrie()
	trie.Insert([]int{1, 2}, 0, -8.0)
	trie.Insert([]int{1, 3}, 1, -2.0)
	trie.Smear()

	shared := trie.Child(trie.Root(), 1)
	if got := trie.MaxScore(shared); got != -2.0 {
		t.Errorf("shared prefix smear = %v, want -2 (the max)", got)
	}
	leaf8 := trie.Child(shared, 2)
	if got := trie.MaxScore(leaf8); got != -8.0 {
		t.Errorf("leaf smear = %v, want -8", got)
	}
}

func TestTrieSharedNodeAccumulatesLabels(t *testing.T) {
	trie := NewTrie()
	trie.Insert([]int{1, 2}, 0, -1.0)
	trie.Insert([]int{1, 2}, 3, -4.0) // homograph spelling
	node := trie.Child(trie.Child(trie.Root(), 1), 2)
	if len(trie.Labels(node)) != 2 {
		t.Errorf("labels = %d, want 2", len(trie.Labels(node)))
	}
}

func TestTrieMissingChild(t *testing.T) {
	trie := NewTrie()
	trie.Insert([]int{1}, 0, -1.0)
	if got := trie.Child(trie.Root(), 9); got != -1 {
		t.Errorf("missing child = %d, want -1", got)
	}
}

func TestTrieEmptySmear(t *testing.T) {
	trie := NewTrie()
	trie.Smear()
	if !math.IsInf(trie.MaxScore(trie.Root()), -1) {
		t.Error("empty trie root smear should be -Inf")
	}
}
