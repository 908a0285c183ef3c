// Package phoneme maps between the two phonetic alphabets used at the
// recognizer's boundaries: IPA (International Phonetic Alphabet) strings and
// LIAPHON, the 7-bit ASCII phoneme scheme used by French cued-speech corpora.
package phoneme

import (
	"strings"
	"unicode/utf8"
)

// ipaLiaphon lists IPA → LIAPHON mappings. Multi-rune IPA entries (nasal
// vowels carry a combining tilde) are checked before single runes when
// tokenizing, so ordering here is longest first.
var ipaLiaphon = []struct {
	ipa     string
	liaphon string
}{
	// Nasal vowels (2 runes: vowel + combining tilde)
	{"ɑ̃", "a~"},
	{"ɛ̃", "e~"},
	{"ɔ̃", "o~"},
	{"œ̃", "x~"},

	// Oral vowels
	{"a", "a"},
	{"ə", "x"},
	{"ɛ", "e^"},
	{"œ", "x^"},
	{"i", "i"},
	{"y", "y"},
	{"e", "e"},
	{"u", "u"},
	{"ɔ", "o"},
	{"o", "o^"},

	// Silence
	{" ", "_"},

	// Consonants and glides
	{"b", "b"},
	{"c", "k"},
	{"d", "d"},
	{"f", "f"},
	{"ɡ", "g"},
	{"j", "j"},
	{"k", "k"},
	{"l", "l"},
	{"m", "m"},
	{"n", "n"},
	{"p", "p"},
	{"s", "s"},
	{"t", "t"},
	{"v", "v"},
	{"w", "w"},
	{"z", "z"},
	{"ɥ", "h"},
	{"ʁ", "r"},
	{"ʃ", "s^"},
	{"ʒ", "z^"},
	{"ɲ", "gn"},
	{"ŋ", "ng"},
}

var (
	ipaToLiaphon = map[string]string{}
	liaphonToIPA = map[string]string{}

	// maxIPALen is the longest IPA key in bytes, bounding the longest-match scan.
	maxIPALen int
)

func init() {
	for _, e := range ipaLiaphon {
		ipaToLiaphon[e.ipa] = e.liaphon
		// First occurrence wins for the inverse. "c" and "k" both map to
		// LIAPHON "k" and "c" comes first, so that one code is fixed below.
		if _, ok := liaphonToIPA[e.liaphon]; !ok {
			liaphonToIPA[e.liaphon] = e.ipa
		}
		if len(e.ipa) > maxIPALen {
			maxIPALen = len(e.ipa)
		}
	}
	// "k" must invert to "k", not "c". Guard the canonical entries that share
	// a LIAPHON code.
	liaphonToIPA["k"] = "k"
}

// LiaphonToIPA concatenates the IPA form of each LIAPHON token. Tokens with
// no mapping pass through unchanged.
func LiaphonToIPA(tokens []string) string {
	var b strings.Builder
	for _, tok := range tokens {
		if ipa, ok := liaphonToIPA[tok]; ok {
			b.WriteString(ipa)
		} else {
			b.WriteString(tok)
		}
	}
	return b.String()
}

// IPAToLiaphon tokenizes an IPA string by longest match over the mapping
// table. Characters with no mapping pass through as single-rune tokens.
// Round-trip with LiaphonToIPA is guaranteed only for strings composed of
// mapped tokens.
func IPAToLiaphon(ipa string) []string {
	var out []string
	for i := 0; i < len(ipa); {
		matched := false
		limit := maxIPALen
		if rest := len(ipa) - i; rest < limit {
			limit = rest
		}
		for n := limit; n > 0 && !matched; n-- {
			if lia, ok := ipaToLiaphon[ipa[i:i+n]]; ok {
				out = append(out, lia)
				i += n
				matched = true
			}
		}
		if !matched {
			_, size := utf8.DecodeRuneInString(ipa[i:])
			if size == 0 {
				break
			}
			out = append(out, ipa[i:i+size])
			i += size
		}
	}
	return out
}

// ToIPA returns the IPA form of a single LIAPHON token, or the token itself
// when unmapped.
func ToIPA(token string) string {
	if ipa, ok := liaphonToIPA[token]; ok {
		return ipa
	}
	return token
}

// ToLiaphon returns the LIAPHON form of a single IPA token, or the token
// itself when unmapped.
func ToLiaphon(token string) string {
	if lia, ok := ipaToLiaphon[token]; ok {
		return lia
	}
	return token
}

