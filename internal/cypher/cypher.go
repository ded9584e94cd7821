package cypher

import (
	"strings"
	"unicode"
)

// symbols is the fixed alphabet substituted for masked characters. The
// choice is cosmetic but the order matters: the generator indexes into it.
var symbols = []rune{'#', '£', '$', '%', '&', '@'}

// preserved characters survive masking so that sentence shape, punctuation
// and quoting stay readable in the obfuscated text.
var preserved = map[rune]struct{}{
	' ': {}, '.': {}, ',': {}, ';': {}, ':': {},
	'"': {}, '\'': {}, '-': {}, '(': {}, ')': {},
	'[': {}, ']': {}, '?': {}, '!': {},
}

// lcg is a Park-Miller linear congruential generator. Each Obfuscate call
// owns its own instance, so identical inputs always produce identical
// output.
type lcg struct {
	value int64
}

func newLCG(seed int64) *lcg {
	return &lcg{value: seed}
}

func (g *lcg) next() float64 {
	g.value = (g.value * 16807) % 2147483647
	return float64(g.value) / 2147483647
}

// Sentences splits text on periods, drops blank fragments, and restores a
// trailing period on every kept fragment.
func Sentences(text string) []string {
	parts := strings.Split(text, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p+".")
	}
	return out
}

// Obfuscate renders the description for a given level. The first 5-level
// sentences stay intact; every later sentence has each maskable character
// replaced by a seeded pseudo-random symbol. The generator advances once
// per replaced character, never for preserved ones.
func Obfuscate(text string, level int, seed int64) []string {
	sentences := Sentences(text)
	prng := newLCG(seed)
	visible := 5 - level

	out := make([]string, len(sentences))
	for i, sentence := range sentences {
		if i < visible {
			out[i] = sentence
			continue
		}
		var b strings.Builder
		b.Grow(len(sentence))
		for _, r := range sentence {
			if _, keep := preserved[r]; keep || unicode.IsSpace(r) {
				b.WriteRune(r)
				continue
			}
			b.WriteRune(symbols[int(prng.next()*float64(len(symbols)))])
		}
		out[i] = b.String()
	}
	return out
}
