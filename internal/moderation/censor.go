// Package moderation masks configured words in chat text.
package moderation

import (
	"fmt"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Censor replaces matches of a word list with a mask rune. Matching ignores case, punctuation,
// whitespace and common leet substitutions, so "b.4.d" matches "bad".
type Censor struct {
	matcher *goahocorasick.Machine
	mask    rune
}

type normalized struct {
	runes   []rune
	origIdx []int
}

// NewCensor builds the automaton. An empty word list yields a nil Censor, which is a no-op.
func NewCensor(words []string, mask rune) (*Censor, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if p := normalizeRunes([]rune(word)); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build censor automaton: %w", err)
	}
	return &Censor{matcher: m, mask: mask}, nil
}

// Apply returns text with every matched span masked. Spacing and unmatched runes are preserved.
func (c *Censor) Apply(text string) string {
	if c == nil || text == "" {
		return text
	}

	norm := normalize(text)
	if len(norm.runes) == 0 {
		return text
	}
	terms := c.matcher.MultiPatternSearch(norm.runes, false)
	if len(terms) == 0 {
		return text
	}

	out := []rune(text)
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(norm.origIdx) {
			continue
		}
		for i := norm.origIdx[start]; i <= norm.origIdx[end-1]; i++ {
			if !unicode.IsSpace(out[i]) {
				out[i] = c.mask
			}
		}
	}
	return string(out)
}

func normalize(input string) normalized {
	orig := []rune(input)
	n := normalized{
		runes:   make([]rune, 0, len(orig)),
		origIdx: make([]int, 0, len(orig)),
	}
	for i, r := range orig {
		clean := simplify(r)
		if isNoise(clean) {
			continue
		}
		n.runes = append(n.runes, unicode.ToLower(clean))
		n.origIdx = append(n.origIdx, i)
	}
	return n
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplify(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

func simplify(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
