package translate

import (
	"strings"
	"unicode/utf8"
)

// Redistribute partitions tokens into len(weights) strings whose lengths follow the weights.
// Each part's target is ceil(w/total * length), so targets always cover the text; a part is
// also closed early when the tokens left are just enough to give every later part one each.
// The parts concatenate back to the concatenation of tokens. Parts may be empty.
func Redistribute(tokens []string, weights []int) []string {
	n := len(weights)
	if n == 0 {
		return nil
	}
	out := make([]string, n)

	totalLength := 0
	for _, t := range tokens {
		totalLength += utf8.RuneCountInString(t)
	}
	totalWeight := 0
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}

	targets := make([]int, n)
	for i, w := range weights {
		switch {
		case totalWeight == 0:
			targets[i] = ceilDiv(totalLength, n)
		case w > 0:
			targets[i] = ceilDiv(w*totalLength, totalWeight)
		}
	}

	var (
		seg    int
		cur    strings.Builder
		curLen int
	)
	for ti, tok := range tokens {
		cur.WriteString(tok)
		curLen += utf8.RuneCountInString(tok)
		if seg < n-1 && (curLen >= targets[seg] || len(tokens)-ti == n-seg) {
			out[seg] = cur.String()
			cur.Reset()
			curLen = 0
			seg++
		}
	}
	out[seg] += cur.String()
	return out
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
