// Package tokenize splits translated text into lossless units for redistribution
// and counts model tokens for batching.
package tokenize

import (
	"errors"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

// ErrUnavailable is returned when a tokenizer's backing resource cannot be loaded.
var ErrUnavailable = errors.New("tokenizer unavailable")

// Tokenizer splits text into ordered units whose concatenation equals the input.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// TokenizerFunc adapts a function to the Tokenizer interface.
type TokenizerFunc func(text string) ([]string, error)

func (f TokenizerFunc) Tokenize(text string) ([]string, error) { return f(text) }

// wordRe alternates runs of non-space and runs of space. Unicode separators count as space.
var wordRe = regexp.MustCompile(`[^\s\p{Z}]+|[\s\p{Z}]+`)

// Words is the default tokenizer for languages that separate words with spaces.
var Words Tokenizer = TokenizerFunc(func(text string) ([]string, error) {
	return wordRe.FindAllString(text, -1), nil
})

// Graphemes splits text into user-perceived characters. Used for scripts written without spaces
// when no morphological analyser is available.
var Graphemes Tokenizer = TokenizerFunc(func(text string) ([]string, error) {
	var out []string
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out, nil
})

// align rebuilds a lossless token list from analyser surfaces: any input the analyser skipped
// or normalised becomes its own literal token, so the result always concatenates back to text.
func align(text string, surfaces []string) []string {
	out := make([]string, 0, len(surfaces)+1)
	rest := text
	for _, s := range surfaces {
		if s == "" {
			continue
		}
		i := strings.Index(rest, s)
		if i < 0 {
			continue
		}
		if i > 0 {
			out = append(out, rest[:i])
		}
		out = append(out, s)
		rest = rest[i+len(s):]
	}
	if rest != "" {
		out = append(out, rest)
	}
	return out
}
