package translate

import (
	"context"
	"iter"

	"github.com/subrelay/backend/internal/subtitle/tokenize"
)

// EchoClient is an offline engine that returns the input prefixed with the target language.
// It streams word by word so the whole pipeline can be exercised without credentials.
type EchoClient struct{}

func (EchoClient) Name() string { return "mock" }

func (EchoClient) Translate(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield("["+req.Language+"] ", nil) {
			return
		}
		toks, _ := tokenize.Words.Tokenize(req.Text)
		for _, t := range toks {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

