package translate

import (
	"errors"
	"iter"
	"strings"
)

const (
	// FailedTranslation is written in place of every segment of a group whose translation failed.
	FailedTranslation = "[[ERROR: Translation failed, edit manually]]"
	// FailedTokenization replaces a group whose translated text could not be tokenized.
	FailedTokenization = "[[ERROR: Tokenization failed, edit manually]]"
)

// Blob is the outcome of one group's translation: either the full text or the reason it failed.
type Blob struct {
	Text string
	Err  error
}

// Failed reports whether the blob carries a failure instead of text.
func (b Blob) Failed() bool { return b.Err != nil }

// Marker returns the placeholder written for each segment of a failed group.
func (b Blob) Marker() string {
	if errors.Is(b.Err, errTokenize) {
		return FailedTokenization
	}
	return FailedTranslation
}

var errTokenize = errors.New("tokenize")

// Accumulate drains a fragment stream into one blob. Any error discards what was received.
func Accumulate(stream iter.Seq2[string, error]) Blob {
	var sb strings.Builder
	for frag, err := range stream {
		if err != nil {
			return Blob{Err: err}
		}
		sb.WriteString(frag)
	}
	return Blob{Text: sb.String()}
}
