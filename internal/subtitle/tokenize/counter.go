package tokenize

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Counter returns the number of model units in text. The grouper budgets with it.
type Counter func(text string) int

const (
	CounterTiktoken = "tiktoken"
	CounterBytes    = "bytes"
)

var offlineBPE sync.Once

// NewCounter builds the counter named by kind.
func NewCounter(kind, model string) (Counter, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", CounterTiktoken:
		return NewTiktokenCounter(model)
	case CounterBytes:
		return BytesCounter(4), nil
	default:
		return nil, fmt.Errorf("unknown unit counter %q", kind)
	}
}

// NewTiktokenCounter counts BPE tokens for model, falling back to cl100k_base for unknown models.
// BPE ranks are embedded, nothing is downloaded.
func NewTiktokenCounter(model string) (Counter, error) {
	offlineBPE.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
	}

	var mu sync.Mutex
	return func(text string) int {
		mu.Lock()
		defer mu.Unlock()
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// BytesCounter approximates tokens as ceil(utf8 bytes / bytesPerToken).
func BytesCounter(bytesPerToken int) Counter {
	if bytesPerToken <= 0 {
		bytesPerToken = 4
	}
	return func(text string) int {
		return (len(text) + bytesPerToken - 1) / bytesPerToken
	}
}
