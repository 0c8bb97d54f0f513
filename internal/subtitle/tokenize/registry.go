package tokenize

import (
	"strings"
	"sync"
)

// Registry selects a Tokenizer by target language. Languages without an entry use the fallback.
type Registry struct {
	mu       sync.RWMutex
	fallback Tokenizer
	byCode   map[string]Tokenizer
}

// NewRegistry creates an empty registry. A nil fallback means Words.
func NewRegistry(fallback Tokenizer) *Registry {
	if fallback == nil {
		fallback = Words
	}
	return &Registry{fallback: fallback, byCode: make(map[string]Tokenizer)}
}

// NewDefaultRegistry wires the morphological tokenizer for Japanese and grapheme
// splitting for other scripts written without spaces.
func NewDefaultRegistry(japanese Tokenizer) *Registry {
	r := NewRegistry(Words)
	if japanese != nil {
		r.Register("ja", japanese)
	}
	for _, code := range []string{"zh", "th", "lo", "km", "my"} {
		r.Register(code, Graphemes)
	}
	return r
}

// Register binds a tokenizer to a language code or name. Registering twice replaces the entry.
func (r *Registry) Register(lang string, t Tokenizer) {
	key := registryKey(lang)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCode[key] = t
}

// For returns the tokenizer for lang.
func (r *Registry) For(lang string) Tokenizer {
	key := registryKey(lang)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.byCode[key]; ok {
		return t
	}
	return r.fallback
}

func registryKey(lang string) string {
	l, err := Resolve(lang)
	if err != nil {
		return ""
	}
	if code := l.Code(); code != "" {
		return code
	}
	return strings.ToLower(l.Name)
}
