package tokenize

import (
	"fmt"
	"sync"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Morphological tokenizes Japanese text into morpheme surface forms.
// The IPA dictionary is built on first use and shared by every caller afterwards.
type Morphological struct {
	load func() (*tokenizer.Tokenizer, error)
}

// NewMorphological returns a Japanese tokenizer backed by the kagome IPA dictionary.
// Construct one per process and hand it to the Registry.
func NewMorphological() *Morphological {
	return &Morphological{load: sync.OnceValues(buildIPA)}
}

func buildIPA() (t *tokenizer.Tokenizer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: load ipa dictionary: %v", ErrUnavailable, r)
		}
	}()

	t, err = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return t, nil
}

// Warm loads the dictionary ahead of the first request.
func (m *Morphological) Warm() error {
	_, err := m.load()
	return err
}

func (m *Morphological) Tokenize(text string) ([]string, error) {
	t, err := m.load()
	if err != nil {
		return nil, err
	}

	toks := t.Tokenize(text)
	surfaces := make([]string, 0, len(toks))
	for _, tok := range toks {
		surfaces = append(surfaces, tok.Surface)
	}
	return align(text, surfaces), nil
}
