package tokenize

import (
	"errors"
	"strings"
	"testing"

	kagome "github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordsIsLossless(t *testing.T) {
	inputs := []string{
		"",
		"Hello, world!",
		"  leading and trailing  ",
		"tabs\tand\nnewlines",
		"non breaking space",
		"emoji 👋🏽 too",
	}
	for _, in := range inputs {
		toks, err := Words.Tokenize(in)
		require.NoError(t, err)
		assert.Equal(t, in, strings.Join(toks, ""), "input %q", in)
		for _, tok := range toks {
			assert.NotEmpty(t, tok)
		}

		again, err := Words.Tokenize(strings.Join(toks, ""))
		require.NoError(t, err)
		assert.Equal(t, toks, again, "input %q", in)
	}
}

func TestWordsKeepsWhitespaceRuns(t *testing.T) {
	toks, err := Words.Tokenize("I  am here")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "  ", "am", " ", "here"}, toks)
}

func TestGraphemesKeepClustersTogether(t *testing.T) {
	toks, err := Graphemes.Tokenize("ไทย👋🏽")
	require.NoError(t, err)
	assert.Equal(t, "ไทย👋🏽", strings.Join(toks, ""))
	assert.Equal(t, "👋🏽", toks[len(toks)-1])
}

func TestGraphemesIsLosslessAndStable(t *testing.T) {
	for _, in := range []string{"", "abc", "e\u0301t\u00e9", "ไทย👋🏽 ok", "🇯🇵 flag", "tabs\tand\nnewlines"} {
		toks, err := Graphemes.Tokenize(in)
		require.NoError(t, err)
		assert.Equal(t, in, strings.Join(toks, ""), "input %q", in)

		again, err := Graphemes.Tokenize(strings.Join(toks, ""))
		require.NoError(t, err)
		assert.Equal(t, toks, again, "input %q", in)
	}
}

func TestAlignFillsGaps(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		surfaces []string
		want     []string
	}{
		{"exact", "ab", []string{"a", "b"}, []string{"a", "b"}},
		{"skipped space", "a b", []string{"a", "b"}, []string{"a", " ", "b"}},
		{"trailing rest", "abc", []string{"a"}, []string{"a", "bc"}},
		{"unknown surface", "abc", []string{"x", "b"}, []string{"a", "b", "c"}},
		{"no surfaces", "abc", nil, []string{"abc"}},
		{"empty", "", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := align(tt.text, tt.surfaces)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, strings.Join(got, ""))
		})
	}
}

func TestMorphologicalJapanese(t *testing.T) {
	m := NewMorphological()
	require.NoError(t, m.Warm())

	in := "私は学生です。 よろしく"
	toks, err := m.Tokenize(in)
	require.NoError(t, err)
	assert.Equal(t, in, strings.Join(toks, ""))
	assert.Greater(t, len(toks), 3)

	again, err := m.Tokenize(strings.Join(toks, ""))
	require.NoError(t, err)
	assert.Equal(t, toks, again)
}

func TestMorphologicalUnavailable(t *testing.T) {
	m := &Morphological{load: func() (*kagome.Tokenizer, error) { return nil, ErrUnavailable }}

	_, err := m.Tokenize("テスト")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestRegistryDispatch(t *testing.T) {
	ja := TokenizerFunc(func(text string) ([]string, error) { return []string{text}, nil })
	r := NewDefaultRegistry(ja)

	for _, lang := range []string{"ja", "Japanese", "japanese", "ja-JP"} {
		toks, err := r.For(lang).Tokenize("a b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a b"}, toks, "lang %q", lang)
	}

	toks, err := r.For("Thai").Tokenize("ab")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, toks)

	toks, err = r.For("Spanish").Tokenize("a b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", " ", "b"}, toks)

	toks, err = r.For("Klingon").Tokenize("a b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", " ", "b"}, toks)
}

func TestRegistryWithoutJapaneseFallsBack(t *testing.T) {
	r := NewDefaultRegistry(nil)
	toks, err := r.For("ja").Tokenize("a b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", " ", "b"}, toks)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		in       string
		wantCode string
		wantName string
	}{
		{"ja", "ja", "Japanese"},
		{"Japanese", "ja", "Japanese"},
		{"  spanish ", "es", "Spanish"},
		{"pt-BR", "pt", "Portuguese"},
		{"klingon", "", "Klingon"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, l.Code())
			assert.Equal(t, tt.wantName, l.Name)
		})
	}

	_, err := Resolve("   ")
	assert.ErrorIs(t, err, ErrNoLanguage)
}

func TestBytesCounter(t *testing.T) {
	c := BytesCounter(4)
	assert.Equal(t, 0, c(""))
	assert.Equal(t, 1, c("abc"))
	assert.Equal(t, 1, c("abcd"))
	assert.Equal(t, 2, c("abcde"))
	assert.Equal(t, 3, c("日本語"))
}

func TestTiktokenCounter(t *testing.T) {
	c, err := NewCounter("tiktoken", "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, 0, c(""))
	assert.Greater(t, c("Hello there, how are you?"), 3)

	unknown, err := NewTiktokenCounter("not-a-model")
	require.NoError(t, err)
	assert.Equal(t, c("hello world"), unknown("hello world"))

	_, err = NewCounter("abacus", "")
	assert.Error(t, err)
}
