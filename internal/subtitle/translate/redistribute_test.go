package translate

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedistributeWorkedExample(t *testing.T) {
	got := Redistribute([]string{"a", "bb", "ccc", "dddd"}, []int{1, 3})
	assert.Equal(t, []string{"abb", "cccdddd"}, got)
}

func TestRedistributeOnePartPerWeight(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		weights []int
		want    []string
	}{
		{"single weight takes all", []string{"a", " ", "b"}, []int{5}, []string{"a b"}},
		{"no tokens", nil, []int{1, 2, 3}, []string{"", "", ""}},
		{"as many tokens as parts", []string{"x", "y", "z"}, []int{100, 100, 100}, []string{"x", "y", "z"}},
		{"all zero weights split evenly", []string{"aa", "bb", "cc", "dd"}, []int{0, 0}, []string{"aabb", "ccdd"}},
		{"equal weights", []string{"I", " ", "am", " ", "here"}, []int{1, 1}, []string{"I am ", "here"}},
		{"fewer tokens than parts", []string{"only"}, []int{1, 1, 1}, []string{"only", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redistribute(tt.tokens, tt.weights)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedistributeNoWeights(t *testing.T) {
	assert.Nil(t, Redistribute([]string{"a"}, nil))
}

func TestRedistributeSkewedWeightsStillLossless(t *testing.T) {
	tokens := []string{"alpha", " ", "beta", " ", "gamma", " ", "delta"}
	got := Redistribute(tokens, []int{0, 0, 0, 50})
	require.Len(t, got, 4)
	assert.Equal(t, strings.Join(tokens, ""), strings.Join(got, ""))
}

func TestRedistributeIsLossless(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	pieces := []string{"a", "bb", "ccc", " ", "  ", "日本", "語", "é", "\n"}

	for round := 0; round < 500; round++ {
		tokens := make([]string, r.IntN(40))
		for i := range tokens {
			tokens[i] = pieces[r.IntN(len(pieces))]
		}
		weights := make([]int, 1+r.IntN(8))
		for i := range weights {
			weights[i] = r.IntN(30)
		}

		got := Redistribute(tokens, weights)
		require.Len(t, got, len(weights), "round %d", round)
		assert.Equal(t, strings.Join(tokens, ""), strings.Join(got, ""), "round %d", round)
	}
}

func TestRedistributeEveryPartGetsTokenWhenEnough(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e", "f"}
	got := Redistribute(tokens, []int{1, 1, 1, 1, 1, 1})
	for i, part := range got {
		assert.NotEmpty(t, part, "part %d", i)
	}
}
