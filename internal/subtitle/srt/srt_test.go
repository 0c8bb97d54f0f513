package srt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "1\n00:00:01,000 --> 00:00:02,000\nHello there.\n\n" +
	"2\n00:00:02,500 --> 00:00:04,000\nHow are you\ndoing today?\n\n" +
	"7\n00:00:05,000 --> 00:00:06,000\nFine.\n"

func TestParse(t *testing.T) {
	segs, err := Parse(sample)
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.Equal(t, 1, segs[0].ID)
	assert.Equal(t, "00:00:01,000 --> 00:00:02,000", segs[0].Timestamp)
	assert.Equal(t, "Hello there.", segs[0].Text)

	assert.Equal(t, "How are you\ndoing today?", segs[1].Text)

	// ids need not be contiguous
	assert.Equal(t, 7, segs[2].ID)
	assert.Equal(t, "Fine.", segs[2].Text)
}

func TestParseCRLFAndBlankLines(t *testing.T) {
	doc := "\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nOne\r\n\r\n" +
		"2\r\n00:00:03,000 --> 00:00:04,000\r\nTwo\r\n \r\n\r\n" +
		"3\n00:00:05,000 --> 00:00:06,000\nThree\n\t\n"

	segs, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, []string{"One", "Two", "Three"}, []string{segs[0].Text, segs[1].Text, segs[2].Text})
	assert.Equal(t, "00:00:03,000 --> 00:00:04,000", segs[1].Timestamp)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"only whitespace", "\n\n  \n"},
		{"too few lines", "1\n00:00:01,000 --> 00:00:02,000\n"},
		{"non numeric id", "one\n00:00:01,000 --> 00:00:02,000\ntext"},
		{"missing arrow", "1\n00:00:01,000 00:00:02,000\ntext"},
		{"bad block after good", sample + "\n\n8\n00:00:07,000 --> 00:00:08,000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.doc)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestEncodeEchoesIDAndTimestamp(t *testing.T) {
	segs, err := Parse("007\n00:00:01,000 --> 00:00:02,000\nHi\n")
	require.NoError(t, err)

	out := Translated{Segment: segs[0], Translation: "Salut"}
	assert.Equal(t, "007\n00:00:01,000 --> 00:00:02,000\nHi\nSalut\n\n", out.Encode())
}

func TestWriteAll(t *testing.T) {
	segs, err := Parse(sample)
	require.NoError(t, err)

	var buf bytes.Buffer
	items := []Translated{
		{Segment: segs[0], Translation: "a"},
		{Segment: segs[2], Translation: "b"},
	}
	require.NoError(t, WriteAll(&buf, items))
	assert.Equal(t,
		"1\n00:00:01,000 --> 00:00:02,000\nHello there.\na\n\n7\n00:00:05,000 --> 00:00:06,000\nFine.\nb\n\n",
		buf.String())
}

func TestLengths(t *testing.T) {
	segs := []Segment{{Text: "abc"}, {Text: ""}, {Text: "日本語"}}
	assert.Equal(t, []int{3, 0, 3}, Lengths(segs))
}
