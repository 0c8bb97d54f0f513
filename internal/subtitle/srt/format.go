package srt

import (
	"io"
	"strings"
)

// Translated pairs a source segment with its translated text.
type Translated struct {
	Segment
	Translation string
}

// Encode renders one translated segment as
// <id>\n<timestamp>\n<text>\n<translation>\n\n.
func (t Translated) Encode() string {
	var sb strings.Builder
	sb.Grow(len(t.Timestamp) + len(t.Text) + len(t.Translation) + 16)
	sb.WriteString(t.RawID())
	sb.WriteByte('\n')
	sb.WriteString(t.Timestamp)
	sb.WriteByte('\n')
	sb.WriteString(t.Text)
	sb.WriteByte('\n')
	sb.WriteString(t.Translation)
	sb.WriteString("\n\n")
	return sb.String()
}

// WriteAll writes the encoded segments to w in order.
func WriteAll(w io.Writer, segments []Translated) error {
	for _, s := range segments {
		if _, err := io.WriteString(w, s.Encode()); err != nil {
			return err
		}
	}
	return nil
}

// Lengths returns the character length of each segment's text.
func Lengths(segments []Segment) []int {
	out := make([]int, len(segments))
	for i, s := range segments {
		out[i] = len([]rune(s.Text))
	}
	return out
}
