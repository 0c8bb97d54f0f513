package srt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedInput is returned when a document does not parse into well-formed segments.
var ErrMalformedInput = errors.New("malformed subtitle input")

// blockSep matches a blank line (a line holding only spaces or tabs) in either line-ending style.
var blockSep = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// Segment is a single subtitle entry. ID and Timestamp are echoed back verbatim.
type Segment struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`

	rawID string
}

// RawID returns the id line exactly as it appeared in the source document.
func (s Segment) RawID() string {
	if s.rawID != "" {
		return s.rawID
	}
	return strconv.Itoa(s.ID)
}

// Parse splits a document on blank lines and parses every block as
// <id>\n<timestamp>\n<text...>. Any block that is not well formed fails the whole document.
func Parse(document string) ([]Segment, error) {
	document = strings.TrimPrefix(document, "\ufeff")

	var segments []Segment
	for n, block := range blockSep.Split(document, -1) {
		block = strings.Trim(block, "\r\n")
		if strings.TrimSpace(block) == "" {
			continue
		}

		seg, err := parseBlock(block)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %v", ErrMalformedInput, n+1, err)
		}
		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no subtitle segments found", ErrMalformedInput)
	}
	return segments, nil
}

func parseBlock(block string) (Segment, error) {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return Segment{}, fmt.Errorf("expected id, timestamp and text, got %d line(s)", len(lines))
	}

	rawID := strings.TrimSpace(lines[0])
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return Segment{}, fmt.Errorf("invalid id line %q", lines[0])
	}

	timestamp := strings.TrimSpace(lines[1])
	if !strings.Contains(timestamp, "-->") {
		return Segment{}, fmt.Errorf("invalid timestamp line %q", lines[1])
	}

	return Segment{
		ID:        id,
		Timestamp: timestamp,
		Text:      strings.Join(lines[2:], "\n"),
		rawID:     rawID,
	}, nil
}
