package translate

import (
	"regexp"
	"strings"

	"github.com/subrelay/backend/internal/subtitle/srt"
	"github.com/subrelay/backend/internal/subtitle/tokenize"
)

// DefaultBudget is the default number of model units per group.
const DefaultBudget = 700

// sentenceEnd matches text ending in terminal punctuation, optionally followed by a closing quote or bracket.
var sentenceEnd = regexp.MustCompile(`[.?!。？！]["'”’」』)\]}]?$`)

// Group is a run of consecutive segments translated in one call.
type Group []srt.Segment

// Text joins the segments' text with single spaces, which is what the engine receives.
func (g Group) Text() string {
	parts := make([]string, len(g))
	for i, s := range g {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// Weights returns each segment's source length.
func (g Group) Weights() []int { return srt.Lengths(g) }

// GroupSegments batches segments so each group's units plus one per join stay within budget.
// A group closes early at the end of a sentence. A segment that alone exceeds the budget
// becomes its own group; segments are never split.
func GroupSegments(segments []srt.Segment, budget int, count tokenize.Counter) []Group {
	var (
		groups  []Group
		current Group
		running int
	)
	flush := func() {
		if len(current) > 0 {
			groups = append(groups, current)
		}
		current = nil
		running = 0
	}

	for _, seg := range segments {
		n := count(seg.Text)
		if running+n <= budget {
			current = append(current, seg)
			running += n + 1
			if sentenceEnd.MatchString(strings.TrimRightFunc(seg.Text, isSpace)) {
				flush()
			}
			continue
		}
		flush()
		current = Group{seg}
		running = n + 1
	}
	flush()
	return groups
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }
