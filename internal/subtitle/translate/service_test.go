package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subrelay/backend/internal/subtitle/srt"
	"github.com/subrelay/backend/internal/subtitle/tokenize"
)

func document(texts ...string) string {
	var sb strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&sb, "%d\n00:00:%02d,000 --> 00:00:%02d,500\n%s\n\n", i+1, i, i, t)
	}
	return sb.String()
}

func newTestService(clients ...Client) *Service {
	return NewService(Options{
		DefaultEngine: "scripted",
		Budget:        100,
		Counter:       words,
		Retry:         RetryPolicy{Attempts: 2, Delay: time.Millisecond},
	}, clients...)
}

// outputSegments reads the written stream back. Each output block parses as a segment whose
// text holds the source line followed by the translation line.
func outputSegments(t *testing.T, out string) []srt.Segment {
	t.Helper()
	got, err := srt.Parse(out)
	require.NoError(t, err)
	return got
}

func TestTranslatePreservesOrder(t *testing.T) {
	doc := document("one", "two", "three.", "four", "five.")
	svc := NewService(Options{DefaultEngine: "mock", Budget: 100, Counter: words}, EchoClient{})

	var buf bytes.Buffer
	summary, err := svc.Translate(context.Background(), &buf, Job{Content: doc, Language: "Spanish"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Segments: 5, Groups: 2}, summary)

	in, err := srt.Parse(doc)
	require.NoError(t, err)
	out := outputSegments(t, buf.String())
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Timestamp, out[i].Timestamp)
		assert.True(t, strings.HasPrefix(out[i].Text, in[i].Text+"\n"))
	}

	translations := func(from, to int) string {
		var sb strings.Builder
		for _, s := range out[from:to] {
			_, tr, _ := strings.Cut(s.Text, "\n")
			sb.WriteString(tr)
		}
		return sb.String()
	}
	assert.Equal(t, "[Spanish] one two three.", translations(0, 3))
	assert.Equal(t, "[Spanish] four five.", translations(3, 5))
}

func TestTranslateFailedGroupGetsMarkerOnEverySegment(t *testing.T) {
	c := &scriptedClient{respond: func(int, Request) ([]string, error) { return nil, ErrInvalidRequest }}
	svc := newTestService(c)

	var buf bytes.Buffer
	summary, err := svc.Translate(context.Background(), &buf, Job{Content: document("a", "b", "c."), Language: "French"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailedGroups)

	assert.Equal(t, 3, strings.Count(buf.String(), FailedTranslation))
	for _, s := range outputSegments(t, buf.String()) {
		_, tr, _ := strings.Cut(s.Text, "\n")
		assert.Equal(t, FailedTranslation, tr)
	}
}

func TestTranslateContainsFailureToItsGroup(t *testing.T) {
	c := &scriptedClient{respond: func(call int, req Request) ([]string, error) {
		if call == 1 {
			return nil, ErrInvalidRequest
		}
		return []string{"ok ", req.Text}, nil
	}}
	svc := newTestService(c)

	var buf bytes.Buffer
	summary, err := svc.Translate(context.Background(), &buf, Job{Content: document("first.", "second.", "third."), Language: "de"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Segments: 3, Groups: 3, FailedGroups: 1}, summary)

	out := outputSegments(t, buf.String())
	require.Len(t, out, 3)
	assert.Equal(t, "first.\n"+FailedTranslation, out[0].Text)
	assert.Equal(t, "second.\nok second.", out[1].Text)
	assert.Equal(t, "third.\nok third.", out[2].Text)
}

func TestTranslateRetriesTransientErrors(t *testing.T) {
	c := &scriptedClient{respond: func(call int, req Request) ([]string, error) {
		if call == 1 {
			return nil, ErrUpstream
		}
		return []string{"bonjour"}, nil
	}}
	svc := newTestService(c)

	var buf bytes.Buffer
	summary, err := svc.Translate(context.Background(), &buf, Job{Content: document("hello"), Language: "French"})
	require.NoError(t, err)
	assert.Zero(t, summary.FailedGroups)
	assert.Equal(t, 2, c.callCount())
	assert.Contains(t, buf.String(), "hello\nbonjour\n\n")
}

func TestTranslateMalformedInputWritesNothing(t *testing.T) {
	c := &scriptedClient{respond: func(int, Request) ([]string, error) { return []string{"x"}, nil }}
	svc := newTestService(c)

	var buf bytes.Buffer
	_, err := svc.Translate(context.Background(), &buf, Job{Content: "1\nno timestamp here\n\n", Language: "French"})
	require.Error(t, err)
	assert.ErrorIs(t, err, srt.ErrMalformedInput)
	assert.True(t, IsClientError(err))
	assert.Zero(t, buf.Len())
	assert.Zero(t, c.callCount())
}

func TestTranslateRejectsBadJobs(t *testing.T) {
	svc := newTestService(&scriptedClient{respond: func(int, Request) ([]string, error) { return nil, nil }})

	_, err := svc.Translate(context.Background(), &bytes.Buffer{}, Job{Content: document("a"), Language: "French", Engine: "nope"})
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.True(t, IsClientError(err))

	_, err = svc.Translate(context.Background(), &bytes.Buffer{}, Job{Content: document("a")})
	assert.ErrorIs(t, err, tokenize.ErrNoLanguage)
}

func TestTranslateStopsBetweenGroupsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &scriptedClient{respond: func(call int, req Request) ([]string, error) {
		if call == 2 {
			cancel()
		}
		return []string{req.Text}, nil
	}}
	svc := newTestService(c)

	var buf bytes.Buffer
	_, err := svc.Translate(ctx, &buf, Job{Content: document("one.", "two.", "three."), Language: "French"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, c.callCount())
	assert.True(t, strings.HasPrefix(buf.String(), "1\n"))
	assert.NotContains(t, buf.String(), "three.")
}

// cancelOnWrite cancels once the output holds the given text.
type cancelOnWrite struct {
	bytes.Buffer
	marker string
	cancel context.CancelFunc
}

func (c *cancelOnWrite) Write(p []byte) (int, error) {
	n, err := c.Buffer.Write(p)
	if strings.Contains(c.String(), c.marker) {
		c.cancel()
	}
	return n, err
}

func TestTranslateCompleteDocumentIgnoresLateCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &scriptedClient{respond: func(_ int, req Request) ([]string, error) { return []string{req.Text}, nil }}
	svc := newTestService(c)

	out := &cancelOnWrite{marker: "three.\nthree.", cancel: cancel}
	summary, err := svc.Translate(ctx, out, Job{Content: document("one.", "two.", "three."), Language: "French"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Groups)
	assert.Error(t, ctx.Err())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestTranslateReportsWriteFailure(t *testing.T) {
	c := &scriptedClient{respond: func(_ int, req Request) ([]string, error) { return []string{req.Text}, nil }}
	svc := newTestService(c)

	_, err := svc.Translate(context.Background(), failingWriter{}, Job{Content: document("one.", "two.", "three."), Language: "French"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.False(t, IsClientError(err))
}

func TestTranslateTokenizerFailureMarksGroup(t *testing.T) {
	reg := tokenize.NewRegistry(nil)
	reg.Register("Japanese", tokenize.TokenizerFunc(func(string) ([]string, error) {
		return nil, tokenize.ErrUnavailable
	}))
	c := &scriptedClient{respond: func(int, Request) ([]string, error) { return []string{"こんにちは"}, nil }}
	svc := NewService(Options{DefaultEngine: "scripted", Counter: words, Tokenizers: reg}, c)

	var buf bytes.Buffer
	summary, err := svc.Translate(context.Background(), &buf, Job{Content: document("hi", "there."), Language: "ja"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailedGroups)
	assert.Equal(t, 2, strings.Count(buf.String(), FailedTokenization))
	assert.NotContains(t, buf.String(), "こんにちは")
}

func TestTranslatePassesPresetAndLanguage(t *testing.T) {
	c := &scriptedClient{respond: func(int, Request) ([]string, error) { return []string{"x"}, nil }}
	svc := newTestService(c)

	_, err := svc.Translate(context.Background(), &bytes.Buffer{}, Job{
		Content:      document("line one", "line two."),
		Language:     "ja",
		Preset:       PresetAnime,
		CustomPrompt: "Keep names in romaji.",
	})
	require.NoError(t, err)

	reqs := c.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "line one line two.", reqs[0].Text)
	assert.Equal(t, "Japanese", reqs[0].Language)
	assert.Equal(t, "ja", reqs[0].Code)
	assert.Contains(t, reqs[0].Instructions, "anime")
	assert.Contains(t, reqs[0].Instructions, "Keep names in romaji.")
}

func TestTranslateBudgetOverride(t *testing.T) {
	c := &scriptedClient{respond: func(_ int, req Request) ([]string, error) { return []string{req.Text}, nil }}
	svc := NewService(Options{
		DefaultEngine:  "scripted",
		Counter:        words,
		BudgetResolver: func() int { return 2 },
	}, c)

	summary, err := svc.Translate(context.Background(), &bytes.Buffer{}, Job{Content: document("a b", "c d", "e f"), Language: "French"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Groups)

	summary, err = svc.Translate(context.Background(), &bytes.Buffer{}, Job{Content: document("a b", "c d", "e f"), Language: "French", Budget: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Groups)
}

func TestPlan(t *testing.T) {
	svc := newTestService()
	plans, err := svc.Plan(document("one two", "three.", "four"), 0)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, GroupPlan{Index: 1, FirstID: "1", LastID: "2", Segments: 2, Units: 4, Chars: 13}, plans[0])
	assert.Equal(t, GroupPlan{Index: 2, FirstID: "3", LastID: "3", Segments: 1, Units: 1, Chars: 4}, plans[1])

	_, err = svc.Plan("garbage", 0)
	assert.ErrorIs(t, err, srt.ErrMalformedInput)
}

func TestEngines(t *testing.T) {
	svc := newTestService(EchoClient{}, &scriptedClient{name: "b"})
	assert.Equal(t, []string{"b", "mock"}, svc.Engines())
	assert.Equal(t, "scripted", svc.DefaultEngine())
}

func TestInstructions(t *testing.T) {
	assert.Empty(t, Instructions(PresetNone, ""))
	assert.Empty(t, Instructions(PresetCustom, ""))
	assert.Equal(t, "User instructions: be brief", Instructions(PresetCustom, "be brief"))
	assert.Contains(t, Instructions(PresetDocumentary, ""), "documentary")

	req := Request{Text: "Hola", Language: "English"}
	assert.Equal(t, systemPrompt, SystemMessage(req))
	assert.True(t, strings.HasPrefix(UserMessage(req), "Translate this to English. ONLY translate"))
	assert.True(t, strings.HasSuffix(UserMessage(req), "next line.\n\nHola"))
}
