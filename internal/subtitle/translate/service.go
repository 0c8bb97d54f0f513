package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/subtitle/srt"
	"github.com/subrelay/backend/internal/subtitle/tokenize"
)

// Job is one translation request.
type Job struct {
	Content      string
	Language     string
	Engine       string // "" selects the default engine
	Preset       string
	CustomPrompt string
	Budget       int // 0 uses the service budget
}

// Summary reports how a job went once the output has been written.
type Summary struct {
	Segments     int
	Groups       int
	FailedGroups int
}

// Options configures a Service.
type Options struct {
	DefaultEngine  string
	Budget         int
	BudgetResolver func() int // settings override, 0 means unset
	Retry          RetryPolicy
	Counter        tokenize.Counter
	Tokenizers     *tokenize.Registry
	Logger         *zap.Logger
}

// Service owns the registered engines and runs translation jobs.
type Service struct {
	mu      sync.RWMutex
	engines map[string]Client

	opts   Options
	logger *zap.Logger
}

// NewService creates a translation service with the given engines registered.
func NewService(opts Options, clients ...Client) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.Counter == nil {
		opts.Counter = tokenize.BytesCounter(4)
	}
	if opts.Tokenizers == nil {
		opts.Tokenizers = tokenize.NewRegistry(tokenize.Words)
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = DefaultRetryPolicy
	}

	s := &Service{
		engines: make(map[string]Client),
		opts:    opts,
		logger:  opts.Logger.With(zap.String("component", "translate")),
	}
	for _, c := range clients {
		s.Register(c)
	}
	return s
}

// Register adds an engine, wrapping it in the service retry policy.
func (s *Service) Register(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[c.Name()] = WithRetry(c, s.opts.Retry, s.logger)
	s.logger.Info("registered engine", zap.String("engine", c.Name()))
}

// Engines returns the registered engine names in sorted order.
func (s *Service) Engines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultEngine returns the engine used when a job names none.
func (s *Service) DefaultEngine() string { return s.opts.DefaultEngine }

func (s *Service) engine(name string) (Client, error) {
	if name == "" {
		name = s.opts.DefaultEngine
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return c, nil
}

func (s *Service) budget(override int) int {
	if override > 0 {
		return override
	}
	if s.opts.BudgetResolver != nil {
		if b := s.opts.BudgetResolver(); b > 0 {
			return b
		}
	}
	return s.opts.Budget
}

// GroupPlan describes one group without translating it.
type GroupPlan struct {
	Index    int    `json:"index"`
	FirstID  string `json:"first_id"`
	LastID   string `json:"last_id"`
	Segments int    `json:"segments"`
	Units    int    `json:"units"`
	Chars    int    `json:"chars"`
}

// Plan parses content and reports how it would be grouped under budget (0 for the service budget).
func (s *Service) Plan(content string, budget int) ([]GroupPlan, error) {
	segments, err := srt.Parse(content)
	if err != nil {
		return nil, err
	}
	groups := GroupSegments(segments, s.budget(budget), s.opts.Counter)
	plans := make([]GroupPlan, len(groups))
	for i, g := range groups {
		units := 0
		for _, seg := range g {
			units += s.opts.Counter(seg.Text)
		}
		units += len(g) - 1
		chars := 0
		for _, w := range g.Weights() {
			chars += w
		}
		plans[i] = GroupPlan{
			Index:    i + 1,
			FirstID:  g[0].RawID(),
			LastID:   g[len(g)-1].RawID(),
			Segments: len(g),
			Units:    units,
			Chars:    chars,
		}
	}
	return plans, nil
}

type flusher interface{ Flush() }

type errFlusher interface{ Flush() error }

// Translate parses job.Content and writes translated segments to w group by group, in
// document order. Nothing is written if the document or the job is invalid. A group that
// fails to translate is written with a failure marker on every segment and the job goes on.
// Cancelling ctx stops the job before the next group starts.
func (s *Service) Translate(ctx context.Context, w io.Writer, job Job) (Summary, error) {
	segments, err := srt.Parse(job.Content)
	if err != nil {
		return Summary{}, err
	}
	lang, err := tokenize.Resolve(job.Language)
	if err != nil {
		return Summary{}, err
	}
	client, err := s.engine(job.Engine)
	if err != nil {
		return Summary{}, err
	}

	groups := GroupSegments(segments, s.budget(job.Budget), s.opts.Counter)
	log := s.logger.With(
		zap.String("engine", client.Name()),
		zap.String("language", lang.Name),
		zap.Int("segments", len(segments)),
		zap.Int("groups", len(groups)),
	)
	log.Info("translation started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	instructions := Instructions(job.Preset, job.CustomPrompt)
	tokenizer := s.opts.Tokenizers.For(job.Language)

	pending := make(chan Group, 1)
	done := make(chan []srt.Translated, 1)

	go func() {
		defer close(pending)
		for _, g := range groups {
			select {
			case pending <- g:
			case <-ctx.Done():
				return
			}
		}
	}()

	var failed int
	go func() {
		defer close(done)
		i := 0
		for g := range pending {
			i++
			if ctx.Err() != nil {
				return
			}
			blob := Accumulate(client.Translate(ctx, Request{
				Text:         g.Text(),
				Language:     lang.Name,
				Code:         lang.Code(),
				Preset:       job.Preset,
				Instructions: instructions,
			}))
			if ctx.Err() != nil {
				return
			}
			out := s.assemble(g, blob, tokenizer)
			if blob.Failed() || out.failed {
				failed++
				log.Warn("group failed", zap.Int("group", i), zap.Int("segments", len(g)), zap.Error(out.err))
			} else {
				log.Debug("group translated", zap.Int("group", i), zap.Int("segments", len(g)))
			}
			select {
			case done <- out.segments:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		writeErr error
		written  int
	)
	for batch := range done {
		if writeErr != nil {
			continue
		}
		if err := writeBatch(w, batch); err != nil {
			writeErr = fmt.Errorf("write output: %w", err)
			cancel()
			continue
		}
		written++
	}

	summary := Summary{Segments: len(segments), Groups: len(groups), FailedGroups: failed}
	switch {
	case writeErr != nil:
		log.Warn("translation aborted", zap.Error(writeErr))
		return summary, writeErr
	case written < len(groups) && ctx.Err() != nil:
		log.Info("translation cancelled", zap.Int("written_groups", written))
		return summary, ctx.Err()
	}
	log.Info("translation finished", zap.Int("failed_groups", failed))
	return summary, nil
}

type assembled struct {
	segments []srt.Translated
	failed   bool
	err      error
}

func (s *Service) assemble(g Group, blob Blob, tok tokenize.Tokenizer) assembled {
	if !blob.Failed() {
		tokens, err := tok.Tokenize(blob.Text)
		if err != nil {
			blob = Blob{Err: fmt.Errorf("%w: %w", errTokenize, err)}
		} else {
			parts := Redistribute(tokens, g.Weights())
			out := make([]srt.Translated, len(g))
			for i, seg := range g {
				out[i] = srt.Translated{Segment: seg, Translation: parts[i]}
			}
			return assembled{segments: out}
		}
	}

	marker := blob.Marker()
	out := make([]srt.Translated, len(g))
	for i, seg := range g {
		out[i] = srt.Translated{Segment: seg, Translation: marker}
	}
	return assembled{segments: out, failed: true, err: blob.Err}
}

func writeBatch(w io.Writer, batch []srt.Translated) error {
	if err := srt.WriteAll(w, batch); err != nil {
		return err
	}
	switch f := w.(type) {
	case flusher:
		f.Flush()
	case errFlusher:
		return f.Flush()
	}
	return nil
}

// IsClientError reports whether err was caused by the job itself rather than the service.
func IsClientError(err error) bool {
	return errors.Is(err, srt.ErrMalformedInput) ||
		errors.Is(err, tokenize.ErrNoLanguage) ||
		errors.Is(err, ErrUnknownEngine)
}
