package translate

import (
	"context"
	"iter"
	"sync"
)

// scriptedClient answers each call with the fragments and error returned by respond.
type scriptedClient struct {
	name    string
	respond func(call int, req Request) ([]string, error)

	mu    sync.Mutex
	calls []Request
}

func (c *scriptedClient) Name() string {
	if c.name == "" {
		return "scripted"
	}
	return c.name
}

func (c *scriptedClient) Translate(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c.mu.Lock()
		c.calls = append(c.calls, req)
		call := len(c.calls)
		c.mu.Unlock()

		frags, err := c.respond(call, req)
		for _, f := range frags {
			if !yield(f, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *scriptedClient) requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Request(nil), c.calls...)
}
