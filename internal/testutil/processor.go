// processor.go - Scripted report generator for tests
package testutil

import (
	"context"
	"sync"
)

// ProcessCall records one call to FakeProcessor.
type ProcessCall struct {
	Filename    string
	Concurrency int
	Mode        int
}

// FakeProcessor returns a scripted result. When Release is non-nil every
// call blocks until it is closed.
type FakeProcessor struct {
	Result  string
	Err     error
	Panic   interface{}
	Release chan struct{}

	mu    sync.Mutex
	calls []ProcessCall
}

// NewFakeProcessor creates a processor that returns result.
func NewFakeProcessor(result string) *FakeProcessor {
	return &FakeProcessor{Result: result}
}

// Process records the call and returns the scripted values.
func (p *FakeProcessor) Process(ctx context.Context, filename string, concurrency, mode int) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, ProcessCall{Filename: filename, Concurrency: concurrency, Mode: mode})
	p.mu.Unlock()

	if p.Release != nil {
		select {
		case <-p.Release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.Panic != nil {
		panic(p.Panic)
	}
	return p.Result, p.Err
}

// Calls returns a copy of the recorded calls.
func (p *FakeProcessor) Calls() []ProcessCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ProcessCall, len(p.calls))
	copy(out, p.calls)
	return out
}
