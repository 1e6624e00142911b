package testutil

import (
	"context"
	"sync"

	"github.com/killallgit/pawnassist/pkg/llm"
)

// FakeTransport is an llm.Transport replaying a scripted list of chunks
type FakeTransport struct {
	mu        sync.Mutex
	chunks    []string
	openErr   error
	streamErr error
	steps     chan struct{}
	hold      chan struct{}
	requests  []llm.Request
	cancelled int
}

// NewFakeTransport creates a transport that streams chunks and completes
func NewFakeTransport(chunks ...string) *FakeTransport {
	return &FakeTransport{chunks: chunks}
}

// Script replaces the chunks streamed by later calls
func (f *FakeTransport) Script(chunks ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = chunks
}

// RejectWith makes Stream fail immediately with err
func (f *FakeTransport) RejectWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

// FailAfterChunks makes the stream end with err once the chunks are sent
func (f *FakeTransport) FailAfterChunks(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamErr = err
}

// Step makes every chunk wait for one receive on the returned channel
func (f *FakeTransport) Step() chan<- struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = make(chan struct{})
	return f.steps
}

// Hold keeps streams open after their chunks until release is called
func (f *FakeTransport) Hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold := make(chan struct{})
	f.hold = hold
	var once sync.Once
	return func() { once.Do(func() { close(hold) }) }
}

// Stream implements llm.Transport
func (f *FakeTransport) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	chunks := append([]string(nil), f.chunks...)
	openErr, streamErr := f.openErr, f.streamErr
	steps, hold := f.steps, f.hold
	f.mu.Unlock()

	if openErr != nil {
		return nil, openErr
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)

		for _, c := range chunks {
			if steps != nil {
				select {
				case <-steps:
				case <-ctx.Done():
					f.markCancelled()
					return
				}
			}
			select {
			case out <- llm.Chunk{Content: c}:
			case <-ctx.Done():
				f.markCancelled()
				return
			}
		}

		if hold != nil {
			select {
			case <-hold:
			case <-ctx.Done():
				f.markCancelled()
				return
			}
		}

		if streamErr != nil {
			select {
			case out <- llm.Chunk{Err: streamErr}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func (f *FakeTransport) markCancelled() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
}

// Requests returns every request received so far
func (f *FakeTransport) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Calls returns how many times Stream was invoked
func (f *FakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Cancelled returns how many streams stopped because their context ended
func (f *FakeTransport) Cancelled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}
