package testsupport

import (
	"context"
	"errors"
	"sync"

	"voicequeue/internal/ttsclient"
)

// FakeTTS is an in-memory ttsclient.Service. Texts listed in Failures fail
// with the mapped message; everything else succeeds with DurationMS.
type FakeTTS struct {
	mu sync.Mutex

	Failures   map[string]string
	BatchErr   error
	CreditsErr error
	Credits    int
	DurationMS int64

	// Gate, when non-nil, blocks every call until a value is received or the
	// channel is closed. Started receives the text of each call as it begins.
	Gate    chan struct{}
	Started chan string

	calls       []ttsclient.SynthesizeRequest
	batches     []ttsclient.BatchRequest
	creditCalls int
	handler     func(ttsclient.Event)
	closed      bool
}

// NewFakeTTS returns a fake with a positive credit balance.
func NewFakeTTS() *FakeTTS {
	return &FakeTTS{Credits: 10000, DurationMS: 1500, Failures: map[string]string{}}
}

// Synthesize implements ttsclient.Service.
func (f *FakeTTS) Synthesize(ctx context.Context, req ttsclient.SynthesizeRequest) (ttsclient.SynthesizeResult, error) {
	f.announce(req.Text)
	if err := f.wait(ctx); err != nil {
		return ttsclient.SynthesizeResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if msg, ok := f.Failures[req.Text]; ok {
		return ttsclient.SynthesizeResult{}, &ttsclient.ServiceError{Detail: msg}
	}
	f.Credits -= len(req.Text)
	return ttsclient.SynthesizeResult{
		OutputPath:     req.OutputPath,
		DurationMS:     f.DurationMS,
		CharactersUsed: len(req.Text),
	}, nil
}

// SynthesizeBatch implements ttsclient.Service.
func (f *FakeTTS) SynthesizeBatch(ctx context.Context, req ttsclient.BatchRequest) (ttsclient.BatchResult, error) {
	f.announce("batch")
	if err := f.wait(ctx); err != nil {
		return ttsclient.BatchResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, req)
	if f.BatchErr != nil {
		return ttsclient.BatchResult{}, f.BatchErr
	}
	results := make([]ttsclient.BatchItemResult, 0, len(req.Items))
	for _, item := range req.Items {
		if msg, ok := f.Failures[item.Text]; ok {
			results = append(results, ttsclient.BatchItemResult{ID: item.ID, Error: msg})
			continue
		}
		f.Credits -= len(item.Text)
		results = append(results, ttsclient.BatchItemResult{
			ID:         item.ID,
			Success:    true,
			OutputPath: item.OutputPath,
			DurationMS: f.DurationMS,
		})
	}
	return ttsclient.BatchResult{Results: results}, nil
}

// CreditBalance implements ttsclient.Service.
func (f *FakeTTS) CreditBalance(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditCalls++
	if f.CreditsErr != nil {
		return 0, f.CreditsErr
	}
	return f.Credits, nil
}

// Subscribe records the handler so tests can push events with Emit.
func (f *FakeTTS) Subscribe(_ context.Context, handler func(ttsclient.Event)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return nil
}

// Emit delivers ev to the subscribed handler, if any.
func (f *FakeTTS) Emit(ev ttsclient.Event) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// Ping implements ttsclient.Service.
func (f *FakeTTS) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("fake tts closed")
	}
	return nil
}

// Close implements ttsclient.Service.
func (f *FakeTTS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Calls returns the single-item requests received so far.
func (f *FakeTTS) Calls() []ttsclient.SynthesizeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ttsclient.SynthesizeRequest(nil), f.calls...)
}

// Batches returns the batch requests received so far.
func (f *FakeTTS) Batches() []ttsclient.BatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ttsclient.BatchRequest(nil), f.batches...)
}

// CreditCalls reports how many balance lookups were made.
func (f *FakeTTS) CreditCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creditCalls
}

func (f *FakeTTS) announce(text string) {
	if f.Started == nil {
		return
	}
	select {
	case f.Started <- text:
	default:
	}
}

func (f *FakeTTS) wait(ctx context.Context) error {
	if f.Gate == nil {
		return nil
	}
	select {
	case <-f.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
