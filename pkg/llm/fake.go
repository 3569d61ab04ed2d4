package llm

import (
	"context"
	"sync"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// FakeClient is a deterministic, in-process Client for tests: it returns
// canned responses from a queue, or calls a custom responder function if
// set, without making any network call.
type FakeClient struct {
	mu        sync.Mutex
	Responses []CompletionResponse
	Err       error
	Responder func(CompletionRequest) (CompletionResponse, error)
	Calls     []CompletionRequest
}

func NewFakeClient(responses ...CompletionResponse) *FakeClient {
	return &FakeClient{Responses: responses}
}

func (f *FakeClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, req)

	if f.Responder != nil {
		return f.Responder(req)
	}
	if f.Err != nil {
		return CompletionResponse{}, f.Err
	}
	if len(f.Responses) == 0 {
		return CompletionResponse{}, errs.InternalError("fake client: no responses queued", nil)
	}
	resp := f.Responses[0]
	f.Responses = f.Responses[1:]
	return resp, nil
}
