package contracts

import (
	"context"
	"sync"
)

// MockAPI forwards to an API and lets tests replace the answer of single
// callables.
type MockAPI struct {
	mtx sync.Mutex

	api       API
	overrides map[string]*Response
	requests  []Request
}

var _ API = (*MockAPI)(nil)

func NewMockAPI(api API) *MockAPI {
	return &MockAPI{api: api, overrides: make(map[string]*Response)}
}

// Respond makes callable answer with res.
func (mock *MockAPI) Respond(callable string, res *Response) {
	mock.mtx.Lock()
	defer mock.mtx.Unlock()
	mock.overrides[callable] = res
}

func (mock *MockAPI) GetResponse(ctx context.Context, req Request) (*Response, error) {
	mock.mtx.Lock()
	mock.requests = append(mock.requests, req)
	res, ok := mock.overrides[req.Callable]
	mock.mtx.Unlock()

	if ok {
		return res, nil
	}
	return mock.api.GetResponse(ctx, req)
}

func (mock *MockAPI) Requests() []Request {
	mock.mtx.Lock()
	defer mock.mtx.Unlock()
	out := make([]Request, len(mock.requests))
	copy(out, mock.requests)
	return out
}
