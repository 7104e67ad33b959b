package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var ErrMockFailure = errors.New("mock blob store failure")

// MockBlobStore is an in-memory BlobStore whose calls can be made to fail.
type MockBlobStore struct {
	mtx   sync.Mutex
	blobs map[string][]byte

	FailPut bool
	FailGet bool
}

var _ BlobStore = (*MockBlobStore)(nil)

func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{blobs: make(map[string][]byte)}
}

func (mock *MockBlobStore) Put(ctx context.Context, name string, v interface{}) (string, error) {
	mock.mtx.Lock()
	defer mock.mtx.Unlock()
	if mock.FailPut {
		return "", ErrMockFailure
	}
	content, hash, err := EncodeBlob(v)
	if err != nil {
		return "", err
	}
	mock.blobs[hash] = content
	return hash, nil
}

func (mock *MockBlobStore) Get(ctx context.Context, hash string, v interface{}) error {
	mock.mtx.Lock()
	defer mock.mtx.Unlock()
	if mock.FailGet {
		return ErrMockFailure
	}
	content, ok := mock.blobs[hash]
	if !ok {
		return errors.Wrapf(ErrBlobNotFound, "%s", hash)
	}
	return decodeBlob(hash, content, v)
}

func (mock *MockBlobStore) Len() int {
	mock.mtx.Lock()
	defer mock.mtx.Unlock()
	return len(mock.blobs)
}
