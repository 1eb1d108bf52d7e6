package testutil

import (
	"context"
	"errors"
	"io"
	"sync"

	"sari-go/internal/images"
	"sari-go/internal/inventory"
)

// ErrInjected is returned by FaultyImageStore for the operations told to fail.
var ErrInjected = errors.New("injected failure")

// FaultyImageStore wraps a MemoryStore, failing chosen operations and
// counting calls so tests can assert the store was (or was not) touched.
type FaultyImageStore struct {
	*images.MemoryStore

	mu         sync.Mutex
	FailSave   bool
	FailDelete bool
	calls      int
}

var _ inventory.ImageStore = (*FaultyImageStore)(nil)

func NewFaultyImageStore() *FaultyImageStore {
	return &FaultyImageStore{MemoryStore: images.NewMemoryStore()}
}

func (f *FaultyImageStore) record() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

// Calls returns how many Save, Get, Exists and Delete calls were made.
func (f *FaultyImageStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FaultyImageStore) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	f.record()
	if f.FailSave {
		return "", ErrInjected
	}
	return f.MemoryStore.Save(ctx, name, r, size)
}

func (f *FaultyImageStore) Get(ctx context.Context, name string, w io.Writer) error {
	f.record()
	return f.MemoryStore.Get(ctx, name, w)
}

func (f *FaultyImageStore) Exists(ctx context.Context, name string) (bool, error) {
	f.record()
	return f.MemoryStore.Exists(ctx, name)
}

func (f *FaultyImageStore) Delete(ctx context.Context, name string) error {
	f.record()
	if f.FailDelete {
		return ErrInjected
	}
	return f.MemoryStore.Delete(ctx, name)
}
