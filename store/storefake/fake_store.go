package storefake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/store"
)

var _ store.Store = (*FakeStore)(nil)

// FakeStore is an in-memory store whose operations can be made to fail.
type FakeStore struct {
	values  map[string]string
	failure error
	lock    sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{values: make(map[string]string)}
}

// SetFailure makes every following operation fail with err until it is
// cleared with nil.
func (fs *FakeStore) SetFailure(err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failure = err
}

func (fs *FakeStore) Get(_ context.Context, key string) (string, bool, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if fs.failure != nil {
		return "", false, fmt.Errorf("%w: %w", apperr.ErrIO, fs.failure)
	}
	v, ok := fs.values[key]
	return v, ok, nil
}

func (fs *FakeStore) Set(_ context.Context, key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if fs.failure != nil {
		return fmt.Errorf("%w: %w", apperr.ErrIO, fs.failure)
	}
	fs.values[key] = value
	return nil
}

func (fs *FakeStore) Remove(_ context.Context, key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if fs.failure != nil {
		return fmt.Errorf("%w: %w", apperr.ErrIO, fs.failure)
	}
	delete(fs.values, key)
	return nil
}

// Keys lists stored keys in sorted order.
func (fs *FakeStore) Keys() []string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	keys := make([]string, 0, len(fs.values))
	for k := range fs.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
