package historycache

import (
	"context"
	"errors"
	"sync"
)

// fakeExternalCache is an in-process stand-in for a real keyed-list cache,
// used so Cache's logic can be exercised without a live Redis, following the
// retrieved pack's practice of pairing go-redis with an in-memory test
// double (e.g. alicebob/miniredis) rather than hitting the network in unit
// tests.
type fakeExternalCache struct {
	mu      sync.Mutex
	lists   map[string][]string
	failing bool
}

func newFakeExternalCache() *fakeExternalCache {
	return &fakeExternalCache{lists: make(map[string][]string)}
}

var errFakeCacheDown = errors.New("fake cache unavailable")

func (f *fakeExternalCache) LPush(_ context.Context, key string, values ...string) error {
	if f.failing {
		return errFakeCacheDown
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.lists[key] = append([]string{v}, f.lists[key]...)
	}
	return nil
}

func (f *fakeExternalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	if f.failing {
		return errFakeCacheDown
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.lists[key]
	if stop+1 < int64(len(list)) {
		list = list[:stop+1]
	}
	if start > 0 && start < int64(len(list)) {
		list = list[start:]
	}
	f.lists[key] = list
	return nil
}

func (f *fakeExternalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	if f.failing {
		return nil, errFakeCacheDown
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.lists[key]
	if len(list) == 0 {
		return nil, nil
	}
	end := stop + 1
	if end > int64(len(list)) || stop < 0 {
		end = int64(len(list))
	}
	if start >= int64(len(list)) {
		return nil, nil
	}
	out := make([]string, end-start)
	copy(out, list[start:end])
	return out, nil
}

func (f *fakeExternalCache) Expire(_ context.Context, key string, ttlSeconds int) error {
	if f.failing {
		return errFakeCacheDown
	}
	return nil
}
