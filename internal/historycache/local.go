package historycache

import (
	"context"
	"sync"
)

// LocalCache is an in-process, non-durable ExternalCache used when no
// external cache URL is configured. It gives a Cache a working external
// backing store for local development without a live Redis, at the cost of
// losing history across restarts.
type LocalCache struct {
	mu    sync.Mutex
	lists map[string][]string
}

// NewLocalCache returns a ready, empty LocalCache.
func NewLocalCache() *LocalCache {
	return &LocalCache{lists: make(map[string][]string)}
}

func (l *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range values {
		l.lists[key] = append([]string{v}, l.lists[key]...)
	}
	return nil
}

func (l *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := l.lists[key]
	if stop+1 < int64(len(list)) {
		list = list[:stop+1]
	}
	if start > 0 && start < int64(len(list)) {
		list = list[start:]
	}
	l.lists[key] = list
	return nil
}

func (l *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := l.lists[key]
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

func (l *LocalCache) Expire(context.Context, string, int) error { return nil }
