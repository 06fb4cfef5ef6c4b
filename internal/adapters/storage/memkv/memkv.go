// Package memkv is a process-local key-value namespace. Values are copied on
// the way in and out so callers cannot alias stored bytes.
package memkv

import (
	"context"
	"sync"
)

type Namespace struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Namespace {
	return &Namespace{data: make(map[string][]byte)}
}

func (n *Namespace) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (n *Namespace) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	n.data[key] = append([]byte(nil), value...)
	n.mu.Unlock()
	return nil
}
