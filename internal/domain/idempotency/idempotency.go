// Package idempotency maps client idempotency keys to solve IDs so a
// retried submission returns the original solve instead of a new one.
package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
)

// Registry remembers which solve a key produced.
type Registry interface {
	// Claim atomically binds key to id unless key is already bound.
	// It returns the bound id and whether key was already present.
	Claim(ctx context.Context, key, id string) (string, bool)

	// Release unbinds key, used when the claimed submission was rejected
	// (e.g. queue backpressure) so the client may retry with the same key.
	Release(ctx context.Context, key string)

	Size() int64
}

// node is one binding in the insertion-ordered list.
type node struct {
	key        string
	id         string
	prev, next *node
}

func (n *node) reset() {
	*n = node{}
}

// inMemoryRegistry keeps bindings in a map plus a doubly linked list in
// insertion order. When bounded, the oldest binding is evicted first.
type inMemoryRegistry struct {
	mu       sync.Mutex
	keys     map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int   // 0 or negative = unbounded
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryRegistry creates a registry with configuration options.
func NewInMemoryRegistry(opts ...Option) Registry {
	r := &inMemoryRegistry{
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.keys = make(map[string]*node)
	r.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return r
}

func (r *inMemoryRegistry) Claim(_ context.Context, key, id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.keys[key]; ok {
		return n.id, true
	}

	if r.maxSize > 0 && len(r.keys) >= r.maxSize {
		r.evictOldest()
	}

	n := r.nodePool.Get().(*node)
	n.key, n.id = key, id
	n.next = r.head
	if r.head != nil {
		r.head.prev = n
	}
	r.head = n
	if r.tail == nil {
		r.tail = n
	}
	r.keys[key] = n
	r.size.Add(1)
	return id, false
}

func (r *inMemoryRegistry) Release(_ context.Context, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.keys[key]; ok {
		r.unlink(n)
	}
}

// evictOldest must be called with r.mu held.
func (r *inMemoryRegistry) evictOldest() {
	if r.tail != nil {
		r.unlink(r.tail)
	}
}

// unlink must be called with r.mu held.
func (r *inMemoryRegistry) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		r.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		r.tail = n.prev
	}
	delete(r.keys, n.key)
	n.reset()
	r.nodePool.Put(n)
	r.size.Add(-1)
}

// Size returns the number of bound keys.
func (r *inMemoryRegistry) Size() int64 {
	return r.size.Load()
}
