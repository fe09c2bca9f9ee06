package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen keys so exact re-deliveries are processed at most once.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so it can be processed again, e.g. after a failed dispatch.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key string
	seq uint64
}

// inMemoryDeduper keeps keys in a map. In bounded mode the oldest key is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64 // key -> insertion sequence
	order   []entry           // insertion order, compacted lazily
	seq     uint64
	maxSize int // 0 or negative = unbounded
}

// NewInMemoryDeduper creates an in-memory Deduper.
func NewInMemoryDeduper(opts ...SeenOption) Deduper {
	d := &inMemoryDeduper{maxSize: defaultSeenMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize && len(d.order) > 0 {
			d.evictOldest()
		}
	}
	d.seq++
	d.seen[key] = d.seq
	d.order = append(d.order, entry{key: key, seq: d.seq})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	// Stale entries in order are skipped on eviction.
	if len(d.order) > 2*len(d.seen)+16 {
		d.compact()
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// evictOldest drops the earliest live key. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for len(d.order) > 0 {
		e := d.order[0]
		d.order = d.order[1:]
		if d.live(e) {
			delete(d.seen, e.key)
			return
		}
	}
}

func (d *inMemoryDeduper) live(e entry) bool {
	seq, ok := d.seen[e.key]
	return ok && seq == e.seq
}

// compact rebuilds order from live keys. Must be called with d.mu held.
func (d *inMemoryDeduper) compact() {
	live := make([]entry, 0, len(d.seen))
	for _, e := range d.order {
		if d.live(e) {
			live = append(live, e)
		}
	}
	d.order = live
}
