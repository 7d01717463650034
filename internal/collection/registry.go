package collection

import (
	"net/url"
	"path/filepath"

	"github.com/sudhishp/kestrel/internal/pqueue"
)

// registry is the authoritative mapping from realName to live PersistentQueue
// handle, plus the master->children bookkeeping index. It holds no lock of
// its own: every method assumes the caller already holds Collection's single
// coarse mutex guarding registry, alias, and fanout-index state together.
type registry struct {
	queues map[string]*pqueue.Queue
	fanout map[string]map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		queues: make(map[string]*pqueue.Queue),
		fanout: make(map[string]map[string]struct{}),
	}
}

func (r *registry) lookup(name string) *pqueue.Queue {
	return r.queues[name]
}

func (r *registry) put(n Name, q *pqueue.Queue) {
	r.queues[n.Raw] = q
	if n.IsFanoutChild {
		set := r.fanout[n.Master]
		if set == nil {
			set = make(map[string]struct{})
			r.fanout[n.Master] = set
		}
		set[n.Raw] = struct{}{}
	}
}

func (r *registry) remove(n Name) {
	delete(r.queues, n.Raw)
	if n.IsFanoutChild {
		if set, ok := r.fanout[n.Master]; ok {
			delete(set, n.Raw)
			if len(set) == 0 {
				delete(r.fanout, n.Master)
			}
		}
	}
}

func (r *registry) children(master string) []string {
	set := r.fanout[master]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// snapshot returns a shallow copy of the queue map, safe for the caller to
// range over after releasing the lock.
func (r *registry) snapshot() map[string]*pqueue.Queue {
	out := make(map[string]*pqueue.Queue, len(r.queues))
	for k, v := range r.queues {
		out[k] = v
	}
	return out
}

// clear empties the registry and returns every handle it held, for shutdown
// to close outside the lock.
func (r *registry) clear() []*pqueue.Queue {
	out := make([]*pqueue.Queue, 0, len(r.queues))
	for _, q := range r.queues {
		out = append(out, q)
	}
	r.queues = make(map[string]*pqueue.Queue)
	r.fanout = make(map[string]map[string]struct{})
	return out
}

// diskPath percent-encodes '+' so a fanout child ("master+tag") and a plain
// queue never collide as directory names, and the encoding round-trips
// cleanly when the root directory is rescanned at boot.
func diskPath(root, realName string) string {
	return filepath.Join(root, url.QueryEscape(realName))
}

// nameFromDiskEntry reverses diskPath's encoding for a directory entry found
// during the boot scan.
func nameFromDiskEntry(entry string) (string, error) {
	return url.QueryUnescape(entry)
}
