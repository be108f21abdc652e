package store

import (
	"strconv"
	"sync"
	"time"
)

// idSource issues record ids from the creation time in milliseconds. An id
// is never issued twice by one process: a second request in the same
// millisecond, or after the clock steps back, takes the next free value.
type idSource struct {
	mu   sync.Mutex
	last int64
}

func (g *idSource) next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// observe keeps later ids above an existing numeric id.
func (g *idSource) observe(id string) {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	if ms > g.last {
		g.last = ms
	}
	g.mu.Unlock()
}
