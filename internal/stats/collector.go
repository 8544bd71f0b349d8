package stats

import "sync"

// Collector keeps in-process usage counters per provider. Purely
// operational: counters reset on restart and nothing the relay emits depends
// on them.
type Collector struct {
	mu    sync.RWMutex
	usage map[string]*Usage
}

type Usage struct {
	Requests int64 `json:"requests"`
	Frames   int64 `json:"frames"`
	Failures int64 `json:"failures"`
}

func NewCollector() *Collector {
	return &Collector{usage: make(map[string]*Usage)}
}

func (c *Collector) RecordRequest(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(provider).Requests++
}

func (c *Collector) RecordFrame(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(provider).Frames++
}

func (c *Collector) RecordFailure(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(provider).Failures++
}

// get assumes the write lock is held.
func (c *Collector) get(provider string) *Usage {
	u, ok := c.usage[provider]
	if !ok {
		u = &Usage{}
		c.usage[provider] = u
	}
	return u
}

// Snapshot returns a copy safe to serialize.
func (c *Collector) Snapshot() map[string]Usage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Usage, len(c.usage))
	for name, u := range c.usage {
		out[name] = *u
	}
	return out
}
