package correlation

import (
	"context"
	"sync"
)

// MemoryDAO stores checkpoints purely in memory; useful for unit tests and
// single-instance deployments.
type MemoryDAO struct {
	mu          sync.RWMutex
	checkpoints map[string]*Checkpoint
}

func NewMemoryDAO() *MemoryDAO {
	return &MemoryDAO{checkpoints: make(map[string]*Checkpoint)}
}

func (d *MemoryDAO) Save(_ context.Context, c *Checkpoint) error {
	if c == nil {
		return nil
	}
	d.mu.Lock()
	d.checkpoints[c.ID] = c
	d.mu.Unlock()
	return nil
}

func (d *MemoryDAO) Load(_ context.Context, id string) (*Checkpoint, error) {
	d.mu.RLock()
	c := d.checkpoints[id]
	d.mu.RUnlock()
	return c, nil
}

func (d *MemoryDAO) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	delete(d.checkpoints, id)
	d.mu.Unlock()
	return nil
}

func (d *MemoryDAO) List(_ context.Context) ([]*Checkpoint, error) {
	d.mu.RLock()
	out := make([]*Checkpoint, 0, len(d.checkpoints))
	for _, c := range d.checkpoints {
		out = append(out, c)
	}
	d.mu.RUnlock()
	return out, nil
}
