package correlation

import "context"

// DAO abstracts persistence operations for checkpoints so that the broker
// can recover its in-memory state after a restart.
type DAO interface {
	Save(ctx context.Context, c *Checkpoint) error
	Load(ctx context.Context, id string) (*Checkpoint, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Checkpoint, error)
}
