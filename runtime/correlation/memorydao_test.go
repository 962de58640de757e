package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryDAO(t *testing.T) {
	dao := NewMemoryDAO()
	ctx := context.Background()

	c := &Checkpoint{ID: "appr-1", InvocationID: "inv-1"}
	assert.NoError(t, dao.Save(ctx, c))

	loaded, _ := dao.Load(ctx, "appr-1")
	assert.Equal(t, c, loaded)

	list, _ := dao.List(ctx)
	assert.Len(t, list, 1)

	assert.NoError(t, dao.Delete(ctx, "appr-1"))
	loaded, _ = dao.Load(ctx, "appr-1")
	assert.Nil(t, loaded)
}

func TestCheckpoint_ConsumeOnce(t *testing.T) {
	c := &Checkpoint{ID: "appr-1", InvocationID: "inv-1"}
	assert.False(t, c.Consumed())

	_, _, ok := c.Decision()
	assert.False(t, ok)

	assert.True(t, c.Consume(true, "reviewer"))
	assert.True(t, c.Consumed())

	// second decision does not overwrite the first
	assert.False(t, c.Consume(false, "other"))
	confirmed, decidedBy, ok := c.Decision()
	assert.True(t, ok)
	assert.True(t, confirmed)
	assert.Equal(t, "reviewer", decidedBy)
}

func TestStore_ByInvocation(t *testing.T) {
	store := NewStore()
	a := store.Create(&Checkpoint{ID: "appr-1", InvocationID: "inv-1"})
	store.Create(&Checkpoint{ID: "appr-2", InvocationID: "inv-2"})

	outstanding := store.ByInvocation("inv-1")
	assert.Len(t, outstanding, 1)
	assert.Same(t, a, outstanding[0])

	a.Consume(true, "")
	assert.Empty(t, store.ByInvocation("inv-1"))
}
