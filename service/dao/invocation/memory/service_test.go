package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/dao"
)

func TestService_CRUD(t *testing.T) {
	svc := New()
	ctx := context.Background()

	assert.ErrorIs(t, svc.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, svc.Save(ctx, &invocation.Invocation{}), dao.ErrInvalidID)

	inv := invocation.NewInvocation("inv-1", "shipping", "sess-1")
	require.NoError(t, svc.Save(ctx, inv))

	loaded, err := svc.Load(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "shipping", loaded.Name)

	_, err = svc.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	// save of an existing invocation merges state in place
	updated := inv.Clone()
	updated.SetState(invocation.StatePaused)
	require.NoError(t, svc.Save(ctx, updated))
	loaded, err = svc.Load(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invocation.StatePaused, loaded.GetState())

	list, err := svc.List(ctx, dao.NewParameter("State", invocation.StatePaused))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.List(ctx, dao.NewParameter("State", invocation.StateRunning))
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, svc.Delete(ctx, "inv-1"))
	assert.ErrorIs(t, svc.Delete(ctx, "inv-1"), dao.ErrNotFound)
}
