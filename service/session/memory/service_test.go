package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateflow/gateflow/model/types"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/session"
)

func TestService_Lifecycle(t *testing.T) {
	svc := New()
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "user", "s1")
	assert.Error(t, err)

	sess, err := svc.Create(ctx, "shipping", "user", "s1")
	require.NoError(t, err)

	// create is idempotent per (app, user, id)
	again, err := svc.Create(ctx, "shipping", "user", "s1")
	require.NoError(t, err)
	assert.Same(t, sess, again)

	_, err = svc.Get(ctx, "shipping", "user", "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)

	sess.Set("destination", "Rotterdam")
	got, err := svc.Get(ctx, "shipping", "user", "s1")
	require.NoError(t, err)
	value, ok := got.Get("destination")
	assert.True(t, ok)
	assert.Equal(t, "Rotterdam", value)

	require.NoError(t, svc.Delete(ctx, "shipping", "user", "s1"))
	assert.ErrorIs(t, svc.Delete(ctx, "shipping", "user", "s1"), session.ErrNotFound)
}

func TestSession_PendingConfirmation(t *testing.T) {
	sess := session.New("shipping", "user", "s1")
	assert.Nil(t, sess.PendingConfirmation())

	marker := invocation.NewConfirmationRequested("inv-1", "appr-1", &types.Pause{Hint: "Approve?"})
	sess.AppendEvents(marker)

	pending := sess.PendingConfirmation()
	require.NotNil(t, pending)
	assert.Equal(t, "appr-1", pending.ApprovalID)

	marker.Consumed = true
	assert.Nil(t, sess.PendingConfirmation())
}
