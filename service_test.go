package gateflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateflow/gateflow"
	"github.com/gateflow/gateflow/handler/shipping"
	"github.com/gateflow/gateflow/model/types"
	"github.com/gateflow/gateflow/policy"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/approval"
	"github.com/gateflow/gateflow/service/broker"
)

const waitTimeout = 2 * time.Second

func newRuntime(t *testing.T, options ...gateflow.Option) *gateflow.Runtime {
	t.Helper()
	srv := gateflow.New(options...)
	rt := srv.Runtime()
	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	t.Cleanup(func() { _ = rt.Shutdown(ctx) })
	return rt
}

func denyAllPolicy() *policy.Policy {
	return &policy.Policy{Mode: policy.ModeDeny}
}

func order(numContainers int, destination string) map[string]interface{} {
	return map[string]interface{}{
		"numContainers": numContainers,
		"destination":   destination,
	}
}

func shippingOutput(t *testing.T, out *invocation.Output) *shipping.Output {
	t.Helper()
	result, ok := out.Output["output"].(*shipping.Output)
	require.True(t, ok, "expected shipping output, got %T", out.Output["output"])
	return result
}

func TestRuntime_SmallOrderAutoApproved(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	_, wait, err := rt.Submit(ctx, "shipping", "placeOrder", order(3, "Singapore"), "")
	require.NoError(t, err)

	out, err := wait(ctx, waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, invocation.StateCompleted, out.State)
	assert.Equal(t, "approved", out.Output["status"])

	result := shippingOutput(t, out)
	assert.Equal(t, types.StatusApproved, result.Status)
	assert.Equal(t, "ORD-3-AUTO", result.OrderID)
}

func TestRuntime_LargeOrderApproved(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	inv, wait, err := rt.Submit(ctx, "shipping", "placeOrder", order(10, "Rotterdam"), "")
	require.NoError(t, err)

	out, err := wait(ctx, waitTimeout)
	require.NoError(t, err)
	require.Equal(t, invocation.StatePaused, out.State)

	checkpoint, err := rt.Detect(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, "Large order: 10 containers to Rotterdam. Approve?", checkpoint.Hint)
	assert.EqualValues(t, 10, checkpoint.Payload["numContainers"])

	pending, err := rt.PendingApprovals(ctx, approval.WithInvocationID(inv.ID))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "shipping.placeOrder", pending[0].Action)

	settled, err := rt.Resume(ctx, inv.ID, checkpoint.ID, true, "", "reviewer", waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, invocation.StateCompleted, settled.GetState())

	result, ok := settled.Output["output"].(*shipping.Output)
	require.True(t, ok)
	assert.Equal(t, types.StatusApproved, result.Status)
	assert.Equal(t, "ORD-10-HUMAN", result.OrderID)
}

func TestRuntime_LargeOrderRejected(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	inv, wait, err := rt.Submit(ctx, "shipping", "placeOrder", order(7, "Oslo"), "")
	require.NoError(t, err)

	out, err := wait(ctx, waitTimeout)
	require.NoError(t, err)
	require.Equal(t, invocation.StatePaused, out.State)

	checkpoint, err := rt.Detect(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)

	settled, err := rt.Resume(ctx, inv.ID, checkpoint.ID, false, "capacity exceeded", "reviewer", waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, invocation.StateCompleted, settled.GetState())

	result, ok := settled.Output["output"].(*shipping.Output)
	require.True(t, ok)
	assert.Equal(t, types.StatusRejected, result.Status)
	assert.Empty(t, result.OrderID)
}

func TestRuntime_MismatchedApprovalID(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	inv, wait, err := rt.Submit(ctx, "shipping", "placeOrder", order(9, "Hamburg"), "")
	require.NoError(t, err)

	out, err := wait(ctx, waitTimeout)
	require.NoError(t, err)
	require.Equal(t, invocation.StatePaused, out.State)

	_, err = rt.Resolve(ctx, inv.ID, "bogus-approval-id", true, "", "reviewer")
	assert.ErrorIs(t, err, broker.ErrApprovalMismatch)

	// The pause is untouched; the correct approval ID still resolves.
	checkpoint, err := rt.Detect(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	_, err = rt.Resolve(ctx, inv.ID, checkpoint.ID, true, "", "reviewer")
	assert.NoError(t, err)
}

func TestRuntime_DuplicateDecision(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	inv, wait, err := rt.Submit(ctx, "shipping", "placeOrder", order(6, "Antwerp"), "")
	require.NoError(t, err)

	out, err := wait(ctx, waitTimeout)
	require.NoError(t, err)
	require.Equal(t, invocation.StatePaused, out.State)

	checkpoint, err := rt.Detect(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)

	decision, err := rt.Resolve(ctx, inv.ID, checkpoint.ID, true, "", "first")
	require.NoError(t, err)
	assert.True(t, decision.Approved)

	// A redelivery of the same decision is absorbed without error.
	replay, err := rt.Resolve(ctx, inv.ID, checkpoint.ID, true, "", "first")
	require.NoError(t, err)
	assert.True(t, replay.Approved)

	// The first decision stands; a contradictory retry is rejected.
	_, err = rt.Resolve(ctx, inv.ID, checkpoint.ID, false, "", "second")
	assert.ErrorIs(t, err, broker.ErrDuplicateDecision)
}

func TestRuntime_ValidationErrorFails(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	_, wait, err := rt.Submit(ctx, "shipping", "placeOrder", order(4, ""), "")
	require.NoError(t, err)

	out, err := wait(ctx, waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, invocation.StateFailed, out.State)
	assert.Contains(t, out.Errors["shipping.placeOrder"], "destination")
}

func TestRuntime_DefaultPolicyDenies(t *testing.T) {
	config := gateflow.DefaultConfig()
	rt := newRuntime(t, gateflow.WithConfig(config), gateflow.WithPolicy(denyAllPolicy()))
	ctx := context.Background()

	_, wait, err := rt.Submit(ctx, "shipping", "placeOrder", order(2, "Lisbon"), "")
	require.NoError(t, err)

	out, err := wait(ctx, waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, invocation.StateFailed, out.State)
	assert.Contains(t, out.Errors["shipping.placeOrder"], "blocked by policy")
}
