package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateflow/gateflow/handler"
	"github.com/gateflow/gateflow/handler/shipping"
	"github.com/gateflow/gateflow/model/types"
	"github.com/gateflow/gateflow/policy"
	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	apmem "github.com/gateflow/gateflow/service/approval/memory"
	invmem "github.com/gateflow/gateflow/service/dao/invocation/memory"
	"github.com/gateflow/gateflow/service/dao/store"
	"github.com/gateflow/gateflow/service/executor"
	qmem "github.com/gateflow/gateflow/service/messaging/memory"
)

func newTestEngine(t *testing.T, options ...Option) *Service {
	t.Helper()

	registry := handler.New()
	registry.Register(shipping.New())

	queue := qmem.NewQueue[invocation.OperationRequest](qmem.DefaultConfig())
	invocationDAO := invmem.New()
	operationDAO := store.NewMemoryStore[string, invocation.OperationRequest](
		func(o *invocation.OperationRequest) string { return o.ID },
	)

	// The approval service shares the engine checkpoint store so a decision
	// consumes the matching checkpoint.
	checkpoints := correlation.NewStore()
	approvals := apmem.New(operationDAO,
		apmem.WithInvocationDAO(invocationDAO),
		apmem.WithOperationQueue(queue),
		apmem.WithCheckpoints(checkpoints),
	)

	base := []Option{
		WithExecutor(executor.NewService(registry)),
		WithMessageQueue(queue),
		WithInvocationDAO(invocationDAO),
		WithOperationDAO(operationDAO),
		WithApprovals(approvals),
		WithCheckpoints(checkpoints),
		WithWorkers(2),
	}
	svc, err := New(append(base, options...)...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))
	t.Cleanup(func() {
		cancel()
		svc.Shutdown()
	})
	return svc
}

func waitForState(t *testing.T, svc *Service, invocationID, state string) *invocation.Invocation {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		inv, err := svc.GetInvocation(context.Background(), invocationID)
		require.NoError(t, err)
		if inv != nil && inv.GetState() == state {
			return inv
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("invocation %s did not reach state %s", invocationID, state)
	return nil
}

func TestService_SmallOrderCompletes(t *testing.T) {
	svc := newTestEngine(t)
	ctx := context.Background()

	inv, err := svc.StartInvocation(ctx, "shipping", "placeOrder", map[string]interface{}{
		"numContainers": 3,
		"destination":   "Singapore",
	}, "")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StateCompleted)
	assert.Equal(t, "approved", inv.Output["status"])

	output, ok := inv.Output["output"].(*shipping.Output)
	require.True(t, ok)
	assert.Equal(t, types.StatusApproved, output.Status)
	assert.Equal(t, "ORD-3-AUTO", output.OrderID)
	assert.Empty(t, svc.Checkpoints().ByInvocation(inv.ID))
}

func TestService_LargeOrderPausesAndResumes(t *testing.T) {
	svc := newTestEngine(t)
	ctx := context.Background()

	inv, err := svc.StartInvocation(ctx, "shipping", "placeOrder", map[string]interface{}{
		"numContainers": 10,
		"destination":   "Rotterdam",
	}, "")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StatePaused)

	outstanding := svc.Checkpoints().ByInvocation(inv.ID)
	require.Len(t, outstanding, 1)
	checkpoint := outstanding[0]
	assert.Equal(t, "Large order: 10 containers to Rotterdam. Approve?", checkpoint.Hint)
	assert.Equal(t, "shipping", checkpoint.Service)

	marker := inv.PendingConfirmation()
	require.NotNil(t, marker)
	assert.Equal(t, checkpoint.ID, marker.ApprovalID)

	paused := inv.PausedOperation()
	require.NotNil(t, paused)
	assert.Equal(t, checkpoint.ID, paused.ApprovalID)

	decision, err := svc.approvals.Decide(ctx, checkpoint.ID, true, "")
	require.NoError(t, err)
	assert.True(t, decision.Approved)

	inv = waitForState(t, svc, inv.ID, invocation.StateCompleted)
	output, ok := inv.Output["output"].(*shipping.Output)
	require.True(t, ok)
	assert.Equal(t, types.StatusApproved, output.Status)
	assert.Equal(t, "ORD-10-HUMAN", output.OrderID)
	assert.True(t, checkpoint.Consumed())
}

func TestService_LargeOrderRejected(t *testing.T) {
	svc := newTestEngine(t)
	ctx := context.Background()

	inv, err := svc.StartInvocation(ctx, "shipping", "placeOrder", map[string]interface{}{
		"numContainers": 8,
		"destination":   "Hamburg",
	}, "")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StatePaused)
	outstanding := svc.Checkpoints().ByInvocation(inv.ID)
	require.Len(t, outstanding, 1)

	_, err = svc.approvals.Decide(ctx, outstanding[0].ID, false, "too many containers")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StateCompleted)
	output, ok := inv.Output["output"].(*shipping.Output)
	require.True(t, ok)
	assert.Equal(t, types.StatusRejected, output.Status)
	assert.Empty(t, output.OrderID)
}

func TestService_ValidationErrorFailsWithoutRetry(t *testing.T) {
	svc := newTestEngine(t)
	ctx := context.Background()

	inv, err := svc.StartInvocation(ctx, "shipping", "placeOrder", map[string]interface{}{
		"numContainers": 0,
		"destination":   "Oslo",
	}, "")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StateFailed)
	assert.Contains(t, inv.Errors["shipping.placeOrder"], "numContainers")

	operation := inv.Peek()
	require.NotNil(t, operation)
	assert.Equal(t, 0, operation.Attempts)
}

func TestService_PolicyDenyBlocksOperation(t *testing.T) {
	svc := newTestEngine(t)
	ctx := policy.WithPolicy(context.Background(), &policy.Policy{Mode: policy.ModeDeny})

	inv, err := svc.StartInvocation(ctx, "shipping", "placeOrder", map[string]interface{}{
		"numContainers": 2,
		"destination":   "Lisbon",
	}, "")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StateFailed)
	assert.Contains(t, inv.Errors["shipping.placeOrder"], "blocked by policy")
}

func TestService_PolicyThresholdPausesBeforeHandler(t *testing.T) {
	svc := newTestEngine(t)
	pol := &policy.Policy{
		Mode: policy.ModeAsk,
		Thresholds: map[string]*policy.Threshold{
			"shipping.placeOrder": {Field: "numContainers", MaxAuto: 1},
		},
	}
	ctx := policy.WithPolicy(context.Background(), pol)

	// Two containers is under the handler threshold but over the policy one.
	inv, err := svc.StartInvocation(ctx, "shipping", "placeOrder", map[string]interface{}{
		"numContainers": 2,
		"destination":   "Antwerp",
	}, "")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StatePaused)
	outstanding := svc.Checkpoints().ByInvocation(inv.ID)
	require.Len(t, outstanding, 1)
	assert.Contains(t, outstanding[0].Hint, "shipping.placeOrder")

	_, err = svc.approvals.Decide(context.Background(), outstanding[0].ID, true, "")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StateCompleted)
	output, ok := inv.Output["output"].(*shipping.Output)
	require.True(t, ok)
	assert.Equal(t, types.StatusApproved, output.Status)
	assert.Equal(t, "ORD-2-HUMAN", output.OrderID)
}

func TestService_PolicyThresholdRejectionIsFinal(t *testing.T) {
	svc := newTestEngine(t)
	pol := &policy.Policy{
		Mode: policy.ModeAsk,
		Thresholds: map[string]*policy.Threshold{
			"shipping.placeOrder": {Field: "numContainers", MaxAuto: 1},
		},
	}
	ctx := policy.WithPolicy(context.Background(), pol)

	// Below the handler threshold, above the policy one; a rejection must
	// not be overridden by the handler's own auto-approval rule.
	inv, err := svc.StartInvocation(ctx, "shipping", "placeOrder", map[string]interface{}{
		"numContainers": 2,
		"destination":   "Gdansk",
	}, "")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StatePaused)
	outstanding := svc.Checkpoints().ByInvocation(inv.ID)
	require.Len(t, outstanding, 1)

	_, err = svc.approvals.Decide(context.Background(), outstanding[0].ID, false, "not allowed")
	require.NoError(t, err)

	inv = waitForState(t, svc, inv.ID, invocation.StateCompleted)
	output, ok := inv.Output["output"].(*shipping.Output)
	require.True(t, ok)
	assert.Equal(t, types.StatusRejected, output.Status)
	assert.Empty(t, output.OrderID)
}

func TestService_New_Validation(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
}
