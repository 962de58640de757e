package approval_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gateflow/gateflow/runtime/invocation"
	approval "github.com/gateflow/gateflow/service/approval"
	memApproval "github.com/gateflow/gateflow/service/approval/memory"
	"github.com/gateflow/gateflow/service/dao"
)

// TestWaitForDecision verifies that WaitForDecision blocks until a decision
// is recorded and returns the correct decision data.
func TestWaitForDecision(t *testing.T) {
	type testCase struct {
		name        string
		approve     bool
		expectError bool
		timeout     time.Duration
		decideDelay time.Duration
	}

	tests := []testCase{{
		name:        "approved before timeout",
		approve:     true,
		expectError: false,
		timeout:     500 * time.Millisecond,
		decideDelay: 10 * time.Millisecond,
	}, {
		name:        "rejected before timeout",
		approve:     false,
		expectError: false,
		timeout:     500 * time.Millisecond,
		decideDelay: 10 * time.Millisecond,
	}, {
		name:        "timeout waiting for decision",
		approve:     true, // irrelevant - decision never sent
		expectError: true,
		timeout:     50 * time.Millisecond,
		decideDelay: 100 * time.Millisecond, // triggered after timeout
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			// Operation DAO not required in these tests; provide typed nil.
			var opDAO dao.Service[string, invocation.OperationRequest]
			svc := memApproval.New(opDAO)

			reqID := "req-1"
			req := &approval.Request{
				ID:           reqID,
				InvocationID: "inv-1",
				Action:       "shipping.placeOrder",
				CreatedAt:    time.Now(),
			}

			// Register pending request.
			_ = svc.RequestApproval(ctx, req)

			// Schedule decision publication according to test case parameters.
			if tc.decideDelay > 0 {
				go func() {
					time.Sleep(tc.decideDelay)
					_, _ = svc.Decide(ctx, reqID, tc.approve, "")
				}()
			}

			dec, err := approval.WaitForDecision(ctx, svc, reqID, tc.timeout)

			if tc.expectError {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			expected := &approval.Decision{
				ID:       reqID,
				Approved: tc.approve,
			}
			if dec != nil {
				expected.DecidedAt = dec.DecidedAt // align dynamic field
			}
			assert.EqualValues(t, expected, dec)
		})
	}
}

// TestListPending verifies that ListPending helper applies filters correctly.
func TestListPending(t *testing.T) {
	ctx := context.Background()

	var opDAO dao.Service[string, invocation.OperationRequest]
	svc := memApproval.New(opDAO)

	now := time.Now()
	requests := []*approval.Request{
		{ID: "r1", InvocationID: "inv-1", Action: "shipping.placeOrder", CreatedAt: now},
		{ID: "r2", InvocationID: "inv-2", Action: "billing.charge", CreatedAt: now},
		{ID: "r3", InvocationID: "inv-3", Action: "shipping.placeOrder", CreatedAt: now},
	}

	for _, r := range requests {
		_ = svc.RequestApproval(ctx, r)
	}

	type testCase struct {
		name     string
		filters  []approval.PendingFilter
		expected []*approval.Request
	}

	tests := []testCase{
		{
			name:     "filter by invocationID",
			filters:  []approval.PendingFilter{approval.WithInvocationID("inv-1")},
			expected: []*approval.Request{requests[0]},
		},
		{
			name:     "filter by action",
			filters:  []approval.PendingFilter{approval.WithAction("shipping.placeOrder")},
			expected: []*approval.Request{requests[0], requests[2]},
		},
		{
			name:     "filter by invocationID and action",
			filters:  []approval.PendingFilter{approval.WithInvocationID("inv-3"), approval.WithAction("shipping.placeOrder")},
			expected: []*approval.Request{requests[2]},
		},
		{
			name:     "no filters",
			filters:  nil,
			expected: requests,
		},
	}

	// Helper to sort slice by ID to achieve deterministic comparison.
	sortByID := func(in []*approval.Request) []*approval.Request {
		out := make([]*approval.Request, len(in))
		copy(out, in)
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := approval.ListPending(ctx, svc, tc.filters...)
			assert.NoError(t, err)
			assert.EqualValues(t, sortByID(tc.expected), sortByID(actual))
		})
	}

	// -------- AutoExpire integration test --------
	t.Run("auto_expire_rejects", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var opDAO dao.Service[string, invocation.OperationRequest]
		svc := memApproval.New(opDAO)

		expireAt := time.Now().Add(-1 * time.Minute) // already expired
		req := &approval.Request{ID: "exp1", InvocationID: "inv-X", Action: "shipping.placeOrder", CreatedAt: time.Now(), ExpiresAt: &expireAt}
		_ = svc.RequestApproval(ctx, req)

		stop := approval.AutoExpire(ctx, svc, "expired", 10*time.Millisecond)
		defer stop()

		dec, err := approval.WaitForDecision(ctx, svc, req.ID, 500*time.Millisecond)
		assert.NoError(t, err)
		assert.EqualValues(t, &approval.Decision{ID: req.ID, Approved: false, Reason: "expired", DecidedAt: dec.DecidedAt}, dec)
	})
}

// TestDecide_Guards verifies duplicate and unknown-id handling.
func TestDecide_Guards(t *testing.T) {
	ctx := context.Background()
	var opDAO dao.Service[string, invocation.OperationRequest]
	svc := memApproval.New(opDAO)

	_, err := svc.Decide(ctx, "missing", true, "")
	assert.ErrorIs(t, err, approval.ErrRequestNotFound)

	req := &approval.Request{ID: "r1", InvocationID: "inv-1", Action: "shipping.placeOrder"}
	assert.NoError(t, svc.RequestApproval(ctx, req))

	_, err = svc.Decide(ctx, "r1", true, "")
	assert.NoError(t, err)

	// the first decision stands
	_, err = svc.Decide(ctx, "r1", false, "changed my mind")
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)

	dec, err := svc.GetDecision(ctx, "r1")
	assert.NoError(t, err)
	assert.True(t, dec.Approved)
}

// TestRequestApproval_SingleOutstanding verifies the one-outstanding-request
// rule per invocation.
func TestRequestApproval_SingleOutstanding(t *testing.T) {
	ctx := context.Background()
	var opDAO dao.Service[string, invocation.OperationRequest]
	svc := memApproval.New(opDAO)

	first := &approval.Request{ID: "r1", InvocationID: "inv-1", Action: "shipping.placeOrder"}
	assert.NoError(t, svc.RequestApproval(ctx, first))

	// resubmission of the same request is idempotent
	assert.NoError(t, svc.RequestApproval(ctx, &approval.Request{ID: "r1", InvocationID: "inv-1"}))

	// a second distinct request for the same invocation is refused
	err := svc.RequestApproval(ctx, &approval.Request{ID: "r2", InvocationID: "inv-1"})
	assert.ErrorIs(t, err, approval.ErrRequestActive)

	// once decided, a new request may be opened
	_, err = svc.Decide(ctx, "r1", false, "")
	assert.NoError(t, err)
	assert.NoError(t, svc.RequestApproval(ctx, &approval.Request{ID: "r2", InvocationID: "inv-1"}))
}
