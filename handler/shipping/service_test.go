package shipping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateflow/gateflow/model/types"
)

func TestService_PlaceOrder(t *testing.T) {
	svc := New()
	method, err := svc.Method("placeOrder")
	require.NoError(t, err)

	testCases := []struct {
		name         string
		input        *Input
		confirmation *types.Confirmation
		expectStatus types.Status
		expectOrder  string
		expectPause  bool
		expectErr    bool
	}{
		{
			name:         "small order auto approves",
			input:        &Input{NumContainers: 3, Destination: "Singapore"},
			expectStatus: types.StatusApproved,
			expectOrder:  "ORD-3-AUTO",
		},
		{
			name:         "large order first attempt pauses",
			input:        &Input{NumContainers: 10, Destination: "Rotterdam"},
			expectStatus: types.StatusPending,
			expectPause:  true,
		},
		{
			name:         "large order approved on resume",
			input:        &Input{NumContainers: 10, Destination: "Rotterdam"},
			confirmation: &types.Confirmation{ApprovalID: "appr-1", Confirmed: true},
			expectStatus: types.StatusApproved,
			expectOrder:  "ORD-10-HUMAN",
		},
		{
			name:         "large order rejected on resume",
			input:        &Input{NumContainers: 10, Destination: "Rotterdam"},
			confirmation: &types.Confirmation{ApprovalID: "appr-1", Confirmed: false},
			expectStatus: types.StatusRejected,
		},
		{
			name:         "small order approved on resume keeps human id",
			input:        &Input{NumContainers: 2, Destination: "Gdansk"},
			confirmation: &types.Confirmation{ApprovalID: "appr-2", Confirmed: true},
			expectStatus: types.StatusApproved,
			expectOrder:  "ORD-2-HUMAN",
		},
		{
			name:         "small order rejected on resume stays rejected",
			input:        &Input{NumContainers: 2, Destination: "Gdansk"},
			confirmation: &types.Confirmation{ApprovalID: "appr-2", Confirmed: false},
			expectStatus: types.StatusRejected,
		},
		{
			name:      "non positive count fails validation",
			input:     &Input{NumContainers: 0, Destination: "Rotterdam"},
			expectErr: true,
		},
		{
			name:      "missing destination fails validation",
			input:     &Input{NumContainers: 3},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output := &Output{}
			err := method(context.Background(), tc.input, output, tc.confirmation)
			if tc.expectErr {
				require.Error(t, err)
				assert.True(t, types.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectStatus, output.Status)
			assert.Equal(t, tc.expectOrder, output.OrderID)
			if tc.expectPause {
				require.NotNil(t, output.PauseRequest())
				assert.Contains(t, output.Pause.Hint, "10 containers")
				assert.Contains(t, output.Pause.Hint, "Rotterdam")
				assert.Equal(t, 10, output.Pause.Payload["numContainers"])
			} else {
				assert.Nil(t, output.PauseRequest())
			}
		})
	}
}

func TestService_PlaceOrder_CustomThreshold(t *testing.T) {
	svc := New(WithThreshold(10))
	method, err := svc.Method("placeOrder")
	require.NoError(t, err)

	output := &Output{}
	require.NoError(t, method(context.Background(), &Input{NumContainers: 10, Destination: "Oslo"}, output, nil))
	assert.Equal(t, types.StatusApproved, output.Status)
	assert.Equal(t, "ORD-10-AUTO", output.OrderID)
}

func TestService_Method_NotFound(t *testing.T) {
	svc := New()
	_, err := svc.Method("cancelOrder")
	assert.Error(t, err)
}
