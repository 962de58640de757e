package shipping

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/gateflow/gateflow/model/types"
)

const name = "shipping"

// LargeOrderThreshold is the largest container count that is approved
// without a human decision.
const LargeOrderThreshold = 5

// Service places shipping orders, pausing for approval on large ones
type Service struct {
	threshold int
}

type Input struct {
	NumContainers int    `json:"numContainers"`
	Destination   string `json:"destination"`
}

// Output represents the tagged outcome of a placeOrder attempt
type Output struct {
	Status        types.Status `json:"status"`
	OrderID       string       `json:"orderId,omitempty"`
	NumContainers int          `json:"numContainers,omitempty"`
	Destination   string       `json:"destination,omitempty"`
	Message       string       `json:"message"`
	Pause         *types.Pause `json:"-"`
}

func (o *Output) OperationStatus() types.Status { return o.Status }

func (o *Output) PauseRequest() *types.Pause { return o.Pause }

// Option customises the shipping service
type Option func(*Service)

// WithThreshold overrides the auto-approval threshold
func WithThreshold(threshold int) Option {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// New creates a new shipping service
func New(options ...Option) *Service {
	ret := &Service{threshold: LargeOrderThreshold}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "placeOrder",
			Description: "Places a shipping order; large orders pause for human approval.",
			Input:       reflect.TypeOf(&Input{}),
			Output:      reflect.TypeOf(&Output{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "placeorder":
		return s.placeOrder, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

// placeOrder handles the three cases of a guarded order: small orders
// auto-approve, a large order's first attempt pauses, and a resumed attempt
// applies the decision it was given without re-checking the threshold.
func (s *Service) placeOrder(ctx context.Context, in, out interface{}, confirmation *types.Confirmation) error {
	input, ok := in.(*Input)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return types.NewInvalidOutputError(out)
	}

	if input.NumContainers <= 0 {
		return types.NewValidationError("numContainers", "must be positive")
	}
	if input.Destination == "" {
		return types.NewValidationError("destination", "is required")
	}

	// A resumed attempt carries an authoritative decision; it applies even
	// when the order is below the threshold (an outer policy may pause
	// orders this handler would have auto-approved).
	if confirmation != nil {
		if confirmation.Confirmed {
			output.Status = types.StatusApproved
			output.OrderID = fmt.Sprintf("ORD-%d-HUMAN", input.NumContainers)
			output.NumContainers = input.NumContainers
			output.Destination = input.Destination
			output.Message = fmt.Sprintf("Order approved: %d containers to %s", input.NumContainers, input.Destination)
			return nil
		}
		output.Status = types.StatusRejected
		output.Message = fmt.Sprintf("Order rejected: %d containers to %s", input.NumContainers, input.Destination)
		return nil
	}

	// small orders auto-approve
	if input.NumContainers <= s.threshold {
		output.Status = types.StatusApproved
		output.OrderID = fmt.Sprintf("ORD-%d-AUTO", input.NumContainers)
		output.NumContainers = input.NumContainers
		output.Destination = input.Destination
		output.Message = fmt.Sprintf("Order auto-approved: %d containers to %s", input.NumContainers, input.Destination)
		return nil
	}

	// large order, first attempt: request confirmation and report pending
	output.Status = types.StatusPending
	output.Message = fmt.Sprintf("Order for %d containers requires approval", input.NumContainers)
	output.Pause = &types.Pause{
		Hint: fmt.Sprintf("Large order: %d containers to %s. Approve?", input.NumContainers, input.Destination),
		Payload: map[string]interface{}{
			"numContainers": input.NumContainers,
			"destination":   input.Destination,
		},
	}
	return nil
}
