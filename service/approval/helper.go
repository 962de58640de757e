package approval

import (
	"context"
	"fmt"
	"time"
)

// DecisionFunc decides what to do with a pending request.
// Return (true,  "") to approve
//
//	(false, "…") to reject with reason.
type DecisionFunc func(r *Request) (approved bool, reason string)

// AutoDecider starts a goroutine that polls ListPending and applies fn to
// every request.  It returns stop() - call it (or cancel ctx) to exit.
func AutoDecider(ctx context.Context,
	svc Service,
	fn DecisionFunc,
	interval time.Duration) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				reqs, _ := svc.ListPending(ctx)
				for _, r := range reqs {
					ok, reason := fn(r)
					_, _ = svc.Decide(ctx, r.ID, ok, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending requests
func AutoApprove(ctx context.Context,
	svc Service,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*Request) (bool, string) { return true, "" }, interval)
}

// AutoReject automatically rejects all pending requests with the given reason
func AutoReject(ctx context.Context,
	svc Service,
	reason string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*Request) (bool, string) { return false, reason }, interval)
}

// AutoExpire rejects every pending request whose ExpiresAt deadline has
// passed.  Requests without a deadline are left alone.
func AutoExpire(ctx context.Context,
	svc Service,
	reason string,
	interval time.Duration) func() {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				reqs, _ := svc.ListPending(ctx)
				now := time.Now()
				for _, r := range reqs {
					if r.ExpiresAt == nil || now.Before(*r.ExpiresAt) {
						continue
					}
					_, _ = svc.Decide(ctx, r.ID, false, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// WaitForDecision blocks until a decision for id is recorded or the timeout
// elapses.
func WaitForDecision(ctx context.Context, svc Service, id string, timeout time.Duration) (*Decision, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		dec, err := svc.GetDecision(ctx, id)
		if err != nil {
			return nil, err
		}
		if dec != nil {
			return dec, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout waiting for decision on %s", id)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// PendingFilter narrows ListPending results.
type PendingFilter func(r *Request) bool

// WithInvocationID keeps only requests emitted by the given invocation.
func WithInvocationID(id string) PendingFilter {
	return func(r *Request) bool { return r.InvocationID == id }
}

// WithAction keeps only requests for the given "service.method".
func WithAction(action string) PendingFilter {
	return func(r *Request) bool { return r.Action == action }
}

// ListPending returns the pending requests that pass all filters.
func ListPending(ctx context.Context, svc Service, filters ...PendingFilter) ([]*Request, error) {
	all, err := svc.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return all, nil
	}
	out := make([]*Request, 0, len(all))
outer:
	for _, r := range all {
		for _, filter := range filters {
			if !filter(r) {
				continue outer
			}
		}
		out = append(out, r)
	}
	return out, nil
}
