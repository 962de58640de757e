package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gateflow/gateflow/internal/idgen"
	"github.com/gateflow/gateflow/model/types"
	"github.com/gateflow/gateflow/policy"
	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/approval"
	"github.com/gateflow/gateflow/service/dao"
	"github.com/gateflow/gateflow/service/executor"
	"github.com/gateflow/gateflow/service/messaging"
	"github.com/gateflow/gateflow/service/session"
	"github.com/gateflow/gateflow/tracing"
)

// Config represents engine service configuration
type Config struct {
	// WorkerCount is the number of workers processing operations
	WorkerCount int

	// MaxOperationRetries is the maximum number of retries for an operation
	MaxOperationRetries int

	// RetryDelay is the delay between operation retry attempts
	RetryDelay time.Duration
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount:         5,
		MaxOperationRetries: 1,
		RetryDelay:          3 * time.Second,
	}
}

// Service handles invocation execution
type Service struct {
	config        Config
	invocationDAO dao.Service[string, invocation.Invocation]
	operationDAO  dao.Service[string, invocation.OperationRequest]

	queue    messaging.Queue[invocation.OperationRequest]
	executor executor.Service

	approvals     approval.Service
	checkpoints   *correlation.Store
	checkpointDAO correlation.DAO

	sessions    session.Store
	sessionApp  string
	sessionUser string

	workers    []*worker
	workerWg   sync.WaitGroup
	shutdownCh chan struct{}
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a new engine service
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if s.queue == nil {
		return nil, fmt.Errorf("message queue is required")
	}
	if s.invocationDAO == nil {
		return nil, fmt.Errorf("invocationDAO service is required")
	}
	if s.operationDAO == nil {
		return nil, fmt.Errorf("operationDAO service is required")
	}
	if s.checkpoints == nil {
		s.checkpoints = correlation.NewStore()
	}
	return s, nil
}

// Checkpoints exposes the correlation store shared with the broker.
func (s *Service) Checkpoints() *correlation.Store {
	return s.checkpoints
}

// Start begins the operation execution service
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		worker := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, worker)
		s.workerWg.Add(1)
		go worker.run()
	}
	return nil
}

// run processes messages from the queue
func (w *worker) run() {
	defer w.service.workerWg.Done()

	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			// Context was cancelled - graceful shutdown.
			if errors.Is(err, context.Canceled) {
				return
			}
			// Transient error (e.g. queue closed); back off a bit.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if msg == nil {
			continue
		}

		if pErr := w.service.processMessage(w.ctx, msg); pErr != nil {
			log.Printf("worker %d: failed to process message: %v", w.id, pErr)
		}
	}
}

// StartInvocation submits a guarded operation for execution and returns the
// tracking invocation.
func (s *Service) StartInvocation(ctx context.Context, serviceName, method string, input interface{}, sessionID string) (anInvocation *invocation.Invocation, err error) {
	action := serviceName + "." + method
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.StartInvocation %s", action), "INTERNAL")
	defer tracing.EndSpan(span, err)
	if serviceName == "" || method == "" {
		err = fmt.Errorf("service and method are required")
		return
	}

	invocationID := action + "/" + uuid.New().String()
	span.WithAttributes(map[string]string{"invocation.id": invocationID, "operation.action": action})

	anInvocation = invocation.NewInvocation(invocationID, action, sessionID)

	// Propagate policy (if any) from the incoming context so the engine can
	// enforce it later on.
	if p := policy.FromContext(ctx); p != nil {
		anInvocation.Policy = policy.ToConfig(p)
	}

	ctx, invSpan := tracing.StartSpan(ctx, fmt.Sprintf("invocation.run %s", action), "INTERNAL")
	invSpan.WithAttributes(map[string]string{"invocation.id": invocationID})
	anInvocation.Span = invSpan

	operation := invocation.NewOperationRequest(invocationID, serviceName, method, input)
	anInvocation.Push(operation)
	anInvocation.SetState(invocation.StateRunning)

	if err = s.invocationDAO.Save(ctx, anInvocation); err != nil {
		err = fmt.Errorf("failed to save invocation: %w", err)
		return
	}
	if err = s.operationDAO.Save(ctx, operation); err != nil {
		err = fmt.Errorf("failed to save operation: %w", err)
		return
	}
	if err = s.queue.Publish(ctx, operation); err != nil {
		err = fmt.Errorf("failed to publish operation: %w", err)
		return
	}
	return anInvocation, nil
}

// GetInvocation retrieves an invocation by ID
func (s *Service) GetInvocation(ctx context.Context, invocationID string) (*invocation.Invocation, error) {
	return s.invocationDAO.Load(ctx, invocationID)
}

// processMessage handles a single operation message
func (s *Service) processMessage(ctx context.Context, message messaging.Message[invocation.OperationRequest]) (err error) {
	operation := message.T()

	operation.Start()
	if err := s.operationDAO.Save(ctx, operation); err != nil {
		return message.Nack(err)
	}

	anInvocation, err := s.GetInvocation(ctx, operation.InvocationID)
	if err != nil {
		return message.Nack(err)
	}

	// A first attempt consults the policy before the handler runs.  A
	// resumed attempt carries an authoritative decision; the policy is never
	// re-evaluated for it.
	if operation.Confirmation == nil {
		action := operation.Service + "." + operation.Method
		pol := policy.FromConfig(anInvocation.Policy)
		if !pol.IsAllowed(action) {
			return s.failOperation(ctx, message, anInvocation, operation, fmt.Errorf("action %s blocked by policy", action))
		}
		if pol.RequiresApproval(action, asMap(operation.Input)) {
			pause := &types.Pause{
				Hint:    fmt.Sprintf("Approval required: %s", action),
				Payload: asMap(operation.Input),
			}
			if pErr := s.pauseOperation(ctx, anInvocation, operation, pause); pErr != nil {
				return s.failOperation(ctx, message, anInvocation, operation, pErr)
			}
			return message.Ack()
		}
	}

	execCtx := context.WithValue(ctx, invocation.InvocationKey, anInvocation)
	execCtx = context.WithValue(execCtx, invocation.OperationKey, operation)

	err = s.executor.Execute(execCtx, operation, anInvocation)
	if err != nil {
		// Malformed arguments are never retried.
		if types.IsValidationError(err) {
			return s.failOperation(ctx, message, anInvocation, operation, err)
		}
		if operation.Attempts < s.config.MaxOperationRetries {
			operation.Attempts++
			operation.State = invocation.OperationStateScheduled
			operation.Schedule()
			if daoErr := s.operationDAO.Save(ctx, operation); daoErr != nil {
				return message.Nack(fmt.Errorf("error %w and failed to save operation: %v", err, daoErr))
			}
			go func(op *invocation.OperationRequest) {
				time.Sleep(s.config.RetryDelay)
				if pubErr := s.queue.Publish(context.Background(), op); pubErr != nil {
					log.Printf("failed to republish operation %s: %v", op.ID, pubErr)
				}
			}(operation)
			return message.Ack()
		}
		return s.failOperation(ctx, message, anInvocation, operation, err)
	}

	// A pending outcome is not a completion: it pauses the invocation and
	// opens a checkpoint.
	if outcome, ok := operation.Output.(types.Outcome); ok && outcome.OperationStatus() == types.StatusPending {
		var pause *types.Pause
		if pauser, ok := operation.Output.(types.Pauser); ok {
			pause = pauser.PauseRequest()
		}
		if pause == nil {
			pause = &types.Pause{Hint: fmt.Sprintf("Approval required: %s.%s", operation.Service, operation.Method)}
		}
		if pErr := s.pauseOperation(ctx, anInvocation, operation, pause); pErr != nil {
			return s.failOperation(ctx, message, anInvocation, operation, pErr)
		}
		return message.Ack()
	}

	operation.Complete()
	if err := s.operationDAO.Save(ctx, operation); err != nil {
		return message.Nack(err)
	}

	if inStack := anInvocation.LookupOperation(operation.ID); inStack != nil {
		inStack.Merge(operation)
	}
	anInvocation.Output["output"] = operation.Output
	if outcome, ok := operation.Output.(types.Outcome); ok {
		anInvocation.Output["status"] = string(outcome.OperationStatus())
	}
	anInvocation.AppendEvent(&invocation.Event{
		ID:           idgen.New(),
		InvocationID: anInvocation.ID,
		Type:         invocation.EventOperationCompleted,
		CreatedAt:    time.Now(),
	})
	anInvocation.SetState(invocation.StateCompleted)
	tracing.EndSpan(anInvocation.Span, nil)
	if err := s.invocationDAO.Save(ctx, anInvocation); err != nil {
		return message.Nack(err)
	}
	return message.Ack()
}

// pauseOperation opens a checkpoint for the operation and files an approval
// request.  The approval service refuses a second outstanding request for
// the same invocation.
func (s *Service) pauseOperation(ctx context.Context, anInvocation *invocation.Invocation, operation *invocation.OperationRequest, pause *types.Pause) error {
	approvalID := idgen.New()
	action := operation.Service + "." + operation.Method

	if s.approvals != nil {
		request := &approval.Request{
			ID:           approvalID,
			InvocationID: anInvocation.ID,
			OperationID:  operation.ID,
			Action:       action,
			Hint:         pause.Hint,
			Args:         pause.Payload,
			CreatedAt:    time.Now(),
		}
		if err := s.approvals.RequestApproval(ctx, request); err != nil {
			return err
		}
	}

	operation.Pause(approvalID)
	if err := s.operationDAO.Save(ctx, operation); err != nil {
		return err
	}

	checkpoint := &correlation.Checkpoint{
		ID:           approvalID,
		InvocationID: anInvocation.ID,
		OperationID:  operation.ID,
		Service:      operation.Service,
		Method:       operation.Method,
		Hint:         pause.Hint,
		Payload:      pause.Payload,
		CreatedAt:    time.Now(),
	}
	s.checkpoints.Create(checkpoint)
	if s.checkpointDAO != nil {
		if err := s.checkpointDAO.Save(ctx, checkpoint); err != nil {
			return err
		}
	}

	marker := invocation.NewConfirmationRequested(anInvocation.ID, approvalID, pause)
	if inStack := anInvocation.LookupOperation(operation.ID); inStack != nil {
		inStack.State = invocation.OperationStateWaitForApproval
		inStack.ApprovalID = approvalID
		inStack.PausedAt = operation.PausedAt
	}
	anInvocation.AppendEvent(marker)
	anInvocation.SetState(invocation.StatePaused)
	if err := s.invocationDAO.Save(ctx, anInvocation); err != nil {
		return err
	}

	if s.sessions != nil && anInvocation.SessionID != "" {
		if sess, err := s.sessions.Get(ctx, s.sessionApp, s.sessionUser, anInvocation.SessionID); err == nil && sess != nil {
			sess.AppendEvents(marker)
			_ = s.sessions.Save(ctx, sess)
		}
	}
	return nil
}

func (s *Service) failOperation(ctx context.Context, message messaging.Message[invocation.OperationRequest], anInvocation *invocation.Invocation, operation *invocation.OperationRequest, failure error) error {
	operation.Fail(failure)
	if daoErr := s.operationDAO.Save(ctx, operation); daoErr != nil {
		return message.Nack(fmt.Errorf("encounter error: %w, and failed to save operation: %v", failure, daoErr))
	}

	if inStack := anInvocation.LookupOperation(operation.ID); inStack != nil {
		inStack.State = invocation.OperationStateFailed
		inStack.Error = operation.Error
	}
	action := operation.Service + "." + operation.Method
	anInvocation.Errors[action] = failure.Error()
	anInvocation.SetState(invocation.StateFailed)
	tracing.EndSpan(anInvocation.Span, failure)
	_ = s.invocationDAO.Save(ctx, anInvocation)

	_ = message.Ack()
	return nil
}

// asMap converts an operation input into generic arguments for policy
// evaluation.  Inputs that do not marshal to a JSON object yield nil.
func asMap(input interface{}) map[string]interface{} {
	if input == nil {
		return nil
	}
	if m, ok := input.(map[string]interface{}); ok {
		return m
	}
	data, err := json.Marshal(input)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// Shutdown stops the engine service
func (s *Service) Shutdown() {
	close(s.shutdownCh)
	for _, worker := range s.workers {
		worker.cancelFn()
	}
	s.workerWg.Wait()
}
