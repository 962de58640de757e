// Command console exposes a small HTTP review surface over a gateflow
// runtime: submit shipping orders, list pending approvals and record
// decisions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gateflow/gateflow"
	"github.com/gateflow/gateflow/service/approval"
	"github.com/gateflow/gateflow/service/broker"
)

type submitRequest struct {
	NumContainers int    `json:"numContainers"`
	Destination   string `json:"destination"`
	SessionID     string `json:"sessionId,omitempty"`
}

type submitResponse struct {
	InvocationID string                 `json:"invocationId"`
	State        string                 `json:"state"`
	ApprovalID   string                 `json:"approvalId,omitempty"`
	Hint         string                 `json:"hint,omitempty"`
	Output       map[string]interface{} `json:"output,omitempty"`
	Errors       map[string]string      `json:"errors,omitempty"`
}

type decisionRequest struct {
	InvocationID string `json:"invocationId"`
	Approved     bool   `json:"approved"`
	Reason       string `json:"reason,omitempty"`
	DecidedBy    string `json:"decidedBy,omitempty"`
}

type console struct {
	runtime *gateflow.Runtime
	logger  *zap.Logger
	timeout time.Duration
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	configPath := flag.String("config", "", "optional YAML configuration")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var options []gateflow.Option
	if *configPath != "" {
		config, err := gateflow.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
		}
		options = append(options, gateflow.WithConfig(config))
	}

	srv := gateflow.New(options...)
	runtime := srv.Runtime()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := runtime.Start(ctx); err != nil {
		logger.Fatal("failed to start runtime", zap.Error(err))
	}
	defer runtime.Shutdown(context.Background())

	c := &console{runtime: runtime, logger: logger.Named("console"), timeout: 30 * time.Second}

	server := &http.Server{Addr: *addr, Handler: c.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("console listening", zap.String("addr", *addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func (c *console) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/v1/orders", c.submitOrder)
	r.Get("/v1/invocations", c.getInvocation)
	r.Get("/v1/approvals", c.listApprovals)
	r.Post("/v1/approvals/{approvalID}/decision", c.decide)
	return r
}

func (c *console) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	input := map[string]interface{}{
		"numContainers": req.NumContainers,
		"destination":   req.Destination,
	}
	inv, wait, err := c.runtime.Submit(r.Context(), "shipping", "placeOrder", input, req.SessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out, err := wait(r.Context(), c.timeout)
	if err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}

	response := submitResponse{
		InvocationID: out.InvocationID,
		State:        out.State,
		Output:       out.Output,
		Errors:       out.Errors,
	}
	if checkpoint, _ := c.runtime.Detect(r.Context(), inv.ID); checkpoint != nil {
		response.ApprovalID = checkpoint.ID
		response.Hint = checkpoint.Hint
	}
	c.logger.Info("order submitted",
		zap.String("invocationId", out.InvocationID),
		zap.String("state", out.State),
		zap.Int("numContainers", req.NumContainers),
		zap.String("destination", req.Destination))
	writeJSON(w, http.StatusOK, response)
}

// getInvocation returns an invocation snapshot; invocation IDs contain a
// slash, so the ID travels as a query parameter.
func (c *console) getInvocation(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id query parameter is required", http.StatusBadRequest)
		return
	}
	inv, err := c.runtime.Invocation(r.Context(), id)
	if err != nil || inv == nil {
		http.Error(w, "invocation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (c *console) listApprovals(w http.ResponseWriter, r *http.Request) {
	var filters []approval.PendingFilter
	if id := r.URL.Query().Get("invocationId"); id != "" {
		filters = append(filters, approval.WithInvocationID(id))
	}
	if action := r.URL.Query().Get("action"); action != "" {
		filters = append(filters, approval.WithAction(action))
	}
	pending, err := c.runtime.PendingApprovals(r.Context(), filters...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (c *console) decide(w http.ResponseWriter, r *http.Request) {
	approvalID := chi.URLParam(r, "approvalID")
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvocationID == "" {
		http.Error(w, "invalid body: invocationId is required", http.StatusBadRequest)
		return
	}

	decision, err := c.runtime.Resolve(r.Context(), req.InvocationID, approvalID, req.Approved, req.Reason, req.DecidedBy)
	if err != nil {
		c.logger.Warn("decision rejected",
			zap.String("invocationId", req.InvocationID),
			zap.String("approvalId", approvalID),
			zap.Error(err))
		http.Error(w, err.Error(), decisionStatus(err))
		return
	}
	c.logger.Info("decision recorded",
		zap.String("invocationId", req.InvocationID),
		zap.String("approvalId", approvalID),
		zap.Bool("approved", decision.Approved),
		zap.String("decidedBy", decision.DecidedBy))
	writeJSON(w, http.StatusOK, decision)
}

func decisionStatus(err error) int {
	switch {
	case errors.Is(err, broker.ErrInvocationNotFound), errors.Is(err, broker.ErrNoPendingApproval):
		return http.StatusNotFound
	case errors.Is(err, broker.ErrApprovalMismatch):
		return http.StatusConflict
	case errors.Is(err, broker.ErrDuplicateDecision):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
