// Package policy provides a simple, optional per-operation approval layer
// that can be attached to an invocation via context.  It is deliberately
// decoupled from the rest of the engine so that using it is entirely opt-in -
// engines that do not embed the Policy in their context keep the original
// "auto" behaviour.

package policy

import (
	"context"
	"strings"
)

// Execution modes recognised by the engine.
const (
	ModeAsk  = "ask"  // pause for human decision (subject to thresholds)
	ModeAuto = "auto" // execute automatically (default)
	ModeDeny = "deny" // block execution
)

// Threshold makes ModeAsk conditional: an operation whose named numeric
// argument does not exceed MaxAuto is approved without pausing.
type Threshold struct {
	Field   string  `json:"field" yaml:"field"`
	MaxAuto float64 `json:"maxAuto" yaml:"maxAuto"`
}

// Policy represents the approval settings for the current invocation.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList allow coarse filtering regardless of Mode.
//   - Thresholds, keyed by fully-qualified operation name "service.method"
//     (empty key = default), narrow ModeAsk to large requests only.
//
// A nil *Policy means "execute everything automatically" and is therefore the
// zero-cost default.
type Policy struct {
	Mode       string
	AllowList  []string
	BlockList  []string
	Thresholds map[string]*Threshold
}

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	Mode       string                `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList  []string              `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList  []string              `json:"block,omitempty" yaml:"block,omitempty"`
	Thresholds map[string]*Threshold `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:       p.Mode,
		AllowList:  append([]string(nil), p.AllowList...),
		BlockList:  append([]string(nil), p.BlockList...),
		Thresholds: cloneThresholds(p.Thresholds),
	}
}

// FromConfig converts a stored Config back to a runtime Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:       c.Mode,
		AllowList:  append([]string(nil), c.AllowList...),
		BlockList:  append([]string(nil), c.BlockList...),
		Thresholds: cloneThresholds(c.Thresholds),
	}
}

func cloneThresholds(src map[string]*Threshold) map[string]*Threshold {
	if src == nil {
		return nil
	}
	out := make(map[string]*Threshold, len(src))
	for k, v := range src {
		if v == nil {
			continue
		}
		t := *v
		out[k] = &t
	}
	return out
}

// IsAllowed evaluates Mode and the AllowList / BlockList.  ModeDeny blocks
// every operation.  Both lists match by exact string comparison
// (case-insensitive) of the fully-qualified operation name "service.method".
func (p *Policy) IsAllowed(action string) bool {
	if p == nil {
		return true
	}
	if p.Mode == ModeDeny {
		return false
	}

	normalized := strings.ToLower(action)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	if len(p.AllowList) == 0 {
		return true
	}
	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// RequiresApproval reports whether the operation must pause for a human
// decision.  ModeAuto never pauses and ModeDeny blocks before approval is a
// question; only ModeAsk consults thresholds.  When a threshold exists for
// the operation (or a default threshold under the empty key), requests whose
// named argument does not exceed MaxAuto proceed without pausing.  Absent any
// threshold, ModeAsk pauses every allowed operation.
func (p *Policy) RequiresApproval(action string, args map[string]interface{}) bool {
	if p == nil || p.Mode != ModeAsk {
		return false
	}
	threshold := p.threshold(action)
	if threshold == nil || threshold.Field == "" {
		return true
	}
	value, ok := numeric(args[threshold.Field])
	if !ok {
		return true
	}
	return value > threshold.MaxAuto
}

func (p *Policy) threshold(action string) *Threshold {
	if len(p.Thresholds) == 0 {
		return nil
	}
	normalized := strings.ToLower(action)
	for k, v := range p.Thresholds {
		if k != "" && strings.ToLower(k) == normalized {
			return v
		}
	}
	return p.Thresholds[""]
}

func numeric(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy when present.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
