package access

import (
	"github.com/abduss/backoffice/internal/metrics"
	"go.uber.org/zap"
)

// Caller is the identity on whose behalf an operation runs. The zero value is anonymous.
type Caller struct {
	UserID         string
	OrganizationID string
}

// Anonymous returns a caller without identity.
func Anonymous() Caller {
	return Caller{}
}

// Identity returns the caller's user id and whether one is present.
func (c Caller) Identity() (string, bool) {
	return c.UserID, c.UserID != ""
}

// Evaluator decides whether a caller satisfies a rule. It holds no mutable
// state and may be shared across goroutines.
type Evaluator struct {
	log *zap.Logger
}

// NewEvaluator constructs an Evaluator. A nil logger disables diagnostics.
func NewEvaluator(log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{log: log}
}

// Authorize reports whether caller may act under rule.
func (e *Evaluator) Authorize(rule Rule, caller Caller) bool {
	switch r := rule.(type) {
	case Public:
		return true
	case UserOnly:
		id, ok := caller.Identity()
		if !ok || r.UserID == nil {
			return false
		}
		return *r.UserID == id
	case Unknown:
		e.unimplemented(r.RawTag)
		return false
	default:
		e.unimplemented(describe(rule))
		return false
	}
}

func (e *Evaluator) unimplemented(tag string) {
	metrics.UnknownAccessRules.Inc()
	e.log.Warn("access rule not implemented, denying", zap.String("rule", tag))
}

func describe(rule Rule) string {
	if rule == nil {
		return "<nil>"
	}
	return rule.Tag()
}
