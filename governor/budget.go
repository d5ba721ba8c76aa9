package governor

import "sync/atomic"

// CallBudget caps the model calls one inbound request may issue. Scoped to
// the lifetime of a single request; create a fresh budget per request.
type CallBudget struct {
	limit int64
	used  atomic.Int64
}

// NewCallBudget creates a per-request model-call budget.
// A non-positive limit uses the default.
func NewCallBudget(limit int) *CallBudget {
	if limit <= 0 {
		limit = DefaultCallBudget
	}
	return &CallBudget{limit: int64(limit)}
}

// AdmitModelCall consumes one call if any remain.
func (b *CallBudget) AdmitModelCall() bool {
	// Check-and-increment in one atomic step so concurrent callers can't
	// overshoot the limit.
	for {
		used := b.used.Load()
		if used >= b.limit {
			return false
		}
		if b.used.CompareAndSwap(used, used+1) {
			return true
		}
	}
}

// Used returns how many calls have been consumed.
func (b *CallBudget) Used() int {
	return int(b.used.Load())
}

// Remaining returns how many calls are left.
func (b *CallBudget) Remaining() int {
	r := int(b.limit - b.used.Load())
	if r < 0 {
		return 0
	}
	return r
}
