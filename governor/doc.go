// Package governor gate-keeps shared resources: a global daily request
// budget, a per-client hourly budget, and a per-request cap on downstream
// model calls.
//
// The request counters are fixed windows with explicit reset timestamps, so
// a denial always carries a concrete retry-after duration. The model-call
// budget is a small atomic counter handed to each request; the orchestrator
// consults it before every model invocation.
package governor
