// Package agent is the top-level control loop answering questions about the
// workout archive.
//
// The Orchestrator runs a bounded think/act/observe cycle: every model call
// is gated by the governor's per-request budget, the only tool offered to
// the model is the search engine, and each step is recorded for the verbose
// trace. Failures follow a single-retry policy with a corrective
// instruction; the user always receives an answer or one of a small set of
// typed errors, never a raw internal error.
package agent
