// Package conversation holds multi-turn dialogue state keyed by opaque
// tokens.
//
// Two Store implementations exist: MemoryStore, a bounded LRU with idle
// expiry for single-process deployments, and BadgerStore, a durable variant
// over the storage layer. Both trim history to a message cap and an
// estimated token budget so replayed context never grows without bound.
package conversation
