// Package mock provides test doubles for the ai interfaces.
//
// MockEmbedder produces deterministic FNV-seeded vectors so similarity
// ordering is stable across runs. MockModelCaller replays a scripted
// sequence of replies and captures every request for assertions.
package mock
