// Package ingestion provides pipeline orchestration for loading workout
// records into storage.
//
// The Pipeline type manages the ingestion workflow for workout records,
// including:
//   - Loading records from a JSON export
//   - Adding records to storage
//   - Generating summary embeddings asynchronously
//
// Embedding is performed concurrently using a worker pool to maximize
// throughput. Errors during async processing are logged but do not fail the
// ingestion operation. Progress is checkpointed so interrupted runs can
// resume without re-embedding completed records.
package ingestion
