package ingestion

import "errors"

var (
	// ErrWorkoutRepositoryRequired is returned when a workout repository is not provided.
	ErrWorkoutRepositoryRequired = errors.New("workout repository required")

	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
