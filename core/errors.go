// Copyright 2025 Repforge Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidWorkoutRecord indicates a WorkoutRecord failed validation.
	ErrInvalidWorkoutRecord = errors.New("invalid workout record")

	// ErrInvalidMessage indicates a ConversationMessage failed validation.
	ErrInvalidMessage = errors.New("invalid conversation message")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyWorkoutBody indicates the Workout field is empty.
	ErrEmptyWorkoutBody = errors.New("workout body cannot be empty")

	// ErrMissingDate indicates the Date field is unset.
	ErrMissingDate = errors.New("workout date is required")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidRole indicates an invalid Role value.
	ErrInvalidRole = errors.New("invalid message role")
)
