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

import (
	"fmt"
	"time"
)

// ValidateWorkoutRecord validates a WorkoutRecord according to domain rules.
//
// Validation rules:
//   - Workout body must not be empty
//   - Date must be set and not in the future
//
// NOT validated (populated by ingestion processors):
//   - SummaryVector (can be empty until the embedding pass runs)
//   - Movements/Equipment/WorkoutType (tags arrive pre-extracted and may be absent)
//   - ID (0 is valid from database sequences)
func ValidateWorkoutRecord(record *WorkoutRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidWorkoutRecord)
	}

	if record.Workout == "" {
		return fmt.Errorf("%w: %w", ErrInvalidWorkoutRecord, ErrEmptyWorkoutBody)
	}

	if record.Date.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidWorkoutRecord, ErrMissingDate)
	}

	if !IsValidTimestamp(record.Date) {
		return fmt.Errorf("%w: %w", ErrInvalidWorkoutRecord, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateMessage validates a ConversationMessage according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Role must be valid (user or assistant)
func ValidateMessage(msg *ConversationMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}

	if err := ValidateRole(msg.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
// A one-day grace window covers workouts published ahead in other time zones.
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now().Add(24 * time.Hour))
}
