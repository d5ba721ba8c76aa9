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


package storage

import (
	"github.com/repforge/wodsearch/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalWorkoutRecord serializes a WorkoutRecord to bytes.
func MarshalWorkoutRecord(record *core.WorkoutRecord) []byte {
	buf := make([]byte, core.WorkoutRecordMUS.Size(*record))
	core.WorkoutRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalWorkoutRecord deserializes a WorkoutRecord from bytes.
func UnmarshalWorkoutRecord(data []byte) (*core.WorkoutRecord, error) {
	record, _, err := core.WorkoutRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalConversation serializes a Conversation to bytes.
func MarshalConversation(conv *core.Conversation) []byte {
	buf := make([]byte, core.ConversationMUS.Size(*conv))
	core.ConversationMUS.Marshal(*conv, buf)
	return buf
}

// UnmarshalConversation deserializes a Conversation from bytes.
func UnmarshalConversation(data []byte) (*core.Conversation, error) {
	conv, _, err := core.ConversationMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &checkpoint, nil
}
