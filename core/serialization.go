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
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain types stored in BadgerDB. Hand-written
// rather than generated: the day-precision dates and vector payloads use
// encodings chosen per field (varint timestamps, raw float32 vectors).
var (
	IDMUS            = idMUS{}
	WorkoutRecordMUS = workoutRecordMUS{}
	ConversationMUS  = conversationMUS{}
	CheckpointMUS    = checkpointMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// Timestamps are stored as Unix microseconds.

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalStrings(ss []string, bs []byte) int {
	n := varint.Int.Marshal(len(ss), bs)
	for _, s := range ss {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length <= 0 {
		return nil, n, err
	}
	ss := make([]string, 0, length)
	for i := 0; i < length; i++ {
		s, m, err := ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		ss = append(ss, s)
	}
	return ss, n, nil
}

func sizeStrings(ss []string) int {
	size := varint.Int.Size(len(ss))
	for _, s := range ss {
		size += ord.String.Size(s)
	}
	return size
}

func marshalVector(vec []float32, bs []byte) int {
	n := varint.Int.Marshal(len(vec), bs)
	for _, f := range vec {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length <= 0 {
		return nil, n, err
	}
	vec := make([]float32, 0, length)
	for i := 0; i < length; i++ {
		f, m, err := raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		vec = append(vec, f)
	}
	return vec, n, nil
}

func sizeVector(vec []float32) int {
	size := varint.Int.Size(len(vec))
	for _, f := range vec {
		size += raw.Float32.Size(f)
	}
	return size
}

type workoutRecordMUS struct{}

func (workoutRecordMUS) Marshal(w WorkoutRecord, bs []byte) int {
	n := IDMUS.Marshal(w.Id, bs)
	n += marshalTime(w.Date, bs[n:])
	n += ord.String.Marshal(w.Name, bs[n:])
	n += ord.String.Marshal(w.Workout, bs[n:])
	n += ord.String.Marshal(w.Scaling, bs[n:])
	n += ord.String.Marshal(w.Summary, bs[n:])
	n += marshalStrings(w.Movements, bs[n:])
	n += marshalStrings(w.Equipment, bs[n:])
	n += ord.String.Marshal(w.WorkoutType, bs[n:])
	n += marshalVector(w.SummaryVector, bs[n:])
	n += marshalTime(w.InsertedAt, bs[n:])
	n += marshalTime(w.UpdatedAt, bs[n:])
	return n
}

func (workoutRecordMUS) Unmarshal(bs []byte) (w WorkoutRecord, n int, err error) {
	var m int
	if w.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if w.Date, m, err = unmarshalTime(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.Name, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.Workout, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.Scaling, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.Summary, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.Movements, m, err = unmarshalStrings(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.Equipment, m, err = unmarshalStrings(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.WorkoutType, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.SummaryVector, m, err = unmarshalVector(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	if w.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return w, n + m, err
	}
	n += m
	return w, n, nil
}

func (workoutRecordMUS) Size(w WorkoutRecord) int {
	return IDMUS.Size(w.Id) +
		sizeTime(w.Date) +
		ord.String.Size(w.Name) +
		ord.String.Size(w.Workout) +
		ord.String.Size(w.Scaling) +
		ord.String.Size(w.Summary) +
		sizeStrings(w.Movements) +
		sizeStrings(w.Equipment) +
		ord.String.Size(w.WorkoutType) +
		sizeVector(w.SummaryVector) +
		sizeTime(w.InsertedAt) +
		sizeTime(w.UpdatedAt)
}

type conversationMUS struct{}

func (conversationMUS) Marshal(c Conversation, bs []byte) int {
	n := ord.String.Marshal(c.Token, bs)
	n += varint.Int.Marshal(len(c.Messages), bs[n:])
	for _, msg := range c.Messages {
		n += varint.Int.Marshal(int(msg.Role), bs[n:])
		n += ord.String.Marshal(msg.Content, bs[n:])
		n += marshalTime(msg.Timestamp, bs[n:])
	}
	n += marshalTime(c.CreatedAt, bs[n:])
	n += marshalTime(c.LastActivity, bs[n:])
	return n
}

func (conversationMUS) Unmarshal(bs []byte) (c Conversation, n int, err error) {
	var m int
	if c.Token, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var count int
	if count, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if count > 0 {
		c.Messages = make([]ConversationMessage, 0, count)
	}
	for i := 0; i < count; i++ {
		var msg ConversationMessage
		var role int
		if role, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return c, n + m, err
		}
		n += m
		msg.Role = Role(role)
		if msg.Content, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return c, n + m, err
		}
		n += m
		if msg.Timestamp, m, err = unmarshalTime(bs[n:]); err != nil {
			return c, n + m, err
		}
		n += m
		c.Messages = append(c.Messages, msg)
	}
	if c.CreatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.LastActivity, m, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	return c, n, nil
}

func (conversationMUS) Size(c Conversation) int {
	size := ord.String.Size(c.Token) + varint.Int.Size(len(c.Messages))
	for _, msg := range c.Messages {
		size += varint.Int.Size(int(msg.Role))
		size += ord.String.Size(msg.Content)
		size += sizeTime(msg.Timestamp)
	}
	return size + sizeTime(c.CreatedAt) + sizeTime(c.LastActivity)
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(c Checkpoint, bs []byte) int {
	n := ord.String.Marshal(c.Name, bs)
	n += IDMUS.Marshal(c.LastID, bs[n:])
	n += marshalTime(c.UpdatedAt, bs[n:])
	return n
}

func (checkpointMUS) Unmarshal(bs []byte) (c Checkpoint, n int, err error) {
	var m int
	if c.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.LastID, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	return c, n, nil
}

func (checkpointMUS) Size(c Checkpoint) int {
	return ord.String.Size(c.Name) + IDMUS.Size(c.LastID) + sizeTime(c.UpdatedAt)
}
