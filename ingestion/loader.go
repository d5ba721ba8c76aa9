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

package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/repforge/wodsearch/core"
)

// exportRecord mirrors one entry of the JSON workout export. Tag fields are
// pre-extracted upstream and may be absent on older exports.
type exportRecord struct {
	Date        string   `json:"date"`
	Name        string   `json:"workout_name"`
	Workout     string   `json:"workout"`
	Scaling     string   `json:"scaling"`
	Summary     string   `json:"one_sentence_summary"`
	Movements   []string `json:"movements"`
	Equipment   []string `json:"equipment"`
	WorkoutType string   `json:"workout_type"`
}

// LoadRecords reads a JSON export of workout records and returns validated
// domain records ordered by date ascending. Each record gets a deterministic
// content-based ID so re-running a load never duplicates workouts.
func LoadRecords(r io.Reader) ([]*core.WorkoutRecord, error) {
	var exported []exportRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&exported); err != nil {
		return nil, fmt.Errorf("decoding workout export: %w", err)
	}

	records := make([]*core.WorkoutRecord, 0, len(exported))
	for i, e := range exported {
		record, err := convertExportRecord(&e)
		if err != nil {
			return nil, fmt.Errorf("export record %d: %w", i, err)
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return records, nil
}

func convertExportRecord(e *exportRecord) (*core.WorkoutRecord, error) {
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(e.Date), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", core.ErrInvalidWorkoutRecord, e.Date)
	}

	record := &core.WorkoutRecord{
		Id:          core.IDFromContent(e.Date + "\n" + e.Workout),
		Date:        date,
		Name:        strings.TrimSpace(e.Name),
		Workout:     strings.TrimSpace(e.Workout),
		Scaling:     strings.TrimSpace(e.Scaling),
		Summary:     strings.TrimSpace(e.Summary),
		Movements:   normalizeTags(e.Movements),
		Equipment:   normalizeTags(e.Equipment),
		WorkoutType: strings.ToLower(strings.TrimSpace(e.WorkoutType)),
	}

	if err := core.ValidateWorkoutRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}

// normalizeTags lowercases and trims tags, dropping empties and duplicates.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
