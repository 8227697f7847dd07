// Package normalize reconciles heterogeneous collaborator response shapes
// into the canonical internal representation before any payload crosses into
// the pipeline.
//
// Extraction tries a fixed priority of known shapes and adopts the first one
// whose marker fields are present. The order is part of the contract:
//
//  1. wrapped envelope:   {"data": {"<series>": [...], ...}, ...}
//  2. legacy flat object: {"<series>": [...], ...}
//  3. bare array:         [...]
//
// Optional fields inside items default to zero values or null rather than
// failing; a payload matching no shape is rejected outright instead of being
// guessed at.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"grade-import-service/internal/model"
)

type shape struct {
	name    string
	extract func(payload []byte, series string) ([]json.RawMessage, bool)
}

// shapes is the documented detection priority. First match wins.
var shapes = []shape{
	{name: "wrapped", extract: extractWrapped},
	{name: "flat", extract: extractFlat},
	{name: "bare", extract: extractBare},
}

// Series pulls the named item array out of a collaborator payload, trying the
// known shapes in priority order.
func Series(payload []byte, series string) ([]json.RawMessage, error) {
	for _, s := range shapes {
		if items, ok := s.extract(payload, series); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("payload matches no known shape for series %q", series)
}

func extractWrapped(payload []byte, series string) ([]json.RawMessage, bool) {
	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Data == nil {
		return nil, false
	}
	raw, ok := envelope.Data[series]
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func extractFlat(payload []byte, series string) ([]json.RawMessage, bool) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(payload, &object); err != nil {
		return nil, false
	}
	raw, ok := object[series]
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func extractBare(payload []byte, _ string) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, false
	}
	return items, true
}

// Students canonicalizes a roster lookup response. Student identifiers may
// arrive as strings or numbers under "id" or "student_id"; display names
// under "display_name" or "name".
func Students(payload []byte) ([]model.Student, error) {
	items, err := Series(payload, "students")
	if err != nil {
		return nil, err
	}

	students := make([]model.Student, 0, len(items))
	for _, item := range items {
		fields, err := itemFields(item)
		if err != nil {
			return nil, err
		}
		id := stringField(fields, "id", "student_id")
		if id == "" {
			continue
		}
		students = append(students, model.Student{
			ID:          id,
			DisplayName: stringField(fields, "display_name", "name"),
		})
	}
	return students, nil
}

// Evaluations canonicalizes an evaluation-definition lookup response.
// Missing weights default to zero.
func Evaluations(payload []byte) ([]model.Evaluation, error) {
	items, err := Series(payload, "evaluations")
	if err != nil {
		return nil, err
	}

	evaluations := make([]model.Evaluation, 0, len(items))
	for _, item := range items {
		fields, err := itemFields(item)
		if err != nil {
			return nil, err
		}
		id, ok := intField(fields, "id", "evaluation_id")
		if !ok {
			continue
		}
		evaluations = append(evaluations, model.Evaluation{
			ID:     id,
			Name:   stringField(fields, "name", "title"),
			Weight: floatField(fields, "weight"),
		})
	}
	return evaluations, nil
}

func itemFields(item json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return nil, fmt.Errorf("series item is not an object: %w", err)
	}
	return fields, nil
}

// stringField probes the keys in order and returns the first present value,
// accepting strings and numbers.
func stringField(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func intField(fields map[string]json.RawMessage, keys ...string) (int64, bool) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			if v, err := n.Int64(); err == nil {
				return v, true
			}
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func floatField(fields map[string]json.RawMessage, keys ...string) float64 {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f
		}
	}
	return 0
}
