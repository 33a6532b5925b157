package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Column names as they appear in site diary exports.
const (
	ColFrom            = "From"
	ColUntil           = "Until"
	ColRing            = "Ring"
	ColCategory        = "Category"
	ColDescription     = "Description"
	ColShift           = "Shift"
	ColDuration        = "Duration"
	ColIgnoreEntry     = "Ignore Entry"
	ColInternalUseOnly = "Internal Use Only"

	ColShiftType   = "Shift_Type"
	ColDurationMin = "Duration_min"
)

// SourceColumns lists the export columns in their canonical order.
var SourceColumns = []string{
	ColFrom, ColUntil, ColRing, ColCategory, ColDescription,
	ColShift, ColDuration, ColIgnoreEntry, ColInternalUseOnly,
}

// FlagValue is the raw text of a boolean-ish flag column. Exports encode
// truth inconsistently ("true", "1", "yes", "TRUE", ...); anything outside
// the truthy set, including empty, reads as false.
type FlagValue string

var truthy = map[string]bool{"true": true, "1": true, "yes": true}

// Bool reports whether the flag text represents truth.
func (f FlagValue) Bool() bool {
	return truthy[strings.ToLower(strings.TrimSpace(string(f)))]
}

// MarshalJSON emits the parsed boolean, not the raw text, so API payloads
// look the same regardless of how the source spelled the flag.
func (f FlagValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Bool())
}

// DiaryRecord is one row of a site diary export. From/Until/Ring are treated
// as opaque text: the pipeline never parses them, it only compares them as
// part of the composite duplicate key.
type DiaryRecord struct {
	From            string    `json:"From"`
	Until           string    `json:"Until"`
	Ring            string    `json:"Ring"`
	Category        string    `json:"Category"`
	Description     string    `json:"Description"`
	Shift           string    `json:"Shift"`
	Duration        string    `json:"Duration"`
	IgnoreEntry     FlagValue `json:"Ignore Entry"`
	InternalUseOnly FlagValue `json:"Internal Use Only"`

	// Derived during processing; nil until the deriver runs, and nil
	// afterwards when the source text did not match.
	ShiftType   *string  `json:"Shift_Type"`
	DurationMin *float64 `json:"Duration_min"`
}

// Key returns the composite duplicate key. Each component is quoted, so no
// cell text can forge a field boundary: distinct tuples always yield
// distinct keys.
func (r *DiaryRecord) Key() string {
	return fmt.Sprintf("%q %q %q %q %q", r.From, r.Until, r.Ring, r.Category, r.Description)
}

// Map returns the record as a generic map keyed by column name, the shape
// used for JSON-safe payload building.
func (r *DiaryRecord) Map() map[string]any {
	m := map[string]any{
		ColFrom:            r.From,
		ColUntil:           r.Until,
		ColRing:            r.Ring,
		ColCategory:        r.Category,
		ColDescription:     r.Description,
		ColShift:           r.Shift,
		ColDuration:        r.Duration,
		ColIgnoreEntry:     r.IgnoreEntry.Bool(),
		ColInternalUseOnly: r.InternalUseOnly.Bool(),
		ColShiftType:       nil,
		ColDurationMin:     nil,
	}
	if r.ShiftType != nil {
		m[ColShiftType] = *r.ShiftType
	}
	if r.DurationMin != nil {
		m[ColDurationMin] = *r.DurationMin
	}
	return m
}

// RecordSet is an ordered sequence of diary records. Order is preserved from
// the source so that duplicate resolution ("first wins") is deterministic.
type RecordSet []DiaryRecord

// Table is a decoded export: the column names that were actually present in
// the source header plus the typed rows.
type Table struct {
	Columns []string
	Records RecordSet
}

// HasColumn reports whether the source header contained the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
