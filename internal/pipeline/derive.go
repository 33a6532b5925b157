package pipeline

import (
	"regexp"
	"strconv"

	"diary-service/internal/models"
)

var (
	shiftTypeRe = regexp.MustCompile(`^(Day|Night)`)
	durationRe  = regexp.MustCompile(`\d+`)
)

// DeriveFields populates Shift_Type and Duration_min on every record in
// place. Derivation never fails: text that matches neither pattern leaves
// the derived field nil.
func DeriveFields(records models.RecordSet) {
	for i := range records {
		records[i].ShiftType = deriveShiftType(records[i].Shift)
		records[i].DurationMin = deriveDurationMin(records[i].Duration)
	}
}

func deriveShiftType(shift string) *string {
	m := shiftTypeRe.FindString(shift)
	if m == "" {
		return nil
	}
	return &m
}

func deriveDurationMin(duration string) *float64 {
	m := durationRe.FindString(duration)
	if m == "" {
		return nil
	}
	// ParseFloat on a pure digit run only errors by overflowing to +Inf,
	// which it still returns; keep the value and let the JSON-safe encoder
	// null it out.
	v, _ := strconv.ParseFloat(m, 64)
	return &v
}
