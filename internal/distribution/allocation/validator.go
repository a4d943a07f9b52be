// Package allocation computes the end of an issued sub-range and enforces the
// two stock invariants against the resolved series. It never calls the backend.
package allocation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	FieldFrom  = "applicationNoFrom"
	FieldRange = "range"
	FieldTo    = "applicationNoTo"
)

// Input is what the operator typed plus the bounds of the resolved series.
// Nil bounds mean no series is resolved yet and the matching check is skipped.
type Input struct {
	From             string
	Range            string
	AvailableCount   *int
	AvailableAppNoTo *int
}

// Result carries the computed end and at most one inline error.
type Result struct {
	ApplicationNoTo *int   `json:"applicationNoTo,omitempty"`
	RangeError      string `json:"rangeError,omitempty"`
	ToError         string `json:"toError,omitempty"`
}

// Valid is true only when an end number was computed.
func (r Result) Valid() bool { return r.ApplicationNoTo != nil }

// HasError reports an invariant violation, as opposed to incomplete input.
func (r Result) HasError() bool { return r.RangeError != "" || r.ToError != "" }

// Outcome names the result for metrics and logs.
func (r Result) Outcome() string {
	switch {
	case r.RangeError != "":
		return "range_exceeded"
	case r.ToError != "":
		return "to_exceeded"
	case r.Valid():
		return "valid"
	default:
		return "incomplete"
	}
}

// Validate recomputes applicationNoTo from scratch. Non-numeric input and a
// range that is not positive yield neither an end nor an error. An end past
// math.MaxInt exceeds any bound; with no bound it is left uncomputed.
func Validate(in Input) Result {
	from, okFrom := parseInt(in.From)
	rng, okRange := parseInt(in.Range)
	if !okFrom || !okRange || rng <= 0 {
		return Result{}
	}

	if in.AvailableCount != nil && rng > *in.AvailableCount {
		return Result{RangeError: fmt.Sprintf("Range cannot exceed Application Count (%d)", *in.AvailableCount)}
	}

	overflows := from > math.MaxInt-rng
	if in.AvailableAppNoTo != nil && (overflows || from+rng > *in.AvailableAppNoTo) {
		return Result{ToError: fmt.Sprintf("Application No To cannot exceed available range (%d)", *in.AvailableAppNoTo)}
	}
	if overflows {
		return Result{}
	}
	computedTo := from + rng
	return Result{ApplicationNoTo: &computedTo}
}

// CheckSubmittable is the submit-time gate. On top of Validate it rejects the
// inputs Validate silently ignores. The map is keyed by field name and is empty
// when the allocation can be submitted.
func CheckSubmittable(in Input) map[string]string {
	problems := make(map[string]string)

	if _, ok := parseInt(in.From); !ok {
		problems[FieldFrom] = "Application No From is required"
	}
	if rng, ok := parseInt(in.Range); !ok || rng <= 0 {
		problems[FieldRange] = "Range must be greater than zero"
	}
	if len(problems) > 0 {
		return problems
	}

	res := Validate(in)
	if res.RangeError != "" {
		problems[FieldRange] = res.RangeError
	}
	if res.ToError != "" {
		problems[FieldTo] = res.ToError
	}
	if in.AvailableCount == nil || in.AvailableAppNoTo == nil {
		problems[FieldFrom] = "No application series is available for this selection"
	}
	return problems
}

// SanitizeDigits drops everything but ASCII digits, as the number inputs do.
func SanitizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}
