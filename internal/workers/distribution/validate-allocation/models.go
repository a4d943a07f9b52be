// internal/workers/distribution/validate-allocation/models.go
package validateallocation

import "application-distribution/internal/common/validation"

// Input carries the operator's numbers as typed. Process variables may hold
// them as strings or numbers.
type Input struct {
	ApplicationNoFrom string `json:"applicationNoFrom"`
	Range             string `json:"range"`
	AvailableCount    *int   `json:"availableCount,omitempty"`
	AvailableAppNoTo  *int   `json:"availableAppNoTo,omitempty"`
}

type Output struct {
	Valid           bool   `json:"valid"`
	ApplicationNoTo *int   `json:"applicationNoTo,omitempty"`
	RangeError      string `json:"rangeError,omitempty"`
	ToError         string `json:"toError,omitempty"`
	Outcome         string `json:"allocationOutcome"`
}

// digits matches a bound sent as a string. Numeric bounds are held to Minimum.
var digits = validation.Pattern(`^\s*\d+\s*$`)

// GetInputSchema checks the series bounds. The operator's numbers are left
// untyped: anything that is not a whole number is reported as incomplete.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"applicationNoFrom": {Description: "First number to issue, string or number"},
			"range":             {Description: "How many numbers to issue, string or number"},
			"availableCount":    {Description: "Numbers left in the series", Minimum: validation.Min(0), Pattern: digits},
			"availableAppNoTo":  {Description: "Upper bound of the series", Minimum: validation.Min(0), Pattern: digits},
		},
		AdditionalProperties: true,
	}
}
