// internal/workers/distribution/submit-distribution/models.go
package submitdistribution

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"application-distribution/internal/common/validation"
)

type Input struct {
	FormType  string `json:"formType"`
	Mode      string `json:"mode"`
	EditID    *int   `json:"editId,omitempty"`
	CreatedBy int    `json:"createdBy"`
	Category  string `json:"category,omitempty"`
	// Fields is keyed by form field name (academicYear, zone, applicationNoFrom, ...).
	Fields map[string]FieldValue `json:"fields"`
}

// FieldValue accepts a bare string, a bare number, or {"label", "id"}.
// A bare integer on an id-bearing field is taken as the id.
type FieldValue struct {
	Label string `json:"label"`
	ID    *int   `json:"id,omitempty"`
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = FieldValue{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FieldValue{Label: s}
		return nil
	case len(data) > 0 && data[0] == '{':
		type plain FieldValue
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*v = FieldValue(p)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("field value %s: %w", data, err)
	}
	*v = FieldValue{Label: strconv.FormatFloat(f, 'f', -1, 64)}
	if f == math.Trunc(f) {
		id := int(f)
		v.ID = &id
	}
	return nil
}

type Output struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	Operation         string `json:"operation"`
	Kind              string `json:"distributionKind"`
	ApplicationNoFrom *int   `json:"appStartNo,omitempty"`
	ApplicationNoTo   *int   `json:"appEndNo,omitempty"`
}

// modePattern accepts create or update in any case, matching models.ParseMode.
var modePattern = validation.Pattern(`(?i)^\s*(create|update)\s*$`)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"formType":  {Type: "string", Description: "zone, dgm or campus"},
			"mode":      {Type: "string", Pattern: modePattern},
			"createdBy": {Type: "integer", Description: "Operator employee id", Minimum: validation.Min(1)},
			"category":  {Type: "string"},
			"fields":    {Type: "object"},
		},
		Required:             []string{"formType", "createdBy", "fields"},
		AdditionalProperties: true,
	}
}
