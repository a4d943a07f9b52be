// Package formstate is the key/value store behind every visible distribution
// field, plus the synchronizer that patches backend-resolved values into it.
package formstate

import (
	"time"

	"application-distribution/internal/distribution/models"
)

// Field names a form field.
type Field string

const (
	FieldAcademicYear = Field(models.SlotAcademicYear)
	FieldState        = Field(models.SlotState)
	FieldCity         = Field(models.SlotCity)
	FieldZone         = Field(models.SlotZone)
	FieldCampus       = Field(models.SlotCampus)
	FieldDistrict     = Field(models.SlotDistrict)
	FieldIssuedTo     = Field(models.SlotIssuedTo)
	FieldFee          = Field(models.SlotFee)

	FieldApplicationNoFrom  Field = "applicationNoFrom"
	FieldRange              Field = "range"
	FieldApplicationNoTo    Field = "applicationNoTo"
	FieldIssueDate          Field = "issueDate"
	FieldMobileNumber       Field = "mobileNumber"
	FieldAvailableAppNoFrom Field = "availableAppNoFrom"
	FieldAvailableAppNoTo   Field = "availableAppNoTo"
	FieldSeries             Field = "series"
	FieldApplicationCount   Field = "applicationCount"
)

// DateLayout is the dd/mm/yyyy format the operator sees.
const DateLayout = "02/01/2006"

// ReadOnly fields are computed and never accept operator input.
var ReadOnly = map[Field]bool{
	FieldApplicationNoTo:    true,
	FieldMobileNumber:       true,
	FieldAvailableAppNoFrom: true,
	FieldAvailableAppNoTo:   true,
	FieldSeries:             true,
	FieldApplicationCount:   true,
}

// Editable fields take free text from the operator.
var Editable = map[Field]bool{
	FieldApplicationNoFrom: true,
	FieldRange:             true,
	FieldIssueDate:         true,
}

// SlotField maps a selection slot onto its field.
func SlotField(slot models.Slot) Field { return Field(slot) }

// Value is what a field holds: the text the operator sees and, for id-bearing
// fields, the numeric id.
type Value struct {
	Text string `json:"text"`
	ID   *int   `json:"id,omitempty"`
}

func (v Value) equal(o Value) bool {
	if v.Text != o.Text {
		return false
	}
	if v.ID == nil || o.ID == nil {
		return v.ID == nil && o.ID == nil
	}
	return *v.ID == *o.ID
}

// State is one form's FormFieldState. The owning form serializes access.
type State struct {
	values  map[Field]Value
	focused Field
	// edits counts operator writes per field; focusEdits is the count when the
	// focused field gained focus.
	edits      map[Field]int
	focusEdits int
	writes     int
}

// New builds a state with defaults: every field empty, issueDate today.
func New(now time.Time) *State {
	s := &State{
		values: make(map[Field]Value),
		edits:  make(map[Field]int),
	}
	s.values[FieldIssueDate] = Value{Text: now.Format(DateLayout)}
	return s
}

func (s *State) Get(f Field) Value { return s.values[f] }

func (s *State) Text(f Field) string { return s.values[f].Text }

func (s *State) ID(f Field) *int { return s.values[f].ID }

// Input records an operator edit. Label edits on id fields keep the old id
// until the synchronizer patches the reconciled one.
func (s *State) Input(f Field, text string) {
	s.values[f] = Value{Text: text, ID: s.values[f].ID}
	s.edits[f]++
	s.writes++
}

// Put is an engine write. It reports false when v equals the current value.
func (s *State) Put(f Field, v Value) bool {
	if s.values[f].equal(v) {
		return false
	}
	s.values[f] = v
	s.writes++
	return true
}

// Clear empties fields. Cleared fields report as empty, not as defaults.
func (s *State) Clear(fields ...Field) {
	for _, f := range fields {
		if _, ok := s.values[f]; !ok {
			continue
		}
		if s.values[f].equal(Value{}) {
			continue
		}
		s.values[f] = Value{}
		s.writes++
	}
}

// Focus marks f as being edited by the operator.
func (s *State) Focus(f Field) {
	s.focused = f
	s.focusEdits = s.edits[f]
}

// Blur ends editing and reports the field that had focus and whether the
// operator changed it while focused.
func (s *State) Blur() (Field, bool) {
	f := s.focused
	edited := f != "" && s.edits[f] != s.focusEdits
	s.focused = ""
	return f, edited
}

func (s *State) Focused() Field { return s.focused }

// Writes counts every value change, operator or engine.
func (s *State) Writes() int { return s.writes }

// Snapshot copies every field.
func (s *State) Snapshot() map[Field]Value {
	out := make(map[Field]Value, len(s.values))
	for f, v := range s.values {
		if v.ID != nil {
			id := *v.ID
			v.ID = &id
		}
		out[f] = v
	}
	return out
}
