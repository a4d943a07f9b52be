package models

import "strings"

// Slot names one selection in a recipient chain.
type Slot string

const (
	SlotAcademicYear Slot = "academicYear"
	SlotState        Slot = "state"
	SlotCity         Slot = "city"
	SlotZone         Slot = "zone"
	SlotCampus       Slot = "campus"
	SlotDistrict     Slot = "campaignDistrict"
	SlotIssuedTo     Slot = "issuedTo"
	SlotFee          Slot = "applicationFee"
)

// Resolved pairs the label a widget shows with the id the backend needs. A nil
// ID means the label is not (yet) backed by a known entity.
type Resolved[T comparable] struct {
	Label string `json:"label"`
	ID    *T     `json:"id,omitempty"`
}

// Empty reports a cleared selection.
func (r Resolved[T]) Empty() bool {
	return r.ID == nil && r.Label == ""
}

// SameID compares ids, treating two nils as equal.
func (r Resolved[T]) SameID(other *T) bool {
	if r.ID == nil || other == nil {
		return r.ID == nil && other == nil
	}
	return *r.ID == *other
}

// Reconcile resolves label against options. Matching ignores case and
// surrounding spaces. The matched entity supplies the canonical label. An
// empty label resolves to a clear; ok is false when no option matches.
func Reconcile(label string, options []OrganizationalEntity) (Resolved[int], bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Resolved[int]{}, true
	}
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt.Label), label) {
			id := opt.ID
			return Resolved[int]{Label: opt.Label, ID: &id}, true
		}
	}
	return Resolved[int]{Label: label}, false
}

// SelectionContext is the hierarchical choice the operator has made so far.
type SelectionContext struct {
	AcademicYearID *int `json:"academicYearId,omitempty"`
	StateID        *int `json:"stateId,omitempty"`
	CityID         *int `json:"cityId,omitempty"`
	ZoneID         *int `json:"zoneId,omitempty"`
	CampusID       *int `json:"campusId,omitempty"`
	DistrictID     *int `json:"districtId,omitempty"`
	IssuedToEmpID  *int `json:"issuedToEmpId,omitempty"`
	FeeAmount      *int `json:"feeAmount,omitempty"`
}

// ID returns the stored id for slot.
func (c SelectionContext) ID(slot Slot) *int {
	switch slot {
	case SlotAcademicYear:
		return c.AcademicYearID
	case SlotState:
		return c.StateID
	case SlotCity:
		return c.CityID
	case SlotZone:
		return c.ZoneID
	case SlotCampus:
		return c.CampusID
	case SlotDistrict:
		return c.DistrictID
	case SlotIssuedTo:
		return c.IssuedToEmpID
	case SlotFee:
		return c.FeeAmount
	}
	return nil
}

// WithID returns a copy with slot set to id.
func (c SelectionContext) WithID(slot Slot, id *int) SelectionContext {
	switch slot {
	case SlotAcademicYear:
		c.AcademicYearID = id
	case SlotState:
		c.StateID = id
	case SlotCity:
		c.CityID = id
	case SlotZone:
		c.ZoneID = id
	case SlotCampus:
		c.CampusID = id
	case SlotDistrict:
		c.DistrictID = id
	case SlotIssuedTo:
		c.IssuedToEmpID = id
	case SlotFee:
		c.FeeAmount = id
	}
	return c
}

// IntPtr is a small helper for optional ids.
func IntPtr(v int) *int { return &v }
