// Package models holds the reference data and selection types shared by the
// distribution engine components.
package models

import (
	"strings"

	apperrors "application-distribution/internal/common/errors"
)

// RecipientKind selects which of the three distribution flows a form runs.
type RecipientKind string

const (
	KindZone   RecipientKind = "zone"
	KindDGM    RecipientKind = "dgm"
	KindCampus RecipientKind = "campus"
)

// Kinds lists every recipient kind in hierarchy order.
var Kinds = []RecipientKind{KindZone, KindDGM, KindCampus}

// DefaultIssuedToTypeIDs are the audit table type ids the backend ships with.
var DefaultIssuedToTypeIDs = map[RecipientKind]int{KindZone: 2, KindDGM: 3, KindCampus: 4}

// ParseRecipientKind matches the formType discriminator case-insensitively.
// Anything else is a fatal UNKNOWN_FORM_TYPE error.
func ParseRecipientKind(formType string) (RecipientKind, error) {
	switch RecipientKind(strings.ToLower(strings.TrimSpace(formType))) {
	case KindZone:
		return KindZone, nil
	case KindDGM:
		return KindDGM, nil
	case KindCampus:
		return KindCampus, nil
	default:
		return "", apperrors.NewUnknownFormTypeError(formType)
	}
}

// RequiresCategory reports whether campus lookups for this kind are filtered by
// the operator's School/College category.
func (k RecipientKind) RequiresCategory() bool {
	return k == KindDGM || k == KindCampus
}

// Mode distinguishes a new distribution from an edit of an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeUpdate)) {
		return ModeUpdate
	}
	return ModeCreate
}

// EntityKind tags reference data by what it describes.
type EntityKind string

const (
	EntityAcademicYear EntityKind = "AcademicYear"
	EntityState        EntityKind = "State"
	EntityCity         EntityKind = "City"
	EntityZone         EntityKind = "Zone"
	EntityCampus       EntityKind = "Campus"
	EntityDistrict     EntityKind = "District"
	EntityEmployee     EntityKind = "Employee"
	EntityFee          EntityKind = "Fee"
)

// OrganizationalEntity is one row of a directory page. The backend calls the
// label "name".
type OrganizationalEntity struct {
	ID    int        `json:"id"`
	Label string     `json:"name"`
	Kind  EntityKind `json:"kind,omitempty"`
}

// ApplicationSeries is one master block of sequential application numbers.
type ApplicationSeries struct {
	DisplaySeries  string `json:"displaySeries"`
	MasterStartNo  int    `json:"masterStartNo"`
	MasterEndNo    int    `json:"masterEndNo"`
	StartNo        int    `json:"startNo"`
	AvailableCount int    `json:"availableCount"`
}

// AvailableAppNoFrom is the next usable number of the series.
func (s ApplicationSeries) AvailableAppNoFrom() int { return s.StartNo }

// AvailableAppNoTo is the upper bound the operator may allocate up to.
func (s ApplicationSeries) AvailableAppNoTo() int { return s.MasterEndNo }

// Consistent checks masterStartNo <= startNo <= masterEndNo and that
// availableCount matches the remaining span.
func (s ApplicationSeries) Consistent() bool {
	if s.MasterStartNo > s.StartNo || s.StartNo > s.MasterEndNo {
		return false
	}
	return s.AvailableCount == s.MasterEndNo-s.StartNo+1
}

// SessionContext carries the operator identity that gates which flows are visible.
type SessionContext struct {
	EmpID    int    `json:"empId"`
	Category string `json:"category"`
}

// Validate checks the session is usable for kind.
func (s SessionContext) Validate(kind RecipientKind) error {
	if s.EmpID <= 0 {
		return apperrors.NewInvalidSessionError("empId is required")
	}
	if kind.RequiresCategory() && strings.TrimSpace(s.Category) == "" {
		return apperrors.NewInvalidSessionError("category is required for " + string(kind) + " distribution")
	}
	return nil
}

// DistributionRecord is one row of the past-allocation audit table.
type DistributionRecord struct {
	ID             int    `json:"id"`
	AcademicYear   string `json:"academicYear,omitempty"`
	IssuedToEmpID  int    `json:"issuedToEmpId,omitempty"`
	IssuedToName   string `json:"issuedToName,omitempty"`
	ZoneName       string `json:"zoneName,omitempty"`
	CampusName     string `json:"campusName,omitempty"`
	DisplaySeries  string `json:"displaySeries,omitempty"`
	AppStartNo     int    `json:"appStartNo"`
	AppEndNo       int    `json:"appEndNo"`
	Range          int    `json:"range"`
	Amount         int    `json:"application_Amount"`
	IssueDate      string `json:"issueDate"`
	IssuedToTypeID int    `json:"issuedToTypeId,omitempty"`
}
