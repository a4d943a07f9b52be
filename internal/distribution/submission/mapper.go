// Package submission builds and sends the create/update request of a
// distribution form and drives its submit state machine.
package submission

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/distribution/formstate"
	"application-distribution/internal/distribution/models"
)

const (
	pathCreate = "/distribution/posts/%s-save"
	pathUpdate = "/distribution/updates/update-%s/%d"

	backendDateLayout = "2006-01-02"
)

// Input is the reconciled form state handed to the mapper.
type Input struct {
	FormType       string
	Mode           models.Mode
	EditID         *int
	Session        models.SessionContext
	IssuedToTypeID int
	Values         map[formstate.Field]formstate.Value
}

// Request is a ready-to-send backend call.
type Request struct {
	Method string
	Path   string
	Body   map[string]interface{}
	Kind   models.RecipientKind
	Mode   models.Mode
}

type bodyID struct {
	key   string
	field formstate.Field
}

var commonIDs = []bodyID{
	{"academicYearId", formstate.FieldAcademicYear},
	{"issuedToEmpId", formstate.FieldIssuedTo},
	{"application_Amount", formstate.FieldFee},
}

var kindIDs = map[models.RecipientKind][]bodyID{
	models.KindZone: {
		{"stateId", formstate.FieldState},
		{"cityId", formstate.FieldCity},
		{"zoneId", formstate.FieldZone},
	},
	models.KindDGM: {
		{"cityId", formstate.FieldCity},
		{"zoneId", formstate.FieldZone},
		{"campusId", formstate.FieldCampus},
	},
	models.KindCampus: {
		{"districtId", formstate.FieldDistrict},
		{"cityId", formstate.FieldCity},
		{"campusId", formstate.FieldCampus},
	},
}

var numberFields = []bodyID{
	{"appStartNo", formstate.FieldApplicationNoFrom},
	{"appEndNo", formstate.FieldApplicationNoTo},
	{"range", formstate.FieldRange},
}

// Map builds the request for in. The kind and, for updates, the edit id are
// checked before anything else.
func Map(in Input) (*Request, error) {
	kind, mode, err := Preflight(in)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"createdBy":      in.Session.EmpID,
		"issuedToTypeId": in.IssuedToTypeID,
	}

	ids := append(append([]bodyID{}, commonIDs...), kindIDs[kind]...)
	for _, b := range ids {
		v := in.Values[b.field]
		if v.ID == nil {
			return nil, apperrors.NewRequiredFieldMissingError(string(b.field))
		}
		body[b.key] = *v.ID
	}

	for _, b := range numberFields {
		text := strings.TrimSpace(in.Values[b.field].Text)
		if text == "" {
			return nil, apperrors.NewRequiredFieldMissingError(string(b.field))
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, apperrors.NewParseError(fmt.Errorf("%s: %w", b.field, err))
		}
		body[b.key] = n
	}

	issueDate, err := reformatDate(in.Values[formstate.FieldIssueDate].Text)
	if err != nil {
		return nil, err
	}
	body["issueDate"] = issueDate

	req := &Request{Body: body, Kind: kind, Mode: mode}
	if mode == models.ModeUpdate {
		req.Method = http.MethodPut
		req.Path = fmt.Sprintf(pathUpdate, kind, *in.EditID)
	} else {
		req.Method = http.MethodPost
		req.Path = fmt.Sprintf(pathCreate, kind)
	}
	return req, nil
}

// Preflight runs the fatal checks: a known form type and, for an update, an
// edit id.
func Preflight(in Input) (models.RecipientKind, models.Mode, error) {
	kind, err := models.ParseRecipientKind(in.FormType)
	if err != nil {
		return "", "", err
	}
	mode := in.Mode
	if mode == "" {
		mode = models.ModeCreate
	}
	if mode == models.ModeUpdate && in.EditID == nil {
		return "", "", apperrors.NewMissingEditIDError()
	}
	if in.IssuedToTypeID <= 0 {
		return "", "", apperrors.NewRequiredFieldMissingError("issuedToTypeId")
	}
	return kind, mode, nil
}

// reformatDate turns the operator's dd/mm/yyyy into the backend's yyyy-mm-dd.
func reformatDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperrors.NewRequiredFieldMissingError(string(formstate.FieldIssueDate))
	}
	t, err := time.Parse(formstate.DateLayout, s)
	if err != nil {
		return "", apperrors.NewParseError(fmt.Errorf("issueDate: %w", err))
	}
	return t.Format(backendDateLayout), nil
}
