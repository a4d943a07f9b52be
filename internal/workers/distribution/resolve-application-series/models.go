// internal/workers/distribution/resolve-application-series/models.go
package resolveapplicationseries

import (
	"application-distribution/internal/common/validation"
	"application-distribution/internal/distribution/models"
)

type Input struct {
	ReceiverID     *int `json:"receiverId"`
	AcademicYearID *int `json:"academicYearId"`
	Amount         *int `json:"amount"`
	IsPro          bool `json:"isPro"`
}

type Output struct {
	Found              bool                      `json:"found"`
	Series             *models.ApplicationSeries `json:"series,omitempty"`
	AvailableAppNoFrom *int                      `json:"availableAppNoFrom,omitempty"`
	AvailableAppNoTo   *int                      `json:"availableAppNoTo,omitempty"`
	ApplicationCount   *int                      `json:"applicationCount,omitempty"`
}

// GetInputSchema checks the job variables this worker reads. Other process
// variables are allowed through.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"receiverId":     {Type: "integer", Description: "Zone id (zone flow) or campus id", Minimum: validation.Min(1)},
			"academicYearId": {Type: "integer", Minimum: validation.Min(1)},
			"amount":         {Type: "integer", Description: "Application fee", Minimum: validation.Min(1)},
			"isPro":          {Type: "boolean"},
		},
		Required:             []string{"receiverId", "academicYearId", "amount"},
		AdditionalProperties: true,
	}
}
