package submission

import (
	"application-distribution/internal/common/validation"
	"application-distribution/internal/distribution/models"
)

func positiveInt(desc string) validation.Property {
	return validation.Property{Type: "integer", Description: desc, Minimum: validation.Min(1)}
}

// bodySchema is the contract of a create/update body for kind.
func bodySchema(kind models.RecipientKind) validation.JSONSchema {
	props := map[string]validation.Property{
		"academicYearId":     positiveInt("academic year id"),
		"issuedToEmpId":      positiveInt("recipient employee id"),
		"application_Amount": positiveInt("application fee amount"),
		"createdBy":          positiveInt("operator employee id"),
		"issuedToTypeId":     positiveInt("audit table type id"),
		"appStartNo":         positiveInt("first application number issued"),
		"appEndNo":           positiveInt("last application number issued"),
		"range":              positiveInt("count of application numbers issued"),
		"issueDate": {
			Type:        "string",
			Description: "issue date, yyyy-mm-dd",
			Pattern:     validation.Pattern(`^\d{4}-\d{2}-\d{2}$`),
		},
	}
	for _, b := range kindIDs[kind] {
		props[b.key] = positiveInt(string(b.field) + " id")
	}

	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}

	return validation.JSONSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: false,
	}
}
