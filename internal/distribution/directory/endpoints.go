package directory

import (
	"fmt"
	"net/url"
	"strconv"

	"application-distribution/internal/distribution/models"
)

const (
	basePath = "/distribution/gets"

	pathAcademicYears = basePath + "/academic-years"
	pathStates        = basePath + "/states"
	pathCities        = basePath + "/cities"
	pathDistricts     = basePath + "/districts"
	pathMobileNo      = basePath + "/mobile-no/%d"
	pathHistory       = "/distribution/table/getdistributiondata/%d/%d"
)

// route is one directory read: a path template filled with the id of param.
type route struct {
	template string
	param    models.Slot
	category bool
	kind     models.EntityKind
}

var routes = map[models.RecipientKind]map[models.Slot]route{
	models.KindZone: {
		models.SlotAcademicYear: {template: pathAcademicYears, kind: models.EntityAcademicYear},
		models.SlotState:        {template: pathStates, kind: models.EntityState},
		models.SlotCity:         {template: basePath + "/city/%d", param: models.SlotState, kind: models.EntityCity},
		models.SlotZone:         {template: basePath + "/zones/%d", param: models.SlotCity, kind: models.EntityZone},
		models.SlotIssuedTo:     {template: basePath + "/zone-employees/%d", param: models.SlotZone, kind: models.EntityEmployee},
		models.SlotFee:          {template: basePath + "/application-fees/%d", param: models.SlotAcademicYear, kind: models.EntityFee},
	},
	models.KindDGM: {
		models.SlotAcademicYear: {template: pathAcademicYears, kind: models.EntityAcademicYear},
		models.SlotCity:         {template: pathCities, kind: models.EntityCity},
		models.SlotZone:         {template: basePath + "/zones/%d", param: models.SlotCity, kind: models.EntityZone},
		models.SlotCampus:       {template: basePath + "/campuses/%d", param: models.SlotZone, category: true, kind: models.EntityCampus},
		models.SlotIssuedTo:     {template: basePath + "/dgm-employees/%d", param: models.SlotCampus, kind: models.EntityEmployee},
		models.SlotFee:          {template: basePath + "/application-fees/%d", param: models.SlotAcademicYear, kind: models.EntityFee},
	},
	models.KindCampus: {
		models.SlotAcademicYear: {template: pathAcademicYears, kind: models.EntityAcademicYear},
		models.SlotDistrict:     {template: pathDistricts, kind: models.EntityDistrict},
		models.SlotCity:         {template: basePath + "/district-cities/%d", param: models.SlotDistrict, kind: models.EntityCity},
		models.SlotCampus:       {template: basePath + "/city-campuses/%d", param: models.SlotCity, category: true, kind: models.EntityCampus},
		models.SlotIssuedTo:     {template: basePath + "/campus-employees/%d", param: models.SlotCampus, kind: models.EntityEmployee},
		models.SlotFee:          {template: basePath + "/application-fees/%d", param: models.SlotAcademicYear, kind: models.EntityFee},
	},
}

// resolve fills the route for kind/slot from sel.
func resolve(kind models.RecipientKind, slot models.Slot, sel models.SelectionContext, category string) (route, string, url.Values, error) {
	r, ok := routes[kind][slot]
	if !ok {
		return route{}, "", nil, fmt.Errorf("no directory route for %s/%s", kind, slot)
	}

	path := r.template
	if r.param != "" {
		id := sel.ID(r.param)
		if id == nil {
			return route{}, "", nil, fmt.Errorf("directory route %s/%s needs %s", kind, slot, r.param)
		}
		path = fmt.Sprintf(r.template, *id)
	}

	var query url.Values
	if r.category {
		query = url.Values{"category": {category}}
	}
	return r, path, query, nil
}

func feeEntities(amounts []int) []models.OrganizationalEntity {
	out := make([]models.OrganizationalEntity, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, models.OrganizationalEntity{ID: a, Label: strconv.Itoa(a), Kind: models.EntityFee})
	}
	return out
}
