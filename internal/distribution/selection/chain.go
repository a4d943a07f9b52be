// Package selection keeps the operator's hierarchical choices for one
// distribution form and clears every dependent choice when an ancestor changes.
package selection

import (
	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/distribution/models"
)

// Chain describes the selection graph of one recipient kind.
type Chain struct {
	Kind models.RecipientKind
	// Slots in display order, ancestors first.
	Slots []models.Slot
	// Parents drive cascade clearing.
	Parents map[models.Slot][]models.Slot
	// OptionDeps are the slots whose ids a slot's option list is fetched with.
	// A slot with no entry depends on its parents.
	OptionDeps map[models.Slot][]models.Slot
	// Recipient is the slot whose id is the series receiver.
	Recipient models.Slot
}

var chains = map[models.RecipientKind]Chain{
	models.KindZone: {
		Kind: models.KindZone,
		Slots: []models.Slot{
			models.SlotAcademicYear, models.SlotState, models.SlotCity,
			models.SlotZone, models.SlotIssuedTo, models.SlotFee,
		},
		Parents: map[models.Slot][]models.Slot{
			models.SlotState:    {models.SlotAcademicYear},
			models.SlotCity:     {models.SlotState},
			models.SlotZone:     {models.SlotCity},
			models.SlotIssuedTo: {models.SlotZone},
			models.SlotFee:      {models.SlotAcademicYear, models.SlotZone},
		},
		OptionDeps: map[models.Slot][]models.Slot{
			models.SlotState: {},
			models.SlotFee:   {models.SlotAcademicYear},
		},
		Recipient: models.SlotZone,
	},
	models.KindDGM: {
		Kind: models.KindDGM,
		Slots: []models.Slot{
			models.SlotAcademicYear, models.SlotCity, models.SlotZone,
			models.SlotCampus, models.SlotIssuedTo, models.SlotFee,
		},
		Parents: map[models.Slot][]models.Slot{
			models.SlotCity:     {models.SlotAcademicYear},
			models.SlotZone:     {models.SlotCity},
			models.SlotCampus:   {models.SlotZone},
			models.SlotIssuedTo: {models.SlotCampus},
			models.SlotFee:      {models.SlotAcademicYear, models.SlotCampus},
		},
		OptionDeps: map[models.Slot][]models.Slot{
			models.SlotCity: {},
			models.SlotFee:  {models.SlotAcademicYear},
		},
		Recipient: models.SlotCampus,
	},
	models.KindCampus: {
		Kind: models.KindCampus,
		Slots: []models.Slot{
			models.SlotAcademicYear, models.SlotDistrict, models.SlotCity,
			models.SlotCampus, models.SlotIssuedTo, models.SlotFee,
		},
		Parents: map[models.Slot][]models.Slot{
			models.SlotDistrict: {models.SlotAcademicYear},
			models.SlotCity:     {models.SlotDistrict},
			models.SlotCampus:   {models.SlotCity},
			models.SlotIssuedTo: {models.SlotCampus},
			models.SlotFee:      {models.SlotAcademicYear, models.SlotCampus},
		},
		OptionDeps: map[models.Slot][]models.Slot{
			models.SlotDistrict: {},
			models.SlotFee:      {models.SlotAcademicYear},
		},
		Recipient: models.SlotCampus,
	},
}

// ChainFor returns the chain of kind. Unknown kinds are a fatal error.
func ChainFor(kind models.RecipientKind) (Chain, error) {
	c, ok := chains[kind]
	if !ok {
		return Chain{}, apperrors.NewUnknownFormTypeError(string(kind))
	}
	return c, nil
}

// Has reports whether slot belongs to the chain.
func (c Chain) Has(slot models.Slot) bool {
	for _, s := range c.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Deps returns the option dependencies of slot.
func (c Chain) Deps(slot models.Slot) []models.Slot {
	if deps, ok := c.OptionDeps[slot]; ok {
		return deps
	}
	return c.Parents[slot]
}

// Descendants returns every slot that transitively has slot as a parent, in
// chain order.
func (c Chain) Descendants(slot models.Slot) []models.Slot {
	marked := map[models.Slot]bool{slot: true}
	// Slots are ancestor-first, so one ordered pass closes the relation.
	var out []models.Slot
	for _, s := range c.Slots {
		if s == slot {
			continue
		}
		for _, p := range c.Parents[s] {
			if marked[p] {
				marked[s] = true
				out = append(out, s)
				break
			}
		}
	}
	return out
}
