package selection

import (
	"strings"

	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/metrics"
	"application-distribution/internal/distribution/models"
)

// Ticket snapshots the generations of the slots an async fetch was issued
// against. A response is applied only while its ticket is current.
type Ticket struct {
	epoch   uint64
	gens    map[models.Slot]uint64
	Version uint64
}

// Change reports what one selection did to the machine.
type Change struct {
	Slot models.Slot
	// Changed is true when the stored id of Slot moved.
	Changed bool
	// Pending is true when the label matched no loaded option.
	Pending bool
	// Cleared lists descendants whose selection was wiped.
	Cleared []models.Slot
	// Reload lists slots whose option list was dropped and can be fetched now.
	Reload  []models.Slot
	Version uint64
}

// Machine holds one form's SelectionContext. It is not safe for concurrent
// use; the form serializes access.
type Machine struct {
	chain   Chain
	values  map[models.Slot]models.Resolved[int]
	pending map[models.Slot]string
	options map[models.Slot][]models.OrganizationalEntity
	loaded  map[models.Slot]bool
	gens    map[models.Slot]uint64
	version uint64
	epoch   uint64
}

func NewMachine(kind models.RecipientKind) (*Machine, error) {
	chain, err := ChainFor(kind)
	if err != nil {
		return nil, err
	}
	m := &Machine{chain: chain}
	m.init()
	return m, nil
}

func (m *Machine) init() {
	m.values = make(map[models.Slot]models.Resolved[int])
	m.pending = make(map[models.Slot]string)
	m.options = make(map[models.Slot][]models.OrganizationalEntity)
	m.loaded = make(map[models.Slot]bool)
	m.gens = make(map[models.Slot]uint64)
}

func (m *Machine) Chain() Chain { return m.chain }

// Version increases on every stored-id change, cascade or reset.
func (m *Machine) Version() uint64 { return m.version }

// Select applies the operator's label for slot. A label no loaded option
// matches is parked as pending and keeps the previous id untouched.
func (m *Machine) Select(slot models.Slot, label string) (Change, error) {
	if !m.chain.Has(slot) {
		return Change{}, apperrors.NewUnknownFieldError(string(slot))
	}
	label = strings.TrimSpace(label)
	cur := m.values[slot]

	if label == "" {
		delete(m.pending, slot)
		if cur.Empty() {
			return Change{Slot: slot, Version: m.version}, nil
		}
		return m.commit(slot, models.Resolved[int]{}), nil
	}

	resolved, ok := models.Reconcile(label, m.options[slot])
	if !ok {
		m.pending[slot] = label
		return Change{Slot: slot, Pending: true, Version: m.version}, nil
	}
	delete(m.pending, slot)

	if cur.SameID(resolved.ID) {
		m.values[slot] = resolved
		return Change{Slot: slot, Version: m.version}, nil
	}
	return m.commit(slot, resolved), nil
}

// Seed stores known selections without cascading, for forms opened on an
// existing distribution.
func (m *Machine) Seed(values map[models.Slot]models.Resolved[int]) {
	for slot, v := range values {
		if !m.chain.Has(slot) {
			continue
		}
		m.values[slot] = v
		m.gens[slot]++
	}
	m.version++
}

func (m *Machine) commit(slot models.Slot, value models.Resolved[int]) Change {
	m.version++
	m.values[slot] = value
	m.gens[slot]++

	change := Change{Slot: slot, Changed: true}
	touched := map[models.Slot]bool{slot: true}

	for _, d := range m.chain.Descendants(slot) {
		touched[d] = true
		_, wasPending := m.pending[d]
		if m.values[d].Empty() && !wasPending {
			continue
		}
		delete(m.values, d)
		delete(m.pending, d)
		m.gens[d]++
		change.Cleared = append(change.Cleared, d)
		metrics.CascadeClears.WithLabelValues(string(m.chain.Kind), string(d)).Inc()
	}

	for _, s := range m.chain.Slots {
		if !intersects(m.chain.Deps(s), touched) {
			continue
		}
		delete(m.options, s)
		m.loaded[s] = false
		if m.Ready(s) {
			change.Reload = append(change.Reload, s)
		}
	}

	change.Version = m.version
	return change
}

// Ready reports whether every option dependency of slot has an id.
func (m *Machine) Ready(slot models.Slot) bool {
	for _, dep := range m.chain.Deps(slot) {
		if m.values[dep].ID == nil {
			return false
		}
	}
	return true
}

// Loadable lists ready slots whose options are not loaded, in chain order.
func (m *Machine) Loadable() []models.Slot {
	var out []models.Slot
	for _, s := range m.chain.Slots {
		if !m.loaded[s] && m.Ready(s) {
			out = append(out, s)
		}
	}
	return out
}

// Ticket snapshots deps for an async fetch.
func (m *Machine) Ticket(deps ...models.Slot) Ticket {
	t := Ticket{epoch: m.epoch, gens: make(map[models.Slot]uint64, len(deps)), Version: m.version}
	for _, d := range deps {
		t.gens[d] = m.gens[d]
	}
	return t
}

// OptionsTicket is the ticket for fetching slot's option list.
func (m *Machine) OptionsTicket(slot models.Slot) Ticket {
	return m.Ticket(m.chain.Deps(slot)...)
}

// Current reports whether none of t's slots changed since it was issued.
func (m *Machine) Current(t Ticket) bool {
	if t.epoch != m.epoch {
		return false
	}
	for slot, gen := range t.gens {
		if m.gens[slot] != gen {
			return false
		}
	}
	return true
}

// ApplyOptions installs a fetched option list. Stale lists are dropped and
// applied is false. A pending label for slot is re-evaluated against the new
// list; the returned change is non-nil when that happened.
func (m *Machine) ApplyOptions(t Ticket, slot models.Slot, options []models.OrganizationalEntity) (change *Change, applied bool) {
	if !m.Current(t) {
		return nil, false
	}
	m.options[slot] = options
	m.loaded[slot] = true

	label, ok := m.pending[slot]
	if !ok {
		return nil, true
	}
	ch, err := m.Select(slot, label)
	if err != nil {
		return nil, true
	}
	return &ch, true
}

func (m *Machine) Value(slot models.Slot) models.Resolved[int] { return m.values[slot] }

func (m *Machine) ID(slot models.Slot) *int { return m.values[slot].ID }

// Pending returns the unresolved label parked on slot.
func (m *Machine) Pending(slot models.Slot) (string, bool) {
	label, ok := m.pending[slot]
	return label, ok
}

func (m *Machine) Options(slot models.Slot) []models.OrganizationalEntity { return m.options[slot] }

func (m *Machine) Loaded(slot models.Slot) bool { return m.loaded[slot] }

// Context returns the current ids as a SelectionContext.
func (m *Machine) Context() models.SelectionContext {
	var c models.SelectionContext
	for _, s := range m.chain.Slots {
		if id := m.values[s].ID; id != nil {
			v := *id
			c = c.WithID(s, &v)
		}
	}
	return c
}

// Reset empties the machine and invalidates every outstanding ticket.
func (m *Machine) Reset() {
	m.init()
	m.epoch++
	m.version++
}

func intersects(deps []models.Slot, set map[models.Slot]bool) bool {
	for _, d := range deps {
		if set[d] {
			return true
		}
	}
	return false
}
