package formstate

import (
	"sort"
	"strconv"

	"application-distribution/internal/distribution/models"
)

// Patch is an authoritative value resolved from the backend. A nil *Patch in a
// desired map means "not known yet" and never writes.
type Patch struct {
	Text *string
	ID   *int
}

// TextPatch builds a text-only patch.
func TextPatch(s string) *Patch { return &Patch{Text: &s} }

// IntPatch builds a text patch from a number.
func IntPatch(v int) *Patch { return TextPatch(strconv.Itoa(v)) }

// IDPatch builds an id patch that also canonicalizes the label.
func IDPatch(label string, id int) *Patch { return &Patch{Text: &label, ID: &id} }

// key identifies the backend value for change detection. Ids compare
// numerically, texts as strings.
func (p *Patch) key() string {
	k := ""
	if p.ID != nil {
		k = "#" + strconv.Itoa(*p.ID)
	}
	if p.Text != nil {
		k += "|" + *p.Text
	}
	return k
}

// Policy decides which fields a form mode lets the synchronizer touch.
type Policy struct {
	Mode           models.Mode
	SkipAppNoPatch bool
}

// Allows reports whether f may be patched. Create mode patches everything.
// Update mode patches ids and computed fields, and applicationNoFrom unless
// the operator keeps a previously confirmed start.
func (p Policy) Allows(f Field) bool {
	if p.Mode != models.ModeUpdate {
		return true
	}
	if f == FieldApplicationNoFrom {
		return !p.SkipAppNoPatch
	}
	return true
}

// Synchronizer applies backend values onto a State in one reconciliation pass.
// A field fires only when its backend value changed since the last pass that
// wrote it, so an operator edit is not reverted by an unchanged backend value.
type Synchronizer struct {
	policy   Policy
	lastSeen map[Field]string
}

func NewSynchronizer(policy Policy) *Synchronizer {
	return &Synchronizer{policy: policy, lastSeen: make(map[Field]string)}
}

func (s *Synchronizer) Policy() Policy { return s.policy }

// Reconcile diffs desired against state and returns the fields it wrote, in
// name order. The focused field is skipped and stays eligible for the next
// pass.
func (s *Synchronizer) Reconcile(st *State, desired map[Field]*Patch) []Field {
	fields := make([]Field, 0, len(desired))
	for f := range desired {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	var written []Field
	for _, f := range fields {
		p := desired[f]
		if p == nil || !s.policy.Allows(f) {
			continue
		}
		key := p.key()
		if seen, ok := s.lastSeen[f]; ok && seen == key {
			continue
		}
		if st.Focused() == f {
			continue
		}
		s.lastSeen[f] = key

		cur := st.Get(f)
		next := cur
		if p.Text != nil {
			next.Text = *p.Text
		}
		if p.ID != nil {
			id := *p.ID
			next.ID = &id
		}
		if st.Put(f, next) {
			written = append(written, f)
		}
	}
	return written
}

// Acknowledge marks p as seen for f without writing, so the operator's value
// wins over a backend value that arrived while they were editing.
func (s *Synchronizer) Acknowledge(f Field, p *Patch) {
	if p == nil {
		return
	}
	s.lastSeen[f] = p.key()
}

// Forget drops the change-detection memory of fields, typically after a
// cascade cleared them, so the next backend value is applied even if equal.
func (s *Synchronizer) Forget(fields ...Field) {
	for _, f := range fields {
		delete(s.lastSeen, f)
	}
}

// Reset forgets everything.
func (s *Synchronizer) Reset() {
	s.lastSeen = make(map[Field]string)
}
