package formstate

import (
	"testing"
	"time"

	"application-distribution/internal/distribution/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState() *State {
	return New(time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC))
}

// ==========================================
// State
// ==========================================

func TestNew_Defaults(t *testing.T) {
	st := newState()
	assert.Equal(t, "03/06/2025", st.Text(FieldIssueDate))
	assert.Equal(t, "", st.Text(FieldApplicationNoFrom))
	assert.Nil(t, st.ID(FieldCity))
}

func TestState_FocusTracking(t *testing.T) {
	st := newState()
	st.Focus(FieldApplicationNoFrom)
	st.Input(FieldApplicationNoFrom, "12")
	f, edited := st.Blur()
	assert.Equal(t, FieldApplicationNoFrom, f)
	assert.True(t, edited)

	st.Focus(FieldRange)
	f, edited = st.Blur()
	assert.Equal(t, FieldRange, f)
	assert.False(t, edited)
	assert.Equal(t, Field(""), st.Focused())
}

func TestState_ClearAndSnapshot(t *testing.T) {
	st := newState()
	st.Put(FieldZone, Value{Text: "North", ID: models.IntPtr(3)})
	snap := st.Snapshot()

	st.Clear(FieldZone, FieldCampus)
	assert.Equal(t, Value{}, st.Get(FieldZone))
	assert.Equal(t, 3, *snap[FieldZone].ID, "snapshot is a copy")
}

// ==========================================
// Synchronizer
// ==========================================

func TestReconcile_SameValueTwiceWritesOnce(t *testing.T) {
	st := newState()
	sync := NewSynchronizer(Policy{Mode: models.ModeCreate})
	desired := map[Field]*Patch{FieldMobileNumber: TextPatch("9876543210")}

	first := sync.Reconcile(st, desired)
	writes := st.Writes()
	second := sync.Reconcile(st, desired)

	assert.Equal(t, []Field{FieldMobileNumber}, first)
	assert.Empty(t, second)
	assert.Equal(t, writes, st.Writes())
}

func TestReconcile_NilPatchNeverWrites(t *testing.T) {
	st := newState()
	st.Put(FieldSeries, Value{Text: "S-1"})
	sync := NewSynchronizer(Policy{})

	written := sync.Reconcile(st, map[Field]*Patch{FieldSeries: nil})

	assert.Empty(t, written)
	assert.Equal(t, "S-1", st.Text(FieldSeries))
}

func TestReconcile_EqualCurrentValueIsNotAWrite(t *testing.T) {
	st := newState()
	st.Input(FieldApplicationNoFrom, "1000")
	sync := NewSynchronizer(Policy{})

	written := sync.Reconcile(st, map[Field]*Patch{FieldApplicationNoFrom: IntPatch(1000)})
	assert.Empty(t, written)
}

func TestReconcile_DoesNotRevertOperatorEditWhenSourceUnchanged(t *testing.T) {
	st := newState()
	sync := NewSynchronizer(Policy{})
	desired := map[Field]*Patch{FieldApplicationNoFrom: IntPatch(1000)}

	sync.Reconcile(st, desired)
	st.Input(FieldApplicationNoFrom, "1010")
	sync.Reconcile(st, desired)

	assert.Equal(t, "1010", st.Text(FieldApplicationNoFrom))

	// a new backend value does fire
	sync.Reconcile(st, map[Field]*Patch{FieldApplicationNoFrom: IntPatch(1200)})
	assert.Equal(t, "1200", st.Text(FieldApplicationNoFrom))
}

func TestReconcile_SkipsFocusedFieldUntilBlur(t *testing.T) {
	st := newState()
	sync := NewSynchronizer(Policy{})
	desired := map[Field]*Patch{
		FieldApplicationNoFrom: IntPatch(1000),
		FieldAvailableAppNoTo:  IntPatch(2000),
	}

	st.Focus(FieldApplicationNoFrom)
	written := sync.Reconcile(st, desired)
	assert.Equal(t, []Field{FieldAvailableAppNoTo}, written)
	assert.Equal(t, "", st.Text(FieldApplicationNoFrom))

	st.Blur()
	written = sync.Reconcile(st, desired)
	assert.Equal(t, []Field{FieldApplicationNoFrom}, written)
}

func TestAcknowledge_OperatorWinsAfterEditingUnderFocus(t *testing.T) {
	st := newState()
	sync := NewSynchronizer(Policy{})
	desired := map[Field]*Patch{FieldApplicationNoFrom: IntPatch(1000)}

	st.Focus(FieldApplicationNoFrom)
	sync.Reconcile(st, desired)
	st.Input(FieldApplicationNoFrom, "1500")
	f, edited := st.Blur()
	require.True(t, edited)
	sync.Acknowledge(f, desired[f])

	assert.Empty(t, sync.Reconcile(st, desired))
	assert.Equal(t, "1500", st.Text(FieldApplicationNoFrom))
}

func TestReconcile_IDPatchComparesNumerically(t *testing.T) {
	st := newState()
	st.Input(FieldCity, "hyderabad")
	sync := NewSynchronizer(Policy{})

	written := sync.Reconcile(st, map[Field]*Patch{FieldCity: IDPatch("Hyderabad", 7)})
	require.Equal(t, []Field{FieldCity}, written)
	assert.Equal(t, Value{Text: "Hyderabad", ID: models.IntPtr(7)}, st.Get(FieldCity))

	assert.Empty(t, sync.Reconcile(st, map[Field]*Patch{FieldCity: IDPatch("Hyderabad", 7)}))
}

func TestForget_ReappliesAfterClear(t *testing.T) {
	st := newState()
	sync := NewSynchronizer(Policy{})
	desired := map[Field]*Patch{FieldSeries: TextPatch("S-1")}

	sync.Reconcile(st, desired)
	st.Clear(FieldSeries)
	assert.Empty(t, sync.Reconcile(st, desired), "unforgotten value is treated as seen")

	sync.Forget(FieldSeries)
	assert.Equal(t, []Field{FieldSeries}, sync.Reconcile(st, desired))
}

func TestPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		field  Field
		want   bool
	}{
		{"create patches start", Policy{Mode: models.ModeCreate, SkipAppNoPatch: true}, FieldApplicationNoFrom, true},
		{"update patches start by default", Policy{Mode: models.ModeUpdate}, FieldApplicationNoFrom, true},
		{"update keeps confirmed start", Policy{Mode: models.ModeUpdate, SkipAppNoPatch: true}, FieldApplicationNoFrom, false},
		{"update still patches mobile", Policy{Mode: models.ModeUpdate, SkipAppNoPatch: true}, FieldMobileNumber, true},
		{"update patches ids", Policy{Mode: models.ModeUpdate}, FieldCampus, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Allows(tt.field))
		})
	}

	st := newState()
	sync := NewSynchronizer(Policy{Mode: models.ModeUpdate, SkipAppNoPatch: true})
	st.Input(FieldApplicationNoFrom, "1100")
	sync.Reconcile(st, map[Field]*Patch{FieldApplicationNoFrom: IntPatch(1300)})
	assert.Equal(t, "1100", st.Text(FieldApplicationNoFrom))
}
