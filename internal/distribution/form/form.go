// Package form runs one distribution form: it feeds directory pages into the
// selection machine, resolves the series and mobile number for the current
// selection, keeps computed fields in sync and hands the result to submission.
package form

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"application-distribution/internal/common/config"
	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/common/metrics"
	"application-distribution/internal/distribution/allocation"
	"application-distribution/internal/distribution/formstate"
	"application-distribution/internal/distribution/models"
	"application-distribution/internal/distribution/selection"
	"application-distribution/internal/distribution/series"
	"application-distribution/internal/distribution/submission"
)

// maxRounds bounds the fetch loop of a single event.
const maxRounds = 16

// Directory is the reference-data source. directory.Directory implements it.
type Directory interface {
	Options(ctx context.Context, kind models.RecipientKind, slot models.Slot, sel models.SelectionContext, category string) ([]models.OrganizationalEntity, error)
	MobileNumber(ctx context.Context, empID int) (string, error)
	DistributionHistory(ctx context.Context, empID int, kind models.RecipientKind) ([]models.DistributionRecord, error)
}

type SeriesResolver interface {
	Resolve(ctx context.Context, q series.Query) (*models.ApplicationSeries, error)
}

type Submitter interface {
	Run(ctx context.Context, flow *submission.Flow, in submission.Input) (*submission.Outcome, error)
}

type Deps struct {
	Directory Directory
	Series    SeriesResolver
	Submitter Submitter
	Logger    logger.Logger
	Now       func() time.Time
}

type Options struct {
	Kind           models.RecipientKind
	Mode           models.Mode
	EditID         *int
	Session        models.SessionContext
	IssuedToTypeID int
	// SkipAppNoPatch keeps a confirmed applicationNoFrom in update mode.
	SkipAppNoPatch bool
	// RevalidateBeforeSubmit re-resolves the series right before a create.
	RevalidateBeforeSubmit bool
}

// OptionsFromConfig fills the deployment-wide switches of Options for a
// kind's create form. Mode, EditID and SkipAppNoPatch are left to the caller.
func OptionsFromConfig(cfg *config.Config, kind models.RecipientKind, session models.SessionContext) Options {
	return Options{
		Kind:                   kind,
		Mode:                   models.ModeCreate,
		Session:                session,
		IssuedToTypeID:         cfg.Distribution.IssuedToTypeIDs[string(kind)],
		RevalidateBeforeSubmit: cfg.Distribution.RevalidateBeforeSubmit,
	}
}

// Prefill opens the form on an existing distribution.
type Prefill struct {
	Selections map[models.Slot]models.Resolved[int]
	Fields     map[formstate.Field]string
	IsPro      bool
}

// View is a copy of the form for rendering.
type View struct {
	Kind        models.RecipientKind
	Mode        models.Mode
	Version     uint64
	Fields      map[formstate.Field]formstate.Value
	Options     map[models.Slot][]models.OrganizationalEntity
	Pending     map[models.Slot]string
	Allocation  allocation.Result
	Series      *models.ApplicationSeries
	SubmitState string
	SubmitError string
}

type Form struct {
	deps   Deps
	opts   Options
	logger logger.Logger
	flow   *submission.Flow

	mu       sync.Mutex
	machine  *selection.Machine
	state    *formstate.State
	sync     *formstate.Synchronizer
	alloc    allocation.Result
	inflight map[string]bool

	isPro     bool
	proGen    uint64
	series    *models.ApplicationSeries
	seriesKey string
	mobile    *string
	mobileFor *int
}

// New builds a form. The session must carry an employee id, and a category for
// the dgm and campus flows.
func New(deps Deps, opts Options) (*Form, error) {
	if err := opts.Session.Validate(opts.Kind); err != nil {
		return nil, err
	}
	machine, err := selection.NewMachine(opts.Kind)
	if err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = models.ModeCreate
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}

	log := deps.Logger.WithFields(map[string]interface{}{
		"component": "form",
		"kind":      string(opts.Kind),
		"mode":      string(opts.Mode),
	})
	return &Form{
		deps:     deps,
		opts:     opts,
		logger:   log,
		flow:     submission.NewFlow(log),
		machine:  machine,
		state:    formstate.New(deps.Now()),
		sync:     formstate.NewSynchronizer(formstate.Policy{Mode: opts.Mode, SkipAppNoPatch: opts.SkipAppNoPatch}),
		inflight: make(map[string]bool),
	}, nil
}

// Prefill seeds selections and editable fields without cascading. Call it
// before Load.
func (f *Form) Prefill(p Prefill) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.machine.Seed(p.Selections)
	for slot, v := range p.Selections {
		if !f.machine.Chain().Has(slot) {
			continue
		}
		f.state.Put(formstate.SlotField(slot), formstate.Value{Text: v.Label, ID: v.ID})
	}
	for field, text := range p.Fields {
		f.state.Put(field, formstate.Value{Text: text})
	}
	f.isPro = p.IsPro
	f.proGen++
	f.refresh()
}

// Load fetches every option list, series and mobile number the current
// selection allows.
func (f *Form) Load(ctx context.Context) error {
	f.settle(ctx)
	return nil
}

// SetField applies an operator edit and settles the fetches it triggers.
func (f *Form) SetField(ctx context.Context, field formstate.Field, text string) error {
	if formstate.ReadOnly[field] {
		return apperrors.NewReadOnlyFieldError(string(field))
	}

	f.mu.Lock()
	slot := models.Slot(field)
	switch {
	case f.machine.Chain().Has(slot):
		f.state.Input(field, text)
		change, err := f.machine.Select(slot, text)
		if err != nil {
			f.mu.Unlock()
			return err
		}
		f.applyChange(change)
	case formstate.Editable[field]:
		if field == formstate.FieldApplicationNoFrom || field == formstate.FieldRange {
			text = allocation.SanitizeDigits(text)
		}
		f.state.Input(field, text)
	default:
		f.mu.Unlock()
		return apperrors.NewUnknownFieldError(string(field))
	}
	f.refresh()
	f.mu.Unlock()

	f.settle(ctx)
	return nil
}

// SetPro switches the pro series flag.
func (f *Form) SetPro(ctx context.Context, isPro bool) {
	f.mu.Lock()
	if f.isPro != isPro {
		f.isPro = isPro
		f.proGen++
	}
	f.mu.Unlock()
	f.settle(ctx)
}

// Focus marks field as being edited. The synchronizer leaves it alone until
// Blur.
func (f *Form) Focus(field formstate.Field) error {
	if !formstate.ReadOnly[field] && !formstate.Editable[field] && !f.machine.Chain().Has(models.Slot(field)) {
		return apperrors.NewUnknownFieldError(string(field))
	}
	f.mu.Lock()
	f.state.Focus(field)
	f.mu.Unlock()
	return nil
}

// Blur ends editing. A value the operator typed while focused wins over a
// backend value that arrived meanwhile.
func (f *Form) Blur(ctx context.Context) {
	f.mu.Lock()
	field, edited := f.state.Blur()
	if edited && formstate.Editable[field] {
		f.sync.Acknowledge(field, f.desired()[field])
	}
	f.refresh()
	f.mu.Unlock()
	f.settle(ctx)
}

// Snapshot copies the form.
func (f *Form) Snapshot() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		Kind:        f.opts.Kind,
		Mode:        f.opts.Mode,
		Version:     f.machine.Version(),
		Fields:      f.state.Snapshot(),
		Options:     make(map[models.Slot][]models.OrganizationalEntity),
		Pending:     make(map[models.Slot]string),
		Allocation:  f.alloc,
		SubmitState: f.flow.Current(),
		SubmitError: f.flow.LastError(),
	}
	for _, s := range f.machine.Chain().Slots {
		if opts := f.machine.Options(s); opts != nil {
			v.Options[s] = append([]models.OrganizationalEntity(nil), opts...)
		}
		if label, ok := f.machine.Pending(s); ok {
			v.Pending[s] = label
		}
	}
	if f.series != nil {
		s := *f.series
		v.Series = &s
	}
	return v
}

// Submit validates and sends the form. Entered values are kept on failure.
func (f *Form) Submit(ctx context.Context) (*submission.Outcome, error) {
	if f.flow.Busy() {
		return nil, apperrors.NewSubmissionInProgressError()
	}
	if f.opts.Mode == models.ModeCreate && f.opts.RevalidateBeforeSubmit {
		f.mu.Lock()
		f.seriesKey = ""
		f.mu.Unlock()
		f.settle(ctx)
	}

	f.mu.Lock()
	in := f.submissionInput()
	f.mu.Unlock()

	return f.deps.Submitter.Run(ctx, f.flow, in)
}

// Reset empties the form. Responses still in flight are dropped.
func (f *Form) Reset(ctx context.Context) {
	f.mu.Lock()
	f.machine.Reset()
	f.state = formstate.New(f.deps.Now())
	f.sync.Reset()
	f.alloc = allocation.Result{}
	f.series, f.seriesKey = nil, ""
	f.mobile, f.mobileFor = nil, nil
	f.isPro = false
	f.proGen++
	f.mu.Unlock()
	f.flow.Reset(ctx)
}

// History reads the operator's past allocations of this kind.
func (f *Form) History(ctx context.Context) ([]models.DistributionRecord, error) {
	return f.deps.Directory.DistributionHistory(ctx, f.opts.Session.EmpID, f.opts.Kind)
}

// ==========================================
// Reconciliation (callers hold f.mu)
// ==========================================

var seriesFields = []formstate.Field{
	formstate.FieldSeries,
	formstate.FieldAvailableAppNoFrom,
	formstate.FieldAvailableAppNoTo,
	formstate.FieldApplicationCount,
	formstate.FieldApplicationNoFrom,
	formstate.FieldRange,
	formstate.FieldApplicationNoTo,
}

func (f *Form) applyChange(ch selection.Change) {
	for _, slot := range ch.Cleared {
		field := formstate.SlotField(slot)
		f.state.Clear(field)
		f.sync.Forget(field)
	}
}

func (f *Form) clearSeries() {
	f.state.Clear(seriesFields...)
	f.sync.Forget(seriesFields...)
}

// desired is the backend-sourced value of every synchronized field. A nil
// entry is not known yet.
func (f *Form) desired() map[formstate.Field]*formstate.Patch {
	d := make(map[formstate.Field]*formstate.Patch)
	for _, s := range f.machine.Chain().Slots {
		v := f.machine.Value(s)
		if v.ID != nil {
			d[formstate.SlotField(s)] = formstate.IDPatch(v.Label, *v.ID)
		}
	}

	emp := f.machine.ID(models.SlotIssuedTo)
	if f.mobile != nil && emp != nil && f.mobileFor != nil && *f.mobileFor == *emp {
		d[formstate.FieldMobileNumber] = formstate.TextPatch(*f.mobile)
	} else {
		d[formstate.FieldMobileNumber] = nil
	}

	if s := f.series; s != nil {
		d[formstate.FieldSeries] = formstate.TextPatch(s.DisplaySeries)
		d[formstate.FieldAvailableAppNoFrom] = formstate.IntPatch(s.AvailableAppNoFrom())
		d[formstate.FieldAvailableAppNoTo] = formstate.IntPatch(s.AvailableAppNoTo())
		d[formstate.FieldApplicationCount] = formstate.IntPatch(s.AvailableCount)
		d[formstate.FieldApplicationNoFrom] = formstate.IntPatch(s.AvailableAppNoFrom())
	}
	return d
}

// refresh drops values whose source is gone, runs one synchronizer pass and
// recomputes applicationNoTo.
func (f *Form) refresh() {
	for _, s := range f.machine.Chain().Slots {
		field := formstate.SlotField(s)
		if _, pending := f.machine.Pending(s); pending {
			continue
		}
		if f.machine.ID(s) == nil && f.state.ID(field) != nil {
			f.state.Clear(field)
			f.sync.Forget(field)
		}
	}

	if f.machine.ID(models.SlotIssuedTo) == nil {
		f.mobile, f.mobileFor = nil, nil
		f.state.Clear(formstate.FieldMobileNumber)
		f.sync.Forget(formstate.FieldMobileNumber)
	}

	if !f.query().Complete() && (f.series != nil || f.seriesKey != "") {
		f.series, f.seriesKey = nil, ""
		f.clearSeries()
	}

	f.sync.Reconcile(f.state, f.desired())

	f.alloc = allocation.Validate(allocation.Input{
		From:             f.state.Text(formstate.FieldApplicationNoFrom),
		Range:            f.state.Text(formstate.FieldRange),
		AvailableCount:   atoiPtr(f.state.Text(formstate.FieldApplicationCount)),
		AvailableAppNoTo: atoiPtr(f.state.Text(formstate.FieldAvailableAppNoTo)),
	})
	if f.alloc.ApplicationNoTo != nil {
		f.state.Put(formstate.FieldApplicationNoTo, formstate.Value{Text: strconv.Itoa(*f.alloc.ApplicationNoTo)})
	} else {
		f.state.Clear(formstate.FieldApplicationNoTo)
	}
}

func (f *Form) query() series.Query {
	isPro := f.isPro
	return series.Query{
		ReceiverID:     f.machine.ID(f.machine.Chain().Recipient),
		AcademicYearID: f.machine.ID(models.SlotAcademicYear),
		Amount:         f.machine.ID(models.SlotFee),
		IsPro:          &isPro,
	}
}

func seriesKeyOf(q series.Query) string {
	return fmt.Sprintf("%d/%d/%d/%t", *q.ReceiverID, *q.AcademicYearID, *q.Amount, *q.IsPro)
}

func (f *Form) submissionInput() submission.Input {
	values := f.state.Snapshot()
	for _, s := range f.machine.Chain().Slots {
		if label, ok := f.machine.Pending(s); ok {
			values[formstate.SlotField(s)] = formstate.Value{Text: label}
		}
	}
	return submission.Input{
		FormType:       string(f.opts.Kind),
		Mode:           f.opts.Mode,
		EditID:         f.opts.EditID,
		Session:        f.opts.Session,
		IssuedToTypeID: f.opts.IssuedToTypeID,
		Values:         values,
	}
}

func (f *Form) stale(source string, version uint64) {
	metrics.StaleResponses.WithLabelValues(source).Inc()
	f.logger.Debug("dropped stale response", map[string]interface{}{
		"source":         source,
		"issuedVersion":  version,
		"currentVersion": f.machine.Version(),
	})
}

func atoiPtr(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &v
}
