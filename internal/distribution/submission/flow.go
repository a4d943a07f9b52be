package submission

import (
	"context"
	"errors"
	"sync"

	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/logger"

	"github.com/looplab/fsm"
)

// Submit states.
const (
	StateIdle       = "idle"
	StateValidating = "validating"
	StateSubmitting = "submitting"
	StateSuccess    = "success"
	StateFailed     = "failed"
)

const (
	eventValidate = "validate"
	eventReject   = "reject"
	eventSubmit   = "submit"
	eventSucceed  = "succeed"
	eventFail     = "fail"
	eventRecover  = "recover"
	eventReset    = "reset"
)

// Flow is the submit machine of one form instance. A failed submission
// returns to idle straight away, keeping the backend message.
type Flow struct {
	machine *fsm.FSM

	mu      sync.Mutex
	lastErr string
}

func NewFlow(log logger.Logger) *Flow {
	f := &Flow{}
	f.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventValidate, Src: []string{StateIdle, StateSuccess}, Dst: StateValidating},
			{Name: eventReject, Src: []string{StateValidating}, Dst: StateIdle},
			{Name: eventSubmit, Src: []string{StateValidating}, Dst: StateSubmitting},
			{Name: eventSucceed, Src: []string{StateSubmitting}, Dst: StateSuccess},
			{Name: eventFail, Src: []string{StateSubmitting}, Dst: StateFailed},
			{Name: eventRecover, Src: []string{StateFailed}, Dst: StateIdle},
			{Name: eventReset, Src: []string{StateSuccess, StateFailed}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug("submission state changed", map[string]interface{}{
					"event": e.Event,
					"from":  e.Src,
					"to":    e.Dst,
				})
			},
		},
	)
	return f
}

// Begin enters validating. It fails with SUBMISSION_IN_PROGRESS while a
// submission is already running.
func (f *Flow) Begin(ctx context.Context) error {
	if err := f.machine.Event(ctx, eventValidate); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return apperrors.NewSubmissionInProgressError()
		}
		return err
	}
	f.setLastError("")
	return nil
}

// Reject returns to idle after a validation failure.
func (f *Flow) Reject(ctx context.Context, message string) {
	f.setLastError(message)
	_ = f.machine.Event(ctx, eventReject)
}

func (f *Flow) Submitting(ctx context.Context) error {
	return f.machine.Event(ctx, eventSubmit)
}

func (f *Flow) Succeed(ctx context.Context) {
	_ = f.machine.Event(ctx, eventSucceed)
}

// Fail records message and recovers to idle so the operator can resubmit.
func (f *Flow) Fail(ctx context.Context, message string) {
	f.setLastError(message)
	if err := f.machine.Event(ctx, eventFail); err == nil {
		_ = f.machine.Event(ctx, eventRecover)
	}
}

// Reset returns a finished flow to idle and forgets the last error.
func (f *Flow) Reset(ctx context.Context) {
	_ = f.machine.Event(ctx, eventReset)
	f.setLastError("")
}

func (f *Flow) Current() string { return f.machine.Current() }

// Busy is true while validating or submitting.
func (f *Flow) Busy() bool {
	s := f.machine.Current()
	return s == StateValidating || s == StateSubmitting
}

// LastError is the message of the last rejected or failed submission.
func (f *Flow) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Flow) setLastError(s string) {
	f.mu.Lock()
	f.lastErr = s
	f.mu.Unlock()
}
