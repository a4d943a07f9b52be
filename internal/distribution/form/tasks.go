package form

import (
	"context"
	"fmt"
	"sync"

	"application-distribution/internal/distribution/models"
)

type task struct {
	key string
	run func(ctx context.Context)
}

// settle runs fetch rounds until the form needs nothing more. Fetches of a
// round run concurrently without the lock; each one re-checks its ticket
// before writing.
func (f *Form) settle(ctx context.Context) {
	for round := 0; round < maxRounds; round++ {
		if ctx.Err() != nil {
			return
		}
		f.mu.Lock()
		tasks := f.pendingTasks()
		f.mu.Unlock()
		if len(tasks) == 0 {
			return
		}

		var wg sync.WaitGroup
		for _, t := range tasks {
			wg.Add(1)
			go func(t task) {
				defer wg.Done()
				t.run(ctx)
			}(t)
		}
		wg.Wait()
	}
	f.logger.Warn("form did not settle", map[string]interface{}{"rounds": maxRounds})
}

// pendingTasks lists the fetches the current selection calls for and marks
// them in flight. Callers hold f.mu.
func (f *Form) pendingTasks() []task {
	var tasks []task
	add := func(key string, run func(ctx context.Context)) {
		if f.inflight[key] {
			return
		}
		f.inflight[key] = true
		tasks = append(tasks, task{key: key, run: func(ctx context.Context) {
			run(ctx)
			f.mu.Lock()
			delete(f.inflight, key)
			f.mu.Unlock()
		}})
	}

	version := f.machine.Version()
	for _, slot := range f.machine.Loadable() {
		add(fmt.Sprintf("options:%s@%d", slot, version), f.optionsTask(slot))
	}

	if emp := f.machine.ID(models.SlotIssuedTo); emp != nil && (f.mobileFor == nil || *f.mobileFor != *emp) {
		add(fmt.Sprintf("mobile:%d", *emp), f.mobileTask(*emp))
	}

	if q := f.query(); q.Complete() {
		if key := seriesKeyOf(q); key != f.seriesKey {
			add(fmt.Sprintf("series:%s@%d", key, f.proGen), f.seriesTask())
		}
	}
	return tasks
}

func (f *Form) optionsTask(slot models.Slot) func(ctx context.Context) {
	ticket := f.machine.OptionsTicket(slot)
	sel := f.machine.Context()
	kind, category := f.opts.Kind, f.opts.Session.Category

	return func(ctx context.Context) {
		opts, err := f.deps.Directory.Options(ctx, kind, slot, sel, category)

		f.mu.Lock()
		defer f.mu.Unlock()
		if err != nil {
			f.logger.Warn("option list unavailable", map[string]interface{}{"slot": string(slot), "error": err.Error()})
			opts = nil
		}
		change, applied := f.machine.ApplyOptions(ticket, slot, opts)
		if !applied {
			f.stale("options", ticket.Version)
			return
		}
		if change != nil {
			f.applyChange(*change)
		}
		f.refresh()
	}
}

func (f *Form) mobileTask(empID int) func(ctx context.Context) {
	ticket := f.machine.Ticket(models.SlotIssuedTo)

	return func(ctx context.Context) {
		mobile, err := f.deps.Directory.MobileNumber(ctx, empID)

		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.machine.Current(ticket) {
			f.stale("mobile", ticket.Version)
			return
		}
		f.mobileFor = &empID
		if err != nil {
			f.logger.Warn("mobile number unavailable", map[string]interface{}{"empId": empID, "error": err.Error()})
			f.mobile = nil
		} else {
			f.mobile = &mobile
		}
		f.refresh()
	}
}

func (f *Form) seriesTask() func(ctx context.Context) {
	q := f.query()
	key := seriesKeyOf(q)
	ticket := f.machine.Ticket(models.SlotAcademicYear, f.machine.Chain().Recipient, models.SlotFee)
	proGen := f.proGen

	return func(ctx context.Context) {
		s, err := f.deps.Series.Resolve(ctx, q)

		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.machine.Current(ticket) || proGen != f.proGen {
			f.stale("series", ticket.Version)
			return
		}
		f.seriesKey = key
		if err != nil {
			f.logger.Warn("series unavailable", map[string]interface{}{"query": key, "error": err.Error()})
			s = nil
		}
		f.series = s
		if s == nil {
			f.clearSeries()
		}
		f.refresh()
	}
}
