// internal/workers/distribution/validate-allocation/handler.go
package validateallocation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"application-distribution/internal/common/config"
	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/common/metrics"
	"application-distribution/internal/common/observability"
	"application-distribution/internal/common/validation"
	"application-distribution/internal/distribution/allocation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "validate-allocation"

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	obs          *observability.Observability
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	obs := opts.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}

	return &Handler{
		config:       cfg,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
		obs:          obs,
	}, nil
}

func (h *Handler) Config() *Config { return h.config }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

// Execute never fails: an allocation that breaks a bound is reported in the
// output so the process can route on it.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	res := allocation.Validate(allocation.Input{
		From:             input.ApplicationNoFrom,
		Range:            input.Range,
		AvailableCount:   input.AvailableCount,
		AvailableAppNoTo: input.AvailableAppNoTo,
	})
	outcome := res.Outcome()
	metrics.AllocationValidations.WithLabelValues(outcome).Inc()

	h.logger.Debug("allocation validated", map[string]interface{}{
		"applicationNoFrom": input.ApplicationNoFrom,
		"range":             input.Range,
		"outcome":           outcome,
	})

	return &Output{
		Valid:           res.Valid(),
		ApplicationNoTo: res.ApplicationNoTo,
		RangeError:      res.RangeError,
		ToError:         res.ToError,
		Outcome:         outcome,
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewParseError(err)
	}

	result, err := validation.Validate(variables, GetInputSchema())
	if err != nil {
		return nil, apperrors.NewParseError(err)
	}
	if !result.Valid {
		return nil, apperrors.NewParseError(fmt.Errorf("input validation failed: %s", strings.Join(result.GetErrorMessages(), "; ")))
	}

	input := &Input{
		ApplicationNoFrom: textOf(variables["applicationNoFrom"]),
		Range:             textOf(variables["range"]),
	}
	if input.AvailableCount, err = intOf(variables, "availableCount"); err != nil {
		return nil, err
	}
	if input.AvailableAppNoTo, err = intOf(variables, "availableAppNoTo"); err != nil {
		return nil, err
	}
	return input, nil
}

// textOf renders a variable the way a form input would hold it.
func textOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func intOf(variables map[string]interface{}, key string) (*int, error) {
	raw, ok := variables[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch t := raw.(type) {
	case float64:
		v := int(t)
		return &v, nil
	case string:
		v, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, apperrors.NewParseError(fmt.Errorf("%s: %w", key, err))
		}
		return &v, nil
	default:
		return nil, apperrors.NewParseError(fmt.Errorf("%s: unexpected type %T", key, raw))
	}
}
