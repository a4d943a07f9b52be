// internal/workers/distribution/resolve-application-series/handler.go
package resolveapplicationseries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"application-distribution/internal/common/config"
	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/common/metrics"
	"application-distribution/internal/common/observability"
	"application-distribution/internal/common/validation"
	"application-distribution/internal/distribution/models"
	"application-distribution/internal/distribution/series"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "resolve-application-series"

// SeriesResolver is satisfied by *series.Resolver.
type SeriesResolver interface {
	Resolve(ctx context.Context, q series.Query) (*models.ApplicationSeries, error)
}

type Handler struct {
	config       *Config
	resolver     SeriesResolver
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	obs          *observability.Observability
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Resolver      SeriesResolver
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("%s: series resolver is required", TaskType)
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
		resolver:     opts.Resolver,
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

	h.logger.Info("processing job", logger.JobFields(job))

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			h.obs.RecordJobProcessed(ctx, TaskType, "completed")
			h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
			return
		}
	}

	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

// Execute resolves the series. No match is a result, not an error, so the
// process can route to its "no series" path.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	isPro := input.IsPro
	s, err := h.resolver.Resolve(ctx, series.Query{
		ReceiverID:     input.ReceiverID,
		AcademicYearID: input.AcademicYearID,
		Amount:         input.Amount,
		IsPro:          &isPro,
	})
	if errors.Is(err, series.ErrIncomplete) {
		return nil, apperrors.NewRequiredFieldMissingError(missingField(input))
	}
	if err != nil {
		return nil, err
	}
	if s == nil {
		h.logger.Info("no series for selection", map[string]interface{}{
			"receiverId":     *input.ReceiverID,
			"academicYearId": *input.AcademicYearID,
			"amount":         *input.Amount,
			"isPro":          input.IsPro,
		})
		return &Output{Found: false}, nil
	}

	from, to, count := s.AvailableAppNoFrom(), s.AvailableAppNoTo(), s.AvailableCount
	return &Output{
		Found:              true,
		Series:             s,
		AvailableAppNoFrom: &from,
		AvailableAppNoTo:   &to,
		ApplicationCount:   &count,
	}, nil
}

func missingField(input *Input) string {
	var missing []string
	if input.ReceiverID == nil {
		missing = append(missing, "receiverId")
	}
	if input.AcademicYearID == nil {
		missing = append(missing, "academicYearId")
	}
	if input.Amount == nil {
		missing = append(missing, "amount")
	}
	return strings.Join(missing, ", ")
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

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, apperrors.NewParseError(err)
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
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
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey": job.GetKey(),
		"found":  output.Found,
	})
}
