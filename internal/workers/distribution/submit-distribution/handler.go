// internal/workers/distribution/submit-distribution/handler.go
package submitdistribution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"application-distribution/internal/common/config"
	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/common/metrics"
	"application-distribution/internal/common/observability"
	"application-distribution/internal/common/validation"
	"application-distribution/internal/distribution/formstate"
	"application-distribution/internal/distribution/models"
	"application-distribution/internal/distribution/submission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "submit-distribution"

// Submitter is satisfied by *submission.Service.
type Submitter interface {
	Run(ctx context.Context, flow *submission.Flow, in submission.Input) (*submission.Outcome, error)
}

// MobileLookup finds the recipient's mobile number for the issue SMS.
// *directory.Directory implements it.
type MobileLookup interface {
	MobileNumber(ctx context.Context, empID int) (string, error)
}

// idFields are the fields whose backend value is an id rather than text.
var idFields = map[formstate.Field]bool{
	formstate.FieldAcademicYear: true,
	formstate.FieldState:        true,
	formstate.FieldCity:         true,
	formstate.FieldZone:         true,
	formstate.FieldCampus:       true,
	formstate.FieldDistrict:     true,
	formstate.FieldIssuedTo:     true,
	formstate.FieldFee:          true,
}

type Handler struct {
	config          *Config
	submitter       Submitter
	mobiles         MobileLookup
	issuedToTypeIDs map[models.RecipientKind]int
	logger          logger.Logger
	errorHandler    *apperrors.ErrorHandler
	obs             *observability.Observability
}

type HandlerOptions struct {
	AppConfig       *config.Config
	Submitter       Submitter
	Mobiles         MobileLookup
	IssuedToTypeIDs map[models.RecipientKind]int
	Logger          logger.Logger
	Observability   *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Submitter == nil {
		return nil, fmt.Errorf("%s: submitter is required", TaskType)
	}
	typeIDs, err := resolveTypeIDs(opts.IssuedToTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TaskType, err)
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
		config:          cfg,
		submitter:       opts.Submitter,
		mobiles:         opts.Mobiles,
		issuedToTypeIDs: typeIDs,
		logger:          log,
		errorHandler:    apperrors.NewErrorHandler(log),
		obs:             obs,
	}, nil
}

func (h *Handler) Config() *Config { return h.config }

// resolveTypeIDs fills kinds missing from configured with the backend
// defaults. A configured id below 1 is rejected.
func resolveTypeIDs(configured map[models.RecipientKind]int) (map[models.RecipientKind]int, error) {
	out := make(map[models.RecipientKind]int, len(models.Kinds))
	for _, kind := range models.Kinds {
		id, ok := configured[kind]
		if !ok {
			id = models.DefaultIssuedToTypeIDs[kind]
		}
		if id <= 0 {
			return nil, fmt.Errorf("issued-to type id for %s must be positive, got %d", kind, id)
		}
		out[kind] = id
	}
	return out, nil
}

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

// Execute submits one distribution. Every job gets its own submit flow, so a
// retried job starts from idle.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	kind, err := models.ParseRecipientKind(input.FormType)
	if err != nil {
		return nil, err
	}
	if input.CreatedBy <= 0 {
		return nil, apperrors.NewInvalidSessionError("createdBy is required")
	}
	mode := models.ParseMode(input.Mode)

	values := make(map[formstate.Field]formstate.Value, len(input.Fields))
	for name, fv := range input.Fields {
		field := formstate.Field(name)
		v := formstate.Value{Text: strings.TrimSpace(fv.Label)}
		if idFields[field] {
			v.ID = fv.ID
		}
		values[field] = v
	}
	h.fillMobile(ctx, values)

	flow := submission.NewFlow(h.logger)
	outcome, err := h.submitter.Run(ctx, flow, submission.Input{
		FormType:       input.FormType,
		Mode:           mode,
		EditID:         input.EditID,
		Session:        models.SessionContext{EmpID: input.CreatedBy, Category: input.Category},
		IssuedToTypeID: h.issuedToTypeIDs[kind],
		Values:         values,
	})
	if err != nil {
		return nil, err
	}

	out := &Output{
		Success:   true,
		Message:   outcome.Message,
		Operation: string(mode),
		Kind:      string(kind),
	}
	if outcome.Request != nil {
		out.ApplicationNoFrom = intField(outcome.Request.Body, "appStartNo")
		out.ApplicationNoTo = intField(outcome.Request.Body, "appEndNo")
	}
	return out, nil
}

// fillMobile looks up the recipient's number when the process did not pass
// one. A failed lookup only costs the SMS.
func (h *Handler) fillMobile(ctx context.Context, values map[formstate.Field]formstate.Value) {
	if h.mobiles == nil || values[formstate.FieldMobileNumber].Text != "" {
		return
	}
	emp := values[formstate.FieldIssuedTo].ID
	if emp == nil {
		return
	}
	mobile, err := h.mobiles.MobileNumber(ctx, *emp)
	if err != nil {
		h.logger.Warn("mobile number unavailable", map[string]interface{}{"empId": *emp, "error": err.Error()})
		return
	}
	values[formstate.FieldMobileNumber] = formstate.Value{Text: mobile}
}

func intField(body map[string]interface{}, key string) *int {
	if v, ok := body[key].(int); ok {
		return &v
	}
	return nil
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
	h.logger.Info("distribution submitted", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"operation": output.Operation,
		"kind":      output.Kind,
	})
}
