package submission

import (
	"context"
	"errors"
	"strconv"
	"strings"

	apperrors "application-distribution/internal/common/errors"
	apphttp "application-distribution/internal/common/http"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/common/metrics"
	"application-distribution/internal/common/validation"
	"application-distribution/internal/distribution/allocation"
	"application-distribution/internal/distribution/formstate"
	"application-distribution/internal/distribution/journal"
)

const defaultSuccessMessage = "Distribution saved successfully"

// Sender performs the create/update call. apphttp.Client implements it.
type Sender interface {
	SendJSON(ctx context.Context, method, path string, payload interface{}) ([]byte, error)
}

// Recorder keeps a local trace of accepted submissions.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Notifier tells the recipient about the issued range.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Outcome is a successful submission.
type Outcome struct {
	Request *Request
	Message string
}

type Service struct {
	sender   Sender
	recorder Recorder
	notifier Notifier
	logger   logger.Logger
}

// NewService wires the submit path. recorder and notifier are optional.
func NewService(sender Sender, recorder Recorder, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		sender:   sender,
		recorder: recorder,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "submission"}),
	}
}

// Run validates in, sends it and walks flow through every state. Validation
// failures return flow to idle without a network call. The returned error is
// always a *StandardError.
func (s *Service) Run(ctx context.Context, flow *Flow, in Input) (*Outcome, error) {
	if err := flow.Begin(ctx); err != nil {
		return nil, err
	}

	req, err := s.prepare(in)
	if err != nil {
		stdErr := apperrors.Normalize(err)
		flow.Reject(ctx, stdErr.Message)
		s.logger.Warn("submission rejected", map[string]interface{}{
			"formType": in.FormType,
			"mode":     string(in.Mode),
			"code":     string(stdErr.Code),
			"details":  stdErr.Details,
		})
		return nil, stdErr
	}

	log := s.logger.WithFields(map[string]interface{}{"kind": string(req.Kind), "mode": string(req.Mode)})
	if err := flow.Submitting(ctx); err != nil {
		return nil, apperrors.NewSubmissionInProgressError()
	}

	body, err := s.sender.SendJSON(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		stdErr := submissionError(err)
		flow.Fail(ctx, stdErr.Message)
		metrics.Submissions.WithLabelValues(string(req.Kind), string(req.Mode), "failed").Inc()
		log.Error("submission failed", map[string]interface{}{"path": req.Path, "message": stdErr.Message, "details": stdErr.Details})
		return nil, stdErr
	}

	flow.Succeed(ctx)
	metrics.Submissions.WithLabelValues(string(req.Kind), string(req.Mode), "success").Inc()
	msg := ExtractMessage(body, defaultSuccessMessage)
	log.Info("submission accepted", map[string]interface{}{"path": req.Path, "message": msg})

	s.afterSuccess(ctx, log, in, req)
	return &Outcome{Request: req, Message: msg}, nil
}

// prepare runs the validating step and returns the request to send.
func (s *Service) prepare(in Input) (*Request, error) {
	if _, _, err := Preflight(in); err != nil {
		return nil, err
	}

	values := make(map[formstate.Field]formstate.Value, len(in.Values))
	for f, v := range in.Values {
		values[f] = v
	}

	alloc := allocation.Input{
		From:             values[formstate.FieldApplicationNoFrom].Text,
		Range:            values[formstate.FieldRange].Text,
		AvailableCount:   atoiPtr(values[formstate.FieldApplicationCount].Text),
		AvailableAppNoTo: atoiPtr(values[formstate.FieldAvailableAppNoTo].Text),
	}
	if problems := allocation.CheckSubmittable(alloc); len(problems) > 0 {
		return nil, apperrors.NewAllocationValidationFailedError(problems)
	}
	res := allocation.Validate(alloc)
	values[formstate.FieldApplicationNoTo] = formstate.Value{Text: strconv.Itoa(*res.ApplicationNoTo)}

	in.Values = values
	req, err := Map(in)
	if err != nil {
		return nil, err
	}

	if err := validateBody(req); err != nil {
		return nil, err
	}
	return req, nil
}

// validateBody checks a mapped body against the kind's schema.
func validateBody(req *Request) error {
	result, err := validation.Validate(req.Body, bodySchema(req.Kind))
	if err != nil {
		return apperrors.NewParseError(err)
	}
	if !result.Valid {
		problems := make(map[string]string, len(result.Errors))
		for _, e := range result.Errors {
			problems[e.Field] = e.Message
		}
		return apperrors.NewAllocationValidationFailedError(problems)
	}
	return nil
}

func (s *Service) afterSuccess(ctx context.Context, log logger.Logger, in Input, req *Request) {
	start, _ := req.Body["appStartNo"].(int)
	end, _ := req.Body["appEndNo"].(int)
	rng, _ := req.Body["range"].(int)

	if s.recorder != nil {
		entry := journal.Entry{
			Kind:       string(req.Kind),
			Mode:       string(req.Mode),
			EditID:     in.EditID,
			AppStartNo: start,
			AppEndNo:   end,
			Range:      rng,
			CreatedBy:  in.Session.EmpID,
		}
		entry.IssuedToEmpID, _ = req.Body["issuedToEmpId"].(int)
		entry.Amount, _ = req.Body["application_Amount"].(int)
		if err := s.recorder.Record(ctx, entry); err != nil {
			log.Warn("journal write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if s.notifier != nil {
		notice := Notice{
			MobileNumber: in.Values[formstate.FieldMobileNumber].Text,
			Kind:         string(req.Kind),
			AppStartNo:   start,
			AppEndNo:     end,
			Range:        rng,
		}
		if err := s.notifier.Notify(ctx, notice); err != nil {
			log.Warn("recipient notification failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func submissionError(err error) *apperrors.StandardError {
	var apiErr *apphttp.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewSubmissionFailedError(apiErr.StatusCode, ExtractMessage(apiErr.Body, apiErr.Status))
	}
	return apperrors.NewSubmissionFailedError(0, err.Error())
}

func atoiPtr(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &v
}
