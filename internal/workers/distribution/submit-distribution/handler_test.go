// internal/workers/distribution/submit-distribution/handler_test.go
package submitdistribution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"application-distribution/internal/common/config"
	apperrors "application-distribution/internal/common/errors"
	apphttp "application-distribution/internal/common/http"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/distribution/models"
	"application-distribution/internal/distribution/submission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Run(ctx context.Context, flow *submission.Flow, in submission.Input) (*submission.Outcome, error) {
	args := m.Called(ctx, flow, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submission.Outcome), args.Error(1)
}

type mockMobiles struct {
	mock.Mock
}

func (m *mockMobiles) MobileNumber(ctx context.Context, empID int) (string, error) {
	args := m.Called(ctx, empID)
	return args.String(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n submission.Notice) error {
	return m.Called(ctx, n).Error(0)
}

type capture struct {
	method string
	path   string
	body   map[string]interface{}
}

func setupBackend(t *testing.T, status int, reply string) (*capture, *apphttp.Client) {
	t.Helper()
	c := &capture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method, c.path = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&c.body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return c, apphttp.NewBackendClient(config.BackendConfig{BaseURL: server.URL, Timeout: 2000})
}

func createHandler(t *testing.T, submitter Submitter) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		Submitter:       submitter,
		IssuedToTypeIDs: map[models.RecipientKind]int{models.KindZone: 2, models.KindDGM: 3, models.KindCampus: 4},
		Logger:          logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

const zoneJobVariables = `{
	"formType": "Zone",
	"createdBy": 77,
	"fields": {
		"academicYear": {"label": "2025-26", "id": 25},
		"state": {"label": "Telangana", "id": 1},
		"city": 10,
		"zone": {"label": "Z3", "id": 3},
		"issuedTo": 9001,
		"applicationFee": 500,
		"applicationNoFrom": "1000",
		"range": 50,
		"applicationNoTo": "1050",
		"applicationCount": "100",
		"availableAppNoTo": "2000",
		"issueDate": "03/06/2025"
	},
	"applicantName": "ignored"
}`

func createMockJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       11,
		Type:      TaskType,
		Retries:   3,
		Variables: variables,
	}}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_CreateZone(t *testing.T) {
	c, client := setupBackend(t, http.StatusOK, `{"message":"Zone distribution saved"}`)
	h := createHandler(t, submission.NewService(client, nil, nil, logger.NewNoOpLogger()))

	input, err := h.parseInput(createMockJob(zoneJobVariables))
	require.NoError(t, err)
	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "Zone distribution saved", out.Message)
	assert.Equal(t, "create", out.Operation)
	assert.Equal(t, "zone", out.Kind)
	assert.Equal(t, 1000, *out.ApplicationNoFrom)
	assert.Equal(t, 1050, *out.ApplicationNoTo)

	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "/distribution/posts/zone-save", c.path)
	assert.Equal(t, float64(2), c.body["issuedToTypeId"])
	assert.Equal(t, float64(10), c.body["cityId"])
	assert.Equal(t, float64(9001), c.body["issuedToEmpId"])
	assert.Equal(t, float64(500), c.body["application_Amount"])
	assert.Equal(t, float64(77), c.body["createdBy"])
	assert.Equal(t, "2025-06-03", c.body["issueDate"])
}

func TestHandler_Execute_Update(t *testing.T) {
	c, client := setupBackend(t, http.StatusOK, `"updated"`)
	h := createHandler(t, submission.NewService(client, nil, nil, logger.NewNoOpLogger()))

	input, err := h.parseInput(createMockJob(zoneJobVariables))
	require.NoError(t, err)
	input.Mode = "update"
	input.EditID = models.IntPtr(42)

	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "update", out.Operation)
	assert.Equal(t, http.MethodPut, c.method)
	assert.Equal(t, "/distribution/updates/update-zone/42", c.path)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Input)
		code   apperrors.ErrorCode
	}{
		{
			name:   "unknown form type",
			mutate: func(in *Input) { in.FormType = "region" },
			code:   apperrors.ErrCodeUnknownFormType,
		},
		{
			name:   "update without edit id",
			mutate: func(in *Input) { in.Mode = "update" },
			code:   apperrors.ErrCodeMissingEditID,
		},
		{
			name:   "missing operator",
			mutate: func(in *Input) { in.CreatedBy = 0 },
			code:   apperrors.ErrCodeInvalidSession,
		},
		{
			name:   "range over count",
			mutate: func(in *Input) { in.Fields["range"] = FieldValue{Label: "500"} },
			code:   apperrors.ErrCodeAllocationValidationFailed,
		},
		{
			name:   "zone without id",
			mutate: func(in *Input) { in.Fields["zone"] = FieldValue{Label: "Z3"} },
			code:   apperrors.ErrCodeRequiredFieldMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, client := setupBackend(t, http.StatusOK, ``)
			h := createHandler(t, submission.NewService(client, nil, nil, logger.NewNoOpLogger()))
			input, err := h.parseInput(createMockJob(zoneJobVariables))
			require.NoError(t, err)
			tt.mutate(input)

			_, err = h.Execute(context.Background(), input)

			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
			assert.Empty(t, c.path)
		})
	}
}

func TestHandler_Execute_BackendRejection(t *testing.T) {
	_, client := setupBackend(t, http.StatusConflict, `{"message":"Range 1000-1050 is already issued"}`)
	h := createHandler(t, submission.NewService(client, nil, nil, logger.NewNoOpLogger()))
	input, err := h.parseInput(createMockJob(zoneJobVariables))
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), input)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSubmissionFailed, stdErr.Code)
	assert.Equal(t, "Range 1000-1050 is already issued", stdErr.Message)
	assert.Equal(t, 1, apperrors.ConvertToBPMNError(stdErr).Retries)
}

func TestHandler_Execute_FreshFlowPerJob(t *testing.T) {
	sub := new(mockSubmitter)
	var flows []*submission.Flow
	sub.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { flows = append(flows, args.Get(1).(*submission.Flow)) }).
		Return(&submission.Outcome{Message: "ok"}, nil)
	h := createHandler(t, sub)
	input, err := h.parseInput(createMockJob(zoneJobVariables))
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), input)
	require.NoError(t, err)
	_, err = h.Execute(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, flows, 2)
	assert.NotSame(t, flows[0], flows[1])
	assert.Equal(t, submission.StateIdle, flows[1].Current())
}

func TestNewHandler_IssuedToTypeIDs(t *testing.T) {
	_, client := setupBackend(t, http.StatusOK, ``)
	svc := submission.NewService(client, nil, nil, logger.NewNoOpLogger())

	t.Run("defaults fill missing kinds", func(t *testing.T) {
		h, err := NewHandler(HandlerOptions{
			Submitter:       svc,
			IssuedToTypeIDs: map[models.RecipientKind]int{models.KindDGM: 7},
		})
		require.NoError(t, err)
		assert.Equal(t, map[models.RecipientKind]int{models.KindZone: 2, models.KindDGM: 7, models.KindCampus: 4}, h.issuedToTypeIDs)
	})

	t.Run("non-positive id rejected", func(t *testing.T) {
		_, err := NewHandler(HandlerOptions{
			Submitter:       svc,
			IssuedToTypeIDs: map[models.RecipientKind]int{models.KindZone: 0},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "zone")
	})
}

func TestHandler_Execute_UnconfiguredTypeIDsUseDefaults(t *testing.T) {
	c, client := setupBackend(t, http.StatusOK, `{"message":"saved"}`)
	h, err := NewHandler(HandlerOptions{Submitter: submission.NewService(client, nil, nil, logger.NewNoOpLogger())})
	require.NoError(t, err)
	input, err := h.parseInput(createMockJob(zoneJobVariables))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, float64(2), c.body["issuedToTypeId"])
}

func TestHandler_Execute_LooksUpMobileForNotice(t *testing.T) {
	_, client := setupBackend(t, http.StatusOK, `{"message":"saved"}`)
	notifier := new(mockNotifier)
	notifier.On("Notify", mock.Anything, submission.Notice{
		MobileNumber: "9876543210", Kind: "zone", AppStartNo: 1000, AppEndNo: 1050, Range: 50,
	}).Return(nil)
	mobiles := new(mockMobiles)
	mobiles.On("MobileNumber", mock.Anything, 9001).Return("9876543210", nil)

	h, err := NewHandler(HandlerOptions{
		Submitter: submission.NewService(client, nil, notifier, logger.NewNoOpLogger()),
		Mobiles:   mobiles,
		Logger:    logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	input, err := h.parseInput(createMockJob(zoneJobVariables))
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), input)

	require.NoError(t, err)
	mobiles.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestHandler_Execute_MobileLookupFailureStillSubmits(t *testing.T) {
	c, client := setupBackend(t, http.StatusOK, `{"message":"saved"}`)
	mobiles := new(mockMobiles)
	mobiles.On("MobileNumber", mock.Anything, 9001).Return("", errors.New("timeout"))

	h, err := NewHandler(HandlerOptions{
		Submitter: submission.NewService(client, nil, nil, logger.NewNoOpLogger()),
		Mobiles:   mobiles,
	})
	require.NoError(t, err)
	input, err := h.parseInput(createMockJob(zoneJobVariables))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "/distribution/posts/zone-save", c.path)
}

// ==========================
// Input Parsing
// ==========================

func TestFieldValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw   string
		label string
		id    *int
	}{
		{`"School"`, "School", nil},
		{`25`, "25", models.IntPtr(25)},
		{`12.5`, "12.5", nil},
		{`{"label":"Z3","id":3}`, "Z3", models.IntPtr(3)},
		{`{"label":"pending"}`, "pending", nil},
		{`null`, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var v FieldValue
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &v))
			assert.Equal(t, tt.label, v.Label)
			assert.Equal(t, tt.id, v.ID)
		})
	}
}

func TestHandler_ParseInput_Rejects(t *testing.T) {
	h := createHandler(t, new(mockSubmitter))

	for name, vars := range map[string]string{
		"no fields":    `{"formType":"zone","createdBy":77}`,
		"bad mode":     `{"formType":"zone","createdBy":77,"mode":"delete","fields":{}}`,
		"empty mode":   `{"formType":"zone","createdBy":77,"mode":"","fields":{}}`,
		"no createdBy": `{"formType":"zone","fields":{}}`,
		"not json":     `{`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(vars))
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeParseError))
		})
	}
}

func TestHandler_ParseInput_ModeAnyCase(t *testing.T) {
	h := createHandler(t, new(mockSubmitter))

	tests := []struct {
		mode string
		want models.Mode
	}{
		{mode: "create", want: models.ModeCreate},
		{mode: "Update", want: models.ModeUpdate},
		{mode: "UPDATE", want: models.ModeUpdate},
		{mode: " uPdAtE ", want: models.ModeUpdate},
		{mode: "Create", want: models.ModeCreate},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(`{"formType":"zone","createdBy":77,"mode":"` + tt.mode + `","fields":{}}`))

			require.NoError(t, err)
			assert.Equal(t, tt.want, models.ParseMode(input.Mode))
		})
	}
}
