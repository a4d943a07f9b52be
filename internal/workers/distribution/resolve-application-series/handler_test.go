// internal/workers/distribution/resolve-application-series/handler_test.go
package resolveapplicationseries

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
	"application-distribution/internal/distribution/series"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, q series.Query) (*models.ApplicationSeries, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationSeries), args.Error(1)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "application-distribution",
		ElementId:          "Activity_ResolveSeries",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createTestInput() *Input {
	return &Input{
		ReceiverID:     models.IntPtr(21),
		AcademicYearID: models.IntPtr(25),
		Amount:         models.IntPtr(500),
	}
}

func createHandler(t *testing.T, resolver SeriesResolver) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{Resolver: resolver, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

// ==========================
// Construction
// ==========================

func TestNewHandler_AppliesWorkerConfig(t *testing.T) {
	appCfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, MaxJobsActive: 12, Timeout: 4000},
	}}

	h, err := NewHandler(HandlerOptions{AppConfig: appCfg, Resolver: new(mockResolver)})

	require.NoError(t, err)
	assert.Equal(t, 12, h.Config().MaxJobsActive)
	assert.Equal(t, "4s", h.Config().Timeout.String())
}

func TestNewHandler_RequiresResolver(t *testing.T) {
	_, err := NewHandler(HandlerOptions{})
	assert.Error(t, err)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Found(t *testing.T) {
	resolver := new(mockResolver)
	isPro := false
	resolver.On("Resolve", mock.Anything, series.Query{
		ReceiverID: models.IntPtr(21), AcademicYearID: models.IntPtr(25), Amount: models.IntPtr(500), IsPro: &isPro,
	}).Return(&models.ApplicationSeries{
		DisplaySeries: "S-2025", MasterStartNo: 1, MasterEndNo: 2000, StartNo: 1001, AvailableCount: 1000,
	}, nil)

	out, err := createHandler(t, resolver).Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "S-2025", out.Series.DisplaySeries)
	assert.Equal(t, 1001, *out.AvailableAppNoFrom)
	assert.Equal(t, 2000, *out.AvailableAppNoTo)
	assert.Equal(t, 1000, *out.ApplicationCount)
	resolver.AssertExpectations(t)
}

func TestHandler_Execute_NotFound(t *testing.T) {
	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(nil, nil)

	out, err := createHandler(t, resolver).Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Nil(t, out.Series)
	assert.Nil(t, out.AvailableAppNoFrom)
}

func TestHandler_Execute_ResolutionErrorPropagates(t *testing.T) {
	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewSeriesResolutionFailedError(errors.New("502 Bad Gateway")))

	_, err := createHandler(t, resolver).Execute(context.Background(), createTestInput())

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSeriesResolutionFailed, stdErr.Code)
	assert.Equal(t, 3, apperrors.ConvertToBPMNError(stdErr).Retries)
}

func TestHandler_Execute_IncompleteQuery(t *testing.T) {
	h := createHandler(t, series.NewResolver(nil, logger.NewNoOpLogger()))
	input := createTestInput()
	input.Amount = nil

	_, err := h.Execute(context.Background(), input)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRequiredFieldMissing, stdErr.Code)
	assert.Contains(t, stdErr.Details+stdErr.Message, "amount")
}

func TestHandler_Execute_AgainstBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/distribution/gets/get-series", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("isPro"))
		_, _ = w.Write([]byte(`[{"displaySeries":"PRO-1","masterStartNo":1,"masterEndNo":500,"startNo":401,"availableCount":100}]`))
	}))
	defer server.Close()
	client := apphttp.NewBackendClient(config.BackendConfig{BaseURL: server.URL, Timeout: 2000})
	h := createHandler(t, series.NewResolver(client, logger.NewNoOpLogger()))
	input := createTestInput()
	input.IsPro = true

	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, 401, *out.AvailableAppNoFrom)
	assert.Equal(t, 500, *out.AvailableAppNoTo)
}

// ==========================
// Input Parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{
			name:      "valid with extra process variables",
			variables: map[string]interface{}{"receiverId": 21, "academicYearId": 25, "amount": 500, "isPro": true, "applicantName": "x"},
		},
		{
			name:      "isPro defaults to false",
			variables: map[string]interface{}{"receiverId": 21, "academicYearId": 25, "amount": 500},
		},
		{
			name:      "missing amount",
			variables: map[string]interface{}{"receiverId": 21, "academicYearId": 25},
			wantErr:   true,
		},
		{
			name:      "non positive receiver",
			variables: map[string]interface{}{"receiverId": 0, "academicYearId": 25, "amount": 500},
			wantErr:   true,
		},
		{
			name:      "string amount",
			variables: map[string]interface{}{"receiverId": 21, "academicYearId": 25, "amount": "500"},
			wantErr:   true,
		},
	}

	h := createHandler(t, new(mockResolver))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeParseError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 21, *input.ReceiverID)
			assert.Equal(t, 500, *input.Amount)
			assert.Equal(t, tt.variables["isPro"] == true, input.IsPro)
		})
	}
}
