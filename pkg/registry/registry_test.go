package registry

import (
	"os"
	"path/filepath"
	"testing"

	ras "application-distribution/internal/workers/distribution/resolve-application-series"
	sd "application-distribution/internal/workers/distribution/submit-distribution"
	va "application-distribution/internal/workers/distribution/validate-allocation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedRegistryCoversWorkers(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)

	require.NoError(t, reg.Validate())
	assert.Empty(t, reg.Missing(ras.TaskType, va.TaskType, sd.TaskType))

	a, ok := reg.Find(sd.TaskType)
	require.True(t, ok)
	assert.Contains(t, a.ErrorCodes, "SUBMISSION_FAILED")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		activities []Activity
		wantErr    string
	}{
		{
			name:       "ok",
			activities: []Activity{{ID: "a", TaskType: "a", Timeout: "5s"}, {ID: "b", TaskType: "b"}},
		},
		{
			name:       "duplicate task type",
			activities: []Activity{{ID: "a", TaskType: "x"}, {ID: "b", TaskType: "x"}},
			wantErr:    "taskType x already bound",
		},
		{
			name:       "missing id",
			activities: []Activity{{TaskType: "x"}},
			wantErr:    "id is required",
		},
		{
			name:       "bad timeout",
			activities: []Activity{{ID: "a", TaskType: "a", Timeout: "soon"}},
			wantErr:    `timeout "soon"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&ActivityRegistry{Activities: tt.activities}).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}
