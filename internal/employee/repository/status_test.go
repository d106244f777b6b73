package repository_test

import (
	"encoding/json"
	"testing"

	"github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationStatus_Value(t *testing.T) {
	t.Run("not started persists as NULL", func(t *testing.T) {
		v, err := repository.EvaluationNotStarted.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("pending persists as False", func(t *testing.T) {
		v, err := repository.EvaluationPending.Value()
		require.NoError(t, err)
		assert.Equal(t, "False", v)
	})

	t.Run("evaluated persists as True", func(t *testing.T) {
		v, err := repository.EvaluationEvaluated.Value()
		require.NoError(t, err)
		assert.Equal(t, "True", v)
	})

	t.Run("unknown value is rejected", func(t *testing.T) {
		_, err := repository.EvaluationStatus("maybe").Value()
		assert.Error(t, err)
	})
}

func TestEvaluationStatus_Scan(t *testing.T) {
	t.Run("NULL scans to not started", func(t *testing.T) {
		var s repository.EvaluationStatus
		require.NoError(t, s.Scan(nil))
		assert.Equal(t, repository.EvaluationNotStarted, s)
	})

	t.Run("string and bytes scan to the enum", func(t *testing.T) {
		var s repository.EvaluationStatus
		require.NoError(t, s.Scan("False"))
		assert.Equal(t, repository.EvaluationPending, s)

		require.NoError(t, s.Scan([]byte("True")))
		assert.Equal(t, repository.EvaluationEvaluated, s)
	})

	t.Run("unknown database value is rejected", func(t *testing.T) {
		var s repository.EvaluationStatus
		assert.Error(t, s.Scan("yes"))
	})
}

func TestEvaluationStatus_JSON(t *testing.T) {
	tests := []struct {
		name   string
		status repository.EvaluationStatus
		json   string
	}{
		{"not started", repository.EvaluationNotStarted, "null"},
		{"pending", repository.EvaluationPending, `"False"`},
		{"evaluated", repository.EvaluationEvaluated, `"True"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.status)
			require.NoError(t, err)
			assert.Equal(t, tt.json, string(data))

			var s repository.EvaluationStatus
			require.NoError(t, json.Unmarshal([]byte(tt.json), &s))
			assert.Equal(t, tt.status, s)
		})
	}

	t.Run("unknown wire value is rejected", func(t *testing.T) {
		var s repository.EvaluationStatus
		assert.Error(t, json.Unmarshal([]byte(`"Done"`), &s))
	})
}
