package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivis-ai/rag-gateway/internal/domain/model"
)

func TestExtractRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "present",
			payload: `{"request_id":"req-1","status":"OK"}`,
			want:    "req-1",
		},
		{
			name:    "missing",
			payload: `{"status":"OK"}`,
			want:    "",
		},
		{
			name:    "wrong type",
			payload: `{"request_id":42}`,
			want:    "",
		},
		{
			name:    "not json",
			payload: `this is not json`,
			want:    "",
		},
		{
			name:    "empty",
			payload: ``,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractRequestID([]byte(tt.payload)))
		})
	}
}

func TestNormalizeFailureNestedFormat(t *testing.T) {
	t.Parallel()

	payload := `{
		"request_id": "req-1",
		"trace_id": "tr-1",
		"type": "embedding",
		"error": {"code": "EMBED_TIMEOUT", "message": "upstream timed out"}
	}`

	rec, err := normalizeFailure([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, "EMBED_TIMEOUT", rec.ErrorCode)
	assert.Equal(t, "upstream timed out", rec.ErrorMessage)
	assert.Equal(t, "embedding", rec.Stage)
}

func TestNormalizeFailureFlatFormat(t *testing.T) {
	t.Parallel()

	payload := `{
		"request_id": "req-1",
		"error_code": "LLM_ERROR",
		"error_message": "model unavailable"
	}`

	rec, err := normalizeFailure([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, "LLM_ERROR", rec.ErrorCode)
	assert.Equal(t, "model unavailable", rec.ErrorMessage)
	assert.Empty(t, rec.Stage)
}

func TestNormalizeFailureDefaultsCode(t *testing.T) {
	t.Parallel()

	rec, err := normalizeFailure([]byte(`{"request_id":"req-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", rec.ErrorCode)
}

func TestNormalizeFailureMalformed(t *testing.T) {
	t.Parallel()

	_, err := normalizeFailure([]byte(`not json`))
	require.Error(t, err)
}
