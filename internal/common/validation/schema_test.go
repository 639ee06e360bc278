package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnRequest(t *testing.T) {
	tests := []struct {
		name      string
		doc       map[string]interface{}
		valid     bool
		wantField string
		wantCode  string
	}{
		{"valid", map[string]interface{}{"message": "What is Tesla's OTD target?"}, true, "", ""},
		{"missing message", map[string]interface{}{}, false, "message", "REQUIRED_FIELD_MISSING"},
		{"empty message", map[string]interface{}{"message": ""}, false, "message", "MIN_LENGTH_VIOLATION"},
		{"wrong type", map[string]interface{}{"message": 42}, false, "message", "INVALID_TYPE"},
		{"too long", map[string]interface{}{"message": strings.Repeat("x", 8001)}, false, "message", "MAX_LENGTH_VIOLATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TurnRequest.Validate(tt.doc)
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				require.NotEmpty(t, result.Errors)
				assert.True(t, result.HasErrors(tt.wantField), "errors: %v", result.GetErrorMessages())
				assert.Equal(t, tt.wantCode, result.Errors[0].Code)
			}
		})
	}
}

func TestQuickActionRequest_Enum(t *testing.T) {
	assert.True(t, QuickActionRequest.Validate(map[string]interface{}{"action": "risks"}).Valid)

	result := QuickActionRequest.Validate(map[string]interface{}{"action": "weather"})
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "INVALID_ENUM_VALUE", result.Errors[0].Code)
}

func TestTurnJob_RequiresBoth(t *testing.T) {
	result := TurnJob.Validate(map[string]interface{}{})
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("sessionId"))
	assert.True(t, result.HasErrors("message"))
	assert.Len(t, result.GetErrorMessages(), 2)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	assert.Error(t, err)
}
