package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		wire string
		str  string
	}{
		{name: "integer", wire: `7`, str: "7"},
		{name: "string", wire: `"abc-1"`, str: "abc-1"},
		{name: "float", wire: `1.5`, str: "1.5"},
		{name: "integral float", wire: `3.0`, str: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id RequestID
			require.NoError(t, json.Unmarshal([]byte(tt.wire), &id))
			assert.Equal(t, tt.str, id.String())
			assert.False(t, id.IsNil())

			resp, err := NewResultResponse(&id, nil)
			require.NoError(t, err)
			b, err := json.Marshal(resp)
			require.NoError(t, err)
			var back struct {
				ID json.RawMessage `json:"id"`
			}
			require.NoError(t, json.Unmarshal(b, &back))
			assert.JSONEq(t, tt.wire, string(back.ID))
		})
	}
}

func TestRequestIDRejectsOtherTypes(t *testing.T) {
	var id RequestID
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &id))
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}

func TestNilRequestID(t *testing.T) {
	var id *RequestID
	assert.True(t, id.IsNil())
	assert.Equal(t, "", id.String())
	assert.True(t, NewRequestID([]int{1}).IsNil())

	b, err := json.Marshal(NewRequestID(nil))
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestNullIDMakesNotification(t *testing.T) {
	msg, err := Decode([]byte(`{"jsonrpc":"2.0","method":"initialized"}`))
	require.NoError(t, err)
	assert.Equal(t, "notification", msg.Type())

	msg, err = Decode([]byte(`{"jsonrpc":"2.0","id":"x","method":"shutdown"}`))
	require.NoError(t, err)
	assert.Equal(t, "request", msg.Type())
}
