package jsonorder

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEach_KeepsDocumentOrder(t *testing.T) {
	data := []byte(`{"zeta": 1, "alpha": {"x": [1,2]}, "mid": "s", "alpha": 2}`)

	var keys []string
	var values []string
	err := Each(data, func(key string, raw json.RawMessage) error {
		keys = append(keys, key)
		values = append(values, string(raw))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid", "alpha"}, keys)
	assert.Equal(t, `{"x": [1,2]}`, values[1])
}

func TestEach_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "array", data: `[1,2]`},
		{name: "truncated", data: `{"a": 1`},
		{name: "trailing", data: `{"a": 1} {}`},
		{name: "empty", data: ``},
		{name: "garbage", data: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Each([]byte(tt.data), func(string, json.RawMessage) error { return nil })
			require.Error(t, err)
		})
	}
}

func TestEach_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Each([]byte(`{"a":1,"b":2}`), func(string, json.RawMessage) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestMarshal_RoundTrip(t *testing.T) {
	values := map[string]int{"b": 2, "a": 1, "c": 3}
	keys := []string{"b", "a", "c"}

	data, err := Marshal(keys, func(k string) any { return values[k] })
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 2,\n  \"a\": 1,\n  \"c\": 3\n}\n", string(data))

	var got []string
	require.NoError(t, Each(data, func(k string, _ json.RawMessage) error {
		got = append(got, k)
		return nil
	}))
	assert.Equal(t, keys, got)
}

func TestMarshal_Empty(t *testing.T) {
	data, err := Marshal(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}
