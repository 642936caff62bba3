package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "x", IRString("x")},
		{"int", 3, IRInt(3)},
		{"int64", int64(-4), IRInt(-4)},
		{"float", 0.25, IRDouble(0.25)},
		{"bool", true, IRBool(true)},
		{"strings", []string{"a", "b"}, IRArray{IRString("a"), IRString("b")}},
		{"mixed", []any{1, "a"}, IRArray{IRInt(1), IRString("a")}},
		{"passthrough", IRInt(9), IRInt(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of(tt.input)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %v got %v", tt.want, got)
		})
	}
}

func TestOfRejects(t *testing.T) {
	_, err := Of(math.NaN())
	require.Error(t, err)

	_, err = Of(math.Inf(1))
	require.Error(t, err)

	_, err = Of(struct{}{})
	require.Error(t, err)

	assert.Panics(t, func() { MustOf(complex(1, 2)) })
}

func TestValueString(t *testing.T) {
	assert.Equal(t, `"a"`, IRString("a").String())
	assert.Equal(t, "12", IRInt(12).String())
	assert.Equal(t, "1.5", IRDouble(1.5).String())
	assert.Equal(t, "3.0", IRDouble(3).String())
	assert.Equal(t, `[1,"x"]`, IRArray{IRInt(1), IRString("x")}.String())
	assert.Equal(t, `{"a":true,"b":null}`, IRObject{"b": IRNull{}, "a": IRBool(true)}.String())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Ints(1, 2), Ints(1, 2)))
	assert.False(t, Equal(Ints(1, 2), Ints(2, 1)))
	assert.False(t, Equal(IRInt(1), IRDouble(1)))
	assert.False(t, Equal(Strings("a"), IRString("a")))
	assert.True(t, Equal(IRObject{"a": Ints(1)}, IRObject{"a": Ints(1)}))
	assert.False(t, Equal(IRObject{"a": Ints(1)}, IRObject{"b": Ints(1)}))
}

func TestUnmarshalIRValue(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"a":[1,2.5,"x",null,false]}`))
	require.NoError(t, err)

	want := IRObject{"a": IRArray{IRInt(1), IRDouble(2.5), IRString("x"), IRNull{}, IRBool(false)}}
	assert.True(t, Equal(want, v))

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,2.5,"x",null,false]}`, string(data))
}

func TestUnmarshalIRValueOverflow(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`123456789012345678901234567890`))
	require.Error(t, err)
}
