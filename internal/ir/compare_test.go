package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareOpNames(t *testing.T) {
	for op := OpEq; op < numCompareOps; op++ {
		name := op.String()
		require.NotEmpty(t, name)
		parsed, ok := ParseCompareOp(name)
		require.True(t, ok, name)
		assert.Equal(t, op, parsed)
	}
	_, ok := ParseCompareOp("approximately")
	assert.False(t, ok)
	assert.Equal(t, "CompareOp(200)", CompareOp(200).String())
}

func TestCompareOpText(t *testing.T) {
	text, err := OpStartsWith.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "startingWith", string(text))

	var op CompareOp
	require.NoError(t, op.UnmarshalText([]byte("gte")))
	assert.Equal(t, OpGte, op)
	assert.Error(t, op.UnmarshalText([]byte("approximately")))

	_, err = CompareOp(200).MarshalText()
	assert.Error(t, err)
}

func TestCompareOpNegate(t *testing.T) {
	neg, ok := OpGt.Negate()
	require.True(t, ok)
	assert.Equal(t, OpLte, neg)

	neg, ok = OpWithin.Negate()
	require.True(t, ok)
	assert.Equal(t, OpWithout, neg)

	_, ok = OpRegex.Negate()
	assert.False(t, ok)
}

func TestCompileErrorFormatting(t *testing.T) {
	err := NewUnresolvedLabel("select", "a")
	assert.Equal(t, `UNRESOLVED_LABEL: label "a" is referenced but never bound (step=select, name=a)`, err.Error())

	err = NewSchemaLookupFailure("property", "agee")
	assert.Equal(t, `SCHEMA_LOOKUP_FAILURE: property "agee" not found in schema (name=agee, kind=property)`, err.Error())
	assert.Equal(t, "has", err.WithStep("has").Step)
	assert.Empty(t, err.Step, "WithStep must not mutate the receiver")
}

func TestCompileErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("compile: %w", NewUnsupported("sack", "sack is not supported"))
	assert.True(t, IsUnsupported(wrapped))
	assert.False(t, IsMalformed(wrapped))
	assert.Equal(t, CodeUnsupportedFeature, CodeOf(wrapped))

	assert.True(t, IsMalformed(NewMalformed("repeat", "bad bound")))
	assert.True(t, IsUnresolvedLabel(NewUnresolvedLabel("select", "x")))
	assert.True(t, IsSchemaLookupFailure(NewSchemaLookupFailure("label", "x")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
