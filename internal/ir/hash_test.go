package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStable(t *testing.T) {
	a := map[string]any{"op": "OUT", "id": int32(2)}
	b := map[string]any{"id": int32(2), "op": "OUT"}

	fa, err := Fingerprint(DomainPlan, a)
	require.NoError(t, err)
	fb, err := Fingerprint(DomainPlan, b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)
}

func TestFingerprintDomainSeparation(t *testing.T) {
	v := IRObject{"x": IRInt(1)}
	assert.NotEqual(t,
		MustFingerprint(DomainPlan, v),
		MustFingerprint("gplan/plan/v2", v))
}

func TestFingerprintError(t *testing.T) {
	_, err := Fingerprint(DomainPlan, IRNull{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainPlan)

	assert.Panics(t, func() { MustFingerprint(DomainPlan, IRNull{}) })
}
