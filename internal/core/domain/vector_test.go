package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_UnitLength(t *testing.T) {
	v, err := Normalize([]float32{3, 4})

	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, Dot(v, v), 1e-6)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []float32{1, 2, 2}
	_, err := Normalize(in)

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 2}, in)
}

func TestNormalize_RejectsDegenerate(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
	}{
		{"empty", nil},
		{"zero", []float32{0, 0, 0}},
		{"nan", []float32{float32(math.NaN()), 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.v)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCosine_MatchesDotOfNormalized(t *testing.T) {
	a := []float32{0.3, -1.2, 4.5, 0.01}
	b := []float32{2.2, 0.4, 1.1, -3.0}

	na, err := Normalize(a)
	require.NoError(t, err)
	nb, err := Normalize(b)
	require.NoError(t, err)

	assert.InDelta(t, Cosine(a, b), float64(Dot(na, nb)), 1e-5)
}

func TestCosine_ZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 0}))
}
