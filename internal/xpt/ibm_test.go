package xpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIBMFloatRoundTrip(t *testing.T) {
	cases := []float64{1.0, 0.0, -123.456, 10, 20, 3.14159, -0.5}
	for _, c := range cases {
		enc := ieeeToIBM(c)
		got, ok := ibmToIEEE(enc)
		assert.True(t, ok)
		assert.InDelta(t, c, got, 1e-9, "value %v", c)
	}
}

func TestIBMFloatMissing(t *testing.T) {
	_, ok := ibmToIEEE(missingMarker)
	assert.False(t, ok)
}
