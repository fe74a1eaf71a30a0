package vibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectorStrictComparison(t *testing.T) {
	d := NewDetector(2.0)

	assert.False(t, d.Check(1.999))
	assert.False(t, d.Check(2.0), "equality must not trigger")
	assert.True(t, d.Check(2.0+1e-12))
	assert.True(t, d.Check(math.Inf(1)))
}

func TestDetectorSetThreshold(t *testing.T) {
	d := NewDetector(2.0)

	require.NoError(t, d.SetThreshold(0.5))
	assert.Equal(t, 0.5, d.Threshold())
	assert.True(t, d.Check(0.6), "new threshold applies to the next check")

	// Invalid values are rejected and the prior threshold kept.
	assert.Error(t, d.SetThreshold(0))
	assert.Error(t, d.SetThreshold(-1))
	assert.Equal(t, 0.5, d.Threshold())
}
