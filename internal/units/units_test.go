package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensitivityIsValid(t *testing.T) {
	assert.True(t, Low.IsValid())
	assert.True(t, Medium.IsValid())
	assert.True(t, High.IsValid())
	assert.False(t, Sensitivity("").IsValid())
	assert.False(t, Sensitivity("extreme").IsValid())
	assert.False(t, Sensitivity("low").IsValid(), "levels are case sensitive")
}

func TestSensitivityMultiplier(t *testing.T) {
	assert.Equal(t, 0.7, Low.Multiplier())
	assert.Equal(t, 1.0, Medium.Multiplier())
	assert.Equal(t, 1.3, High.Multiplier())
	assert.Equal(t, 1.0, Sensitivity("bogus").Multiplier(), "unknown levels fall back to neutral")
}

func TestParseSensitivity(t *testing.T) {
	for _, want := range []Sensitivity{Low, Medium, High} {
		got, err := ParseSensitivity(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseSensitivity("Extreme")
	assert.Error(t, err)
	_, err = ParseSensitivity("")
	assert.Error(t, err)
}
