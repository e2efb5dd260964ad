package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPositive(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"300", true},
		{"0.01", true},
		{"12.50", true},
		{"0", false},
		{"-5", false},
		{"1.005", false},
		{"10000000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, IsPositive(d))
		})
	}
}

func TestIsNonNegative(t *testing.T) {
	assert.True(t, IsNonNegative(decimal.Zero))
	assert.True(t, IsNonNegative(decimal.RequireFromString("2500")))
	assert.False(t, IsNonNegative(decimal.RequireFromString("-0.01")))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("abc")
	assert.Error(t, err)
	_, err = Parse("")
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	d := decimal.RequireFromString("700.25")
	assert.Equal(t, int64(70025), ToMinor(d))
	assert.True(t, d.Equal(FromMinor(70025)))
	assert.Equal(t, "700", FromMinor(70000).String())
}
