package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinor(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int64
		expectedErr error
	}{
		{name: "whole amount", input: "3", expected: 300},
		{name: "two decimals", input: "3.05", expected: 305},
		{name: "trailing zeros", input: "12.500", expected: 1250},
		{name: "zero", input: "0", expectedErr: ErrNotPositive},
		{name: "negative", input: "-1.00", expectedErr: ErrNotPositive},
		{name: "fraction of a cent", input: "0.001", expectedErr: ErrTooPrecise},
		{name: "too large", input: "10000000000000", expectedErr: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minor, err := ToMinor(decimal.RequireFromString(tt.input))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, minor)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "3.00", Format(300))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "-12.34", Format(-1234))
	assert.True(t, FromMinor(305).Equal(decimal.RequireFromString("3.05")))
}
