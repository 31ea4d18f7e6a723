package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentsFromAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   int64
	}{
		{name: "zero", amount: 0, want: 0},
		{name: "two decimals", amount: 12.34, want: 1234},
		{name: "float noise below cent", amount: 19.99, want: 1999},
		{name: "sub-cent rounds to nearest", amount: 12.346, want: 1235},
		{name: "three nines round up", amount: 2.999, want: 300},
		{name: "one decimal", amount: 0.1, want: 10},
		{name: "negative", amount: -4.50, want: -450},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CentsFromAmount(tt.amount))
		})
	}
}

func TestAmountFromCents(t *testing.T) {
	assert.Equal(t, 12.34, AmountFromCents(1234))
	assert.Equal(t, -4.5, AmountFromCents(-450))
	assert.Equal(t, 0.0, AmountFromCents(0))
}

func TestCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{1, 99, 100, 1999, 123456789, -450} {
		assert.Equal(t, cents, CentsFromAmount(AmountFromCents(cents)))
	}
}
