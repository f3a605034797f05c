package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountToCents(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{amount: 0, want: 0},
		{amount: 12.5, want: 1250},
		{amount: 19.99, want: 1999},
		{amount: 0.1 + 0.2, want: 30},
		{amount: 10000, want: 1000000},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.amount), func(t *testing.T) {
			assert.Equal(t, tt.want, AmountToCents(tt.amount))
		})
	}
}

func TestPricesMatch(t *testing.T) {
	assert.True(t, PricesMatch(25, 2500))
	assert.True(t, PricesMatch(25.01, 2500))
	assert.True(t, PricesMatch(24.99, 2500))
	assert.False(t, PricesMatch(25.02, 2500))
	assert.False(t, PricesMatch(20, 2500))
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", &ConflictError{Msg: "price mismatch"})
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsValidation(wrapped))

	ext := External("find route", errors.New("connection reset"))
	assert.True(t, IsExternal(ext))
	assert.Equal(t, "find route: connection reset", ext.Error())

	nf := &NotFoundError{Resource: "route", ID: 7}
	assert.Same(t, nf, External("find route", nf))
	assert.Equal(t, "route 7 not found", nf.Error())

	assert.Nil(t, External("noop", nil))
}
