package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-lotes/internal/domain"
)

func TestValidQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"0.0001", true},
		{"12.3400", true},
		{"0.00005", false},
		{"1.00001", false},
		{"0", false},
		{"-2", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ValidQuantity(decimal.RequireFromString(tt.in)))
		})
	}
	assert.True(t, domain.FitsScale(decimal.Zero))
}
