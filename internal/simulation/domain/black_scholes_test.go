package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlackScholesCall(t *testing.T) {
	assert.InDelta(t, 10.4506, BlackScholesCall(100, 100, 0.05, 1, 0.2), 1e-4)
	assert.InDelta(t, 6.0401, BlackScholesCall(100, 110, 0.05, 1, 0.2), 1e-4)
}

func TestBlackScholesCall_ZeroVolatilityConvention(t *testing.T) {
	// deep in the money, still 0 by convention
	assert.Equal(t, 0.0, BlackScholesCall(150, 100, 0.05, 1, 0))
}

func TestBlackScholesCall_Bounds(t *testing.T) {
	s, k, r, tm := 100.0, 60.0, 0.03, 0.5
	price := BlackScholesCall(s, k, r, tm, 0.3)
	intrinsic := s - k*math.Exp(-r*tm)
	assert.GreaterOrEqual(t, price, intrinsic-1e-9)
	assert.LessOrEqual(t, price, s)
}
