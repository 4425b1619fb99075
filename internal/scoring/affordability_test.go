package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxAffordablePrice(t *testing.T) {
	tests := []struct {
		name        string
		downPayment float64
		want        float64
	}{
		{"fifty thousand down", 50000, 191000},
		{"exactly fixed costs", 10300, 15000},
		{"hundred thousand down", 100000, 412000},
		{"zero down is negative", 0, -31000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxAffordablePrice(tt.downPayment), 0.01)
		})
	}
}

func TestMaxAffordablePrice_Monotonic(t *testing.T) {
	prev := MaxAffordablePrice(10300)
	for dp := 15000.0; dp <= 200000; dp += 5000 {
		cur := MaxAffordablePrice(dp)
		assert.GreaterOrEqual(t, cur, prev, "ceiling must not decrease with down payment")
		prev = cur
	}
}

func TestMaxAffordablePrice_RoundsToThousand(t *testing.T) {
	for _, dp := range []float64{12345, 54321, 99999} {
		got := MaxAffordablePrice(dp)
		assert.Zero(t, int64(got)%1000, "ceiling %v not rounded to nearest 1000", got)
	}
}

func TestHasValidDownPayment(t *testing.T) {
	assert.False(t, HasValidDownPayment(0))
	assert.False(t, HasValidDownPayment(10300))
	assert.True(t, HasValidDownPayment(10301))
	assert.True(t, HasValidDownPayment(50000))
	assert.False(t, HasValidDownPayment(-5000))
}
