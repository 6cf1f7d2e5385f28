package em511

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	v := ScaledValue(decimal.RequireFromString("1234.5"), 4)
	assert.Equal(t, "1234.5000", v.String())
	assert.Equal(t, int64(1234), v.Int64())
	assert.InDelta(t, 1234.5, v.Float64(), 1e-9)

	i := IntValue(42)
	assert.Equal(t, "42", i.String())
	assert.True(t, i.Equal(IntValue(42)))
	assert.False(t, i.Equal(IntValue(43)))
	assert.False(t, i.Equal(ScaledValue(decimal.NewFromInt(42), 0)))
}
