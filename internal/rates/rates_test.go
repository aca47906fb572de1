package rates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadMappings(t *testing.T) {
	cases := []struct {
		name    string
		mapping map[string]float64
	}{
		{"empty", map[string]float64{}},
		{"nil", nil},
		{"zero rate", map[string]float64{"EURUSD": 0}},
		{"negative rate", map[string]float64{"EURUSD": -1}},
		{"nan rate", map[string]float64{"EURUSD": math.NaN()}},
		{"inf rate", map[string]float64{"EURUSD": math.Inf(1)}},
		{"empty symbol", map[string]float64{"": 100000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.mapping)
			assert.Error(t, err)
		})
	}
}

func TestTable_Rate(t *testing.T) {
	table, err := New(map[string]float64{"EURUSD": 100000, "USDJPY": 1000})
	require.NoError(t, err)

	rate, err := table.Rate("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, rate)

	_, err = table.Rate("GBPUSD")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSymbolRateMissing)

	assert.True(t, table.Has("USDJPY"))
	assert.False(t, table.Has("GBPUSD"))
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"EURUSD", "USDJPY"}, table.Symbols())
}

func TestNew_CopiesMapping(t *testing.T) {
	mapping := map[string]float64{"EURUSD": 100000}
	table, err := New(mapping)
	require.NoError(t, err)

	mapping["EURUSD"] = 1

	rate, err := table.Rate("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, rate)
}
