package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-pnl-reporter/internal/models"
	"mt5-pnl-reporter/internal/rates"
)

func testTable(t *testing.T) *rates.Table {
	t.Helper()
	table, err := rates.New(map[string]float64{
		"EURUSD": 100000,
		"USDJPY": 1000,
	})
	require.NoError(t, err)
	return table
}

func TestPosition_BuyWithStopsAndTarget(t *testing.T) {
	table := testTable(t)

	rec := models.PositionRecord{
		Ticket:       1001,
		Symbol:       "EURUSD",
		Side:         models.SideBuy,
		Volume:       1.0,
		OpenPrice:    1.1000,
		CurrentPrice: 1.1050,
		StopLoss:     models.Float64(1.0950),
		TakeProfit:   models.Float64(1.1100),
	}

	res, err := Position(rec, table)
	require.NoError(t, err)

	require.NotNil(t, res.CurrentPnL)
	assert.InDelta(t, 500.0, *res.CurrentPnL, 1e-9)
	require.NotNil(t, res.PotentialLoss)
	assert.InDelta(t, -500.0, *res.PotentialLoss, 1e-9)
	require.NotNil(t, res.PotentialProfit)
	assert.InDelta(t, 1000.0, *res.PotentialProfit, 1e-9)

	require.NotNil(t, res.RiskRewardRatio)
	assert.InDelta(t, 2.0, *res.RiskRewardRatio, 1e-9)
	require.NotNil(t, res.ProfitLossDifference)
	assert.InDelta(t, 500.0, *res.ProfitLossDifference, 1e-9)
	require.NotNil(t, res.ProfitLossPercentage)
	assert.InDelta(t, 100.0, *res.ProfitLossPercentage, 1e-9)

	assert.Equal(t, "BUY", res.Kind)
	assert.Equal(t, models.RecordPosition, res.Type)
}

func TestPosition_SellMirrorsBuy(t *testing.T) {
	table := testTable(t)

	buy := models.PositionRecord{
		Ticket: 1, Symbol: "EURUSD", Side: models.SideBuy,
		Volume: 0.1, OpenPrice: 1.1000, CurrentPrice: 1.1050,
	}
	sell := buy
	sell.Side = models.SideSell

	buyRes, err := Position(buy, table)
	require.NoError(t, err)
	sellRes, err := Position(sell, table)
	require.NoError(t, err)

	require.NotNil(t, buyRes.CurrentPnL)
	require.NotNil(t, sellRes.CurrentPnL)
	assert.InDelta(t, 50.0, *buyRes.CurrentPnL, 1e-9)
	assert.InDelta(t, -*buyRes.CurrentPnL, *sellRes.CurrentPnL, 1e-9)
}

func TestPosition_ScalesLinearlyWithVolumeAndRate(t *testing.T) {
	table := testTable(t)

	cases := []struct {
		name    string
		symbol  string
		volume  float64
		current float64
		want    float64
	}{
		{"tenth lot", "EURUSD", 0.1, 1.1050, 50},
		{"full lot", "EURUSD", 1.0, 1.1050, 500},
		{"five lots", "EURUSD", 5.0, 1.1050, 2500},
		{"different rate", "USDJPY", 1.0, 1.1050, 5},
		{"zero delta", "EURUSD", 1.0, 1.1000, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := models.PositionRecord{
				Ticket: 1, Symbol: tc.symbol, Side: models.SideBuy,
				Volume: tc.volume, OpenPrice: 1.1000, CurrentPrice: tc.current,
			}
			res, err := Position(rec, table)
			require.NoError(t, err)
			require.NotNil(t, res.CurrentPnL)
			assert.InDelta(t, tc.want, *res.CurrentPnL, 1e-9)
		})
	}
}

func TestPosition_MissingOptionalLevelsStayUndefined(t *testing.T) {
	table := testTable(t)

	rec := models.PositionRecord{
		Ticket: 2, Symbol: "EURUSD", Side: models.SideBuy,
		Volume: 0.5, OpenPrice: 1.2000, CurrentPrice: 1.1990,
	}

	res, err := Position(rec, table)
	require.NoError(t, err)

	assert.Nil(t, res.PotentialLoss)
	assert.Nil(t, res.PotentialProfit)
	assert.Nil(t, res.RiskRewardRatio)
	assert.Nil(t, res.ProfitLossDifference)
	assert.Nil(t, res.ProfitLossPercentage)
	require.NotNil(t, res.CurrentPnL)
	assert.InDelta(t, -50.0, *res.CurrentPnL, 1e-9)
}

func TestPosition_Deterministic(t *testing.T) {
	table := testTable(t)

	rec := models.PositionRecord{
		Ticket: 3, Symbol: "EURUSD", Side: models.SideSell,
		Volume: 2.0, OpenPrice: 1.1000, CurrentPrice: 1.0980,
		StopLoss: models.Float64(1.1100),
	}

	first, err := Position(rec, table)
	require.NoError(t, err)
	second, err := Position(rec, table)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPosition_UnknownSymbol(t *testing.T) {
	table := testTable(t)

	rec := models.PositionRecord{
		Ticket: 4, Symbol: "GBPUSD", Side: models.SideBuy,
		Volume: 1.0, OpenPrice: 1.2500, CurrentPrice: 1.2510,
	}

	_, err := Position(rec, table)
	require.Error(t, err)
	assert.ErrorIs(t, err, rates.ErrSymbolRateMissing)
}

func TestOrder_PotentialLevelsFromTrigger(t *testing.T) {
	table := testTable(t)

	rec := models.PendingOrderRecord{
		Ticket:       2001,
		Symbol:       "EURUSD",
		Kind:         models.OrderBuyLimit,
		Volume:       1.0,
		TriggerPrice: 1.0900,
		StopLoss:     models.Float64(1.0850),
		TakeProfit:   models.Float64(1.1000),
	}

	res, err := Order(rec, table, models.Float64(1.0950))
	require.NoError(t, err)

	assert.Nil(t, res.CurrentPnL)
	require.NotNil(t, res.PotentialLoss)
	assert.InDelta(t, -500.0, *res.PotentialLoss, 1e-9)
	require.NotNil(t, res.PotentialProfit)
	assert.InDelta(t, 1000.0, *res.PotentialProfit, 1e-9)
	require.NotNil(t, res.DistanceToTrigger)
	assert.InDelta(t, 0.0050, *res.DistanceToTrigger, 1e-9)
	assert.Equal(t, "BUY_LIMIT", res.Kind)
	assert.Equal(t, models.RecordOrder, res.Type)
}

func TestOrder_SellStopUsesSellDirection(t *testing.T) {
	table := testTable(t)

	rec := models.PendingOrderRecord{
		Ticket:       2002,
		Symbol:       "EURUSD",
		Kind:         models.OrderSellStop,
		Volume:       0.5,
		TriggerPrice: 1.1000,
		StopLoss:     models.Float64(1.1050),
		TakeProfit:   models.Float64(1.0900),
	}

	res, err := Order(rec, table, nil)
	require.NoError(t, err)

	require.NotNil(t, res.PotentialLoss)
	assert.InDelta(t, -250.0, *res.PotentialLoss, 1e-9)
	require.NotNil(t, res.PotentialProfit)
	assert.InDelta(t, 500.0, *res.PotentialProfit, 1e-9)
	assert.Nil(t, res.DistanceToTrigger)
}

func TestRiskMetrics_UndefinedWhenLossZero(t *testing.T) {
	table := testTable(t)

	rec := models.PositionRecord{
		Ticket: 5, Symbol: "EURUSD", Side: models.SideBuy,
		Volume: 1.0, OpenPrice: 1.1000, CurrentPrice: 1.1010,
		StopLoss:   models.Float64(1.1000), // loss is exactly zero
		TakeProfit: models.Float64(1.1100),
	}

	res, err := Position(rec, table)
	require.NoError(t, err)

	require.NotNil(t, res.PotentialLoss)
	assert.Zero(t, *res.PotentialLoss)
	assert.Nil(t, res.RiskRewardRatio)
	assert.Nil(t, res.ProfitLossDifference)
	assert.Nil(t, res.ProfitLossPercentage)
}
