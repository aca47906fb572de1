// Package pnl computes profit/loss figures for positions and pending orders.
//
// All functions are pure: the same record and rate table always produce the
// same result, nothing here performs I/O, and malformed input is rejected
// upstream by the validate package. The only possible error is a missing
// symbol rate, surfaced as rates.ErrSymbolRateMissing.
package pnl

import (
	"math"
	"strings"

	"mt5-pnl-reporter/internal/models"
	"mt5-pnl-reporter/internal/rates"
)

// priceDelta returns the favorable-move price difference between an entry
// price and a comparison price. For a buy the delta is comparison − entry;
// for a sell it is the negation.
func priceDelta(side models.PositionSide, entry, comparison float64) float64 {
	if side == models.SideBuy {
		return comparison - entry
	}
	return entry - comparison
}

// dollarPnL converts a price delta into dollars: delta × volume × rate.
func dollarPnL(delta, volume, rate float64) float64 {
	return delta * volume * rate
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// riskMetrics fills the profit-vs-loss relation fields on a result. The
// metrics are undefined (nil) when the potential loss is absent or exactly
// zero; a missing take-profit contributes zero potential profit, matching the
// aggregation rules.
func riskMetrics(res *models.PnLResult) {
	if res.PotentialLoss == nil || *res.PotentialLoss == 0 {
		return
	}
	absLoss := math.Abs(*res.PotentialLoss)
	profit := 0.0
	if res.PotentialProfit != nil {
		profit = *res.PotentialProfit
	}
	res.ProfitLossDifference = models.Float64(profit - absLoss)
	res.ProfitLossPercentage = models.Float64(round2((profit - absLoss) / absLoss * 100))
	res.RiskRewardRatio = models.Float64(round2(profit / absLoss))
}

// Position computes the current unrealized P&L of an open position and its
// potential P&L at the stop-loss and take-profit levels.
func Position(rec models.PositionRecord, table *rates.Table) (models.PnLResult, error) {
	rate, err := table.Rate(rec.Symbol)
	if err != nil {
		return models.PnLResult{}, err
	}

	res := models.PnLResult{
		Ticket:      rec.Ticket,
		Symbol:      rec.Symbol,
		Type:        models.RecordPosition,
		Kind:        strings.ToUpper(string(rec.Side)),
		Volume:      rec.Volume,
		Entry:       rec.OpenPrice,
		MarketPrice: models.Float64(rec.CurrentPrice),
		StopLoss:    rec.StopLoss,
		TakeProfit:  rec.TakeProfit,
	}

	current := dollarPnL(priceDelta(rec.Side, rec.OpenPrice, rec.CurrentPrice), rec.Volume, rate)
	res.CurrentPnL = models.Float64(current)

	if rec.StopLoss != nil {
		loss := dollarPnL(priceDelta(rec.Side, rec.OpenPrice, *rec.StopLoss), rec.Volume, rate)
		res.PotentialLoss = models.Float64(loss)
	}
	if rec.TakeProfit != nil {
		profit := dollarPnL(priceDelta(rec.Side, rec.OpenPrice, *rec.TakeProfit), rec.Volume, rate)
		res.PotentialProfit = models.Float64(profit)
	}

	riskMetrics(&res)
	return res, nil
}

// Order computes the potential P&L of a pending order at its stop-loss and
// take-profit levels, using the trigger price as the entry. There is no
// current P&L before the trigger fills. market is the current market price
// supplied by the fetch collaborator; when nil the distance-to-trigger is
// undefined, not zero.
func Order(rec models.PendingOrderRecord, table *rates.Table, market *float64) (models.PnLResult, error) {
	rate, err := table.Rate(rec.Symbol)
	if err != nil {
		return models.PnLResult{}, err
	}

	res := models.PnLResult{
		Ticket:      rec.Ticket,
		Symbol:      rec.Symbol,
		Type:        models.RecordOrder,
		Kind:        strings.ToUpper(string(rec.Kind)),
		Volume:      rec.Volume,
		Entry:       rec.TriggerPrice,
		MarketPrice: market,
		StopLoss:    rec.StopLoss,
		TakeProfit:  rec.TakeProfit,
	}

	side := rec.Kind.Side()
	if rec.StopLoss != nil {
		loss := dollarPnL(priceDelta(side, rec.TriggerPrice, *rec.StopLoss), rec.Volume, rate)
		res.PotentialLoss = models.Float64(loss)
	}
	if rec.TakeProfit != nil {
		profit := dollarPnL(priceDelta(side, rec.TriggerPrice, *rec.TakeProfit), rec.Volume, rate)
		res.PotentialProfit = models.Float64(profit)
	}
	if market != nil {
		res.DistanceToTrigger = models.Float64(math.Abs(*market - rec.TriggerPrice))
	}

	riskMetrics(&res)
	return res, nil
}
