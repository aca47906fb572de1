package models

// RecordType distinguishes position results from pending order results.
type RecordType string

const (
	RecordPosition RecordType = "position"
	RecordOrder    RecordType = "order"
)

// PnLResult holds the derived profit/loss figures for a single record.
// It is computed fresh on every pass and never mutated afterwards.
//
// Optional fields use nil for "undefined": a position without a stop-loss has
// a nil PotentialLoss, which is distinguishable from a stop placed exactly at
// breakeven (a non-nil zero). Pending orders have a nil CurrentPnL because no
// live exposure exists before the trigger fills.
type PnLResult struct {
	Ticket int64      `json:"ticket"`
	Symbol string     `json:"symbol"`
	Type   RecordType `json:"type"`
	Kind   string     `json:"kind"` // BUY, SELL, BUY_LIMIT, ...
	Volume float64    `json:"volume"`

	// Entry is the open price for positions and the trigger price for orders.
	Entry       float64  `json:"entry_price"`
	MarketPrice *float64 `json:"current_price,omitempty"`
	StopLoss    *float64 `json:"sl,omitempty"`
	TakeProfit  *float64 `json:"tp,omitempty"`

	CurrentPnL        *float64 `json:"current_pnl,omitempty"`
	PotentialLoss     *float64 `json:"potential_loss,omitempty"`
	PotentialProfit   *float64 `json:"potential_profit,omitempty"`
	DistanceToTrigger *float64 `json:"distance_to_trigger,omitempty"`

	// Risk metrics relating potential profit to potential loss. All nil when
	// the potential loss is absent or zero.
	ProfitLossDifference *float64 `json:"profit_loss_difference,omitempty"`
	ProfitLossPercentage *float64 `json:"profit_loss_percentage,omitempty"`
	RiskRewardRatio      *float64 `json:"risk_reward_ratio,omitempty"`
}
