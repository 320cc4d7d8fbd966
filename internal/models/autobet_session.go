package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Staking rule actions applied after each autobet iteration.
const (
	StakeActionReset    = "reset"
	StakeActionIncrease = "increase"
)

// AutoBetSession drives repeated bets for one user. At most one session is
// active per user; starting a new one supersedes any existing session.
// Superseded and finished rows are kept for history with Active=false.
type AutoBetSession struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId        int64           `gorm:"column:user_id;not null;index:idx_autobet_user_active" json:"user_id"`
	GameType      string          `gorm:"column:game_type;size:50;not null" json:"game_type"`
	Currency      string          `gorm:"column:currency;size:10;not null" json:"currency"`
	GameParams    json.RawMessage `gorm:"column:game_params;type:json" json:"game_params"`
	BaseAmount    decimal.Decimal `gorm:"column:base_amount;type:decimal(20,2);not null" json:"base_amount"`
	CurrentAmount decimal.Decimal `gorm:"column:current_amount;type:decimal(20,2);not null" json:"current_amount"`
	BetsLimit     int             `gorm:"column:bets_limit;not null;default:0" json:"bets_limit"` // 0 = unlimited
	BetsPlaced    int             `gorm:"column:bets_placed;not null;default:0" json:"bets_placed"`
	Profit        decimal.Decimal `gorm:"column:profit;type:decimal(20,2);not null;default:0.00" json:"profit"`
	OnWinAction   string          `gorm:"column:on_win_action;size:20;not null;default:reset" json:"on_win_action"`
	OnWinPercent  decimal.Decimal `gorm:"column:on_win_percent;type:decimal(10,2);not null;default:0.00" json:"on_win_percent"`
	OnLossAction  string          `gorm:"column:on_loss_action;size:20;not null;default:reset" json:"on_loss_action"`
	OnLossPercent decimal.Decimal `gorm:"column:on_loss_percent;type:decimal(10,2);not null;default:0.00" json:"on_loss_percent"`
	StopOnProfit  decimal.Decimal `gorm:"column:stop_on_profit;type:decimal(20,2);not null;default:0.00" json:"stop_on_profit"` // 0 = disabled
	StopOnLoss    decimal.Decimal `gorm:"column:stop_on_loss;type:decimal(20,2);not null;default:0.00" json:"stop_on_loss"`     // 0 = disabled
	Demo          bool            `gorm:"column:demo;not null;default:false" json:"demo"`
	Active        bool            `gorm:"column:active;not null;default:true;index:idx_autobet_user_active" json:"active"`
	StopReason    string          `gorm:"column:stop_reason;size:50" json:"stop_reason,omitempty"`
	LastBetAt     *time.Time      `gorm:"column:last_bet_at" json:"last_bet_at,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (AutoBetSession) TableName() string {
	return "autobet_sessions"
}
