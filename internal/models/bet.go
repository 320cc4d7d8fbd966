package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Bet statuses. A bet row is written once, in its final state, inside the
// settlement transaction and never updated afterwards.
const (
	BetStatusSettled    = "settled"
	BetStatusRolledBack = "rolled_back"
)

// Bet is the immutable record of one settled wager. The (seed_pair_id,
// nonce) pair is unique and, together with the revealed server seed, is
// sufficient to independently replay the outcome.
type Bet struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	UserId     int64           `gorm:"column:user_id;not null;index" json:"user_id"`
	GameType   string          `gorm:"column:game_type;size:50;not null" json:"game_type"`
	Currency   string          `gorm:"column:currency;size:10;not null" json:"currency"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Multiplier decimal.Decimal `gorm:"column:multiplier;type:decimal(16,4);not null" json:"multiplier"`
	Payout     decimal.Decimal `gorm:"column:payout;type:decimal(20,2);not null" json:"payout"`
	Profit     decimal.Decimal `gorm:"column:profit;type:decimal(20,2);not null" json:"profit"`
	Won        bool            `gorm:"column:won;not null" json:"won"`
	Demo       bool            `gorm:"column:demo;not null;default:false" json:"demo"`
	Outcome    json.RawMessage `gorm:"column:outcome;type:json" json:"outcome"`
	GameParams json.RawMessage `gorm:"column:game_params;type:json" json:"game_params"`
	SeedPairId uint            `gorm:"column:seed_pair_id;not null;uniqueIndex:idx_bet_seed_nonce" json:"seed_pair_id"`
	Nonce      uint64          `gorm:"column:nonce;not null;uniqueIndex:idx_bet_seed_nonce" json:"nonce"`
	Status     string          `gorm:"column:status;size:20;not null" json:"status"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Bet) TableName() string {
	return "bets"
}
