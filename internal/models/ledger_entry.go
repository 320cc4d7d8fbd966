package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types. One entry is appended per available-balance movement:
// a reserve on every real-money bet, then a payout on wins or a zero-delta
// release on losses.
const (
	LedgerTypeReserve = "reserve"
	LedgerTypePayout  = "payout"
	LedgerTypeRelease = "release"
)

// LedgerEntry is the append-only audit trail of wallet mutations. Rows are
// never updated or deleted; for any wallet the sum of deltas equals the
// current available balance minus the wallet's initial balance.
type LedgerEntry struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId        int64           `gorm:"column:user_id;not null;index" json:"user_id"`
	WalletId      uint            `gorm:"column:wallet_id;not null;index" json:"wallet_id"`
	BetId         string          `gorm:"column:bet_id;size:36;index" json:"bet_id"`
	Type          string          `gorm:"column:type;size:20;not null" json:"type"`
	Delta         decimal.Decimal `gorm:"column:delta;type:decimal(20,2);not null" json:"delta"`
	BalanceBefore decimal.Decimal `gorm:"column:balance_before;type:decimal(20,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"column:balance_after;type:decimal(20,2);not null" json:"balance_after"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
