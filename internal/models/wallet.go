package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds one user's balance in one currency. Created lazily on first
// use and mutated only inside settlement transactions.
type Wallet struct {
	ID               uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId           int64           `gorm:"column:user_id;not null;uniqueIndex:idx_wallet_user_currency" json:"user_id"`
	Currency         string          `gorm:"column:currency;size:10;not null;uniqueIndex:idx_wallet_user_currency" json:"currency"`
	AvailableBalance decimal.Decimal `gorm:"column:available_balance;type:decimal(20,2);not null;default:0.00" json:"available_balance"`
	LockedBalance    decimal.Decimal `gorm:"column:locked_balance;type:decimal(20,2);not null;default:0.00" json:"locked_balance"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
