package models

import (
	"time"
)

// SeedPair is the commit-reveal unit of the fairness scheme. Exactly one
// pair is active per user; the server seed stays secret until the pair is
// rotated out, at which point it is revealed for verification.
type SeedPair struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId         int64     `gorm:"column:user_id;not null;index:idx_seed_user_active" json:"user_id"`
	ServerSeed     string    `gorm:"column:server_seed;size:64;not null" json:"-"`
	ServerSeedHash string    `gorm:"column:server_seed_hash;size:64;not null" json:"server_seed_hash"`
	ClientSeed     string    `gorm:"column:client_seed;size:64;not null" json:"client_seed"`
	Nonce          uint64    `gorm:"column:nonce;not null;default:0" json:"nonce"`
	Revealed       bool      `gorm:"column:revealed;default:false" json:"revealed"`
	Active         bool      `gorm:"column:active;default:true;index:idx_seed_user_active" json:"active"`
	GameLock       *string   `gorm:"column:game_lock;size:50" json:"game_lock,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SeedPair) TableName() string {
	return "seed_pairs"
}
