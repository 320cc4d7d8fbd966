package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// BetUpdate is pushed to the live client after each settled autobet
// iteration. Best-effort only: a dropped message never affects settlement.
type BetUpdate struct {
	BetID      string          `json:"bet_id"`
	GameType   string          `json:"game_type"`
	Amount     decimal.Decimal `json:"amount"`
	Payout     decimal.Decimal `json:"payout"`
	Profit     decimal.Decimal `json:"profit"`
	Won        bool            `json:"won"`
	Balance    decimal.Decimal `json:"balance"`
	BetsPlaced int             `json:"bets_placed"`
	Active     bool            `json:"active"`
}

// Notifier is the push channel the autobet scheduler writes to.
type Notifier interface {
	PushBetUpdate(ctx context.Context, userID int64, u BetUpdate) error
}

// RedisNotifier publishes per-user pub/sub messages the gateway layer fans
// out to connected clients.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func userChannel(userID int64) string {
	return fmt.Sprintf("autobet:user:%d", userID)
}

func (n *RedisNotifier) PushBetUpdate(ctx context.Context, userID int64, u BetUpdate) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, userChannel(userID), b).Err()
}
