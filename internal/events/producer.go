package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// TopicBetSettled carries one event per settled bet for the statistics and
// jackpot observers. Delivery is asynchronous and best-effort; a publish
// failure never affects settlement.
const TopicBetSettled = "bet.settled"

type BetSettled struct {
	BetID      string          `json:"bet_id"`
	UserID     int64           `json:"user_id"`
	GameType   string          `json:"game_type"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Won        bool            `json:"won"`
	TsUnixMs   int64           `json:"ts_unix_ms"`
}

// Publisher is what the settlement engine needs from the event pipeline.
type Publisher interface {
	PublishBetSettled(ctx context.Context, e BetSettled) error
}

type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicBetSettled,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e BetSettled) error {
	msg, err := e.message()
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, msg)
}

func (e BetSettled) message() (kafka.Message, error) {
	e.TsUnixMs = time.Now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(e.BetID), Value: b}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}
