package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"casino-engine/internal/events"
	"casino-engine/internal/games"
	"casino-engine/internal/metrics"
	"casino-engine/internal/models"
	"casino-engine/pkg/common"
)

// AmountBounds are the per-currency stake limits checked before any state is
// touched.
type AmountBounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func DefaultBounds() map[string]AmountBounds {
	return map[string]AmountBounds{
		"USD": {Min: decimal.New(10, -2), Max: decimal.NewFromInt(10000)},
		"EUR": {Min: decimal.New(10, -2), Max: decimal.NewFromInt(10000)},
		"NGN": {Min: decimal.NewFromInt(50), Max: decimal.NewFromInt(5000000)},
	}
}

// SettlementService runs the bet state machine
// Validated -> SeedReserved -> BalanceReserved -> OutcomeComputed -> Settled
// as one atomic unit. Two concurrent bets from the same user serialize on
// the wallet and seed-pair rows, never on the request channel.
type SettlementService struct {
	DB     *gorm.DB
	Seeds  *SeedService
	Games  *games.Registry
	Events events.Publisher
	Log    *zap.Logger
	Bounds map[string]AmountBounds
}

func NewSettlementService(db *gorm.DB, seeds *SeedService, reg *games.Registry, pub events.Publisher, log *zap.Logger) *SettlementService {
	return &SettlementService{
		DB:     db,
		Seeds:  seeds,
		Games:  reg,
		Events: pub,
		Log:    log,
		Bounds: DefaultBounds(),
	}
}

type PlaceBetRequest struct {
	UserID     int64
	GameType   string
	Currency   string
	Amount     decimal.Decimal
	GameParams json.RawMessage
	Demo       bool
}

type PlaceBetResult struct {
	Bet     *models.Bet    `json:"bet"`
	Outcome *games.Outcome `json:"outcome"`
	Wallet  *models.Wallet `json:"wallet"`
}

// validate covers the Validated state: everything that can be rejected
// before a nonce is consumed or a balance is touched.
func (s *SettlementService) validate(req PlaceBetRequest) error {
	if !req.Demo {
		if !req.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		bounds, ok := s.Bounds[req.Currency]
		if !ok {
			return fmt.Errorf("%w: unsupported currency %s", ErrAmountOutOfBounds, req.Currency)
		}
		if req.Amount.LessThan(bounds.Min) || req.Amount.GreaterThan(bounds.Max) {
			return ErrAmountOutOfBounds
		}
	} else if req.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return s.Games.ValidateParams(req.GameType, req.GameParams)
}

// PlaceBet settles a single bet. One attempt: transactional conflicts
// surface to the caller, which retries a bounded number of times (see
// PlaceBetRetry). On any error the transaction rolls back with zero side
// effects.
func (s *SettlementService) PlaceBet(ctx context.Context, req PlaceBetRequest) (*PlaceBetResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var result *PlaceBetResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SeedReserved: allocate the next nonce under row lock.
		pair, snap, err := s.Seeds.Reserve(tx, req.UserID)
		if err != nil {
			return err
		}

		wallet, err := s.walletLocked(tx, req.UserID, req.Currency, !req.Demo)
		if err != nil {
			return err
		}

		var entries []models.LedgerEntry
		betID := common.GenerateRefNo()

		// BalanceReserved: stake moves from available into locked. Demo
		// bets skip all balance movement but still consume the nonce.
		if !req.Demo {
			if wallet.AvailableBalance.LessThan(req.Amount) {
				return ErrInsufficientFunds
			}
			before := wallet.AvailableBalance
			wallet.AvailableBalance = before.Sub(req.Amount)
			wallet.LockedBalance = wallet.LockedBalance.Add(req.Amount)
			entries = append(entries, models.LedgerEntry{
				UserId:        req.UserID,
				WalletId:      wallet.ID,
				BetId:         betID,
				Type:          models.LedgerTypeReserve,
				Delta:         req.Amount.Neg(),
				BalanceBefore: before,
				BalanceAfter:  wallet.AvailableBalance,
			})
		}

		// OutcomeComputed: always from the reserved snapshot, never a
		// fresh fetch, so the (seed, nonce, outcome) triple stays stable.
		outcome, err := s.Games.Compute(req.GameType, req.Amount, snap, req.GameParams)
		if err != nil {
			return err
		}

		// Settled: release the lock, credit the payout on a win.
		if !req.Demo {
			wallet.LockedBalance = wallet.LockedBalance.Sub(req.Amount)
			if outcome.Won {
				before := wallet.AvailableBalance
				wallet.AvailableBalance = before.Add(outcome.Payout)
				entries = append(entries, models.LedgerEntry{
					UserId:        req.UserID,
					WalletId:      wallet.ID,
					BetId:         betID,
					Type:          models.LedgerTypePayout,
					Delta:         outcome.Payout,
					BalanceBefore: before,
					BalanceAfter:  wallet.AvailableBalance,
				})
			} else {
				entries = append(entries, models.LedgerEntry{
					UserId:        req.UserID,
					WalletId:      wallet.ID,
					BetId:         betID,
					Type:          models.LedgerTypeRelease,
					Delta:         decimal.Zero,
					BalanceBefore: wallet.AvailableBalance,
					BalanceAfter:  wallet.AvailableBalance,
				})
			}
			if err := tx.Model(wallet).Updates(map[string]interface{}{
				"available_balance": wallet.AvailableBalance,
				"locked_balance":    wallet.LockedBalance,
			}).Error; err != nil {
				return err
			}
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}

		outcomeJSON, err := json.Marshal(outcome)
		if err != nil {
			return err
		}
		bet := &models.Bet{
			ID:         betID,
			UserId:     req.UserID,
			GameType:   req.GameType,
			Currency:   req.Currency,
			Amount:     req.Amount,
			Multiplier: outcome.Multiplier,
			Payout:     outcome.Payout,
			Profit:     outcome.Profit,
			Won:        outcome.Won,
			Demo:       req.Demo,
			Outcome:    outcomeJSON,
			GameParams: req.GameParams,
			SeedPairId: pair.ID,
			Nonce:      snap.Nonce,
			Status:     models.BetStatusSettled,
		}
		if err := tx.Create(bet).Error; err != nil {
			return err
		}

		result = &PlaceBetResult{Bet: bet, Outcome: outcome, Wallet: wallet}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			metrics.InsufficientFunds.Inc()
		}
		return nil, err
	}

	s.afterCommit(result)
	return result, nil
}

// afterCommit emits side effects as fire-and-forget notifications, never
// inside the atomic unit.
func (s *SettlementService) afterCommit(res *PlaceBetResult) {
	metrics.BetsSettled.WithLabelValues(res.Bet.GameType, metrics.ResultLabel(res.Bet.Won)).Inc()

	if s.Events == nil || res.Bet.Demo {
		return
	}
	e := events.BetSettled{
		BetID:      res.Bet.ID,
		UserID:     res.Bet.UserId,
		GameType:   res.Bet.GameType,
		Currency:   res.Bet.Currency,
		Amount:     res.Bet.Amount,
		Multiplier: res.Bet.Multiplier,
		Won:        res.Bet.Won,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Events.PublishBetSettled(ctx, e); err != nil {
			s.Log.Warn("bet.settled publish failed",
				zap.String("bet_id", e.BetID), zap.Error(err))
		}
	}()
}

// walletLocked loads (or lazily creates) the user's wallet for a currency,
// FOR UPDATE when the bet moves money.
func (s *SettlementService) walletLocked(tx *gorm.DB, userID int64, currency string, lock bool) (*models.Wallet, error) {
	q := tx
	if lock {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var wallet models.Wallet
	err := q.Where("user_id = ? AND currency = ?", userID, currency).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.Wallet{UserId: userID, Currency: currency}
		if createErr := tx.Create(&wallet).Error; createErr != nil {
			// Lost a first-bet race on the (user, currency) unique index;
			// the row exists now, so read that one.
			if err := q.Where("user_id = ? AND currency = ?", userID, currency).First(&wallet).Error; err != nil {
				return nil, createErr
			}
			return &wallet, nil
		}
		err = q.Where("user_id = ? AND currency = ?", userID, currency).First(&wallet).Error
		if err != nil {
			return nil, err
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

const maxSettleAttempts = 3

// retryable reports whether a settlement error is transactional contention
// worth another attempt. MySQL surfaces these as deadlock or lock-wait
// failures.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Deadlock") ||
		strings.Contains(msg, "Lock wait timeout") ||
		strings.Contains(msg, "try restarting transaction")
}

// PlaceBetRetry is the caller-facing entry point: it retries PlaceBet a
// bounded number of times on transactional conflicts and surfaces
// exhaustion as the transient ErrConflict. Validation and balance failures
// are never retried.
func (s *SettlementService) PlaceBetRetry(ctx context.Context, req PlaceBetRequest) (*PlaceBetResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSettleAttempts; attempt++ {
		res, err := s.PlaceBet(ctx, req)
		if err == nil {
			return res, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		s.Log.Warn("settlement conflict, retrying",
			zap.Int64("user_id", req.UserID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}
