package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"casino-engine/internal/games"
	"casino-engine/internal/metrics"
	"casino-engine/internal/models"
	"casino-engine/internal/notify"
)

// Session stop reasons recorded on terminal sessions.
const (
	StopReasonStopped      = "stopped"
	StopReasonSuperseded   = "superseded"
	StopReasonLimitReached = "limit_reached"
	StopReasonProfitTarget = "profit_target"
	StopReasonLossLimit    = "loss_limit"
	StopReasonBetFailed    = "bet_failed"
	StopReasonStalled      = "stalled"
)

// IterationDriver schedules one future autobet iteration. The durable queue
// and the in-process loop are interchangeable implementations; a session
// never has more than one pending iteration, so iterations for one user
// never run in parallel.
type IterationDriver interface {
	Schedule(ctx context.Context, sessionID uint, delay time.Duration) error
}

// StakeRule is the on-win or on-loss adjustment applied between iterations.
type StakeRule struct {
	Action  string          `json:"action"` // "reset" or "increase"
	Percent decimal.Decimal `json:"percent"`
}

func (r StakeRule) valid() bool {
	switch r.Action {
	case models.StakeActionReset:
		return true
	case models.StakeActionIncrease:
		return !r.Percent.IsNegative()
	default:
		return false
	}
}

// apply returns the next stake given the current one and the session base.
func (r StakeRule) apply(current, base decimal.Decimal) decimal.Decimal {
	if r.Action == models.StakeActionReset {
		return base
	}
	scale := decimal.NewFromInt(1).Add(r.Percent.Div(decimal.NewFromInt(100)))
	return current.Mul(scale).RoundDown(2)
}

type AutoBetService struct {
	DB         *gorm.DB
	Settlement *SettlementService
	Games      *games.Registry
	Driver     IterationDriver
	Fallback   IterationDriver
	Notifier   notify.Notifier
	Log        *zap.Logger
	Delay      time.Duration

	reaper *cron.Cron
}

func NewAutoBetService(db *gorm.DB, settlement *SettlementService, reg *games.Registry, driver, fallback IterationDriver, notifier notify.Notifier, log *zap.Logger, delay time.Duration) *AutoBetService {
	if delay <= 0 {
		delay = time.Second
	}
	return &AutoBetService{
		DB:         db,
		Settlement: settlement,
		Games:      reg,
		Driver:     driver,
		Fallback:   fallback,
		Notifier:   notifier,
		Log:        log,
		Delay:      delay,
	}
}

type StartAutoBetRequest struct {
	UserID       int64
	GameType     string
	Currency     string
	GameParams   json.RawMessage
	Amount       decimal.Decimal
	BetsLimit    int // 0 = unlimited
	OnWin        StakeRule
	OnLoss       StakeRule
	StopOnProfit decimal.Decimal // 0 = disabled
	StopOnLoss   decimal.Decimal // 0 = disabled
	Demo         bool
}

// Start validates the bet template, supersedes any existing session for the
// user and schedules the first iteration. Automation-ineligible games are
// rejected here, before any bet is placed.
func (s *AutoBetService) Start(ctx context.Context, req StartAutoBetRequest) (*models.AutoBetSession, error) {
	if err := s.Settlement.validate(PlaceBetRequest{
		UserID:     req.UserID,
		GameType:   req.GameType,
		Currency:   req.Currency,
		Amount:     req.Amount,
		GameParams: req.GameParams,
		Demo:       req.Demo,
	}); err != nil {
		return nil, err
	}
	if !req.OnWin.valid() || !req.OnLoss.valid() {
		return nil, fmt.Errorf("%w: staking rule action must be reset or increase", games.ErrInvalidParams)
	}
	if req.BetsLimit < 0 || req.StopOnProfit.IsNegative() || req.StopOnLoss.IsNegative() {
		return nil, fmt.Errorf("%w: limits must not be negative", games.ErrInvalidParams)
	}

	session := &models.AutoBetSession{
		UserId:        req.UserID,
		GameType:      req.GameType,
		Currency:      req.Currency,
		GameParams:    req.GameParams,
		BaseAmount:    req.Amount,
		CurrentAmount: req.Amount,
		BetsLimit:     req.BetsLimit,
		OnWinAction:   req.OnWin.Action,
		OnWinPercent:  req.OnWin.Percent,
		OnLossAction:  req.OnLoss.Action,
		OnLossPercent: req.OnLoss.Percent,
		StopOnProfit:  req.StopOnProfit,
		StopOnLoss:    req.StopOnLoss,
		Demo:          req.Demo,
		Active:        true,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AutoBetSession{}).
			Where("user_id = ? AND active = ?", req.UserID, true).
			Updates(map[string]interface{}{
				"active":      false,
				"stop_reason": StopReasonSuperseded,
			}).Error; err != nil {
			return err
		}
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, err
	}

	s.schedule(ctx, session.ID, 0)
	return session, nil
}

// Stop deactivates the user's session. Advisory: it takes effect before the
// next iteration begins, never mid-settlement.
func (s *AutoBetService) Stop(ctx context.Context, userID int64) error {
	res := s.DB.WithContext(ctx).Model(&models.AutoBetSession{}).
		Where("user_id = ? AND active = ?", userID, true).
		Updates(map[string]interface{}{
			"active":      false,
			"stop_reason": StopReasonStopped,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveSession
	}
	return nil
}

type AutoBetStatus struct {
	Active        bool            `json:"active"`
	BetsCompleted int             `json:"bets_completed"`
	BetsLimit     int             `json:"bets_limit"`
	Profit        decimal.Decimal `json:"profit"`
	StopReason    string          `json:"stop_reason,omitempty"`
}

// Status reports the user's most recent session, active or not.
func (s *AutoBetService) Status(ctx context.Context, userID int64) (*AutoBetStatus, error) {
	var session models.AutoBetSession
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &AutoBetStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &AutoBetStatus{
		Active:        session.Active,
		BetsCompleted: session.BetsPlaced,
		BetsLimit:     session.BetsLimit,
		Profit:        session.Profit,
		StopReason:    session.StopReason,
	}, nil
}

// schedule hands the next iteration to the durable driver, degrading to the
// in-process loop when the queue infrastructure is unavailable.
func (s *AutoBetService) schedule(ctx context.Context, sessionID uint, delay time.Duration) {
	if err := s.Driver.Schedule(ctx, sessionID, delay); err != nil {
		s.Log.Warn("durable scheduling unavailable, falling back to in-process loop",
			zap.Uint("session_id", sessionID), zap.Error(err))
		if err := s.Fallback.Schedule(ctx, sessionID, delay); err != nil {
			s.Log.Error("fallback scheduling failed, terminating session",
				zap.Uint("session_id", sessionID), zap.Error(err))
			s.terminate(sessionID, StopReasonBetFailed)
		}
	}
}

func (s *AutoBetService) terminate(sessionID uint, reason string) {
	if err := s.DB.Model(&models.AutoBetSession{}).
		Where("id = ? AND active = ?", sessionID, true).
		Updates(map[string]interface{}{
			"active":      false,
			"stop_reason": reason,
		}).Error; err != nil {
		s.Log.Error("failed to terminate session",
			zap.Uint("session_id", sessionID), zap.Error(err))
	}
	metrics.AutoBetIterations.WithLabelValues(reason).Inc()
}

// RunIteration executes one autobet cycle: place a bet synchronously, fold
// the result into the session, evaluate stop conditions, adjust the stake
// and schedule the next cycle. A failed settlement terminates the session
// rather than silently skipping.
func (s *AutoBetService) RunIteration(ctx context.Context, sessionID uint) error {
	var session models.AutoBetSession
	err := s.DB.WithContext(ctx).First(&session, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !session.Active {
		// Stop or supersede landed between iterations.
		return nil
	}

	res, err := s.Settlement.PlaceBetRetry(ctx, PlaceBetRequest{
		UserID:     session.UserId,
		GameType:   session.GameType,
		Currency:   session.Currency,
		Amount:     session.CurrentAmount,
		GameParams: session.GameParams,
		Demo:       session.Demo,
	})
	if err != nil {
		s.Log.Warn("autobet settlement failed, terminating session",
			zap.Uint("session_id", sessionID),
			zap.Int64("user_id", session.UserId),
			zap.Int("bets_placed", session.BetsPlaced),
			zap.Error(err))
		s.terminate(sessionID, StopReasonBetFailed)
		return nil
	}

	now := time.Now()
	session.BetsPlaced++
	session.Profit = session.Profit.Add(res.Outcome.Profit)
	session.LastBetAt = &now

	stopReason := s.stopReason(&session)
	if stopReason == "" {
		rule := StakeRule{Action: session.OnLossAction, Percent: session.OnLossPercent}
		if res.Outcome.Won {
			rule = StakeRule{Action: session.OnWinAction, Percent: session.OnWinPercent}
		}
		session.CurrentAmount = rule.apply(session.CurrentAmount, session.BaseAmount)
	} else {
		session.Active = false
		session.StopReason = stopReason
	}

	owned, err := s.persistIteration(&session)
	if err != nil {
		return err
	}
	metrics.AutoBetIterations.WithLabelValues("completed").Inc()

	if !owned {
		// A stop or supersede committed while the bet settled; its write
		// stands and this chain ends here.
		session.Active = false
		s.pushUpdate(&session, res)
		return nil
	}

	s.pushUpdate(&session, res)
	if session.Active {
		s.schedule(ctx, session.ID, s.Delay)
	}
	return nil
}

// persistIteration writes the updated totals, keyed on the row still being
// active so a concurrent stop or supersede is never clobbered back to
// active. Reports whether this iteration still owns the session.
func (s *AutoBetService) persistIteration(session *models.AutoBetSession) (bool, error) {
	res := s.DB.Model(&models.AutoBetSession{}).
		Where("id = ? AND active = ?", session.ID, true).
		Updates(map[string]interface{}{
			"bets_placed":    session.BetsPlaced,
			"profit":         session.Profit,
			"current_amount": session.CurrentAmount,
			"last_bet_at":    session.LastBetAt,
			"active":         session.Active,
			"stop_reason":    session.StopReason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// stopReason evaluates the stop conditions against the updated totals.
// First match wins: bet-count limit, then profit target, then loss limit.
func (s *AutoBetService) stopReason(session *models.AutoBetSession) string {
	if session.BetsLimit > 0 && session.BetsPlaced >= session.BetsLimit {
		return StopReasonLimitReached
	}
	if session.StopOnProfit.IsPositive() && session.Profit.GreaterThanOrEqual(session.StopOnProfit) {
		return StopReasonProfitTarget
	}
	if session.StopOnLoss.IsPositive() && session.Profit.LessThanOrEqual(session.StopOnLoss.Neg()) {
		return StopReasonLossLimit
	}
	return ""
}

// pushUpdate sends the best-effort live notification for one settled
// iteration. Failures are logged and ignored.
func (s *AutoBetService) pushUpdate(session *models.AutoBetSession, res *PlaceBetResult) {
	if s.Notifier == nil {
		return
	}
	u := notify.BetUpdate{
		BetID:      res.Bet.ID,
		GameType:   res.Bet.GameType,
		Amount:     res.Bet.Amount,
		Payout:     res.Bet.Payout,
		Profit:     res.Bet.Profit,
		Won:        res.Bet.Won,
		Balance:    res.Wallet.AvailableBalance,
		BetsPlaced: session.BetsPlaced,
		Active:     session.Active,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Notifier.PushBetUpdate(ctx, session.UserId, u); err != nil {
		s.Log.Warn("autobet push failed",
			zap.Int64("user_id", session.UserId), zap.Error(err))
	}
}

// StartReaper sweeps sessions that stopped making progress (for example
// after a worker crash mid-chain) so they do not read as active forever.
func (s *AutoBetService) StartReaper(maxIdle time.Duration) {
	s.reaper = cron.New()
	s.reaper.AddFunc("@every 5m", func() {
		cutoff := time.Now().Add(-maxIdle)
		res := s.DB.Model(&models.AutoBetSession{}).
			Where("active = ? AND (last_bet_at < ? OR (last_bet_at IS NULL AND created_at < ?))", true, cutoff, cutoff).
			Updates(map[string]interface{}{
				"active":      false,
				"stop_reason": StopReasonStalled,
			})
		if res.Error != nil {
			s.Log.Error("session reaper failed", zap.Error(res.Error))
			return
		}
		if res.RowsAffected > 0 {
			s.Log.Info("reaped stalled autobet sessions", zap.Int64("count", res.RowsAffected))
		}
	})
	s.reaper.Start()
}

func (s *AutoBetService) StopReaper() {
	if s.reaper != nil {
		s.reaper.Stop()
	}
}
