package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"casino-engine/internal/fair"
	"casino-engine/internal/metrics"
	"casino-engine/internal/models"
)

// SeedService owns the seed-pair lifecycle: one active pair per user,
// monotonic nonce reservation, rotation with reveal, and the game lock that
// stops a user rotating mid-session to dodge an in-progress outcome.
type SeedService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewSeedService(db *gorm.DB, log *zap.Logger) *SeedService {
	return &SeedService{DB: db, Log: log}
}

func newPair(userID int64, clientSeed string) (*models.SeedPair, error) {
	serverSeed, err := fair.GenerateServerSeed()
	if err != nil {
		return nil, err
	}
	if clientSeed == "" {
		if clientSeed, err = fair.GenerateClientSeed(); err != nil {
			return nil, err
		}
	}
	return &models.SeedPair{
		UserId:         userID,
		ServerSeed:     serverSeed,
		ServerSeedHash: fair.HashServerSeed(serverSeed),
		ClientSeed:     clientSeed,
		Nonce:          0,
		Active:         true,
	}, nil
}

// activePairLocked fetches the user's active pair under FOR UPDATE,
// creating one if the user has never played. Must run inside tx.
func (s *SeedService) activePairLocked(tx *gorm.DB, userID int64) (*models.SeedPair, error) {
	var pair models.SeedPair
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND active = ?", userID, true).
		First(&pair).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh, err := newPair(userID, "")
		if err != nil {
			return nil, err
		}
		if err := tx.Create(fresh).Error; err != nil {
			return nil, err
		}
		// Re-read under lock so concurrent creators serialize on one row.
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND active = ?", userID, true).
			First(&pair).Error
		if err != nil {
			return nil, err
		}
		return &pair, nil
	}
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Reserve allocates the next nonce on the user's active pair and returns the
// frozen snapshot the outcome must be computed from. Must run inside the
// same transaction that reserves the balance, so nonces stay strictly
// increasing with no gaps or reuse.
func (s *SeedService) Reserve(tx *gorm.DB, userID int64) (*models.SeedPair, fair.Snapshot, error) {
	pair, err := s.activePairLocked(tx, userID)
	if err != nil {
		return nil, fair.Snapshot{}, err
	}
	if pair.GameLock != nil {
		return nil, fair.Snapshot{}, ErrSeedPairLocked
	}

	snap := fair.Snapshot{
		ServerSeed: pair.ServerSeed,
		ClientSeed: pair.ClientSeed,
		Nonce:      pair.Nonce,
	}

	if err := tx.Model(pair).UpdateColumn("nonce", gorm.Expr("nonce + 1")).Error; err != nil {
		return nil, fair.Snapshot{}, err
	}
	return pair, snap, nil
}

type RotateResult struct {
	RevealedServerSeed string `json:"revealed_server_seed"`
	RevealedSeedHash   string `json:"revealed_seed_hash"`
	FinalNonce         uint64 `json:"final_nonce"`
	NewServerSeedHash  string `json:"new_server_seed_hash"`
	NewClientSeed      string `json:"new_client_seed"`
}

// Rotate reveals the current server seed and commits a fresh pair. The
// client seed carries over unless the user supplies a new one. Rejected
// while the pair is game-locked.
func (s *SeedService) Rotate(ctx context.Context, userID int64, newClientSeed string) (*RotateResult, error) {
	var result *RotateResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair, err := s.activePairLocked(tx, userID)
		if err != nil {
			return err
		}
		if pair.GameLock != nil {
			return ErrSeedPairLocked
		}

		if err := tx.Model(pair).Updates(map[string]interface{}{
			"active":   false,
			"revealed": true,
		}).Error; err != nil {
			return err
		}

		clientSeed := pair.ClientSeed
		if newClientSeed != "" {
			clientSeed = newClientSeed
		}
		fresh, err := newPair(userID, clientSeed)
		if err != nil {
			return err
		}
		if err := tx.Create(fresh).Error; err != nil {
			return err
		}

		result = &RotateResult{
			RevealedServerSeed: pair.ServerSeed,
			RevealedSeedHash:   pair.ServerSeedHash,
			FinalNonce:         pair.Nonce,
			NewServerSeedHash:  fresh.ServerSeedHash,
			NewClientSeed:      fresh.ClientSeed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SeedRotations.Inc()
	s.Log.Info("seed pair rotated", zap.Int64("user_id", userID))
	return result, nil
}

type Commitment struct {
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	NextNonce      uint64 `json:"next_nonce"`
}

// ActiveCommitment returns the public half of the user's active pair, for
// display before play.
func (s *SeedService) ActiveCommitment(ctx context.Context, userID int64) (*Commitment, error) {
	var out *Commitment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair, err := s.activePairLocked(tx, userID)
		if err != nil {
			return err
		}
		out = &Commitment{
			ServerSeedHash: pair.ServerSeedHash,
			ClientSeed:     pair.ClientSeed,
			NextNonce:      pair.Nonce,
		}
		return nil
	})
	return out, err
}

// LockForGame marks the active pair as held by an interactive game session.
// While locked, reservation and rotation are rejected.
func (s *SeedService) LockForGame(ctx context.Context, userID int64, game string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair, err := s.activePairLocked(tx, userID)
		if err != nil {
			return err
		}
		if pair.GameLock != nil {
			return ErrSeedPairLocked
		}
		return tx.Model(pair).Update("game_lock", game).Error
	})
}

// ReleaseGameLock clears the game lock once the interactive session ends.
func (s *SeedService) ReleaseGameLock(ctx context.Context, userID int64) error {
	return s.DB.WithContext(ctx).
		Model(&models.SeedPair{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("game_lock", nil).Error
}
