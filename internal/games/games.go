package games

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"casino-engine/internal/fair"
)

var (
	ErrUnknownGame     = errors.New("unknown game type")
	ErrInteractiveGame = errors.New("game requires interactive play")
	ErrInvalidParams   = errors.New("invalid game parameters")
)

// EdgePolicy records how the house edge enters a game's payout, so a
// verifier recomputing the raw outcome applies it identically.
type EdgePolicy string

const (
	// EdgeOnMultiplier: final multiplier = raw fair-odds multiplier x (1 - edge).
	EdgeOnMultiplier EdgePolicy = "on_multiplier"
	// EdgeInTable: the edge is pre-baked into the game's payout table or odds
	// curve and the engine applies no further discount.
	EdgeInTable EdgePolicy = "in_table"
)

// Outcome is the full result of one bet computation. Payout and Profit are
// already floored to 2 decimals; Payload carries the game-specific state
// needed to display and independently verify the result.
type Outcome struct {
	Multiplier decimal.Decimal        `json:"multiplier"`
	Payout     decimal.Decimal        `json:"payout"`
	Profit     decimal.Decimal        `json:"profit"`
	Won        bool                   `json:"won"`
	Payload    map[string]interface{} `json:"payload"`
}

// Config carries the house-edge settings shared by the calculators.
type Config struct {
	HouseEdge decimal.Decimal // fraction, e.g. 0.01 for 1%
}

func DefaultConfig() Config {
	return Config{HouseEdge: decimal.New(1, -2)}
}

// ComputeFunc derives an outcome from a reserved seed snapshot and validated
// parameters. Implementations must be pure: same inputs, same outcome, and
// the number and order of random draws is part of the fairness contract.
type ComputeFunc func(amount decimal.Decimal, snap fair.Snapshot, params json.RawMessage, cfg Config) (*Outcome, error)

// ValidateFunc checks parameters before any randomness is drawn, so a
// rejected bet never perturbs the nonce sequence.
type ValidateFunc func(params json.RawMessage) error

type Game struct {
	ID          string
	Name        string
	EdgePolicy  EdgePolicy
	Interactive bool
	Validate    ValidateFunc
	Compute     ComputeFunc
}

// Registry is the closed set of game calculators, passed explicitly into the
// settlement engine at construction time.
type Registry struct {
	cfg   Config
	games map[string]Game
}

func NewRegistry(cfg Config) *Registry {
	r := &Registry{cfg: cfg, games: make(map[string]Game)}
	r.register(Game{ID: "dice", Name: "Dice", EdgePolicy: EdgeOnMultiplier, Validate: validateDice, Compute: computeDice})
	r.register(Game{ID: "limbo", Name: "Limbo", EdgePolicy: EdgeInTable, Validate: validateLimbo, Compute: computeLimbo})
	r.register(Game{ID: "wheel", Name: "Wheel", EdgePolicy: EdgeInTable, Validate: validateWheel, Compute: computeWheel})
	r.register(Game{ID: "keno", Name: "Keno", EdgePolicy: EdgeInTable, Validate: validateKeno, Compute: computeKeno})
	r.register(Game{ID: "mines", Name: "Mines", EdgePolicy: EdgeOnMultiplier, Validate: validateMines, Compute: computeMines})

	// Interactive games run on their own round/turn state machines outside
	// this engine. They are registered so session-start validation can name
	// them, but they cannot be settled or automated here.
	r.register(Game{ID: "blackjack", Name: "Blackjack", Interactive: true})
	r.register(Game{ID: "hilo", Name: "HiLo", Interactive: true})
	return r
}

func (r *Registry) register(g Game) {
	r.games[g.ID] = g
}

func (r *Registry) Get(id string) (Game, bool) {
	g, ok := r.games[id]
	return g, ok
}

func (r *Registry) Config() Config {
	return r.cfg
}

// ValidateParams rejects unknown games, interactive games and bad
// parameters, all before any randomness is drawn.
func (r *Registry) ValidateParams(gameID string, params json.RawMessage) error {
	g, ok := r.games[gameID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGame, gameID)
	}
	if g.Interactive {
		return fmt.Errorf("%w: %s", ErrInteractiveGame, gameID)
	}
	return g.Validate(params)
}

// Compute runs the game's calculator against a reserved seed snapshot.
func (r *Registry) Compute(gameID string, amount decimal.Decimal, snap fair.Snapshot, params json.RawMessage) (*Outcome, error) {
	g, ok := r.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, gameID)
	}
	if g.Interactive {
		return nil, fmt.Errorf("%w: %s", ErrInteractiveGame, gameID)
	}
	return g.Compute(amount, snap, params, r.cfg)
}

// floorMoney truncates to 2 decimals, the documented fairness rounding for
// every monetary value.
func floorMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(2)
}

func lose(amount decimal.Decimal, payload map[string]interface{}) *Outcome {
	return &Outcome{
		Multiplier: decimal.Zero,
		Payout:     decimal.Zero,
		Profit:     amount.Neg(),
		Won:        false,
		Payload:    payload,
	}
}

func win(amount, multiplier decimal.Decimal, payload map[string]interface{}) *Outcome {
	payout := floorMoney(amount.Mul(multiplier))
	return &Outcome{
		Multiplier: multiplier,
		Payout:     payout,
		Profit:     payout.Sub(amount),
		Won:        true,
		Payload:    payload,
	}
}
