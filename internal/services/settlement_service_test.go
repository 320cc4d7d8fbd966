package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"casino-engine/internal/fair"
	"casino-engine/internal/games"
	"casino-engine/internal/models"
)

// NOTE: These tests require a running MySQL instance.
// Set DATABASE_URL to run them; they skip otherwise.

var testDB *gorm.DB

func setup() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("Skipping DB tests: DATABASE_URL not set")
		return
	}

	var err error
	testDB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return
	}

	testDB.AutoMigrate(&models.SeedPair{}, &models.Wallet{}, &models.Bet{},
		&models.LedgerEntry{}, &models.AutoBetSession{})
}

func cleanup() {
	if testDB != nil {
		testDB.Exec("DELETE FROM bets")
		testDB.Exec("DELETE FROM ledger_entries")
		testDB.Exec("DELETE FROM wallets")
		testDB.Exec("DELETE FROM seed_pairs")
		testDB.Exec("DELETE FROM autobet_sessions")
	}
}

func newTestSettlement() *SettlementService {
	logg := zap.NewNop()
	seeds := NewSeedService(testDB, logg)
	reg := games.NewRegistry(games.DefaultConfig())
	return NewSettlementService(testDB, seeds, reg, nil, logg)
}

// seedKnownPair plants the abc/xyz pair so outcomes are predictable.
func seedKnownPair(t *testing.T, userID int64) {
	t.Helper()
	pair := &models.SeedPair{
		UserId:         userID,
		ServerSeed:     "abc",
		ServerSeedHash: fair.HashServerSeed("abc"),
		ClientSeed:     "xyz",
		Nonce:          0,
		Active:         true,
	}
	if err := testDB.Create(pair).Error; err != nil {
		t.Fatalf("seed pair setup failed: %v", err)
	}
}

func fundWallet(t *testing.T, userID int64, currency, amount string) {
	t.Helper()
	wallet := &models.Wallet{
		UserId:           userID,
		Currency:         currency,
		AvailableBalance: mustDec(t, amount),
	}
	if err := testDB.Create(wallet).Error; err != nil {
		t.Fatalf("wallet setup failed: %v", err)
	}
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func diceOver50() json.RawMessage {
	return json.RawMessage(`{"target":"50","condition":"over"}`)
}

func TestSettleWinningBet(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 101)
	fundWallet(t, 101, "USD", "100.00")
	svc := newTestSettlement()

	// abc/xyz/0 rolls 81.04: over 50 wins at 1.9602.
	res, err := svc.PlaceBet(context.Background(), PlaceBetRequest{
		UserID:     101,
		GameType:   "dice",
		Currency:   "USD",
		Amount:     mustDec(t, "10.00"),
		GameParams: diceOver50(),
	})
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}

	if !res.Outcome.Won {
		t.Fatalf("Expected win, got loss: %+v", res.Outcome)
	}
	if !res.Outcome.Payout.Equal(mustDec(t, "19.60")) {
		t.Errorf("Expected payout 19.60, got %s", res.Outcome.Payout)
	}
	if !res.Outcome.Profit.Equal(mustDec(t, "9.60")) {
		t.Errorf("Expected profit 9.60, got %s", res.Outcome.Profit)
	}
	if res.Bet.Nonce != 0 {
		t.Errorf("Expected nonce 0, got %d", res.Bet.Nonce)
	}
	if res.Bet.Status != models.BetStatusSettled {
		t.Errorf("Expected status settled, got %s", res.Bet.Status)
	}

	var wallet models.Wallet
	testDB.Where("user_id = ?", 101).First(&wallet)
	if !wallet.AvailableBalance.Equal(mustDec(t, "109.60")) {
		t.Errorf("Expected balance 109.60, got %s", wallet.AvailableBalance)
	}
	if !wallet.LockedBalance.IsZero() {
		t.Errorf("Expected locked balance 0, got %s", wallet.LockedBalance)
	}

	// Reserve then payout, in order.
	var entries []models.LedgerEntry
	testDB.Where("bet_id = ?", res.Bet.ID).Order("id").Find(&entries)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %d", len(entries))
	}
	if entries[0].Type != models.LedgerTypeReserve || !entries[0].Delta.Equal(mustDec(t, "-10.00")) {
		t.Errorf("Bad reserve entry: %+v", entries[0])
	}
	if entries[1].Type != models.LedgerTypePayout || !entries[1].Delta.Equal(mustDec(t, "19.60")) {
		t.Errorf("Bad payout entry: %+v", entries[1])
	}
}

func TestSettleLosingBet(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 102)
	fundWallet(t, 102, "USD", "100.00")
	svc := newTestSettlement()

	// Same roll, under 50 loses.
	res, err := svc.PlaceBet(context.Background(), PlaceBetRequest{
		UserID:     102,
		GameType:   "dice",
		Currency:   "USD",
		Amount:     mustDec(t, "10.00"),
		GameParams: json.RawMessage(`{"target":"50","condition":"under"}`),
	})
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if res.Outcome.Won {
		t.Fatal("Expected loss")
	}

	var wallet models.Wallet
	testDB.Where("user_id = ?", 102).First(&wallet)
	if !wallet.AvailableBalance.Equal(mustDec(t, "90.00")) {
		t.Errorf("Expected balance 90.00, got %s", wallet.AvailableBalance)
	}

	var entries []models.LedgerEntry
	testDB.Where("bet_id = ?", res.Bet.ID).Order("id").Find(&entries)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %d", len(entries))
	}
	if entries[1].Type != models.LedgerTypeRelease || !entries[1].Delta.IsZero() {
		t.Errorf("Bad release entry: %+v", entries[1])
	}
}

func TestInsufficientFundsLeavesNoTrace(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 103)
	fundWallet(t, 103, "USD", "5.00")
	svc := newTestSettlement()

	_, err := svc.PlaceBet(context.Background(), PlaceBetRequest{
		UserID:     103,
		GameType:   "dice",
		Currency:   "USD",
		Amount:     mustDec(t, "10.00"),
		GameParams: diceOver50(),
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	// Full rollback: no bet, no ledger rows, nonce untouched.
	var betCount, ledgerCount int64
	testDB.Model(&models.Bet{}).Where("user_id = ?", 103).Count(&betCount)
	testDB.Model(&models.LedgerEntry{}).Where("user_id = ?", 103).Count(&ledgerCount)
	if betCount != 0 || ledgerCount != 0 {
		t.Errorf("Expected no rows, got %d bets and %d ledger entries", betCount, ledgerCount)
	}

	var pair models.SeedPair
	testDB.Where("user_id = ? AND active = ?", 103, true).First(&pair)
	if pair.Nonce != 0 {
		t.Errorf("Expected nonce 0 after rollback, got %d", pair.Nonce)
	}
}

func TestValidationRejectsBeforeNonce(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 104)
	fundWallet(t, 104, "USD", "100.00")
	svc := newTestSettlement()
	ctx := context.Background()

	cases := []PlaceBetRequest{
		{UserID: 104, GameType: "dice", Currency: "USD", Amount: mustDec(t, "0.01"), GameParams: diceOver50()},
		{UserID: 104, GameType: "dice", Currency: "USD", Amount: mustDec(t, "-5"), GameParams: diceOver50()},
		{UserID: 104, GameType: "dice", Currency: "BTC", Amount: mustDec(t, "10"), GameParams: diceOver50()},
		{UserID: 104, GameType: "roulette", Currency: "USD", Amount: mustDec(t, "10"), GameParams: diceOver50()},
		{UserID: 104, GameType: "blackjack", Currency: "USD", Amount: mustDec(t, "10"), GameParams: diceOver50()},
		{UserID: 104, GameType: "dice", Currency: "USD", Amount: mustDec(t, "10"), GameParams: json.RawMessage(`{"target":"200","condition":"over"}`)},
	}
	for i, req := range cases {
		if _, err := svc.PlaceBet(ctx, req); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}

	var pair models.SeedPair
	testDB.Where("user_id = ? AND active = ?", 104, true).First(&pair)
	if pair.Nonce != 0 {
		t.Errorf("Rejected bets must not consume nonces, got nonce %d", pair.Nonce)
	}
}

func TestDemoBetConsumesNonceOnly(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 105)
	svc := newTestSettlement()

	res, err := svc.PlaceBet(context.Background(), PlaceBetRequest{
		UserID:     105,
		GameType:   "dice",
		Currency:   "USD",
		Amount:     mustDec(t, "10.00"),
		GameParams: diceOver50(),
		Demo:       true,
	})
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if !res.Bet.Demo {
		t.Error("Expected demo flag on bet")
	}
	if res.Bet.Nonce != 0 {
		t.Errorf("Expected nonce 0, got %d", res.Bet.Nonce)
	}

	var wallet models.Wallet
	testDB.Where("user_id = ?", 105).First(&wallet)
	if !wallet.AvailableBalance.IsZero() || !wallet.LockedBalance.IsZero() {
		t.Errorf("Demo bet moved money: %+v", wallet)
	}

	var ledgerCount int64
	testDB.Model(&models.LedgerEntry{}).Where("user_id = ?", 105).Count(&ledgerCount)
	if ledgerCount != 0 {
		t.Errorf("Expected no ledger entries, got %d", ledgerCount)
	}

	var pair models.SeedPair
	testDB.Where("user_id = ? AND active = ?", 105, true).First(&pair)
	if pair.Nonce != 1 {
		t.Errorf("Demo bet must consume the nonce, got %d", pair.Nonce)
	}
}

func TestConcurrentBetsConserveBalance(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 106)
	fundWallet(t, 106, "USD", "50.00")
	svc := newTestSettlement()

	const workers = 8
	stake := mustDec(t, "10.00")
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceBetRetry(context.Background(), PlaceBetRequest{
				UserID:     106,
				GameType:   "dice",
				Currency:   "USD",
				Amount:     stake,
				GameParams: diceOver50(),
			})
		}(i)
	}
	wg.Wait()

	settled := 0
	for i := 0; i < workers; i++ {
		if errs[i] == nil {
			settled++
		} else if !errors.Is(errs[i], ErrInsufficientFunds) {
			t.Errorf("worker %d: unexpected error %v", i, errs[i])
		}
	}
	if settled == 0 {
		t.Fatal("Expected at least one settled bet")
	}

	// Conservation: final balance = initial + sum of profits, exactly.
	var entries []models.LedgerEntry
	testDB.Where("user_id = ?", 106).Find(&entries)
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Delta)
	}
	var wallet models.Wallet
	testDB.Where("user_id = ?", 106).First(&wallet)
	if !wallet.AvailableBalance.Sub(mustDec(t, "50.00")).Equal(sum) {
		t.Errorf("Ledger sum %s does not match balance delta %s",
			sum, wallet.AvailableBalance.Sub(mustDec(t, "50.00")))
	}
	if wallet.AvailableBalance.IsNegative() {
		t.Errorf("Balance went negative: %s", wallet.AvailableBalance)
	}
	if !wallet.LockedBalance.IsZero() {
		t.Errorf("Locked balance leaked: %s", wallet.LockedBalance)
	}

	// Every settled bet got its own nonce.
	var bets []models.Bet
	testDB.Where("user_id = ?", 106).Find(&bets)
	if len(bets) != settled {
		t.Fatalf("Expected %d bets, got %d", settled, len(bets))
	}
	seen := make(map[uint64]bool)
	for _, b := range bets {
		if seen[b.Nonce] {
			t.Errorf("Nonce %d reused", b.Nonce)
		}
		seen[b.Nonce] = true
	}
}

func TestConcurrentFirstBetsShareOneWallet(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	// No wallet row exists yet; demo bets settle without funding, so every
	// worker races through wallet creation for the same (user, currency).
	seedKnownPair(t, 110)
	svc := newTestSettlement()

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceBetRetry(context.Background(), PlaceBetRequest{
				UserID:     110,
				GameType:   "dice",
				Currency:   "USD",
				Amount:     decimal.NewFromInt(10),
				GameParams: diceOver50(),
				Demo:       true,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: %v", i, err)
		}
	}

	var walletCount int64
	testDB.Model(&models.Wallet{}).Where("user_id = ?", 110).Count(&walletCount)
	if walletCount != 1 {
		t.Errorf("Expected exactly one wallet, got %d", walletCount)
	}

	var betCount int64
	testDB.Model(&models.Bet{}).Where("user_id = ?", 110).Count(&betCount)
	if betCount != workers {
		t.Errorf("Expected %d bets, got %d", workers, betCount)
	}
}

func TestNonceSequenceAndReplay(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 107)
	fundWallet(t, 107, "USD", "1000.00")
	svc := newTestSettlement()
	ctx := context.Background()

	var bets []*models.Bet
	for i := 0; i < 3; i++ {
		res, err := svc.PlaceBet(ctx, PlaceBetRequest{
			UserID:     107,
			GameType:   "dice",
			Currency:   "USD",
			Amount:     mustDec(t, "10.00"),
			GameParams: diceOver50(),
		})
		if err != nil {
			t.Fatalf("bet %d failed: %v", i, err)
		}
		if res.Bet.Nonce != uint64(i) {
			t.Errorf("Expected nonce %d, got %d", i, res.Bet.Nonce)
		}
		bets = append(bets, res.Bet)
	}

	// Rotate to reveal, then replay every bet against the revealed seed.
	rot, err := svc.Seeds.Rotate(ctx, 107, "")
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rot.RevealedServerSeed != "abc" {
		t.Errorf("Expected revealed seed abc, got %s", rot.RevealedServerSeed)
	}
	if rot.FinalNonce != 3 {
		t.Errorf("Expected final nonce 3, got %d", rot.FinalNonce)
	}
	if fair.HashServerSeed(rot.RevealedServerSeed) != rot.RevealedSeedHash {
		t.Error("Revealed seed does not match its commitment")
	}

	for _, b := range bets {
		out, err := svc.Games.Verify(rot.RevealedServerSeed, "xyz", b.Nonce, b.GameType, b.GameParams)
		if err != nil {
			t.Fatalf("Verify failed for nonce %d: %v", b.Nonce, err)
		}
		if out.Won != b.Won {
			t.Errorf("nonce %d: replay won=%v, stored won=%v", b.Nonce, out.Won, b.Won)
		}
		if !out.Multiplier.Equal(b.Multiplier) {
			t.Errorf("nonce %d: replay multiplier %s, stored %s", b.Nonce, out.Multiplier, b.Multiplier)
		}
	}
}

func TestGameLockBlocksSettlementAndRotation(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 108)
	fundWallet(t, 108, "USD", "100.00")
	svc := newTestSettlement()
	ctx := context.Background()

	if err := svc.Seeds.LockForGame(ctx, 108, "blackjack"); err != nil {
		t.Fatalf("LockForGame failed: %v", err)
	}

	req := PlaceBetRequest{
		UserID:     108,
		GameType:   "dice",
		Currency:   "USD",
		Amount:     mustDec(t, "10.00"),
		GameParams: diceOver50(),
	}
	if _, err := svc.PlaceBet(ctx, req); !errors.Is(err, ErrSeedPairLocked) {
		t.Errorf("Expected ErrSeedPairLocked on bet, got %v", err)
	}
	if _, err := svc.Seeds.Rotate(ctx, 108, ""); !errors.Is(err, ErrSeedPairLocked) {
		t.Errorf("Expected ErrSeedPairLocked on rotate, got %v", err)
	}

	if err := svc.Seeds.ReleaseGameLock(ctx, 108); err != nil {
		t.Fatalf("ReleaseGameLock failed: %v", err)
	}
	if _, err := svc.PlaceBet(ctx, req); err != nil {
		t.Errorf("Expected bet to settle after unlock, got %v", err)
	}
}

func TestRotationCarriesClientSeed(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	seedKnownPair(t, 109)
	svc := newTestSettlement()
	ctx := context.Background()

	rot, err := svc.Seeds.Rotate(ctx, 109, "")
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rot.NewClientSeed != "xyz" {
		t.Errorf("Expected client seed carried over, got %s", rot.NewClientSeed)
	}

	rot, err = svc.Seeds.Rotate(ctx, 109, "fresh-seed")
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rot.NewClientSeed != "fresh-seed" {
		t.Errorf("Expected supplied client seed, got %s", rot.NewClientSeed)
	}

	commit, err := svc.Seeds.ActiveCommitment(ctx, 109)
	if err != nil {
		t.Fatalf("ActiveCommitment failed: %v", err)
	}
	if commit.ServerSeedHash != rot.NewServerSeedHash {
		t.Error("Active commitment does not match the rotated-in pair")
	}
	if commit.NextNonce != 0 {
		t.Errorf("Fresh pair must start at nonce 0, got %d", commit.NextNonce)
	}
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	os.Exit(code)
}
