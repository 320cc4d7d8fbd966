package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"casino-engine/internal/games"
	"casino-engine/internal/models"
	"casino-engine/internal/services"
	"casino-engine/pkg/common"
)

type BetHandler struct {
	DB         *gorm.DB
	Settlement *services.SettlementService
}

func NewBetHandler(db *gorm.DB, settlement *services.SettlementService) *BetHandler {
	return &BetHandler{DB: db, Settlement: settlement}
}

type PlaceBetRequest struct {
	UserId     int64           `json:"user_id" binding:"required"`
	GameType   string          `json:"game_type" binding:"required"`
	Currency   string          `json:"currency" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	GameParams json.RawMessage `json:"game_params" binding:"required"`
	Demo       bool            `json:"demo"`
}

func (h *BetHandler) PlaceBet(c *gin.Context) {
	var req PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	res, err := h.Settlement.PlaceBetRetry(c.Request.Context(), services.PlaceBetRequest{
		UserID:     req.UserId,
		GameType:   req.GameType,
		Currency:   req.Currency,
		Amount:     req.Amount,
		GameParams: req.GameParams,
		Demo:       req.Demo,
	})
	if err != nil {
		status := statusFor(err)
		c.JSON(status, common.NewErrorResponse(err.Error(), nil, status))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(res, "Bet settled"))
}

func (h *BetHandler) ListBets(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid user_id", nil, http.StatusBadRequest))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := h.DB.Model(&models.Bet{}).Where("user_id = ?", userId)
	if game := c.Query("game_type"); game != "" {
		query = query.Where("game_type = ?", game)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error(), nil, http.StatusInternalServerError))
		return
	}

	var bets []models.Bet
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&bets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error(), nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, common.PaginateResponse(bets, total, page, limit, "Bets fetched"))
}

func (h *BetHandler) GetWallet(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid user_id", nil, http.StatusBadRequest))
		return
	}
	currency := c.DefaultQuery("currency", "USD")

	var wallet models.Wallet
	if err := h.DB.Where("user_id = ? AND currency = ?", userId, currency).First(&wallet).Error; err != nil {
		c.JSON(http.StatusNotFound, common.NewErrorResponse("Wallet not found", nil, http.StatusNotFound))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(wallet, "Wallet fetched"))
}

// statusFor maps service errors onto HTTP statuses: validation-class
// failures are 400s, balance shortfalls 402, contention 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrAmountOutOfBounds),
		errors.Is(err, games.ErrUnknownGame),
		errors.Is(err, games.ErrInteractiveGame),
		errors.Is(err, games.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSeedPairLocked),
		errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoActiveSession):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
