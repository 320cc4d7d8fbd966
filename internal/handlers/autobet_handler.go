package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"casino-engine/internal/services"
	"casino-engine/pkg/common"
)

type AutoBetHandler struct {
	Autobet *services.AutoBetService
}

func NewAutoBetHandler(autobet *services.AutoBetService) *AutoBetHandler {
	return &AutoBetHandler{Autobet: autobet}
}

type StartAutoBetRequest struct {
	UserId       int64              `json:"user_id" binding:"required"`
	GameType     string             `json:"game_type" binding:"required"`
	Currency     string             `json:"currency" binding:"required"`
	Amount       decimal.Decimal    `json:"amount"`
	GameParams   json.RawMessage    `json:"game_params" binding:"required"`
	BetsLimit    int                `json:"bets_limit"`
	OnWin        services.StakeRule `json:"on_win"`
	OnLoss       services.StakeRule `json:"on_loss"`
	StopOnProfit decimal.Decimal    `json:"stop_on_profit"`
	StopOnLoss   decimal.Decimal    `json:"stop_on_loss"`
	Demo         bool               `json:"demo"`
}

func (h *AutoBetHandler) Start(c *gin.Context) {
	var req StartAutoBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	session, err := h.Autobet.Start(c.Request.Context(), services.StartAutoBetRequest{
		UserID:       req.UserId,
		GameType:     req.GameType,
		Currency:     req.Currency,
		GameParams:   req.GameParams,
		Amount:       req.Amount,
		BetsLimit:    req.BetsLimit,
		OnWin:        req.OnWin,
		OnLoss:       req.OnLoss,
		StopOnProfit: req.StopOnProfit,
		StopOnLoss:   req.StopOnLoss,
		Demo:         req.Demo,
	})
	if err != nil {
		status := statusFor(err)
		c.JSON(status, common.NewErrorResponse(err.Error(), nil, status))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(session, "AutoBet started"))
}

func (h *AutoBetHandler) Stop(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid user_id", nil, http.StatusBadRequest))
		return
	}

	if err := h.Autobet.Stop(c.Request.Context(), userId); err != nil {
		status := statusFor(err)
		c.JSON(status, common.NewErrorResponse(err.Error(), nil, status))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "AutoBet stopping"))
}

func (h *AutoBetHandler) Status(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid user_id", nil, http.StatusBadRequest))
		return
	}

	status, err := h.Autobet.Status(c.Request.Context(), userId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error(), nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(status, "AutoBet status"))
}
