package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casino-engine/internal/games"
	"casino-engine/internal/services"
	"casino-engine/pkg/common"
)

type FairnessHandler struct {
	Seeds *services.SeedService
	Games *games.Registry
}

func NewFairnessHandler(seeds *services.SeedService, reg *games.Registry) *FairnessHandler {
	return &FairnessHandler{Seeds: seeds, Games: reg}
}

// GetCommitment returns the public half of the user's active seed pair: the
// server seed hash, the client seed and the next nonce.
func (h *FairnessHandler) GetCommitment(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid user_id", nil, http.StatusBadRequest))
		return
	}

	commitment, err := h.Seeds.ActiveCommitment(c.Request.Context(), userId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error(), nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(commitment, "Active commitment"))
}

type RotateSeedRequest struct {
	UserId     int64  `json:"user_id" binding:"required"`
	ClientSeed string `json:"client_seed"`
}

// RotateSeed reveals the current server seed and commits a fresh pair.
func (h *FairnessHandler) RotateSeed(c *gin.Context) {
	var req RotateSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	result, err := h.Seeds.Rotate(c.Request.Context(), req.UserId, req.ClientSeed)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, common.NewErrorResponse(err.Error(), nil, status))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(result, "Seed rotated"))
}

type VerifyRequest struct {
	ServerSeed string          `json:"server_seed" binding:"required"`
	ClientSeed string          `json:"client_seed" binding:"required"`
	Nonce      uint64          `json:"nonce"`
	GameType   string          `json:"game_type" binding:"required"`
	GameParams json.RawMessage `json:"game_params" binding:"required"`
}

// Verify recomputes an outcome from revealed seed material, independently of
// any stored bet.
func (h *FairnessHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	outcome, err := h.Games.Verify(req.ServerSeed, req.ClientSeed, req.Nonce, req.GameType, req.GameParams)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, common.NewErrorResponse(err.Error(), nil, status))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(outcome, "Outcome verified"))
}
