package handler

import (
	"net/http"

	stat "anoa.com/innoliber/internal/modules/stat/service"
	"anoa.com/innoliber/pkg/response"
	"github.com/gin-gonic/gin"
)

type StatHandler struct {
	statService stat.StatService
}

func NewStatHandler(statService stat.StatService) *StatHandler {
	return &StatHandler{statService: statService}
}

func (h *StatHandler) GetProposalStatistics(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.statService.GetProposalStatistics(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
