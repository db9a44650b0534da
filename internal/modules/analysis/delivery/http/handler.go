package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	analysis "anoa.com/innoliber/internal/modules/analysis/service"
	"anoa.com/innoliber/internal/modules/proposal/dto"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/response"
	"github.com/gin-gonic/gin"
)

type AnalysisHandler struct {
	service analysis.AnalysisService
}

func NewAnalysisHandler(service analysis.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// AnalyzeProposal takes an optional JSON body {"version": n}.
func (h *AnalysisHandler) AnalyzeProposal(c *gin.Context) {
	proposalID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || proposalID == 0 {
		response.ResponseError(c, apperror.New(http.StatusNotFound, "proposal not found", apperror.ErrNotFound))
		return
	}

	var req dto.AnalyzeProposalRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.ValidationError(c, err)
			return
		}
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.AnalyzeProposal(c.Request.Context(), userID, uint(proposalID), req.Version)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
