package handler

import (
	"net/http"
	"strconv"

	"anoa.com/innoliber/internal/modules/proposal/dto"
	proposal "anoa.com/innoliber/internal/modules/proposal/service"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/response"
	"github.com/gin-gonic/gin"
)

type ProposalHandler struct {
	service proposal.Service
}

func NewProposalHandler(service proposal.Service) *ProposalHandler {
	return &ProposalHandler{service: service}
}

func parseProposalID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		// a malformed id cannot name any proposal
		response.ResponseError(c, apperror.New(http.StatusNotFound, "proposal not found", apperror.ErrNotFound))
		return 0, false
	}
	return uint(id), true
}

func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	var req dto.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.CreateProposal(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *ProposalHandler) GetProposals(c *gin.Context) {
	var filter dto.ProposalFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ValidationError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListProposals(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProposalHandler) GetProposal(c *gin.Context) {
	id, ok := parseProposalID(c)
	if !ok {
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetProposal(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProposalHandler) UpdateProposal(c *gin.Context) {
	id, ok := parseProposalID(c)
	if !ok {
		return
	}

	var req dto.UpdateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.UpdateProposal(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProposalHandler) DeleteProposal(c *gin.Context) {
	id, ok := parseProposalID(c)
	if !ok {
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteProposal(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ProposalHandler) DuplicateProposal(c *gin.Context) {
	id, ok := parseProposalID(c)
	if !ok {
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var newTitle *string
	if title, exists := c.GetQuery("new_title"); exists {
		newTitle = &title
	}

	res, err := h.service.DuplicateProposal(c.Request.Context(), userID, id, newTitle)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}
