package handler

import (
	"fmt"
	"net/http"

	"anoa.com/innoliber/internal/modules/search/dto"
	search "anoa.com/innoliber/internal/modules/search/service"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/response"
	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	service search.SearchService
}

// NewSearchHandler accepts a nil service; requests then answer 503.
func NewSearchHandler(service search.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) SearchProposals(c *gin.Context) {
	if h.service == nil {
		response.ResponseError(c, fmt.Errorf("%w: search is not configured", apperror.ErrServiceUnavailable))
		return
	}

	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.SearchProposals(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
