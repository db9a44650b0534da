package handler

import (
	"fmt"
	"net/http"
	"strconv"

	attachment "anoa.com/innoliber/internal/modules/attachment/service"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/response"
	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	service attachment.AttachmentService
}

func NewAttachmentHandler(service attachment.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// UploadAttachment expects a multipart "file" and an optional "version" field.
func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	proposalID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || proposalID == 0 {
		response.ResponseError(c, apperror.New(http.StatusNotFound, "proposal not found", apperror.ErrNotFound))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: file is required", apperror.ErrInvalidInput))
		return
	}

	var version *int
	if raw := c.PostForm("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.ResponseError(c, fmt.Errorf("%w: version must be an integer", apperror.ErrInvalidInput))
			return
		}
		version = &v
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.AttachToProposal(c.Request.Context(), userID, uint(proposalID), file, version)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}
