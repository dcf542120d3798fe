package handler

import (
	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExceptionHandler handles manual-resolution work item endpoints
type ExceptionHandler struct {
	BaseHandler
	exceptions intake.ExceptionRepository
}

// NewExceptionHandler creates a new ExceptionHandler
func NewExceptionHandler(exceptions intake.ExceptionRepository) *ExceptionHandler {
	return &ExceptionHandler{
		exceptions: exceptions,
	}
}

// ResolveExceptionRequest represents a request to resolve an exception
type ResolveExceptionRequest struct {
	ResolvedBy string `json:"resolved_by" binding:"required,uuid"`
	Resolution string `json:"resolution" binding:"required,min=1,max=1000"`
}

// List godoc
// @ID           listExceptions
// @Summary      List unresolved exceptions
// @Description  Returns unresolved exceptions oldest first
// @Tags         exceptions
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]intake.ExceptionRecord]
// @Router       /intake/exceptions [get]
func (h *ExceptionHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	page, err := h.exceptions.FindUnresolved(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// @ID           getException
// @Summary      Get an exception record
// @Tags         exceptions
// @Produce      json
// @Param        id path string true "Exception ID"
// @Success      200 {object} APIResponse[intake.ExceptionRecord]
// @Failure      404 {object} ErrorResponse
// @Router       /intake/exceptions/{id} [get]
func (h *ExceptionHandler) Get(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid exception ID")
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid exception ID")
		return
	}

	record, err := h.exceptions.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// Resolve godoc
// @ID           resolveException
// @Summary      Resolve an exception record
// @Description  Marks the work item resolved; resolving twice is rejected
// @Tags         exceptions
// @Accept       json
// @Produce      json
// @Param        id path string true "Exception ID"
// @Param        request body ResolveExceptionRequest true "Resolution details"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /intake/exceptions/{id}/resolve [post]
func (h *ExceptionHandler) Resolve(c *gin.Context) {
	var uriReq dto.IDRequest
	if err := c.ShouldBindUri(&uriReq); err != nil {
		h.BadRequest(c, "Invalid exception ID")
		return
	}

	id, err := uuid.Parse(uriReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid exception ID")
		return
	}

	var req ResolveExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resolvedBy, err := uuid.Parse(req.ResolvedBy)
	if err != nil {
		h.BadRequest(c, "Invalid resolver ID")
		return
	}

	record, err := h.exceptions.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := record.Resolve(resolvedBy, req.Resolution); err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.exceptions.Save(c.Request.Context(), record); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
