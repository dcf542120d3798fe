package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IntakeService is the pipeline surface the HTTP layer depends on
type IntakeService interface {
	Intake(ctx context.Context, req intakeapp.UploadRequest) (*intakeapp.UploadResult, error)
	ResumeFromReview(ctx context.Context, transactionID uuid.UUID, approve bool, note string) (*intakeapp.UploadResult, error)
}

// IntakeHandler handles document upload and transaction query endpoints
type IntakeHandler struct {
	BaseHandler
	service       IntakeService
	transactions  intake.TransactionRepository
	auditLog      intake.StateChangeRepository
	rawDocs       intake.RawDocumentRepository
	maxUploadSize int64
}

// NewIntakeHandler creates a new IntakeHandler
func NewIntakeHandler(
	service IntakeService,
	transactions intake.TransactionRepository,
	auditLog intake.StateChangeRepository,
	rawDocs intake.RawDocumentRepository,
	maxUploadSize int64,
) *IntakeHandler {
	return &IntakeHandler{
		service:       service,
		transactions:  transactions,
		auditLog:      auditLog,
		rawDocs:       rawDocs,
		maxUploadSize: maxUploadSize,
	}
}

// UploadDocumentForm represents the multipart fields accompanying an upload
type UploadDocumentForm struct {
	SourceID      string `form:"source_id" binding:"required,min=1,max=100"`
	DeclaredLines int    `form:"declared_lines" binding:"omitempty,min=0"`
	Category      string `form:"category" binding:"omitempty,oneof=bank_statement invoice pos_report other"`
}

// ListTransactionsRequest represents transaction list query parameters
type ListTransactionsRequest struct {
	dto.ListRequest
	SourceID string `form:"source_id"`
	Status   string `form:"status"`
}

// ReviewRequest represents a manual review decision
type ReviewRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note" binding:"max=1000"`
}

// Upload godoc
// @ID           uploadDocument
// @Summary      Upload a document for intake
// @Description  Runs an uploaded document through the checkpointed intake pipeline
// @Tags         intake
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Document file"
// @Param        source_id formData string true "Originating source ID"
// @Param        declared_lines formData int false "Line count declared by the source"
// @Param        category formData string false "Caller-declared document category"
// @Success      201 {object} APIResponse[intakeapp.UploadResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /intake/documents [post]
func (h *IntakeHandler) Upload(c *gin.Context) {
	var form UploadDocumentForm
	if err := c.ShouldBind(&form); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file field")
		return
	}
	if h.maxUploadSize > 0 && fileHeader.Size > h.maxUploadSize {
		h.PayloadTooLarge(c, fmt.Sprintf("File exceeds the %d byte upload limit", h.maxUploadSize))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.InternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.InternalError(c, "Failed to read uploaded file")
		return
	}

	req := intakeapp.UploadRequest{
		SourceID:      form.SourceID,
		FileName:      fileHeader.Filename,
		Content:       content,
		DeclaredLines: form.DeclaredLines,
	}
	if form.Category != "" {
		category := intake.DocumentCategory(form.Category)
		req.Category = &category
	}

	result, err := h.service.Intake(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondWithResult(c, result, http.StatusCreated)
}

// GetTransaction godoc
// @ID           getTransaction
// @Summary      Get an upload transaction
// @Tags         intake
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} APIResponse[intake.UploadTransaction]
// @Failure      404 {object} ErrorResponse
// @Router       /intake/transactions/{id} [get]
func (h *IntakeHandler) GetTransaction(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.transactions.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// ListTransactions godoc
// @ID           listTransactions
// @Summary      List upload transactions
// @Tags         intake
// @Produce      json
// @Param        source_id query string false "Filter by source ID"
// @Param        status query string false "Filter by transaction status"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]intake.UploadTransaction]
// @Router       /intake/transactions [get]
func (h *IntakeHandler) ListTransactions(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	var filter intake.TransactionFilter
	if req.SourceID != "" {
		filter.SourceID = &req.SourceID
	}
	if req.Status != "" {
		status := intake.TransactionStatus(req.Status)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid status filter")
			return
		}
		filter.Status = &status
	}

	page, err := h.transactions.FindAll(c.Request.Context(), filter, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetHistory godoc
// @ID           getTransactionHistory
// @Summary      Get a transaction's audit trail
// @Description  Returns the append-only state change log ordered by sequence
// @Tags         intake
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} APIResponse[[]intake.StateChangeEntry]
// @Failure      404 {object} ErrorResponse
// @Router       /intake/transactions/{id}/history [get]
func (h *IntakeHandler) GetHistory(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	if _, err := h.transactions.FindByID(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	history, err := h.auditLog.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, history)
}

// GetReconciliation godoc
// @ID           getTransactionReconciliation
// @Summary      Get a transaction's line-count reconciliation record
// @Tags         intake
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} APIResponse[intake.RawDocumentRecord]
// @Failure      404 {object} ErrorResponse
// @Router       /intake/transactions/{id}/reconciliation [get]
func (h *IntakeHandler) GetReconciliation(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	record, err := h.rawDocs.FindByTransactionID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// Review godoc
// @ID           reviewTransaction
// @Summary      Resolve a transaction held for manual review
// @Description  Approving re-runs the pipeline from the parse stage; rejecting fails the transaction
// @Tags         intake
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Param        request body ReviewRequest true "Review decision"
// @Success      200 {object} APIResponse[intakeapp.UploadResult]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /intake/transactions/{id}/review [post]
func (h *IntakeHandler) Review(c *gin.Context) {
	var uriReq dto.IDRequest
	if err := c.ShouldBindUri(&uriReq); err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	id, err := uuid.Parse(uriReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ResumeFromReview(c.Request.Context(), id, *req.Approve, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondWithResult(c, result, http.StatusOK)
}

// respondWithResult maps a pipeline outcome to an HTTP response. The result
// payload rides along even on the failure statuses so callers get the
// duplicate pointers and retry hints machine-readably.
func (h *IntakeHandler) respondWithResult(c *gin.Context, result *intakeapp.UploadResult, successStatus int) {
	if result.RetryAfter != "" {
		c.Header("Retry-After", result.RetryAfter)
	}

	if result.ReasonCode != nil {
		switch *result.ReasonCode {
		case intake.ReasonDuplicateContent:
			resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeDuplicateContent, result.Reason, getRequestID(c))
			resp.Data = result
			c.JSON(http.StatusConflict, resp)
			return
		case intake.ReasonSourceCircuitOpen:
			resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeSourceUnavailable, result.Reason, getRequestID(c))
			resp.Data = result
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}

	c.JSON(successStatus, dto.NewSuccessResponse(result))
}
