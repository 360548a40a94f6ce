package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/SscSPs/fleet_settlement_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// paymentBatchHandler handles HTTP requests for payment batches and their payments.
type paymentBatchHandler struct {
	batchService  portssvc.PaymentBatchSvcFacade
	ledgerService portssvc.PaymentLedgerSvcFacade
}

func newPaymentBatchHandler(bs portssvc.PaymentBatchSvcFacade, ls portssvc.PaymentLedgerSvcFacade) *paymentBatchHandler {
	return &paymentBatchHandler{
		batchService:  bs,
		ledgerService: ls,
	}
}

// registerPaymentBatchRoutes registers batch routes. Retry-prone mutations go through idempotency.
func registerPaymentBatchRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer, idempotency gin.HandlerFunc) {
	h := newPaymentBatchHandler(services.PaymentBatch, services.PaymentLedger)

	batches := rg.Group("/payment-batches")
	{
		batches.POST("", h.createBatch)
		batches.GET("", h.listBatches)
		batches.GET("/:batchID", h.getBatch)
		batches.POST("/:batchID/post", idempotency, h.postBatch)
		batches.POST("/:batchID/complete", idempotency, h.completeBatch)
		batches.GET("/:batchID/export", h.exportBatchRemittance)

		batches.GET("/:batchID/payments", h.listBatchPayments)
		batches.POST("/:batchID/payments", idempotency, h.addPayment)
		batches.PUT("/:batchID/payments/:paymentID", h.updatePayment)
		batches.POST("/:batchID/payments/:paymentID/void", h.voidPayment)
	}
}

// createBatch godoc
// @Summary Open a payment batch
// @Tags payment-batches
// @Accept json
// @Produce json
// @Param batch body dto.CreateBatchRequest true "Batch date and period"
// @Success 201 {object} dto.PaymentBatchResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to create batch"
// @Security BearerAuth
// @Router /payment-batches [post]
func (h *paymentBatchHandler) createBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "create batch")
		return
	}
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	batch, err := h.batchService.CreateBatch(c.Request.Context(), req, actorID)
	if err != nil {
		respondWithError(c, logger, err, "create batch")
		return
	}
	logger.Info("Payment batch created", slog.String("batch_id", batch.BatchID))
	c.JSON(http.StatusCreated, dto.ToPaymentBatchResponse(batch))
}

// listBatches godoc
// @Summary List payment batches
// @Tags payment-batches
// @Produce json
// @Param status query string false "Batch status" Enums(DRAFT, POSTED, COMPLETED)
// @Param limit query int false "Page size" default(20)
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListBatchesResponse
// @Failure 400 {object} ErrorResponse "Invalid query parameters"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to list batches"
// @Security BearerAuth
// @Router /payment-batches [get]
func (h *paymentBatchHandler) listBatches(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListBatchesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "list batches")
		return
	}

	resp, err := h.batchService.ListBatches(c.Request.Context(), params)
	if err != nil {
		respondWithError(c, logger, err, "list batches")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getBatch godoc
// @Summary Get a payment batch
// @Tags payment-batches
// @Produce json
// @Param batchID path string true "Batch ID"
// @Success 200 {object} dto.PaymentBatchResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Batch not found"
// @Failure 500 {object} ErrorResponse "Failed to retrieve batch"
// @Security BearerAuth
// @Router /payment-batches/{batchID} [get]
func (h *paymentBatchHandler) getBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	batch, err := h.batchService.GetBatch(c.Request.Context(), c.Param("batchID"))
	if err != nil {
		respondWithError(c, logger, err, "retrieve batch")
		return
	}
	c.JSON(http.StatusOK, dto.ToPaymentBatchResponse(batch))
}

// postBatch godoc
// @Summary Post a payment batch
// @Description Freezes the batch's statement set and advances DRAFT statements to POSTED. Send an Idempotency-Key header to make retries safe.
// @Tags payment-batches
// @Produce json
// @Param batchID path string true "Batch ID"
// @Param Idempotency-Key header string false "Client retry key"
// @Success 200 {object} dto.PaymentBatchResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Batch not found"
// @Failure 409 {object} ErrorResponse "Batch or statement in the wrong status"
// @Failure 500 {object} ErrorResponse "Failed to post batch"
// @Security BearerAuth
// @Router /payment-batches/{batchID}/post [post]
func (h *paymentBatchHandler) postBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	batchID := c.Param("batchID")
	batch, err := h.batchService.PostBatch(c.Request.Context(), batchID, actorID)
	if err != nil {
		respondWithError(c, logger.With(slog.String("batch_id", batchID)), err, "post batch")
		return
	}
	logger.Info("Payment batch posted", slog.String("batch_id", batchID), slog.Int("statements", len(batch.StatementIDs)))
	c.JSON(http.StatusOK, dto.ToPaymentBatchResponse(batch))
}

// completeBatch godoc
// @Summary Complete a payment batch
// @Description Marks fully paid statements PAID and closes the batch
// @Tags payment-batches
// @Produce json
// @Param batchID path string true "Batch ID"
// @Param Idempotency-Key header string false "Client retry key"
// @Success 200 {object} dto.PaymentBatchResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Batch not found"
// @Failure 409 {object} ErrorResponse "Batch is not POSTED"
// @Failure 500 {object} ErrorResponse "Failed to complete batch"
// @Security BearerAuth
// @Router /payment-batches/{batchID}/complete [post]
func (h *paymentBatchHandler) completeBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	batchID := c.Param("batchID")
	batch, err := h.batchService.CompleteBatch(c.Request.Context(), batchID, actorID)
	if err != nil {
		respondWithError(c, logger.With(slog.String("batch_id", batchID)), err, "complete batch")
		return
	}
	logger.Info("Payment batch completed", slog.String("batch_id", batchID))
	c.JSON(http.StatusOK, dto.ToPaymentBatchResponse(batch))
}

// exportBatchRemittance godoc
// @Summary Download the batch remittance workbook
// @Tags payment-batches
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param batchID path string true "Batch ID"
// @Success 200 {file} file
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Batch not found"
// @Failure 500 {object} ErrorResponse "Failed to export batch"
// @Security BearerAuth
// @Router /payment-batches/{batchID}/export [get]
func (h *paymentBatchHandler) exportBatchRemittance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	batchID := c.Param("batchID")
	content, err := h.batchService.ExportBatchRemittance(c.Request.Context(), batchID)
	if err != nil {
		respondWithError(c, logger, err, "export batch")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="remittance-%s.xlsx"`, batchID))
	c.Data(http.StatusOK, xlsxContentType, content)
}

// listBatchPayments godoc
// @Summary List payments in a batch
// @Tags payment-batches
// @Produce json
// @Param batchID path string true "Batch ID"
// @Success 200 {array} dto.StatementPaymentResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Batch not found"
// @Failure 500 {object} ErrorResponse "Failed to list payments"
// @Security BearerAuth
// @Router /payment-batches/{batchID}/payments [get]
func (h *paymentBatchHandler) listBatchPayments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	rows, err := h.ledgerService.ListPaymentsForBatch(c.Request.Context(), c.Param("batchID"))
	if err != nil {
		respondWithError(c, logger, err, "list payments")
		return
	}
	c.JSON(http.StatusOK, dto.ToStatementPaymentResponses(rows))
}

// addPayment godoc
// @Summary Record a payment against a statement
// @Description Adds the payment to a DRAFT batch and recomputes the statement's paid amount and net due
// @Tags payment-batches
// @Accept json
// @Produce json
// @Param batchID path string true "Batch ID"
// @Param Idempotency-Key header string false "Client retry key"
// @Param payment body dto.AddPaymentRequest true "Payment details"
// @Success 201 {object} dto.PaymentResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Batch or statement not found"
// @Failure 409 {object} ErrorResponse "Batch or statement in the wrong status"
// @Failure 500 {object} ErrorResponse "Failed to add payment"
// @Security BearerAuth
// @Router /payment-batches/{batchID}/payments [post]
func (h *paymentBatchHandler) addPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "add payment")
		return
	}
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	batchID := c.Param("batchID")
	logger = logger.With(slog.String("batch_id", batchID), slog.String("statement_id", req.StatementID))
	payment, err := h.ledgerService.AddPayment(c.Request.Context(), batchID, req, actorID)
	if err != nil {
		respondWithError(c, logger, err, "add payment")
		return
	}
	logger.Info("Payment added", slog.String("payment_id", payment.PaymentID), slog.String("amount", payment.Amount.StringFixed(2)))
	c.JSON(http.StatusCreated, dto.ToPaymentResponse(payment))
}

// updatePayment godoc
// @Summary Edit a payment in a DRAFT batch
// @Tags payment-batches
// @Accept json
// @Produce json
// @Param batchID path string true "Batch ID"
// @Param paymentID path string true "Payment ID"
// @Param payment body dto.UpdatePaymentRequest true "Fields to change"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Payment not found"
// @Failure 409 {object} ErrorResponse "Batch is not DRAFT"
// @Failure 500 {object} ErrorResponse "Failed to update payment"
// @Security BearerAuth
// @Router /payment-batches/{batchID}/payments/{paymentID} [put]
func (h *paymentBatchHandler) updatePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "update payment")
		return
	}
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	payment, err := h.ledgerService.UpdatePayment(c.Request.Context(), c.Param("batchID"), c.Param("paymentID"), req, actorID)
	if err != nil {
		respondWithError(c, logger, err, "update payment")
		return
	}
	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// voidPayment godoc
// @Summary Void a payment in a DRAFT batch
// @Tags payment-batches
// @Accept json
// @Produce json
// @Param batchID path string true "Batch ID"
// @Param paymentID path string true "Payment ID"
// @Param void body dto.VoidPaymentRequest true "Void reason"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} ErrorResponse "Reason missing"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Payment not found"
// @Failure 409 {object} ErrorResponse "Batch is not DRAFT or payment already voided"
// @Failure 500 {object} ErrorResponse "Failed to void payment"
// @Security BearerAuth
// @Router /payment-batches/{batchID}/payments/{paymentID}/void [post]
func (h *paymentBatchHandler) voidPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.VoidPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "void payment")
		return
	}
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	payment, err := h.ledgerService.VoidPayment(c.Request.Context(), c.Param("batchID"), c.Param("paymentID"), req.Reason, actorID)
	if err != nil {
		respondWithError(c, logger, err, "void payment")
		return
	}
	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}
