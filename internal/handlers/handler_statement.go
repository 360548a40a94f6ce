package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/SscSPs/fleet_settlement_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// statementHandler handles HTTP requests related to statements.
type statementHandler struct {
	statementService portssvc.StatementSvcFacade
	auditService     portssvc.AuditTrailSvc
	ledgerService    portssvc.PaymentLedgerSvcFacade
}

func newStatementHandler(ss portssvc.StatementSvcFacade, as portssvc.AuditTrailSvc, ls portssvc.PaymentLedgerSvcFacade) *statementHandler {
	return &statementHandler{
		statementService: ss,
		auditService:     as,
		ledgerService:    ls,
	}
}

// registerStatementRoutes registers routes related to statements.
func registerStatementRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := newStatementHandler(services.Statement, services.AuditTrail, services.PaymentLedger)

	statements := rg.Group("/statements")
	{
		statements.POST("/drafts", h.generateDraft)
		statements.POST("", h.finalizeStatement)
		statements.GET("", h.listStatementsForPeriod)
		statements.GET("/:statementID", h.getStatement)
		statements.PUT("/:statementID/totals", h.updateStatementTotals)
		statements.POST("/:statementID/recalculate", h.recalculateStatement)
		statements.POST("/:statementID/post", h.postStatement)
		statements.POST("/:statementID/lock", h.lockStatement)
		statements.POST("/:statementID/recall", h.recallStatement)
		statements.GET("/:statementID/history", h.getStatementHistory)
		statements.GET("/:statementID/payments", h.listStatementPayments)
	}

	rg.GET("/persons/:personID/statements", h.listStatementsForPerson)
}

// generateDraft godoc
// @Summary Generate a draft statement
// @Description Returns the stored statement for the exact period, or computes an unsaved draft from the carry-forward balance and the period's ledger totals
// @Tags statements
// @Accept json
// @Produce json
// @Param statement body dto.GenerateStatementRequest true "Person and period"
// @Success 200 {object} dto.StatementResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to generate statement"
// @Security BearerAuth
// @Router /statements/drafts [post]
func (h *statementHandler) generateDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.GenerateStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "generate statement")
		return
	}

	statement, err := h.statementService.GenerateDraft(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, logger, err, "generate statement")
		return
	}
	c.JSON(http.StatusOK, dto.ToStatementResponse(statement))
}

// finalizeStatement godoc
// @Summary Finalize a statement
// @Description Persists the period's statement as DRAFT, or LOCKED when lock is set
// @Tags statements
// @Accept json
// @Produce json
// @Param statement body dto.FinalizeStatementRequest true "Person, period and lock flag"
// @Success 201 {object} dto.StatementResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 409 {object} ErrorResponse "Statement already exists or overlaps another period"
// @Failure 500 {object} ErrorResponse "Failed to finalize statement"
// @Security BearerAuth
// @Router /statements [post]
func (h *statementHandler) finalizeStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.FinalizeStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "finalize statement")
		return
	}
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	logger.Info("Received request to finalize statement",
		slog.String("person_id", req.PersonID),
		slog.String("period_from", req.PeriodFrom.String()),
		slog.String("period_to", req.PeriodTo.String()),
		slog.Bool("lock", req.Lock))

	statement, err := h.statementService.FinalizeStatement(c.Request.Context(), req, actorID)
	if err != nil {
		respondWithError(c, logger, err, "finalize statement")
		return
	}

	logger.Info("Statement finalized", slog.String("statement_id", statement.StatementID), slog.String("status", string(statement.Status)))
	c.JSON(http.StatusCreated, dto.ToStatementResponse(statement))
}

// getStatement godoc
// @Summary Get a statement
// @Tags statements
// @Produce json
// @Param statementID path string true "Statement ID"
// @Success 200 {object} dto.StatementResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Statement not found"
// @Failure 500 {object} ErrorResponse "Failed to retrieve statement"
// @Security BearerAuth
// @Router /statements/{statementID} [get]
func (h *statementHandler) getStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	statement, err := h.statementService.GetStatement(c.Request.Context(), c.Param("statementID"))
	if err != nil {
		respondWithError(c, logger, err, "retrieve statement")
		return
	}
	c.JSON(http.StatusOK, dto.ToStatementResponse(statement))
}

// listStatementsForPerson godoc
// @Summary List a person's statements
// @Tags statements
// @Produce json
// @Param personID path string true "Driver or owner ID"
// @Param status query string false "Statement status" Enums(DRAFT, POSTED, LOCKED, PAID)
// @Param limit query int false "Page size" default(20)
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListStatementsResponse
// @Failure 400 {object} ErrorResponse "Invalid query parameters"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to list statements"
// @Security BearerAuth
// @Router /persons/{personID}/statements [get]
func (h *statementHandler) listStatementsForPerson(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListPersonStatementsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "list statements")
		return
	}

	resp, err := h.statementService.ListStatementsForPerson(c.Request.Context(), c.Param("personID"), params)
	if err != nil {
		respondWithError(c, logger, err, "list statements")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listStatementsForPeriod godoc
// @Summary List statements overlapping a period
// @Tags statements
// @Produce json
// @Param periodFrom query string true "Period start (YYYY-MM-DD)"
// @Param periodTo query string true "Period end (YYYY-MM-DD)"
// @Param status query string false "Statement status" Enums(DRAFT, POSTED, LOCKED, PAID)
// @Param limit query int false "Page size" default(20)
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListStatementsResponse
// @Failure 400 {object} ErrorResponse "Invalid query parameters"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to list statements"
// @Security BearerAuth
// @Router /statements [get]
func (h *statementHandler) listStatementsForPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListPeriodStatementsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "list statements")
		return
	}

	resp, err := h.statementService.ListStatementsForPeriod(c.Request.Context(), params)
	if err != nil {
		respondWithError(c, logger, err, "list statements")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// updateStatementTotals godoc
// @Summary Edit the totals of a DRAFT statement
// @Tags statements
// @Accept json
// @Produce json
// @Param statementID path string true "Statement ID"
// @Param totals body dto.UpdateStatementTotalsRequest true "Totals to change"
// @Success 200 {object} dto.StatementResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Statement not found"
// @Failure 409 {object} ErrorResponse "Statement is not DRAFT"
// @Failure 500 {object} ErrorResponse "Failed to update statement"
// @Security BearerAuth
// @Router /statements/{statementID}/totals [put]
func (h *statementHandler) updateStatementTotals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateStatementTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "update statement")
		return
	}
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	statement, err := h.statementService.UpdateStatementTotals(c.Request.Context(), c.Param("statementID"), req, actorID)
	if err != nil {
		respondWithError(c, logger, err, "update statement")
		return
	}
	c.JSON(http.StatusOK, dto.ToStatementResponse(statement))
}

// recalculateStatement godoc
// @Summary Recompute a DRAFT statement
// @Description Re-reads the carry-forward balance and the ledger totals for the statement's period
// @Tags statements
// @Produce json
// @Param statementID path string true "Statement ID"
// @Success 200 {object} dto.StatementResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Statement not found"
// @Failure 409 {object} ErrorResponse "Statement is not DRAFT"
// @Failure 500 {object} ErrorResponse "Failed to recalculate statement"
// @Security BearerAuth
// @Router /statements/{statementID}/recalculate [post]
func (h *statementHandler) recalculateStatement(c *gin.Context) {
	h.transition(c, "recalculate statement", h.statementService.RecalculateStatement)
}

// postStatement godoc
// @Summary Post a DRAFT statement
// @Tags statements
// @Produce json
// @Param statementID path string true "Statement ID"
// @Success 200 {object} dto.StatementResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Statement not found"
// @Failure 409 {object} ErrorResponse "Transition not allowed"
// @Failure 500 {object} ErrorResponse "Failed to post statement"
// @Security BearerAuth
// @Router /statements/{statementID}/post [post]
func (h *statementHandler) postStatement(c *gin.Context) {
	h.transition(c, "post statement", h.statementService.PostStatement)
}

// lockStatement godoc
// @Summary Lock a POSTED statement
// @Tags statements
// @Produce json
// @Param statementID path string true "Statement ID"
// @Success 200 {object} dto.StatementResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Statement not found"
// @Failure 409 {object} ErrorResponse "Transition not allowed"
// @Failure 500 {object} ErrorResponse "Failed to lock statement"
// @Security BearerAuth
// @Router /statements/{statementID}/lock [post]
func (h *statementHandler) lockStatement(c *gin.Context) {
	h.transition(c, "lock statement", h.statementService.LockStatement)
}

// recallStatement godoc
// @Summary Recall a statement one step
// @Description LOCKED goes back to POSTED and POSTED back to DRAFT. A reason is mandatory.
// @Tags statements
// @Accept json
// @Produce json
// @Param statementID path string true "Statement ID"
// @Param recall body dto.RecallStatementRequest true "Recall reason"
// @Success 200 {object} dto.StatementResponse
// @Failure 400 {object} ErrorResponse "Reason missing"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Statement not found"
// @Failure 409 {object} ErrorResponse "Recall not allowed"
// @Failure 500 {object} ErrorResponse "Failed to recall statement"
// @Security BearerAuth
// @Router /statements/{statementID}/recall [post]
func (h *statementHandler) recallStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecallStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "recall statement")
		return
	}
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	statementID := c.Param("statementID")
	statement, err := h.statementService.RecallStatement(c.Request.Context(), statementID, req.Reason, actorID)
	if err != nil {
		respondWithError(c, logger.With(slog.String("statement_id", statementID)), err, "recall statement")
		return
	}
	logger.Info("Statement recalled", slog.String("statement_id", statementID), slog.String("status", string(statement.Status)))
	c.JSON(http.StatusOK, dto.ToStatementResponse(statement))
}

// getStatementHistory godoc
// @Summary Get a statement's audit history
// @Description Entries are returned most recent first
// @Tags statements
// @Produce json
// @Param statementID path string true "Statement ID"
// @Success 200 {array} dto.AuditLogResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Statement not found"
// @Failure 500 {object} ErrorResponse "Failed to retrieve history"
// @Security BearerAuth
// @Router /statements/{statementID}/history [get]
func (h *statementHandler) getStatementHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entries, err := h.auditService.History(c.Request.Context(), c.Param("statementID"))
	if err != nil {
		respondWithError(c, logger, err, "retrieve history")
		return
	}
	c.JSON(http.StatusOK, dto.ToAuditLogResponses(entries))
}

// listStatementPayments godoc
// @Summary List payments recorded against a statement
// @Tags statements
// @Produce json
// @Param statementID path string true "Statement ID"
// @Success 200 {array} dto.StatementPaymentResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Statement not found"
// @Failure 500 {object} ErrorResponse "Failed to list payments"
// @Security BearerAuth
// @Router /statements/{statementID}/payments [get]
func (h *statementHandler) listStatementPayments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	rows, err := h.ledgerService.ListPaymentsForStatement(c.Request.Context(), c.Param("statementID"))
	if err != nil {
		respondWithError(c, logger, err, "list payments")
		return
	}
	c.JSON(http.StatusOK, dto.ToStatementPaymentResponses(rows))
}

type statementTransitionFunc func(ctx context.Context, statementID string, actorID string) (*domain.Statement, error)

// transition runs a body-less statement operation attributed to the caller.
func (h *statementHandler) transition(c *gin.Context, action string, fn statementTransitionFunc) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := requireActor(c, logger)
	if !ok {
		return
	}

	statementID := c.Param("statementID")
	logger = logger.With(slog.String("statement_id", statementID))
	statement, err := fn(c.Request.Context(), statementID, actorID)
	if err != nil {
		respondWithError(c, logger, err, action)
		return
	}
	logger.Info("Statement updated", slog.String("action", action), slog.String("status", string(statement.Status)))
	c.JSON(http.StatusOK, dto.ToStatementResponse(statement))
}
