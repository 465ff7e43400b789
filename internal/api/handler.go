package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"consignment-service/internal/models"
	"consignment-service/internal/service"
	"consignment-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers. It is a thin wrapper: all engine rules
// live in the services.
type Handler struct {
	ledger     *service.LedgerService
	settlement *service.SettlementService
	finance    *service.FinanceService
}

// NewHandler creates a new HTTP handler
func NewHandler(ledger *service.LedgerService, settlement *service.SettlementService, finance *service.FinanceService) *Handler {
	return &Handler{
		ledger:     ledger,
		settlement: settlement,
		finance:    finance,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/dashboard", h.getDashboard)
		api.GET("/inventory", h.getInventory)
		api.GET("/financial-summary", h.financialSummary)

		api.GET("/transactions", h.listTransactions)
		api.POST("/transactions", h.submitTransaction)
		api.DELETE("/transactions/:id", h.deleteTransaction)

		api.GET("/pending-transactions", h.listPending)
		api.POST("/pending-transactions/:id/accept", h.acceptPending)
		api.POST("/pending-transactions/:id/reject", h.rejectPending)

		api.GET("/consignees", h.listConsignees)
		api.POST("/consignees/:name/pay", h.markPaid)
		api.POST("/consignees/:name/partial-pay", h.partialPay)
		api.GET("/consignees/:name/payments", h.paymentHistory)
		api.POST("/consignment/bulk", h.bulkConsignment)

		api.GET("/transaction-history", h.auditTrail)
		api.GET("/export", h.export)
		api.GET("/settings", h.getSettings)
		api.PUT("/settings", h.updateSettings)
		api.POST("/reset", h.reset)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps engine conditions to HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrExceedsDebt):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
	}
}

func (h *Handler) getDashboard(c *gin.Context) {
	dash, err := h.finance.GetDashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

func (h *Handler) getInventory(c *gin.Context) {
	counts, err := h.ledger.GetInventory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) financialSummary(c *gin.Context) {
	summary, err := h.finance.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) listTransactions(c *gin.Context) {
	txns, err := h.ledger.ListTransactions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *Handler) submitTransaction(c *gin.Context) {
	var req service.SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	switch req.Type {
	case models.TxTypeDirectSale, models.TxTypePersonalUse, models.TxTypeConsignment:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown transaction type"})
		return
	}
	if req.Type == models.TxTypeConsignment && strings.TrimSpace(req.Consignee) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Consignee is required for consignment transactions"})
		return
	}

	pending, err := h.ledger.SubmitTransaction(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Transaction created and pending approval",
		"transaction": pending,
	})
}

func (h *Handler) deleteTransaction(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	restored, err := h.ledger.DeleteTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Transaction deleted and inventory restored",
		"restored": restored,
	})
}

func (h *Handler) listPending(c *gin.Context) {
	pending, err := h.ledger.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *Handler) acceptPending(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	txn, err := h.ledger.AcceptPending(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Transaction accepted",
		"transaction": txn,
	})
}

func (h *Handler) rejectPending(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	if err := h.ledger.RejectPending(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction rejected and deleted"})
}

func (h *Handler) listConsignees(c *gin.Context) {
	summary, err := h.settlement.ListConsigneeDebts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) markPaid(c *gin.Context) {
	name := c.Param("name")
	if err := h.settlement.MarkPaid(c.Request.Context(), name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": name + " marked as paid"})
}

func (h *Handler) partialPay(c *gin.Context) {
	name := c.Param("name")

	var req service.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	record, err := h.settlement.Pay(c.Request.Context(), name, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Partial payment recorded for " + name,
		"remaining_debt": record.RemainingDebt,
		"payment_record": record,
	})
}

func (h *Handler) paymentHistory(c *gin.Context) {
	history, err := h.settlement.PaymentHistory(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) bulkConsignment(c *gin.Context) {
	var req service.BulkConsignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Consignee) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Consignee name is required"})
		return
	}

	result, err := h.ledger.BulkConsignment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Bulk consignment added for " + req.Consignee,
		"items":   result.Items,
		"total":   result.Total,
	})
}

func (h *Handler) auditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	query := service.AuditTrailQuery{
		EventType: c.Query("event_type"),
		Consignee: c.Query("consignee"),
		Limit:     limit,
	}

	events, err := h.finance.AuditTrail(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) export(c *gin.Context) {
	data, err := h.finance.ExportCSV(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="consignment_report.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *Handler) getSettings(c *gin.Context) {
	settings, err := h.ledger.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) updateSettings(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.ledger.UpdateSettings(c.Request.Context(), settings); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully", "settings": settings})
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.ledger.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "State reset successfully"})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
