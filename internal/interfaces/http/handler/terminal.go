package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogapp "github.com/pos/backend/internal/application/catalog"
	syncapp "github.com/pos/backend/internal/application/sync"
	tillapp "github.com/pos/backend/internal/application/till"
	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/infrastructure/connectivity"
)

// TerminalHandler exposes the register's local API: sale capture, till
// lifecycle, the sync queue, and the cached catalog. It binds to loopback
// and serves the register UI.
type TerminalHandler struct {
	BaseHandler
	tills        *tillapp.Service
	catalog      *catalogapp.Service
	engine       *syncapp.Engine
	monitor      *connectivity.Monitor
	transactions sale.TransactionRepository
}

// NewTerminalHandler creates a new TerminalHandler
func NewTerminalHandler(
	tills *tillapp.Service,
	catalog *catalogapp.Service,
	engine *syncapp.Engine,
	monitor *connectivity.Monitor,
	transactions sale.TransactionRepository,
) *TerminalHandler {
	return &TerminalHandler{
		tills:        tills,
		catalog:      catalog,
		engine:       engine,
		monitor:      monitor,
		transactions: transactions,
	}
}

// RegisterRoutes mounts the register's local API
func (h *TerminalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sales := rg.Group("/sales")
	{
		sales.POST("", h.RecordSale)
		sales.POST("/hold", h.HoldSale)
		sales.POST("/:id/complete", h.CompleteHeldSale)
	}

	tills := rg.Group("/tills")
	{
		tills.POST("/open", h.OpenTill)
		tills.GET("/active", h.ListActiveTills)
		tills.POST("/:id/close", h.CloseTill)
		tills.POST("/:id/suspend", h.SuspendTill)
		tills.POST("/:id/reactivate", h.ReactivateTill)
	}

	syncGroup := rg.Group("/sync")
	{
		syncGroup.POST("", h.SyncNow)
		syncGroup.GET("/status", h.SyncStatus)
	}

	conn := rg.Group("/connectivity")
	{
		conn.POST("/online", h.ReportOnline)
		conn.POST("/offline", h.ReportOffline)
	}

	catalog := rg.Group("/catalog")
	{
		catalog.POST("/refresh", h.RefreshCatalog)
		catalog.GET("/products", h.ListProducts)
		catalog.GET("/categories", h.ListCategories)
	}
}

// RecordSaleRequest captures a completed sale at the register
type RecordSaleRequest struct {
	TillID         uuid.UUID            `json:"till_id" binding:"required"`
	ExternalID     string               `json:"external_id"`
	Items          []ItemInput          `json:"items" binding:"required,dive"`
	Tax            decimal.Decimal      `json:"tax" binding:"dgte0"`
	Discount       decimal.Decimal      `json:"discount" binding:"dgte0"`
	TenderPayments []TenderPaymentInput `json:"tender_payments"`
	TenderType     string               `json:"tender_type"`
	AmountPaid     decimal.Decimal      `json:"amount_paid" binding:"dgte0"`
}

func (r RecordSaleRequest) items() ([]sale.Item, error) {
	items := make([]sale.Item, len(r.Items))
	for i, in := range r.Items {
		item, err := sale.NewItem(in.ProductID, in.Name, in.Quantity, in.UnitPrice)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

func (r RecordSaleRequest) tenderPayments() []sale.TenderPayment {
	tenders := make([]sale.TenderPayment, len(r.TenderPayments))
	for i, p := range r.TenderPayments {
		tenders[i] = sale.TenderPayment{
			TenderID:   p.TenderID,
			TenderName: p.TenderName,
			Amount:     p.Amount,
		}
	}
	return tenders
}

// RecordSale captures a completed sale against an open till
func (h *TerminalHandler) RecordSale(c *gin.Context) {
	var req RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	items, err := req.items()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	tx, err := h.tills.RecordSale(c.Request.Context(), tillapp.RecordSaleParams{
		TillID:         req.TillID,
		ExternalID:     req.ExternalID,
		Items:          items,
		Tax:            req.Tax,
		Discount:       req.Discount,
		TenderPayments: req.tenderPayments(),
		TenderType:     req.TenderType,
		AmountPaid:     req.AmountPaid,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, transactionResponseFrom(tx))
}

// HoldSaleRequest parks a sale without payment
type HoldSaleRequest struct {
	TillID uuid.UUID   `json:"till_id" binding:"required"`
	Items  []ItemInput `json:"items" binding:"required,dive"`
}

// HoldSale parks an in-progress sale so the next customer can be served
func (h *TerminalHandler) HoldSale(c *gin.Context) {
	var req HoldSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	items, err := RecordSaleRequest{Items: req.Items}.items()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	tx, err := h.tills.HoldSale(c.Request.Context(), req.TillID, items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, transactionResponseFrom(tx))
}

// CompleteSaleRequest resumes a held sale with payment
type CompleteSaleRequest struct {
	TenderPayments []TenderPaymentInput `json:"tender_payments"`
	TenderType     string               `json:"tender_type"`
	AmountPaid     decimal.Decimal      `json:"amount_paid"`
}

// CompleteHeldSale completes a held sale once payment is confirmed
func (h *TerminalHandler) CompleteHeldSale(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	var req CompleteSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tx, err := h.tills.CompleteHeldSale(c.Request.Context(), txID,
		RecordSaleRequest{TenderPayments: req.TenderPayments}.tenderPayments(),
		req.TenderType, req.AmountPaid)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, transactionResponseFrom(tx))
}

// OpenTill opens a till session for a shift
func (h *TerminalHandler) OpenTill(c *gin.Context) {
	var req OpenTillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	session, err := h.tills.Open(c.Request.Context(), tillapp.OpenParams{
		StoreID:        req.StoreID,
		LocationID:     req.LocationID,
		StaffID:        req.StaffID,
		StaffName:      req.StaffName,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tillResponseFrom(session))
}

// CloseTill closes a till session, answering 422 PENDING_SYNC while the
// till still has queued transactions.
func (h *TerminalHandler) CloseTill(c *gin.Context) {
	tillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid till ID")
		return
	}

	var req CloseTillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	summary, err := h.tills.Close(c.Request.Context(), tillID, req.TenderCounts, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// SuspendTill administratively parks an open till
func (h *TerminalHandler) SuspendTill(c *gin.Context) {
	tillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid till ID")
		return
	}
	session, err := h.tills.Suspend(c.Request.Context(), tillID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tillResponseFrom(session))
}

// ReactivateTill returns a suspended till to service
func (h *TerminalHandler) ReactivateTill(c *gin.Context) {
	tillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid till ID")
		return
	}
	session, err := h.tills.Reactivate(c.Request.Context(), tillID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tillResponseFrom(session))
}

// ListActiveTills returns the register's open and suspended tills
func (h *TerminalHandler) ListActiveTills(c *gin.Context) {
	sessions, err := h.tills.ListActive(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tillResponsesFrom(sessions))
}

// SyncReportResponse is the outcome of one sync pass on the wire
type SyncReportResponse struct {
	Skipped           bool `json:"skipped"`
	TillsReattributed int  `json:"tills_reattributed"`
	Synced            int  `json:"synced"`
	Duplicates        int  `json:"duplicates"`
	Invalid           int  `json:"invalid"`
	Failed            int  `json:"failed"`
	ClosesSynced      int  `json:"closes_synced"`
	ClosesDeferred    int  `json:"closes_deferred"`
}

// SyncNow runs a sync pass immediately
func (h *TerminalHandler) SyncNow(c *gin.Context) {
	report, err := h.engine.SyncNow(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SyncReportResponse{
		Skipped:           report.Skipped,
		TillsReattributed: report.TillsReattributed,
		Synced:            report.Synced,
		Duplicates:        report.Duplicates,
		Invalid:           report.Invalid,
		Failed:            report.Failed,
		ClosesSynced:      report.ClosesSynced,
		ClosesDeferred:    report.ClosesDeferred,
	})
}

// SyncStatusResponse reports connectivity and queue depth
type SyncStatusResponse struct {
	Connectivity string `json:"connectivity"`
	QueueDepth   int    `json:"queue_depth"`
}

// SyncStatus reports the link state and how many transactions wait in
// the outbound queue.
func (h *TerminalHandler) SyncStatus(c *gin.Context) {
	queued, err := h.transactions.FindUnsynced(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SyncStatusResponse{
		Connectivity: string(h.monitor.State()),
		QueueDepth:   len(queued),
	})
}

// ReportOnline signals that the ledger link is up. The host environment
// calls this when its network watcher sees the uplink return.
func (h *TerminalHandler) ReportOnline(c *gin.Context) {
	transitioned := h.monitor.ReportOnline()
	h.Success(c, gin.H{"state": string(h.monitor.State()), "transitioned": transitioned})
}

// ReportOffline signals that the ledger link is down
func (h *TerminalHandler) ReportOffline(c *gin.Context) {
	transitioned := h.monitor.ReportOffline()
	h.Success(c, gin.H{"state": string(h.monitor.State()), "transitioned": transitioned})
}

// RefreshCatalog pulls the master catalog into the local cache
func (h *TerminalHandler) RefreshCatalog(c *gin.Context) {
	result, err := h.catalog.Refresh(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"products_received":   result.ProductsReceived,
		"categories_received": result.CategoriesReceived,
	})
}

// ListProducts returns the cached product catalog
func (h *TerminalHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, productResponsesFrom(products))
}

// ListCategories returns the cached category set
func (h *TerminalHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categoryResponsesFrom(categories))
}
