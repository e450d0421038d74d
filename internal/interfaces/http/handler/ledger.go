package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/pos/backend/internal/application/ledger"
)

// LedgerHandler exposes the server ledger API: transaction ingestion,
// till lifecycle, and the master catalog.
type LedgerHandler struct {
	BaseHandler
	service *ledgerapp.Service
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service *ledgerapp.Service) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes mounts the ledger API
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/transactions", h.SubmitTransaction)

	tills := rg.Group("/tills")
	{
		tills.POST("/open", h.OpenTill)
		tills.GET("/active", h.ListActiveTills)
		tills.GET("/:id", h.GetTill)
		tills.POST("/:id/close", h.CloseTill)
	}

	catalog := rg.Group("/catalog")
	{
		catalog.GET("/products", h.ListProducts)
		catalog.GET("/categories", h.ListCategories)
	}
}

// SubmitTransaction ingests one captured sale. A resubmission of an
// already-admitted key answers 200 with the original identity; a first
// admission answers 201. Both are successes to the terminal.
func (h *LedgerHandler) SubmitTransaction(c *gin.Context) {
	var req SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.service.IngestTransaction(c.Request.Context(), req.toTransaction())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := IngestResponse{
		ID:        result.Entry.ID,
		Key:       result.Entry.Key,
		Duplicate: result.Duplicate,
	}
	if result.Duplicate {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// OpenTill opens a till session, converging on the existing open session
// for the same staff member and location.
func (h *LedgerHandler) OpenTill(c *gin.Context) {
	var req OpenTillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	session, err := h.service.OpenTill(c.Request.Context(), ledgerapp.OpenTillParams{
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

// CloseTill closes a till session. Repeats return the stored summary.
func (h *LedgerHandler) CloseTill(c *gin.Context) {
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

	summary, err := h.service.CloseTill(c.Request.Context(), tillID, req.TenderCounts, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GetTill returns one till session
func (h *LedgerHandler) GetTill(c *gin.Context) {
	tillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid till ID")
		return
	}

	session, err := h.service.FindTill(c.Request.Context(), tillID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tillResponseFrom(session))
}

// ListActiveTills returns open and suspended till sessions
func (h *LedgerHandler) ListActiveTills(c *gin.Context) {
	sessions, err := h.service.ListActiveTills(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tillResponsesFrom(sessions))
}

// ListProducts returns the master product catalog
func (h *LedgerHandler) ListProducts(c *gin.Context) {
	products, err := h.service.ListProducts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, productResponsesFrom(products))
}

// ListCategories returns the master category set
func (h *LedgerHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categoryResponsesFrom(categories))
}
