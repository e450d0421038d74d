// Package ledgerclient is the terminal's HTTP client for the server
// ledger. Every call is bounded by the configured request timeout; a call
// that cannot complete reports the link down and the caller leaves its
// record queued.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/till"
)

// StatusReporter receives the outcome of ledger interactions. The
// connectivity monitor implements it.
type StatusReporter interface {
	ReportOnline() bool
	ReportOffline() bool
}

// APIError is a non-2xx answer from the ledger. The status code tells the
// sync engine whether to retry (5xx) or exclude the record (4xx).
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("ledger responded %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsValidation reports whether the ledger rejected the payload itself.
// Retrying a validation failure can never succeed.
func (e *APIError) IsValidation() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Client talks to the ledger API
type Client struct {
	baseURL  string
	http     *http.Client
	reporter StatusReporter
	logger   *zap.Logger
}

// New creates a ledger client. reporter may be nil.
func New(baseURL string, timeout time.Duration, reporter StatusReporter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		reporter: reporter,
		logger:   logger.Named("ledgerclient"),
	}
}

// SubmitTransaction delivers one captured sale. A duplicate answer is a
// success: the ledger holds the record either way.
func (c *Client) SubmitTransaction(ctx context.Context, tx *sale.Transaction) (*SubmitResult, error) {
	payload := transactionPayloadFrom(tx)

	var result SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/transactions", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// OpenTill opens a till session on the ledger. Opening twice for the same
// staff and location converges on the already-open session.
func (c *Client) OpenTill(ctx context.Context, req OpenTillRequest) (*TillInfo, error) {
	var info TillInfo
	if err := c.do(ctx, http.MethodPost, "/api/v1/tills/open", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CloseTill closes a till session on the ledger. Repeats return the
// stored summary.
func (c *Client) CloseTill(ctx context.Context, tillID uuid.UUID, req CloseTillRequest) (*till.ClosingSummary, error) {
	var summary till.ClosingSummary
	path := fmt.Sprintf("/api/v1/tills/%s/close", tillID)
	if err := c.do(ctx, http.MethodPost, path, req, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListActiveTills returns the ledger's open and suspended tills
func (c *Client) ListActiveTills(ctx context.Context) ([]TillInfo, error) {
	var infos []TillInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/tills/active", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// FetchProducts retrieves the master product catalog
func (c *Client) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	var payloads []ProductPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog/products", nil, &payloads); err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(payloads))
	for i, p := range payloads {
		products[i] = catalog.Product{
			ID:         p.ID,
			Name:       p.Name,
			SKU:        p.SKU,
			Barcode:    p.Barcode,
			CategoryID: p.CategoryID,
			Price:      p.Price,
			TaxRate:    p.TaxRate,
			Active:     p.Active,
			UpdatedAt:  p.UpdatedAt,
		}
	}
	return products, nil
}

// FetchCategories retrieves the master category set
func (c *Client) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	var payloads []CategoryPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog/categories", nil, &payloads); err != nil {
		return nil, err
	}
	categories := make([]catalog.Category, len(payloads))
	for i, p := range payloads {
		categories[i] = catalog.Category{
			ID:       p.ID,
			Name:     p.Name,
			ParentID: p.ParentID,
			Position: p.Position,
		}
	}
	return categories, nil
}

// do runs one request/response cycle against the ledger. Transport
// failures mark the link offline; any decoded answer marks it online,
// error responses included, since the server was clearly reachable.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.reportOffline()
		return fmt.Errorf("ledger unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.reportOffline()
		return fmt.Errorf("read response: %w", err)
	}
	c.reportOnline()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func (c *Client) reportOnline() {
	if c.reporter != nil {
		c.reporter.ReportOnline()
	}
}

func (c *Client) reportOffline() {
	if c.reporter != nil {
		c.reporter.ReportOffline()
	}
}

func transactionPayloadFrom(tx *sale.Transaction) TransactionPayload {
	items := make([]ItemPayload, len(tx.Items))
	for i, item := range tx.Items {
		items[i] = ItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    item.Amount,
		}
	}
	tenders := make([]TenderPaymentPayload, len(tx.TenderPayments))
	for i, p := range tx.TenderPayments {
		tenders[i] = TenderPaymentPayload{
			TenderID:   p.TenderID,
			TenderName: p.TenderName,
			Amount:     p.Amount,
		}
	}
	return TransactionPayload{
		TerminalTxID:   tx.ID,
		ExternalID:     tx.ExternalID,
		DedupeKey:      tx.DedupeKey,
		Items:          items,
		Subtotal:       tx.Subtotal,
		Tax:            tx.Tax,
		Discount:       tx.Discount,
		Total:          tx.Total,
		TenderPayments: tenders,
		TenderType:     tx.TenderType,
		AmountPaid:     tx.AmountPaid,
		Change:         tx.Change,
		StaffID:        tx.StaffID,
		StaffName:      tx.StaffName,
		LocationID:     tx.LocationID,
		TillID:         tx.TillID,
		Status:         tx.Status.String(),
		CapturedAt:     tx.CreatedAt,
	}
}
