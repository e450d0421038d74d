package ledgerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/infrastructure/connectivity"
)

func capturedSale(t *testing.T) *sale.Transaction {
	t.Helper()
	item, err := sale.NewItem(uuid.New(), "Milk", decimal.NewFromInt(1), decimal.NewFromInt(1200))
	require.NoError(t, err)

	tx, err := sale.NewTransaction(sale.NewTransactionParams{
		Items:      []sale.Item{item},
		TenderType: "CASH",
		AmountPaid: decimal.NewFromInt(1200),
		StaffID:    uuid.New(),
		StaffName:  "Ngozi",
		LocationID: uuid.New(),
		TillID:     uuid.New(),
	})
	require.NoError(t, err)
	return tx
}

func respond(t *testing.T, w http.ResponseWriter, status int, body map[string]interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClient_SubmitTransaction(t *testing.T) {
	serverID := uuid.New()
	var received TransactionPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		respond(t, w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": serverID, "duplicate": false},
		})
	}))
	defer srv.Close()

	tx := capturedSale(t)
	client := New(srv.URL, time.Second, nil, nil)

	result, err := client.SubmitTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, serverID, result.ServerID)
	assert.False(t, result.Duplicate)
	assert.Equal(t, tx.ID, received.TerminalTxID)
	assert.Equal(t, tx.DedupeKey, received.DedupeKey)
	require.Len(t, received.Items, 1)
	assert.Equal(t, "Milk", received.Items[0].Name)
}

func TestClient_SubmitTransaction_DuplicateIsSuccess(t *testing.T) {
	serverID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": serverID, "duplicate": true},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil, nil)
	result, err := client.SubmitTransaction(context.Background(), capturedSale(t))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, serverID, result.ServerID)
}

func TestClient_SubmitTransaction_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "MISSING_STAFF", "message": "Transaction is missing staff identity"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil, nil)
	_, err := client.SubmitTransaction(context.Background(), capturedSale(t))
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsValidation())
	assert.Equal(t, "MISSING_STAFF", apiErr.Code)
}

func TestClient_ServerErrorIsNotValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "INTERNAL_ERROR", "message": "boom"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil, nil)
	_, err := client.SubmitTransaction(context.Background(), capturedSale(t))
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.False(t, apiErr.IsValidation())
}

func TestClient_ReportsConnectivity(t *testing.T) {
	monitor := connectivity.NewMonitor(nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusOK, map[string]interface{}{"success": true})
	}))

	client := New(srv.URL, time.Second, monitor, nil)

	_, err := client.ListActiveTills(context.Background())
	require.NoError(t, err)
	assert.True(t, monitor.IsOnline())

	srv.Close()

	_, err = client.ListActiveTills(context.Background())
	require.Error(t, err)
	assert.False(t, monitor.IsOnline())
}

func TestClient_OpenAndCloseTill(t *testing.T) {
	tillID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/tills/open":
			var req OpenTillRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			respond(t, w, http.StatusCreated, map[string]interface{}{
				"success": true,
				"data": map[string]interface{}{
					"id":              tillID,
					"staff_id":        req.StaffID,
					"location_id":     req.LocationID,
					"staff_name":      req.StaffName,
					"opening_balance": req.OpeningBalance,
					"status":          "OPEN",
				},
			})
		case "/api/v1/tills/" + tillID.String() + "/close":
			respond(t, w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data": map[string]interface{}{
					"till_id":     tillID,
					"total_sales": "4500",
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil, nil)

	info, err := client.OpenTill(context.Background(), OpenTillRequest{
		LocationID:     uuid.New(),
		StaffID:        uuid.New(),
		StaffName:      "Ngozi",
		OpeningBalance: decimal.NewFromInt(5000),
	})
	require.NoError(t, err)
	assert.Equal(t, tillID, info.ID)
	assert.Equal(t, "OPEN", info.Status)

	summary, err := client.CloseTill(context.Background(), tillID, CloseTillRequest{
		TenderCounts: map[string]decimal.Decimal{"CASH": decimal.NewFromInt(9500)},
	})
	require.NoError(t, err)
	assert.Equal(t, tillID, summary.TillID)
	assert.True(t, summary.TotalSales.Equal(decimal.NewFromInt(4500)))
}

func TestClient_FetchCatalog(t *testing.T) {
	productID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/catalog/products":
			respond(t, w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data": []map[string]interface{}{
					{"id": productID, "name": "Milk", "price": "1200", "active": true},
				},
			})
		case "/api/v1/catalog/categories":
			respond(t, w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data": []map[string]interface{}{
					{"id": uuid.New(), "name": "Dairy", "position": 1},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil, nil)

	products, err := client.FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, productID, products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(1200)))

	categories, err := client.FetchCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Dairy", categories[0].Name)
}
