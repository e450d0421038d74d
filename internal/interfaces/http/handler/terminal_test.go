package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	catalogapp "github.com/pos/backend/internal/application/catalog"
	syncapp "github.com/pos/backend/internal/application/sync"
	tillapp "github.com/pos/backend/internal/application/till"
	"github.com/pos/backend/internal/infrastructure/connectivity"
	"github.com/pos/backend/internal/infrastructure/ledgerclient"
	"github.com/pos/backend/internal/infrastructure/localstore"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/router"
)

// newTerminalServer wires a full register against a live in-process
// ledger. The monitor starts offline; tests drive connectivity through
// the local API exactly as the host environment would.
func newTerminalServer(t *testing.T) (*gin.Engine, *connectivity.Monitor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(newLedgerServer(t))
	t.Cleanup(upstream.Close)

	store, err := localstore.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	monitor := connectivity.NewMonitor(nil)
	client := ledgerclient.New(upstream.URL, 0, monitor, nil)

	txs := localstore.NewGormTransactionRepository(store.DB)
	tills := localstore.NewGormTillRepository(store.DB)
	closes := localstore.NewGormPendingCloseRepository(store.DB)
	mappings := localstore.NewGormOpenMappingRepository(store.DB)

	engine := syncapp.NewEngine(txs, tills, closes, mappings, client, nil)
	tillService := tillapp.NewService(tills, txs, closes, client, monitor, engine, decimal.NewFromInt(1000), nil)
	catalogService := catalogapp.NewService(localstore.NewGormCatalogRepository(store.DB), client, nil)

	terminal := handler.NewTerminalHandler(tillService, catalogService, engine, monitor, txs)
	return router.NewTerminalRouter(zap.NewNop(), terminal), monitor
}

func openRegisterTill(t *testing.T, srv *gin.Engine) string {
	t.Helper()
	w, resp := perform(t, srv, http.MethodPost, "/api/v1/tills/open", handler.OpenTillRequest{
		LocationID:     uuid.New(),
		StaffID:        uuid.New(),
		StaffName:      "Yemi",
		OpeningBalance: decimal.NewFromInt(2000),
	})
	require.Equal(t, http.StatusOK, w.Code)
	return resp.Data.(map[string]interface{})["id"].(string)
}

func registerSale(tillID string, amount int64) handler.RecordSaleRequest {
	return handler.RecordSaleRequest{
		TillID: uuid.MustParse(tillID),
		Items: []handler.ItemInput{{
			ProductID: uuid.New(),
			Name:      "Titus Sardines",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(amount),
		}},
		TenderType: "CASH",
		AmountPaid: decimal.NewFromInt(amount),
	}
}

func TestOfflineSaleThenReconnectAndSync(t *testing.T) {
	srv, _ := newTerminalServer(t)

	tillID := openRegisterTill(t, srv)

	w, resp := perform(t, srv, http.MethodPost, "/api/v1/sales", registerSale(tillID, 1200))
	require.Equal(t, http.StatusCreated, w.Code)
	sale := resp.Data.(map[string]interface{})
	assert.Equal(t, false, sale["synced"])

	w, resp = perform(t, srv, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := resp.Data.(map[string]interface{})
	assert.Equal(t, "OFFLINE", status["connectivity"])
	assert.Equal(t, float64(1), status["queue_depth"])

	// The close is refused while the sale waits in the queue.
	w, resp = perform(t, srv, http.MethodPost, "/api/v1/tills/"+tillID+"/close", handler.CloseTillRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PENDING_SYNC", resp.Error.Code)

	// Host signals the uplink is back; an explicit pass drains the queue.
	w, _ = perform(t, srv, http.MethodPost, "/api/v1/connectivity/online", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = perform(t, srv, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), report["synced"])
	assert.Equal(t, float64(1), report["tills_reattributed"], "offline till moved under its server identity")
}

func TestSyncStatusReflectsDrainedQueue(t *testing.T) {
	srv, _ := newTerminalServer(t)

	tillID := openRegisterTill(t, srv)
	w, _ := perform(t, srv, http.MethodPost, "/api/v1/sales", registerSale(tillID, 800))
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = perform(t, srv, http.MethodPost, "/api/v1/connectivity/online", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = perform(t, srv, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := perform(t, srv, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := resp.Data.(map[string]interface{})
	assert.Equal(t, "ONLINE", status["connectivity"])
	assert.Equal(t, float64(0), status["queue_depth"])

	// Re-attribution moved the session under its server identity.
	w, resp = perform(t, srv, http.MethodGet, "/api/v1/tills/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	active := resp.Data.([]interface{})
	require.Len(t, active, 1)
	currentID := active[0].(map[string]interface{})["id"].(string)
	assert.NotEqual(t, tillID, currentID)

	// With the queue drained the close goes through.
	w, resp = perform(t, srv, http.MethodPost, "/api/v1/tills/"+currentID+"/close",
		handler.CloseTillRequest{TenderCounts: map[string]decimal.Decimal{"CASH": decimal.NewFromInt(800)}})
	require.Equal(t, http.StatusOK, w.Code)
	summary := resp.Data.(map[string]interface{})
	assert.NotNil(t, summary["reconciliation"])
}

func TestConnectivitySignals(t *testing.T) {
	srv, monitor := newTerminalServer(t)

	w, resp := perform(t, srv, http.MethodPost, "/api/v1/connectivity/online", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "ONLINE", data["state"])
	assert.Equal(t, true, data["transitioned"])
	assert.True(t, monitor.IsOnline())

	// Repeating the signal is not a transition.
	w, resp = perform(t, srv, http.MethodPost, "/api/v1/connectivity/online", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp.Data.(map[string]interface{})["transitioned"])

	w, resp = perform(t, srv, http.MethodPost, "/api/v1/connectivity/offline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OFFLINE", resp.Data.(map[string]interface{})["state"])
}

func TestHeldSaleOverHTTP(t *testing.T) {
	srv, _ := newTerminalServer(t)
	tillID := openRegisterTill(t, srv)

	w, resp := perform(t, srv, http.MethodPost, "/api/v1/sales/hold", handler.HoldSaleRequest{
		TillID: uuid.MustParse(tillID),
		Items: []handler.ItemInput{{
			ProductID: uuid.New(),
			Name:      "Bournvita",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(3200),
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	held := resp.Data.(map[string]interface{})
	assert.Equal(t, "held", held["status"])

	// Held sales never count against the close.
	w, resp = perform(t, srv, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp.Data.(map[string]interface{})["queue_depth"])

	saleID := held["id"].(string)
	w, resp = perform(t, srv, http.MethodPost, "/api/v1/sales/"+saleID+"/complete", handler.CompleteSaleRequest{
		TenderType: "CASH",
		AmountPaid: decimal.NewFromInt(3200),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", resp.Data.(map[string]interface{})["status"])
}

func TestCatalogRefreshOverHTTP(t *testing.T) {
	srv, _ := newTerminalServer(t)

	// The upstream ledger has an empty master catalog; the refresh still
	// succeeds and the cache stays empty.
	w, resp := perform(t, srv, http.MethodPost, "/api/v1/catalog/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["products_received"])

	w, resp = perform(t, srv, http.MethodGet, "/api/v1/catalog/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Data)
}
