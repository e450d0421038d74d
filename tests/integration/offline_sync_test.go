package integration

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	ledgerapp "github.com/pos/backend/internal/application/ledger"
	syncapp "github.com/pos/backend/internal/application/sync"
	tillapp "github.com/pos/backend/internal/application/till"
	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/connectivity"
	"github.com/pos/backend/internal/infrastructure/ledgerclient"
	"github.com/pos/backend/internal/infrastructure/localstore"
	"github.com/pos/backend/internal/infrastructure/persistence"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/router"
)

// newLedger serves a real ledger over loopback HTTP
func newLedger(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&persistence.EntryModel{}, &persistence.TillModel{},
		&persistence.ProductModel{}, &persistence.CategoryModel{},
	))

	service := ledgerapp.NewService(
		persistence.NewGormEntryRepository(db),
		persistence.NewGormTillRepository(db),
		persistence.NewGormCatalogRepository(db),
		nil,
		nil,
	)
	srv := httptest.NewServer(router.NewLedgerRouter(zap.NewNop(), handler.NewLedgerHandler(service)))
	t.Cleanup(srv.Close)
	return srv
}

func cashSale(t *testing.T, tills *tillapp.Service, tillID uuid.UUID, name string, amount int64) {
	t.Helper()
	item, err := sale.NewItem(uuid.New(), name, decimal.NewFromInt(1), decimal.NewFromInt(amount))
	require.NoError(t, err)
	_, err = tills.RecordSale(context.Background(), tillapp.RecordSaleParams{
		TillID:     tillID,
		Items:      []sale.Item{item},
		TenderType: "CASH",
		AmountPaid: decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
}

// TestOfflineCaptureSurvivesRestartAndSyncs runs a full outage: sales
// captured offline, a terminal restart on the durable file, and the
// reconnect pass that drains the queue and closes the shift.
func TestOfflineCaptureSurvivesRestartAndSyncs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	upstream := newLedger(t)
	dataPath := filepath.Join(t.TempDir(), "terminal.db")
	ctx := context.Background()

	// First run: the link is down the whole shift.
	store, err := localstore.Open(dataPath, nil, nil)
	require.NoError(t, err)
	require.False(t, store.Degraded)

	monitor := connectivity.NewMonitor(nil)
	client := ledgerclient.New(upstream.URL, 0, monitor, nil)
	tills := tillapp.NewService(
		localstore.NewGormTillRepository(store.DB),
		localstore.NewGormTransactionRepository(store.DB),
		localstore.NewGormPendingCloseRepository(store.DB),
		client, monitor, nil, decimal.Zero, nil,
	)

	session, err := tills.Open(ctx, tillapp.OpenParams{
		LocationID:     uuid.New(),
		StaffID:        uuid.New(),
		StaffName:      "Chidi",
		OpeningBalance: decimal.NewFromInt(5000),
	})
	require.NoError(t, err)
	require.True(t, session.LocalOnly, "offline open mints a local identity")

	cashSale(t, tills, session.ID, "Peak Milk", 1500)
	cashSale(t, tills, session.ID, "Agege Bread", 700)
	require.NoError(t, store.Close())

	// Second run: reopen the same file, as after a crash or power cut.
	store, err = localstore.Open(dataPath, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	txs := localstore.NewGormTransactionRepository(store.DB)
	tillRepo := localstore.NewGormTillRepository(store.DB)
	closes := localstore.NewGormPendingCloseRepository(store.DB)
	mappings := localstore.NewGormOpenMappingRepository(store.DB)

	queued, err := txs.FindUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 2, "captured sales survive the restart")

	monitor = connectivity.NewMonitor(nil)
	client = ledgerclient.New(upstream.URL, 0, monitor, nil)
	engine := syncapp.NewEngine(txs, tillRepo, closes, mappings, client, nil)
	tills = tillapp.NewService(tillRepo, txs, closes, client, monitor, engine, decimal.Zero, nil)

	// The close stays refused while sales wait in the queue.
	_, err = tills.Close(ctx, session.ID, nil, "")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PENDING_SYNC", domainErr.Code)

	monitor.ReportOnline()
	report, err := engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.TillsReattributed)

	// The session now lives under its server identity.
	active, err := tills.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.NotEqual(t, session.ID, active[0].ID)
	assert.False(t, active[0].LocalOnly)

	// Counted cash matches the processed cash, variance is per tender
	// against processed amounts, not the drawer float.
	summary, err := tills.Close(ctx, active[0].ID,
		map[string]decimal.Decimal{"CASH": decimal.NewFromInt(2200)}, "")
	require.NoError(t, err)
	assert.True(t, summary.Reconciliation.TotalVariance.IsZero())
	assert.True(t, summary.Reconciliation.ExpectedClosingBalance.Equal(decimal.NewFromInt(7200)))

	// A second pass finds nothing to do.
	report, err = engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Synced)
	assert.Equal(t, 0, report.TillsReattributed)
}
