package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/till"
	"github.com/pos/backend/internal/infrastructure/connectivity"
	"github.com/pos/backend/internal/infrastructure/ledgerclient"
	"github.com/pos/backend/internal/infrastructure/localstore"
)

type fakeGateway struct {
	submit    func(tx *sale.Transaction) (*ledgerclient.SubmitResult, error)
	openTill  func(req ledgerclient.OpenTillRequest) (*ledgerclient.TillInfo, error)
	closeTill func(tillID uuid.UUID, req ledgerclient.CloseTillRequest) (*till.ClosingSummary, error)

	submitted []uuid.UUID
	closed    []uuid.UUID
}

func (g *fakeGateway) SubmitTransaction(_ context.Context, tx *sale.Transaction) (*ledgerclient.SubmitResult, error) {
	g.submitted = append(g.submitted, tx.ID)
	if g.submit != nil {
		return g.submit(tx)
	}
	return &ledgerclient.SubmitResult{ServerID: uuid.New()}, nil
}

func (g *fakeGateway) OpenTill(_ context.Context, req ledgerclient.OpenTillRequest) (*ledgerclient.TillInfo, error) {
	if g.openTill != nil {
		return g.openTill(req)
	}
	return &ledgerclient.TillInfo{ID: uuid.New(), StaffID: req.StaffID, LocationID: req.LocationID, Status: "OPEN"}, nil
}

func (g *fakeGateway) CloseTill(_ context.Context, tillID uuid.UUID, req ledgerclient.CloseTillRequest) (*till.ClosingSummary, error) {
	g.closed = append(g.closed, tillID)
	if g.closeTill != nil {
		return g.closeTill(tillID, req)
	}
	return &till.ClosingSummary{TillID: tillID}, nil
}

type fixture struct {
	engine  *Engine
	gateway *fakeGateway
	txs     *localstore.GormTransactionRepository
	tills   *localstore.GormTillRepository
	closes  *localstore.GormPendingCloseRepository
	maps    *localstore.GormOpenMappingRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := localstore.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		gateway: &fakeGateway{},
		txs:     localstore.NewGormTransactionRepository(store.DB),
		tills:   localstore.NewGormTillRepository(store.DB),
		closes:  localstore.NewGormPendingCloseRepository(store.DB),
		maps:    localstore.NewGormOpenMappingRepository(store.DB),
	}
	f.engine = NewEngine(f.txs, f.tills, f.closes, f.maps, f.gateway, nil)
	return f
}

func queueSale(t *testing.T, f *fixture, tillID uuid.UUID) *sale.Transaction {
	t.Helper()
	item, err := sale.NewItem(uuid.New(), "Yam", decimal.NewFromInt(1), decimal.NewFromInt(2500))
	require.NoError(t, err)

	tx, err := sale.NewTransaction(sale.NewTransactionParams{
		Items:      []sale.Item{item},
		TenderType: "CASH",
		AmountPaid: decimal.NewFromInt(2500),
		StaffID:    uuid.New(),
		StaffName:  "Bisi",
		LocationID: uuid.New(),
		TillID:     tillID,
	})
	require.NoError(t, err)
	require.NoError(t, f.txs.Save(context.Background(), tx))
	return tx
}

func TestSyncNow_DeliversQueuedTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := queueSale(t, f, uuid.New())
	second := queueSale(t, f, uuid.New())

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)
	assert.Zero(t, report.Failed)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		stored, err := f.txs.FindByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, stored.Synced)
		assert.Equal(t, 1, stored.SyncAttempts)
	}
}

func TestSyncNow_DuplicateAnswerIsSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	serverID := uuid.New()

	f.gateway.submit = func(tx *sale.Transaction) (*ledgerclient.SubmitResult, error) {
		return &ledgerclient.SubmitResult{ServerID: serverID, Duplicate: true}, nil
	}

	tx := queueSale(t, f, uuid.New())

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 1, report.Duplicates)

	stored, err := f.txs.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Synced)
	assert.Equal(t, serverID, stored.ServerID)
}

func TestSyncNow_ValidationRejectionExcludesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.submit = func(tx *sale.Transaction) (*ledgerclient.SubmitResult, error) {
		return nil, &ledgerclient.APIError{StatusCode: 400, Code: "MISSING_TILL", Message: "bad payload"}
	}

	tx := queueSale(t, f, uuid.New())

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Invalid)

	stored, err := f.txs.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Invalid)
	assert.False(t, stored.Synced)

	// Excluded records never retry.
	f.gateway.submitted = nil
	_, err = f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.gateway.submitted)
}

func TestSyncNow_TransportFailureLeavesQueued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.submit = func(tx *sale.Transaction) (*ledgerclient.SubmitResult, error) {
		return nil, errors.New("connection refused")
	}

	tx := queueSale(t, f, uuid.New())

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	stored, err := f.txs.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, stored.Synced)
	assert.False(t, stored.Invalid)
	assert.Equal(t, 1, stored.SyncAttempts)

	// Connectivity returns; the same record goes through.
	f.gateway.submit = nil
	report, err = f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)

	stored, err = f.txs.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Synced)
	assert.Equal(t, 2, stored.SyncAttempts)
}

func TestSyncNow_FailureDoesNotBlockRecordsBehindIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	poisoned := queueSale(t, f, uuid.New())
	healthy := queueSale(t, f, uuid.New())

	f.gateway.submit = func(tx *sale.Transaction) (*ledgerclient.SubmitResult, error) {
		if tx.ID == poisoned.ID {
			return nil, errors.New("upstream 500")
		}
		return &ledgerclient.SubmitResult{ServerID: uuid.New()}, nil
	}

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Synced)

	stored, err := f.txs.FindByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.True(t, stored.Synced, "record behind a failing one still delivers")

	stored, err = f.txs.FindByID(ctx, poisoned.ID)
	require.NoError(t, err)
	assert.False(t, stored.Synced)
}

func TestSyncNow_CloseFailureDoesNotBlockOtherCloses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	failing := uuid.New()
	delivering := uuid.New()
	for _, id := range []uuid.UUID{failing, delivering} {
		pending, err := till.NewPendingTillClose(id, nil, "", nil)
		require.NoError(t, err)
		require.NoError(t, f.closes.Save(ctx, pending))
	}

	f.gateway.closeTill = func(tillID uuid.UUID, req ledgerclient.CloseTillRequest) (*till.ClosingSummary, error) {
		if tillID == failing {
			return nil, errors.New("upstream 500")
		}
		return &till.ClosingSummary{TillID: tillID}, nil
	}

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ClosesSynced)
	assert.Equal(t, 1, report.Failed)

	stored, err := f.closes.FindByTill(ctx, delivering)
	require.NoError(t, err)
	assert.True(t, stored.Synced)

	stored, err = f.closes.FindByTill(ctx, failing)
	require.NoError(t, err)
	assert.False(t, stored.Synced)
}

func TestSyncNow_PartialBatchResumesWithoutDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tillID := uuid.New()

	for i := 0; i < 5; i++ {
		queueSale(t, f, tillID)
	}

	// The link drops after two deliveries.
	delivered := 0
	f.gateway.submit = func(tx *sale.Transaction) (*ledgerclient.SubmitResult, error) {
		if delivered >= 2 {
			return nil, errors.New("connection reset")
		}
		delivered++
		return &ledgerclient.SubmitResult{ServerID: uuid.New()}, nil
	}

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 3, report.Failed)

	// The reconnect pass delivers exactly the remainder.
	f.gateway.submit = nil
	f.gateway.submitted = nil
	report, err = f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Synced)
	assert.Len(t, f.gateway.submitted, 3)

	queued, err := f.txs.FindUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestSyncNow_OverlappingPassIsNoop(t *testing.T) {
	f := newFixture(t)

	f.engine.inFlight.Store(true)
	report, err := f.engine.SyncNow(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	f.engine.inFlight.Store(false)
	report, err = f.engine.SyncNow(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
}

func TestSyncNow_ReattributesOfflineTill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := till.NewTill(uuid.New(), uuid.New(), uuid.New(), "Bisi", decimal.NewFromInt(3000))
	require.NoError(t, err)
	session.LocalOnly = true
	require.NoError(t, f.tills.Save(ctx, session))

	tx := queueSale(t, f, session.ID)

	serverID := uuid.New()
	f.gateway.openTill = func(req ledgerclient.OpenTillRequest) (*ledgerclient.TillInfo, error) {
		return &ledgerclient.TillInfo{ID: serverID, StaffID: req.StaffID, LocationID: req.LocationID, Status: "OPEN"}, nil
	}

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TillsReattributed)

	rekeyed, err := f.tills.FindByID(ctx, serverID)
	require.NoError(t, err)
	assert.False(t, rekeyed.LocalOnly)

	moved, err := f.txs.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, serverID, moved.TillID, "transactions follow the server till id")
	assert.True(t, moved.Synced)

	mapping, err := f.maps.FindByLocalID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, mapping.Applied)
}

func TestSyncNow_PendingCloseWaitsForTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tillID := uuid.New()

	queueSale(t, f, tillID)
	pending, err := till.NewPendingTillClose(tillID, map[string]decimal.Decimal{"CASH": decimal.NewFromInt(100)}, "", nil)
	require.NoError(t, err)
	require.NoError(t, f.closes.Save(ctx, pending))

	// Transactions fail to deliver; the close must not go out.
	f.gateway.submit = func(tx *sale.Transaction) (*ledgerclient.SubmitResult, error) {
		return nil, errors.New("connection refused")
	}
	_, err = f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.gateway.closed)

	// Next pass delivers transactions, then the close.
	f.gateway.submit = nil
	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ClosesSynced)
	assert.Equal(t, []uuid.UUID{tillID}, f.gateway.closed)

	stored, err := f.closes.FindByTill(ctx, tillID)
	require.NoError(t, err)
	assert.True(t, stored.Synced)
}

func TestSyncNow_CloseDeliveryOrderAfterTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tillID := uuid.New()

	queueSale(t, f, tillID)
	pending, err := till.NewPendingTillClose(tillID, nil, "", nil)
	require.NoError(t, err)
	require.NoError(t, f.closes.Save(ctx, pending))

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 1, report.ClosesSynced)
	require.Len(t, f.gateway.submitted, 1)
	require.Len(t, f.gateway.closed, 1)
}

func TestStart_SyncsOnReconnectEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx := queueSale(t, f, uuid.New())

	monitor := connectivity.NewMonitor(nil)
	cancel := f.engine.Start(ctx, monitor)
	defer cancel()

	monitor.ReportOnline()

	require.Eventually(t, func() bool {
		stored, err := f.txs.FindByID(ctx, tx.ID)
		return err == nil && stored.Synced
	}, 2*time.Second, 10*time.Millisecond)
}
