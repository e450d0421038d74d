// Package till runs the register's till sessions: opening a drawer for a
// shift, accruing captured sales into it, and closing with reconciliation.
// Every captured sale is durable locally before anything touches the network.
package till

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/till"
	"github.com/pos/backend/internal/infrastructure/connectivity"
	"github.com/pos/backend/internal/infrastructure/ledgerclient"
)

// LedgerGateway is the slice of the ledger client the till service needs
type LedgerGateway interface {
	OpenTill(ctx context.Context, req ledgerclient.OpenTillRequest) (*ledgerclient.TillInfo, error)
	CloseTill(ctx context.Context, tillID uuid.UUID, req ledgerclient.CloseTillRequest) (*till.ClosingSummary, error)
}

// SyncTrigger requests a delivery pass after a sale is captured while the
// link is up. The sync engine implements it.
type SyncTrigger interface {
	TriggerSync(ctx context.Context)
}

// Service is the terminal-side till application service
type Service struct {
	tills             till.TillRepository
	transactions      sale.TransactionRepository
	pendingCloses     till.PendingCloseRepository
	gateway           LedgerGateway
	monitor           *connectivity.Monitor
	syncer            SyncTrigger
	varianceThreshold decimal.Decimal
	logger            *zap.Logger
}

// NewService creates the till service. syncer may be nil; captured sales
// then wait for the next connectivity edge or an explicit sync request.
func NewService(
	tills till.TillRepository,
	transactions sale.TransactionRepository,
	pendingCloses till.PendingCloseRepository,
	gateway LedgerGateway,
	monitor *connectivity.Monitor,
	syncer SyncTrigger,
	varianceThreshold decimal.Decimal,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tills:             tills,
		transactions:      transactions,
		pendingCloses:     pendingCloses,
		gateway:           gateway,
		monitor:           monitor,
		syncer:            syncer,
		varianceThreshold: varianceThreshold,
		logger:            logger.Named("till"),
	}
}

// OpenParams carries a till open request
type OpenParams struct {
	StoreID        uuid.UUID
	LocationID     uuid.UUID
	StaffID        uuid.UUID
	StaffName      string
	OpeningBalance decimal.Decimal
}

// Open starts a till session. Online, the ledger assigns the canonical id.
// Offline, or when the ledger cannot be reached, the session opens anyway
// under a local id and is re-attributed by the sync engine later. A repeat
// open for the same staff member and location converges on the existing
// session.
func (s *Service) Open(ctx context.Context, p OpenParams) (*till.Till, error) {
	existing, err := s.tills.FindOpenByStaffAndLocation(ctx, p.StaffID, p.LocationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	session, err := till.NewTill(p.StoreID, p.LocationID, p.StaffID, p.StaffName, p.OpeningBalance)
	if err != nil {
		return nil, err
	}

	if s.monitor.IsOnline() {
		info, err := s.gateway.OpenTill(ctx, ledgerclient.OpenTillRequest{
			StoreID:        p.StoreID,
			LocationID:     p.LocationID,
			StaffID:        p.StaffID,
			StaffName:      p.StaffName,
			OpeningBalance: p.OpeningBalance,
		})
		switch {
		case err == nil:
			session.ID = info.ID
		case isValidation(err):
			return nil, err
		default:
			// Link dropped mid-request; fall through to an offline open.
			s.logger.Warn("ledger open failed, opening till locally", zap.Error(err))
			session.LocalOnly = true
		}
	} else {
		session.LocalOnly = true
	}

	if err := s.tills.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("till opened",
		zap.String("till_id", session.ID.String()),
		zap.String("staff", session.StaffName),
		zap.Bool("local_only", session.LocalOnly),
	)
	return session, nil
}

// RecordSaleParams carries a completed sale capture
type RecordSaleParams struct {
	TillID         uuid.UUID
	ExternalID     string
	Items          []sale.Item
	Tax            decimal.Decimal
	Discount       decimal.Decimal
	TenderPayments []sale.TenderPayment
	TenderType     string
	AmountPaid     decimal.Decimal
}

// RecordSale captures a completed sale against an open till. The
// transaction is persisted to the local queue before it accrues into the
// till, so a crash between the two steps never loses the sale. When the
// link is up a delivery pass is requested immediately.
func (s *Service) RecordSale(ctx context.Context, p RecordSaleParams) (*sale.Transaction, error) {
	session, err := s.tills.FindByID(ctx, p.TillID)
	if err != nil {
		return nil, err
	}
	if session.Status != till.TillStatusOpen {
		return nil, shared.ErrTillNotOpen
	}

	tx, err := sale.NewTransaction(sale.NewTransactionParams{
		ExternalID:     p.ExternalID,
		Items:          p.Items,
		Tax:            p.Tax,
		Discount:       p.Discount,
		TenderPayments: p.TenderPayments,
		TenderType:     p.TenderType,
		AmountPaid:     p.AmountPaid,
		StaffID:        session.StaffID,
		StaffName:      session.StaffName,
		LocationID:     session.LocationID,
		TillID:         session.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.accrue(ctx, session, tx); err != nil {
		return nil, err
	}

	s.requestSync(ctx)
	return tx, nil
}

// HoldSale parks an in-progress sale without payment so the next customer
// can be served. Held sales never accrue and never enter the sync queue.
func (s *Service) HoldSale(ctx context.Context, tillID uuid.UUID, items []sale.Item) (*sale.Transaction, error) {
	session, err := s.tills.FindByID(ctx, tillID)
	if err != nil {
		return nil, err
	}
	if session.Status != till.TillStatusOpen {
		return nil, shared.ErrTillNotOpen
	}

	tx, err := sale.NewHeldTransaction(items, session.StaffID, session.StaffName, session.LocationID, session.ID)
	if err != nil {
		return nil, err
	}
	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// CompleteHeldSale resumes a held sale with payment, accruing it into its
// till and queueing it for delivery.
func (s *Service) CompleteHeldSale(ctx context.Context, txID uuid.UUID, tenderPayments []sale.TenderPayment, tenderType string, amountPaid decimal.Decimal) (*sale.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if err := tx.CompleteWithPayment(tenderPayments, tenderType, amountPaid); err != nil {
		return nil, err
	}
	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}

	session, err := s.tills.FindByID(ctx, tx.TillID)
	if err != nil {
		return nil, err
	}
	if err := s.accrue(ctx, session, tx); err != nil {
		return nil, err
	}

	s.requestSync(ctx)
	return tx, nil
}

// accrue folds a completed transaction into its till session
func (s *Service) accrue(ctx context.Context, session *till.Till, tx *sale.Transaction) error {
	if err := session.RecordTransaction(tx); err != nil {
		return err
	}
	return s.tills.Save(ctx, session)
}

// Close ends a till session. The close is refused while the till still has
// queued transactions; with the queue drained, reconciliation runs locally
// and the result is delivered to the ledger, or queued for delivery when
// the link is down. Closing an already-closed till returns the stored
// summary unchanged.
func (s *Service) Close(ctx context.Context, tillID uuid.UUID, tenderCounts map[string]decimal.Decimal, notes string) (*till.ClosingSummary, error) {
	session, err := s.tills.FindByID(ctx, tillID)
	if err != nil {
		return nil, err
	}
	if session.Status == till.TillStatusClosed {
		return session.Summary, nil
	}

	pending, err := s.transactions.CountUnsyncedForTill(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, shared.NewPendingSyncError(int(pending))
	}

	summary, err := session.Close(tenderCounts, notes, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.tills.Save(ctx, session); err != nil {
		return nil, err
	}

	s.warnOnVariance(summary)

	if err := s.deliverClose(ctx, session, tenderCounts, notes, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// deliverClose sends the close to the ledger, or queues it. A till still
// carrying a local-only id cannot close server-side until the sync engine
// re-attributes it, so its close always goes through the pending queue.
func (s *Service) deliverClose(ctx context.Context, session *till.Till, tenderCounts map[string]decimal.Decimal, notes string, summary *till.ClosingSummary) error {
	if !session.LocalOnly && s.monitor.IsOnline() {
		if _, err := s.gateway.CloseTill(ctx, session.ID, ledgerclient.CloseTillRequest{
			TenderCounts: tenderCounts,
			Notes:        notes,
		}); err == nil {
			return nil
		} else if isValidation(err) {
			s.logger.Error("ledger rejected till close, queueing for review",
				zap.String("till_id", session.ID.String()),
				zap.Error(err),
			)
		}
	}

	queued, err := till.NewPendingTillClose(session.ID, tenderCounts, notes, summary)
	if err != nil {
		return err
	}
	return s.pendingCloses.Save(ctx, queued)
}

// warnOnVariance flags a reconciliation whose total variance magnitude
// meets the configured threshold. Advisory only.
func (s *Service) warnOnVariance(summary *till.ClosingSummary) {
	if s.varianceThreshold.LessThanOrEqual(decimal.Zero) {
		return
	}
	if summary.Reconciliation.TotalVariance.Abs().LessThan(s.varianceThreshold) {
		return
	}
	s.logger.Warn("till closed with significant variance",
		zap.String("till_id", summary.TillID.String()),
		zap.String("total_variance", summary.Reconciliation.TotalVariance.String()),
		zap.String("variance_percentage", summary.Reconciliation.VariancePercentage.String()),
	)
}

// Suspend administratively parks an open till
func (s *Service) Suspend(ctx context.Context, tillID uuid.UUID) (*till.Till, error) {
	session, err := s.tills.FindByID(ctx, tillID)
	if err != nil {
		return nil, err
	}
	if err := session.Suspend(); err != nil {
		return nil, err
	}
	if err := s.tills.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Reactivate returns a suspended till to service
func (s *Service) Reactivate(ctx context.Context, tillID uuid.UUID) (*till.Till, error) {
	session, err := s.tills.FindByID(ctx, tillID)
	if err != nil {
		return nil, err
	}
	if err := session.Reactivate(); err != nil {
		return nil, err
	}
	if err := s.tills.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListActive returns open and suspended till sessions
func (s *Service) ListActive(ctx context.Context) ([]*till.Till, error) {
	return s.tills.FindOpen(ctx)
}

// Find returns one till session
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*till.Till, error) {
	return s.tills.FindByID(ctx, id)
}

// PendingCount reports how many transactions a till still has queued
func (s *Service) PendingCount(ctx context.Context, tillID uuid.UUID) (int64, error) {
	return s.transactions.CountUnsyncedForTill(ctx, tillID)
}

func (s *Service) requestSync(ctx context.Context) {
	if s.syncer != nil && s.monitor.IsOnline() {
		s.syncer.TriggerSync(ctx)
	}
}

func isValidation(err error) bool {
	var apiErr *ledgerclient.APIError
	return errors.As(err, &apiErr) && apiErr.IsValidation()
}
