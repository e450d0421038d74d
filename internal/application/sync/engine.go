// Package sync delivers the terminal's queued work to the ledger. The
// engine never polls: it runs when connectivity returns, when a sale is
// captured while online, or when asked explicitly.
package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/till"
	"github.com/pos/backend/internal/infrastructure/connectivity"
	"github.com/pos/backend/internal/infrastructure/ledgerclient"
)

// Gateway is the slice of the ledger client the engine needs
type Gateway interface {
	SubmitTransaction(ctx context.Context, tx *sale.Transaction) (*ledgerclient.SubmitResult, error)
	OpenTill(ctx context.Context, req ledgerclient.OpenTillRequest) (*ledgerclient.TillInfo, error)
	CloseTill(ctx context.Context, tillID uuid.UUID, req ledgerclient.CloseTillRequest) (*till.ClosingSummary, error)
}

// Report summarizes one sync pass
type Report struct {
	Skipped bool // another pass was already in flight

	TillsReattributed int
	Synced            int
	Duplicates        int
	Invalid           int
	Failed            int
	ClosesSynced      int
	ClosesDeferred    int
}

// Engine pushes queued transactions, then pending till closes. One pass
// runs at a time; a trigger arriving mid-pass is a no-op.
type Engine struct {
	transactions  sale.TransactionRepository
	tills         till.TillRepository
	pendingCloses till.PendingCloseRepository
	mappings      till.OpenMappingRepository
	gateway       Gateway
	logger        *zap.Logger

	inFlight atomic.Bool
}

// NewEngine creates a sync engine
func NewEngine(
	transactions sale.TransactionRepository,
	tills till.TillRepository,
	pendingCloses till.PendingCloseRepository,
	mappings till.OpenMappingRepository,
	gateway Gateway,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		transactions:  transactions,
		tills:         tills,
		pendingCloses: pendingCloses,
		mappings:      mappings,
		gateway:       gateway,
		logger:        logger.Named("sync"),
	}
}

// Start subscribes the engine to connectivity transitions. Each
// offline-to-online edge triggers exactly one pass. The returned cancel
// func detaches the subscription.
func (e *Engine) Start(ctx context.Context, monitor *connectivity.Monitor) func() {
	events, cancel := monitor.Subscribe()
	go func() {
		for ev := range events {
			if ev.To != connectivity.StateOnline {
				continue
			}
			if _, err := e.SyncNow(ctx); err != nil {
				e.logger.Warn("sync pass after reconnect failed", zap.Error(err))
			}
		}
	}()
	return cancel
}

// SyncNow runs one sync pass. Overlapping calls are answered with a
// skipped report rather than a second concurrent pass.
func (e *Engine) SyncNow(ctx context.Context) (*Report, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return &Report{Skipped: true}, nil
	}
	defer e.inFlight.Store(false)

	report := &Report{}

	if err := e.reattributeOfflineTills(ctx, report); err != nil {
		return report, err
	}
	if err := e.applyMappings(ctx, report); err != nil {
		return report, err
	}
	if err := e.pushTransactions(ctx, report); err != nil {
		return report, err
	}
	if err := e.pushPendingCloses(ctx, report); err != nil {
		return report, err
	}

	e.logger.Info("sync pass completed",
		zap.Int("synced", report.Synced),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("invalid", report.Invalid),
		zap.Int("failed", report.Failed),
		zap.Int("closes_synced", report.ClosesSynced),
	)
	return report, nil
}

// TriggerSync runs a pass for callers that do not care about the report,
// such as a sale captured while the link is up.
func (e *Engine) TriggerSync(ctx context.Context) {
	if _, err := e.SyncNow(ctx); err != nil {
		e.logger.Warn("triggered sync pass failed", zap.Error(err))
	}
}

// reattributeOfflineTills registers offline-minted till sessions with the
// ledger. The server assigns the canonical id; local rows move under it.
func (e *Engine) reattributeOfflineTills(ctx context.Context, report *Report) error {
	sessions, err := e.tills.FindOpen(ctx)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if !session.LocalOnly {
			continue
		}
		info, err := e.gateway.OpenTill(ctx, ledgerclient.OpenTillRequest{
			StoreID:        session.StoreID,
			LocationID:     session.LocationID,
			StaffID:        session.StaffID,
			StaffName:      session.StaffName,
			OpeningBalance: session.OpeningBalance,
		})
		if err != nil {
			// Still offline or server trouble; next pass retries.
			e.logger.Warn("offline till registration failed",
				zap.String("till_id", session.ID.String()),
				zap.Error(err),
			)
			return nil
		}

		mapping, err := till.NewTillOpenMapping(session.ID, info.ID)
		if err != nil {
			// Server echoed the same id; nothing to re-attribute.
			continue
		}
		if err := e.mappings.Save(ctx, mapping); err != nil {
			return err
		}
		if err := e.applyMapping(ctx, mapping); err != nil {
			return err
		}
		report.TillsReattributed++
	}
	return nil
}

// applyMappings finishes re-attributions interrupted by a crash
func (e *Engine) applyMappings(ctx context.Context, report *Report) error {
	unapplied, err := e.mappings.FindUnapplied(ctx)
	if err != nil {
		return err
	}
	for _, mapping := range unapplied {
		if err := e.applyMapping(ctx, mapping); err != nil {
			return err
		}
		report.TillsReattributed++
	}
	return nil
}

// applyMapping rewrites every local row captured under the offline till
// id. Each step is idempotent, so a crash mid-way is repaired by the
// next pass.
func (e *Engine) applyMapping(ctx context.Context, mapping *till.TillOpenMapping) error {
	if err := e.tills.Rekey(ctx, mapping.LocalTillID, mapping.ServerTillID); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if err := e.transactions.ReassignTill(ctx, mapping.LocalTillID, mapping.ServerTillID); err != nil {
		return err
	}
	pending, err := e.pendingCloses.FindByTill(ctx, mapping.LocalTillID)
	if err == nil {
		pending.Reattribute(mapping.ServerTillID)
		if err := e.pendingCloses.Save(ctx, pending); err != nil {
			return err
		}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	return e.mappings.MarkApplied(ctx, mapping.LocalTillID)
}

// pushTransactions delivers queued transactions in capture order
func (e *Engine) pushTransactions(ctx context.Context, report *Report) error {
	queued, err := e.transactions.FindUnsynced(ctx)
	if err != nil {
		return err
	}

	for _, tx := range queued {
		if err := tx.Validate(); err != nil {
			reason := err.Error()
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				reason = domainErr.Code
			}
			if err := e.transactions.MarkInvalid(ctx, tx.ID, reason); err != nil {
				return err
			}
			report.Invalid++
			e.logger.Warn("transaction excluded from queue",
				zap.String("tx_id", tx.ID.String()),
				zap.String("reason", reason),
			)
			continue
		}

		if err := e.transactions.IncrementSyncAttempts(ctx, tx.ID); err != nil {
			return err
		}

		result, err := e.gateway.SubmitTransaction(ctx, tx)
		if err != nil {
			var apiErr *ledgerclient.APIError
			if errors.As(err, &apiErr) && apiErr.IsValidation() {
				if err := e.transactions.MarkInvalid(ctx, tx.ID, apiErr.Code); err != nil {
					return err
				}
				report.Invalid++
				continue
			}
			// Transport or server failure: the record stays queued,
			// the rest of the batch still gets its attempt.
			report.Failed++
			e.logger.Warn("delivery failed, transaction left queued",
				zap.String("tx_id", tx.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if err := e.transactions.MarkSynced(ctx, tx.ID, result.ServerID, time.Now()); err != nil {
			return err
		}
		if result.Duplicate {
			report.Duplicates++
		}
		report.Synced++
	}
	return nil
}

// pushPendingCloses delivers offline-captured till closes. A close whose
// till still has queued transactions waits for a later pass.
func (e *Engine) pushPendingCloses(ctx context.Context, report *Report) error {
	pending, err := e.pendingCloses.FindUnsynced(ctx)
	if err != nil {
		return err
	}

	for _, p := range pending {
		remaining, err := e.transactions.CountUnsyncedForTill(ctx, p.TillID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			report.ClosesDeferred++
			continue
		}

		if err := e.pendingCloses.IncrementSyncAttempts(ctx, p.ID); err != nil {
			return err
		}

		if _, err := e.gateway.CloseTill(ctx, p.TillID, ledgerclient.CloseTillRequest{
			TenderCounts: p.TenderCounts,
			Notes:        p.Notes,
		}); err != nil {
			report.Failed++
			e.logger.Warn("till close delivery failed, left pending",
				zap.String("till_id", p.TillID.String()),
				zap.Error(err),
			)
			continue
		}

		if err := e.pendingCloses.MarkSynced(ctx, p.ID); err != nil {
			return err
		}
		report.ClosesSynced++
	}
	return nil
}
