// Package ledger contains the server-side use cases: admitting
// transactions exactly once and running till sessions on the canonical
// side of the wire.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/till"
)

// IngestResult is the outcome of one submission
type IngestResult struct {
	Entry     *ledger.Entry
	Duplicate bool
}

// Service is the ledger application service
type Service struct {
	entries     ledger.EntryRepository
	tills       till.TillRepository
	catalog     catalog.Repository
	idempotency shared.IdempotencyStore
	idemCfg     shared.IdempotencyConfig
	logger      *zap.Logger
}

// NewService creates the ledger service. idempotency may be nil to
// disable the fast path; the unique index still guarantees correctness.
func NewService(
	entries ledger.EntryRepository,
	tills till.TillRepository,
	catalogRepo catalog.Repository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := shared.DefaultIdempotencyConfig()
	if idempotency == nil {
		cfg.Enabled = false
	}
	return &Service{
		entries:     entries,
		tills:       tills,
		catalog:     catalogRepo,
		idempotency: idempotency,
		idemCfg:     cfg,
		logger:      logger.Named("ledger"),
	}
}

// IngestTransaction admits a terminal submission exactly once. A repeat
// of an already-admitted key returns the original entry with Duplicate
// set; the caller answers it as a success.
func (s *Service) IngestTransaction(ctx context.Context, tx *sale.Transaction) (*IngestResult, error) {
	entry, err := ledger.NewEntryFromTransaction(tx)
	if err != nil {
		return nil, err
	}

	if s.idemCfg.Enabled {
		processed, err := s.idempotency.IsProcessed(ctx, entry.Key)
		if err != nil {
			// Fast path down: fall through to the unique index.
			s.logger.Warn("idempotency store check failed", zap.Error(err))
		} else if processed {
			stored, err := s.entries.FindByKey(ctx, entry.Key)
			if err == nil {
				return &IngestResult{Entry: stored, Duplicate: true}, nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			// Cache said processed but no row exists; trust the table.
		}
	}

	stored, duplicate, err := s.entries.Insert(ctx, entry)
	if err != nil {
		return nil, err
	}

	if !duplicate {
		s.accrueIntoTill(ctx, stored)
	}

	if s.idemCfg.Enabled {
		if _, err := s.idempotency.MarkProcessed(ctx, entry.Key, s.idemCfg.TTL); err != nil {
			s.logger.Warn("idempotency store mark failed", zap.Error(err))
		}
	}

	s.logger.Info("transaction ingested",
		zap.String("key", stored.Key),
		zap.String("entry_id", stored.ID.String()),
		zap.Bool("duplicate", duplicate),
	)
	return &IngestResult{Entry: stored, Duplicate: duplicate}, nil
}

// accrueIntoTill folds a newly admitted entry into its server-side till
// session. A missing or closed till is not an ingestion failure: the
// entry is already durable, which is what the terminal needs to know.
func (s *Service) accrueIntoTill(ctx context.Context, entry *ledger.Entry) {
	session, err := s.tills.FindByID(ctx, entry.TillID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("till lookup failed during accrual", zap.Error(err))
		}
		return
	}
	if err := session.RecordTransaction(entry.ToTransaction()); err != nil {
		s.logger.Warn("entry did not accrue into till",
			zap.String("till_id", entry.TillID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.tills.Save(ctx, session); err != nil {
		s.logger.Error("failed to save till after accrual", zap.Error(err))
	}
}

// OpenTillParams carries an open request
type OpenTillParams struct {
	StoreID        uuid.UUID
	LocationID     uuid.UUID
	StaffID        uuid.UUID
	StaffName      string
	OpeningBalance decimal.Decimal
}

// OpenTill opens a till session, converging on the already-open session
// for the same staff member and location if one exists.
func (s *Service) OpenTill(ctx context.Context, p OpenTillParams) (*till.Till, error) {
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
	if err := s.tills.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("till opened",
		zap.String("till_id", session.ID.String()),
		zap.String("staff", p.StaffName),
	)
	return session, nil
}

// CloseTill closes a till session. Closing an already-closed till returns
// the stored summary unchanged.
func (s *Service) CloseTill(ctx context.Context, tillID uuid.UUID, tenderCounts map[string]decimal.Decimal, notes string) (*till.ClosingSummary, error) {
	session, err := s.tills.FindByID(ctx, tillID)
	if err != nil {
		return nil, err
	}

	alreadyClosed := session.Status == till.TillStatusClosed
	summary, err := session.Close(tenderCounts, notes, time.Now())
	if err != nil {
		return nil, err
	}
	if !alreadyClosed {
		if err := s.tills.Save(ctx, session); err != nil {
			return nil, err
		}
		s.logger.Info("till closed",
			zap.String("till_id", tillID.String()),
			zap.Int("transaction_count", summary.TransactionCount),
		)
	}
	return summary, nil
}

// ListActiveTills returns open and suspended till sessions
func (s *Service) ListActiveTills(ctx context.Context) ([]*till.Till, error) {
	return s.tills.FindOpen(ctx)
}

// FindTill returns one till session
func (s *Service) FindTill(ctx context.Context, id uuid.UUID) (*till.Till, error) {
	return s.tills.FindByID(ctx, id)
}

// ListProducts returns the master product catalog
func (s *Service) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return s.catalog.ListProducts(ctx)
}

// ListCategories returns the master category set
func (s *Service) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return s.catalog.ListCategories(ctx)
}
