package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/isakhq/marketplace/internal/core/domain"
	"github.com/isakhq/marketplace/internal/metrics"
	"github.com/isakhq/marketplace/internal/port"
)

// maxCommitRetries bounds how often a purchase commit is retried after a
// transient storage conflict before the conflict surfaces to the caller.
const maxCommitRetries = 3

// PurchaseService is the inventory/transaction coordinator. A purchase
// moves Validating -> Committing -> Committed, or Validating -> Rejected;
// the committing step is a single store transaction (conditional quantity
// decrement plus ledger append), so concurrent purchases against the same
// item serialize there and can never oversell.
type PurchaseService struct {
	store port.Store
	cache port.StockCache // optional fast-fail guard, may be nil
}

func NewPurchaseService(store port.Store, cache port.StockCache) *PurchaseService {
	return &PurchaseService{store: store, cache: cache}
}

// PurchaseInput carries a purchase request. RequestID is optional; when
// set (and a stock cache is wired) a replayed ID is rejected before any
// state changes.
type PurchaseInput struct {
	ItemID    string
	Quantity  int
	Message   string
	RequestID string
}

// Purchase validates and commits one purchase, returning the appended
// ledger entry and the post-purchase item.
func (s *PurchaseService) Purchase(ctx context.Context, buyer *domain.Principal, in PurchaseInput) (*domain.LedgerEntry, *domain.CatalogItem, error) {
	if buyer == nil || buyer.ID == "" {
		return nil, nil, domain.ErrUnauthenticated
	}
	if in.Quantity < 1 {
		metrics.PurchasesTotal.WithLabelValues("rejected").Inc()
		return nil, nil, domain.ErrInvalidQuantity
	}

	if s.cache != nil && in.RequestID != "" {
		ok, err := s.cache.ClaimRequest(ctx, in.RequestID)
		if err != nil {
			slog.Warn("request claim unavailable, proceeding without it",
				"request_id", in.RequestID, "error", err)
		} else if !ok {
			metrics.PurchasesTotal.WithLabelValues("duplicate").Inc()
			return nil, nil, domain.ErrDuplicateRequest
		}
	}

	held, err := s.reserve(ctx, in.ItemID, in.Quantity)
	if err != nil {
		metrics.PurchasesTotal.WithLabelValues("rejected").Inc()
		return nil, nil, err
	}

	entry, item, err := s.commit(ctx, buyer, in)
	if err != nil {
		if held {
			s.release(ctx, in.ItemID, in.Quantity)
		}
		return nil, nil, err
	}

	metrics.PurchasesTotal.WithLabelValues("committed").Inc()
	slog.Info("purchase committed",
		"entry_id", entry.ID,
		"item_id", item.ID,
		"buyer_id", buyer.ID,
		"seller_id", entry.SellerID,
		"quantity", entry.Quantity,
		"remaining", item.Quantity,
	)
	return entry, item, nil
}

// reserve runs the optional cache fast path. It reports whether a counter
// was actually decremented and must be released on a failed commit.
func (s *PurchaseService) reserve(ctx context.Context, itemID string, quantity int) (bool, error) {
	if s.cache == nil {
		return false, nil
	}

	res, err := s.cache.ReserveStock(ctx, itemID, quantity)
	if err != nil {
		// The guard is an optimization; the store transaction is the
		// authority, so a broken cache degrades to the slow path.
		slog.Warn("stock guard unavailable, proceeding without it",
			"item_id", itemID, "error", err)
		return false, nil
	}

	switch res {
	case port.ReservationHeld:
		return true, nil
	case port.ReservationSoldOut:
		return false, domain.ErrInsufficientStock
	default:
		return false, nil
	}
}

func (s *PurchaseService) release(ctx context.Context, itemID string, quantity int) {
	if err := s.cache.ReleaseStock(ctx, itemID, quantity); err != nil {
		slog.Error("failed to release stock reservation",
			"item_id", itemID, "quantity", quantity, "error", err)
	}
}

// commit reads the item, builds the ledger entry, and drives the store
// transaction with bounded retries on transient conflicts. The quantity
// check inside CommitPurchase runs against the current row, never this
// function's read, which only supplies the seller and an early rejection.
func (s *PurchaseService) commit(ctx context.Context, buyer *domain.Principal, in PurchaseInput) (*domain.LedgerEntry, *domain.CatalogItem, error) {
	item, err := s.store.GetItem(ctx, in.ItemID)
	if err != nil {
		metrics.PurchasesTotal.WithLabelValues("rejected").Inc()
		return nil, nil, err
	}
	if in.Quantity > item.Quantity {
		metrics.PurchasesTotal.WithLabelValues("rejected").Inc()
		return nil, nil, domain.ErrInsufficientStock
	}

	entry := &domain.LedgerEntry{
		ID:           uuid.New().String(),
		SellerID:     item.OwnerID,
		BuyerID:      buyer.ID,
		ItemID:       item.ID,
		Quantity:     in.Quantity,
		BuyerMessage: in.Message,
		CreatedAt:    time.Now().UTC(),
	}

	var updated *domain.CatalogItem
	for attempt := 1; ; attempt++ {
		updated, err = s.store.CommitPurchase(ctx, entry)
		if err == nil {
			return entry, updated, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			metrics.PurchasesTotal.WithLabelValues("rejected").Inc()
			return nil, nil, err
		}

		metrics.CommitConflicts.Inc()
		if attempt >= maxCommitRetries {
			metrics.PurchasesTotal.WithLabelValues("error").Inc()
			return nil, nil, fmt.Errorf("commit purchase after %d attempts: %w", attempt, err)
		}
		slog.Debug("purchase commit conflict, retrying",
			"item_id", in.ItemID, "attempt", attempt)
	}
}

// History returns the ledger entries where the principal appears as buyer
// or seller, newest first.
func (s *PurchaseService) History(ctx context.Context, principal *domain.Principal) ([]domain.LedgerEntry, error) {
	if principal == nil || principal.ID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.EntriesByPrincipal(ctx, principal.ID)
}
