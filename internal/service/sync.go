package service

import (
	"context"
	"log"
	"time"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/internal/repository"
	"offerhub-catalogue-api/pkg/uid"
)

// SyncService reconciles local offers against the upstream feed. One run
// walks every product sequentially; a failure for one product never aborts
// the others.
type SyncService struct {
	products repository.ProductRepository
	offers   repository.OfferRepository
	upstream OffersAPI
	now      func() time.Time
}

// NewSyncService creates a new sync service.
func NewSyncService(products repository.ProductRepository, offers repository.OfferRepository, upstream OffersAPI) *SyncService {
	return &SyncService{
		products: products,
		offers:   offers,
		upstream: upstream,
		now:      time.Now,
	}
}

// ReconcileAll runs one reconciliation pass over every known product.
// Per-product failures are logged and skipped.
func (s *SyncService) ReconcileAll(ctx context.Context) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		log.Printf("[SyncService] Failed to list products: %v", err)
		return
	}

	for _, p := range products {
		if err := s.Reconcile(ctx, p); err != nil {
			log.Printf("[SyncService] Unable to reconcile offers for product %s (%s): %v", p.Name, p.ID, err)
		}
	}
}

// Reconcile diffs the product's open sellable offers against the upstream
// snapshot and applies updates, closures and creations.
//
// New rows are only created when the local set was empty or at least one
// offer closed this round. A feed that adds offers while every local offer
// stays sellable therefore drops them silently; that matches the upstream
// contract this service replaces and is pinned by a regression test.
func (s *SyncService) Reconcile(ctx context.Context, product *model.Product) error {
	local, err := s.offers.ListOpenSellableOffers(ctx, product.ID)
	if err != nil {
		return err
	}

	snapshots, err := s.upstream.FetchOffers(ctx, product.ID)
	if err != nil {
		return err
	}

	byID := make(map[string]model.OfferSnapshot, len(snapshots))
	for _, snap := range snapshots {
		byID[snap.ID] = snap
	}

	createNew := len(local) == 0

	localIDs := make(map[string]struct{}, len(local))
	for _, offer := range local {
		localIDs[offer.ID] = struct{}{}

		if snap, ok := byID[offer.ID]; ok {
			offer.Price = snap.Price
			offer.ItemsInStock = snap.ItemsInStock
		} else {
			// Gone from the feed: sold out. Closing is monotonic, the
			// timestamp is never touched again.
			offer.ItemsInStock = 0
			closedAt := s.now().UTC()
			offer.ClosedAt = &closedAt
			createNew = true
			log.Printf("[SyncService] Offer %s sold out, closing", offer.ID)
		}

		if err := s.offers.UpsertOffer(ctx, offer); err != nil {
			return err
		}
	}

	if !createNew {
		return nil
	}

	for _, snap := range snapshots {
		if _, known := localIDs[snap.ID]; known {
			continue
		}

		id := snap.ID
		if id == "" {
			id = uid.New()
		}
		offer := &model.Offer{
			ID:           id,
			ProductID:    product.ID,
			Price:        snap.Price,
			ItemsInStock: snap.ItemsInStock,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.offers.UpsertOffer(ctx, offer); err != nil {
			return err
		}
		log.Printf("[SyncService] Saved new offer %s for product %s", offer.ID, product.ID)
	}

	return nil
}
