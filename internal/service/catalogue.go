package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/internal/repository"
	"offerhub-catalogue-api/pkg/uid"
)

// OffersAPI is the slice of the upstream client the services need.
type OffersAPI interface {
	RegisterProduct(ctx context.Context, p *model.Product) error
	FetchOffers(ctx context.Context, productID string) ([]model.OfferSnapshot, error)
}

// ErrUpstreamUnavailable indicates upstream product registration failed and
// the local insert was rolled back.
var ErrUpstreamUnavailable = errors.New("upstream offers service unavailable")

// ErrNoOffers indicates no offers matched the requested point in time.
var ErrNoOffers = errors.New("no offers for the requested day")

// ErrZeroStartPrice indicates the price change is undefined because the
// starting average price is zero.
var ErrZeroStartPrice = errors.New("start price is zero, price change undefined")

// CatalogueService handles product CRUD and historical price queries.
type CatalogueService struct {
	products repository.ProductRepository
	offers   repository.OfferRepository
	upstream OffersAPI
}

// NewCatalogueService creates a new catalogue service.
func NewCatalogueService(products repository.ProductRepository, offers repository.OfferRepository, upstream OffersAPI) *CatalogueService {
	return &CatalogueService{
		products: products,
		offers:   offers,
		upstream: upstream,
	}
}

// CreateProduct inserts the product and registers it with the upstream offers
// provider in one transaction. If registration fails the insert rolls back
// and ErrUpstreamUnavailable is returned.
func (s *CatalogueService) CreateProduct(ctx context.Context, name, description string) (*model.Product, error) {
	p := &model.Product{
		ID:          uid.New(),
		Name:        name,
		Description: description,
	}

	err := s.products.CreateProduct(ctx, p, func(ctx context.Context) error {
		if err := s.upstream.RegisterProduct(ctx, p); err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct retrieves a product, optionally with its sellable offers.
func (s *CatalogueService) GetProduct(ctx context.Context, id string, includeOffers bool) (*model.Product, []*model.Offer, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if !includeOffers {
		return p, nil, nil
	}

	offers, err := s.offers.ListOpenSellableOffers(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, offers, nil
}

// ListProducts returns all products.
func (s *CatalogueService) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return s.products.ListProducts(ctx)
}

// UpdateProduct fully replaces the product's name and description.
func (s *CatalogueService) UpdateProduct(ctx context.Context, p *model.Product) error {
	return s.products.UpdateProduct(ctx, p)
}

// DeleteProduct removes a product and all of its offers.
func (s *CatalogueService) DeleteProduct(ctx context.Context, id string) error {
	return s.products.DeleteProduct(ctx, id)
}

// AverageActivePrice computes the mean offer price at a point in time,
// rounded to 2 decimals. A nil day means "now": the mean over currently open
// offers. A non-nil day must be a start-of-day instant in UTC; an offer
// counts when created_at < day+24h and closed_at is unset or after the day
// start. ErrNoOffers is returned when nothing matches.
func (s *CatalogueService) AverageActivePrice(ctx context.Context, productID string, day *time.Time) (float64, error) {
	var offers []*model.Offer
	var err error

	if day == nil {
		offers, err = s.offers.ListOpenOffers(ctx, productID)
	} else {
		offers, err = s.offers.ListOffersActiveAt(ctx, productID, *day, day.Add(24*time.Hour))
	}
	if err != nil {
		return 0, err
	}
	if len(offers) == 0 {
		return 0, ErrNoOffers
	}

	var sum int64
	for _, o := range offers {
		sum += o.Price
	}
	return round2(float64(sum) / float64(len(offers))), nil
}

// PriceChangeResult is the payload of a price change query.
type PriceChangeResult struct {
	StartPrice  float64 `json:"start_price"`
	EndPrice    float64 `json:"end_price"`
	PriceChange float64 `json:"price_change"`
}

// PriceChange computes the relative price movement between the average price
// on fromDay and the average price on toDay (or the current open offers when
// toDay is nil), as a percentage rounded to 2 decimals.
func (s *CatalogueService) PriceChange(ctx context.Context, productID string, fromDay time.Time, toDay *time.Time) (*PriceChangeResult, error) {
	start, err := s.AverageActivePrice(ctx, productID, &fromDay)
	if err != nil {
		return nil, err
	}

	end, err := s.AverageActivePrice(ctx, productID, toDay)
	if err != nil {
		return nil, err
	}

	if start == 0 {
		return nil, ErrZeroStartPrice
	}

	return &PriceChangeResult{
		StartPrice:  start,
		EndPrice:    end,
		PriceChange: round2((end/start - 1) * 100),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
