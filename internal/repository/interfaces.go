package repository

import (
	"context"
	"errors"
	"time"

	"offerhub-catalogue-api/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ProductRepository defines product data access methods.
type ProductRepository interface {
	// CreateProduct inserts the product and runs register inside the same
	// transaction. If register fails the insert is rolled back, so product
	// creation and upstream registration are all-or-nothing.
	CreateProduct(ctx context.Context, p *model.Product, register func(ctx context.Context) error) error

	// GetProduct retrieves a product by id. Returns ErrNotFound if missing.
	GetProduct(ctx context.Context, id string) (*model.Product, error)

	// ListProducts returns all products.
	ListProducts(ctx context.Context) ([]*model.Product, error)

	// UpdateProduct fully replaces name and description by id.
	UpdateProduct(ctx context.Context, p *model.Product) error

	// DeleteProduct removes the product and all of its offers.
	DeleteProduct(ctx context.Context, id string) error
}

// OfferRepository defines offer data access methods.
type OfferRepository interface {
	// ListOpenSellableOffers returns offers with items_in_stock > 0 and
	// closed_at unset, for one product.
	ListOpenSellableOffers(ctx context.Context, productID string) ([]*model.Offer, error)

	// ListOpenOffers returns offers with closed_at unset, regardless of stock.
	ListOpenOffers(ctx context.Context, productID string) ([]*model.Offer, error)

	// ListOffersActiveAt returns offers with created_at < dayEnd and
	// (closed_at unset or closed_at > dayStart).
	ListOffersActiveAt(ctx context.Context, productID string, dayStart, dayEnd time.Time) ([]*model.Offer, error)

	// UpsertOffer creates or fully updates an offer by id.
	UpsertOffer(ctx context.Context, o *model.Offer) error
}

// CredentialsRepository defines upstream credential data access methods.
type CredentialsRepository interface {
	// GetOrCreateCredentials loads the row for the refresh token, creating
	// it lazily on first use.
	GetOrCreateCredentials(ctx context.Context, refreshToken string) (*model.OfferCredentials, error)

	// SaveCredentials updates access_token and updated_at in place.
	SaveCredentials(ctx context.Context, c *model.OfferCredentials) error
}

// UserRepository defines user data access methods.
type UserRepository interface {
	// GetOrCreateUser returns the user for the email, creating one with a
	// fresh access token if absent. The bool reports whether it was created.
	GetOrCreateUser(ctx context.Context, email string) (*model.User, bool, error)

	// GetUserByToken finds a user by access token. Returns ErrNotFound if
	// no user holds the token.
	GetUserByToken(ctx context.Context, token string) (*model.User, error)
}

// CatalogueRepository bundles all catalogue data access behind one store.
type CatalogueRepository interface {
	ProductRepository
	OfferRepository
	CredentialsRepository
	UserRepository

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
