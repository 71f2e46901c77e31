package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/internal/repository"
	"offerhub-catalogue-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore is an in-memory CatalogueRepository subset for handler tests.
type stubStore struct {
	products map[string]*model.Product
	offers   []*model.Offer
	users    map[string]*model.User
}

func newStubStore() *stubStore {
	return &stubStore{
		products: make(map[string]*model.Product),
		users:    make(map[string]*model.User),
	}
}

func (s *stubStore) CreateProduct(ctx context.Context, p *model.Product, register func(ctx context.Context) error) error {
	if register != nil {
		if err := register(ctx); err != nil {
			return err
		}
	}
	s.products[p.ID] = p
	return nil
}

func (s *stubStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (s *stubStore) ListProducts(ctx context.Context) ([]*model.Product, error) {
	var result []*model.Product
	for _, p := range s.products {
		result = append(result, p)
	}
	return result, nil
}

func (s *stubStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	if _, ok := s.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	s.products[p.ID] = p
	return nil
}

func (s *stubStore) DeleteProduct(ctx context.Context, id string) error {
	if _, ok := s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *stubStore) ListOpenSellableOffers(ctx context.Context, productID string) ([]*model.Offer, error) {
	var result []*model.Offer
	for _, o := range s.offers {
		if o.ProductID == productID && o.Sellable() {
			result = append(result, o)
		}
	}
	return result, nil
}

func (s *stubStore) ListOpenOffers(ctx context.Context, productID string) ([]*model.Offer, error) {
	var result []*model.Offer
	for _, o := range s.offers {
		if o.ProductID == productID && o.Open() {
			result = append(result, o)
		}
	}
	return result, nil
}

func (s *stubStore) ListOffersActiveAt(ctx context.Context, productID string, dayStart, dayEnd time.Time) ([]*model.Offer, error) {
	var result []*model.Offer
	for _, o := range s.offers {
		if o.ProductID == productID && o.CreatedAt.Before(dayEnd) && (o.ClosedAt == nil || o.ClosedAt.After(dayStart)) {
			result = append(result, o)
		}
	}
	return result, nil
}

func (s *stubStore) UpsertOffer(ctx context.Context, o *model.Offer) error {
	s.offers = append(s.offers, o)
	return nil
}

func (s *stubStore) GetOrCreateUser(ctx context.Context, email string) (*model.User, bool, error) {
	if u, ok := s.users[email]; ok {
		return u, false, nil
	}
	u := &model.User{Email: email, AccessToken: "token-" + email}
	s.users[email] = u
	return u, true, nil
}

func (s *stubStore) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	for _, u := range s.users {
		if u.AccessToken == token {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// stubUpstream implements service.OffersAPI.
type stubUpstream struct {
	registerErr error
}

func (s *stubUpstream) RegisterProduct(ctx context.Context, p *model.Product) error {
	return s.registerErr
}

func (s *stubUpstream) FetchOffers(ctx context.Context, productID string) ([]model.OfferSnapshot, error) {
	return nil, nil
}

func newTestRouter(store *stubStore, up *stubUpstream) *chi.Mux {
	catalogue := service.NewCatalogueService(store, store, up)
	users := service.NewUserService(store, nil)

	productHandler := NewProductHandler(catalogue)
	authHandler := NewAuthHandler(users)

	r := chi.NewRouter()
	r.Post("/api/v1/auth", authHandler.Register)
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", productHandler.CreateProduct)
		r.Get("/", productHandler.ListProducts)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", productHandler.GetProduct)
			r.Put("/", productHandler.UpdateProduct)
			r.Delete("/", productHandler.DeleteProduct)
			r.Get("/price_change", productHandler.PriceChange)
		})
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateProduct(t *testing.T) {
	store := newStubStore()
	router := newTestRouter(store, &stubUpstream{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", `{"name":"Widget","description":"A widget"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, store.products, 1)
}

func TestCreateProductRequiresName(t *testing.T) {
	router := newTestRouter(newStubStore(), &stubUpstream{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", `{"description":"nameless"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProductUpstreamDownIs503(t *testing.T) {
	store := newStubStore()
	router := newTestRouter(store, &stubUpstream{registerErr: errors.New("status 502")})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", `{"name":"Widget","description":"A widget"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, store.products)
}

func TestGetProductWithOffers(t *testing.T) {
	store := newStubStore()
	store.products["p1"] = &model.Product{ID: "p1", Name: "Widget", Description: "A widget"}
	store.offers = []*model.Offer{
		{ID: "o1", ProductID: "p1", Price: 100, ItemsInStock: 5, CreatedAt: time.Now().UTC()},
		{ID: "o2", ProductID: "p1", Price: 200, ItemsInStock: 0, CreatedAt: time.Now().UTC()},
	}
	router := newTestRouter(store, &stubUpstream{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/p1?includeOffers=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			ID     string         `json:"id"`
			Offers []*model.Offer `json:"offers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "p1", body.Data.ID)
	// Only the sellable offer is included.
	require.Len(t, body.Data.Offers, 1)
	assert.Equal(t, "o1", body.Data.Offers[0].ID)
}

func TestGetProductNotFound(t *testing.T) {
	router := newTestRouter(newStubStore(), &stubUpstream{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	store := newStubStore()
	store.products["p1"] = &model.Product{ID: "p1", Name: "Widget", Description: "Old"}
	router := newTestRouter(store, &stubUpstream{})

	rec := doRequest(t, router, http.MethodPut, "/api/v1/products/p1", `{"name":"Widget v2","description":"New"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Widget v2", store.products["p1"].Name)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/products/p1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.products)
}

func TestPriceChangeRequiresFromDay(t *testing.T) {
	router := newTestRouter(newStubStore(), &stubUpstream{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/p1/price_change", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceChangeInvalidDayFormat(t *testing.T) {
	router := newTestRouter(newStubStore(), &stubUpstream{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/p1/price_change?fromDay=2023-11-15", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceChangeEmptyWindowIs404(t *testing.T) {
	router := newTestRouter(newStubStore(), &stubUpstream{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/p1/price_change?fromDay=15.11.2023", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPriceChangeHappyPath(t *testing.T) {
	store := newStubStore()
	closed := time.Date(2023, time.November, 16, 0, 0, 0, 0, time.UTC)
	store.offers = []*model.Offer{
		{ID: "o1", ProductID: "p1", Price: 100, CreatedAt: time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC), ClosedAt: &closed},
		{ID: "o2", ProductID: "p1", Price: 150, CreatedAt: time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)},
	}
	router := newTestRouter(store, &stubUpstream{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/p1/price_change?fromDay=15.11.2023&toDay=20.11.2023", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data service.PriceChangeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 125.0, body.Data.StartPrice)
	assert.Equal(t, 150.0, body.Data.EndPrice)
	assert.Equal(t, 20.0, body.Data.PriceChange)
}

func TestRegisterUser(t *testing.T) {
	store := newStubStore()
	router := newTestRouter(store, &stubUpstream{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/auth", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Same email again returns the existing user with 200.
	rec = doRequest(t, router, http.MethodPost, "/api/v1/auth", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterUserRequiresEmail(t *testing.T) {
	router := newTestRouter(newStubStore(), &stubUpstream{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/auth", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
