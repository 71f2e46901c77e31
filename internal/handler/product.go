package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/internal/repository"
	"offerhub-catalogue-api/internal/service"
	"offerhub-catalogue-api/pkg/apierror"
	"offerhub-catalogue-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// dayLayout is the DD.MM.YYYY query parameter format for price queries.
const dayLayout = "02.01.2006"

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	catalogue *service.CatalogueService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(catalogue *service.CatalogueService) *ProductHandler {
	return &ProductHandler{
		catalogue: catalogue,
	}
}

// ProductRequest represents the request body for creating/updating a product.
type ProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Name == "" {
		response.Error(w, apierror.BadRequest("name is required"))
		return
	}

	product, err := h.catalogue.CreateProduct(r.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrUpstreamUnavailable) {
			response.Error(w, apierror.ServiceUnavailable("offers service unavailable, product not created"))
			return
		}
		response.Error(w, err)
		return
	}

	response.Created(w, product)
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogue.ListProducts(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	if products == nil {
		products = []*model.Product{}
	}
	response.OK(w, products)
}

// ProductResponse represents a product, optionally with its sellable offers.
type ProductResponse struct {
	*model.Product
	Offers []*model.Offer `json:"offers,omitempty"`
}

// GetProduct handles GET /api/v1/products/{id}?includeOffers=1
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	includeOffers := r.URL.Query().Get("includeOffers") == "1"

	product, offers, err := h.catalogue.GetProduct(r.Context(), id, includeOffers)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("product not found"))
			return
		}
		response.Error(w, err)
		return
	}

	response.OK(w, ProductResponse{Product: product, Offers: offers})
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Name == "" {
		response.Error(w, apierror.BadRequest("name is required"))
		return
	}

	product := &model.Product{ID: id, Name: req.Name, Description: req.Description}
	if err := h.catalogue.UpdateProduct(r.Context(), product); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("product not found"))
			return
		}
		response.Error(w, err)
		return
	}

	response.OK(w, product)
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.catalogue.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("product not found"))
			return
		}
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}

// PriceChange handles GET /api/v1/products/{id}/price_change?fromDay=DD.MM.YYYY&toDay=DD.MM.YYYY
// toDay is optional; when absent the current open offers are the end point.
func (h *ProductHandler) PriceChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fromParam := r.URL.Query().Get("fromDay")
	if fromParam == "" {
		response.Error(w, apierror.BadRequest("fromDay is required (format DD.MM.YYYY)"))
		return
	}
	fromDay, err := time.ParseInLocation(dayLayout, fromParam, time.UTC)
	if err != nil {
		response.Error(w, apierror.BadRequest("fromDay must use format DD.MM.YYYY"))
		return
	}

	var toDay *time.Time
	if toParam := r.URL.Query().Get("toDay"); toParam != "" {
		parsed, err := time.ParseInLocation(dayLayout, toParam, time.UTC)
		if err != nil {
			response.Error(w, apierror.BadRequest("toDay must use format DD.MM.YYYY"))
			return
		}
		toDay = &parsed
	}

	result, err := h.catalogue.PriceChange(r.Context(), id, fromDay, toDay)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoOffers):
			response.Error(w, apierror.NotFound("no offers for the requested day"))
		case errors.Is(err, service.ErrZeroStartPrice):
			response.Error(w, apierror.BadRequest("price change undefined for zero start price"))
		default:
			response.Error(w, err)
		}
		return
	}

	response.OK(w, result)
}
