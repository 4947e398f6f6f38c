package transport

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"geekshelf/internal/domain"
	"geekshelf/internal/forms"
	"geekshelf/internal/middleware"
	"geekshelf/internal/repository"
	"geekshelf/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateProductRequest is the JSON creation payload. The image travels as
// base64 and is subject to the same 64KB limit as the form upload.
type CreateProductRequest struct {
	Name          string `json:"name" validate:"required"`
	Stock         int    `json:"stock" validate:"gte=0"`
	ReleaseDate   string `json:"release_date" validate:"required,datetime=2006-01-02"`
	CategoryID    int64  `json:"category_id" validate:"required"`
	ImageFilename string `json:"image_filename" validate:"required"`
	ImageBase64   string `json:"image_base64" validate:"required,base64"`
}

// ProductResponse is the JSON rendering of a product. Image bytes are not
// inlined; ImageURL points at the image endpoint instead.
type ProductResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Stock         int    `json:"stock"`
	ReleaseDate   string `json:"release_date"`
	CategoryID    int64  `json:"category_id"`
	ImageFilename string `json:"image_filename"`
	ImageURL      string `json:"image_url"`
}

// CategoryResponse is the JSON rendering of a category.
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// APIHandler serves the JSON surface of the catalog.
type APIHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(catalog service.CatalogService, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all API routes
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Post("/products", h.CreateProduct)
		r.Get("/categories", h.ListCategories)
	})
}

// ListProducts returns all products, optionally filtered by category.
func (h *APIHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []*domain.Product
		err      error
	)

	if raw := r.URL.Query().Get("category_id"); raw != "" {
		categoryID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		products, err = h.catalog.ListProductsByCategory(r.Context(), categoryID)
	} else {
		products, err = h.catalog.ListProducts(r.Context())
	}

	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	response := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		response = append(response, toProductResponse(p))
	}

	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// GetProduct returns one product by id.
func (h *APIHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondNotFound(w, r)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondNotFound(w, r)
			return
		}
		h.logger.Error("Failed to get product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// CreateProduct creates a product from a JSON payload.
func (h *APIHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product creation validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "image_base64 is not valid base64")
		return
	}

	releaseDate, err := forms.ParseDate(req.ReleaseDate)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "release_date must be a valid date")
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), service.CreateProductInput{
		Name:          req.Name,
		Stock:         req.Stock,
		ReleaseDate:   releaseDate,
		ImageFilename: req.ImageFilename,
		ImageBytes:    imageBytes,
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		if errors.Is(err, service.ErrImageTooLarge) {
			middleware.RespondWithError(w, http.StatusBadRequest, "the image must not exceed 64KB")
			return
		}
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.Int64("id", product.ID), zap.String("name", product.Name))
	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(product))
}

// ListCategories returns the seeded category set.
func (h *APIHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	response := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		response = append(response, CategoryResponse{ID: c.ID, Name: c.Name})
	}

	middleware.RespondWithJSON(w, http.StatusOK, response)
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Stock:         p.Stock,
		ReleaseDate:   p.ReleaseDate.Format(forms.DateLayout),
		CategoryID:    p.CategoryID,
		ImageFilename: p.ImageFilename,
		ImageURL:      "/imagen/" + p.ImageFilename,
	}
}
