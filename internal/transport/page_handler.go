package transport

import (
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

// PageHandler serves the server-rendered HTML surface of the catalog.
type PageHandler struct {
	catalog service.CatalogService
	view    *View
	logger  *zap.Logger
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(catalog service.CatalogService, view *View, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		catalog: catalog,
		view:    view,
		logger:  logger,
	}
}

// RegisterRoutes registers all page routes
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/insertar", h.NewProductForm)
	r.Post("/insertar", h.CreateProduct)
	r.Get("/listado", h.ListProducts)
	r.Get("/detalle/{id}", h.ProductDetail)
	r.Get("/delete/{id}", h.DeleteProduct)
	r.Get("/edit/{id}", h.EditProductForm)
	r.Post("/edit/{id}", h.UpdateProduct)
	r.Get("/imagen/{nombre}", h.ProductImage)
}

// Home renders the static landing page.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, "home.html", pageData{Flash: popFlash(w, r)})
}

// NewProductForm renders an empty creation form.
func (h *PageHandler) NewProductForm(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to load categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	h.view.Render(w, "product_new.html", pageData{
		Categories: categories,
		Form:       &forms.ProductForm{Errors: map[string][]string{}},
	})
}

// CreateProduct validates a creation submission. A clean submission persists
// the product and re-renders the listing with a confirmation; a dirty one
// re-renders the form with its field errors.
func (h *PageHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	form, err := forms.ParseProductForm(r)
	if err != nil {
		h.logger.Debug("Failed to parse creation form", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to load categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	if !form.Validate(categoryIDs(categories)) {
		h.view.Render(w, "product_new.html", pageData{
			Categories: categories,
			Form:       form,
		})
		return
	}

	_, err = h.catalog.CreateProduct(r.Context(), service.CreateProductInput{
		Name:          form.Name,
		Stock:         form.ParsedStock(),
		ReleaseDate:   form.ParsedReleaseDate(),
		ImageFilename: form.ImageFilename,
		ImageBytes:    form.ImageBytes,
		CategoryID:    form.ParsedCategoryID(),
	})
	if err != nil {
		if errors.Is(err, service.ErrImageTooLarge) {
			form.Errors["image"] = append(form.Errors["image"], "the image must not exceed 64KB")
			h.view.Render(w, "product_new.html", pageData{Categories: categories, Form: form})
			return
		}
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.renderListing(w, r, "Product saved successfully")
}

// ListProducts renders the full catalog listing.
func (h *PageHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.renderListing(w, r, popFlash(w, r))
}

// ProductDetail renders one product, or the legacy 404 payload if absent.
func (h *PageHandler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
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
		h.logger.Error("Failed to load product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to load categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	h.view.Render(w, "product_detail.html", pageData{
		Product:    product,
		Categories: categories,
	})
}

// DeleteProduct removes a product and redirects to the listing. There is no
// existence check: deleting an absent id still redirects with a confirmation.
func (h *PageHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondNotFound(w, r)
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	setFlash(w, "Product deleted successfully")
	http.Redirect(w, r, "/listado", http.StatusFound)
}

// EditProductForm renders the edit form prefilled with the product's fields.
func (h *PageHandler) EditProductForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
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
		h.logger.Error("Failed to load product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to load categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	h.view.Render(w, "product_edit.html", pageData{
		Product:    product,
		Categories: categories,
	})
}

// UpdateProduct applies an edit submission. Name, stock, date, and category
// must all be present and truthy; anything missing answers the legacy 404
// payload and mutates nothing. Image fields only change when a new file is
// supplied.
func (h *PageHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondNotFound(w, r)
		return
	}

	form, err := forms.ParseProductForm(r)
	if err != nil {
		h.logger.Debug("Failed to parse edit form", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	if !form.CheckPresence() {
		middleware.RespondNotFound(w, r)
		return
	}

	input := service.UpdateProductInput{
		Name:        form.Name,
		Stock:       form.ParsedStock(),
		ReleaseDate: form.ParsedReleaseDate(),
		CategoryID:  form.ParsedCategoryID(),
	}
	if form.HasNewImage() {
		input.ImageFilename = form.ImageFilename
		input.ImageBytes = form.ImageBytes
	}

	if err := h.catalog.UpdateProduct(r.Context(), id, input); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondNotFound(w, r)
			return
		}
		if errors.Is(err, service.ErrImageTooLarge) {
			middleware.RespondWithError(w, http.StatusBadRequest, "the image must not exceed 64KB")
			return
		}
		h.logger.Error("Failed to update product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.renderListing(w, r, "Product updated successfully")
}

// ProductImage streams a product's stored image bytes by upload filename.
// The content type is always image/jpeg, matching the original contract.
func (h *PageHandler) ProductImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "nombre")

	product, err := h.catalog.GetProductByImageName(r.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondNotFound(w, r)
			return
		}
		h.logger.Error("Failed to load product image", zap.String("name", name), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load image")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(product.ImageBytes)
}

func (h *PageHandler) renderListing(w http.ResponseWriter, r *http.Request, flash string) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to load categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	h.view.Render(w, "product_list.html", pageData{
		Flash:      flash,
		Products:   products,
		Categories: categories,
	})
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func categoryIDs(categories []*domain.Category) map[int64]string {
	ids := make(map[int64]string, len(categories))
	for _, c := range categories {
		ids[c.ID] = c.Name
	}
	return ids
}
