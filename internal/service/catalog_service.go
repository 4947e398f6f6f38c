package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geekshelf/internal/domain"
	"geekshelf/internal/media"
	"geekshelf/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrImageTooLarge = errors.New("image exceeds the 64KB limit")
)

// CreateProductInput carries the fields of a new product.
type CreateProductInput struct {
	Name          string
	Stock         int
	ReleaseDate   time.Time
	ImageFilename string
	ImageBytes    []byte
	CategoryID    int64
}

// UpdateProductInput overwrites the mutable fields of a product. The image
// fields are only touched when ImageFilename is non-empty.
type UpdateProductInput struct {
	Name          string
	Stock         int
	ReleaseDate   time.Time
	CategoryID    int64
	ImageFilename string
	ImageBytes    []byte
}

// CatalogService defines the business logic over products and categories.
type CatalogService interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) error
	DeleteProduct(ctx context.Context, id int64) error
	GetProductByImageName(ctx context.Context, name string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	mediaStore *media.Store
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	mediaStore *media.Store,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		products:   products,
		categories: categories,
		mediaStore: mediaStore,
		logger:     logger,
	}
}

// CreateProduct persists a new product row and writes the disk copy of its
// image. The row is the source of truth: the dual write is not transactional,
// and a failed disk write leaves the row standing with a logged warning.
func (s *catalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if len(input.ImageBytes) > domain.MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	now := time.Now()
	product := &domain.Product{
		Name:          input.Name,
		Stock:         input.Stock,
		ReleaseDate:   input.ReleaseDate,
		ImageFilename: input.ImageFilename,
		ImageBytes:    input.ImageBytes,
		CategoryID:    input.CategoryID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	key, err := s.mediaStore.Save(input.ImageBytes)
	if err != nil {
		// The disk copy is denormalized; the row still gets written.
		s.logger.Warn("Failed to write disk copy of product image",
			zap.String("filename", input.ImageFilename),
			zap.Error(err),
		)
	}
	product.ImageKey = key

	if err := s.products.Create(ctx, product); err != nil {
		if key != "" {
			_ = s.mediaStore.Remove(key)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// GetProduct retrieves one product by id.
func (s *catalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// ListProducts retrieves all products in insertion order.
func (s *catalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

// ListProductsByCategory retrieves all products in one category.
func (s *catalogService) ListProductsByCategory(ctx context.Context, categoryID int64) ([]*domain.Product, error) {
	return s.products.ListByCategory(ctx, categoryID)
}

// UpdateProduct overwrites every mutable field of a product. When a new image
// is supplied, the disk copy is rewritten under a fresh key and the old copy
// removed, keeping row and disk in sync.
func (s *catalogService) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}

	product.Name = input.Name
	product.Stock = input.Stock
	product.ReleaseDate = input.ReleaseDate
	product.CategoryID = input.CategoryID
	product.UpdatedAt = time.Now()

	oldKey := ""
	if input.ImageFilename != "" {
		if len(input.ImageBytes) > domain.MaxImageBytes {
			return ErrImageTooLarge
		}

		key, err := s.mediaStore.Save(input.ImageBytes)
		if err != nil {
			s.logger.Warn("Failed to write disk copy of product image",
				zap.String("filename", input.ImageFilename),
				zap.Error(err),
			)
		}

		oldKey = product.ImageKey
		product.ImageFilename = input.ImageFilename
		product.ImageBytes = input.ImageBytes
		product.ImageKey = key
	}

	if err := s.products.Update(ctx, product); err != nil {
		return err
	}

	if oldKey != "" && oldKey != product.ImageKey {
		if err := s.mediaStore.Remove(oldKey); err != nil {
			s.logger.Warn("Failed to remove stale disk copy", zap.String("key", oldKey), zap.Error(err))
		}
	}

	return nil
}

// DeleteProduct removes a product row and its disk copy. Deleting an id that
// does not exist is a no-op, not an error.
func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil
		}
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil
		}
		return err
	}

	if err := s.mediaStore.Remove(product.ImageKey); err != nil {
		s.logger.Warn("Failed to remove disk copy of deleted product",
			zap.Int64("id", id),
			zap.String("key", product.ImageKey),
			zap.Error(err),
		)
	}

	return nil
}

// GetProductByImageName retrieves the product whose image was uploaded under
// the given filename.
func (s *catalogService) GetProductByImageName(ctx context.Context, name string) (*domain.Product, error) {
	return s.products.FindByImageName(ctx, name)
}

// ListCategories retrieves the seeded category set.
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}
