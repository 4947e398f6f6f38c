package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"geekshelf/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindByImageName(ctx context.Context, name string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, stock, release_date, image_filename, image_key, image_bytes, category_id, created_at, updated_at`

// Create inserts a new product and fills in its generated id.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, stock, release_date, image_filename, image_key, image_bytes, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Stock,
		product.ReleaseDate,
		product.ImageFilename,
		product.ImageKey,
		product.ImageBytes,
		product.CategoryID,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update overwrites every mutable field of an existing product in place.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, stock = $3, release_date = $4, image_filename = $5,
		    image_key = $6, image_bytes = $7, category_id = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Stock,
		product.ReleaseDate,
		product.ImageFilename,
		product.ImageKey,
		product.ImageBytes,
		product.CategoryID,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product row.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by its id.
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product := &domain.Product{}
	err := r.scanProduct(r.db.QueryRowContext(ctx, query, id), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByImageName retrieves the product whose image was uploaded under the
// given filename. Filenames are not unique; the first match by id wins.
func (r *productRepository) FindByImageName(ctx context.Context, name string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM products
		WHERE image_filename = $1
		ORDER BY id ASC
		LIMIT 1
	`, productColumns)

	product := &domain.Product{}
	err := r.scanProduct(r.db.QueryRowContext(ctx, query, name), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by image name: %w", err)
	}

	return product, nil
}

// List retrieves all products in insertion order.
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id ASC`, productColumns)
	return r.queryProducts(ctx, query)
}

// ListByCategory retrieves all products belonging to one category.
func (r *productRepository) ListByCategory(ctx context.Context, categoryID int64) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE category_id = $1 ORDER BY id ASC`, productColumns)
	return r.queryProducts(ctx, query, categoryID)
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		if err := r.scanProduct(rows, product); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *productRepository) scanProduct(row rowScanner, product *domain.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Stock,
		&product.ReleaseDate,
		&product.ImageFilename,
		&product.ImageKey,
		&product.ImageBytes,
		&product.CategoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}
