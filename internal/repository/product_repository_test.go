package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"testing"
	"time"

	"geekshelf/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name VARCHAR(50) NOT NULL UNIQUE
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`INSERT INTO categories (name) VALUES ('Movie'), ('Funko'), ('Comic')`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			stock INTEGER NOT NULL CHECK (stock >= 0),
			release_date DATE NOT NULL,
			image_filename VARCHAR(255) NOT NULL DEFAULT '',
			image_key VARCHAR(255) NOT NULL DEFAULT '',
			image_bytes BYTEA,
			category_id BIGINT NOT NULL REFERENCES categories (id),
			created_at TIMESTAMP NOT NULL DEFAULT now(),
			updated_at TIMESTAMP NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func clearProducts(t *testing.T) {
	t.Helper()
	if _, err := testDB.Exec("DELETE FROM products"); err != nil {
		t.Fatalf("failed to clear products: %v", err)
	}
}

func newProduct(name string, stock int, categoryID int64, imageFilename string, imageBytes []byte) *domain.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Product{
		Name:          name,
		Stock:         stock,
		ReleaseDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		ImageFilename: imageFilename,
		ImageKey:      "key-" + imageFilename,
		ImageBytes:    imageBytes,
		CategoryID:    categoryID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestProperty_CreateAndFindRoundTrip(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("created products are retrievable with identical fields", prop.ForAll(
		func(name string, stock int, imageBytes []byte) bool {
			clearProducts(t)

			product := newProduct(name, stock, 2, name+".png", imageBytes)
			if err := repo.Create(ctx, product); err != nil {
				t.Logf("Failed to create product: %v", err)
				return false
			}
			if product.ID == 0 {
				t.Logf("Create did not fill in the generated id")
				return false
			}

			found, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("Failed to find product: %v", err)
				return false
			}

			if found.Name != name || found.Stock != stock || found.CategoryID != 2 {
				return false
			}
			if found.ImageFilename != name+".png" || found.ImageKey != "key-"+name+".png" {
				return false
			}
			if len(found.ImageBytes) != len(imageBytes) {
				return false
			}
			if found.ReleaseDate.Format("2006-01-02") != "2024-03-15" {
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Za-z][A-Za-z0-9 ]{2,40}`),
		gen.IntRange(0, 10000),
		gen.SliceOfN(32, gen.UInt8()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNegativeStockIsRejectedBySchema(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)

	product := newProduct("Bad Stock", -1, 1, "bad.png", []byte{1})
	if err := repo.Create(context.Background(), product); err == nil {
		t.Fatal("expected the stock check constraint to reject a negative value")
	}
}

func TestUnknownCategoryIsRejectedBySchema(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)

	product := newProduct("Bad Category", 1, 99, "bad.png", []byte{1})
	if err := repo.Create(context.Background(), product); err == nil {
		t.Fatal("expected the foreign key to reject an unknown category")
	}
}

func TestFindByImageNameReturnsLowestID(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	first := newProduct("First", 1, 1, "shared.png", []byte{1})
	second := newProduct("Second", 2, 2, "shared.png", []byte{2})
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("failed to create first product: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("failed to create second product: %v", err)
	}

	found, err := repo.FindByImageName(ctx, "shared.png")
	if err != nil {
		t.Fatalf("failed to find product by image name: %v", err)
	}
	if found.ID != first.ID {
		t.Errorf("expected the lowest id %d to win, got %d", first.ID, found.ID)
	}
}

func TestFindByImageNameUnknownName(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)

	_, err := repo.FindByImageName(context.Background(), "nope.png")
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListReturnsProductsInInsertionOrder(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	names := []string{"Alpha", "Beta", "Gamma"}
	for _, name := range names {
		if err := repo.Create(ctx, newProduct(name, 1, 1, name+".png", []byte{1})); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	products, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list products: %v", err)
	}
	if len(products) != len(names) {
		t.Fatalf("expected %d products, got %d", len(names), len(products))
	}
	for i, name := range names {
		if products[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, products[i].Name)
		}
	}
}

func TestListByCategoryFiltersRows(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	if err := repo.Create(ctx, newProduct("Movie Item", 1, 1, "m.png", []byte{1})); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	if err := repo.Create(ctx, newProduct("Funko Item", 1, 2, "f.png", []byte{1})); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	funkos, err := repo.ListByCategory(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list by category: %v", err)
	}
	if len(funkos) != 1 || funkos[0].Name != "Funko Item" {
		t.Errorf("expected only the funko row, got %+v", funkos)
	}
}

func TestUpdateOverwritesFields(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := newProduct("Before", 1, 1, "before.png", []byte{1})
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	product.Name = "After"
	product.Stock = 9
	product.CategoryID = 3
	product.ImageFilename = "after.png"
	product.ImageKey = "key-after.png"
	product.ImageBytes = []byte{2, 2}
	product.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	if err := repo.Update(ctx, product); err != nil {
		t.Fatalf("failed to update product: %v", err)
	}

	found, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("failed to find product: %v", err)
	}
	if found.Name != "After" || found.Stock != 9 || found.CategoryID != 3 {
		t.Errorf("fields were not overwritten: %+v", found)
	}
	if found.ImageFilename != "after.png" {
		t.Errorf("image filename was not overwritten: %s", found.ImageFilename)
	}
}

func TestUpdateMissingProduct(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)

	product := newProduct("Ghost", 1, 1, "ghost.png", []byte{1})
	product.ID = 424242

	err := repo.Update(context.Background(), product)
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := newProduct("Doomed", 1, 1, "doomed.png", []byte{1})
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	if err := repo.Delete(ctx, product.ID); err != nil {
		t.Fatalf("failed to delete product: %v", err)
	}

	_, err := repo.FindByID(ctx, product.ID)
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound after delete, got %v", err)
	}
}

func TestDeleteMissingProduct(t *testing.T) {
	clearProducts(t)
	repo := NewProductRepository(testDB)

	err := repo.Delete(context.Background(), 424242)
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCategoryRepositoryListsSeededCategories(t *testing.T) {
	repo := NewCategoryRepository(testDB)

	categories, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("failed to list categories: %v", err)
	}
	if len(categories) != 3 {
		t.Fatalf("expected 3 seeded categories, got %d", len(categories))
	}

	expected := []string{"Movie", "Funko", "Comic"}
	for i, name := range expected {
		if categories[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, categories[i].Name)
		}
	}
}

func TestCategoryRepositoryFindByID(t *testing.T) {
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	category, err := repo.FindByID(ctx, 2)
	if err != nil {
		t.Fatalf("failed to find category: %v", err)
	}
	if category.Name != "Funko" {
		t.Errorf("expected Funko, got %s", category.Name)
	}

	_, err = repo.FindByID(ctx, 99)
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}
