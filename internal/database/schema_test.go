package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationFilesExist(t *testing.T) {
	migrationsDir := "../../migrations"

	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_categories_table.sql",
		"00002_create_products_table.sql",
		"00003_seed_categories.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	migrationsDir := "../../migrations"

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No migration files found")
	}
}

func TestProductsMigrationEnforcesInvariants(t *testing.T) {
	content, err := os.ReadFile("../../migrations/00002_create_products_table.sql")
	if err != nil {
		t.Fatalf("Failed to read products migration: %v", err)
	}

	schema := string(content)

	if !strings.Contains(schema, "REFERENCES categories") {
		t.Error("products table must carry a foreign key to categories")
	}
	if !strings.Contains(schema, "CHECK (stock >= 0)") {
		t.Error("products table must reject negative stock")
	}
	if !strings.Contains(schema, "image_bytes BYTEA") {
		t.Error("products table must store image bytes as BYTEA")
	}
}
