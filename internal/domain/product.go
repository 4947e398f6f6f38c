package domain

import "time"

// MaxImageBytes is the largest image payload a product row may carry.
const MaxImageBytes = 64 * 1024

// Product represents a collectible in the catalog. Its image is persisted
// twice: ImageBytes in the row (the source of truth) and a disk copy named
// after ImageKey. ImageFilename is the name the file was uploaded under and
// is kept as display metadata only, never used as a disk path.
type Product struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Stock         int       `json:"stock" db:"stock"`
	ReleaseDate   time.Time `json:"release_date" db:"release_date"`
	ImageFilename string    `json:"image_filename" db:"image_filename"`
	ImageKey      string    `json:"-" db:"image_key"`
	ImageBytes    []byte    `json:"-" db:"image_bytes"`
	CategoryID    int64     `json:"category_id" db:"category_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Category is a fixed classification a product belongs to. Categories are
// seeded by migration and never mutated or deleted by handlers.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
