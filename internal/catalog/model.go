package catalog

import (
	"errors"
	"time"
)

var (
	// ErrInvalidPrice is returned when a listing price is not positive.
	ErrInvalidPrice = errors.New("catalog: invalid price")
	// ErrInvalidCategory is returned for a category outside the closed set.
	ErrInvalidCategory = errors.New("catalog: invalid category")
	// ErrNotFound is returned when no product exists for the given id.
	ErrNotFound = errors.New("catalog: product not found")
)

// Category is the closed set of product categories.
type Category string

const (
	CategoryGrains    Category = "grains"
	CategoryCrafts    Category = "crafts"
	CategoryFashion   Category = "fashion"
	CategoryHomeDecor Category = "home-decor"
)

// Categories lists every valid category.
var Categories = []Category{CategoryGrains, CategoryCrafts, CategoryFashion, CategoryHomeDecor}

// ParseCategory validates a raw category string.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if s == string(c) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// Product is a seller listing. Products are never deleted; the
// availability flag flips false when an order is placed and only the
// settlement engine mutates it.
type Product struct {
	ID        uint64    `json:"id"`
	SellerID  string    `json:"seller_id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Price     int64     `json:"price"`
	Available bool      `json:"available"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
