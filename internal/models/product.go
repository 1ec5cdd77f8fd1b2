package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProduct is returned when a product is missing a required field.
var ErrInvalidProduct = errors.New("invalid product")

// Product represents a piece in the storefront catalog.
// Price is an integer amount in the catalog currency.
type Product struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PhotoURL     string `json:"photoUrl"`
	FullImageURL string `json:"fullImageUrl"`
	Size         int    `json:"size"`
	Price        int64  `json:"price"`
}

// NewProduct builds a Product and validates its required fields.
func NewProduct(id int64, name, photoURL, fullImageURL string, size int, price int64) (Product, error) {
	p := Product{
		ID:           id,
		Name:         strings.TrimSpace(name),
		PhotoURL:     photoURL,
		FullImageURL: fullImageURL,
		Size:         size,
		Price:        price,
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Validate checks the invariants every catalog product must hold.
func (p Product) Validate() error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidProduct, p.ID)
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Size <= 0:
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidProduct, p.Size)
	case p.Price < 0:
		return fmt.Errorf("%w: price cannot be negative, got %d", ErrInvalidProduct, p.Price)
	}
	return nil
}

// MustProduct is NewProduct for compiled-in catalog data; it panics on invalid input.
func MustProduct(id int64, name, photoURL, fullImageURL string, size int, price int64) Product {
	p, err := NewProduct(id, name, photoURL, fullImageURL, size, price)
	if err != nil {
		panic(err)
	}
	return p
}
