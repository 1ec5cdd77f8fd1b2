package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
}

// StaticProductRepository serves the compiled-in catalog. It is read-only.
type StaticProductRepository struct {
	products map[int64]models.Product
	order    []int64
}

// catalog is the fixed product list shipped with the app.
var catalog = []models.Product{
	models.MustProduct(1, "The Atlantic City piece", "images/ATL.jpeg", "images/FULLATL.jpg", 42, 40000),
	models.MustProduct(2, "Eyo Adimu piece", "images/eyofront.png", "images/eyo.jpeg", 44, 40000),
	models.MustProduct(6, "Ibadan brown roof piece", "images/ibadan.png", "images/FULLIB.jpg", 44, 40000),
	models.MustProduct(9, "Kwara state piece", "images/map.jpeg", "images/mapk.jpeg", 44, 40000),
	models.MustProduct(10, "Ogun piece", "images/ogun.jpeg", "images/FULLOGUN.jpg", 44, 40000),
	models.MustProduct(11, "Lagos street piece", "images/bus.jpeg", "images/FULLBUS.png", 44, 40000),
	models.MustProduct(12, "Kurmi piece", "images/kurmifront.png", "images/newfullk.png", 44, 40000),
}

// NewStaticProductRepository creates a repository seeded with the shipped catalog
func NewStaticProductRepository() *StaticProductRepository {
	return NewProductRepository(catalog)
}

// NewProductRepository creates a repository over an explicit product list.
// Later duplicates of an ID replace earlier ones.
func NewProductRepository(products []models.Product) *StaticProductRepository {
	r := &StaticProductRepository{
		products: make(map[int64]models.Product, len(products)),
	}
	for _, p := range products {
		if _, exists := r.products[p.ID]; !exists {
			r.order = append(r.order, p.ID)
		}
		r.products[p.ID] = p
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
	return r
}

// GetAll returns all products ordered by ID
func (r *StaticProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0, len(r.order))
	for _, id := range r.order {
		products = append(products, r.products[id])
	}
	return products, nil
}

// GetByID returns a product by its ID
func (r *StaticProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	product, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}
