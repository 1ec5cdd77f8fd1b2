// Package favorites holds the liked-products set. It shares nothing with
// the cart; adding a favorite never changes cart contents.
package favorites

import (
	"sync"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

// Store keeps the liked products, at most one entry per product ID.
type Store struct {
	mu    sync.Mutex
	items []models.Product
}

// NewStore returns an empty favorites store.
func NewStore() *Store {
	return &Store{}
}

// AddToFavorites inserts product unless its ID is already present.
func (s *Store) AddToFavorites(product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(product.ID) < 0 {
		s.items = append(s.items, product)
	}
}

// RemoveFromFavorites deletes productID if present.
func (s *Store) RemoveFromFavorites(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(productID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

// Toggle flips membership and reports whether product is a favorite afterwards.
func (s *Store) Toggle(product models.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(product.ID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		return false
	}
	s.items = append(s.items, product)
	return true
}

// Contains reports whether productID is a favorite.
func (s *Store) Contains(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index(productID) >= 0
}

// State returns a snapshot of the favorites.
func (s *Store) State() models.FavoritesState {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.Product, len(s.items))
	copy(items, s.items)
	return models.FavoritesState{Items: items}
}

func (s *Store) index(productID int64) int {
	for i, p := range s.items {
		if p.ID == productID {
			return i
		}
	}
	return -1
}
