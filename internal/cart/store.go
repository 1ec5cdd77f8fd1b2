// Package cart holds the shopping cart state container.
//
// Every transition runs under one lock, in the order it is dispatched, and
// recomputes the total from the lines before releasing it. Readers only ever
// see copies taken between transitions.
package cart

import (
	"sync"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

// Store is the cart state container. The zero value is an empty cart ready for use.
type Store struct {
	mu    sync.Mutex
	lines []models.CartLine
	total int64
}

// NewStore creates an empty cart.
func NewStore() *Store {
	return &Store{}
}

// AddToCart adds one unit of product, creating the line if needed.
func (s *Store) AddToCart(product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(product.ID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, models.CartLine{Product: product, Quantity: 1})
	}
	s.recompute()
}

// DecrementOrRemove takes one unit off the line and drops the line when it
// would reach zero. Unknown IDs are ignored.
func (s *Store) DecrementOrRemove(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(productID)
	if i < 0 {
		return
	}
	if s.lines[i].Quantity > 1 {
		s.lines[i].Quantity--
	} else {
		s.removeAt(i)
	}
	s.recompute()
}

// IncrementQuantity adds one unit to an existing line.
func (s *Store) IncrementQuantity(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(productID); i >= 0 {
		s.lines[i].Quantity++
		s.recompute()
	}
}

// DecrementQuantity takes one unit off an existing line but never below 1.
func (s *Store) DecrementQuantity(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(productID); i >= 0 && s.lines[i].Quantity > 1 {
		s.lines[i].Quantity--
		s.recompute()
	}
}

// RemoveFromCart deletes the line for productID if present.
func (s *Store) RemoveFromCart(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(productID); i >= 0 {
		s.removeAt(i)
		s.recompute()
	}
}

// ClearCart empties the cart.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.total = 0
}

// State returns a snapshot of the cart.
func (s *Store) State() models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]models.CartLine, len(s.lines))
	copy(lines, s.lines)
	return models.CartState{Lines: lines, Total: s.total}
}

func (s *Store) index(productID int64) int {
	for i, l := range s.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}

// recompute must be called with mu held.
func (s *Store) recompute() {
	s.total = models.ComputeTotal(s.lines)
}
