package models

// CartLine is a product plus the quantity the shopper wants.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price times quantity for the line.
func (l CartLine) Subtotal() int64 {
	return l.Product.Price * int64(l.Quantity)
}

// CartState is a snapshot of the cart. Total always equals the sum of line subtotals.
type CartState struct {
	Lines []CartLine `json:"lines"`
	Total int64      `json:"total"`
}

// ComputeTotal sums price*quantity over lines.
func ComputeTotal(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (s CartState) IsEmpty() bool {
	return len(s.Lines) == 0
}

// UniqueItems returns the number of distinct products in the cart.
func (s CartState) UniqueItems() int {
	return len(s.Lines)
}

// TotalQuantity returns the number of units across all lines.
func (s CartState) TotalQuantity() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

// Line returns the line for productID, if present.
func (s CartState) Line(productID int64) (CartLine, bool) {
	for _, l := range s.Lines {
		if l.Product.ID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// Quantity returns the quantity held for productID, or 0.
func (s CartState) Quantity(productID int64) int {
	l, _ := s.Line(productID)
	return l.Quantity
}

// Subtotal returns the line subtotal for productID, or 0.
func (s CartState) Subtotal(productID int64) int64 {
	l, _ := s.Line(productID)
	return l.Subtotal()
}

// FavoritesState is the set of liked products in insertion order.
type FavoritesState struct {
	Items []Product `json:"items"`
}

// Contains reports whether productID is a favorite.
func (s FavoritesState) Contains(productID int64) bool {
	for _, p := range s.Items {
		if p.ID == productID {
			return true
		}
	}
	return false
}
