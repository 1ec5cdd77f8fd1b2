package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/pkg/money"
)

// CartHandler exposes the cart store over HTTP.
type CartHandler struct {
	cart     *cart.Store
	products *service.ProductService
	log      *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(store *cart.Store, products *service.ProductService, log *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:     store,
		products: products,
		log:      log,
	}
}

// ItemRequest names a catalog product.
type ItemRequest struct {
	ProductID int64 `json:"productId"`
}

// CartLineResponse is one cart line with its subtotal.
type CartLineResponse struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
	Subtotal int64          `json:"subtotal"`
}

// CartResponse is the cart plus the totals the cart screen shows.
type CartResponse struct {
	Lines          []CartLineResponse `json:"lines"`
	Total          int64              `json:"total"`
	FormattedTotal string             `json:"formattedTotal"`
	TotalQuantity  int                `json:"totalQuantity"`
	UniqueItems    int                `json:"uniqueItems"`
}

func newCartResponse(state models.CartState) CartResponse {
	lines := make([]CartLineResponse, 0, len(state.Lines))
	for _, l := range state.Lines {
		lines = append(lines, CartLineResponse{Product: l.Product, Quantity: l.Quantity, Subtotal: l.Subtotal()})
	}
	return CartResponse{
		Lines:          lines,
		Total:          state.Total,
		FormattedTotal: money.Format(state.Total),
		TotalQuantity:  state.TotalQuantity(),
		UniqueItems:    state.UniqueItems(),
	}
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, newCartResponse(h.cart.State()), h.log)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log.Warn("failed to decode cart request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}
	if req.ProductID <= 0 {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}

	product, err := h.products.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			WriteError(w, http.StatusNotFound, "Product not found", h.log)
			return
		}
		writeServiceError(w, err, h.log)
		return
	}

	h.cart.AddToCart(*product)
	h.log.Info("added to cart", "productId", product.ID)
	WriteJSON(w, http.StatusOK, newCartResponse(h.cart.State()), h.log)
}

// RemoveItem handles DELETE /api/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.withProductID(w, r, h.cart.RemoveFromCart)
}

// IncrementItem handles POST /api/cart/items/{productId}/increment
func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.withProductID(w, r, h.cart.IncrementQuantity)
}

// DecrementItem handles POST /api/cart/items/{productId}/decrement
func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.withProductID(w, r, h.cart.DecrementQuantity)
}

// DecrementOrRemoveItem handles POST /api/cart/items/{productId}/decrement-or-remove
func (h *CartHandler) DecrementOrRemoveItem(w http.ResponseWriter, r *http.Request) {
	h.withProductID(w, r, h.cart.DecrementOrRemove)
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.ClearCart()
	WriteJSON(w, http.StatusOK, newCartResponse(h.cart.State()), h.log)
}

func (h *CartHandler) withProductID(w http.ResponseWriter, r *http.Request, apply func(int64)) {
	productID, err := productIDParam(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}
	apply(productID)
	WriteJSON(w, http.StatusOK, newCartResponse(h.cart.State()), h.log)
}
