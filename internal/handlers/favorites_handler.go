package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/favorites"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/service"
)

// FavoritesHandler exposes the favorites store over HTTP.
type FavoritesHandler struct {
	favorites *favorites.Store
	products  *service.ProductService
	log       *slog.Logger
}

// NewFavoritesHandler creates a new favorites handler
func NewFavoritesHandler(store *favorites.Store, products *service.ProductService, log *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		favorites: store,
		products:  products,
		log:       log,
	}
}

// ToggleResponse reports whether the product is a favorite after the toggle.
type ToggleResponse struct {
	Favorite bool             `json:"favorite"`
	Items    []models.Product `json:"items"`
}

// ListFavorites handles GET /api/favorites
func (h *FavoritesHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.favorites.State(), h.log)
}

// AddFavorite handles POST /api/favorites
func (h *FavoritesHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log.Warn("failed to decode favorites request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}
	if req.ProductID <= 0 {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}

	product, err := h.products.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}

	h.favorites.AddToFavorites(*product)
	WriteJSON(w, http.StatusOK, h.favorites.State(), h.log)
}

// RemoveFavorite handles DELETE /api/favorites/{productId}
func (h *FavoritesHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}

	h.favorites.RemoveFromFavorites(productID)
	WriteJSON(w, http.StatusOK, h.favorites.State(), h.log)
}

// ToggleFavorite handles POST /api/favorites/{productId}/toggle
func (h *FavoritesHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}

	product, err := h.products.GetProduct(r.Context(), productID)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}

	favorite := h.favorites.Toggle(*product)
	WriteJSON(w, http.StatusOK, ToggleResponse{
		Favorite: favorite,
		Items:    h.favorites.State().Items,
	}, h.log)
}
