package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/payment"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/pkg/money"
)

// CheckoutHandler hands the cart to the payment page and receives its result.
type CheckoutHandler struct {
	checkout *service.CheckoutService
	log      *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *service.CheckoutService, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		log:      log,
	}
}

// PaymentResponse is a payment session plus where to open its page.
type PaymentResponse struct {
	*models.PaymentSession
	FormattedTotal string `json:"formattedTotal"`
	PageURL        string `json:"pageUrl"`
}

func checkoutPath(reference string) string {
	return "/api/checkout/" + url.PathEscape(reference)
}

func newPaymentResponse(ps *models.PaymentSession) PaymentResponse {
	return PaymentResponse{
		PaymentSession: ps,
		FormattedTotal: money.Format(ps.Order.Total),
		PageURL:        checkoutPath(ps.Reference) + "/page",
	}
}

// Start handles POST /api/checkout
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	var customer models.CustomerDetails
	if err := decodeJSON(r, &customer); err != nil {
		h.log.Warn("failed to decode checkout request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	ps, err := h.checkout.Start(r.Context(), customer)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusCreated, newPaymentResponse(ps), h.log)
}

// Status handles GET /api/checkout/{reference}
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	ps, err := h.checkout.Status(chi.URLParam(r, "reference"))
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, newPaymentResponse(ps), h.log)
}

// Page handles GET /api/checkout/{reference}/page
func (h *CheckoutHandler) Page(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	data, err := h.checkout.PageData(reference, checkoutPath(reference)+"/message")
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}

	var buf bytes.Buffer
	if err := payment.RenderPage(&buf, data); err != nil {
		h.log.Error("failed to render payment page", "reference", reference, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Error("failed to write payment page", "reference", reference, "error", err)
	}
}

// Message handles POST /api/checkout/{reference}/message
func (h *CheckoutHandler) Message(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	msg, err := payment.DecodeMessage(r.Body)
	if err != nil {
		h.log.Warn("invalid payment message", "reference", reference, "error", err)
		writeServiceError(w, err, h.log)
		return
	}

	ps, err := h.checkout.HandleMessage(r.Context(), reference, msg)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, newPaymentResponse(ps), h.log)
}
