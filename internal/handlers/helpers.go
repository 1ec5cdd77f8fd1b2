package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/storefront/internal/identity"
	"github.com/Lixing-Zhang/storefront/internal/payment"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/validation"
)

const maxBodyBytes = 1 << 20

var errInvalidID = errors.New("invalid product id")

// productIDParam reads the {productId} URL parameter.
func productIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeServiceError maps service and identity errors to a status code and user message.
func writeServiceError(w http.ResponseWriter, err error, log *slog.Logger) {
	var verr *validation.Error
	var ierr *identity.Error

	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, verr.Message, log)
	case errors.Is(err, repository.ErrProductNotFound):
		WriteError(w, http.StatusNotFound, "Product not found", log)
	case errors.Is(err, service.ErrNotAuthenticated):
		WriteError(w, http.StatusUnauthorized, "Please sign in to continue", log)
	case errors.Is(err, service.ErrAlreadyRegistered):
		WriteError(w, http.StatusConflict, "An account with this email already exists. Please sign in instead.", log)
	case errors.Is(err, service.ErrInvalidResendKind):
		WriteError(w, http.StatusBadRequest, "Unknown resend type", log)
	case errors.Is(err, service.ErrPaymentNotFound):
		WriteError(w, http.StatusNotFound, "Payment not found", log)
	case errors.Is(err, service.ErrPaymentSettled):
		WriteError(w, http.StatusConflict, "Payment already completed", log)
	case errors.Is(err, service.ErrReferenceMismatch),
		errors.Is(err, payment.ErrInvalidMessage),
		errors.Is(err, payment.ErrMissingData):
		WriteError(w, http.StatusBadRequest, "Invalid payment message", log)
	case errors.As(err, &ierr):
		WriteError(w, identity.StatusOf(err), identity.Message(err), log)
	default:
		log.Error("unhandled error", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", log)
	}
}
