package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

var (
	ErrInvalidMessage = errors.New("invalid payment message")
	ErrMissingData    = errors.New("success message without gateway response")
)

const maxMessageBytes = 64 << 10

// DecodeMessage reads a message posted by the payment page.
func DecodeMessage(r io.Reader) (models.PaymentMessage, error) {
	var msg models.PaymentMessage
	if err := json.NewDecoder(io.LimitReader(r, maxMessageBytes)).Decode(&msg); err != nil {
		return models.PaymentMessage{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := ValidateMessage(msg); err != nil {
		return models.PaymentMessage{}, err
	}
	return msg, nil
}

// ValidateMessage checks the message type and, for success, the gateway response.
func ValidateMessage(msg models.PaymentMessage) error {
	switch msg.Type {
	case models.MessageSuccess:
		if msg.Data == nil || msg.Data.Reference == "" {
			return ErrMissingData
		}
	case models.MessageClosed:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
	return nil
}
