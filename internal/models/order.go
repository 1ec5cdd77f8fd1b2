package models

import "time"

// CustomerDetails are the contact fields collected by the checkout form.
// Email, FirstName and LastName are required.
type CustomerDetails struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Size      string `json:"size,omitempty"`
}

// FullName joins first and last name.
func (c CustomerDetails) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// OrderSummary is the customer plus the cart snapshot handed to the payment page.
type OrderSummary struct {
	Customer CustomerDetails `json:"customer"`
	Lines    []CartLine      `json:"lines"`
	Total    int64           `json:"total"`
}

// PaymentStatus tracks a payment session through the gateway.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// ConfirmationStatus tracks delivery of the post-purchase confirmation.
type ConfirmationStatus string

const (
	ConfirmationNone    ConfirmationStatus = ""
	ConfirmationSending ConfirmationStatus = "sending"
	ConfirmationSent    ConfirmationStatus = "sent"
	ConfirmationFailed  ConfirmationStatus = "failed"
)

// PaymentSession is one handoff to the payment page.
type PaymentSession struct {
	Reference        string             `json:"reference"`
	Order            OrderSummary       `json:"order"`
	Amount           int64              `json:"amount"`
	Currency         string             `json:"currency"`
	Status           PaymentStatus      `json:"status"`
	Transaction      *GatewayResponse   `json:"transaction,omitempty"`
	ConfirmationCode string             `json:"confirmationCode,omitempty"`
	Confirmation     ConfirmationStatus `json:"confirmation,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	SettledAt        time.Time          `json:"settledAt,omitzero"`
}

// GatewayResponse is the payload the payment widget passes to its success callback.
type GatewayResponse struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	Trans       string `json:"trans"`
	Transaction string `json:"transaction"`
	Trxref      string `json:"trxref"`
	Message     string `json:"message"`
}

// Payment page message types.
const (
	MessageSuccess = "success"
	MessageClosed  = "closed"
)

// PaymentMessage is what the payment page posts back to the host.
type PaymentMessage struct {
	Type    string           `json:"type"`
	Data    *GatewayResponse `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
}
