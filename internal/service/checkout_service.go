package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/notify"
	"github.com/Lixing-Zhang/storefront/internal/payment"
	"github.com/Lixing-Zhang/storefront/internal/validation"
)

var (
	ErrPaymentNotFound   = errors.New("payment session not found")
	ErrPaymentSettled    = errors.New("payment session already settled")
	ErrReferenceMismatch = errors.New("gateway reference does not match payment session")
)

const (
	msgRequiredFields = "Please fill in all required fields (email, first name, last name)"
	msgEmptyCart      = "Your cart is empty or invalid"
	msgInvalidEmail   = "Please enter a valid email address"
)

// CartStore is the part of the cart the checkout flow reads and clears.
type CartStore interface {
	State() models.CartState
	ClearCart()
}

// CheckoutConfig controls how payment sessions are created.
type CheckoutConfig struct {
	ReferencePrefix     string
	Currency            string
	AmountMultiplier    int64
	PublicKey           string
	ScriptURL           string
	ConfirmationTimeout time.Duration
}

// CheckoutService hands the cart to the payment page and settles the outcome.
type CheckoutService struct {
	cart   CartStore
	sender notify.Sender
	cfg    CheckoutConfig
	log    *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*models.PaymentSession

	inflight sync.WaitGroup
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(cart CartStore, sender notify.Sender, cfg CheckoutConfig, log *slog.Logger) *CheckoutService {
	if cfg.AmountMultiplier <= 0 {
		cfg.AmountMultiplier = 100
	}
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	if cfg.ReferencePrefix == "" {
		cfg.ReferencePrefix = "order"
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 30 * time.Second
	}
	return &CheckoutService{
		cart:     cart,
		sender:   sender,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*models.PaymentSession),
	}
}

// Validate checks the checkout form and the cart it would pay for.
func (s *CheckoutService) Validate(customer models.CustomerDetails, cart models.CartState) error {
	if validation.Blank(customer.Email) || validation.Blank(customer.FirstName) || validation.Blank(customer.LastName) {
		return &validation.Error{Field: "customer", Message: msgRequiredFields}
	}
	if cart.IsEmpty() || cart.Total <= 0 {
		return &validation.Error{Field: "cart", Message: msgEmptyCart}
	}
	if !validation.IsEmail(strings.TrimSpace(customer.Email)) {
		return &validation.Error{Field: "email", Message: msgInvalidEmail}
	}
	return nil
}

// Start validates the form against the current cart and opens a pending payment session.
func (s *CheckoutService) Start(ctx context.Context, customer models.CustomerDetails) (*models.PaymentSession, error) {
	customer = trimCustomer(customer)
	cart := s.cart.State()

	if err := s.Validate(customer, cart); err != nil {
		return nil, err
	}

	now := s.now()
	ps := &models.PaymentSession{
		Reference: payment.NewReference(s.cfg.ReferencePrefix, now),
		Order: models.OrderSummary{
			Customer: customer,
			Lines:    cart.Lines,
			Total:    cart.Total,
		},
		Amount:    cart.Total * s.cfg.AmountMultiplier,
		Currency:  s.cfg.Currency,
		Status:    models.PaymentPending,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.sessions[ps.Reference] = ps
	out := clonePayment(ps)
	s.mu.Unlock()

	s.log.InfoContext(ctx, "payment session started",
		"reference", ps.Reference,
		"amount", ps.Amount,
		"items", len(ps.Order.Lines),
	)
	return out, nil
}

// PageData returns what the payment page needs for reference.
func (s *CheckoutService) PageData(reference, messageURL string) (payment.PageData, error) {
	ps, err := s.Status(reference)
	if err != nil {
		return payment.PageData{}, err
	}
	if ps.Status != models.PaymentPending {
		return payment.PageData{}, ErrPaymentSettled
	}
	c := ps.Order.Customer
	return payment.PageData{
		PublicKey:  s.cfg.PublicKey,
		ScriptURL:  s.cfg.ScriptURL,
		Email:      c.Email,
		Amount:     ps.Amount,
		Currency:   ps.Currency,
		Reference:  ps.Reference,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Phone:      c.Phone,
		MessageURL: messageURL,
	}, nil
}

// HandleMessage settles a session from a payment page message.
// A success clears the cart once and queues the order confirmation.
// A close cancels a pending session. Settled sessions are returned unchanged.
func (s *CheckoutService) HandleMessage(ctx context.Context, reference string, msg models.PaymentMessage) (*models.PaymentSession, error) {
	const op = "CheckoutService.HandleMessage"

	if err := payment.ValidateMessage(msg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	ps, ok := s.sessions[reference]
	if !ok {
		s.mu.Unlock()
		return nil, ErrPaymentNotFound
	}
	if ps.Status != models.PaymentPending {
		out := clonePayment(ps)
		s.mu.Unlock()
		s.log.InfoContext(ctx, "payment message for settled session ignored",
			"reference", reference, "type", msg.Type, "status", ps.Status)
		return out, nil
	}

	switch msg.Type {
	case models.MessageClosed:
		ps.Status = models.PaymentCancelled
		ps.SettledAt = s.now()
		out := clonePayment(ps)
		s.mu.Unlock()
		s.log.InfoContext(ctx, "payment cancelled", "reference", reference, "message", msg.Message)
		return out, nil

	case models.MessageSuccess:
		if msg.Data.Reference != reference {
			s.mu.Unlock()
			return nil, fmt.Errorf("%s: %w", op, ErrReferenceMismatch)
		}
		ps.Status = models.PaymentPaid
		ps.SettledAt = s.now()
		gw := *msg.Data
		ps.Transaction = &gw

		// Cleared under s.mu: a duplicate success must see PaymentPaid first.
		s.cart.ClearCart()

		code, err := notify.NewCode()
		if err != nil {
			ps.Confirmation = models.ConfirmationFailed
			out := clonePayment(ps)
			s.mu.Unlock()
			s.log.ErrorContext(ctx, "confirmation code generation failed", "reference", reference, "error", err)
			return out, nil
		}
		ps.ConfirmationCode = code
		ps.Confirmation = models.ConfirmationSending
		out := clonePayment(ps)
		s.inflight.Add(1)
		s.mu.Unlock()

		s.log.InfoContext(ctx, "payment successful", "reference", reference, "transaction", gw.Transaction)
		go s.sendConfirmation(context.WithoutCancel(ctx), out)
		return out, nil
	}

	s.mu.Unlock()
	return nil, fmt.Errorf("%s: %w", op, payment.ErrInvalidMessage)
}

func (s *CheckoutService) sendConfirmation(ctx context.Context, ps *models.PaymentSession) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmationTimeout)
	defer cancel()

	status := models.ConfirmationSent
	err := s.sender.Send(ctx, notify.Message{
		Kind:      notify.KindOrderConfirmation,
		To:        ps.Order.Customer.Email,
		Name:      ps.Order.Customer.FullName(),
		Code:      ps.ConfirmationCode,
		Reference: ps.Reference,
		Order:     &ps.Order,
	})
	if err != nil {
		status = models.ConfirmationFailed
		s.log.ErrorContext(ctx, "order confirmation not delivered", "reference", ps.Reference, "error", err)
	}

	s.mu.Lock()
	if cur, ok := s.sessions[ps.Reference]; ok {
		cur.Confirmation = status
	}
	s.mu.Unlock()
}

// Status returns a copy of the session for reference.
func (s *CheckoutService) Status(reference string) (*models.PaymentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.sessions[reference]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return clonePayment(ps), nil
}

// Wait blocks until every queued confirmation has finished.
func (s *CheckoutService) Wait() {
	s.inflight.Wait()
}

func trimCustomer(c models.CustomerDetails) models.CustomerDetails {
	c.Email = strings.TrimSpace(c.Email)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Size = strings.TrimSpace(c.Size)
	return c
}

func clonePayment(ps *models.PaymentSession) *models.PaymentSession {
	out := *ps
	out.Order.Lines = append([]models.CartLine(nil), ps.Order.Lines...)
	if ps.Transaction != nil {
		tx := *ps.Transaction
		out.Transaction = &tx
	}
	return &out
}
