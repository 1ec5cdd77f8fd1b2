package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/notify"
	"github.com/Lixing-Zhang/storefront/internal/payment"
	"github.com/Lixing-Zhang/storefront/internal/validation"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingSender) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.sent...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	productOne = models.MustProduct(1, "The Atlantic City piece", "a.jpeg", "A.jpg", 42, 40000)
	productTwo = models.MustProduct(2, "Eyo Adimu piece", "e.png", "E.jpeg", 44, 40000)
	customer   = models.CustomerDetails{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}
)

func newCheckout(t *testing.T, sender notify.Sender) (*CheckoutService, *cart.Store) {
	t.Helper()
	store := cart.NewStore()
	store.AddToCart(productOne)
	store.AddToCart(productOne)
	store.AddToCart(productTwo)
	svc := NewCheckoutService(store, sender, CheckoutConfig{ReferencePrefix: "blackfit", PublicKey: "pk_test"}, discardLogger())
	return svc, store
}

func successFor(ref string) models.PaymentMessage {
	return models.PaymentMessage{
		Type: models.MessageSuccess,
		Data: &models.GatewayResponse{Reference: ref, Status: "success", Transaction: "42", Trxref: ref},
	}
}

func TestCheckoutService_Validate(t *testing.T) {
	svc, store := newCheckout(t, &recordingSender{})
	full := store.State()

	tests := []struct {
		name    string
		cust    models.CustomerDetails
		cart    models.CartState
		wantMsg string
	}{
		{
			name: "valid",
			cust: customer,
			cart: full,
		},
		{
			name:    "empty email",
			cust:    models.CustomerDetails{FirstName: "Ada", LastName: "Lovelace"},
			cart:    full,
			wantMsg: msgRequiredFields,
		},
		{
			name:    "blank last name",
			cust:    models.CustomerDetails{Email: "ada@example.com", FirstName: "Ada", LastName: "  "},
			cart:    full,
			wantMsg: msgRequiredFields,
		},
		{
			name:    "empty cart",
			cust:    customer,
			cart:    models.CartState{},
			wantMsg: msgEmptyCart,
		},
		{
			name:    "malformed email",
			cust:    models.CustomerDetails{Email: "ada@example", FirstName: "Ada", LastName: "Lovelace"},
			cart:    full,
			wantMsg: msgInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Validate(tt.cust, tt.cart)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var verr *validation.Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantMsg, verr.Message)
		})
	}
}

func TestCheckoutService_Start(t *testing.T) {
	svc, _ := newCheckout(t, &recordingSender{})

	ps, err := svc.Start(context.Background(), models.CustomerDetails{
		Email: "  ada@example.com ", FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ps.Reference, "blackfit_"))
	assert.Equal(t, models.PaymentPending, ps.Status)
	assert.Equal(t, int64(120000), ps.Order.Total)
	assert.Equal(t, int64(12000000), ps.Amount)
	assert.Equal(t, "NGN", ps.Currency)
	assert.Equal(t, "ada@example.com", ps.Order.Customer.Email)
	assert.Len(t, ps.Order.Lines, 2)

	data, err := svc.PageData(ps.Reference, "/api/checkout/"+ps.Reference+"/message")
	require.NoError(t, err)
	assert.Equal(t, "pk_test", data.PublicKey)
	assert.Equal(t, ps.Amount, data.Amount)
	assert.Equal(t, "Ada", data.FirstName)
}

func TestCheckoutService_StartRejectsEmptyCart(t *testing.T) {
	svc := NewCheckoutService(cart.NewStore(), &recordingSender{}, CheckoutConfig{}, discardLogger())

	_, err := svc.Start(context.Background(), customer)
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, msgEmptyCart, verr.Message)
}

func TestCheckoutService_SuccessClearsCartOnce(t *testing.T) {
	sender := &recordingSender{}
	svc, store := newCheckout(t, sender)
	ctx := context.Background()

	ps, err := svc.Start(ctx, customer)
	require.NoError(t, err)

	got, err := svc.HandleMessage(ctx, ps.Reference, successFor(ps.Reference))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.Status)
	assert.Len(t, got.ConfirmationCode, 6)
	assert.True(t, store.State().IsEmpty())

	// refill, then replay the success
	store.AddToCart(productTwo)
	again, err := svc.HandleMessage(ctx, ps.Reference, successFor(ps.Reference))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, again.Status)
	assert.Equal(t, got.ConfirmationCode, again.ConfirmationCode)
	assert.Equal(t, 1, store.State().TotalQuantity())

	svc.Wait()
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.KindOrderConfirmation, msgs[0].Kind)
	assert.Equal(t, "ada@example.com", msgs[0].To)
	assert.Equal(t, "Ada Lovelace", msgs[0].Name)
	assert.Equal(t, got.ConfirmationCode, msgs[0].Code)
	assert.Equal(t, int64(120000), msgs[0].Order.Total)

	status, err := svc.Status(ps.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.ConfirmationSent, status.Confirmation)
}

func TestCheckoutService_ConcurrentSuccessClearsOnce(t *testing.T) {
	sender := &recordingSender{}
	svc, _ := newCheckout(t, sender)
	ctx := context.Background()

	ps, err := svc.Start(ctx, customer)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.HandleMessage(ctx, ps.Reference, successFor(ps.Reference))
		}()
	}
	wg.Wait()
	svc.Wait()

	assert.Len(t, sender.messages(), 1)
}

func TestCheckoutService_ConfirmationFailureKeepsCartCleared(t *testing.T) {
	sender := &recordingSender{err: notify.ErrDeliveryFailed}
	svc, store := newCheckout(t, sender)
	ctx := context.Background()

	ps, err := svc.Start(ctx, customer)
	require.NoError(t, err)

	_, err = svc.HandleMessage(ctx, ps.Reference, successFor(ps.Reference))
	require.NoError(t, err)
	svc.Wait()

	assert.True(t, store.State().IsEmpty())
	status, err := svc.Status(ps.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, status.Status)
	assert.Equal(t, models.ConfirmationFailed, status.Confirmation)
}

func TestCheckoutService_ClosedLeavesCart(t *testing.T) {
	sender := &recordingSender{}
	svc, store := newCheckout(t, sender)
	ctx := context.Background()

	ps, err := svc.Start(ctx, customer)
	require.NoError(t, err)

	got, err := svc.HandleMessage(ctx, ps.Reference, models.PaymentMessage{Type: models.MessageClosed, Message: "Payment window closed"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, got.Status)
	assert.Equal(t, int64(120000), store.State().Total)

	// a late success on a cancelled session changes nothing
	late, err := svc.HandleMessage(ctx, ps.Reference, successFor(ps.Reference))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, late.Status)
	assert.Equal(t, int64(120000), store.State().Total)
	assert.Empty(t, sender.messages())

	_, err = svc.PageData(ps.Reference, "")
	assert.ErrorIs(t, err, ErrPaymentSettled)
}

func TestCheckoutService_HandleMessageErrors(t *testing.T) {
	svc, _ := newCheckout(t, &recordingSender{})
	ctx := context.Background()

	_, err := svc.HandleMessage(ctx, "missing", successFor("missing"))
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	ps, err := svc.Start(ctx, customer)
	require.NoError(t, err)

	_, err = svc.HandleMessage(ctx, ps.Reference, successFor("someone_else"))
	assert.ErrorIs(t, err, ErrReferenceMismatch)

	_, err = svc.HandleMessage(ctx, ps.Reference, models.PaymentMessage{Type: "refund"})
	assert.ErrorIs(t, err, payment.ErrInvalidMessage)

	_, err = svc.HandleMessage(ctx, ps.Reference, models.PaymentMessage{Type: models.MessageSuccess})
	assert.ErrorIs(t, err, payment.ErrMissingData)

	status, err := svc.Status(ps.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, status.Status)
}
