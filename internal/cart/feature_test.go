package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

type cartTestContext struct {
	store *Store
}

func (c *cartTestContext) anEmptyCart() error {
	c.store = NewStore()
	return nil
}

func (c *cartTestContext) iAddProductPricedToTheCartTimes(id, price int64, times int) error {
	p, err := models.NewProduct(id, fmt.Sprintf("piece %d", id), "p.png", "f.png", 44, price)
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		c.store.AddToCart(p)
	}
	return nil
}

func (c *cartTestContext) iDecrementOrRemoveProduct(id int64) error {
	c.store.DecrementOrRemove(id)
	return nil
}

func (c *cartTestContext) iDecrementTheQuantityOfProduct(id int64) error {
	c.store.DecrementQuantity(id)
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.store.ClearCart()
	return nil
}

func (c *cartTestContext) productHasQuantity(id int64, want int) error {
	if got := c.store.State().Quantity(id); got != want {
		return fmt.Errorf("product %d quantity = %d, want %d", id, got, want)
	}
	return nil
}

func (c *cartTestContext) productIsNotInTheCart(id int64) error {
	if _, ok := c.store.State().Line(id); ok {
		return fmt.Errorf("product %d still in cart", id)
	}
	return nil
}

func (c *cartTestContext) theCartTotalIs(want int64) error {
	if got := c.store.State().Total; got != want {
		return fmt.Errorf("cart total = %d, want %d", got, want)
	}
	return nil
}

func (c *cartTestContext) theCartIsEmpty() error {
	if !c.store.State().IsEmpty() {
		return fmt.Errorf("cart has %d lines", c.store.State().UniqueItems())
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.store = NewStore()
		return ctx, nil
	})

	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^I add product (\d+) priced (\d+) to the cart (\d+) times$`, tc.iAddProductPricedToTheCartTimes)
	ctx.Step(`^I decrement or remove product (\d+)$`, tc.iDecrementOrRemoveProduct)
	ctx.Step(`^I decrement the quantity of product (\d+)$`, tc.iDecrementTheQuantityOfProduct)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)
	ctx.Step(`^product (\d+) has quantity (\d+)$`, tc.productHasQuantity)
	ctx.Step(`^product (\d+) is not in the cart$`, tc.productIsNotInTheCart)
	ctx.Step(`^the cart total is (\d+)$`, tc.theCartTotalIs)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "cart",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
