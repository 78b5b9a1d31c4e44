package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/io25nsk/minishop/internal/domain/product"
)

// Service implements cart mutations against the product catalog.
type Service struct {
	catalog product.Repository
	carts   Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(catalog product.Repository, carts Repository) *Service {
	return &Service{catalog: catalog, carts: carts}
}

// Get returns the cart owned by uid, or ErrNotFound.
func (s *Service) Get(ctx context.Context, uid string) (*Cart, error) {
	return s.carts.GetByUser(ctx, uid)
}

// AddItem puts quantity units of the product into the user's cart, creating
// the cart on first use. The unit price is re-read from the catalog on every
// call, so an existing line picks up catalog price changes. It returns
// product.ErrNotFound when the product does not exist.
func (s *Service) AddItem(ctx context.Context, uid, pid string, quantity int) (*Cart, error) {
	p, err := s.catalog.GetByID(ctx, pid)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup product")
	}

	c, err := s.carts.GetOrCreate(ctx, uid)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	qty := decimal.NewFromInt(int64(quantity))
	added := p.Price.Mul(qty)

	if i := c.lineIndex(pid); i >= 0 {
		c.Lines[i].Price = p.Price
		c.Lines[i].Quantity += quantity
		c.Lines[i].LineTotal = c.Lines[i].LineTotal.Add(added)
	} else {
		c.Lines = append(c.Lines, Line{
			PID:       pid,
			Price:     p.Price,
			Quantity:  quantity,
			LineTotal: added,
		})
	}
	c.Total = c.Total.Add(added)

	if err := s.carts.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return c, nil
}

// RemoveItem takes quantity units of the product out of the user's cart.
// When the removal covers the whole line the line is dropped. It returns
// product.ErrNotFound for an unknown product and InsufficientQuantityError
// when the cart holds fewer units than requested.
func (s *Service) RemoveItem(ctx context.Context, uid, pid string, quantity int) (*Cart, error) {
	p, err := s.catalog.GetByID(ctx, pid)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup product")
	}

	c, err := s.carts.GetByUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	i := c.lineIndex(pid)
	if i < 0 {
		return nil, &InsufficientQuantityError{PID: pid, Requested: quantity, InCart: 0}
	}
	if c.Lines[i].Quantity < quantity {
		return nil, &InsufficientQuantityError{PID: pid, Requested: quantity, InCart: c.Lines[i].Quantity}
	}

	removed := p.Price.Mul(decimal.NewFromInt(int64(quantity)))

	if c.Lines[i].Quantity == quantity {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	} else {
		c.Lines[i].Quantity -= quantity
		c.Lines[i].LineTotal = c.Lines[i].LineTotal.Sub(removed)
	}
	c.Total = c.Total.Sub(removed)

	if err := s.carts.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return c, nil
}
