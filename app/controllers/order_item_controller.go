package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/response"
)

type OrderItemController struct {
	items *services.OrderItemService
	cart  *services.CartService
	trust TrustChecker
}

func NewOrderItemController(items *services.OrderItemService, cart *services.CartService, trust TrustChecker) *OrderItemController {
	return &OrderItemController{items: items, cart: cart, trust: trust}
}

type quantityInput struct {
	Quantity quantity `json:"quantity" validate:"max=1000000"`
}

// Index lists lines, optionally of one order (?order_id=).
func (c *OrderItemController) Index(w http.ResponseWriter, r *http.Request) {
	orderID, ok := queryUint(w, r, "order_id")
	if !ok {
		return
	}
	lines, err := c.items.List(r.Context(), requesterFrom(r, c.trust), orderID)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, lines)
}

func (c *OrderItemController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	line, err := c.items.Get(r.Context(), requesterFrom(r, c.trust), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, line)
}

// Store creates or increments a line through the cart, so the same menu item
// never gets a second row.
func (c *OrderItemController) Store(w http.ResponseWriter, r *http.Request) {
	var in addToCartInput
	if !decode(w, r, &in) {
		return
	}
	line, err := c.cart.Add(r.Context(), requesterFrom(r, c.trust), in.service())
	if err != nil {
		fail(w, r, err)
		return
	}
	if line.Created {
		response.Created(w, line)
		return
	}
	response.Success(w, line)
}

func (c *OrderItemController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in quantityInput
	if !decode(w, r, &in) {
		return
	}
	line, err := c.items.SetQuantity(r.Context(), requesterFrom(r, c.trust), id, int(in.Quantity))
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, line)
}

func (c *OrderItemController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := c.items.Delete(r.Context(), requesterFrom(r, c.trust), id); err != nil {
		fail(w, r, err)
		return
	}
	response.NoContent(w)
}

func (c *OrderItemController) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := c.items.Stats(r.Context(), requesterFrom(r, c.trust))
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, st)
}
