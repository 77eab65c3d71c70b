package controllers

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/response"
)

type OrderController struct {
	orders *services.OrderService
	cart   *services.CartService
	trust  TrustChecker
}

func NewOrderController(orders *services.OrderService, cart *services.CartService, trust TrustChecker) *OrderController {
	return &OrderController{orders: orders, cart: cart, trust: trust}
}

type orderInput struct {
	CustomerID *uint `json:"customer_id"`
}

type statusInput struct {
	Status string `json:"status" validate:"required"`
}

type addToCartInput struct {
	MenuItemID uint     `json:"menu_item_id" validate:"required"`
	Quantity   quantity `json:"quantity" validate:"max=1000000"`
	OrderID    *uint    `json:"order_id"`
	ForceNew   bool     `json:"force_new"`
}

func (in addToCartInput) service() services.AddToCart {
	return services.AddToCart{
		MenuItemID: in.MenuItemID,
		Quantity:   int(in.Quantity),
		OrderID:    in.OrderID,
		ForceNew:   in.ForceNew,
	}
}

// Index lists orders; ?status= and ?search= (customer name or order id) narrow it.
func (c *OrderController) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := c.orders.List(r.Context(), requesterFrom(r, c.trust), services.OrderFilter{
		Status: models.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Search: strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, list)
}

func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	order, err := c.orders.Get(r.Context(), requesterFrom(r, c.trust), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, order)
}

func (c *OrderController) Store(w http.ResponseWriter, r *http.Request) {
	var in orderInput
	if !decode(w, r, &in) {
		return
	}
	order, err := c.orders.Create(r.Context(), requesterFrom(r, c.trust), in.CustomerID)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, order)
}

func (c *OrderController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in orderInput
	if !decode(w, r, &in) {
		return
	}
	order, err := c.orders.Update(r.Context(), requesterFrom(r, c.trust), id, in.CustomerID)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, order)
}

func (c *OrderController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := c.orders.Delete(r.Context(), requesterFrom(r, c.trust), id); err != nil {
		fail(w, r, err)
		return
	}
	response.NoContent(w)
}

func (c *OrderController) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in statusInput
	if !decode(w, r, &in) {
		return
	}
	status := models.Status(strings.ToUpper(strings.TrimSpace(in.Status)))
	order, err := c.orders.SetStatus(r.Context(), requesterFrom(r, c.trust), id, status)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, order)
}

// AddToCart answers 201 when a new line was created and 200 when an
// existing line was incremented.
func (c *OrderController) AddToCart(w http.ResponseWriter, r *http.Request) {
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
