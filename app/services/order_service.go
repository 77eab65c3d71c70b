package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/pkg/event"
	"github.com/shashiranjanraj/cafe/pkg/logger"
)

// OrderLine is an order item with its live line total.
type OrderLine struct {
	models.OrderItem
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderView is an order with priced lines and its total.
type OrderView struct {
	models.Order
	Lines []OrderLine     `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func viewOf(o models.Order) OrderView {
	v := OrderView{Order: o, Lines: make([]OrderLine, 0, len(o.Items)), Total: OrderTotal(o)}
	for _, it := range o.Items {
		v.Lines = append(v.Lines, OrderLine{OrderItem: it, LineTotal: LineTotal(it)})
	}
	return v
}

// StatusChange is the payload of event.OrderStatusChanged.
type StatusChange struct {
	OrderID uint          `json:"order_id"`
	From    models.Status `json:"from"`
	To      models.Status `json:"to"`
	Label   string        `json:"label"`
	By      uint          `json:"by"`
	At      time.Time     `json:"at"`
}

type OrderFilter struct {
	Status models.Status
	Search string
}

type OrderService struct {
	orders    *repositories.OrderRepository
	customers *repositories.CustomerRepository
	events    *event.Dispatcher
}

func NewOrderService(db *gorm.DB, events *event.Dispatcher) *OrderService {
	return &OrderService{
		orders:    repositories.NewOrderRepository(db),
		customers: repositories.NewCustomerRepository(db),
		events:    events,
	}
}

// ownerScope limits non-elevated requesters to their own rows.
func ownerScope(req policy.Requester) *uint {
	if req.Elevated() {
		return nil
	}
	id := req.UserID
	return &id
}

func allow(req policy.Requester, action policy.Action, kind policy.Kind, obj policy.Owned) error {
	d := policy.Decide(req, action, policy.Resource{Kind: kind, Object: obj})
	if !d.Allowed() {
		return &DeniedError{Reason: d.Reason}
	}
	return nil
}

func (s *OrderService) List(ctx context.Context, req policy.Requester, f OrderFilter) ([]OrderView, error) {
	if err := allow(req, policy.ActionList, policy.KindOrder, nil); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("status", "The selected status is invalid.")
	}
	orders, err := s.orders.List(ctx, repositories.OrderScope{OwnerID: ownerScope(req), Status: f.Status, Search: f.Search}, true)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	out := make([]OrderView, len(orders))
	for i, o := range orders {
		out[i] = viewOf(o)
	}
	return out, nil
}

// Get returns one order. Orders outside the requester's scope are not found.
func (s *OrderService) Get(ctx context.Context, req policy.Requester, id uint) (OrderView, error) {
	if err := allow(req, policy.ActionRetrieve, policy.KindOrder, nil); err != nil {
		return OrderView{}, err
	}
	o, err := s.orders.Find(ctx, id, repositories.OrderScope{OwnerID: ownerScope(req)})
	if err != nil {
		return OrderView{}, notFound("orders: find", err)
	}
	return viewOf(o), nil
}

// Create opens an order, optionally for a customer the requester may use.
func (s *OrderService) Create(ctx context.Context, req policy.Requester, customerID *uint) (OrderView, error) {
	if err := allow(req, policy.ActionCreate, policy.KindOrder, nil); err != nil {
		return OrderView{}, err
	}
	uid := req.UserID
	order := models.Order{Status: models.StatusNew, UserID: &uid}
	if customerID != nil {
		c, err := s.usableCustomer(ctx, req, *customerID)
		if err != nil {
			return OrderView{}, err
		}
		order.CustomerID = &c.ID
		if req.Elevated() {
			// Staff orders for a customer belong to the customer's user.
			order.UserID = c.UserID
		}
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		return OrderView{}, fmt.Errorf("orders: create: %w", err)
	}
	logger.Audit(ctx, "order.created", "order_id", order.ID, "user_id", req.UserID)
	created, err := s.orders.Find(ctx, order.ID, repositories.OrderScope{})
	if err != nil {
		return OrderView{}, notFound("orders: reload", err)
	}
	return viewOf(created), nil
}

// Update re-links the order to another customer.
func (s *OrderService) Update(ctx context.Context, req policy.Requester, id uint, customerID *uint) (OrderView, error) {
	o, err := s.orders.FindWithCustomer(ctx, id)
	if err != nil {
		return OrderView{}, notFound("orders: find", err)
	}
	if err := allow(req, policy.ActionUpdate, policy.KindOrder, o); err != nil {
		return OrderView{}, err
	}
	if o.Status.Terminal() {
		return OrderView{}, fmt.Errorf("orders: update %d: %w", id, ErrTerminalStatus)
	}
	if customerID != nil {
		if _, err := s.usableCustomer(ctx, req, *customerID); err != nil {
			return OrderView{}, err
		}
	}
	if err := s.orders.UpdateCustomer(ctx, id, customerID); err != nil {
		return OrderView{}, fmt.Errorf("orders: update: %w", err)
	}
	o, err = s.orders.Find(ctx, id, repositories.OrderScope{})
	if err != nil {
		return OrderView{}, notFound("orders: reload", err)
	}
	return viewOf(o), nil
}

// Delete removes an order and its lines. Only trusted staff may remove a
// terminal order.
func (s *OrderService) Delete(ctx context.Context, req policy.Requester, id uint) error {
	o, err := s.orders.FindWithCustomer(ctx, id)
	if err != nil {
		return notFound("orders: find", err)
	}
	if err := allow(req, policy.ActionDelete, policy.KindOrder, o); err != nil {
		return err
	}
	if o.Status.Terminal() && !req.Elevated() {
		return fmt.Errorf("orders: %d is %s: %w", id, o.Status, ErrTerminalStatus)
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return notFound("orders: delete", err)
	}
	logger.Audit(ctx, "order.deleted", "order_id", id, "user_id", req.UserID)
	s.events.Fire(ctx, event.OrderDeleted, id)
	return nil
}

// SetStatus moves an order along its lifecycle. Terminal orders accept no
// change and nothing moves back to NEW.
func (s *OrderService) SetStatus(ctx context.Context, req policy.Requester, id uint, to models.Status) (OrderView, error) {
	if !to.Valid() {
		return OrderView{}, invalid("status", "The selected status is invalid.")
	}
	o, err := s.orders.FindWithCustomer(ctx, id)
	if err != nil {
		return OrderView{}, notFound("orders: find", err)
	}
	if err := allow(req, policy.ActionSetStatus, policy.KindOrder, o); err != nil {
		return OrderView{}, err
	}
	from := o.Status
	switch {
	case from.Terminal():
		return OrderView{}, fmt.Errorf("orders: %d is %s: %w", id, from, ErrTerminalStatus)
	case to == models.StatusNew && from != models.StatusNew:
		return OrderView{}, fmt.Errorf("orders: %s -> %s: %w", from, to, ErrInvalidStatus)
	}

	if from != to {
		if err := s.orders.SetStatus(ctx, id, to); err != nil {
			return OrderView{}, fmt.Errorf("orders: set status: %w", err)
		}
		logger.Audit(ctx, "order.status_changed", "order_id", id, "from", from, "to", to, "user_id", req.UserID)
		s.events.Fire(ctx, event.OrderStatusChanged, StatusChange{
			OrderID: id, From: from, To: to, Label: to.Label(), By: req.UserID, At: time.Now(),
		})
	}

	o, err = s.orders.Find(ctx, id, repositories.OrderScope{})
	if err != nil {
		return OrderView{}, notFound("orders: reload", err)
	}
	return viewOf(o), nil
}

// usableCustomer loads a customer the requester may attach orders to.
func (s *OrderService) usableCustomer(ctx context.Context, req policy.Requester, id uint) (models.Customer, error) {
	c, err := s.customers.Find(ctx, id)
	if err != nil {
		return models.Customer{}, notFound("orders: customer", err)
	}
	if !policy.CanAccess(req, c) {
		return models.Customer{}, &DeniedError{Reason: policy.ReasonNotOwner}
	}
	return c, nil
}
