package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/pkg/event"
	"github.com/shashiranjanraj/cafe/pkg/logger"
	"github.com/shashiranjanraj/cafe/pkg/metrics"
)

// AddToCart describes one add-to-cart request. A nil OrderID targets the
// caller's current cart. ForceNew starts a fresh cart and ignores OrderID.
type AddToCart struct {
	MenuItemID uint
	Quantity   int
	OrderID    *uint
	ForceNew   bool
}

// CartLine is the stored line after an addition.
type CartLine struct {
	OrderID   uint             `json:"order_id"`
	Item      models.OrderItem `json:"item"`
	LineTotal decimal.Decimal  `json:"line_total"`
	Created   bool             `json:"created"`
}

// CartService keeps one open cart per user and merges repeated additions of
// the same menu item into a single line.
type CartService struct {
	db        *gorm.DB
	orders    *repositories.OrderRepository
	items     *repositories.OrderItemRepository
	catalog   *repositories.CatalogRepository
	customers *repositories.CustomerRepository
	events    *event.Dispatcher
	locks     *keyedMutex
}

func NewCartService(db *gorm.DB, events *event.Dispatcher) *CartService {
	return &CartService{
		db:        db,
		orders:    repositories.NewOrderRepository(db),
		items:     repositories.NewOrderItemRepository(db),
		catalog:   repositories.NewCatalogRepository(db),
		customers: repositories.NewCustomerRepository(db),
		events:    events,
		locks:     newKeyedMutex(),
	}
}

// Add upserts the (order, menu item) line. Quantities below one count as one.
func (s *CartService) Add(ctx context.Context, req policy.Requester, in AddToCart) (CartLine, error) {
	if d := policy.Decide(req, policy.ActionCreate, policy.Resource{Kind: policy.KindOrderItem}); !d.Allowed() {
		return CartLine{}, &DeniedError{Reason: d.Reason}
	}
	qty := in.Quantity
	if qty < 1 {
		qty = 1
	}

	if _, err := s.catalog.MenuItem(ctx, in.MenuItemID); err != nil {
		return CartLine{}, notFound("cart: menu item", err)
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	var line CartLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.target(ctx, tx, req, in)
		if err != nil {
			return err
		}
		item, created, err := s.items.WithTx(tx).Increment(ctx, order.ID, in.MenuItemID, qty)
		if err != nil {
			return fmt.Errorf("cart: upsert line: %w", err)
		}
		line = CartLine{OrderID: order.ID, Item: item, LineTotal: LineTotal(item), Created: created}
		return nil
	})
	if err != nil {
		return CartLine{}, err
	}

	outcome := "incremented"
	if line.Created {
		outcome = "created"
	}
	metrics.CartAdditions.WithLabelValues(outcome).Inc()
	logger.WithCtx(ctx).Debug("cart: line upserted",
		"order_id", line.OrderID, "menu_item_id", in.MenuItemID, "quantity", line.Item.Quantity, "outcome", outcome)
	s.events.Fire(ctx, event.CartItemAdded, line)
	return line, nil
}

// target resolves the order a line goes to, creating the cart when needed.
func (s *CartService) target(ctx context.Context, tx *gorm.DB, req policy.Requester, in AddToCart) (models.Order, error) {
	orders := s.orders.WithTx(tx)

	if in.OrderID != nil && !in.ForceNew {
		order, err := orders.FindWithCustomer(ctx, *in.OrderID)
		if err != nil {
			return models.Order{}, notFound("cart: order", err)
		}
		if d := policy.Decide(req, policy.ActionUpdate, policy.Resource{Kind: policy.KindOrder, Object: order}); !d.Allowed() {
			return models.Order{}, &DeniedError{Reason: d.Reason}
		}
		if order.Status.Terminal() {
			return models.Order{}, fmt.Errorf("cart: order %d: %w", order.ID, ErrTerminalStatus)
		}
		return order, nil
	}

	if in.ForceNew {
		if err := orders.ReleaseCart(ctx, req.UserID); err != nil {
			return models.Order{}, fmt.Errorf("cart: release: %w", err)
		}
	} else {
		order, err := orders.Cart(ctx, req.UserID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, fmt.Errorf("cart: find: %w", err)
		}
	}
	return s.openCart(ctx, tx, req.UserID)
}

// openCart creates the user's cart. The unique cart_owner_id index settles
// races with other processes: the loser rolls back to the savepoint and
// picks up the winner's cart.
func (s *CartService) openCart(ctx context.Context, tx *gorm.DB, userID uint) (models.Order, error) {
	uid := userID
	order := models.Order{Status: models.StatusNew, UserID: &uid, CartOwnerID: &uid}
	if c, err := s.customers.WithTx(tx).FirstOwnedBy(ctx, userID); err == nil {
		order.CustomerID = &c.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, fmt.Errorf("cart: customer: %w", err)
	}

	if err := tx.SavePoint("open_cart").Error; err != nil {
		return models.Order{}, fmt.Errorf("cart: savepoint: %w", err)
	}
	createErr := s.orders.WithTx(tx).Create(ctx, &order)
	if createErr == nil {
		return order, nil
	}
	if err := tx.RollbackTo("open_cart").Error; err != nil {
		return models.Order{}, fmt.Errorf("cart: rollback to savepoint: %w", err)
	}
	existing, err := s.orders.WithTx(tx).Cart(ctx, userID)
	if err != nil {
		return models.Order{}, fmt.Errorf("cart: create: %w", createErr)
	}
	return existing, nil
}

// LineTotal is quantity times the menu item's current price. The menu item
// must be loaded.
func LineTotal(item models.OrderItem) decimal.Decimal {
	if item.MenuItem == nil {
		return decimal.Zero
	}
	return item.MenuItem.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// OrderTotal sums the line totals; an order without lines totals zero.
func OrderTotal(order models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, it := range order.Items {
		total = total.Add(LineTotal(it))
	}
	return total
}

// keyedMutex serialises work per user id within the process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[uint]*refMutex{}}
}

// Lock acquires the lock for key and returns its release func.
func (k *keyedMutex) Lock(key uint) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
