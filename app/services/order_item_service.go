package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/pkg/logger"
)

// OrderItemService manages existing lines. New lines go through CartService.
type OrderItemService struct {
	items *repositories.OrderItemRepository
}

func NewOrderItemService(db *gorm.DB) *OrderItemService {
	return &OrderItemService{items: repositories.NewOrderItemRepository(db)}
}

func (s *OrderItemService) List(ctx context.Context, req policy.Requester, orderID uint) ([]OrderLine, error) {
	if err := allow(req, policy.ActionList, policy.KindOrderItem, nil); err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx, repositories.ItemScope{OwnerID: ownerScope(req), OrderID: orderID})
	if err != nil {
		return nil, fmt.Errorf("order items: list: %w", err)
	}
	out := make([]OrderLine, len(items))
	for i, it := range items {
		out[i] = OrderLine{OrderItem: it, LineTotal: LineTotal(it)}
	}
	return out, nil
}

func (s *OrderItemService) Get(ctx context.Context, req policy.Requester, id uint) (OrderLine, error) {
	if err := allow(req, policy.ActionRetrieve, policy.KindOrderItem, nil); err != nil {
		return OrderLine{}, err
	}
	it, err := s.items.Find(ctx, id, repositories.ItemScope{OwnerID: ownerScope(req)})
	if err != nil {
		return OrderLine{}, notFound("order items: find", err)
	}
	return OrderLine{OrderItem: it, LineTotal: LineTotal(it)}, nil
}

// SetQuantity replaces a line's quantity; values below one become one.
func (s *OrderItemService) SetQuantity(ctx context.Context, req policy.Requester, id uint, qty int) (OrderLine, error) {
	it, err := s.items.Find(ctx, id, repositories.ItemScope{})
	if err != nil {
		return OrderLine{}, notFound("order items: find", err)
	}
	if err := allow(req, policy.ActionUpdate, policy.KindOrderItem, it); err != nil {
		return OrderLine{}, err
	}
	if it.Order != nil && it.Order.Status.Terminal() {
		return OrderLine{}, fmt.Errorf("order items: order %d: %w", it.OrderID, ErrTerminalStatus)
	}
	if qty < 1 {
		qty = 1
	}
	if err := s.items.SetQuantity(ctx, id, qty); err != nil {
		return OrderLine{}, fmt.Errorf("order items: update: %w", err)
	}
	it.Quantity = qty
	return OrderLine{OrderItem: it, LineTotal: LineTotal(it)}, nil
}

func (s *OrderItemService) Delete(ctx context.Context, req policy.Requester, id uint) error {
	it, err := s.items.Find(ctx, id, repositories.ItemScope{})
	if err != nil {
		return notFound("order items: find", err)
	}
	if err := allow(req, policy.ActionDelete, policy.KindOrderItem, it); err != nil {
		return err
	}
	if it.Order != nil && it.Order.Status.Terminal() {
		return fmt.Errorf("order items: order %d: %w", it.OrderID, ErrTerminalStatus)
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return notFound("order items: delete", err)
	}
	logger.Audit(ctx, "order_item.deleted", "order_item_id", id, "order_id", it.OrderID, "user_id", req.UserID)
	return nil
}

func (s *OrderItemService) Stats(ctx context.Context, req policy.Requester) (repositories.QuantityStats, error) {
	if err := allow(req, policy.ActionList, policy.KindOrderItem, nil); err != nil {
		return repositories.QuantityStats{}, err
	}
	st, err := s.items.Stats(ctx, repositories.ItemScope{OwnerID: ownerScope(req)})
	if err != nil {
		return st, fmt.Errorf("order items: stats: %w", err)
	}
	return st, nil
}
