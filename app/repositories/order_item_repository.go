package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/cafe/app/models"
)

type OrderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

func (r *OrderItemRepository) WithTx(tx *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: tx}
}

// Increment adds qty to the (order, menu item) line in one statement,
// inserting the line when it does not exist. It reports whether the line
// was created and returns the stored row.
func (r *OrderItemRepository) Increment(ctx context.Context, orderID, menuItemID uint, qty int) (models.OrderItem, bool, error) {
	db := r.db.WithContext(ctx)

	var before int64
	if err := db.Model(&models.OrderItem{}).
		Where("order_id = ? AND menu_item_id = ?", orderID, menuItemID).
		Count(&before).Error; err != nil {
		return models.OrderItem{}, false, err
	}

	item := models.OrderItem{OrderID: orderID, MenuItemID: menuItemID, Quantity: qty}
	err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}, {Name: "menu_item_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("order_items.quantity + ?", qty),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		return models.OrderItem{}, false, err
	}

	var stored models.OrderItem
	err = db.Preload("MenuItem").
		Where("order_id = ? AND menu_item_id = ?", orderID, menuItemID).
		First(&stored).Error
	return stored, before == 0, err
}

// ItemScope restricts order item queries; see OrderScope.
type ItemScope struct {
	OwnerID *uint
	OrderID uint
}

func (r *OrderItemRepository) scoped(ctx context.Context, s ItemScope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.OrderItem{})
	if s.OrderID != 0 {
		q = q.Where("order_items.order_id = ?", s.OrderID)
	}
	if s.OwnerID != nil {
		owned := NewOrderRepository(r.db).scoped(ctx, OrderScope{OwnerID: s.OwnerID}).Select("orders.id")
		q = q.Where("order_items.order_id IN (?)", owned)
	}
	return q
}

func (r *OrderItemRepository) List(ctx context.Context, s ItemScope) ([]models.OrderItem, error) {
	var out []models.OrderItem
	err := r.scoped(ctx, s).Preload("MenuItem").Order("order_items.id").Find(&out).Error
	return out, err
}

func (r *OrderItemRepository) Find(ctx context.Context, id uint, s ItemScope) (models.OrderItem, error) {
	var it models.OrderItem
	err := r.scoped(ctx, s).
		Preload("MenuItem").Preload("Order").Preload("Order.Customer").
		Where("order_items.id = ?", id).
		First(&it).Error
	return it, err
}

func (r *OrderItemRepository) SetQuantity(ctx context.Context, id uint, qty int) error {
	return r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("id = ?", id).
		Update("quantity", qty).Error
}

func (r *OrderItemRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.OrderItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// QuantityStats aggregates line quantities within the scope.
type QuantityStats struct {
	Count int64   `json:"count"`
	Avg   float64 `json:"avg"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
}

func (r *OrderItemRepository) Stats(ctx context.Context, s ItemScope) (QuantityStats, error) {
	var st QuantityStats
	err := r.scoped(ctx, s).
		Select("COUNT(*) AS count, COALESCE(AVG(order_items.quantity), 0) AS avg, " +
			"COALESCE(MIN(order_items.quantity), 0) AS min, COALESCE(MAX(order_items.quantity), 0) AS max").
		Scan(&st).Error
	return st, err
}
