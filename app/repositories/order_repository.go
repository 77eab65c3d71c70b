package repositories

import (
	"context"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/cafe/app/models"
)

// OrderScope restricts order queries. A nil OwnerID sees every order.
type OrderScope struct {
	OwnerID *uint
	Status  models.Status
	// Search matches the customer name or the numeric order id.
	Search string
}

// OrderRepository handles orders. Methods run on the bound handle, so a
// repository from WithTx participates in the caller's transaction.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) scoped(ctx context.Context, s OrderScope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if s.OwnerID != nil {
		q = q.Where("orders.user_id = ? OR orders.customer_id IN (?)", *s.OwnerID,
			r.db.Model(&models.Customer{}).Select("id").Where("user_id = ?", *s.OwnerID))
	}
	if s.Status != "" {
		q = q.Where("orders.status = ?", s.Status)
	}
	if s.Search != "" {
		byName := r.db.Model(&models.Customer{}).Select("id").
			Where("LOWER(name) LIKE ?", "%"+lowerASCII(s.Search)+"%")
		if id, err := strconv.ParseUint(s.Search, 10, 64); err == nil {
			q = q.Where("orders.id = ? OR orders.customer_id IN (?)", id, byName)
		} else {
			q = q.Where("orders.customer_id IN (?)", byName)
		}
	}
	return q
}

// List returns orders newest first. withItems preloads lines and menu items.
func (r *OrderRepository) List(ctx context.Context, s OrderScope, withItems bool) ([]models.Order, error) {
	q := r.scoped(ctx, s).Preload("Customer").Order("orders.created_at DESC, orders.id DESC")
	if withItems {
		q = q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
			Preload("Items.MenuItem")
	}
	var out []models.Order
	err := q.Find(&out).Error
	return out, err
}

// Find loads one order within the scope with its customer, lines and menu items.
func (r *OrderRepository) Find(ctx context.Context, id uint, s OrderScope) (models.Order, error) {
	var o models.Order
	err := r.scoped(ctx, s).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.MenuItem").
		Where("orders.id = ?", id).
		First(&o).Error
	return o, err
}

// FindWithCustomer loads the order with its customer for an ownership check.
func (r *OrderRepository) FindWithCustomer(ctx context.Context, id uint) (models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Customer").First(&o, id).Error
	return o, err
}

// Cart returns the user's current cart.
func (r *OrderRepository) Cart(ctx context.Context, userID uint) (models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Customer").
		Where("cart_owner_id = ?", userID).First(&o).Error
	return o, err
}

// ReleaseCart drops the user's current-cart designation.
func (r *OrderRepository) ReleaseCart(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("cart_owner_id = ?", userID).
		Update("cart_owner_id", nil).Error
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error
}

// UpdateCustomer re-links the order to a customer; nil detaches it.
func (r *OrderRepository) UpdateCustomer(ctx context.Context, id uint, customerID *uint) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).
		Update("customer_id", customerID).Error
}

// SetStatus moves the order to status. Leaving NEW releases the cart slot.
func (r *OrderRepository) SetStatus(ctx context.Context, id uint, status models.Status) error {
	updates := map[string]interface{}{"status": status}
	if status != models.StatusNew {
		updates["cart_owner_id"] = nil
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// Delete removes the order and its lines.
func (r *OrderRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
