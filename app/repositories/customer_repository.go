package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) WithTx(tx *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: tx}
}

// All lists customers; a non-nil owner restricts to that user's customers.
func (r *CustomerRepository) All(ctx context.Context, owner *uint) ([]models.Customer, error) {
	q := r.db.WithContext(ctx).Order("name")
	if owner != nil {
		q = q.Where("user_id = ?", *owner)
	}
	var out []models.Customer
	err := q.Find(&out).Error
	return out, err
}

func (r *CustomerRepository) Find(ctx context.Context, id uint) (models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).First(&c, id).Error
	return c, err
}

// FirstOwnedBy returns the oldest customer linked to the user.
func (r *CustomerRepository) FirstOwnedBy(ctx context.Context, userID uint) (models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").First(&c).Error
	return c, err
}

func (r *CustomerRepository) Save(ctx context.Context, c *models.Customer) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Delete detaches the customer's orders, then removes it.
func (r *CustomerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("customer_id = ?", id).
			Update("customer_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Customer{}, id).Error
	})
}
