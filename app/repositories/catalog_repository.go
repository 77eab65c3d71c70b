package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
)

// CatalogRepository handles categories and menu items.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: tx}
}

func (r *CatalogRepository) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := r.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

func (r *CatalogRepository) Category(ctx context.Context, id uint) (models.Category, error) {
	var c models.Category
	err := r.db.WithContext(ctx).First(&c, id).Error
	return c, err
}

func (r *CatalogRepository) SaveCategory(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// DeleteCategory detaches the category's menu items, then removes it.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MenuItem{}).Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// MenuFilter narrows MenuItems. Zero values match everything.
type MenuFilter struct {
	CategoryID uint
	Search     string
}

func (r *CatalogRepository) MenuItems(ctx context.Context, f MenuFilter) ([]models.MenuItem, error) {
	q := r.db.WithContext(ctx).Preload("Category").Order("name")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+lowerASCII(f.Search)+"%")
	}
	var out []models.MenuItem
	err := q.Find(&out).Error
	return out, err
}

func (r *CatalogRepository) MenuItem(ctx context.Context, id uint) (models.MenuItem, error) {
	var m models.MenuItem
	err := r.db.WithContext(ctx).Preload("Category").First(&m, id).Error
	return m, err
}

func (r *CatalogRepository) SaveMenuItem(ctx context.Context, m *models.MenuItem) error {
	return r.db.WithContext(ctx).Omit("Category").Save(m).Error
}

// MenuItemReferences counts order lines pointing at the menu item.
func (r *CatalogRepository) MenuItemReferences(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("menu_item_id = ?", id).Count(&n).Error
	return n, err
}

func (r *CatalogRepository) DeleteMenuItem(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
