package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/pkg/migration"
)

func init() {
	migration.Register("20260301000000_create_accounts", &CreateAccounts{})
	migration.Register("20260301000001_create_catalog", &CreateCatalog{})
	migration.Register("20260301000002_create_orders", &CreateOrders{})
}

// -------- 0001: users + profiles --------

type CreateAccounts struct{}

func (m *CreateAccounts) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Profile{})
}

func (m *CreateAccounts) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Profile{}, &models.User{})
}

// -------- 0002: categories + menu items + customers --------

type CreateCatalog struct{}

func (m *CreateCatalog) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Category{}, &models.MenuItem{}, &models.Customer{})
}

func (m *CreateCatalog) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Customer{}, &models.MenuItem{}, &models.Category{})
}

// -------- 0003: orders + order items --------

type CreateOrders struct{}

func (m *CreateOrders) Up(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		return err
	}
	if db.Dialector.Name() != "sqlserver" {
		return nil
	}
	// SQL Server treats NULLs as equal in unique indexes; only open carts
	// carry an owner, so the index must skip the rest.
	if err := db.Migrator().DropIndex(&models.Order{}, "idx_orders_cart_owner_id"); err != nil {
		return err
	}
	return db.Exec("CREATE UNIQUE INDEX idx_orders_cart_owner_id ON orders (cart_owner_id) WHERE cart_owner_id IS NOT NULL").Error
}

func (m *CreateOrders) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.OrderItem{}, &models.Order{})
}
