package seeders

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/pkg/auth"
)

func init() {
	Register("users", SeedUsers)
	Register("catalog", SeedCatalog)
	Register("customers", SeedCustomers)
	Register("orders", SeedOrders)
}

// Demo accounts. Change the passwords before exposing a seeded database.
var demoUsers = []struct {
	username string
	password string
	role     models.Role
}{
	{"admin", "admin-password", models.RoleElevated},
	{"barista", "barista-password", models.RoleElevated},
	{"guest", "guest-password", models.RoleRegular},
	{"regular", "regular-password", models.RoleRegular},
}

var demoMenu = map[string][]struct {
	name  string
	price string
}{
	"Tea": {
		{"Green tea", "120.00"}, {"Black tea", "110.00"}, {"Earl Grey", "130.00"}, {"Masala chai", "160.00"},
	},
	"Coffee": {
		{"Espresso", "150.00"}, {"Americano", "160.00"}, {"Cappuccino", "210.00"}, {"Latte", "230.00"},
		{"Flat white", "240.00"},
	},
	"Drinks": {
		{"Lemonade", "180.00"}, {"Orange juice", "190.00"}, {"Sparkling water", "99.50"},
	},
	"Desserts": {
		{"Cheesecake", "290.00"}, {"Brownie", "220.00"}, {"Croissant", "140.00"}, {"Macarons", "260.00"},
	},
}

var categoryOrder = []string{"Tea", "Coffee", "Drinks", "Desserts"}

var customerNames = []string{
	"Anna Petrova", "Ivan Smirnov", "Maria Ivanova", "Oleg Kuznetsov", "Elena Popova",
	"Dmitry Volkov", "Olga Sokolova", "Sergey Lebedev", "Tatiana Kozlova", "Pavel Novikov",
}

func SeedUsers(db *gorm.DB) error {
	for _, u := range demoUsers {
		var existing models.User
		err := db.Where("username = ?", u.username).Take(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return err
		}
		user := models.User{
			Username: u.username,
			Password: hash,
			Role:     u.role,
			Profile:  &models.Profile{RoleTag: models.RoleTagFor(u.role)},
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create %s: %w", u.username, err)
		}
	}
	return nil
}

func SeedCatalog(db *gorm.DB) error {
	for _, name := range categoryOrder {
		var cat models.Category
		if err := db.Where(models.Category{Name: name}).FirstOrCreate(&cat).Error; err != nil {
			return err
		}
		for _, item := range demoMenu[name] {
			m := models.MenuItem{
				Name:       item.name,
				CategoryID: &cat.ID,
				Price:      decimal.RequireFromString(item.price),
			}
			if err := db.Where("name = ? AND category_id = ?", item.name, cat.ID).
				Attrs(m).FirstOrCreate(&models.MenuItem{}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedCustomers spreads the demo customers across regular accounts.
func SeedCustomers(db *gorm.DB) error {
	var owners []models.User
	if err := db.Where("role = ?", models.RoleRegular).Order("id").Find(&owners).Error; err != nil {
		return err
	}
	if len(owners) == 0 {
		return nil
	}
	for i, name := range customerNames {
		owner := owners[i%len(owners)].ID
		c := models.Customer{
			Name:   name,
			Phone:  fmt.Sprintf("+7 900 %03d-%02d-%02d", 100+i, i*7%100, i*13%100),
			UserID: &owner,
		}
		if err := db.Where("name = ?", name).Attrs(c).FirstOrCreate(&models.Customer{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedOrders creates one order per customer with a few random lines. The
// random source is fixed so reseeding an empty database is reproducible.
func SeedOrders(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Order{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var customers []models.Customer
	if err := db.Order("id").Find(&customers).Error; err != nil {
		return err
	}
	var menu []models.MenuItem
	if err := db.Order("id").Find(&menu).Error; err != nil {
		return err
	}
	if len(menu) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(42))
	statuses := []models.Status{
		models.StatusNew, models.StatusInProgress, models.StatusDone, models.StatusPaid, models.StatusCancelled,
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i, c := range customers {
			order := models.Order{
				Status:     statuses[i%len(statuses)],
				UserID:     c.UserID,
				CustomerID: &c.ID,
			}
			if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
				return err
			}
			lines := 1 + rng.Intn(4)
			for j := 0; j < lines; j++ {
				item := models.OrderItem{
					OrderID:    order.ID,
					MenuItemID: menu[rng.Intn(len(menu))].ID,
					Quantity:   1 + rng.Intn(5),
				}
				err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&item).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}
