package services_test

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/repositories"
	_ "github.com/shashiranjanraj/cafe/database/migrations"
	"github.com/shashiranjanraj/cafe/pkg/database"
	"github.com/shashiranjanraj/cafe/pkg/migration"
)

// newDB opens a private in-memory SQLite database with the full schema.
func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	_, err = migration.New(db, io.Discard).Run()
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{Username: username, Password: "x", Role: role}
	require.NoError(t, repositories.NewUserRepository(db).Create(t.Context(), &u))
	return u
}

func createMenuItem(t *testing.T, db *gorm.DB, name, price string) models.MenuItem {
	t.Helper()
	m := models.MenuItem{Name: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func regular(u models.User) policy.Requester {
	return policy.Requester{UserID: u.ID, Role: models.RoleRegular}
}

func staff(u models.User, trusted bool) policy.Requester {
	return policy.Requester{UserID: u.ID, Role: models.RoleElevated, Trusted: trusted}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
