package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/event"
)

type cartFixture struct {
	db       *gorm.DB
	cart     *services.CartService
	orders   *services.OrderService
	alice    models.User
	bob      models.User
	barista  models.User
	espresso models.MenuItem
	water    models.MenuItem
}

func newCartFixture(t *testing.T) cartFixture {
	t.Helper()
	db := newDB(t)
	bus := event.New()
	return cartFixture{
		db:       db,
		cart:     services.NewCartService(db, bus),
		orders:   services.NewOrderService(db, bus),
		alice:    createUser(t, db, "alice", models.RoleRegular),
		bob:      createUser(t, db, "bob", models.RoleRegular),
		barista:  createUser(t, db, "barista", models.RoleElevated),
		espresso: createMenuItem(t, db, "Espresso", "150.00"),
		water:    createMenuItem(t, db, "Sparkling water", "99.50"),
	}
}

func (f cartFixture) add(t *testing.T, req policy.Requester, item models.MenuItem, qty int) services.CartLine {
	t.Helper()
	line, err := f.cart.Add(t.Context(), req, services.AddToCart{MenuItemID: item.ID, Quantity: qty})
	require.NoError(t, err)
	return line
}

func (f cartFixture) lineCount(t *testing.T, orderID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).Where("order_id = ?", orderID).Count(&n).Error)
	return n
}

func TestAddMergesRepeatedItemIntoOneLine(t *testing.T) {
	f := newCartFixture(t)
	req := regular(f.alice)

	first := f.add(t, req, f.espresso, 2)
	assert.True(t, first.Created)
	assert.Equal(t, 2, first.Item.Quantity)

	second := f.add(t, req, f.espresso, 3)
	assert.False(t, second.Created)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.Item.ID, second.Item.ID)
	assert.Equal(t, 5, second.Item.Quantity)
	assert.True(t, dec("750").Equal(second.LineTotal))
	assert.EqualValues(t, 1, f.lineCount(t, first.OrderID))
}

func TestCartTotalFollowsLivePrices(t *testing.T) {
	f := newCartFixture(t)
	req := regular(f.alice)

	f.add(t, req, f.espresso, 2)
	line := f.add(t, req, f.water, 1)

	view, err := f.orders.Get(t.Context(), req, line.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "399.50", view.Total.StringFixed(2))
	assert.Len(t, view.Lines, 2)

	require.NoError(t, f.db.Model(&models.MenuItem{}).Where("id = ?", f.espresso.ID).
		Update("price", dec("160.00")).Error)

	view, err = f.orders.Get(t.Context(), req, line.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "419.50", view.Total.StringFixed(2))
}

func TestAddCoercesQuantityBelowOne(t *testing.T) {
	f := newCartFixture(t)
	req := regular(f.alice)

	assert.Equal(t, 1, f.add(t, req, f.espresso, 0).Item.Quantity)
	assert.Equal(t, 2, f.add(t, req, f.espresso, -7).Item.Quantity)
}

func TestAddUnknownMenuItem(t *testing.T) {
	f := newCartFixture(t)
	_, err := f.cart.Add(t.Context(), regular(f.alice), services.AddToCart{MenuItemID: 9999, Quantity: 1})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAddRequiresAuthentication(t *testing.T) {
	f := newCartFixture(t)
	_, err := f.cart.Add(t.Context(), policy.Anonymous(), services.AddToCart{MenuItemID: f.espresso.ID, Quantity: 1})

	var denied *services.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, policy.ReasonUnauthenticated, denied.Reason)
}

func TestAddToAnotherUsersOrderIsDenied(t *testing.T) {
	f := newCartFixture(t)
	bobs := f.add(t, regular(f.bob), f.espresso, 1)

	_, err := f.cart.Add(t.Context(), regular(f.alice), services.AddToCart{
		MenuItemID: f.water.ID, Quantity: 1, OrderID: &bobs.OrderID,
	})
	var denied *services.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, policy.ReasonNotOwner, denied.Reason)
	assert.EqualValues(t, 1, f.lineCount(t, bobs.OrderID))
}

func TestElevatedAddNeedsTrust(t *testing.T) {
	f := newCartFixture(t)
	bobs := f.add(t, regular(f.bob), f.espresso, 1)
	in := services.AddToCart{MenuItemID: f.water.ID, Quantity: 1, OrderID: &bobs.OrderID}

	_, err := f.cart.Add(t.Context(), staff(f.barista, false), in)
	var denied *services.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, policy.ReasonUntrusted, denied.Reason)

	line, err := f.cart.Add(t.Context(), staff(f.barista, true), in)
	require.NoError(t, err)
	assert.Equal(t, bobs.OrderID, line.OrderID)
	assert.EqualValues(t, 2, f.lineCount(t, bobs.OrderID))
}

func TestAddToTerminalOrder(t *testing.T) {
	f := newCartFixture(t)
	line := f.add(t, regular(f.alice), f.espresso, 1)
	_, err := f.orders.SetStatus(t.Context(), staff(f.barista, true), line.OrderID, models.StatusPaid)
	require.NoError(t, err)

	_, err = f.cart.Add(t.Context(), regular(f.alice), services.AddToCart{
		MenuItemID: f.espresso.ID, Quantity: 1, OrderID: &line.OrderID,
	})
	assert.ErrorIs(t, err, services.ErrTerminalStatus)
}

func TestForceNewStartsFreshCart(t *testing.T) {
	f := newCartFixture(t)
	req := regular(f.alice)
	old := f.add(t, req, f.espresso, 1)

	fresh, err := f.cart.Add(t.Context(), req, services.AddToCart{MenuItemID: f.espresso.ID, Quantity: 1, ForceNew: true})
	require.NoError(t, err)
	assert.NotEqual(t, old.OrderID, fresh.OrderID)
	assert.True(t, fresh.Created)

	next := f.add(t, req, f.espresso, 1)
	assert.Equal(t, fresh.OrderID, next.OrderID)
	assert.Equal(t, 2, next.Item.Quantity)
}

func TestLeavingNewOpensAnotherCart(t *testing.T) {
	f := newCartFixture(t)
	req := regular(f.alice)
	first := f.add(t, req, f.espresso, 1)

	_, err := f.orders.SetStatus(t.Context(), staff(f.barista, true), first.OrderID, models.StatusInProgress)
	require.NoError(t, err)

	second := f.add(t, req, f.espresso, 1)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, second.Item.Quantity)
}

func TestCartIsLinkedToOwnedCustomer(t *testing.T) {
	f := newCartFixture(t)
	uid := f.alice.ID
	c := models.Customer{Name: "Alice A.", UserID: &uid}
	require.NoError(t, f.db.Create(&c).Error)

	line := f.add(t, regular(f.alice), f.espresso, 1)
	view, err := f.orders.Get(t.Context(), regular(f.alice), line.OrderID)
	require.NoError(t, err)
	require.NotNil(t, view.CustomerID)
	assert.Equal(t, c.ID, *view.CustomerID)
}

func TestConcurrentAddsSettleOnOneLine(t *testing.T) {
	f := newCartFixture(t)
	req := regular(f.alice)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.cart.Add(context.Background(), req, services.AddToCart{MenuItemID: f.espresso.ID, Quantity: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var orders []models.Order
	require.NoError(t, f.db.Where("user_id = ?", f.alice.ID).Find(&orders).Error)
	require.Len(t, orders, 1)

	var items []models.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", orders[0].ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, n, items[0].Quantity)
}

func TestAddsFromSeparateServicesMergeInTheDatabase(t *testing.T) {
	f := newCartFixture(t)
	req := regular(f.alice)
	other := services.NewCartService(f.db, event.New())

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		for _, cart := range []*services.CartService{f.cart, other} {
			wg.Add(1)
			go func(cart *services.CartService) {
				defer wg.Done()
				_, err := cart.Add(context.Background(), req, services.AddToCart{MenuItemID: f.espresso.ID, Quantity: 1})
				errs <- err
			}(cart)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var orders []models.Order
	require.NoError(t, f.db.Where("user_id = ?", f.alice.ID).Find(&orders).Error)
	require.Len(t, orders, 1)

	var items []models.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", orders[0].ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 2*n, items[0].Quantity)
}

func TestAddReusesExistingCart(t *testing.T) {
	f := newCartFixture(t)
	uid := f.alice.ID
	existing := models.Order{Status: models.StatusNew, UserID: &uid, CartOwnerID: &uid}
	require.NoError(t, f.db.Create(&existing).Error)

	line := f.add(t, regular(f.alice), f.espresso, 2)
	assert.Equal(t, existing.ID, line.OrderID)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("user_id = ?", uid).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// A cart that appears between the lookup and the insert is picked up
// instead of failing on the unique owner index.
func TestAddPicksUpCartOpenedConcurrently(t *testing.T) {
	f := newCartFixture(t)
	uid := f.alice.ID

	var once sync.Once
	var rivalID int64
	var rivalErr error
	err := f.db.Callback().Query().After("gorm:query").Register("test:rival_cart", func(tx *gorm.DB) {
		if tx.Statement.Table != "orders" || !strings.Contains(tx.Statement.SQL.String(), "cart_owner_id") {
			return
		}
		once.Do(func() {
			now := time.Now()
			res, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
				"INSERT INTO orders (status, user_id, cart_owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				string(models.StatusNew), uid, uid, now, now)
			if err != nil {
				rivalErr = err
				return
			}
			rivalID, rivalErr = res.LastInsertId()
		})
	})
	require.NoError(t, err)

	line := f.add(t, regular(f.alice), f.espresso, 3)
	require.NoError(t, rivalErr)
	assert.EqualValues(t, rivalID, line.OrderID)
	assert.Equal(t, 3, line.Item.Quantity)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("user_id = ?", uid).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAddFiresCartEvent(t *testing.T) {
	db := newDB(t)
	bus := event.New()
	var got []services.CartLine
	bus.Listen(event.CartItemAdded, func(_ context.Context, p interface{}) {
		got = append(got, p.(services.CartLine))
	})
	cart := services.NewCartService(db, bus)
	u := createUser(t, db, "carol", models.RoleRegular)
	m := createMenuItem(t, db, "Latte", "180.00")

	_, err := cart.Add(t.Context(), regular(u), services.AddToCart{MenuItemID: m.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Item.Quantity)
	assert.Equal(t, "360.00", got[0].LineTotal.StringFixed(2))
}
