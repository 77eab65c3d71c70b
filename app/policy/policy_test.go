package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
)

func uptr(v uint) *uint { return &v }

var (
	anon      = policy.Anonymous()
	alice     = policy.Requester{UserID: 1, Role: models.RoleRegular}
	bob       = policy.Requester{UserID: 2, Role: models.RoleRegular}
	staff     = policy.Requester{UserID: 9, Role: models.RoleElevated}
	staffSure = policy.Requester{UserID: 9, Role: models.RoleElevated, Trusted: true}
)

func TestReads(t *testing.T) {
	menu := policy.Resource{Kind: policy.KindMenuItem}
	orders := policy.Resource{Kind: policy.KindOrder}

	assert.True(t, policy.Decide(anon, policy.ActionList, menu).Allowed())
	assert.True(t, policy.Decide(anon, policy.ActionRetrieve, menu).Allowed())

	d := policy.Decide(anon, policy.ActionList, orders)
	assert.False(t, d.Allowed())
	assert.Equal(t, policy.ReasonUnauthenticated, d.Reason)

	assert.True(t, policy.Decide(alice, policy.ActionList, orders).Allowed())
	assert.True(t, policy.Decide(staff, policy.ActionList, orders).Allowed(), "reads never need trust")
}

func TestWritesRequireAuthentication(t *testing.T) {
	d := policy.Decide(anon, policy.ActionCreate, policy.Resource{Kind: policy.KindOrder})
	assert.Equal(t, policy.Deny, d.Outcome)
	assert.Equal(t, policy.ReasonUnauthenticated, d.Reason)
}

func TestRegularUserOwnership(t *testing.T) {
	own := models.Order{ID: 1, UserID: uptr(1)}
	viaCustomer := models.Order{ID: 2, Customer: &models.Customer{UserID: uptr(1)}}
	orphan := models.Order{ID: 3}

	res := func(o models.Order) policy.Resource {
		return policy.Resource{Kind: policy.KindOrder, Object: o}
	}

	assert.Equal(t, policy.AllowSelf, policy.Decide(alice, policy.ActionUpdate, res(own)).Outcome)
	assert.Equal(t, policy.AllowSelf, policy.Decide(alice, policy.ActionDelete, res(viaCustomer)).Outcome)

	d := policy.Decide(bob, policy.ActionUpdate, res(own))
	assert.False(t, d.Allowed())
	assert.Equal(t, policy.ReasonNotOwner, d.Reason)

	d = policy.Decide(alice, policy.ActionDelete, res(orphan))
	assert.Equal(t, policy.ReasonNoOwner, d.Reason)
}

func TestDirectOwnerWinsOverCustomer(t *testing.T) {
	o := models.Order{UserID: uptr(2), Customer: &models.Customer{UserID: uptr(1)}}
	res := policy.Resource{Kind: policy.KindOrder, Object: o}

	assert.True(t, policy.Decide(bob, policy.ActionUpdate, res).Allowed())
	assert.False(t, policy.Decide(alice, policy.ActionUpdate, res).Allowed())
}

func TestOrderItemOwnershipWalksToOrder(t *testing.T) {
	item := models.OrderItem{Order: &models.Order{UserID: uptr(2)}}
	res := policy.Resource{Kind: policy.KindOrderItem, Object: item}

	assert.True(t, policy.Decide(bob, policy.ActionDelete, res).Allowed())
	assert.False(t, policy.Decide(alice, policy.ActionDelete, res).Allowed())
}

func TestRegularUsersCannotWriteCatalogOrStatus(t *testing.T) {
	d := policy.Decide(alice, policy.ActionCreate, policy.Resource{Kind: policy.KindMenuItem})
	assert.Equal(t, policy.ReasonStaffOnly, d.Reason)

	own := models.Order{UserID: uptr(1)}
	d = policy.Decide(alice, policy.ActionSetStatus, policy.Resource{Kind: policy.KindOrder, Object: own})
	assert.Equal(t, policy.ReasonStaffOnly, d.Reason)
}

func TestElevatedWritesNeedTrust(t *testing.T) {
	other := models.Order{UserID: uptr(1)}
	res := policy.Resource{Kind: policy.KindOrder, Object: other}

	d := policy.Decide(staff, policy.ActionDelete, res)
	assert.False(t, d.Allowed())
	assert.Equal(t, policy.ReasonUntrusted, d.Reason)

	d = policy.Decide(staffSure, policy.ActionDelete, res)
	assert.Equal(t, policy.AllowElevatedTrusted, d.Outcome)

	assert.True(t, policy.Decide(staffSure, policy.ActionCreate, policy.Resource{Kind: policy.KindCategory}).Allowed())
}

func TestExportIsStaffOnlyWithoutTrust(t *testing.T) {
	res := policy.Resource{Kind: policy.KindOrder}
	assert.True(t, policy.Decide(staff, policy.ActionExport, res).Allowed())
	assert.False(t, policy.Decide(alice, policy.ActionExport, res).Allowed())
	assert.False(t, policy.Decide(anon, policy.ActionExport, res).Allowed())
}

func TestCustomRules(t *testing.T) {
	d := policy.NewDecider(map[policy.Kind]policy.Rules{
		policy.KindMenuItem: {ReadRequiresAuth: true},
	})
	assert.False(t, d.Decide(anon, policy.ActionList, policy.Resource{Kind: policy.KindMenuItem}).Allowed())
}

func TestCanAccess(t *testing.T) {
	o := models.Order{UserID: uptr(1)}
	assert.True(t, policy.CanAccess(alice, o))
	assert.False(t, policy.CanAccess(bob, o))
	assert.True(t, policy.CanAccess(staff, o))
	assert.False(t, policy.CanAccess(anon, models.Order{}))
}
