package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/services"
)

func TestCustomersBelongToTheirCreator(t *testing.T) {
	db := newDB(t)
	customers := services.NewCustomerService(db)
	alice := createUser(t, db, "alice", models.RoleRegular)
	bob := createUser(t, db, "bob", models.RoleRegular)
	staffer := createUser(t, db, "staff", models.RoleElevated)
	ctx := t.Context()

	other := bob.ID
	c, err := customers.Create(ctx, regular(alice), services.CustomerInput{Name: " Alice ", UserID: &other})
	require.NoError(t, err)
	require.NotNil(t, c.UserID)
	assert.Equal(t, alice.ID, *c.UserID, "regular users cannot assign ownership")
	assert.Equal(t, "Alice", c.Name)

	_, err = customers.Get(ctx, regular(bob), c.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = customers.Update(ctx, regular(bob), c.ID, services.CustomerInput{Name: "Mallory"})
	assert.ErrorIs(t, err, services.ErrPermissionDenied)

	mine, err := customers.List(ctx, regular(bob))
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = customers.Update(ctx, staff(staffer, false), c.ID, services.CustomerInput{Name: "Alice B."})
	assert.ErrorIs(t, err, services.ErrPermissionDenied)

	c, err = customers.Update(ctx, staff(staffer, true), c.ID, services.CustomerInput{Name: "Alice B.", UserID: &other})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, *c.UserID)

	mine, err = customers.List(ctx, regular(bob))
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, customers.Delete(ctx, regular(bob), c.ID))
	_, err = customers.Get(ctx, staff(staffer, false), c.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
