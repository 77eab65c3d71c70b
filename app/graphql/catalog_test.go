package graphql_test

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/repositories"
	appgql "github.com/shashiranjanraj/cafe/app/graphql"
)

type fakeCatalog struct {
	lastFilter repositories.MenuFilter
}

func (f *fakeCatalog) Categories(context.Context) ([]models.Category, error) {
	return []models.Category{{ID: 1, Name: "Coffee"}, {ID: 2, Name: "Tea"}}, nil
}

func (f *fakeCatalog) Category(_ context.Context, id uint) (models.Category, error) {
	return models.Category{ID: id, Name: "Coffee"}, nil
}

func (f *fakeCatalog) Menu(_ context.Context, filter repositories.MenuFilter) ([]models.MenuItem, error) {
	f.lastFilter = filter
	cat := uint(1)
	return []models.MenuItem{{
		ID: 5, Name: "Latte", CategoryID: &cat, Category: &models.Category{ID: 1, Name: "Coffee"},
		Price: decimal.RequireFromString("150"), Image: "menu/5.png",
	}}, nil
}

func (f *fakeCatalog) MenuItem(_ context.Context, id uint) (models.MenuItem, error) {
	return models.MenuItem{ID: id, Name: "Latte", Price: decimal.RequireFromString("99.5")}, nil
}

func (f *fakeCatalog) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return "http://cdn.test/" + key
}

func TestCatalogQuery(t *testing.T) {
	cat := &fakeCatalog{}
	schema, err := appgql.NewSchema(cat)
	require.NoError(t, err)

	res := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ categories { id name } menu(categoryId: 1, search: "lat") { id name price imageUrl category { name } } }`,
		Context:       context.Background(),
	})
	require.False(t, res.HasErrors(), "%v", res.Errors)

	data := res.Data.(map[string]interface{})
	assert.Len(t, data["categories"], 2)

	menu := data["menu"].([]interface{})
	require.Len(t, menu, 1)
	item := menu[0].(map[string]interface{})
	assert.Equal(t, "Latte", item["name"])
	assert.Equal(t, "150.00", item["price"])
	assert.Equal(t, "http://cdn.test/menu/5.png", item["imageUrl"])
	assert.Equal(t, "Coffee", item["category"].(map[string]interface{})["name"])

	assert.Equal(t, repositories.MenuFilter{CategoryID: 1, Search: "lat"}, cat.lastFilter)
}

func TestMenuItemPriceKeepsCents(t *testing.T) {
	schema, err := appgql.NewSchema(&fakeCatalog{})
	require.NoError(t, err)

	res := graphql.Do(graphql.Params{Schema: schema, RequestString: `{ menuItem(id: 9) { id price } }`})
	require.False(t, res.HasErrors(), "%v", res.Errors)
	item := res.Data.(map[string]interface{})["menuItem"].(map[string]interface{})
	assert.Equal(t, "99.50", item["price"])
	assert.Equal(t, 9, item["id"])
}
