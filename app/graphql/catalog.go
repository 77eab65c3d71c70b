// Package graphql exposes the public catalog as a read-only GraphQL schema.
package graphql

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/repositories"
	gql "github.com/shashiranjanraj/cafe/pkg/graphql"
)

// Catalog is the read side the schema resolves against.
type Catalog interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Category(ctx context.Context, id uint) (models.Category, error)
	Menu(ctx context.Context, f repositories.MenuFilter) ([]models.MenuItem, error)
	MenuItem(ctx context.Context, id uint) (models.MenuItem, error)
	ImageURL(key string) string
}

// NewSchema builds the catalog schema:
//
//	{ categories { id name } menu(categoryId: 1, search: "latte") { id name price imageUrl category { name } } }
func NewSchema(catalog Catalog) (graphql.Schema, error) {
	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	menuItemType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MenuItem",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			// Decimal as string so clients never see float rounding.
			"price": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.MenuItem).Price.StringFixed(2), nil
				},
			},
			"categoryId": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if id := p.Source.(models.MenuItem).CategoryID; id != nil {
						return int(*id), nil
					}
					return nil, nil
				},
			},
			"category": &graphql.Field{
				Type: categoryType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if c := p.Source.(models.MenuItem).Category; c != nil {
						return *c, nil
					}
					return nil, nil
				},
			},
			"imageUrl": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return catalog.ImageURL(p.Source.(models.MenuItem).Image), nil
				},
			},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"categories": &graphql.Field{
				Type: graphql.NewList(categoryType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return catalog.Categories(p.Context)
				},
			},
			"category": &graphql.Field{
				Type: categoryType,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return catalog.Category(p.Context, uint(p.Args["id"].(int)))
				},
			},
			"menu": &graphql.Field{
				Type: graphql.NewList(menuItemType),
				Args: graphql.FieldConfigArgument{
					"categoryId": &graphql.ArgumentConfig{Type: graphql.Int},
					"search":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var f repositories.MenuFilter
					if id, ok := p.Args["categoryId"].(int); ok && id > 0 {
						f.CategoryID = uint(id)
					}
					if s, ok := p.Args["search"].(string); ok {
						f.Search = s
					}
					return catalog.Menu(p.Context, f)
				},
			},
			"menuItem": &graphql.Field{
				Type: menuItemType,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return catalog.MenuItem(p.Context, uint(p.Args["id"].(int)))
				},
			},
		},
	})

	return gql.NewSchema(query)
}
