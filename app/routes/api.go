// Package routes maps URLs to controllers.
package routes

import (
	"net/http"

	"github.com/shashiranjanraj/cafe/app/controllers"
	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/pkg/metrics"
	"github.com/shashiranjanraj/cafe/pkg/middleware"
	"github.com/shashiranjanraj/cafe/pkg/rbac"
	"github.com/shashiranjanraj/cafe/pkg/router"
)

// Controllers is everything RegisterAPI mounts. Fields may be zero values
// when the router is only built to list routes.
type Controllers struct {
	Auth       *controllers.AuthController
	Trust      *controllers.TrustController
	Catalog    *controllers.CatalogController
	Customers  *controllers.CustomerController
	Orders     *controllers.OrderController
	OrderItems *controllers.OrderItemController
	Exports    *controllers.ExportController
	Health     *controllers.HealthController

	GraphQL    http.Handler
	OrderBoard http.Handler

	// VerifyLimiter throttles second-factor and login attempts per client.
	VerifyLimiter *middleware.Limiter
}

func RegisterAPI(r *router.Router, c Controllers) {
	r.Get("/health", "health", c.Health.Health)
	r.Handle("/metrics", "metrics", metrics.Handler())

	api := r.Group("/api")
	staff := rbac.HasRole(string(models.RoleElevated))

	throttle := func(next http.Handler) http.Handler { return next }
	if c.VerifyLimiter != nil {
		throttle = c.VerifyLimiter.Middleware
	}

	auth := api.Group("/auth")
	auth.Post("/login", "auth.login", c.Auth.Login, rbac.Guest, throttle)
	auth.Post("/logout", "auth.logout", c.Auth.Logout)
	auth.Get("/me", "auth.me", c.Auth.Me)

	twofa := api.Group("/2fa", middleware.RequireAuth)
	twofa.Get("/secret", "2fa.secret", c.Trust.Secret)
	twofa.Post("/verify", "2fa.verify", c.Trust.Verify, throttle)
	twofa.Get("/status", "2fa.status", c.Trust.Status)
	twofa.Post("/revoke", "2fa.revoke", c.Trust.Revoke)
	twofa.Post("/reset", "2fa.reset", c.Trust.Reset)

	categories := api.Group("/categories")
	categories.Get("", "categories.index", c.Catalog.Categories)
	categories.Post("", "categories.store", c.Catalog.CreateCategory)
	categories.Get("/{id}", "categories.show", c.Catalog.Category)
	categories.Put("/{id}", "categories.update", c.Catalog.UpdateCategory)
	categories.Patch("/{id}", "", c.Catalog.UpdateCategory)
	categories.Delete("/{id}", "categories.destroy", c.Catalog.DeleteCategory)

	menu := api.Group("/menu")
	menu.Get("", "menu.index", c.Catalog.Menu)
	menu.Post("", "menu.store", c.Catalog.CreateMenuItem)
	menu.Get("/stats", "menu.stats", c.Catalog.MenuStats)
	menu.Get("/{id}", "menu.show", c.Catalog.MenuItem)
	menu.Put("/{id}", "menu.update", c.Catalog.UpdateMenuItem)
	menu.Patch("/{id}", "", c.Catalog.UpdateMenuItem)
	menu.Delete("/{id}", "menu.destroy", c.Catalog.DeleteMenuItem)
	menu.Put("/{id}/image", "menu.image", c.Catalog.UploadImage)

	customers := api.Group("/customers")
	customers.Get("", "customers.index", c.Customers.Index)
	customers.Post("", "customers.store", c.Customers.Store)
	customers.Get("/{id}", "customers.show", c.Customers.Show)
	customers.Put("/{id}", "customers.update", c.Customers.Update)
	customers.Patch("/{id}", "", c.Customers.Update)
	customers.Delete("/{id}", "customers.destroy", c.Customers.Destroy)

	orders := api.Group("/orders")
	orders.Get("", "orders.index", c.Orders.Index)
	orders.Post("", "orders.store", c.Orders.Store)
	orders.Get("/export", "orders.export", c.Exports.Orders, staff)
	orders.Post("/add-to-cart", "orders.add_to_cart", c.Orders.AddToCart)
	orders.Get("/{id}", "orders.show", c.Orders.Show)
	orders.Put("/{id}", "orders.update", c.Orders.Update)
	orders.Patch("/{id}", "", c.Orders.Update)
	orders.Delete("/{id}", "orders.destroy", c.Orders.Destroy)
	orders.Post("/{id}/status", "orders.status", c.Orders.SetStatus)

	items := api.Group("/order-items")
	items.Get("", "order_items.index", c.OrderItems.Index)
	items.Post("", "order_items.store", c.OrderItems.Store)
	items.Get("/stats", "order_items.stats", c.OrderItems.Stats)
	items.Get("/export", "order_items.export", c.Exports.Items)
	items.Get("/{id}", "order_items.show", c.OrderItems.Show)
	items.Put("/{id}", "order_items.update", c.OrderItems.Update)
	items.Patch("/{id}", "", c.OrderItems.Update)
	items.Delete("/{id}", "order_items.destroy", c.OrderItems.Destroy)

	if c.GraphQL != nil {
		r.Handle("/api/graphql", "graphql", c.GraphQL)
	}
	if c.OrderBoard != nil {
		api.Get("/ws/orders", "ws.orders", c.OrderBoard.ServeHTTP, staff)
	}
}
