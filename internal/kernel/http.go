// Package kernel wires configuration, storage and services into the HTTP
// handler and the background workers of a running instance.
package kernel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/controllers"
	appgraphql "github.com/shashiranjanraj/cafe/app/graphql"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/app/routes"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/config"
	"github.com/shashiranjanraj/cafe/pkg/auth"
	"github.com/shashiranjanraj/cafe/pkg/cache"
	"github.com/shashiranjanraj/cafe/pkg/crypt"
	"github.com/shashiranjanraj/cafe/pkg/database"
	"github.com/shashiranjanraj/cafe/pkg/event"
	gql "github.com/shashiranjanraj/cafe/pkg/graphql"
	"github.com/shashiranjanraj/cafe/pkg/logger"
	"github.com/shashiranjanraj/cafe/pkg/metrics"
	"github.com/shashiranjanraj/cafe/pkg/middleware"
	"github.com/shashiranjanraj/cafe/pkg/reqid"
	"github.com/shashiranjanraj/cafe/pkg/response"
	"github.com/shashiranjanraj/cafe/pkg/router"
	"github.com/shashiranjanraj/cafe/pkg/session"
	"github.com/shashiranjanraj/cafe/pkg/storage"
	"github.com/shashiranjanraj/cafe/pkg/workerpool"
	"github.com/shashiranjanraj/cafe/pkg/ws"
)

// Deps are the external resources a Kernel runs on.
type Deps struct {
	DB    *gorm.DB
	Store cache.Store
	Disk  storage.Disk
}

// Settings are the tunables of a kernel. Start from SettingsFromConfig and
// override fields in tests.
type Settings struct {
	AppKey        string
	JWTSecret     string
	JWTTTL        time.Duration
	SessionTTL    time.Duration
	SecureCookies bool
	OTPIssuer     string
	TrustDuration time.Duration
	VerifyPerMin  int
	RatePerMin    int
	CORSOrigins   []string
	ExportWorkers int
	// TrustClock replaces time.Now inside the trust gate.
	TrustClock func() time.Time
}

func SettingsFromConfig() Settings {
	return Settings{
		AppKey:        config.AppKey(),
		JWTSecret:     config.JWTSecret(),
		JWTTTL:        config.JWTTTL(),
		SessionTTL:    config.SessionTTL(),
		SecureCookies: config.IsProduction(),
		OTPIssuer:     config.OTPIssuer(),
		TrustDuration: config.TrustDuration(),
		VerifyPerMin:  config.OTPVerifyPerMinute(),
		RatePerMin:    config.RateLimitPerMinute(),
		CORSOrigins:   config.CORSOrigins(),
		ExportWorkers: config.ExportWorkers(),
	}
}

// Kernel owns the services of one process.
type Kernel struct {
	Deps
	Settings Settings

	Tokens   *auth.Tokens
	Sessions *session.Manager
	Events   *event.Dispatcher
	Pool     *workerpool.Pool
	Hub      *ws.Hub

	Auth       *services.AuthService
	Trust      *services.TrustGate
	Catalog    *services.CatalogService
	Customers  *services.CustomerService
	Orders     *services.OrderService
	OrderItems *services.OrderItemService
	Cart       *services.CartService
	Exports    *services.ExportService

	closers []func()
}

// New builds every service over deps. It starts no goroutine besides the
// export pool; call Start for the board hub.
func New(deps Deps, s Settings) *Kernel {
	users := repositories.NewUserRepository(deps.DB)
	tokens := auth.NewTokens(s.JWTSecret, s.JWTTTL)

	sessOpts := session.DefaultOptions()
	if s.SessionTTL > 0 {
		sessOpts.TTL = s.SessionTTL
	}
	sessOpts.Secure = s.SecureCookies

	var trustOpts []services.TrustOption
	if s.TrustClock != nil {
		trustOpts = append(trustOpts, services.WithTrustClock(s.TrustClock))
	}

	k := &Kernel{
		Deps:     deps,
		Settings: s,
		Tokens:   tokens,
		Sessions: session.NewManager(deps.Store, sessOpts),
		Events:   event.New(),
		Pool:     workerpool.New(s.ExportWorkers, -1),
		Hub:      ws.NewHub(ws.AllowOrigins(s.CORSOrigins)),
	}
	k.Auth = services.NewAuthService(users, tokens)
	k.Trust = services.NewTrustGate(users, deps.Store, crypt.NewBox(s.AppKey), s.OTPIssuer, s.TrustDuration, trustOpts...)
	k.Catalog = services.NewCatalogService(deps.DB, deps.Disk)
	k.Customers = services.NewCustomerService(deps.DB)
	k.Orders = services.NewOrderService(deps.DB, k.Events)
	k.OrderItems = services.NewOrderItemService(deps.DB)
	k.Cart = services.NewCartService(deps.DB, k.Events)
	k.Exports = services.NewExportService(deps.DB)
	k.closers = append(k.closers, k.Pool.Shutdown)

	k.listen()
	return k
}

// listen forwards order events to the staff board.
func (k *Kernel) listen() {
	k.Events.Listen(event.OrderStatusChanged, func(_ context.Context, payload interface{}) {
		k.Hub.Publish(event.OrderStatusChanged, payload)
	})
	k.Events.Listen(event.OrderDeleted, func(_ context.Context, payload interface{}) {
		k.Hub.Publish(event.OrderDeleted, map[string]interface{}{"order_id": payload})
	})
	k.Events.Listen(event.CartItemAdded, func(_ context.Context, payload interface{}) {
		k.Hub.Publish(event.CartItemAdded, payload)
	})
}

// Boot opens the configured database, cache and disk and builds the kernel.
func Boot(ctx context.Context) (*Kernel, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("kernel: config: %w", err)
	}

	var closers []func()
	if uri := config.LogMongoURI(); uri != "" {
		closeLog, err := logger.AttachMongo(uri, config.LogMongoDB(), config.LogMongoCollection())
		if err != nil {
			logger.Warn("kernel: mongo log sink disabled", "error", err)
		} else {
			closers = append(closers, closeLog)
		}
	}

	db, err := database.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, closeStore, err := openCache(ctx)
	if err != nil {
		runAll(closers)
		return nil, err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	disk, err := storage.FromConfig(ctx)
	if err != nil {
		runAll(closers)
		return nil, fmt.Errorf("kernel: storage: %w", err)
	}

	k := New(Deps{DB: db, Store: store, Disk: disk}, SettingsFromConfig())
	k.closers = append(k.closers, closers...)
	return k, nil
}

// openCache uses Redis when configured and falls back to memory outside
// production when Redis is unreachable.
func openCache(ctx context.Context) (cache.Store, func(), error) {
	if config.CacheDriver() != "redis" {
		return cache.NewMemory(), nil, nil
	}
	rdb, err := cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		Prefix:   "cafe:",
	})
	if err != nil {
		if config.IsProduction() {
			return nil, nil, fmt.Errorf("kernel: %w", err)
		}
		logger.Warn("kernel: redis unavailable, using in-memory cache", "error", err)
		return cache.NewMemory(), nil, nil
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

// Start runs the board hub until ctx ends.
func (k *Kernel) Start(ctx context.Context) {
	go k.Hub.Run(ctx)
}

// Probes are the dependency checks shared by /health and gRPC health.
func (k *Kernel) Probes() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := k.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"cache": k.Store.Ping,
	}
}

// Controllers builds the HTTP layer over the kernel's services.
func (k *Kernel) Controllers() (routes.Controllers, error) {
	schema, err := appgraphql.NewSchema(k.Catalog)
	if err != nil {
		return routes.Controllers{}, fmt.Errorf("kernel: graphql schema: %w", err)
	}
	checks := make(map[string]controllers.Check)
	for name, p := range k.Probes() {
		checks[name] = p
	}

	return routes.Controllers{
		Auth:          controllers.NewAuthController(k.Auth, k.Trust),
		Trust:         controllers.NewTrustController(k.Trust, k.Auth),
		Catalog:       controllers.NewCatalogController(k.Catalog, k.Trust),
		Customers:     controllers.NewCustomerController(k.Customers, k.Trust),
		Orders:        controllers.NewOrderController(k.Orders, k.Cart, k.Trust),
		OrderItems:    controllers.NewOrderItemController(k.OrderItems, k.Cart, k.Trust),
		Exports:       controllers.NewExportController(k.Exports, k.Pool, k.Trust),
		Health:        controllers.NewHealthController(checks),
		GraphQL:       gql.Handler(schema),
		OrderBoard:    k.Hub,
		VerifyLimiter: middleware.NewLimiter(k.Settings.VerifyPerMin, time.Minute).KeyBy(middleware.UserOrIP),
	}, nil
}

// Handler is the full HTTP stack. Middleware order, outermost first:
// metrics, recovery, request id, logger, session, CORS, rate limit, identity.
func (k *Kernel) Handler() (http.Handler, error) {
	c, err := k.Controllers()
	if err != nil {
		return nil, err
	}
	r := NewRouter(k.Sessions, k.Tokens, k.Settings)
	routes.RegisterAPI(r, c)
	return r.Handler(), nil
}

// NewRouter applies the global middleware stack.
func NewRouter(sessions *session.Manager, tokens middleware.TokenParser, s Settings) *router.Router {
	r := router.New()
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		sessions.Middleware(),
		middleware.CORS(middleware.CORSFor(s.CORSOrigins)),
		middleware.NewLimiter(s.RatePerMin, time.Minute).KeyBy(middleware.ClientIP).Middleware,
		middleware.Authenticate(tokens),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// RouteTable lists the API without touching any backing service.
func RouteTable() []router.RouteInfo {
	r := router.New()
	routes.RegisterAPI(r, routes.Controllers{
		GraphQL:    http.NotFoundHandler(),
		OrderBoard: http.NotFoundHandler(),
	})
	return r.Routes()
}

// Close releases pools and connections in reverse order of acquisition.
func (k *Kernel) Close() {
	runAll(k.closers)
	k.closers = nil
}

func runAll(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
