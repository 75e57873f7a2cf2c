package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/application/coordinator"
	healthsvc "foodbridge-backend/internal/application/health"
	"foodbridge-backend/internal/application/inventory"
	"foodbridge-backend/internal/application/listinggroups"
	"foodbridge-backend/internal/application/notifications"
	"foodbridge-backend/internal/application/pickups"
	uploadsvc "foodbridge-backend/internal/application/uploads"
	"foodbridge-backend/internal/config"
	"foodbridge-backend/internal/infrastructure/database"
	"foodbridge-backend/internal/infrastructure/locking"
	"foodbridge-backend/internal/infrastructure/pubsub"
	audithandler "foodbridge-backend/internal/interfaces/handlers/audit"
	eventhandler "foodbridge-backend/internal/interfaces/handlers/events"
	healthhandler "foodbridge-backend/internal/interfaces/handlers/health"
	invhandler "foodbridge-backend/internal/interfaces/handlers/inventory"
	listhandler "foodbridge-backend/internal/interfaces/handlers/listings"
	pickuphandler "foodbridge-backend/internal/interfaces/handlers/pickups"
	uploadhandler "foodbridge-backend/internal/interfaces/handlers/uploads"
	"foodbridge-backend/internal/middleware"
	"foodbridge-backend/internal/pkg/clock"
	"foodbridge-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Deps are the connections the app is built on. Any of DB, Rdb and Events may be nil.
type Deps struct {
	Config         *config.Config
	DB             *gorm.DB
	Rdb            *redis.Client
	Events         pubsub.MessageWriter
	TracerProvider trace.TracerProvider
	Clock          clock.Clock
}

// Open connects to everything cfg names.
func Open(cfg *config.Config) (*Deps, error) {
	d := &Deps{Config: cfg, Clock: clock.NewSystem()}
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		d.DB = db
	}
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.Rdb = redis.NewClient(opt)
	}
	if len(cfg.KafkaBrokers) > 0 {
		d.Events = pubsub.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	return d, nil
}

// Close releases every connection Open made.
func (d *Deps) Close() error {
	var errs []error
	if d.Events != nil {
		errs = append(errs, d.Events.Close())
	}
	if d.Rdb != nil {
		errs = append(errs, d.Rdb.Close())
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// Ping verifies the database and Redis before the server starts listening.
func (d *Deps) Ping(ctx context.Context) error {
	if d.DB != nil {
		if err := (database.Pinger{DB: d.DB}).Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if d.Rdb != nil {
		if err := d.Rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (d *Deps) locker() locking.Locker {
	if d.Config.LockBackend == config.LockBackendRedis {
		if d.Rdb != nil {
			return &locking.Redis{Client: d.Rdb, TTL: d.Config.LockTTL}
		}
		log.Warn().Msg("LOCK_BACKEND=redis without REDIS_URL, falling back to in-process locks")
	}
	return locking.NewLocal()
}

func (d *Deps) notifier() *notifications.Fanout {
	f := &notifications.Fanout{}
	if d.Rdb != nil {
		f.Publishers = append(f.Publishers, &pubsub.RedisPublisher{Client: d.Rdb})
	}
	if d.Events != nil {
		f.Publishers = append(f.Publishers, &pubsub.KafkaPublisher{Writer: d.Events})
	}
	return f
}

func (d *Deps) healthDeps() map[string]healthsvc.Pinger {
	deps := map[string]healthsvc.Pinger{}
	if d.DB != nil {
		deps[healthsvc.DepDatabase] = database.Pinger{DB: d.DB}
	} else {
		deps[healthsvc.DepDatabase] = nil
	}
	if len(d.Config.KafkaBrokers) > 0 {
		deps[healthsvc.DepKafka] = pubsub.KafkaPinger{Brokers: d.Config.KafkaBrokers}
	}
	return deps
}

func CreateApp(d *Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Session(d.Rdb))
	app.Use(middleware.HealthMarker(d.Rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            d.Rdb,
		Deps:           d.healthDeps(),
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/health/ready", hh.Ready)

	if d.DB == nil {
		log.Warn().Msg("No database configured, only health routes are mounted")
		return app
	}

	clk := d.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	auditSvc := &audit.Service{DB: d.DB}
	notifier := d.notifier()
	coord := coordinator.New(d.DB, d.locker(),
		coordinator.WithMaxAttempts(cfg.ReservationRetries),
		coordinator.WithTracerProvider(d.TracerProvider),
	)
	groups := &listinggroups.Service{DB: d.DB, Coordinator: coord, Audit: auditSvc, Notifier: notifier, Clock: clk}
	pickupSvc := &pickups.Service{DB: d.DB, Coordinator: coord, Groups: groups, Audit: auditSvc, Notifier: notifier, Clock: clk}
	if d.TracerProvider != nil {
		pickupSvc.Tracer = d.TracerProvider.Tracer("foodbridge-backend/pickups")
	}
	invSvc := &inventory.Service{DB: d.DB, Audit: auditSvc, Notifier: notifier, Clock: clk}

	api := app.Group("/api/v1", middleware.RequireAuth())

	// Listings
	lh := &listhandler.Handlers{Service: groups}
	lg := api.Group("/listings")
	lg.Post("/publish", middleware.AuthorizePermission(constants.PublishListing), lh.Publish)
	lg.Get("/browse", middleware.AuthorizePermission(constants.ViewData), lh.Browse)
	lg.Get("/:listing_id", middleware.AuthorizePermission(constants.ViewData), lh.Get)
	lg.Post("/:listing_id/split", middleware.AuthorizePermission(constants.ManageListing), lh.Split)
	lg.Post("/:listing_id/expire", middleware.AuthorizePermission(constants.ManageListing), lh.Expire)

	gg := api.Group("/listing-groups", middleware.AuthorizePermission(constants.ViewData))
	gg.Get("/:group_id/summary", lh.GroupSummary)
	gg.Get("/:group_id/listings", lh.GroupListings)

	// Pickups
	ph := &pickuphandler.Handlers{Service: pickupSvc}
	pg := api.Group("/pickups")
	pg.Post("/", middleware.AuthorizePermission(constants.RequestPickup), ph.Create)
	pg.Get("/", middleware.AuthorizePermission(constants.ViewData), ph.List)
	pg.Get("/:request_id", middleware.AuthorizePermission(constants.ViewData), ph.Get)
	pg.Post("/:request_id/:action", middleware.AuthorizePermission(constants.ManagePickup), ph.Transition)

	// Inventory
	ih := &invhandler.Handlers{Service: invSvc}
	ig := api.Group("/inventory")
	ig.Get("/", middleware.AuthorizePermission(constants.ViewData), ih.List)
	ig.Patch("/:item_id/distribute", middleware.AuthorizePermission(constants.ManageInventory), ih.Distribute)

	// Audit
	ah := &audithandler.Handlers{Service: auditSvc}
	api.Get("/audit/:entity_type/:entity_id", middleware.AuthorizePermission(constants.ViewAudit), ah.ListForEntity)

	// Proof-of-pickup uploads
	uh := &uploadhandler.Handlers{
		Service: &uploadsvc.Service{
			Client:      &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
			SupabaseURL: cfg.SupabaseURL,
			Clock:       clk,
		},
		Requests: pickupSvc,
	}
	api.Post("/uploads/pickup-proof", middleware.AuthorizePermission(constants.ManagePickup), uh.PickupProof)

	// Realtime
	eh := &eventhandler.Handlers{Requests: pickupSvc, Items: invSvc}
	if d.Rdb != nil {
		eh.Rooms = &pubsub.RedisPublisher{Client: d.Rdb}
	}
	api.Get("/events/stream", middleware.AuthorizePermission(constants.ViewData), eh.Stream)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
