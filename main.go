package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"vskmarket/internal/backend"
	"vskmarket/internal/handlers"
	"vskmarket/internal/middleware"
	"vskmarket/internal/models"
	"vskmarket/internal/repositories"
	"vskmarket/internal/services"
	"vskmarket/pkg/cache"
	"vskmarket/pkg/rabbitmq"

	"github.com/spf13/viper"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	AppPort         string
	BackendBaseURL  string
	BackendTimeout  time.Duration
	StoreDriver     string
	StoreDSN        string
	JWTSecret       string
	SessionTTL      time.Duration
	RabbitMQURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration
	PaymentKeyID    string
	MerchantName    string
	ShippingCost    decimal.Decimal
	SearchDebounce  time.Duration
	SearchMinChars  int
	Reconcile       reconcilePolicy
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("BACKEND_BASE_URL", "https://vskhomemarket.com/api")
	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("STORE_DSN", "vskmarket.db")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")
	v.SetDefault("PAYMENT_KEY_ID", "")
	v.SetDefault("PAYMENT_MERCHANT_NAME", "VSK Home Market")
	v.SetDefault("SHIPPING_COST", "0")
	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("SEARCH_MIN_CHARS", 2)
	v.SetDefault("RECONCILE_TIMEOUT", "30s")
	v.SetDefault("RECONCILE_RETRY_DELAY", "30s")
	v.SetDefault("RECONCILE_MAX_ATTEMPTS", 10)
	v.AutomaticEnv()
}

// loadConfig reads Config from v.
func loadConfig(v *viper.Viper) (Config, error) {
	shipping, err := decimal.NewFromString(v.GetString("SHIPPING_COST"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SHIPPING_COST: %w", err)
	}
	return Config{
		AppPort:         v.GetString("APP_PORT"),
		BackendBaseURL:  v.GetString("BACKEND_BASE_URL"),
		BackendTimeout:  v.GetDuration("BACKEND_TIMEOUT"),
		StoreDriver:     v.GetString("STORE_DRIVER"),
		StoreDSN:        v.GetString("STORE_DSN"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		SessionTTL:      v.GetDuration("SESSION_TTL"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		CatalogCacheTTL: v.GetDuration("CATALOG_CACHE_TTL"),
		PaymentKeyID:    v.GetString("PAYMENT_KEY_ID"),
		MerchantName:    v.GetString("PAYMENT_MERCHANT_NAME"),
		ShippingCost:    shipping,
		SearchDebounce:  v.GetDuration("SEARCH_DEBOUNCE"),
		SearchMinChars:  v.GetInt("SEARCH_MIN_CHARS"),
		Reconcile: reconcilePolicy{
			Timeout:     v.GetDuration("RECONCILE_TIMEOUT"),
			RetryDelay:  v.GetDuration("RECONCILE_RETRY_DELAY"),
			MaxAttempts: v.GetInt("RECONCILE_MAX_ATTEMPTS"),
		},
	}, nil
}

// openStore opens the local database and migrates the key-value table.
func openStore(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// App is the wired companion service.
type App struct {
	Fiber    *fiber.App
	Auth     *services.AuthService
	Checkout *services.CheckoutService

	mq        *rabbitmq.Client
	cache     *cache.Cache
	reconcile reconcilePolicy
}

// NewApp wires the services and routes on top of db. Redis and RabbitMQ
// are optional: an empty address disables them, and so does a failure to
// reach them at startup.
func NewApp(cfg Config, db *gorm.DB) (*App, error) {
	api, err := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
	})
	if err != nil {
		return nil, err
	}

	a := &App{reconcile: cfg.Reconcile}

	// --- Optional infrastructure ---
	var catalogCache services.Cache
	if cfg.RedisAddr != "" {
		rc := cache.NewCache(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CatalogCacheTTL,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			log.Printf("Warning: Redis unavailable at %s, catalog cache disabled: %v", cfg.RedisAddr, err)
			rc.Close()
		} else {
			a.cache = rc
			catalogCache = rc
		}
	}

	var publisher services.Publisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Printf("Warning: RabbitMQ unavailable, checkout events disabled: %v", err)
		} else {
			a.mq = mq
			publisher = mq
		}
	}

	// --- Repositories and services ---
	store := services.NewLocalStore(repositories.NewGORMKeyValueStore(db))

	a.Auth = services.NewAuthService(api, store, cfg.JWTSecret, cfg.SessionTTL)
	cartService := services.NewCartService(api, store, cfg.ShippingCost)
	a.Checkout = services.NewCheckoutService(api, store, publisher, services.CheckoutConfig{
		Shipping:     cfg.ShippingCost,
		KeyID:        cfg.PaymentKeyID,
		MerchantName: cfg.MerchantName,
	})
	searchService := services.NewSearchService(api, services.SearchConfig{
		MinChars: cfg.SearchMinChars,
		Debounce: cfg.SearchDebounce,
	})
	catalogService := services.NewCatalogService(api, catalogCache)
	accountService := services.NewAccountService(api, store)
	contentService := services.NewContentService(api, store)

	// --- Fiber app ---
	app := fiber.New()
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"backend":  api.BaseURL(),
			"rabbitmq": a.mq != nil,
			"cache":    a.cache != nil,
		})
	})

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(a.Auth).RegisterRoutes(apiV1)
	handlers.NewCatalogHandler(catalogService).RegisterRoutes(apiV1)
	handlers.NewCartHandler(cartService).RegisterRoutes(apiV1)
	handlers.NewSearchHandler(searchService).RegisterRoutes(apiV1)
	handlers.NewCheckoutHandler(a.Checkout).RegisterRoutes(apiV1)
	handlers.NewContentHandler(contentService).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(a.Auth))
	handlers.NewAccountHandler(accountService).RegisterRoutes(protected)

	a.Fiber = app
	return a, nil
}

// StartWorkers starts the checkout event consumer when RabbitMQ is wired.
func (a *App) StartWorkers() error {
	if a.mq == nil {
		return nil
	}
	log.Println("Starting RabbitMQ consumer for checkout events...")
	return a.mq.ConsumeCheckoutEvents(reconcileHandler(a.Checkout, a.mq, a.reconcile))
}

// Close releases the optional infrastructure.
func (a *App) Close() {
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			log.Printf("Error closing RabbitMQ client: %v", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
}

type reconciler interface {
	Reconcile(ctx context.Context) (*models.Checkout, error)
}

// reconcilePolicy bounds how long and how often a verification_failed
// checkout is re-queried.
type reconcilePolicy struct {
	Timeout     time.Duration
	RetryDelay  time.Duration
	MaxAttempts int
}

// reconcileHandler retries verification for checkouts whose payment could
// not be verified. While the backend still reports the order unsettled, or
// cannot be reached, the event is republished after RetryDelay with its
// attempt count raised. Other events are only logged.
func reconcileHandler(checkout reconciler, publisher services.Publisher, policy reconcilePolicy) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var ev services.CheckoutEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return fmt.Errorf("invalid checkout event: %w", err)
		}
		log.Printf("Received checkout event %s for order %s", ev.Event, ev.OrderNo)
		if ev.Event != services.EventCheckoutVerificationFailed {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), policy.Timeout)
		defer cancel()
		rec, err := checkout.Reconcile(ctx)
		if errors.Is(err, services.ErrInvalidTransition) {
			// Already reconciled through the UI.
			return nil
		}
		if err == nil && rec.State != models.CheckoutVerificationFailed {
			log.Printf("Order %s reconciled, checkout is %s", ev.OrderNo, rec.State)
			return nil
		}
		if err == nil {
			err = fmt.Errorf("payment still unsettled: %s", rec.LastError)
		}

		ev.Attempt++
		if ev.Attempt >= policy.MaxAttempts {
			return fmt.Errorf("reconcile order %s: giving up after %d attempts: %w", ev.OrderNo, ev.Attempt, err)
		}
		log.Printf("Order %s not reconciled (attempt %d): %v", ev.OrderNo, ev.Attempt, err)
		return scheduleRetry(publisher, ev, policy.RetryDelay)
	}
}

func scheduleRetry(publisher services.Publisher, ev services.CheckoutEvent, delay time.Duration) error {
	if publisher == nil {
		return fmt.Errorf("reconcile order %s: no publisher for retry", ev.OrderNo)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode retry event: %w", err)
	}
	if delay <= 0 {
		return publisher.Publish("", rabbitmq.CheckoutQueue, body)
	}
	time.AfterFunc(delay, func() {
		if err := publisher.Publish("", rabbitmq.CheckoutQueue, body); err != nil {
			log.Printf("Failed to republish checkout event for order %s: %v", ev.OrderNo, err)
		}
	})
	return nil
}

func main() {
	// --- Configuration ---
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}
	v := viper.New()
	setDefaults(v)
	cfg, err := loadConfig(v)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := openStore(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}

	a, err := NewApp(cfg, db)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer a.Close()

	if err := a.StartWorkers(); err != nil {
		log.Printf("Failed to start RabbitMQ consumer: %v", err)
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.Fiber.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := a.Fiber.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
