package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pharmapin/pharmapin/internal/config"
	"github.com/pharmapin/pharmapin/internal/database"
	"github.com/pharmapin/pharmapin/internal/handler"
	"github.com/pharmapin/pharmapin/internal/logging"
	"github.com/pharmapin/pharmapin/internal/middleware"
	"github.com/pharmapin/pharmapin/internal/queue"
	"github.com/pharmapin/pharmapin/internal/repository"
	"github.com/pharmapin/pharmapin/internal/repository/memstore"
	"github.com/pharmapin/pharmapin/internal/router"
	"github.com/pharmapin/pharmapin/internal/search"
	"github.com/pharmapin/pharmapin/internal/service"
)

// stores is the driver-independent view of the persistence layer.
type stores struct {
	users      service.UserStore
	tokens     service.TokenStore
	pharmacies service.PharmacyStore
	drugs      service.DrugStore
	inventory  service.InventoryStore
	orders     service.OrderStore
	patients   service.PatientStore
	matcher    search.DrugMatcher
	locator    search.PharmacyLocator
	joiner     search.InventoryJoiner
	pinger     handler.Pinger
	close      func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)
	decimal.MarshalJSONWithoutQuotes = true

	st, err := openStores(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer func() { _ = st.close() }()

	if err := seedAdmin(cfg, st.users, log); err != nil {
		log.WithError(err).Fatal("seed admin")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; response cache off, limiters in memory or disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := config.LoadBrokerConfig()
	var events service.EventPublisher
	if broker.URL != "" {
		pub := queue.NewPublisher(broker.URL, log)
		defer func() { _ = pub.Close() }()
		events = pub
		if broker.ConsumerEnabled {
			go func() {
				err := queue.StartConsumer(ctx, queue.ConsumerConfig{
					URL:    broker.URL,
					Queues: queue.AllQueues,
					LogDir: broker.LogDir,
				}, log)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("event consumer stopped")
				}
			}()
		}
	} else {
		log.Info("RABBITMQ_URL not set; domain events are not published")
	}

	e := newEcho(cfg, st, events, rdb, log)

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func openStores(cfg config.Config, log *logrus.Logger) (stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		m := memstore.New()
		log.Warn("using in-memory store; data is lost on restart")
		return stores{
			users: m.Users, tokens: m.Tokens, pharmacies: m.Pharmacies, drugs: m.Drugs,
			inventory: m.Inventory, orders: m.Orders, patients: m.Patients,
			matcher: m.Search, locator: m.Search, joiner: m.Search,
			pinger: m, close: func() error { return nil },
		}, nil
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return stores{}, err
	}
	if cfg.Migrate {
		v, err := database.Migrate(db)
		if err != nil {
			_ = db.Close()
			return stores{}, err
		}
		log.WithField("version", v).Info("schema migrated")
	}
	r := repository.NewStore(db)
	return stores{
		users: r.Users, tokens: r.Tokens, pharmacies: r.Pharmacies, drugs: r.Drugs,
		inventory: r.Inventory, orders: r.Orders, patients: r.Patients,
		matcher: r.Search, locator: r.Search, joiner: r.Search,
		pinger: r, close: db.Close,
	}, nil
}

// seedAdmin makes sure the ADMIN_* account exists so pharmacies can be
// reviewed on a fresh database.
func seedAdmin(cfg config.Config, users service.UserStore, log *logrus.Logger) error {
	if cfg.Admin.Email == "" {
		log.Info("ADMIN_EMAIL not set; skipping admin seed")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	u, created, err := service.EnsureAdmin(ctx, users, service.AdminSeed{
		Email:      cfg.Admin.Email,
		Username:   cfg.Admin.Username,
		Password:   cfg.Admin.Password,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"user_id": u.ID, "created": created}).Info("admin account ready")
	return nil
}

func newEcho(cfg config.Config, st stores, events service.EventPublisher, rdb *redis.Client, log *logrus.Logger) *echo.Echo {
	pharmacies := service.NewPharmacyService(st.pharmacies, events, cfg.MaxCertificates)
	catalog := service.NewCatalogService(st.drugs, st.inventory, st.pharmacies)
	orders := service.NewOrderService(st.orders, st.pharmacies, events)
	patients := service.NewPatientService(st.patients, st.pharmacies)
	admin := service.NewAdminService(st.users, st.tokens, st.pharmacies, st.drugs, st.orders)
	finder := search.New(st.matcher, st.locator, st.joiner, cfg.SearchRadiusKm)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.AccessLog(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("12M"))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	e.Static("/uploads", cfg.UploadDir)

	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, st.users, st.tokens),
		Health:     handler.NewHealthHandler(st.pinger),
		Onboarding: handler.NewOnboardingHandler(pharmacies, cfg.UploadDir),
		Pharmacies: handler.NewPharmacyHandler(pharmacies, cfg.SearchRadiusKm),
		Drugs:      handler.NewDrugHandler(catalog),
		Inventory:  handler.NewInventoryHandler(catalog, finder, cfg.SearchRadiusKm),
		Search:     handler.NewSearchHandler(finder),
		Orders:     handler.NewOrderHandler(orders),
		Patients:   handler.NewPatientHandler(patients),
		Admin:      handler.NewAdminHandler(admin),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		AuthLimit: middleware.NewAuthLimiter(config.LoadAuthLimitConfig(), rdb, log),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})
	return e
}
